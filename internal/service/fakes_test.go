package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/service"
	"github.com/linemk/clothing-shop/internal/storage"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
	err   error
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, err := f.GetUserByEmail(ctx, user.Email); err == nil {
		return nil, storage.ErrUserExists
	}
	user.ID = uuid.New()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return storage.ErrUserNotFound
	}
	f.users[user.ID] = user
	return nil
}

type fakeProductRepo struct {
	products map[uuid.UUID]*models.Product
	gets     int
	err      error
	mu       sync.Mutex
	block    chan struct{}
	// onBatch вызывается при каждой пакетной выборке товаров
	onBatch func()
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductRepo) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p.ID = uuid.New()
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	f.gets++
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error) {
	if f.onBatch != nil {
		f.onBatch()
	}
	var out []*models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []*models.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (f *fakeProductRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

// fakeOrderRepo повторяет поведение версий: каждое изменение увеличивает Version
type fakeOrderRepo struct {
	orders map[uuid.UUID]*models.Order
	// beforeWrite вызывается перед каждой CAS-записью; так тесты имитируют параллельные изменения
	beforeWrite func(id uuid.UUID)
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Lines = append([]models.OrderLine(nil), o.Lines...)
	return &c
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	o.ID = uuid.New()
	o.Version = 1
	f.orders[o.ID] = cloneOrder(o)
	return o, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context, userID *uuid.UUID) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if userID == nil || o.UserID == *userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	o.Status = status
	o.Version++
	return cloneOrder(o), nil
}

func (f *fakeOrderRepo) UpdateOrderLines(ctx context.Context, o *models.Order) error {
	if f.beforeWrite != nil {
		f.beforeWrite(o.ID)
	}
	stored, ok := f.orders[o.ID]
	if !ok || stored.Version != o.Version {
		return storage.ErrOrderConflict
	}
	o.Version++
	f.orders[o.ID] = cloneOrder(o)
	return nil
}

func (f *fakeOrderRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.orders[id]; !ok {
		return storage.ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) DeleteOrderAtVersion(ctx context.Context, id uuid.UUID, version int) error {
	if f.beforeWrite != nil {
		f.beforeWrite(id)
	}
	stored, ok := f.orders[id]
	if !ok || stored.Version != version {
		return storage.ErrOrderConflict
	}
	delete(f.orders, id)
	return nil
}

type fakeCartStore struct {
	carts     map[uuid.UUID]models.Cart
	deleteErr error
	updateErr error
}

var _ service.CartStore = (*fakeCartStore)(nil)

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[uuid.UUID]models.Cart)}
}

func (f *fakeCartStore) Get(ctx context.Context, userID uuid.UUID) (models.Cart, error) {
	cart := models.NewCart()
	for p, sizes := range f.carts[userID] {
		for s, n := range sizes {
			cart.SetQuantity(p, s, n)
		}
	}
	return cart, nil
}

func (f *fakeCartStore) Update(ctx context.Context, userID uuid.UUID, fn func(models.Cart) error) (models.Cart, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	cart, _ := f.Get(ctx, userID)
	if err := fn(cart); err != nil {
		return nil, err
	}
	if cart.Empty() {
		delete(f.carts, userID)
		return cart, nil
	}
	f.carts[userID] = cart
	return cart, nil
}

func (f *fakeCartStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.carts, userID)
	return nil
}

type fakeImageStore struct {
	uploaded []string
	deleted  []string
	failAt   int // номер загрузки (с 1), на которой вернуть ошибку; 0 — не падать
	calls    int
}

var _ service.ImageStore = (*fakeImageStore)(nil)

func (f *fakeImageStore) Upload(ctx context.Context, data []byte) (string, error) {
	f.calls++
	if f.failAt != 0 && f.calls == f.failAt {
		return "", errors.New("image host unavailable")
	}
	url := "https://img.example/products/" + string(data) + ".png"
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeIssuer struct{}

func (fakeIssuer) NewToken(user *models.User) (string, error) {
	return "user-token:" + user.ID.String(), nil
}

func (fakeIssuer) NewAdminToken(email string) (string, error) {
	return "admin-token:" + email, nil
}
