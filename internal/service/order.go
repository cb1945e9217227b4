package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
	"github.com/linemk/clothing-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// сколько раз removeLine перечитывает заказ при конфликте версий
const maxOrderCASAttempts = 3

// OrderScope — чьи заказы выбирать: UserID == nil означает все заказы
type OrderScope struct {
	UserID *uuid.UUID
}

func ScopeMine(userID uuid.UUID) OrderScope {
	return OrderScope{UserID: &userID}
}

func ScopeAll() OrderScope {
	return OrderScope{}
}

// OrderSettings — параметры оформления заказа из конфигурации
type OrderSettings struct {
	ShippingFee   decimal.Decimal
	PaymentMethod string
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, lines []models.OrderLine, addr models.ShippingAddress) (*models.Order, error)
	Checkout(ctx context.Context, userID uuid.UUID, addr models.ShippingAddress, paymentMethod string) (*models.Order, error)
	ListOrders(ctx context.Context, scope OrderScope) ([]*models.Order, error)
	SetStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	// RemoveLine возвращает обновлённый заказ или deleted == true, если строк не осталось и заказ удалён.
	RemoveLine(ctx context.Context, orderID, lineID uuid.UUID) (order *models.Order, deleted bool, err error)
}

type orderService struct {
	log         *slog.Logger
	orderRepo   storage.OrderStorage
	userRepo    storage.UserStorage
	productRepo storage.ProductStorage
	carts       CartStore
	settings    OrderSettings
}

func NewOrderService(
	log *slog.Logger,
	orderRepo storage.OrderStorage,
	userRepo storage.UserStorage,
	productRepo storage.ProductStorage,
	carts CartStore,
	settings OrderSettings,
) OrderService {
	if settings.PaymentMethod == "" {
		settings.PaymentMethod = models.DefaultPaymentMethod
	}
	return &orderService{
		log:         log,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		carts:       carts,
		settings:    settings,
	}
}

// CreateOrder сохраняет заказ со статусом Pending и очищает корзину пользователя.
// Итог = сумма строк + стоимость доставки.
func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, lines []models.OrderLine, addr models.ShippingAddress) (*models.Order, error) {
	const op = "service.OrderService.CreateOrder"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID.String()))

	order, err := s.placeOrder(ctx, op, logger, userID, lines, addr)
	if err != nil {
		return nil, err
	}

	// заказ уже сохранён, поэтому ошибка очистки корзины не отменяет его
	if err := s.carts.Delete(ctx, userID); err != nil {
		logger.Warn("failed to clear cart after order", sl.Err(err))
	}
	return order, nil
}

// placeOrder проверяет строки и адрес и сохраняет заказ
func (s *orderService) placeOrder(
	ctx context.Context,
	op string,
	logger *slog.Logger,
	userID uuid.UUID,
	lines []models.OrderLine,
	addr models.ShippingAddress,
) (*models.Order, error) {

	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: %w", op, validationErr("order has no items"))
	}
	if !addr.Complete() {
		return nil, fmt.Errorf("%s: %w", op, validationErr("shipping address is incomplete"))
	}
	addr = models.ShippingAddress{
		Address: strings.TrimSpace(addr.Address),
		City:    strings.TrimSpace(addr.City),
		Phone:   strings.TrimSpace(addr.Phone),
	}

	orderLines := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%s: %w", op, validationErr("quantity of %s must be positive", l.Name))
		}
		if l.Price.IsNegative() {
			return nil, fmt.Errorf("%s: %w", op, validationErr("price of %s must not be negative", l.Name))
		}
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		orderLines = append(orderLines, l)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("user not found"))
		}
		logger.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	order, err := s.orderRepo.CreateOrder(ctx, &models.Order{
		UserID:          user.ID,
		UserName:        user.Name,
		Lines:           orderLines,
		TotalAmount:     models.LinesTotal(orderLines).Add(s.settings.ShippingFee),
		ShippingAddress: addr,
		Status:          models.StatusPending,
		PaymentMethod:   s.settings.PaymentMethod,
	})
	if err != nil {
		logger.Error("failed to create order", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	logger.Info("order created",
		slog.String("orderID", order.ID.String()),
		slog.Int("lines", len(order.Lines)),
		slog.String("total", order.TotalAmount.String()),
	)
	return order, nil
}

// Checkout оформляет заказ из текущей корзины пользователя по ценам каталога
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, addr models.ShippingAddress, paymentMethod string) (*models.Order, error) {
	const op = "service.OrderService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID.String()))

	if pm := strings.TrimSpace(paymentMethod); pm != "" && !strings.EqualFold(pm, s.settings.PaymentMethod) {
		return nil, fmt.Errorf("%s: %w", op, validationErr("unsupported payment method %s", pm))
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		logger.Error("failed to get cart", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get cart: %w", op, err)
	}
	catalog, err := loadCatalog(ctx, s.productRepo, cart)
	if err != nil {
		logger.Error("failed to load catalog", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to load catalog: %w", op, err)
	}

	var lines []models.OrderLine
	for item := range cart.LineItems(catalog) {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			continue
		}
		lines = append(lines, models.OrderLine{
			ProductID: productID,
			Name:      item.Name,
			Price:     item.Price,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: %w", op, validationErr("cart is empty"))
	}

	order, err := s.placeOrder(ctx, op, logger, userID, lines, addr)
	if err != nil {
		return nil, err
	}

	// из корзины вычитается только оформленный снимок: позиции,
	// добавленные во время оформления, остаются в корзине
	if _, err := s.carts.Update(ctx, userID, func(current models.Cart) error {
		subtractCart(current, cart)
		return nil
	}); err != nil {
		logger.Warn("failed to clear cart after order", sl.Err(err))
	}
	return order, nil
}

// subtractCart уменьшает количества в current на количества из snapshot;
// позиции с нулевым остатком удаляются
func subtractCart(current, snapshot models.Cart) {
	for productID, sizes := range snapshot {
		for size, qty := range sizes {
			left, ok := current[productID][size]
			if !ok {
				continue
			}
			current.SetQuantity(productID, size, left-qty)
		}
	}
}

func (s *orderService) ListOrders(ctx context.Context, scope OrderScope) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"

	orders, err := s.orderRepo.ListOrders(ctx, scope.UserID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// SetStatus перезаписывает статус без проверки переходов: допустим любой известный статус
func (s *orderService) SetStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error) {
	const op = "service.OrderService.SetStatus"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID.String()))

	st, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, validationErr("unknown order status %q", status))
	}

	order, err := s.orderRepo.UpdateOrderStatus(ctx, orderID, st)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
		}
		logger.Error("failed to update status", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to update status: %w", op, err)
	}

	logger.Info("order status updated", slog.String("status", string(st)))
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	const op = "service.OrderService.DeleteOrder"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID.String()))

	if err := s.orderRepo.DeleteOrder(ctx, orderID); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
		}
		logger.Error("failed to delete order", sl.Err(err))
		return fmt.Errorf("%s: failed to delete order: %w", op, err)
	}

	logger.Info("order deleted")
	return nil
}

// RemoveLine удаляет строку заказа с проверкой версии. При конфликте заказ перечитывается,
// после maxOrderCASAttempts попыток возвращается ErrConflict.
// Заказ без строк не хранится и удаляется целиком.
func (s *orderService) RemoveLine(ctx context.Context, orderID, lineID uuid.UUID) (*models.Order, bool, error) {
	const op = "service.OrderService.RemoveLine"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID.String()), slog.String("lineID", lineID.String()))

	for attempt := 1; attempt <= maxOrderCASAttempts; attempt++ {
		order, err := s.orderRepo.GetOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return nil, false, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
			}
			logger.Error("failed to get order", sl.Err(err))
			return nil, false, fmt.Errorf("%s: failed to get order: %w", op, err)
		}

		if _, ok := order.RemoveLine(lineID); !ok {
			return nil, false, fmt.Errorf("%s: %w", op, notFoundErr("product not found in order"))
		}

		if len(order.Lines) == 0 {
			err = s.orderRepo.DeleteOrderAtVersion(ctx, order.ID, order.Version)
			if err == nil {
				logger.Info("last line removed, order deleted")
				return nil, true, nil
			}
		} else {
			err = s.orderRepo.UpdateOrderLines(ctx, order)
			if err == nil {
				logger.Info("order line removed", slog.String("total", order.TotalAmount.String()))
				return order, false, nil
			}
		}

		if !errors.Is(err, storage.ErrOrderConflict) {
			logger.Error("failed to save order", sl.Err(err))
			return nil, false, fmt.Errorf("%s: failed to save order: %w", op, err)
		}
		logger.Debug("order version conflict, retrying", slog.Int("attempt", attempt))
	}

	logger.Warn("order is being modified concurrently")
	return nil, false, fmt.Errorf("%s: %w", op, conflictErr("order was modified concurrently, please retry"))
}
