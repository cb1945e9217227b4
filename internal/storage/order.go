package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderConflict — заказ изменён или удалён после чтения
	ErrOrderConflict = errors.New("order was modified concurrently")
)

// OrderStorage описывает методы для работы с заказами.
// Строки заказа хранятся вместе с заказом (jsonb), отдельной таблицы нет.
type OrderStorage interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// ListOrders возвращает заказы от новых к старым; userID == nil — все заказы.
	ListOrders(ctx context.Context, userID *uuid.UUID) ([]*models.Order, error)
	// UpdateOrderStatus меняет статус одним запросом и возвращает обновлённый заказ.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	// UpdateOrderLines сохраняет строки и сумму, если версия заказа не изменилась.
	// При успехе order.Version увеличивается.
	UpdateOrderLines(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	DeleteOrderAtVersion(ctx context.Context, id uuid.UUID, version int) error
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, user_name, lines, total_amount, address, city, phone,
	status, payment_method, version, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	o := &models.Order{}
	var lines []byte
	err := row.Scan(&o.ID, &o.UserID, &o.UserName, &lines, &o.TotalAmount,
		&o.ShippingAddress.Address, &o.ShippingAddress.City, &o.ShippingAddress.Phone,
		&o.Status, &o.PaymentMethod, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode order lines: %w", err)
	}
	return o, nil
}

// CreateOrder вставляет новый заказ в таблицу orders.
func (r *orderRepository) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order lines: %w", err)
	}
	o.Version = 1

	query := `INSERT INTO orders (id, user_id, user_name, lines, total_amount, address, city, phone, status, payment_method, version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		o.ID, o.UserID, o.UserName, lines, o.TotalAmount,
		o.ShippingAddress.Address, o.ShippingAddress.City, o.ShippingAddress.Phone,
		o.Status, o.PaymentMethod, o.Version,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return o, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	return scanOrder(row)
}

func (r *orderRepository) ListOrders(ctx context.Context, userID *uuid.UUID) ([]*models.Order, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID != nil {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", *userID)
	} else {
		rows, err = r.db.QueryContext(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE orders SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 RETURNING `+orderColumns, status, id)
	return scanOrder(row)
}

func (r *orderRepository) UpdateOrderLines(ctx context.Context, o *models.Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode order lines: %w", err)
	}
	err = r.db.QueryRowContext(ctx,
		`UPDATE orders SET lines = $1, total_amount = $2, version = version + 1, updated_at = NOW()
		 WHERE id = $3 AND version = $4 RETURNING version, updated_at`,
		lines, o.TotalAmount, o.ID, o.Version,
	).Scan(&o.Version, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderConflict
		}
		return fmt.Errorf("failed to update order lines: %w", err)
	}
	return nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return r.delete(ctx, "DELETE FROM orders WHERE id = $1", ErrOrderNotFound, id)
}

func (r *orderRepository) DeleteOrderAtVersion(ctx context.Context, id uuid.UUID, version int) error {
	return r.delete(ctx, "DELETE FROM orders WHERE id = $1 AND version = $2", ErrOrderConflict, id, version)
}

func (r *orderRepository) delete(ctx context.Context, query string, errNone error, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errNone
	}
	return nil
}
