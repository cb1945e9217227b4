package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPaymentMethod — единственный поддерживаемый способ оплаты (наложенный платёж)
const DefaultPaymentMethod = "COD"

// OrderStatus — состояние заказа
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusConfirmed OrderStatus = "Confirmed"
	StatusShipping  OrderStatus = "Shipping"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

var ErrUnknownStatus = errors.New("unknown order status")

var orderStatuses = []OrderStatus{StatusPending, StatusConfirmed, StatusShipping, StatusDelivered, StatusCancelled}

// ParseOrderStatus приводит строку к известному статусу без учёта регистра
func ParseOrderStatus(s string) (OrderStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range orderStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", ErrUnknownStatus
}

// ShippingAddress — адрес доставки заказа
type ShippingAddress struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

// Complete сообщает, заполнены ли все поля адреса
func (a ShippingAddress) Complete() bool {
	return strings.TrimSpace(a.Address) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.Phone) != ""
}

// OrderLine — строка заказа; данные товара копируются в момент оформления
type OrderLine struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// Total — стоимость строки: цена × количество
func (l OrderLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LinesTotal суммирует стоимость строк заказа
func LinesTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// Order представляет заказ, оформленный из корзины
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	UserName        string          `json:"userName"`
	Lines           []OrderLine     `json:"products"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	Version         int             `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// RemoveLine удаляет строку из заказа и уменьшает итоговую сумму на её стоимость.
// Возвращает false, если строки с таким идентификатором нет.
func (o *Order) RemoveLine(lineID uuid.UUID) (OrderLine, bool) {
	for i, l := range o.Lines {
		if l.ID != lineID {
			continue
		}
		o.Lines = append(o.Lines[:i:i], o.Lines[i+1:]...)
		o.TotalAmount = o.TotalAmount.Sub(l.Total())
		return l, true
	}
	return OrderLine{}, false
}
