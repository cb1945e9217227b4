package models

import (
	"iter"
	"sort"

	"github.com/shopspring/decimal"
)

// Cart — корзина пользователя: идентификатор товара -> размер -> количество.
// Количество всегда >= 1, пустые вложенные карты не хранятся.
type Cart map[string]map[string]int

func NewCart() Cart {
	return make(Cart)
}

// Add увеличивает количество позиции на единицу (новая позиция получает 1)
func (c Cart) Add(productID, size string) {
	sizes, ok := c[productID]
	if !ok {
		sizes = make(map[string]int)
		c[productID] = sizes
	}
	sizes[size]++
}

// Remove удаляет позицию; товар без размеров удаляется целиком
func (c Cart) Remove(productID, size string) {
	sizes, ok := c[productID]
	if !ok {
		return
	}
	delete(sizes, size)
	if len(sizes) == 0 {
		delete(c, productID)
	}
}

// SetQuantity выставляет количество; n < 1 равносильно Remove
func (c Cart) SetQuantity(productID, size string, n int) {
	if n < 1 {
		c.Remove(productID, size)
		return
	}
	sizes, ok := c[productID]
	if !ok {
		sizes = make(map[string]int)
		c[productID] = sizes
	}
	sizes[size] = n
}

// ItemCount — сумма количеств по всем позициям корзины
func (c Cart) ItemCount() int {
	count := 0
	for _, sizes := range c {
		for _, qty := range sizes {
			count += qty
		}
	}
	return count
}

func (c Cart) Empty() bool {
	return len(c) == 0
}

// Catalog отдаёт актуальные данные товара по идентификатору
type Catalog interface {
	Lookup(productID string) (*Product, bool)
}

// ProductIndex — снимок каталога в памяти
type ProductIndex map[string]*Product

func NewProductIndex(products []*Product) ProductIndex {
	idx := make(ProductIndex, len(products))
	for _, p := range products {
		idx[p.ID.String()] = p
	}
	return idx
}

func (idx ProductIndex) Lookup(productID string) (*Product, bool) {
	p, ok := idx[productID]
	return p, ok
}

// CartLine — позиция корзины с ценой из каталога
type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// LineItems перечисляет позиции корзины в стабильном порядке (товар, размер).
// Позиции, товара которых нет в каталоге, пропускаются.
// Последовательность ленивая и может перебираться повторно.
func (c Cart) LineItems(catalog Catalog) iter.Seq[CartLine] {
	return func(yield func(CartLine) bool) {
		productIDs := make([]string, 0, len(c))
		for id := range c {
			productIDs = append(productIDs, id)
		}
		sort.Strings(productIDs)

		for _, id := range productIDs {
			product, ok := catalog.Lookup(id)
			if !ok {
				continue
			}
			sizes := make([]string, 0, len(c[id]))
			for size := range c[id] {
				sizes = append(sizes, size)
			}
			sort.Strings(sizes)

			for _, size := range sizes {
				qty := c[id][size]
				line := CartLine{
					ProductID: id,
					Name:      product.Name,
					Price:     product.Price,
					Size:      size,
					Quantity:  qty,
					Image:     product.CoverImage(),
					LineTotal: product.Price.Mul(decimal.NewFromInt(int64(qty))),
				}
				if !yield(line) {
					return
				}
			}
		}
	}
}

// Total — сумма LineTotal по всем позициям, известным каталогу
func (c Cart) Total(catalog Catalog) decimal.Decimal {
	total := decimal.Zero
	for line := range c.LineItems(catalog) {
		total = total.Add(line.LineTotal)
	}
	return total
}

// CartSummary — корзина в виде, готовом для отображения
type CartSummary struct {
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func Summarize(c Cart, catalog Catalog) CartSummary {
	items := make([]CartLine, 0, len(c))
	for line := range c.LineItems(catalog) {
		items = append(items, line)
	}
	return CartSummary{
		Items:     items,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Total(catalog),
	}
}
