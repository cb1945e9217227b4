package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product представляет товар каталога
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	SubCategory string          `json:"subCategory" validate:"required"`
	Sizes       []string        `json:"sizes" validate:"min=1,dive,required"`
	Bestseller  bool            `json:"bestseller"`
	Images      []string        `json:"images" validate:"min=1,dive,required"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// HasSize проверяет, продаётся ли товар в указанном размере
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// CoverImage — первое изображение товара, оно попадает в строки корзины и заказа
func (p *Product) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductSort задаёт порядок выдачи каталога
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNameAsc   ProductSort = "name_asc"
	SortNameDesc  ProductSort = "name_desc"
)

// ProductFilter — параметры выборки каталога.
// Пустые поля не участвуют в фильтрации, Limit == 0 означает "без пагинации".
type ProductFilter struct {
	Categories    []string
	SubCategories []string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Search        string
	Bestseller    *bool
	Sort          ProductSort
	Page          int
	Limit         int
}

// Offset возвращает количество пропускаемых записей для текущей страницы
func (f ProductFilter) Offset() int {
	if f.Limit <= 0 || f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
