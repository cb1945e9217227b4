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
	"golang.org/x/sync/singleflight"
)

const MaxProductImages = 4

// ImageStore хранит изображения товаров во внешнем хостинге
type ImageStore interface {
	Upload(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

type ProductInput struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	SubCategory string          `json:"subCategory" validate:"required"`
	Sizes       []string        `json:"sizes" validate:"min=1,dive,required"`
	Bestseller  bool            `json:"bestseller"`
}

// ProductPage — страница каталога
type ProductPage struct {
	Products []*models.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, in ProductInput, images [][]byte) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) (*ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
	images      ImageStore
	group       singleflight.Group
}

func NewProductService(log *slog.Logger, productRepo storage.ProductStorage, images ImageStore) ProductService {
	return &productService{
		log:         log,
		productRepo: productRepo,
		images:      images,
	}
}

// CreateProduct загружает изображения и сохраняет товар.
// Если что-то идет не так, уже загруженные изображения удаляются.
func (s *productService) CreateProduct(ctx context.Context, in ProductInput, images [][]byte) (*models.Product, error) {
	const op = "service.ProductService.CreateProduct"
	logger := s.log.With(slog.String("op", op), slog.String("name", in.Name))

	in.Sizes = compactStrings(in.Sizes)
	if err := validateStruct(in); err != nil {
		logger.Warn("invalid product data", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", op, validationErr("no images were uploaded"))
	}
	if len(images) > MaxProductImages {
		return nil, fmt.Errorf("%s: %w", op, validationErr("at most %d images are allowed", MaxProductImages))
	}

	urls := make([]string, 0, len(images))
	for i, data := range images {
		url, err := s.images.Upload(ctx, data)
		if err != nil {
			logger.Error("failed to upload image", slog.Int("index", i+1), sl.Err(err))
			s.deleteImages(ctx, logger, urls)
			return nil, fmt.Errorf("%s: %w: %v", op, upstreamErr(fmt.Sprintf("error uploading image%d", i+1)), err)
		}
		urls = append(urls, url)
	}

	product := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		SubCategory: strings.TrimSpace(in.SubCategory),
		Sizes:       in.Sizes,
		Bestseller:  in.Bestseller,
		Images:      urls,
	}
	if err := validateStruct(product); err != nil {
		s.deleteImages(ctx, logger, urls)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.productRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("failed to create product", sl.Err(err))
		s.deleteImages(ctx, logger, urls)
		return nil, fmt.Errorf("%s: failed to create product: %w", op, err)
	}

	logger.Info("product created", slog.String("productID", created.ID.String()), slog.Int("images", len(urls)))
	return created, nil
}

func (s *productService) ListProducts(ctx context.Context, filter models.ProductFilter) (*ProductPage, error) {
	const op = "service.ProductService.ListProducts"
	logger := s.log.With(slog.String("op", op))

	if filter.Limit < 0 {
		return nil, fmt.Errorf("%s: %w", op, validationErr("limit must not be negative"))
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%s: %w", op, validationErr("minPrice is greater than maxPrice"))
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Categories = compactStrings(filter.Categories)
	filter.SubCategories = compactStrings(filter.SubCategories)

	products, total, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		logger.Error("failed to list products", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}
	if products == nil {
		products = []*models.Product{}
	}

	logger.Debug("products listed", slog.Int("count", len(products)), slog.Int("total", total))
	return &ProductPage{Products: products, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// GetProduct — одновременные запросы одного товара объединяются в одно обращение к хранилищу
func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	const op = "service.ProductService.GetProduct"

	// общий вызов не зависит от отмены запроса, который его начал
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(id.String(), func() (interface{}, error) {
		return s.productRepo.GetProductByID(shared, id)
	})
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("product not found"))
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.String("productID", id.String()), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	return v.(*models.Product), nil
}

// DeleteProduct удаляет товар; изображения удаляются по возможности
func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	const op = "service.ProductService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.String("productID", id.String()))

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundErr("product not found"))
		}
		logger.Error("failed to get product", sl.Err(err))
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundErr("product not found"))
		}
		logger.Error("failed to delete product", sl.Err(err))
		return fmt.Errorf("%s: failed to delete product: %w", op, err)
	}

	s.deleteImages(ctx, logger, product.Images)
	logger.Info("product deleted")
	return nil
}

func (s *productService) deleteImages(ctx context.Context, logger *slog.Logger, urls []string) {
	for _, url := range urls {
		if err := s.images.Delete(ctx, url); err != nil {
			logger.Warn("failed to delete image", slog.String("url", url), sl.Err(err))
		}
	}
}

func compactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
