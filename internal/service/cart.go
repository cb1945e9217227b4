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
)

// CartStore — хранилище корзин; Update выполняет fn атомарно относительно других изменений
type CartStore interface {
	Get(ctx context.Context, userID uuid.UUID) (models.Cart, error)
	Update(ctx context.Context, userID uuid.UUID, fn func(models.Cart) error) (models.Cart, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.CartSummary, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, size string) (*models.CartSummary, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID, size string) (*models.CartSummary, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, size string, quantity int) (*models.CartSummary, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	log         *slog.Logger
	carts       CartStore
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, carts CartStore, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		carts:       carts,
		productRepo: productRepo,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.CartSummary, error) {
	const op = "service.CartService.GetCart"

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart", slog.String("op", op), slog.String("userID", userID.String()), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get cart: %w", op, err)
	}
	return s.summarize(ctx, op, cart)
}

// AddItem добавляет единицу товара в выбранном размере; товар должен существовать и продаваться в этом размере
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, size string) (*models.CartSummary, error) {
	const op = "service.CartService.AddItem"

	size = strings.TrimSpace(size)
	if size == "" {
		return nil, fmt.Errorf("%s: %w", op, validationErr("size is required"))
	}

	if err := s.checkSize(ctx, op, productID, size); err != nil {
		return nil, err
	}

	return s.update(ctx, op, userID, func(c models.Cart) error {
		c.Add(productID.String(), size)
		return nil
	})
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID, size string) (*models.CartSummary, error) {
	const op = "service.CartService.RemoveItem"

	return s.update(ctx, op, userID, func(c models.Cart) error {
		c.Remove(productID.String(), strings.TrimSpace(size))
		return nil
	})
}

// SetQuantity выставляет количество; quantity <= 0 удаляет позицию
func (s *cartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, size string, quantity int) (*models.CartSummary, error) {
	const op = "service.CartService.SetQuantity"

	size = strings.TrimSpace(size)
	if size == "" {
		return nil, fmt.Errorf("%s: %w", op, validationErr("size is required"))
	}

	if quantity > 0 {
		if err := s.checkSize(ctx, op, productID, size); err != nil {
			return nil, err
		}
	}

	return s.update(ctx, op, userID, func(c models.Cart) error {
		c.SetQuantity(productID.String(), size, quantity)
		return nil
	})
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	const op = "service.CartService.Clear"

	if err := s.carts.Delete(ctx, userID); err != nil {
		s.log.Error("failed to clear cart", slog.String("op", op), slog.String("userID", userID.String()), sl.Err(err))
		return fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}
	return nil
}

// checkSize проверяет, что товар существует и продаётся в этом размере
func (s *cartService) checkSize(ctx context.Context, op string, productID uuid.UUID, size string) error {
	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundErr("product not found"))
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.String("productID", productID.String()), sl.Err(err))
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if !product.HasSize(size) {
		return fmt.Errorf("%s: %w", op, validationErr("size %s is not available", size))
	}
	return nil
}

func (s *cartService) update(ctx context.Context, op string, userID uuid.UUID, fn func(models.Cart) error) (*models.CartSummary, error) {
	cart, err := s.carts.Update(ctx, userID, fn)
	if err != nil {
		if errors.Is(err, storage.ErrCartConflict) {
			return nil, fmt.Errorf("%s: %w", op, conflictErr("cart was modified concurrently, please retry"))
		}
		s.log.Error("failed to update cart", slog.String("op", op), slog.String("userID", userID.String()), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to update cart: %w", op, err)
	}
	return s.summarize(ctx, op, cart)
}

func (s *cartService) summarize(ctx context.Context, op string, cart models.Cart) (*models.CartSummary, error) {
	catalog, err := loadCatalog(ctx, s.productRepo, cart)
	if err != nil {
		s.log.Error("failed to load catalog", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to load catalog: %w", op, err)
	}
	summary := models.Summarize(cart, catalog)
	return &summary, nil
}

// loadCatalog читает из хранилища товары, упомянутые в корзине.
// Некорректные идентификаторы пропускаются: такие позиции не попадут в итог.
func loadCatalog(ctx context.Context, productRepo storage.ProductStorage, cart models.Cart) (models.ProductIndex, error) {
	ids := make([]uuid.UUID, 0, len(cart))
	for raw := range cart {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return models.ProductIndex{}, nil
	}
	products, err := productRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return models.NewProductIndex(products), nil
}
