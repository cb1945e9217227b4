package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/clothing-shop/internal/service"
)

// CartItemRequest — позиция корзины: товар и размер
type CartItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size" validate:"required"`
}

// CartQuantityRequest — новое количество позиции; значение меньше 1 удаляет позицию
type CartQuantityRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Quantity  int       `json:"quantity"`
}

func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.GetCart(r.Context(), userID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"cart": cart})
	}
}

func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		var req CartItemRequest
		if err := decodeJSON(r, &req); err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		cart, err := cartService.AddItem(r.Context(), userID, req.ProductID, req.Size)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"message": "added to cart", "cart": cart})
	}
}

func UpdateCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		var req CartQuantityRequest
		if err := decodeJSON(r, &req); err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		cart, err := cartService.SetQuantity(r.Context(), userID, req.ProductID, req.Size, req.Quantity)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"message": "cart updated", "cart": cart})
	}
}

func RemoveFromCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		var req CartItemRequest
		if err := decodeJSON(r, &req); err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		cart, err := cartService.RemoveItem(r.Context(), userID, req.ProductID, req.Size)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"message": "removed from cart", "cart": cart})
	}
}

func ClearCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		if err := cartService.Clear(r.Context(), userID); err != nil {
			respondError(w, logger, err)
			return
		}
		respondMessage(w, logger, http.StatusOK, "cart cleared")
	}
}

// currentUser достаёт идентификатор покупателя, выставленный JWT middleware.
// Токен администратора покупателя не содержит.
func currentUser(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		log.Info("user identity not found in context")
		respondMessage(w, log, http.StatusUnauthorized, "not authorized")
		return uuid.Nil, false
	}
	return userID, true
}
