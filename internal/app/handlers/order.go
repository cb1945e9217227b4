package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/service"
)

// CreateOrderRequest — оформление заказа из корзины
type CreateOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		var req CreateOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		order, err := orderService.Checkout(r.Context(), userID, req.ShippingAddress, req.PaymentMethod)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusCreated, envelope{"message": "order placed", "order": order})
	}
}

func UserOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UserOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		orders, err := orderService.ListOrders(r.Context(), service.ScopeMine(userID))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"orders": orders})
	}
}

// AllOrdersHandler — все заказы магазина, только для администратора
func AllOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AllOrdersHandler"
		logger := log.With(slog.String("op", op))

		orders, err := orderService.ListOrders(r.Context(), service.ScopeAll())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"orders": orders})
	}
}

func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		orderID, ok := uuidParam(w, r, logger, "orderId")
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		order, err := orderService.SetStatus(r.Context(), orderID, req.Status)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"message": "status updated", "order": order})
	}
}

func DeleteOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteOrderHandler"
		logger := log.With(slog.String("op", op))

		orderID, ok := uuidParam(w, r, logger, "orderId")
		if !ok {
			return
		}

		if err := orderService.DeleteOrder(r.Context(), orderID); err != nil {
			respondError(w, logger, err)
			return
		}
		respondMessage(w, logger, http.StatusOK, "order deleted")
	}
}

// RemoveOrderLineHandler удаляет строку заказа; заказ без строк удаляется целиком
func RemoveOrderLineHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveOrderLineHandler"
		logger := log.With(slog.String("op", op))

		orderID, ok := uuidParam(w, r, logger, "orderId")
		if !ok {
			return
		}
		lineID, ok := uuidParam(w, r, logger, "lineId")
		if !ok {
			return
		}

		order, deleted, err := orderService.RemoveLine(r.Context(), orderID, lineID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		if deleted {
			respondJSON(w, logger, http.StatusOK, envelope{"message": "order deleted", "deleted": true})
			return
		}
		respondJSON(w, logger, http.StatusOK, envelope{"message": "line removed", "deleted": false, "order": order})
	}
}
