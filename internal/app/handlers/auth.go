package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/clothing-shop/internal/service"
)

// LoginRequest — запрос входа пользователя или администратора
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest представляет структуру запроса регистрации с тегами валидации
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// RegisterHandler – HTTP-обработчик регистрации, принимает логгер и экземпляр AuthService
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			logger.Info("invalid request", slog.String("reason", err.Error()))
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		res, err := authService.Register(r.Context(), service.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Address:  req.Address,
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusCreated, envelope{"token": res.Token, "user": res.User})
	}
}

// LoginHandler – HTTP-обработчик для аутентификации пользователя
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			logger.Info("invalid request", slog.String("reason", err.Error()))
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		res, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusOK, envelope{"token": res.Token, "user": res.User})
	}
}

// AdminLoginHandler выдаёт токен администратора
func AdminLoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AdminLoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		token, err := authService.AdminLogin(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusOK, envelope{"token": token})
	}
}

func UpdateProfileHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		var req service.ProfileUpdate
		if err := decodeJSON(r, &req); err != nil {
			respondMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		user, err := authService.UpdateProfile(r.Context(), userID, req)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusOK, envelope{"user": user})
	}
}
