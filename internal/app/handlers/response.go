package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
	"github.com/linemk/clothing-shop/internal/service"
)

var validate = validator.New()

// envelope — тело ответа: success плюс данные конкретного обработчика
type envelope map[string]interface{}

func respondJSON(w http.ResponseWriter, log *slog.Logger, status int, body envelope) {
	if _, ok := body["success"]; !ok {
		body["success"] = status < http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", sl.Err(err))
	}
}

func respondMessage(w http.ResponseWriter, log *slog.Logger, status int, message string) {
	respondJSON(w, log, status, envelope{"message": message})
}

// respondError переводит ошибку сервиса в код ответа. Текст внутренних ошибок клиенту не отдаётся.
func respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		log.Error("request failed", sl.Err(err))
		respondMessage(w, log, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(svcErr.Kind, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(svcErr.Kind, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(svcErr.Kind, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(svcErr.Kind, service.ErrConflict):
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	respondMessage(w, log, status, svcErr.Message)
}

// decodeJSON читает тело запроса и проверяет теги validate
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New("invalid field " + verrs[0].Field() + ": failed on " + verrs[0].Tag())
		}
		return errors.New("validation error")
	}
	return nil
}
