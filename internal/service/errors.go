package service

import (
	"errors"
	"fmt"
)

// Виды ошибок сервисного слоя; транспорт выбирает по ним код ответа
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
)

// Error — ошибка с сообщением, которое можно показать клиенту
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func validationErr(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func unauthorizedErr() error {
	return &Error{Kind: ErrUnauthorized, Message: "not authorized"}
}

func conflictErr(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func upstreamErr(message string) error {
	return &Error{Kind: ErrUpstream, Message: message}
}
