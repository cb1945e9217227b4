package models

import (
	"time"

	"github.com/google/uuid"
)

// User представляет покупателя магазина
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
