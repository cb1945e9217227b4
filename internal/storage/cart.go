package storage

import "errors"

// ErrCartConflict — корзину не удалось изменить из-за параллельных записей
var ErrCartConflict = errors.New("cart was modified concurrently")
