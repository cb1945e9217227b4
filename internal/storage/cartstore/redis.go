package cartstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/storage"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// Store хранит корзины в redis: hash cart:<userID>, поле <productID>:<size>, значение — количество
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Get возвращает корзину пользователя; отсутствующая корзина — пустая
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (models.Cart, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	return decode(fields), nil
}

// Update читает корзину, применяет fn и записывает результат в одной транзакции WATCH/MULTI.
// Ошибка fn прерывает изменение и возвращается как есть.
func (s *Store) Update(ctx context.Context, userID uuid.UUID, fn func(models.Cart) error) (models.Cart, error) {
	key := cartKey(userID)
	var result models.Cart

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("redis hgetall failed: %w", err)
		}
		cart := decode(fields)
		if err := fn(cart); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if !cart.Empty() {
				pipe.HSet(ctx, key, encode(cart))
				if s.ttl > 0 {
					pipe.Expire(ctx, key, s.ttl)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = cart
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, storage.ErrCartConflict
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userID)
}

func fieldKey(productID, size string) string {
	return productID + ":" + size
}

func decode(fields map[string]string) models.Cart {
	cart := models.NewCart()
	for field, raw := range fields {
		productID, size, ok := strings.Cut(field, ":")
		if !ok || productID == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		cart.SetQuantity(productID, size, n)
	}
	return cart
}

func encode(cart models.Cart) map[string]interface{} {
	values := make(map[string]interface{}, len(cart))
	for productID, sizes := range cart {
		for size, n := range sizes {
			values[fieldKey(productID, size)] = n
		}
	}
	return values
}
