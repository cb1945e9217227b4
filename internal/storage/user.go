package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/linemk/clothing-shop/internal/domain/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// код postgres для нарушения уникальности
const uniqueViolation = "23505"

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

const userColumns = "id, name, email, pass_hash, phone, address, created_at"

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PassHash, &user.Phone, &user.Address, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// получение уже существующего пользователя; email сравнивается без учёта регистра
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email)
	return scanUser(row)
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, name, email, pass_hash, phone, address)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		user.ID, user.Name, user.Email, user.PassHash, user.Phone, user.Address,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateUser перезаписывает изменяемые поля профиля
func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET name = $1, pass_hash = $2, phone = $3, address = $4 WHERE id = $5",
		user.Name, user.PassHash, user.Phone, user.Address, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
