package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
	"github.com/linemk/clothing-shop/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer выпускает токены для пользователей и администратора
type TokenIssuer interface {
	NewToken(user *models.User) (string, error)
	NewAdminToken(email string) (string, error)
}

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	AdminLogin(ctx context.Context, email, password string) (string, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*models.User, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// ProfileUpdate — изменяемые поля профиля; пустые поля не меняются
type ProfileUpdate struct {
	Name     string `json:"name"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	log           *slog.Logger
	userRepo      storage.UserStorage
	issuer        TokenIssuer
	adminEmail    string
	adminPassword string
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, issuer TokenIssuer, adminEmail, adminPassword string) *AuthService {
	return &AuthService{
		log:           log,
		userRepo:      userRepo,
		issuer:        issuer,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя; пароль хэшируется через bcrypt, который сам добавляет соль.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	const op = "service.AuthService.Register"
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	logger := a.log.With(slog.String("op", op), slog.String("email", in.Email))

	if err := validateStruct(in); err != nil {
		logger.Warn("invalid registration data", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := a.userRepo.GetUserByEmail(ctx, in.Email); err == nil {
		logger.Info("email already registered")
		return nil, fmt.Errorf("%s: %w", op, validationErr("user already exists"))
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		logger.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Name:     in.Name,
		Email:    in.Email,
		PassHash: passHash,
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, fmt.Errorf("%s: %w", op, validationErr("user already exists"))
		}
		logger.Error("failed to create user", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	token, err := a.issuer.NewToken(user)
	if err != nil {
		logger.Error("failed to generate token", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.String("userID", user.ID.String()))
	return &AuthResult{Token: token, User: user}, nil
}

// Login осуществляет аутентификацию пользователя.
// Неизвестный email и неверный пароль дают одну и ту же ошибку.
func (a *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "service.AuthService.Login"
	email = normalizeEmail(email)
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Info("user not found")
			return nil, fmt.Errorf("%s: %w", op, unauthorizedErr())
		}
		logger.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return nil, fmt.Errorf("%s: %w", op, unauthorizedErr())
	}

	token, err := a.issuer.NewToken(user)
	if err != nil {
		logger.Error("failed to generate token", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.String("userID", user.ID.String()))
	return &AuthResult{Token: token, User: user}, nil
}

// AdminLogin сверяет учётные данные с конфигурацией и выдаёт токен с ролью admin
func (a *AuthService) AdminLogin(ctx context.Context, email, password string) (string, error) {
	const op = "service.AuthService.AdminLogin"
	logger := a.log.With(slog.String("op", op))

	if a.adminEmail == "" || a.adminPassword == "" {
		logger.Warn("admin credentials are not configured")
		return "", fmt.Errorf("%s: %w", op, unauthorizedErr())
	}

	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(normalizeEmail(a.adminEmail))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.adminPassword)) == 1
	if !emailOK || !passOK {
		logger.Warn("invalid admin credentials")
		return "", fmt.Errorf("%s: %w", op, unauthorizedErr())
	}

	token, err := a.issuer.NewAdminToken(normalizeEmail(a.adminEmail))
	if err != nil {
		logger.Error("failed to generate token", sl.Err(err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("admin logged in")
	return token, nil
}

func (a *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	const op = "service.AuthService.UpdateProfile"
	logger := a.log.With(slog.String("op", op), slog.String("userID", userID.String()))

	if err := validateStruct(upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("user not found"))
		}
		logger.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if v := strings.TrimSpace(upd.Name); v != "" {
		user.Name = v
	}
	if v := strings.TrimSpace(upd.Phone); v != "" {
		user.Phone = v
	}
	if v := strings.TrimSpace(upd.Address); v != "" {
		user.Address = v
	}
	if upd.Password != "" {
		passHash, err := bcrypt.GenerateFromPassword([]byte(upd.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash password", sl.Err(err))
			return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
		}
		user.PassHash = passHash
	}

	if err := a.userRepo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("user not found"))
		}
		logger.Error("failed to update user", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to update user: %w", op, err)
	}

	logger.Info("profile updated")
	return user, nil
}
