package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity — проверенная личность владельца токена
type Identity struct {
	UserID uuid.UUID // uuid.Nil у администратора
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Claims — полезная нагрузка токена
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer выпускает и проверяет токены; секрет передаётся при создании
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewToken генерирует JWT-токен для указанного пользователя с заданным временем жизни.
func (i *Issuer) NewToken(user *models.User) (string, error) {
	return i.sign(user.ID.String(), user.Email, RoleUser)
}

// NewAdminToken выпускает токен администратора; sub — email из конфигурации
func (i *Issuer) NewAdminToken(email string) (string, error) {
	return i.sign(email, email, RoleAdmin)
}

func (i *Issuer) sign(subject, email, role string) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	now := i.now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse проверяет подпись и срок действия токена и возвращает личность владельца.
// Любая проблема с токеном приводит к ErrInvalidToken.
func (i *Issuer) Parse(tokenStr string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch claims.Role {
	case RoleAdmin:
		if claims.Subject == "" {
			return Identity{}, fmt.Errorf("%w: empty admin subject", ErrInvalidToken)
		}
		return Identity{Email: claims.Email, Role: RoleAdmin}, nil
	case RoleUser:
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: invalid user id", ErrInvalidToken)
		}
		return Identity{UserID: userID, Email: claims.Email, Role: RoleUser}, nil
	default:
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
}
