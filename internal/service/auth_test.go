package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/lib/logger"
	"github.com/linemk/clothing-shop/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(users *fakeUserRepo) *service.AuthService {
	return service.NewAuthService(logger.NewDiscard(), users, fakeIssuer{}, "admin@shop.vn", "admin-secret")
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	users := newFakeUserRepo()
	authService := newAuthService(users)
	ctx := context.Background()

	res, err := authService.Register(ctx, service.RegisterInput{
		Name:     "Lan",
		Email:    " Lan@Example.com ",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "lan@example.com", res.User.Email)
	assert.Equal(t, "user-token:"+res.User.ID.String(), res.Token)

	// пароль хранится только в виде bcrypt-хэша
	err = bcrypt.CompareHashAndPassword(res.User.PassHash, []byte("password123"))
	assert.NoError(t, err)

	login, err := authService.Login(ctx, "LAN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	authService := newAuthService(newFakeUserRepo())
	ctx := context.Background()
	in := service.RegisterInput{Name: "Lan", Email: "lan@example.com", Password: "password123"}

	_, err := authService.Register(ctx, in)
	require.NoError(t, err)

	_, err = authService.Register(ctx, in)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	authService := newAuthService(newFakeUserRepo())

	tests := []service.RegisterInput{
		{Name: "Lan", Email: "not-an-email", Password: "password123"},
		{Name: "Lan", Email: "lan@example.com", Password: "short"},
		{Name: "", Email: "lan@example.com", Password: "password123"},
	}
	for _, in := range tests {
		_, err := authService.Register(context.Background(), in)
		assert.ErrorIs(t, err, service.ErrValidation, "input %+v", in)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	users := newFakeUserRepo()
	authService := newAuthService(users)
	ctx := context.Background()

	_, err := authService.Register(ctx, service.RegisterInput{Name: "Lan", Email: "lan@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = authService.Login(ctx, "lan@example.com", "wrongpassword")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = authService.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	users.err = errors.New("db down")
	_, err = authService.Login(ctx, "lan@example.com", "password123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthService_AdminLogin(t *testing.T) {
	authService := newAuthService(newFakeUserRepo())
	ctx := context.Background()

	token, err := authService.AdminLogin(ctx, "Admin@Shop.vn", "admin-secret")
	require.NoError(t, err)
	assert.Equal(t, "admin-token:admin@shop.vn", token)

	_, err = authService.AdminLogin(ctx, "admin@shop.vn", "wrong")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	unconfigured := service.NewAuthService(logger.NewDiscard(), newFakeUserRepo(), fakeIssuer{}, "", "")
	_, err = unconfigured.AdminLogin(ctx, "", "")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	users := newFakeUserRepo()
	authService := newAuthService(users)
	ctx := context.Background()

	res, err := authService.Register(ctx, service.RegisterInput{Name: "Lan", Email: "lan@example.com", Password: "password123", Phone: "0900"})
	require.NoError(t, err)

	updated, err := authService.UpdateProfile(ctx, res.User.ID, service.ProfileUpdate{Address: "12 Hang Bac", Password: "newpassword"})
	require.NoError(t, err)
	assert.Equal(t, "Lan", updated.Name, "empty fields stay unchanged")
	assert.Equal(t, "0900", updated.Phone)
	assert.Equal(t, "12 Hang Bac", updated.Address)

	_, err = authService.Login(ctx, "lan@example.com", "newpassword")
	assert.NoError(t, err)

	_, err = authService.UpdateProfile(ctx, uuid.New(), service.ProfileUpdate{Name: "X"})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = authService.UpdateProfile(ctx, res.User.ID, service.ProfileUpdate{Password: "short"})
	assert.ErrorIs(t, err, service.ErrValidation)
}
