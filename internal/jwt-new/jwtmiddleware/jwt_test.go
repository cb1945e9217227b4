package jwtmiddleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	security "github.com/linemk/clothing-shop/internal/jwt-new"
	"github.com/linemk/clothing-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/clothing-shop/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notAuthorizedBody = `{"success":false,"message":"not authorized"}`

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireSignIn_RejectsUniformly(t *testing.T) {
	issuer := security.NewIssuer("testsecret", time.Hour)
	handler := jwtmiddleware.RequireSignIn(logger.NewDiscard(), issuer)(okHandler())

	expired := security.NewIssuer("testsecret", -time.Minute)
	expiredToken, err := expired.NewToken(&models.User{ID: uuid.New()})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{name: "missing", header: ""},
		{name: "bad format", header: "Authorization", value: "InvalidFormat"},
		{name: "garbage token", header: "Authorization", value: "Bearer invalid.token.value"},
		{name: "expired", header: "Authorization", value: "Bearer " + expiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(handler, tt.header, tt.value)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.JSONEq(t, notAuthorizedBody, rr.Body.String())
		})
	}
}

func TestRequireSignIn_ValidToken(t *testing.T) {
	issuer := security.NewIssuer("testsecret", time.Hour)
	userID := uuid.New()
	tokenStr, err := issuer.NewToken(&models.User{ID: userID, Email: "a@b.c"})
	require.NoError(t, err)

	var got uuid.UUID
	handler := jwtmiddleware.RequireSignIn(logger.NewDiscard(), issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "userID not found", http.StatusInternalServerError)
			return
		}
		got = id
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(handler, "Authorization", "Bearer "+tokenStr)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, userID, got)

	// старый заголовок token тоже принимается
	rr = serve(handler, "token", tokenStr)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireAdmin(t *testing.T) {
	issuer := security.NewIssuer("testsecret", time.Hour)
	log := logger.NewDiscard()
	handler := jwtmiddleware.RequireSignIn(log, issuer)(jwtmiddleware.RequireAdmin(log)(okHandler()))

	userToken, err := issuer.NewToken(&models.User{ID: uuid.New()})
	require.NoError(t, err)
	adminToken, err := issuer.NewAdminToken("admin@shop.vn")
	require.NoError(t, err)

	rr := serve(handler, "Authorization", "Bearer "+userToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, notAuthorizedBody, rr.Body.String())

	rr = serve(handler, "Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestFromContext(t *testing.T) {
	userID := uuid.New()
	ctx := jwtmiddleware.WithIdentity(context.Background(), security.Identity{UserID: userID, Role: security.RoleUser})
	got, ok := jwtmiddleware.FromContext(ctx)
	assert.True(t, ok, "Expected to retrieve userID from context")
	assert.Equal(t, userID, got, "Expected userID to match")

	adminCtx := jwtmiddleware.WithIdentity(context.Background(), security.Identity{Role: security.RoleAdmin})
	_, ok = jwtmiddleware.FromContext(adminCtx)
	assert.False(t, ok)

	_, ok = jwtmiddleware.FromContext(context.Background())
	assert.False(t, ok)
}
