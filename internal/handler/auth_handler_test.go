package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

type fakeAuthSrv struct {
	lastLogin models.LoginRequest
	loginErr  error
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{
		AccessToken: "token",
		ExpiresIn:   3600,
		IssuedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		User:        models.UserInfo{ID: "admin-1", Role: models.RoleAdmin, IsAdmin: true},
	}, nil
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	if userID != "admin-1" {
		return nil, appErrors.ErrNotFound
	}
	return &models.UserInfo{ID: userID, FullName: "مشرف", Role: models.RoleAdmin, IsAdmin: true}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)
	c, rec := newContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "admin@masjid.test", Password: "secret"}, nil)
	c.Request.Header.Set("User-Agent", "field-app")

	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@masjid.test", srv.lastLogin.Email)
	assert.Equal(t, "field-app", srv.lastLogin.UserAgent)
	envelope := decode(t, rec)
	assert.Equal(t, "token", envelope.Data["access_token"])
	user := envelope.Data["user"].(map[string]interface{})
	assert.Equal(t, true, user["is_admin"])
}

func TestAuthHandlerLoginBadPayload(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newContext(http.MethodPost, "/auth/login", "not-an-object", nil)

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials})
	c, rec := newContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "a@b.test", Password: "x"}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newContext(http.MethodGet, "/auth/me", nil, adminClaims)

	h.Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "مشرف", decode(t, rec).Data["full_name"])
}

func TestAuthHandlerMeRequiresToken(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newContext(http.MethodGet, "/auth/me", nil, nil)

	h.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
