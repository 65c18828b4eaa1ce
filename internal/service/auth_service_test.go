package service

import (
	"context"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeCredentials map[string]*model.Admin

func (f fakeCredentials) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	a, ok := f[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f fakeCredentials) GetByID(_ context.Context, id int) (*model.Admin, error) {
	for _, a := range f {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeRolePermissions map[int][]string

func (f fakeRolePermissions) GetPermissionsByRoleID(_ context.Context, roleID int) ([]string, error) {
	return f[roleID], nil
}

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost}
	svc := NewAuthService(cfg, nil, nil, nil)
	hash, err := svc.HashPassword("Rabat2025!")
	require.NoError(t, err)

	creds := fakeCredentials{
		"direction@example.ma": {ID: 1, Email: "direction@example.ma", Name: "Direction", PasswordHash: hash, RoleID: 1, IsActive: true},
		"ancien@example.ma":    {ID: 2, Email: "ancien@example.ma", Name: "Ancien", PasswordHash: hash, RoleID: 2},
	}
	perms := fakeRolePermissions{1: {string(model.PermissionStudentsRead), string(model.PermissionFeesWrite)}}
	return NewAuthService(cfg, nil, creds, perms)
}

func TestAuth_Login(t *testing.T) {
	svc := newAuthFixture(t)

	res, err := svc.Login(context.Background(), " Direction@Example.MA ", "Rabat2025!")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Admin.ID)
	assert.Equal(t, []string{string(model.PermissionStudentsRead), string(model.PermissionFeesWrite)}, res.Permissions)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAdmin, claims.TokenType)
	assert.Equal(t, 1, claims.UserID)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, res.Permissions, claims.Permissions)
}

func TestAuth_LoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "direction@example.ma", "rabat2025!"},
		{"unknown email", "personne@example.ma", "Rabat2025!"},
		{"inactive account", "ancien@example.ma", "Rabat2025!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAuthFixture(t)
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuth_ValidateTokenRejects(t *testing.T) {
	svc := newAuthFixture(t)

	other := NewAuthService(&config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour}, nil, nil, nil)
	forged, err := other.GenerateAdminToken(1, 1, nil)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.Error(t, err)

	expired := NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: -time.Minute}, nil, nil, nil)
	stale, err := expired.GenerateAdminToken(1, 1, nil)
	require.NoError(t, err)
	_, err = svc.ValidateToken(stale)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.Error(t, err)
}

func TestAuth_Me(t *testing.T) {
	svc := newAuthFixture(t)
	res, err := svc.Me(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, res.Token)
	assert.Equal(t, "Direction", res.Admin.Name)

	_, err = svc.Me(context.Background(), 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
