package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed login attempts, try again later")
)

const (
	maxLoginAttempts   = 5
	loginAttemptWindow = 15 * time.Minute
)

// TokenType distinguishes token audiences. Only staff tokens are issued.
type TokenType string

const TokenTypeAdmin TokenType = "admin"

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	UserID      int       `json:"user_id"`
	RoleID      int       `json:"role_id"`
	Permissions []string  `json:"permissions,omitempty"`
}

type credentialStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetByID(ctx context.Context, id int) (*model.Admin, error)
}

type permissionLookup interface {
	GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error)
}

// AuthService handles staff login, password hashing and JWTs.
type AuthService struct {
	cfg    *config.Config
	rdb    *redis.Client
	admins credentialStore
	roles  permissionLookup
}

// NewAuthService creates a new AuthService. rdb may be nil, which
// disables the failed-login counter.
func NewAuthService(cfg *config.Config, rdb *redis.Client, admins credentialStore, roles permissionLookup) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, admins: admins, roles: roles}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login authenticates a staff user and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.AdminLoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	attemptsKey := config.CacheKey.LoginAttemptsKey(email)

	if s.rdb != nil {
		n, err := s.rdb.Get(ctx, attemptsKey).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("check login attempts: %w", err)
		}
		if n >= maxLoginAttempts {
			return nil, ErrTooManyAttempts
		}
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.recordFailure(ctx, attemptsKey)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(admin.PasswordHash, password); err != nil {
		s.recordFailure(ctx, attemptsKey)
		return nil, err
	}
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, attemptsKey).Err()
	}

	perms, err := s.roles.GetPermissionsByRoleID(ctx, admin.RoleID)
	if err != nil {
		return nil, err
	}
	token, err := s.GenerateAdminToken(admin.ID, admin.RoleID, perms)
	if err != nil {
		return nil, err
	}
	return &model.AdminLoginResponse{Token: token, Admin: *admin, Permissions: perms}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, loginAttemptWindow)
	_, _ = pipe.Exec(ctx)
}

// Me returns the authenticated staff user and its current permissions.
func (s *AuthService) Me(ctx context.Context, adminID int) (*model.AdminLoginResponse, error) {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	perms, err := s.roles.GetPermissionsByRoleID(ctx, admin.RoleID)
	if err != nil {
		return nil, err
	}
	return &model.AdminLoginResponse{Admin: *admin, Permissions: perms}, nil
}

// GenerateAdminToken creates a JWT for an admin with permissions embedded.
func (s *AuthService) GenerateAdminToken(adminID, roleID int, permissions []string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(adminID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeAdmin,
		UserID:      adminID,
		RoleID:      roleID,
		Permissions: permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
