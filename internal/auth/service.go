package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pixelcraft/internal/ledger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Config struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type Service struct {
	store *ledger.Store
	cfg   Config
}

// Principal identifies the authenticated user attached to a request.
type Principal struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        Principal `json:"user"`
}

type tokenClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func New(store *ledger.Store, cfg Config) *Service {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 24 * time.Hour
	}
	return &Service{
		store: store,
		cfg:   cfg,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return LoginResult{}, errors.New("username/email/password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return LoginResult{}, fmt.Errorf("hash password: %w", err)
	}
	rec := ledger.UserRecord{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, rec); err != nil {
		return LoginResult{}, err
	}
	return s.issueToken(rec)
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	rec, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	return s.issueToken(rec)
}

// AuthenticateToken validates a bearer token and resolves the principal.
// Validation is purely cryptographic; the user row is not re-read.
func (s *Service) AuthenticateToken(accessToken string) (Principal, error) {
	if strings.TrimSpace(accessToken) == "" {
		return Principal{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(accessToken, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// Lookup re-reads the user row, for endpoints that return the stored profile.
func (s *Service) Lookup(ctx context.Context, userID string) (Principal, error) {
	rec, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: rec.ID, Username: rec.Username, Email: rec.Email}, nil
}

func (s *Service) issueToken(rec ledger.UserRecord) (LoginResult, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)
	claims := tokenClaims{
		Username: rec.Username,
		Email:    rec.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return LoginResult{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        Principal{UserID: rec.ID, Username: rec.Username, Email: rec.Email},
	}, nil
}
