package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"contest-service/internal/domain"
)

// UserStore is the slice of the record store the provider needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
}

// Config carries the provider's signing material explicitly; the provider
// never reads process environment itself.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Provider authenticates users and issues/verifies HS256 tokens.
type Provider struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewProvider(users UserStore, cfg Config) *Provider {
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Provider{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewProviderWithClock is test-only for deterministic token lifetimes.
func NewProviderWithClock(users UserStore, cfg Config, now func() time.Time) *Provider {
	p := NewProvider(users, cfg)
	p.now = now
	return p
}

type claims struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Signup registers a new account. Role defaults to NORMAL.
func (p *Provider) Signup(ctx context.Context, name, email, password string, role domain.Role) (int64, error) {
	if name == "" || email == "" || password == "" {
		return 0, domain.Validationf("name, email, and password required")
	}
	if role == "" {
		role = domain.RoleNormal
	}
	if !role.Valid() {
		return 0, domain.Validationf("unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := p.users.CreateUser(ctx, &user); err != nil {
		return 0, err
	}
	return user.ID, nil
}

// Login verifies credentials and returns a signed token.
func (p *Provider) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", domain.Validationf("email and password required")
	}
	user, ok, err := p.users.UserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrBadCredentials
	}

	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: user.ID,
		Name:   user.Name,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the principal it vouches for.
func (p *Provider) Verify(tokenString string) (domain.Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return domain.Principal{}, domain.ErrBadCredentials
	}
	role := domain.Role(c.Role)
	if !role.Valid() {
		return domain.Principal{}, domain.ErrBadCredentials
	}
	return domain.Principal{UserID: c.UserID, Name: c.Name, Role: role}, nil
}
