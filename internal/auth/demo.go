package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Demo account accepted by DemoAuthenticator.
const (
	DemoEmail    = "admin@example.com"
	DemoPassword = "admin"
	DemoName     = "Administrador"
)

type account struct {
	name string
	hash []byte
}

// DemoAuthenticator checks credentials against a fixed set of accounts
// and issues HS256 tokens.
type DemoAuthenticator struct {
	key      []byte
	ttl      time.Duration
	now      func() time.Time
	accounts map[string]account
}

// Claims is the token payload.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// NewDemoAuthenticator returns an authenticator that knows the demo
// account. cost is the bcrypt cost; values below bcrypt.MinCost use
// bcrypt.DefaultCost.
func NewDemoAuthenticator(signingKey string, ttl time.Duration, cost int) (*DemoAuthenticator, error) {
	if signingKey == "" {
		return nil, errors.New("signing key is empty")
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	a := &DemoAuthenticator{
		key:      []byte(signingKey),
		ttl:      ttl,
		now:      time.Now,
		accounts: make(map[string]account),
	}
	if err := a.AddAccount(DemoEmail, DemoName, DemoPassword, cost); err != nil {
		return nil, err
	}
	return a, nil
}

// AddAccount registers another account.
func (a *DemoAuthenticator) AddAccount(email, name, password string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	a.accounts[normalizeEmail(email)] = account{name: name, hash: hash}
	return nil
}

// Authenticate implements Authenticator.
func (a *DemoAuthenticator) Authenticate(ctx context.Context, creds model.Credentials) (model.Viewer, error) {
	if err := ctx.Err(); err != nil {
		return model.Viewer{}, err
	}
	email := normalizeEmail(creds.Email)
	acc, ok := a.accounts[email]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(creds.Password)) != nil {
		return model.Viewer{}, ErrInvalidCredentials
	}

	now := a.now().UTC()
	claims := Claims{
		Name: acc.name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  email,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return model.Viewer{}, err
	}
	return model.Viewer{Email: email, Name: acc.name, Token: signed}, nil
}

// Verify parses a token issued by this authenticator.
func (a *DemoAuthenticator) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
