// Package identity verifies bearer tokens and turns them into subjects.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"fincms/internal/config"
	"fincms/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Verifier resolves a bearer token to the subject it was issued for.
type Verifier interface {
	Verify(token string) (model.Subject, error)
}

// Claims are the JWT claims carried by an access token. The subject id is
// the registered "sub" claim.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTProvider issues and verifies HMAC-signed access tokens.
type JWTProvider struct {
	secret []byte
	issuer string
	clock  clockwork.Clock
}

// NewJWTProvider creates a provider from config. A nil clock uses wall time.
func NewJWTProvider(cfg config.JWTConfig, clock clockwork.Clock) *JWTProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JWTProvider{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		clock:  clock,
	}
}

// Issue signs a token for subject valid for ttl.
func (p *JWTProvider) Issue(subject model.Subject, ttl time.Duration) (string, error) {
	now := p.clock.Now()
	claims := Claims{
		Role: subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   subject.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Verify validates the signature, expiry and issuer of token.
func (p *JWTProvider) Verify(token string) (model.Subject, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithTimeFunc(p.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Subject{}, ErrExpiredToken
		}
		return model.Subject{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return model.Subject{}, ErrInvalidToken
	}
	role := claims.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return model.Subject{}, ErrInvalidToken
	}
	return model.Subject{ID: claims.Subject, Role: role}, nil
}
