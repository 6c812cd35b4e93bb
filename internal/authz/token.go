package authz

import (
	"context"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the request principal, nil when anonymous.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

type PrincipalFinder interface {
	FindPrincipal(ctx context.Context, userID int64) (*Principal, error)
}

// Claims are the HS256 access token claims; Subject holds the user id.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.StandardClaims
}

// TokenResolver turns bearer tokens into principals.
type TokenResolver struct {
	Secret []byte
	Users  PrincipalFinder
}

var errInvalidToken = errors.New("invalid access token")

// Resolve returns nil, nil for an empty header (anonymous request).
func (tr *TokenResolver) Resolve(ctx context.Context, authorization string) (*Principal, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if raw == "" {
		return nil, nil
	}
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return tr.Secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(errInvalidToken, err.Error())
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, errInvalidToken
	}
	return tr.Users.FindPrincipal(ctx, userID)
}

// Sign issues a token for userID. Used by tooling and tests.
func (tr *TokenResolver) Sign(userID int64, expiresAt int64) (string, error) {
	c := Claims{StandardClaims: jwt.StandardClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: expiresAt,
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(tr.Secret)
}
