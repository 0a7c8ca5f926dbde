package admin

import (
	"errors"
	"time"

	"lv-tradesettle/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

var errAdminRequired = apperr.New(apperr.KindForbidden, "admin access required")

type Claims struct {
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Rights   []string `json:"rights,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRight(right string) bool {
	if c.Role == RoleOwner {
		return true
	}
	for _, r := range c.Rights {
		if r == right {
			return true
		}
	}
	return false
}

// TokenIssuer signs and checks admin panel tokens. It uses its own secret so
// a user token can never pass as an admin one.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(u User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		Rights:   u.EffectiveRights(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return s, exp, err
}

func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, "invalid token")
	}
	if !parsed.Valid {
		return nil, apperr.Wrap(apperr.KindUnauthorized, errors.New("token not valid"), "invalid token")
	}
	if claims.Role != RoleAdmin && claims.Role != RoleOwner {
		return nil, errAdminRequired
	}
	return &claims, nil
}
