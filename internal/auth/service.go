package auth

import (
	"errors"
	"strings"
	"time"

	"lv-tradesettle/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = apperr.New(apperr.KindUnauthorized, "invalid token")

// userClaims carries the role claim only so it can be refused: admin panel
// tokens have one, user tokens never do.
type userClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service verifies the bearer tokens issued by the account service. Tokens
// are HMAC-signed RegisteredClaims whose subject is the user id.
type Service struct {
	issuer string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{issuer: issuer, secret: secret, ttl: ttl, now: time.Now}
}

// SignToken mints a user token with the same claims ParseToken expects.
func (s *Service) SignToken(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id required")
	}
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &userClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnauthorized, err, "invalid token")
	}
	claims, ok := parsed.Claims.(*userClaims)
	if !ok || !parsed.Valid {
		return "", errInvalidToken
	}
	if claims.Role != "" {
		return "", errInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}
