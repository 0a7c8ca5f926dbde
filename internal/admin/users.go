package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/db"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

const (
	RightTrades = "trades"
	RightLedger = "ledger"
)

var allRights = []string{RightTrades, RightLedger}

var errInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid credentials")

type User struct {
	ID           int
	Username     string
	PasswordHash string
	Role         string
	Rights       []string
}

// EffectiveRights expands the owner role to every right.
func (u User) EffectiveRights() []string {
	if u.Role == RoleOwner {
		return append([]string(nil), allRights...)
	}
	return u.Rights
}

type UserStore struct {
	pool db.Pool
}

func NewUserStore(pool db.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Authenticate returns the same error for an unknown user and a wrong
// password.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, errInvalidCredentials
	}
	var u User
	err := s.pool.QueryRow(ctx,
		"select id, username, password_hash, role, rights from admin_users where username = $1", username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Rights)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errInvalidCredentials
		}
		return User{}, fmt.Errorf("load admin user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, errInvalidCredentials
	}
	return u, nil
}
