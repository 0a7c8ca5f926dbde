package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/db"
	"lv-tradesettle/internal/model"
	"lv-tradesettle/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const maxTransactionsLimit = 500

type Service struct {
	pool db.Pool
	now  func() time.Time
}

func NewService(pool db.Pool) *Service {
	return &Service{pool: pool, now: time.Now}
}

// ApplyPnL adds pnl (which may be negative) to the (user, currency) balance
// and appends the matching fund transaction in the same database
// transaction. The increment happens server-side, so concurrent settlements
// for one user cannot lose updates.
func (s *Service) ApplyPnL(ctx context.Context, userID, currency string, pnl decimal.Decimal, tradeID string) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if userID == "" || currency == "" {
		return decimal.Zero, apperr.New(apperr.KindInvalidInput, "user and currency are required")
	}
	// Postgres keeps microseconds; the hash must survive a round trip.
	now := s.now().UTC().Truncate(time.Microsecond)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback(ctx)

	// Serializes the hash chain (and balance writes) per user.
	if _, err := tx.Exec(ctx, "select pg_advisory_xact_lock(hashtext($1))", userID); err != nil {
		return decimal.Zero, fmt.Errorf("lock user ledger: %w", err)
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `
		insert into portfolio_balances (user_id, currency, balance, updated_at)
		values ($1, $2, $3, $4)
		on conflict (user_id, currency)
		do update set balance = portfolio_balances.balance + excluded.balance, updated_at = excluded.updated_at
		returning balance
	`, userID, currency, pnl, now).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("increment balance: %w", err)
	}

	entry := model.FundTransaction{
		UserID:      userID,
		Type:        TransactionTypeFor(pnl),
		Amount:      pnl.Abs(),
		Currency:    currency,
		Description: describe(pnl, tradeID),
		Status:      types.TransactionStatusCompleted,
		CreatedAt:   now,
	}
	if tradeID != "" {
		entry.TradeID = &tradeID
	}
	if _, err := s.appendTransaction(ctx, tx, entry); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit settlement: %w", err)
	}
	return balance, nil
}

func TransactionTypeFor(pnl decimal.Decimal) types.TransactionType {
	if pnl.IsNegative() {
		return types.TransactionTypeLoss
	}
	return types.TransactionTypeProfit
}

func describe(pnl decimal.Decimal, tradeID string) string {
	kind := "Profit"
	if pnl.IsNegative() {
		kind = "Loss"
	}
	if tradeID == "" {
		return kind + " settlement"
	}
	return kind + " from trade " + tradeID
}

// appendTransaction inserts the next row of the user's hash chain. Rows are
// never updated afterwards, so the hash is computed before the insert.
func (s *Service) appendTransaction(ctx context.Context, tx pgx.Tx, e model.FundTransaction) (model.FundTransaction, error) {
	var prevSeq int64
	var prevHash string
	err := tx.QueryRow(ctx,
		"select sequence, encode(hash, 'hex') from fund_transactions where user_id = $1 order by sequence desc limit 1",
		e.UserID).Scan(&prevSeq, &prevHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return e, fmt.Errorf("read ledger head: %w", err)
	}
	e.ID = uuid.NewString()
	e.Sequence = prevSeq + 1
	e.Hash = computeHash(e, prevHash)

	_, err = tx.Exec(ctx, `
		insert into fund_transactions
			(id, user_id, type, amount, currency, description, status, trade_id, sequence, prev_hash, hash, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, decode(nullif($10, ''), 'hex'), decode($11, 'hex'), $12)
	`, e.ID, e.UserID, string(e.Type), e.Amount, e.Currency, e.Description, string(e.Status), e.TradeID,
		e.Sequence, prevHash, e.Hash, e.CreatedAt)
	if err != nil {
		return e, fmt.Errorf("append fund transaction: %w", err)
	}
	return e, nil
}

func computeHash(e model.FundTransaction, prevHash string) string {
	tradeID := ""
	if e.TradeID != nil {
		tradeID = *e.TradeID
	}
	buf := e.ID + "|" + e.UserID + "|" + string(e.Type) + "|" + e.Amount.String() + "|" + e.Currency + "|" +
		e.Description + "|" + string(e.Status) + "|" + tradeID + "|" + strconv.FormatInt(e.Sequence, 10) + "|" + strconv.FormatInt(e.CreatedAt.UnixNano(), 10) + "|" + prevHash
	sum := sha256.Sum256([]byte(buf))
	return hex.EncodeToString(sum[:])
}

func (s *Service) Balances(ctx context.Context, userID string) ([]model.Balance, error) {
	rows, err := s.pool.Query(ctx,
		"select user_id, currency, balance, updated_at from portfolio_balances where user_id = $1 order by currency", userID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()
	out := make([]model.Balance, 0)
	for rows.Next() {
		var b model.Balance
		if err := rows.Scan(&b.UserID, &b.Currency, &b.Balance, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]model.FundTransaction, error) {
	if limit <= 0 || limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}
	rows, err := s.pool.Query(ctx, `
		select id, user_id, type, amount, currency, description, status, trade_id, sequence, encode(hash, 'hex'), created_at
		from fund_transactions
		where user_id = $1
		order by sequence desc
		limit $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list fund transactions: %w", err)
	}
	defer rows.Close()
	out := make([]model.FundTransaction, 0)
	for rows.Next() {
		var e model.FundTransaction
		var typ, status string
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.Amount, &e.Currency, &e.Description, &status, &e.TradeID,
			&e.Sequence, &e.Hash, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = types.TransactionType(typ)
		e.Status = types.TransactionStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// VerifyChain recomputes the user's hash chain, oldest first, and reports the
// first sequence whose stored hash does not match.
func (s *Service) VerifyChain(ctx context.Context, userID string) (bool, int64, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, type, amount, currency, description, status, trade_id, sequence,
			encode(hash, 'hex'), created_at
		from fund_transactions
		where user_id = $1
		order by sequence asc
	`, userID)
	if err != nil {
		return false, 0, fmt.Errorf("read ledger chain: %w", err)
	}
	defer rows.Close()
	prevHash := ""
	for rows.Next() {
		var e model.FundTransaction
		var typ, status string
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.Amount, &e.Currency, &e.Description, &status, &e.TradeID,
			&e.Sequence, &e.Hash, &e.CreatedAt); err != nil {
			return false, 0, err
		}
		e.Type = types.TransactionType(typ)
		e.Status = types.TransactionStatus(status)
		if computeHash(e, prevHash) != e.Hash {
			return false, e.Sequence, nil
		}
		prevHash = e.Hash
	}
	return true, 0, rows.Err()
}
