package db

import (
	"context"
	"fmt"
)

// Migrate creates the tables the settlement flow reads and writes. Every
// statement is idempotent so it runs on each start.
func Migrate(ctx context.Context, pool Pool) error {
	stmts := []string{
		`create extension if not exists pgcrypto;`,
		`create table if not exists trades (
			id uuid primary key default gen_random_uuid(),
			user_id text not null,
			pair text not null,
			side text not null check (lower(side) in ('buy', 'sell', 'long', 'short', 'buy up', 'buy_up', 'up',
				'buy fall', 'buy_fall', 'fall', 'down')),
			amount numeric not null check (amount > 0),
			leverage int not null default 1 check (leverage >= 1),
			duration_seconds int null,
			entry_price numeric not null check (entry_price > 0),
			exit_price numeric null,
			pnl numeric null,
			pnl_percentage numeric null,
			status text not null default 'open' check (status in ('open', 'closed')),
			outcome text null check (outcome in ('win', 'loss')),
			stop_loss numeric null,
			take_profit numeric null,
			trailing_stop numeric null,
			closed_at timestamptz null,
			created_at timestamptz not null default now()
		);`,
		`create index if not exists trades_user_status_idx on trades (user_id, status, created_at desc);`,
		`create table if not exists portfolio_balances (
			user_id text not null,
			currency text not null,
			balance numeric not null default 0,
			updated_at timestamptz not null default now(),
			primary key (user_id, currency)
		);`,
		`create table if not exists fund_transactions (
			id uuid primary key,
			user_id text not null,
			type text not null,
			amount numeric not null check (amount >= 0),
			currency text not null,
			description text not null default '',
			status text not null,
			trade_id uuid null,
			sequence bigint not null,
			prev_hash bytea null,
			hash bytea not null,
			created_at timestamptz not null default now(),
			unique (user_id, sequence)
		);`,
		`create index if not exists fund_transactions_trade_idx on fund_transactions (trade_id);`,
		`create table if not exists admin_users (
			id serial primary key,
			username text not null unique,
			password_hash text not null,
			role text not null default 'admin' check (role in ('owner', 'admin')),
			rights text[] not null default '{}',
			created_at timestamptz not null default now()
		);`,
	}
	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
