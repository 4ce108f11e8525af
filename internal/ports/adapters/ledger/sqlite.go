// Package ledger implements the billing collaborator on SQLite: a wallet
// per user plus an append-only transaction journal.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forPelevin/clipcut/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
    user_id  TEXT PRIMARY KEY,
    balance  INTEGER NOT NULL,
    reserved INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS transactions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    TEXT NOT NULL,
    kind       TEXT NOT NULL,
    amount     INTEGER NOT NULL,
    reason     TEXT,
    created_at TEXT NOT NULL
);`

// Store is a SQLite-backed wallet ledger. New users are seeded with the
// configured starting balance on first access.
type Store struct {
	db              *sql.DB
	startingBalance int64
}

// Open connects to (or creates) the ledger database.
func Open(path string, startingBalance int64) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Store{db: db, startingBalance: startingBalance}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Balance returns the user's spendable balance, seeding a fresh wallet
// when the user is unknown.
func (s *Store) Balance(ctx context.Context, userID string) (int64, error) {
	if err := s.ensureWallet(ctx, userID); err != nil {
		return 0, err
	}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

// Reserve moves amount from the balance into the hold column.
func (s *Store) Reserve(ctx context.Context, userID string, amount int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE wallets SET balance = balance - ?, reserved = reserved + ?
			 WHERE user_id = ? AND balance >= ?`,
			amount, amount, userID, amount)
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("reserve: %w", ports.ErrInsufficientBalance)
		}
		return journal(ctx, tx, userID, "reserve", amount, "")
	})
}

// Charge consumes amount from the user's hold.
func (s *Store) Charge(ctx context.Context, userID string, amount int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE wallets SET reserved = reserved - ?
			 WHERE user_id = ? AND reserved >= ?`,
			amount, userID, amount)
		if err != nil {
			return fmt.Errorf("charge: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return errors.New("charge: exceeds reservation")
		}
		return journal(ctx, tx, userID, "charge", amount, "")
	})
}

// Refund returns amount from the hold back to the spendable balance.
func (s *Store) Refund(ctx context.Context, userID string, amount int64, reason string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE wallets SET reserved = reserved - ?, balance = balance + ?
			 WHERE user_id = ? AND reserved >= ?`,
			amount, amount, userID, amount)
		if err != nil {
			return fmt.Errorf("refund: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return errors.New("refund: exceeds reservation")
		}
		return journal(ctx, tx, userID, "refund", amount, reason)
	})
}

// Credit adds coins to the spendable balance, outside the reservation
// protocol. Used for top-ups.
func (s *Store) Credit(ctx context.Context, userID string, amount int64, reason string) error {
	if err := s.ensureWallet(ctx, userID); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE wallets SET balance = balance + ? WHERE user_id = ?`,
			amount, userID); err != nil {
			return fmt.Errorf("credit: %w", err)
		}
		return journal(ctx, tx, userID, "credit", amount, reason)
	})
}

func (s *Store) ensureWallet(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance, reserved) VALUES (?, ?, 0)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, s.startingBalance)
	if err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func journal(ctx context.Context, tx *sql.Tx, userID, kind string, amount int64, reason string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, kind, amount, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, kind, amount, reason, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("journal %s: %w", kind, err)
	}
	return nil
}
