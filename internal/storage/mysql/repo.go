// Package mysql stores the payment attempt ledger.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"staybook/internal/domain"
)

// maxErrLen keeps last_error readable in the ops console.
const maxErrLen = 1024

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	s := *p
	if len(s) > maxErrLen {
		s = s[:maxErrLen]
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects with the driver and pings once.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

func (r *Repo) RecordAttempt(ctx context.Context, a domain.PaymentAttempt) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertAttemptSQL,
		a.SessionID,
		a.BookingID,
		a.Amount,
		a.PaymentIntentID,
		a.Reconciled,
		valStr(a.LastError),
	)
	if err != nil {
		return 0, fmt.Errorf("record attempt %s: %w", a.PaymentIntentID, err)
	}
	return res.LastInsertId()
}

func (r *Repo) ListUnreconciled(ctx context.Context, limit int) ([]domain.PaymentAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, listUnreconciledSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetAttemptByIntent(ctx context.Context, intentID string) (domain.PaymentAttempt, error) {
	a, err := scanAttempt(r.db.QueryRowContext(ctx, getAttemptByIntentSQL, intentID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PaymentAttempt{}, domain.ErrNotFound
	}
	return a, err
}

func (r *Repo) MarkReconciled(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, markReconciledSQL, id)
	return err
}

func (r *Repo) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, markFailedSQL, valStr(&reason), id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	var lastErr sql.NullString
	if err := s.Scan(
		&a.ID,
		&a.SessionID,
		&a.BookingID,
		&a.Amount,
		&a.PaymentIntentID,
		&a.Reconciled,
		&lastErr,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return domain.PaymentAttempt{}, err
	}
	if lastErr.Valid {
		s := lastErr.String
		a.LastError = &s
	}
	return a, nil
}
