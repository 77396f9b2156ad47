package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
)

var _ checkout.Journal = (*Journal)(nil)

// ErrReceiptNotFound is returned by Journal.Find for an unknown reference.
var ErrReceiptNotFound = errors.New("receipt not found")

// Journal records checkout receipts in the checkout_receipts table.
type Journal struct {
	pool *pgxpool.Pool
}

// NewJournal returns a Journal backed by pool.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

const insertReceipt = `
INSERT INTO checkout_receipts
    (reference, gateway, order_id, redirect_url, total, item_count, customer_email, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (reference) DO NOTHING`

// Record stores r. Recording the same reference twice is a no-op.
func (j *Journal) Record(ctx context.Context, r *checkout.Receipt) error {
	_, err := j.pool.Exec(ctx, insertReceipt,
		r.Reference,
		r.Gateway,
		r.OrderID,
		r.RedirectURL,
		r.Total,
		r.ItemCount,
		r.Email,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording receipt %q: %w", r.Reference, err)
	}
	return nil
}

const findReceipt = `
SELECT reference::text, gateway, order_id, redirect_url, total, item_count, customer_email, created_at
FROM checkout_receipts
WHERE reference = $1`

// Find returns the receipt with the given reference.
func (j *Journal) Find(ctx context.Context, reference string) (*checkout.Receipt, error) {
	var r checkout.Receipt
	err := j.pool.QueryRow(ctx, findReceipt, reference).Scan(
		&r.Reference,
		&r.Gateway,
		&r.OrderID,
		&r.RedirectURL,
		&r.Total,
		&r.ItemCount,
		&r.Email,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("finding receipt %q: %w", reference, err)
	}
	return &r, nil
}

const recentReceipts = `
SELECT reference::text, gateway, order_id, redirect_url, total, item_count, customer_email, created_at
FROM checkout_receipts
ORDER BY created_at DESC
LIMIT $1`

// Recent returns up to limit receipts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]checkout.Receipt, error) {
	rows, err := j.pool.Query(ctx, recentReceipts, limit)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	receipts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (checkout.Receipt, error) {
		var r checkout.Receipt
		err := row.Scan(&r.Reference, &r.Gateway, &r.OrderID, &r.RedirectURL, &r.Total, &r.ItemCount, &r.Email, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning receipts: %w", err)
	}
	return receipts, nil
}
