package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"gt-shop/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

type DB struct {
	Bun *bun.DB
}

// ListFilter narrows ListOrders. Zero values mean "any".
type ListFilter struct {
	BuyerUID string
	Status   string
	Limit    int
}

// Transition describes one requested status change. From guards the
// compare-and-set; the write succeeds only if the order's current status
// still equals From at update time.
type Transition struct {
	From          string
	To            string
	Actor         string
	Note          string
	ProofURL      string
	DeclineReason string
}

// ---------------- ORDERS ----------------

// CreateOrder inserts a new order together with its first status-history
// entry in one transaction.
func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		change := models.StatusChange{
			OrderID:   order.OrderID,
			Seq:       1,
			Status:    order.Status,
			Timestamp: order.CreatedAt,
			Note:      "Order created",
		}
		_, err := tx.NewInsert().Model(&change).Exec(ctx)
		return err
	})
}

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrderWithHistory(ctx context.Context, id string) (*models.OrderWithHistory, error) {
	order, err := d.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := d.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.OrderWithHistory{Order: *order, StatusHistory: history}, nil
}

func (d *DB) ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	var orders []models.Order
	q := d.Bun.NewSelect().Model(&orders).Order("created_at DESC")
	if filter.BuyerUID != "" {
		q = q.Where("buyer_uid = ?", filter.BuyerUID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return orders, nil
}

// ---------------- HISTORY ----------------

// History returns the append-only audit trail in insertion order.
func (d *DB) History(ctx context.Context, orderID string) ([]models.StatusChange, error) {
	var history []models.StatusChange
	err := d.Bun.NewSelect().
		Model(&history).
		Where("order_id = ?", orderID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (d *DB) HistoryCount(ctx context.Context, orderID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.StatusChange)(nil)).
		Where("order_id = ?", orderID).
		Count(ctx)
}

// ---------------- TRANSITIONS ----------------

// ApplyTransition performs the status change as one atomic conditional
// update: the order row is written only if its status still equals t.From.
// Returns false without error when the guard fails — the caller treats that
// as "already processed", not a failure. The history row is appended in the
// same transaction so the audit trail can never drift from the status.
func (d *DB) ApplyTransition(ctx context.Context, orderID string, t Transition) (bool, error) {
	applied := false
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()

		q := tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", t.To).
			Set("updated_at = ?", now).
			Where("order_id = ?", orderID).
			Where("status = ?", t.From)
		if t.ProofURL != "" {
			q = q.Set("proof_url = ?", t.ProofURL)
		}
		if t.DeclineReason != "" {
			q = q.Set("decline_reason = ?", t.DeclineReason)
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		applied = true

		seq, err := tx.NewSelect().
			Model((*models.StatusChange)(nil)).
			Where("order_id = ?", orderID).
			Count(ctx)
		if err != nil {
			return err
		}

		change := models.StatusChange{
			OrderID:   orderID,
			Seq:       seq + 1,
			Status:    t.To,
			Timestamp: now,
			Actor:     t.Actor,
			Note:      t.Note,
		}
		_, err = tx.NewInsert().Model(&change).Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// SubmitProof records the proof URL and moves a non-terminal order to
// awaiting_admin_review. Same conditional-update discipline as
// ApplyTransition, with the guard expressed as "not terminal yet".
func (d *DB) SubmitProof(ctx context.Context, orderID, proofURL, note string) (bool, error) {
	applied := false
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()

		res, err := tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", models.StatusAwaitingAdminReview).
			Set("proof_url = ?", proofURL).
			Set("updated_at = ?", now).
			Where("order_id = ?", orderID).
			Where("status NOT IN (?)", bun.In([]string{models.StatusAccepted, models.StatusDeclined})).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		applied = true

		seq, err := tx.NewSelect().
			Model((*models.StatusChange)(nil)).
			Where("order_id = ?", orderID).
			Count(ctx)
		if err != nil {
			return err
		}

		change := models.StatusChange{
			OrderID:   orderID,
			Seq:       seq + 1,
			Status:    models.StatusAwaitingAdminReview,
			Timestamp: now,
			Note:      note,
		}
		_, err = tx.NewInsert().Model(&change).Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
