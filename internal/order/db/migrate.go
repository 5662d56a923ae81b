package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"gt-shop/internal/models"
)

// Migrate creates every table the service reads or writes. Idempotent; safe
// to run on every start.
func Migrate(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Order)(nil),
		(*models.StatusChange)(nil),
		(*models.Setting)(nil),
		(*models.RPSItem)(nil),
		(*models.PaymentMethod)(nil),
		(*models.CaptchaChallenge)(nil),
		(*models.KBEntry)(nil),
		(*models.Admin)(nil),
		(*models.ChatMessage)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	if _, err := db.NewCreateIndex().
		Model((*models.StatusChange)(nil)).
		Index("idx_order_status_history_order").
		Column("order_id", "seq").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create history index: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*models.Order)(nil)).
		Index("idx_orders_buyer").
		Column("buyer_uid").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create buyer index: %w", err)
	}

	return nil
}
