package db_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"gt-shop/internal/models"
	"gt-shop/internal/order/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	// A single connection keeps every query on the same in-memory database
	// and serializes the concurrency tests the way SQLite expects.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Migrate(context.Background(), bunDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func testOrder(status string) models.Order {
	return models.Order{
		OrderID:              "GT-" + uuid.New().String()[:12],
		BuyerUID:             "buyer-1",
		BuyerEmail:           "buyer@example.com",
		Category:             models.CategoryRGT,
		PurchaseType:         "dl",
		World:                "BUYDL",
		GrowID:               "Grower1",
		CustomerName:         "Budi",
		WhatsappNumber:       "+6281234567890",
		Quantity:             2,
		UnitPrice:            35000,
		TotalPrice:           70000,
		PaymentMethod:        "dana",
		PaymentProvider:      "DANA",
		PaymentAccountNumber: "081234567890",
		PaymentAccountName:   "Shop Owner",
		Status:               status,
		CreatedAt:            time.Now().UTC(),
	}
}

func TestCreateOrderWritesFirstHistoryEntry(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(models.StatusPendingConfirmation)
	assert.NoError(t, d.CreateOrder(ctx, o))

	got, err := d.GetOrderByID(ctx, o.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPendingConfirmation, got.Status)

	history, err := d.History(ctx, o.OrderID)
	assert.NoError(t, err)
	if assert.Len(t, history, 1) {
		assert.Equal(t, 1, history[0].Seq)
		assert.Equal(t, models.StatusPendingConfirmation, history[0].Status)
		assert.Equal(t, "Order created", history[0].Note)
	}
}

func TestGetOrderByIDNotFound(t *testing.T) {
	d := setupTestDB(t)

	_, err := d.GetOrderByID(context.Background(), "GT-MISSING")

	assert.ErrorIs(t, err, db.ErrOrderNotFound)
}

func TestListOrdersFilters(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	mine := testOrder(models.StatusPendingConfirmation)
	assert.NoError(t, d.CreateOrder(ctx, mine))

	other := testOrder(models.StatusAwaitingAdminReview)
	other.BuyerUID = "buyer-2"
	assert.NoError(t, d.CreateOrder(ctx, other))

	got, err := d.ListOrders(ctx, db.ListFilter{BuyerUID: "buyer-1"})
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, mine.OrderID, got[0].OrderID)
	}

	got, err = d.ListOrders(ctx, db.ListFilter{Status: models.StatusAwaitingAdminReview})
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = d.ListOrders(ctx, db.ListFilter{})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSubmitProofMovesToReview(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(models.StatusPendingConfirmation)
	assert.NoError(t, d.CreateOrder(ctx, o))

	applied, err := d.SubmitProof(ctx, o.OrderID, "http://localhost/uploads/proofs/p.png", "Payment proof uploaded")
	assert.NoError(t, err)
	assert.True(t, applied)

	got, err := d.GetOrderByID(ctx, o.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingAdminReview, got.Status)
	assert.Equal(t, "http://localhost/uploads/proofs/p.png", got.ProofURL)
}

func TestSubmitProofRejectedOnTerminalOrder(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(models.StatusAccepted)
	assert.NoError(t, d.CreateOrder(ctx, o))

	applied, err := d.SubmitProof(ctx, o.OrderID, "url", "note")
	assert.NoError(t, err)
	assert.False(t, applied)

	got, err := d.GetOrderByID(ctx, o.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.Empty(t, got.ProofURL)
}

func TestApplyTransitionGuardsOnCurrentStatus(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(models.StatusAwaitingAdminReview)
	assert.NoError(t, d.CreateOrder(ctx, o))

	accept := db.Transition{
		From:  models.StatusAwaitingAdminReview,
		To:    models.StatusAccepted,
		Actor: "admin-1",
		Note:  "Order accepted via admin",
	}

	applied, err := d.ApplyTransition(ctx, o.OrderID, accept)
	assert.NoError(t, err)
	assert.True(t, applied)

	// A second identical delivery loses the guard.
	applied, err = d.ApplyTransition(ctx, o.OrderID, accept)
	assert.NoError(t, err)
	assert.False(t, applied)

	got, err := d.GetOrderWithHistory(ctx, o.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Order.Status)
	// Exactly one transition entry on top of the creation entry.
	assert.Len(t, got.StatusHistory, 2)
}

func TestApplyTransitionDeclineRecordsReason(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(models.StatusAwaitingAdminReview)
	assert.NoError(t, d.CreateOrder(ctx, o))

	applied, err := d.ApplyTransition(ctx, o.OrderID, db.Transition{
		From:          models.StatusAwaitingAdminReview,
		To:            models.StatusDeclined,
		Actor:         "123456789",
		Note:          "Order declined: payment not received",
		DeclineReason: "payment not received",
	})
	assert.NoError(t, err)
	assert.True(t, applied)

	got, err := d.GetOrderByID(ctx, o.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, got.Status)
	assert.Equal(t, "payment not received", got.DeclineReason)
}

func TestConcurrentAcceptDeclineOneWins(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(models.StatusAwaitingAdminReview)
	assert.NoError(t, d.CreateOrder(ctx, o))

	transitions := []db.Transition{
		{From: models.StatusAwaitingAdminReview, To: models.StatusAccepted, Actor: "admin-1"},
		{From: models.StatusAwaitingAdminReview, To: models.StatusDeclined, Actor: "admin-2", DeclineReason: "duplicate"},
	}

	results := make([]bool, len(transitions))
	var wg sync.WaitGroup
	for i, tr := range transitions {
		wg.Add(1)
		go func(i int, tr db.Transition) {
			defer wg.Done()
			applied, err := d.ApplyTransition(ctx, o.OrderID, tr)
			assert.NoError(t, err)
			results[i] = applied
		}(i, tr)
	}
	wg.Wait()

	wins := 0
	for _, applied := range results {
		if applied {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one transition must land")

	got, err := d.GetOrderByID(ctx, o.OrderID)
	assert.NoError(t, err)
	assert.True(t, got.Terminal())

	history, err := d.History(ctx, o.OrderID)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, got.Status, history[1].Status)
}

func TestHistoryOrderedBySeq(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	o := testOrder(models.StatusPendingConfirmation)
	assert.NoError(t, d.CreateOrder(ctx, o))

	_, err := d.SubmitProof(ctx, o.OrderID, "url", "Payment proof uploaded")
	assert.NoError(t, err)

	_, err = d.ApplyTransition(ctx, o.OrderID, db.Transition{
		From: models.StatusAwaitingAdminReview,
		To:   models.StatusAccepted,
	})
	assert.NoError(t, err)

	history, err := d.History(ctx, o.OrderID)
	assert.NoError(t, err)
	if assert.Len(t, history, 3) {
		for i, change := range history {
			assert.Equal(t, i+1, change.Seq)
		}
		assert.Equal(t, models.StatusPendingConfirmation, history[0].Status)
		assert.Equal(t, models.StatusAwaitingAdminReview, history[1].Status)
		assert.Equal(t, models.StatusAccepted, history[2].Status)
	}
}
