package chat_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"gt-shop/internal/chat"
	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/models"
	"gt-shop/internal/order/db"
)

type stubKB struct {
	entries []models.KBEntry
}

func (s *stubKB) KBEntries(_ context.Context) ([]models.KBEntry, error) {
	return s.entries, nil
}

type stubLimiter struct {
	allow bool
}

func (l *stubLimiter) Allow(_ string, _ int, _ time.Duration) bool { return l.allow }

func testEntries() []models.KBEntry {
	return []models.KBEntry{
		{
			ID:       "kb-payment",
			Question: "What payment methods do you accept",
			Answer:   "We accept DANA and GoPay transfers. Upload your proof after paying.",
			Keywords: []string{"payment", "dana", "gopay", "transfer"},
			Category: "payment",
		},
		{
			ID:       "kb-delivery",
			Question: "How long does delivery take",
			Answer:   "Delivery happens in-world within 24 hours after your order is accepted.",
			Keywords: []string{"delivery", "deliver", "how long"},
			Category: "delivery",
		},
	}
}

func newChatFixture(t *testing.T) (*chat.Service, *stubLimiter, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Migrate(context.Background(), bunDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { bunDB.Close() })

	limiter := &stubLimiter{allow: true}
	svc := chat.NewService(bunDB, &stubKB{entries: testEntries()}, limiter, metrics.New("test"), logger.NewLogger())
	return svc, limiter, bunDB
}

func TestRespondMatchesKeywords(t *testing.T) {
	svc, _, _ := newChatFixture(t)

	reply, err := svc.Respond(context.Background(), "uid-1", "", "do you accept dana payment?")

	assert.NoError(t, err)
	assert.Contains(t, reply.Answer, "DANA and GoPay")
	assert.NotEmpty(t, reply.SessionID)
}

func TestRespondFallsBackToPriceDefault(t *testing.T) {
	svc, _, _ := newChatFixture(t)

	reply, err := svc.Respond(context.Background(), "uid-1", "", "what is the price of xyz")

	assert.NoError(t, err)
	assert.Contains(t, reply.Answer, "Diamond Locks start from 35,000 IDR")
}

func TestRespondFallsBackToOrderDefault(t *testing.T) {
	svc, _, _ := newChatFixture(t)

	reply, err := svc.Respond(context.Background(), "uid-1", "", "i want to buy something unusual")

	assert.NoError(t, err)
	assert.Contains(t, reply.Answer, "place an order")
}

func TestRespondHandsOffWhenNothingMatches(t *testing.T) {
	svc, _, _ := newChatFixture(t)

	reply, err := svc.Respond(context.Background(), "uid-1", "", "zzz qqq vvv")

	assert.NoError(t, err)
	assert.Contains(t, reply.Answer, "human agent")
}

func TestRespondPersistsBothSides(t *testing.T) {
	svc, _, _ := newChatFixture(t)

	reply, err := svc.Respond(context.Background(), "uid-1", "", "how long does delivery take?")
	assert.NoError(t, err)

	msgs, err := svc.History(context.Background(), "uid-1", reply.SessionID)
	assert.NoError(t, err)
	if assert.Len(t, msgs, 2) {
		assert.Equal(t, "user", msgs[0].Sender)
		assert.Equal(t, "bot", msgs[1].Sender)
		assert.Equal(t, reply.Answer, msgs[1].Text)
	}
}

func TestRespondKeepsSessionAcrossMessages(t *testing.T) {
	svc, _, _ := newChatFixture(t)
	ctx := context.Background()

	first, err := svc.Respond(ctx, "uid-1", "", "delivery?")
	assert.NoError(t, err)

	second, err := svc.Respond(ctx, "uid-1", first.SessionID, "payment?")
	assert.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	msgs, err := svc.History(ctx, "uid-1", first.SessionID)
	assert.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestHistoryScopedToOwner(t *testing.T) {
	svc, _, _ := newChatFixture(t)

	reply, err := svc.Respond(context.Background(), "uid-1", "", "delivery?")
	assert.NoError(t, err)

	msgs, err := svc.History(context.Background(), "uid-2", reply.SessionID)
	assert.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRespondRejectsEmptyMessage(t *testing.T) {
	svc, _, _ := newChatFixture(t)

	_, err := svc.Respond(context.Background(), "uid-1", "", "   ")

	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestRespondRateLimited(t *testing.T) {
	svc, limiter, _ := newChatFixture(t)
	limiter.allow = false

	_, err := svc.Respond(context.Background(), "uid-1", "", "hello")

	assert.ErrorIs(t, err, chat.ErrRateLimited)
}
