package shopconfig_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"gt-shop/internal/models"
	"gt-shop/internal/order/db"
	"gt-shop/internal/shopconfig"
)

func setupStore(t *testing.T) *shopconfig.Store {
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

	store := shopconfig.NewStore(bunDB)
	if err := store.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}
	return store
}

func TestSeedDefaultsPopulatesCatalog(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.Equal(t, int64(35000), store.RGTPrice(ctx, "dl"))
	assert.Equal(t, int64(70000), store.RGTPrice(ctx, "bgl"))
	assert.Equal(t, int64(50000), store.RPSPrice(ctx, "MPS"))
	assert.Equal(t, int64(150000), store.RPSPrice(ctx, "ZEUS"))
	assert.Equal(t, 100, store.MaxQuantity(ctx, models.CategoryRGT))
	assert.Equal(t, shopconfig.CaptchaModeManual, store.CaptchaMode(ctx))
	assert.Equal(t, "Growtopia Shop", store.WebsiteName(ctx))

	methods, err := store.PaymentMethods(ctx)
	assert.NoError(t, err)
	assert.Len(t, methods, 2)

	entries, err := store.KBEntries(ctx)
	assert.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestSeedDefaultsKeepsOperatorEdits(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.NoError(t, store.SetRGTPrice(ctx, "dl", 40000))
	assert.NoError(t, store.SeedDefaults(ctx))

	assert.Equal(t, int64(40000), store.RGTPrice(ctx, "dl"))
}

func TestSettingRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.NoError(t, store.SetSetting(ctx, shopconfig.KeyWebsiteName, "GT Corner"))
	assert.Equal(t, "GT Corner", store.WebsiteName(ctx))

	_, err := store.Setting(ctx, "no_such_key")
	assert.ErrorIs(t, err, shopconfig.ErrNotFound)
}

func TestSetRGTPriceValidation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.Error(t, store.SetRGTPrice(ctx, "gems", 1000))
	assert.Error(t, store.SetRGTPrice(ctx, "dl", 0))
	assert.Error(t, store.SetRGTPrice(ctx, "dl", -5))
}

func TestCalculateTotalAppliesFee(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.Equal(t, int64(70000), store.CalculateTotal(ctx, 35000, 2))

	assert.NoError(t, store.SetSetting(ctx, shopconfig.KeyFeePercent, "10"))
	assert.Equal(t, int64(77000), store.CalculateTotal(ctx, 35000, 2))

	// 2.5% of 35000 = 875, rounded to whole rupiah.
	assert.NoError(t, store.SetSetting(ctx, shopconfig.KeyFeePercent, "2.5"))
	assert.Equal(t, int64(35875), store.CalculateTotal(ctx, 35000, 1))
}

func TestRPSItemLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	item := models.RPSItem{Key: "FOCUS", LabelEN: "Focused Eyes", LabelID: "Focused Eyes", Price: 30000}
	assert.NoError(t, store.UpsertRPSItem(ctx, item))
	assert.Equal(t, int64(30000), store.RPSPrice(ctx, "FOCUS"))

	item.Price = 32000
	assert.NoError(t, store.UpsertRPSItem(ctx, item))
	assert.Equal(t, int64(32000), store.RPSPrice(ctx, "FOCUS"))

	assert.NoError(t, store.DeleteRPSItem(ctx, "FOCUS"))
	assert.Equal(t, int64(0), store.RPSPrice(ctx, "FOCUS"))
}

func TestPaymentMethodSnapshotFields(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	method, err := store.PaymentMethod(ctx, "dana")
	assert.NoError(t, err)
	assert.Equal(t, "DANA", method.ProviderLabel)
	assert.NotEmpty(t, method.AccountNumber)

	_, err = store.PaymentMethod(ctx, "paypal")
	assert.ErrorIs(t, err, shopconfig.ErrNotFound)
}

func TestCaptchaChallengeRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	challenge := models.CaptchaChallenge{ID: "c1", ImageURL: "/captcha/c1.png", AnswerHash: "12345"}
	assert.NoError(t, store.UpsertCaptchaChallenge(ctx, challenge))

	got, err := store.CaptchaChallenge(ctx, "c1")
	assert.NoError(t, err)
	assert.Equal(t, "12345", got.AnswerHash)

	_, err = store.CaptchaChallenge(ctx, "c2")
	assert.ErrorIs(t, err, shopconfig.ErrNotFound)
}

func TestAdminDirectory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	isAdmin, err := store.IsAdminUID(ctx, "uid-1")
	assert.NoError(t, err)
	assert.False(t, isAdmin)

	assert.NoError(t, store.UpsertAdmin(ctx, models.Admin{
		UID:        "uid-1",
		Email:      "admin@example.com",
		TelegramID: "555",
		IsAdmin:    true,
	}))

	isAdmin, err = store.IsAdminUID(ctx, "uid-1")
	assert.NoError(t, err)
	assert.True(t, isAdmin)

	admin, err := store.AdminByTelegramID(ctx, "555")
	assert.NoError(t, err)
	if assert.NotNil(t, admin) {
		assert.Equal(t, "uid-1", admin.UID)
	}

	// Demotion takes effect on the next lookup.
	assert.NoError(t, store.UpsertAdmin(ctx, models.Admin{
		UID:        "uid-1",
		Email:      "admin@example.com",
		TelegramID: "555",
		IsAdmin:    false,
	}))
	isAdmin, err = store.IsAdminUID(ctx, "uid-1")
	assert.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestKBEntryKeywordsSurviveRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := models.KBEntry{
		ID:       "kb-test",
		Question: "Test question?",
		Answer:   "Test answer.",
		Keywords: []string{"alpha", "beta"},
		Category: "general",
	}
	assert.NoError(t, store.UpsertKBEntry(ctx, entry))

	entries, err := store.KBEntries(ctx)
	assert.NoError(t, err)

	var got *models.KBEntry
	for i := range entries {
		if entries[i].ID == "kb-test" {
			got = &entries[i]
		}
	}
	if assert.NotNil(t, got) {
		assert.Equal(t, []string{"alpha", "beta"}, got.Keywords)
	}
}
