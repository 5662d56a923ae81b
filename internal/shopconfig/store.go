package shopconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/uptrace/bun"

	"gt-shop/internal/models"
)

// Setting keys.
const (
	KeyWebsiteName = "website_name"
	KeyFeePercent  = "fee_percent"
	KeyCaptchaMode = "captcha_mode"
	KeyPriceDL     = "price.rgt.dl"
	KeyPriceBGL    = "price.rgt.bgl"
	KeyMaxQtyRGT   = "max_quantity.rgt"
	KeyMaxQtyRPS   = "max_quantity.rps"
)

// Captcha modes.
const (
	CaptchaModeManual = "manual"
	CaptchaModeGoogle = "google"
)

// RGT purchase types.
const (
	PurchaseTypeDL  = "dl"
	PurchaseTypeBGL = "bgl"
)

var ErrNotFound = errors.New("config entry not found")

// Store is the admin-editable settings tree: prices, payment methods, captcha
// assets, quantity limits, the knowledge base and the administrator directory.
// Read-mostly; writes come from the admin surface only.
type Store struct {
	Bun *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{Bun: db}
}

// ---------------- SETTINGS ----------------

func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.Bun.NewSelect().
		Model(&setting).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	_, err := s.Bun.NewInsert().
		Model(&setting).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (s *Store) settingInt(ctx context.Context, key string, fallback int64) int64 {
	raw, err := s.Setting(ctx, key)
	if err != nil {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (s *Store) WebsiteName(ctx context.Context) string {
	name, err := s.Setting(ctx, KeyWebsiteName)
	if err != nil || name == "" {
		return "Growtopia Shop"
	}
	return name
}

func (s *Store) FeePercent(ctx context.Context) float64 {
	raw, err := s.Setting(ctx, KeyFeePercent)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (s *Store) CaptchaMode(ctx context.Context) string {
	mode, err := s.Setting(ctx, KeyCaptchaMode)
	if err != nil || mode == "" {
		return CaptchaModeManual
	}
	return mode
}

// MaxQuantity returns the configured quantity ceiling for a category.
func (s *Store) MaxQuantity(ctx context.Context, category string) int {
	key := KeyMaxQtyRGT
	if strings.EqualFold(category, models.CategoryRPS) {
		key = KeyMaxQtyRPS
	}
	return int(s.settingInt(ctx, key, 100))
}

// ---------------- PRICES ----------------

// RGTPrice returns the configured unit price for an RGT purchase type
// (dl or bgl). Zero means not configured.
func (s *Store) RGTPrice(ctx context.Context, purchaseType string) int64 {
	switch strings.ToLower(purchaseType) {
	case PurchaseTypeDL:
		return s.settingInt(ctx, KeyPriceDL, 0)
	case PurchaseTypeBGL:
		return s.settingInt(ctx, KeyPriceBGL, 0)
	default:
		return 0
	}
}

// RPSPrice returns the unit price of a catalog item. Zero means unknown item.
func (s *Store) RPSPrice(ctx context.Context, itemKey string) int64 {
	item, err := s.RPSItem(ctx, itemKey)
	if err != nil {
		return 0
	}
	return item.Price
}

func (s *Store) SetRGTPrice(ctx context.Context, purchaseType string, price int64) error {
	var key string
	switch strings.ToLower(purchaseType) {
	case PurchaseTypeDL:
		key = KeyPriceDL
	case PurchaseTypeBGL:
		key = KeyPriceBGL
	default:
		return fmt.Errorf("unknown purchase type %q", purchaseType)
	}
	if price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return s.SetSetting(ctx, key, strconv.FormatInt(price, 10))
}

// CalculateTotal applies the configured fee percent and rounds to whole IDR.
func (s *Store) CalculateTotal(ctx context.Context, unitPrice int64, quantity int) int64 {
	total := float64(unitPrice) * float64(quantity)
	if fee := s.FeePercent(ctx); fee > 0 {
		total *= 1 + fee/100
	}
	return int64(math.Round(total))
}

// ---------------- RPS ITEMS ----------------

func (s *Store) RPSItem(ctx context.Context, key string) (*models.RPSItem, error) {
	var item models.RPSItem
	err := s.Bun.NewSelect().
		Model(&item).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) RPSItems(ctx context.Context) ([]models.RPSItem, error) {
	var items []models.RPSItem
	err := s.Bun.NewSelect().
		Model(&items).
		Order("key").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertRPSItem(ctx context.Context, item models.RPSItem) error {
	if item.Key == "" || item.Price <= 0 {
		return fmt.Errorf("item key and a positive price are required")
	}
	_, err := s.Bun.NewInsert().
		Model(&item).
		On("CONFLICT (key) DO UPDATE").
		Set("label_en = EXCLUDED.label_en").
		Set("label_id = EXCLUDED.label_id").
		Set("price = EXCLUDED.price").
		Exec(ctx)
	return err
}

func (s *Store) DeleteRPSItem(ctx context.Context, key string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.RPSItem)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

// ---------------- PAYMENT METHODS ----------------

func (s *Store) PaymentMethod(ctx context.Context, key string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := s.Bun.NewSelect().
		Model(&method).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func (s *Store) PaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := s.Bun.NewSelect().
		Model(&methods).
		Order("key").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (s *Store) UpsertPaymentMethod(ctx context.Context, method models.PaymentMethod) error {
	if method.Key == "" || method.AccountNumber == "" {
		return fmt.Errorf("payment method key and account number are required")
	}
	_, err := s.Bun.NewInsert().
		Model(&method).
		On("CONFLICT (key) DO UPDATE").
		Set("provider_label = EXCLUDED.provider_label").
		Set("account_number = EXCLUDED.account_number").
		Set("account_name = EXCLUDED.account_name").
		Set("instructions = EXCLUDED.instructions").
		Set("qr_image_url = EXCLUDED.qr_image_url").
		Exec(ctx)
	return err
}

func (s *Store) DeletePaymentMethod(ctx context.Context, key string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.PaymentMethod)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

// ---------------- CAPTCHA ----------------

func (s *Store) CaptchaChallenge(ctx context.Context, id string) (*models.CaptchaChallenge, error) {
	var challenge models.CaptchaChallenge
	err := s.Bun.NewSelect().
		Model(&challenge).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (s *Store) CaptchaChallenges(ctx context.Context) ([]models.CaptchaChallenge, error) {
	var challenges []models.CaptchaChallenge
	err := s.Bun.NewSelect().
		Model(&challenges).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

func (s *Store) UpsertCaptchaChallenge(ctx context.Context, challenge models.CaptchaChallenge) error {
	_, err := s.Bun.NewInsert().
		Model(&challenge).
		On("CONFLICT (id) DO UPDATE").
		Set("image_url = EXCLUDED.image_url").
		Set("answer_hash = EXCLUDED.answer_hash").
		Exec(ctx)
	return err
}

// ---------------- KNOWLEDGE BASE ----------------

func (s *Store) KBEntries(ctx context.Context) ([]models.KBEntry, error) {
	var entries []models.KBEntry
	err := s.Bun.NewSelect().
		Model(&entries).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) UpsertKBEntry(ctx context.Context, entry models.KBEntry) error {
	_, err := s.Bun.NewInsert().
		Model(&entry).
		On("CONFLICT (id) DO UPDATE").
		Set("question = EXCLUDED.question").
		Set("answer = EXCLUDED.answer").
		Set("keywords = EXCLUDED.keywords").
		Set("category = EXCLUDED.category").
		Exec(ctx)
	return err
}

// ---------------- ADMIN DIRECTORY ----------------

// IsAdminUID reports whether a storefront identity is a flagged admin.
func (s *Store) IsAdminUID(ctx context.Context, uid string) (bool, error) {
	count, err := s.Bun.NewSelect().
		Model((*models.Admin)(nil)).
		Where("uid = ?", uid).
		Where("is_admin = ?", true).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AdminByTelegramID resolves an operator-channel numeric identity against the
// current directory state. Callers must invoke this on every callback rather
// than caching the result.
func (s *Store) AdminByTelegramID(ctx context.Context, telegramID string) (*models.Admin, error) {
	var admin models.Admin
	err := s.Bun.NewSelect().
		Model(&admin).
		Where("telegram_id = ?", telegramID).
		Where("is_admin = ?", true).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *Store) UpsertAdmin(ctx context.Context, admin models.Admin) error {
	_, err := s.Bun.NewInsert().
		Model(&admin).
		On("CONFLICT (uid) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("telegram_id = EXCLUDED.telegram_id").
		Set("is_admin = EXCLUDED.is_admin").
		Exec(ctx)
	return err
}
