package order_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gt-shop/internal/models"
	"gt-shop/internal/order"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"081234567890", "+6281234567890"},
		{"81234567890", "+6281234567890"},
		{"6281234567890", "+6281234567890"},
		{"+6281234567890", "+6281234567890"},
		{"0812-3456-7890", "+6281234567890"},
		{"0812 3456 7890", "+6281234567890"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, order.NormalizePhone(tc.in, "62"), "input %q", tc.in)
	}
}

func TestNormalizePhoneIsIdempotent(t *testing.T) {
	once := order.NormalizePhone("081234567890", "62")
	twice := order.NormalizePhone(once, "62")
	assert.Equal(t, once, twice)
}

func TestValidPhone(t *testing.T) {
	assert.True(t, order.ValidPhone("+6281234567890", "62"))
	assert.False(t, order.ValidPhone("+62812345", "62"), "too short")
	assert.False(t, order.ValidPhone("081234567890", "62"), "not normalized")
	assert.False(t, order.ValidPhone("+12025550123", "62"), "wrong country")
}

func TestSanitizeInputStripsAngleBrackets(t *testing.T) {
	assert.Equal(t, "scriptalert(1)/script", order.SanitizeInput("<script>alert(1)</script>"))
	assert.Equal(t, "hello", order.SanitizeInput("  hello  "))
}

func TestValidateRequestNormalizesInPlace(t *testing.T) {
	req := models.OrderRequest{
		Category:       "rgt",
		PurchaseType:   " DL ",
		ItemKey:        "MPS",
		World:          " BUYDL ",
		GrowID:         "Grower1",
		CustomerName:   "Budi",
		WhatsappNumber: "081234567890",
		Quantity:       1,
	}

	err := order.ValidateRequest(&req, order.CatalogInfo{CountryCode: "62", MaxQuantity: 100})

	assert.NoError(t, err)
	assert.Equal(t, "RGT", req.Category)
	assert.Equal(t, "dl", req.PurchaseType)
	assert.Equal(t, "BUYDL", req.World)
	assert.Equal(t, "+6281234567890", req.WhatsappNumber)
	// RGT orders never carry an item key.
	assert.Empty(t, req.ItemKey)
}

func TestValidateRequestCountsRunesNotBytes(t *testing.T) {
	// 30 runes but 60 bytes in UTF-8; must sit inside the 50-character bound.
	req := models.OrderRequest{
		Category:       models.CategoryRGT,
		PurchaseType:   "dl",
		World:          "BUYDL",
		GrowID:         "Grower1",
		CustomerName:   strings.Repeat("é", 30),
		WhatsappNumber: "081234567890",
		Quantity:       1,
	}

	err := order.ValidateRequest(&req, order.CatalogInfo{CountryCode: "62", MaxQuantity: 100})
	assert.NoError(t, err)

	req.CustomerName = strings.Repeat("é", 51)
	err = order.ValidateRequest(&req, order.CatalogInfo{CountryCode: "62", MaxQuantity: 100})

	var verrs *order.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "Customer name")
}

func TestValidateRequestRejectsBadGrowID(t *testing.T) {
	req := models.OrderRequest{
		Category:       models.CategoryRGT,
		PurchaseType:   "dl",
		World:          "BUYDL",
		GrowID:         "not a growid!",
		CustomerName:   "Budi",
		WhatsappNumber: "081234567890",
		Quantity:       1,
	}

	err := order.ValidateRequest(&req, order.CatalogInfo{CountryCode: "62", MaxQuantity: 100})

	var verrs *order.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "GrowID")
}

func TestValidateRequestRPSNeedsKnownItem(t *testing.T) {
	catalog := order.CatalogInfo{
		CountryCode: "62",
		MaxQuantity: 100,
		HasRPSItem:  func(key string) bool { return key == "MPS" },
	}

	req := models.OrderRequest{
		Category:       models.CategoryRPS,
		ItemKey:        "MPS",
		World:          "BUYRPS",
		GrowID:         "Grower1",
		CustomerName:   "Budi",
		WhatsappNumber: "081234567890",
		Quantity:       1,
	}
	assert.NoError(t, order.ValidateRequest(&req, catalog))

	req.ItemKey = "UNKNOWN"
	err := order.ValidateRequest(&req, catalog)
	var verrs *order.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestValidateRequestUnknownCategory(t *testing.T) {
	req := models.OrderRequest{
		Category:       "GEMS",
		World:          "BUY",
		GrowID:         "Grower1",
		CustomerName:   "Budi",
		WhatsappNumber: "081234567890",
		Quantity:       1,
	}

	err := order.ValidateRequest(&req, order.CatalogInfo{CountryCode: "62", MaxQuantity: 100})

	var verrs *order.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "Category")
}
