package shopconfig

import (
	"context"
	"fmt"

	"gt-shop/internal/models"
)

// SeedDefaults populates the settings tree on first run. Existing values are
// left alone so an operator's edits survive restarts.
func (s *Store) SeedDefaults(ctx context.Context) error {
	defaults := map[string]string{
		KeyWebsiteName: "Growtopia Shop",
		KeyFeePercent:  "0",
		KeyCaptchaMode: CaptchaModeManual,
		KeyPriceDL:     "35000",
		KeyPriceBGL:    "70000",
		KeyMaxQtyRGT:   "100",
		KeyMaxQtyRPS:   "100",
	}

	for key, value := range defaults {
		setting := models.Setting{Key: key, Value: value}
		_, err := s.Bun.NewInsert().
			Model(&setting).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}

	items := []models.RPSItem{
		{Key: "MPS", LabelEN: "Magic Pickaxe Seed", LabelID: "Magic Pickaxe Seed", Price: 50000},
		{Key: "CLOCK", LabelEN: "Clock", LabelID: "Clock", Price: 25000},
		{Key: "RAYMAN", LabelEN: "Rayman's Fist", LabelID: "Rayman's Fist", Price: 100000},
		{Key: "ZEUS", LabelEN: "Zeus Lightning Bolt", LabelID: "Zeus Lightning Bolt", Price: 150000},
	}
	for _, item := range items {
		_, err := s.Bun.NewInsert().
			Model(&item).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("seed rps item %s: %w", item.Key, err)
		}
	}

	methods := []models.PaymentMethod{
		{
			Key:           "dana",
			ProviderLabel: "DANA",
			AccountNumber: "081234567890",
			AccountName:   "GT SHOP",
			Instructions:  "Transfer to DANA number above, then upload proof",
		},
		{
			Key:           "gopay",
			ProviderLabel: "GoPay",
			AccountNumber: "081234567890",
			AccountName:   "GT SHOP",
			Instructions:  "Transfer to GoPay number above, then upload proof",
		},
	}
	for _, method := range methods {
		_, err := s.Bun.NewInsert().
			Model(&method).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("seed payment method %s: %w", method.Key, err)
		}
	}

	entries := []models.KBEntry{
		{
			ID:       "payment-methods",
			Question: "What payment methods do you accept?",
			Answer:   "We accept DANA and GoPay transfers. Select a method at checkout, transfer to the account shown, then upload your proof of payment.",
			Keywords: []string{"payment", "method", "dana", "gopay", "ewallet", "transfer"},
			Category: "payment",
		},
		{
			ID:       "delivery-time",
			Question: "How long does delivery take?",
			Answer:   "Orders are delivered in-game after an admin confirms your payment, usually within a few hours during working hours.",
			Keywords: []string{"delivery", "time", "fast", "how long", "process", "speed"},
			Category: "delivery",
		},
		{
			ID:       "order-status",
			Question: "How can I check my order status?",
			Answer:   "Open your order history to see the current status. You will also be notified once payment is confirmed.",
			Keywords: []string{"order", "status", "check", "track", "progress"},
			Category: "orders",
		},
		{
			ID:       "refund-policy",
			Question: "What is your refund policy?",
			Answer:   "If an order cannot be fulfilled we refund the full amount to the payment account you transferred from.",
			Keywords: []string{"refund", "return", "money back", "cancel", "policy"},
			Category: "payment",
		},
		{
			ID:       "account-safety",
			Question: "Is it safe to order here?",
			Answer:   "We never ask for your password. Delivery happens through an in-game trade in the world you specify.",
			Keywords: []string{"safe", "secure", "password", "hack", "security", "trust"},
			Category: "security",
		},
		{
			ID:       "minimum-order",
			Question: "Is there a minimum order?",
			Answer:   "No minimum order. You can buy a single Diamond Lock or item.",
			Keywords: []string{"minimum", "order", "small", "little", "single"},
			Category: "orders",
		},
	}
	for _, entry := range entries {
		_, err := s.Bun.NewInsert().
			Model(&entry).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("seed kb entry %s: %w", entry.ID, err)
		}
	}

	return nil
}
