package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Setting is one key/value pair of the admin-editable settings tree
// (website name, fee percent, RGT prices, quantity limits, captcha mode).
type Setting struct {
	bun.BaseModel `bun:"table:settings"`

	Key   string `bun:"key,pk" json:"key"`
	Value string `bun:"value,notnull" json:"value"`
}

// RPSItem is one entry of the RPS item catalog.
type RPSItem struct {
	bun.BaseModel `bun:"table:rps_items"`

	Key     string `bun:"key,pk" json:"key"`
	LabelEN string `bun:"label_en,notnull" json:"label_en"`
	LabelID string `bun:"label_id,notnull" json:"label_id"`
	Price   int64  `bun:"price,notnull" json:"price"`
}

// PaymentMethod is one entry of the payment-method directory. Orders snapshot
// the account fields at creation; rows here are free to change afterwards.
type PaymentMethod struct {
	bun.BaseModel `bun:"table:payment_methods"`

	Key           string `bun:"key,pk" json:"key"`
	ProviderLabel string `bun:"provider_label,notnull" json:"providerLabel"`
	AccountNumber string `bun:"account_number,notnull" json:"accountNumber"`
	AccountName   string `bun:"account_name,notnull" json:"accountName"`
	Instructions  string `bun:"instructions,nullzero" json:"instructions,omitempty"`
	QRImageURL    string `bun:"qr_image_url,nullzero" json:"qrImageUrl,omitempty"`
}

// CaptchaChallenge holds a challenge image and the hash of its accepted
// answer. The hash is the legacy rolling integer hash, not a cryptographic
// commitment.
type CaptchaChallenge struct {
	bun.BaseModel `bun:"table:captcha_challenges"`

	ID         string `bun:"id,pk" json:"id"`
	ImageURL   string `bun:"image_url,notnull" json:"imageUrl"`
	AnswerHash string `bun:"answer_hash,notnull" json:"-"`
}

// KBEntry is one knowledge-base entry for the chat responder. Static lookup
// data, only mutated through the admin surface.
type KBEntry struct {
	bun.BaseModel `bun:"table:kb_entries"`

	ID       string   `bun:"id,pk" json:"id"`
	Question string   `bun:"question,notnull" json:"question"`
	Answer   string   `bun:"answer,notnull" json:"answer"`
	Keywords []string `bun:"keywords" json:"keywords"`
	Category string   `bun:"category,nullzero" json:"category,omitempty"`
}

// Admin is one entry of the administrator directory. TelegramID is the
// external numeric identity operator replies carry; it is matched against
// this table on every webhook callback, never cached.
type Admin struct {
	bun.BaseModel `bun:"table:admins"`

	UID        string `bun:"uid,pk" json:"uid"`
	Email      string `bun:"email,notnull" json:"email"`
	TelegramID string `bun:"telegram_id,nullzero" json:"telegramId,omitempty"`
	IsAdmin    bool   `bun:"is_admin,notnull" json:"isAdmin"`
}

// ChatMessage is one line of a support-chat session.
type ChatMessage struct {
	bun.BaseModel `bun:"table:chat_messages"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	SessionID string    `bun:"session_id,notnull" json:"sessionId"`
	UID       string    `bun:"uid,notnull" json:"uid"`
	Sender    string    `bun:"sender,notnull" json:"sender"`
	Text      string    `bun:"text,notnull" json:"text"`
	Timestamp time.Time `bun:"timestamp,notnull" json:"timestamp"`
}
