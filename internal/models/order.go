package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses. The admin console and the Telegram flow historically used
// Indonesian literals for the two terminal states; those are display labels
// only, everything internal uses this enumeration.
const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusAwaitingAdminReview = "awaiting_admin_review"
	StatusAccepted            = "accepted"
	StatusDeclined            = "declined"
)

const (
	LabelAccepted = "PESANAN SUDAH DI PROSES"
	LabelDeclined = "PESANAN DI TOLAK"
)

// Order categories.
const (
	CategoryRGT = "RGT"
	CategoryRPS = "RPS"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID    string `bun:"order_id,pk" json:"orderId"`
	BuyerUID   string `bun:"buyer_uid,notnull" json:"buyerUID"`
	BuyerEmail string `bun:"buyer_email,notnull" json:"buyerEmail"`

	Category     string `bun:"category,notnull" json:"category"`
	PurchaseType string `bun:"purchase_type,nullzero" json:"purchaseType,omitempty"`
	ItemKey      string `bun:"item_key,nullzero" json:"itemKey,omitempty"`

	World          string `bun:"world,notnull" json:"world"`
	GrowID         string `bun:"grow_id,notnull" json:"growId"`
	CustomerName   string `bun:"customer_name,notnull" json:"customerName"`
	WhatsappNumber string `bun:"whatsapp_number,notnull" json:"whatsappNumber"`

	Quantity   int   `bun:"quantity,notnull" json:"quantity"`
	UnitPrice  int64 `bun:"unit_price,notnull" json:"unitPrice"`
	TotalPrice int64 `bun:"total_price,notnull" json:"totalPrice"`

	PaymentMethod        string `bun:"payment_method,notnull" json:"paymentMethod"`
	PaymentProvider      string `bun:"payment_provider,notnull" json:"-"`
	PaymentAccountNumber string `bun:"payment_account_number,notnull" json:"-"`
	PaymentAccountName   string `bun:"payment_account_name,notnull" json:"-"`

	Notes    string `bun:"notes,nullzero" json:"notes,omitempty"`
	ProofURL string `bun:"proof_url,nullzero" json:"proofUrl,omitempty"`

	Status        string    `bun:"status,notnull" json:"status"`
	DeclineReason string    `bun:"decline_reason,nullzero" json:"declineReason,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"-"`
}

// PaymentTarget is the snapshot of the selected payment method's account
// details captured at order time. Later edits to payment methods never
// touch it.
type PaymentTarget struct {
	Provider      string `json:"provider"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

func (o *Order) PaymentTarget() PaymentTarget {
	return PaymentTarget{
		Provider:      o.PaymentProvider,
		AccountNumber: o.PaymentAccountNumber,
		AccountName:   o.PaymentAccountName,
	}
}

// Terminal reports whether the order reached a final state.
func (o *Order) Terminal() bool {
	return o.Status == StatusAccepted || o.Status == StatusDeclined
}

// StatusLabel renders a status the way buyers and admins see it.
func StatusLabel(status string) string {
	switch status {
	case StatusAccepted:
		return LabelAccepted
	case StatusDeclined:
		return LabelDeclined
	default:
		return status
	}
}

// NormalizeStatus folds the legacy literal labels back into the enumeration.
func NormalizeStatus(status string) string {
	switch status {
	case LabelAccepted:
		return StatusAccepted
	case LabelDeclined:
		return StatusDeclined
	default:
		return status
	}
}

// StatusChange is one append-only audit entry. Rows are never updated,
// removed or reordered; Seq preserves insertion order within an order.
type StatusChange struct {
	bun.BaseModel `bun:"table:order_status_history"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	OrderID   string    `bun:"order_id,notnull" json:"-"`
	Seq       int       `bun:"seq,notnull" json:"-"`
	Status    string    `bun:"status,notnull" json:"status"`
	Timestamp time.Time `bun:"timestamp,notnull" json:"timestamp"`
	Actor     string    `bun:"actor,nullzero" json:"actor,omitempty"`
	Note      string    `bun:"note,nullzero" json:"note,omitempty"`
}

// OrderRequest is the buyer submission payload.
type OrderRequest struct {
	Category       string `json:"category"`
	PurchaseType   string `json:"purchaseType,omitempty"`
	ItemKey        string `json:"itemKey,omitempty"`
	World          string `json:"world"`
	GrowID         string `json:"growId"`
	CustomerName   string `json:"customerName"`
	WhatsappNumber string `json:"whatsappNumber"`
	Quantity       int    `json:"quantity"`
	PaymentMethod  string `json:"paymentMethod"`
	Notes          string `json:"notes,omitempty"`
	CaptchaToken   string `json:"captchaToken"`
}

type OrderResponse struct {
	OrderID    string        `json:"orderId"`
	Status     string        `json:"status"`
	UnitPrice  int64         `json:"unitPrice"`
	TotalPrice int64         `json:"totalPrice"`
	Payment    PaymentTarget `json:"paymentTarget"`
}

// OrderWithHistory bundles an order with its audit trail for reads.
type OrderWithHistory struct {
	Order
	StatusHistory []StatusChange `json:"statusHistory"`
}
