package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gt-shop/internal/auth"
	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/models"
	"gt-shop/internal/order/db"
	"gt-shop/internal/utils"
)

// Sentinel errors for the lifecycle taxonomy. Handlers map these onto the
// HTTP error surface.
var (
	ErrAlreadyProcessed   = errors.New("order already processed")
	ErrNotOwner           = errors.New("order belongs to a different buyer")
	ErrEmailNotVerified   = errors.New("email address not verified")
	ErrRateLimited        = errors.New("too many orders, please wait before placing another")
	ErrReasonRequired     = errors.New("a decline reason is required")
	ErrPriceNotConfigured = errors.New("invalid price configuration, please contact admin")
	ErrCaptchaRequired    = errors.New("captcha verification required")
)

// Creation is bounded per buyer identity.
const (
	createLimit  = 5
	createWindow = 5 * time.Minute
)

type DBLayer interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderWithHistory(ctx context.Context, id string) (*models.OrderWithHistory, error)
	ListOrders(ctx context.Context, filter db.ListFilter) ([]models.Order, error)
	ApplyTransition(ctx context.Context, orderID string, t db.Transition) (bool, error)
	SubmitProof(ctx context.Context, orderID, proofURL, note string) (bool, error)
}

// OrderLock fences concurrent review actions on one order id.
type OrderLock interface {
	LockOrder(ctx context.Context, orderID, token string) (bool, error)
	UnlockOrder(ctx context.Context, orderID, token string) error
}

// EventPublisher streams lifecycle events. Publish failures are logged and
// swallowed; the triggering mutation is never rolled back.
type EventPublisher interface {
	PublishOrderCreated(order models.Order) error
	PublishProofUploaded(order models.Order) error
	PublishOrderAccepted(order models.Order) error
	PublishOrderDeclined(order models.Order) error
}

// Notifier alerts the operator channel. Dispatch failures are non-critical.
type Notifier interface {
	NotifyProofUploaded(ctx context.Context, order *models.Order) error
}

// ConfigReader is the slice of the config store the engine needs.
type ConfigReader interface {
	RGTPrice(ctx context.Context, purchaseType string) int64
	RPSPrice(ctx context.Context, itemKey string) int64
	MaxQuantity(ctx context.Context, category string) int
	PaymentMethod(ctx context.Context, key string) (*models.PaymentMethod, error)
	CalculateTotal(ctx context.Context, unitPrice int64, quantity int) int64
}

// CaptchaRedeemer consumes a previously issued captcha token. Tokens are
// single-use; redeeming twice fails.
type CaptchaRedeemer interface {
	Redeem(ctx context.Context, token string) error
}

type RateLimiter interface {
	Allow(key string, max int, window time.Duration) bool
}

// Actor identifies who drove a transition and through which channel.
type Actor struct {
	UID        string
	Email      string
	TelegramID string
	Via        string // "admin" or "telegram"
}

func (a Actor) ref() string {
	if a.TelegramID != "" {
		return a.TelegramID
	}
	return a.UID
}

// OrderService is the lifecycle engine: the one place order status rules
// live, shared by the web handlers and the Telegram webhook.
type OrderService struct {
	DB          DBLayer
	Lock        OrderLock
	Events      EventPublisher
	Notifier    Notifier
	Config      ConfigReader
	Captcha     CaptchaRedeemer
	Limiter     RateLimiter
	CountryCode string

	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewOrderService(dbLayer DBLayer, lock OrderLock, events EventPublisher, notifier Notifier, cfg ConfigReader, captcha CaptchaRedeemer, limiter RateLimiter, countryCode string, m *metrics.Metrics, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:          dbLayer,
		Lock:        lock,
		Events:      events,
		Notifier:    notifier,
		Config:      cfg,
		Captcha:     captcha,
		Limiter:     limiter,
		CountryCode: countryCode,
		metrics:     m,
		logger:      log,
	}
}

// ---------------- CREATE ----------------

// PlaceOrder validates a buyer submission and creates the order in
// pending_confirmation with its first history entry. Prices are computed
// here from the config store; client-supplied totals are never trusted.
func (s *OrderService) PlaceOrder(ctx context.Context, ident auth.Identity, req models.OrderRequest) (*models.OrderResponse, error) {
	if ident.UID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if !ident.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if !s.Limiter.Allow("order:"+ident.UID, createLimit, createWindow) {
		s.metrics.RateLimited.WithLabelValues("order").Inc()
		s.logger.LogSecurity("RATE_LIMIT", fmt.Sprintf("order creation throttled for uid %s", ident.UID))
		return nil, ErrRateLimited
	}

	if req.CaptchaToken == "" {
		return nil, ErrCaptchaRequired
	}
	if err := s.Captcha.Redeem(ctx, req.CaptchaToken); err != nil {
		return nil, fmt.Errorf("captcha token rejected: %w", err)
	}

	catalog := CatalogInfo{
		CountryCode: s.CountryCode,
		MaxQuantity: s.Config.MaxQuantity(ctx, req.Category),
		HasRPSItem:  func(key string) bool { return s.Config.RPSPrice(ctx, key) > 0 },
	}
	if err := ValidateRequest(&req, catalog); err != nil {
		return nil, err
	}

	var unitPrice int64
	switch req.Category {
	case models.CategoryRGT:
		unitPrice = s.Config.RGTPrice(ctx, req.PurchaseType)
	case models.CategoryRPS:
		unitPrice = s.Config.RPSPrice(ctx, req.ItemKey)
	}
	if unitPrice <= 0 {
		return nil, ErrPriceNotConfigured
	}
	totalPrice := s.Config.CalculateTotal(ctx, unitPrice, req.Quantity)

	method, err := s.Config.PaymentMethod(ctx, req.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("payment method %q: %w", req.PaymentMethod, err)
	}

	now := time.Now().UTC()
	o := models.Order{
		OrderID:        utils.GenerateOrderID(),
		BuyerUID:       ident.UID,
		BuyerEmail:     ident.Email,
		Category:       req.Category,
		PurchaseType:   req.PurchaseType,
		ItemKey:        req.ItemKey,
		World:          req.World,
		GrowID:         req.GrowID,
		CustomerName:   req.CustomerName,
		WhatsappNumber: req.WhatsappNumber,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		TotalPrice:     totalPrice,
		PaymentMethod:  method.Key,
		// Snapshot, not a live reference: later method edits must not
		// alter historical orders.
		PaymentProvider:      method.ProviderLabel,
		PaymentAccountNumber: method.AccountNumber,
		PaymentAccountName:   method.AccountName,
		Notes:                req.Notes,
		Status:               models.StatusPendingConfirmation,
		CreatedAt:            now,
	}

	if err := s.DB.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrdersCreated.Inc()
	s.logger.LogOrder("CREATE", o.OrderID, fmt.Sprintf("category=%s total=%d buyer=%s", o.Category, o.TotalPrice, o.BuyerEmail))

	if err := s.Events.PublishOrderCreated(o); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("publish order created %s: %v", o.OrderID, err))
	}

	return &models.OrderResponse{
		OrderID:    o.OrderID,
		Status:     o.Status,
		UnitPrice:  o.UnitPrice,
		TotalPrice: o.TotalPrice,
		Payment:    o.PaymentTarget(),
	}, nil
}

// ---------------- READS ----------------

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.DB.GetOrderByID(ctx, id)
}

func (s *OrderService) GetOrderWithHistory(ctx context.Context, id string) (*models.OrderWithHistory, error) {
	return s.DB.GetOrderWithHistory(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, filter db.ListFilter) ([]models.Order, error) {
	return s.DB.ListOrders(ctx, filter)
}

// ---------------- SUBMIT PROOF ----------------

// SubmitProof attaches the uploaded payment proof and moves the order to
// awaiting_admin_review, then alerts the operator channel. The notification
// is best-effort: a dispatch failure never rolls the transition back.
func (s *OrderService) SubmitProof(ctx context.Context, ident auth.Identity, orderID, proofURL string) (*models.Order, error) {
	if ident.UID == "" {
		return nil, auth.ErrUnauthenticated
	}

	existing, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.BuyerUID != ident.UID {
		s.logger.LogSecurity("PROOF_OWNER", fmt.Sprintf("uid %s tried to attach proof to order %s owned by %s", ident.UID, orderID, existing.BuyerUID))
		return nil, ErrNotOwner
	}

	applied, err := s.DB.SubmitProof(ctx, orderID, proofURL, "Payment proof uploaded")
	if err != nil {
		return nil, fmt.Errorf("submit proof: %w", err)
	}
	if !applied {
		s.metrics.OrderTransitions.WithLabelValues("proof", "rejected").Inc()
		return nil, ErrAlreadyProcessed
	}
	s.metrics.OrderTransitions.WithLabelValues("proof", "applied").Inc()
	s.logger.LogOrder("PROOF", orderID, "proof uploaded, awaiting admin review")

	updated, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifyProofUploaded(ctx, updated); err != nil {
			s.logger.Error("TELEGRAM", fmt.Sprintf("notify proof uploaded %s: %v", orderID, err))
		}
	}
	if err := s.Events.PublishProofUploaded(*updated); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("publish proof uploaded %s: %v", orderID, err))
	}

	return updated, nil
}

// ---------------- ACCEPT / DECLINE ----------------

// Accept moves an order under review to the terminal accepted state. The
// guard is a single compare-and-set on the status column: under duplicate
// delivery of the same operator action exactly one write lands, the other
// gets ErrAlreadyProcessed and must treat it as a benign no-op.
func (s *OrderService) Accept(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	return s.review(ctx, actor, orderID, db.Transition{
		From:  models.StatusAwaitingAdminReview,
		To:    models.StatusAccepted,
		Actor: actor.ref(),
		Note:  "Order accepted via " + actor.Via,
	})
}

// Decline mirrors Accept and additionally records the non-empty reason.
func (s *OrderService) Decline(ctx context.Context, actor Actor, orderID, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.review(ctx, actor, orderID, db.Transition{
		From:          models.StatusAwaitingAdminReview,
		To:            models.StatusDeclined,
		Actor:         actor.ref(),
		Note:          "Order declined: " + reason,
		DeclineReason: reason,
	})
}

func (s *OrderService) review(ctx context.Context, actor Actor, orderID string, t db.Transition) (*models.Order, error) {
	// Existence check first so a bad order id surfaces as not-found rather
	// than "already processed".
	if _, err := s.DB.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}

	lockToken := utils.RandomBase36(8)
	if s.Lock != nil {
		locked, err := s.Lock.LockOrder(ctx, orderID, lockToken)
		if err != nil {
			s.logger.Error("REDIS", fmt.Sprintf("lock order %s: %v", orderID, err))
			// The CAS below still protects correctness; carry on.
		} else if !locked {
			return nil, ErrAlreadyProcessed
		} else {
			defer func() {
				if err := s.Lock.UnlockOrder(ctx, orderID, lockToken); err != nil {
					s.logger.Error("REDIS", fmt.Sprintf("unlock order %s: %v", orderID, err))
				}
			}()
		}
	}

	applied, err := s.DB.ApplyTransition(ctx, orderID, t)
	if err != nil {
		return nil, fmt.Errorf("transition %s -> %s: %w", t.From, t.To, err)
	}
	if !applied {
		s.metrics.OrderTransitions.WithLabelValues(t.To, "rejected").Inc()
		return nil, ErrAlreadyProcessed
	}
	s.metrics.OrderTransitions.WithLabelValues(t.To, "applied").Inc()
	s.logger.LogOrder(t.To, orderID, fmt.Sprintf("by %s via %s", t.Actor, actor.Via))

	updated, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var pubErr error
	if t.To == models.StatusAccepted {
		pubErr = s.Events.PublishOrderAccepted(*updated)
	} else {
		pubErr = s.Events.PublishOrderDeclined(*updated)
	}
	if pubErr != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("publish %s %s: %v", t.To, orderID, pubErr))
	}

	return updated, nil
}
