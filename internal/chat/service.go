package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/models"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrRateLimited  = errors.New("too many chat messages, slow down")
)

const (
	chatLimit  = 20
	chatWindow = time.Minute

	matchThreshold = 0.3

	handoffReply = "I understand you need help. Let me connect you with a human agent who can provide more detailed assistance. Creating support ticket..."
	priceReply   = "Our prices are competitive and updated regularly. Diamond Locks start from 35,000 IDR. You can see current prices when placing an order. Would you like help with a specific item?"
	orderReply   = "I can help you place an order! Simply select RGT or RPS from the main page, fill out the form, and follow the payment instructions. Do you need help with a specific step?"
)

// KBSource supplies the knowledge-base entries scored against each message.
type KBSource interface {
	KBEntries(ctx context.Context) ([]models.KBEntry, error)
}

// RateLimiter gates per-user message throughput.
type RateLimiter interface {
	Allow(key string, max int, window time.Duration) bool
}

// Reply is the responder's answer plus the session it belongs to.
type Reply struct {
	SessionID string `json:"sessionId"`
	Answer    string `json:"answer"`
}

// Service answers support messages from the knowledge base and logs the
// exchange. Scoring is deliberately shallow keyword matching; anything it
// cannot answer falls through to a human-handoff reply.
type Service struct {
	DB      bun.IDB
	KB      KBSource
	Limiter RateLimiter

	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(idb bun.IDB, kb KBSource, limiter RateLimiter, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		DB:      idb,
		KB:      kb,
		Limiter: limiter,
		metrics: m,
		logger:  log,
	}
}

// Respond scores the message against the knowledge base and returns the best
// answer, persisting both sides of the exchange under the session.
func (s *Service) Respond(ctx context.Context, uid, sessionID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	if !s.Limiter.Allow("chat:"+uid, chatLimit, chatWindow) {
		s.metrics.RateLimited.WithLabelValues("chat").Inc()
		return nil, ErrRateLimited
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	entries, err := s.KB.KBEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	answer := answerFor(message, entries)

	if err := s.appendMessages(ctx, sessionID, uid, message, answer); err != nil {
		// The reply is still useful even if the session log write failed.
		s.logger.Warn("CHAT", fmt.Sprintf("persist session %s: %v", sessionID, err))
	}

	s.metrics.ChatMessages.Inc()
	return &Reply{SessionID: sessionID, Answer: answer}, nil
}

// History returns a session's messages in order.
func (s *Service) History(ctx context.Context, uid, sessionID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.DB.NewSelect().
		Model(&msgs).
		Where("session_id = ?", sessionID).
		Where("uid = ?", uid).
		Order("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return msgs, nil
}

func (s *Service) appendMessages(ctx context.Context, sessionID, uid, userText, botText string) error {
	now := time.Now()
	msgs := []models.ChatMessage{
		{SessionID: sessionID, UID: uid, Sender: "user", Text: userText, Timestamp: now},
		{SessionID: sessionID, UID: uid, Sender: "bot", Text: botText, Timestamp: now},
	}
	_, err := s.DB.NewInsert().Model(&msgs).Exec(ctx)
	return err
}

func answerFor(message string, entries []models.KBEntry) string {
	if best, score := searchKB(message, entries); score > matchThreshold && best != nil {
		return best.Answer
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "price") || strings.Contains(lower, "cost"):
		return priceReply
	case strings.Contains(lower, "order") || strings.Contains(lower, "buy"):
		return orderReply
	default:
		return handoffReply
	}
}

// searchKB scores each entry: 0.2 per keyword contained in the message,
// 0.1 per message word (>2 chars) found inside a question word, 0.3 when the
// entry's answer contains the whole message.
func searchKB(message string, entries []models.KBEntry) (*models.KBEntry, float64) {
	lower := strings.ToLower(message)
	words := strings.Fields(lower)

	var best *models.KBEntry
	bestScore := 0.0

	for i := range entries {
		entry := &entries[i]
		score := 0.0

		for _, kw := range entry.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score += 0.2
			}
		}

		questionWords := strings.Fields(strings.ToLower(entry.Question))
		for _, w := range words {
			if len(w) <= 2 {
				continue
			}
			for _, qw := range questionWords {
				if strings.Contains(qw, w) {
					score += 0.1
					break
				}
			}
		}

		if strings.Contains(strings.ToLower(entry.Answer), lower) {
			score += 0.3
		}

		if score > bestScore {
			bestScore = score
			best = entry
		}
	}

	return best, bestScore
}
