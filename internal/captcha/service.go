package captcha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/models"
	"gt-shop/internal/shopconfig"
	"gt-shop/internal/utils"
)

var (
	ErrMissingInput    = errors.New("captcha id and answer are required")
	ErrUnknownCaptcha  = errors.New("invalid captcha id")
	ErrInvalidAnswer   = errors.New("invalid captcha answer")
	ErrTooManyAttempts = errors.New("maximum captcha attempts exceeded, request a fresh challenge")
	ErrRateLimited     = errors.New("too many captcha attempts, please try again later")
	ErrInvalidToken    = errors.New("captcha token invalid or expired")
)

const (
	maxAttemptsPerChallenge = 5
	clientAttemptLimit      = 10
	clientAttemptWindow     = 5 * time.Minute
	tokenTTL                = 10 * time.Minute
)

type ConfigReader interface {
	CaptchaMode(ctx context.Context) string
	CaptchaChallenge(ctx context.Context, id string) (*models.CaptchaChallenge, error)
}

type RateLimiter interface {
	Allow(key string, max int, window time.Duration) bool
}

// TokenStore holds captcha tokens and per-challenge attempt counters under
// TTL keys. Backed by Redis in production.
type TokenStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) (int64, error)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a Redis client as the production token store.
func NewRedisStore(client *redis.Client) TokenStore {
	return &redisStore{client: client}
}

func (r *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisStore) Del(ctx context.Context, key string) (int64, error) {
	return r.client.Del(ctx, key).Result()
}

// Service verifies captcha answers and issues short-lived single-use tokens
// the order-creation path redeems server-side. Tokens and per-challenge
// attempt budgets live in the token store under TTL keys.
type Service struct {
	Config  ConfigReader
	Tokens  TokenStore
	Limiter RateLimiter

	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(cfg ConfigReader, tokens TokenStore, limiter RateLimiter, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		Config:  cfg,
		Tokens:  tokens,
		Limiter: limiter,
		metrics: m,
		logger:  log,
	}
}

// Verify checks an answer against a challenge and returns an opaque token on
// success. clientID keys the abuse limiter, not the challenge itself.
func (s *Service) Verify(ctx context.Context, clientID, captchaID, answer string) (string, error) {
	if !s.Limiter.Allow("captcha:"+clientID, clientAttemptLimit, clientAttemptWindow) {
		s.metrics.RateLimited.WithLabelValues("captcha").Inc()
		return "", ErrRateLimited
	}

	if s.Config.CaptchaMode(ctx) == shopconfig.CaptchaModeGoogle {
		// Delegated mode: the provider token is accepted opaquely and
		// re-wrapped so the order path has a uniform token to redeem.
		if answer == "" {
			return "", ErrMissingInput
		}
		return s.issueToken(ctx, "google")
	}

	if captchaID == "" || answer == "" {
		return "", ErrMissingInput
	}

	attemptsKey := fmt.Sprintf("captcha_attempts:%s:%s", clientID, captchaID)
	attempts, err := s.Tokens.Incr(ctx, attemptsKey)
	if err != nil {
		return "", fmt.Errorf("captcha attempt counter: %w", err)
	}
	if attempts == 1 {
		s.Tokens.Expire(ctx, attemptsKey, tokenTTL)
	}
	if attempts > maxAttemptsPerChallenge {
		s.metrics.CaptchaAttempts.WithLabelValues("exhausted").Inc()
		return "", ErrTooManyAttempts
	}

	challenge, err := s.Config.CaptchaChallenge(ctx, captchaID)
	if errors.Is(err, shopconfig.ErrNotFound) {
		return "", ErrUnknownCaptcha
	}
	if err != nil {
		return "", fmt.Errorf("load captcha %s: %w", captchaID, err)
	}

	cleaned := strings.ToLower(strings.TrimSpace(answer))
	if HashAnswer(cleaned) != challenge.AnswerHash {
		s.metrics.CaptchaAttempts.WithLabelValues("failed").Inc()
		return "", ErrInvalidAnswer
	}

	s.Tokens.Del(ctx, attemptsKey)
	s.metrics.CaptchaAttempts.WithLabelValues("passed").Inc()
	return s.issueToken(ctx, captchaID)
}

func (s *Service) issueToken(ctx context.Context, captchaID string) (string, error) {
	token := fmt.Sprintf("%s-%d-%s", captchaID, time.Now().UnixMilli(), utils.RandomBase36(6))
	if err := s.Tokens.Set(ctx, "captcha_token:"+token, "1", tokenTTL); err != nil {
		return "", fmt.Errorf("store captcha token: %w", err)
	}
	return token, nil
}

// Redeem consumes a token. Single-use: the key is deleted on first redeem so
// a replayed token fails.
func (s *Service) Redeem(ctx context.Context, token string) error {
	deleted, err := s.Tokens.Del(ctx, "captcha_token:"+token)
	if err != nil {
		return fmt.Errorf("redeem captcha token: %w", err)
	}
	if deleted == 0 {
		return ErrInvalidToken
	}
	return nil
}
