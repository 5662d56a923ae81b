package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	adminapi "gt-shop/internal/admin/api"
	"gt-shop/internal/auth"
	"gt-shop/internal/captcha"
	captchaapi "gt-shop/internal/captcha/api"
	"gt-shop/internal/chat"
	chatapi "gt-shop/internal/chat/api"
	"gt-shop/internal/config"
	"gt-shop/internal/kafka"
	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/order"
	orderapi "gt-shop/internal/order/api"
	"gt-shop/internal/order/db"
	orderredis "gt-shop/internal/order/redis"
	"gt-shop/internal/ratelimit"
	"gt-shop/internal/shopconfig"
	"gt-shop/internal/storage"
	"gt-shop/internal/telegram"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("connect to postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if err := db.Migrate(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("run migrations: %v", err))
	}

	// --- Config store + defaults ---
	store := shopconfig.NewStore(bunDB)
	if err := store.SeedDefaults(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("seed defaults: %v", err))
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("connect to redis: %v", err))
	}
	defer redisClient.Close()

	// --- Ambient pieces ---
	m := metrics.New("gtshop")
	limiter := ratelimit.New()
	proofs := storage.NewProofStore(cfg.Shop.UploadDir, cfg.Shop.PublicBaseURL)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
		OrderCreated:  cfg.Kafka.Topics.OrderCreated,
		ProofUploaded: cfg.Kafka.Topics.ProofUploaded,
		OrderAccepted: cfg.Kafka.Topics.OrderAccepted,
		OrderDeclined: cfg.Kafka.Topics.OrderDeclined,
	}, cfg.Kafka.MockMode || !cfg.Kafka.Enabled)
	defer producer.Close()

	// --- Telegram ---
	var sender telegram.Sender = telegram.DiscardSender{}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			log.Fatal("TELEGRAM", fmt.Sprintf("init bot: %v", err))
		}
		sender = bot
		log.Info("TELEGRAM", "bot authorized as @"+bot.Self.UserName)
	} else {
		log.Warn("TELEGRAM", "bot disabled, notifications are dropped")
	}
	notifier := telegram.NewNotifier(sender, cfg.Telegram.AdminChatID, m, log)

	// --- Auth ---
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("init oidc verifier: %v", err))
	}

	// --- Services ---
	dbLayer := &db.DB{Bun: bunDB}
	orderLock := orderredis.NewRedis(redisClient)
	captchaSvc := captcha.NewService(store, captcha.NewRedisStore(redisClient), limiter, m, log)
	engine := order.NewOrderService(dbLayer, orderLock, producer, notifier, store, captchaSvc, limiter, cfg.Shop.CountryCode, m, log)
	chatSvc := chat.NewService(bunDB, store, limiter, m, log)

	orderHandler := &orderapi.Handler{Engine: engine, Proofs: proofs, Notifier: notifier, Admins: store, Logger: log}
	captchaHandler := &captchaapi.Handler{Service: captchaSvc, Store: store}
	chatHandler := &chatapi.Handler{Service: chatSvc}
	adminHandler := &adminapi.Handler{Engine: engine, Store: store, Proofs: proofs, Notifier: notifier, Logger: log}
	webhook := telegram.NewWebhookHandler(engine, store, notifier, m, log)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	// Stored proofs and payment QR codes.
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Shop.UploadDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	// Telegram pushes updates here; auth is the admin directory check inside.
	r.Post("/webhook/telegram", webhook.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Captcha precedes login in the order flow, so it stays public.
		r.Get("/captcha", captchaHandler.Challenges)
		r.Post("/captcha/verify", captchaHandler.Verify)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))

			r.Post("/orders", orderHandler.CreateOrder)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{orderId}", orderHandler.GetOrder)
			r.Post("/orders/{orderId}/proof", orderHandler.UploadProof)
			r.Post("/notify", orderHandler.Notify)

			r.Post("/chat", chatHandler.SendMessage)
			r.Get("/chat/{sessionId}", chatHandler.History)

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminHandler.RequireAdmin)

				r.Get("/orders", adminHandler.ListOrders)
				r.Post("/orders/{orderId}/accept", adminHandler.AcceptOrder)
				r.Post("/orders/{orderId}/decline", adminHandler.DeclineOrder)

				r.Put("/config", adminHandler.UpdateSetting)
				r.Put("/config/prices", adminHandler.UpdateRGTPrice)

				r.Post("/payment-methods", adminHandler.UpsertPaymentMethod)
				r.Delete("/payment-methods/{key}", adminHandler.DeletePaymentMethod)
				r.Post("/rps-items", adminHandler.UpsertRPSItem)
				r.Delete("/rps-items/{key}", adminHandler.DeleteRPSItem)
				r.Post("/kb", adminHandler.UpsertKBEntry)
				r.Post("/admins", adminHandler.UpsertAdmin)
			})
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "shop service listening on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("http server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("SERVER", fmt.Sprintf("forced shutdown: %v", err))
	}
	log.Info("SERVER", "server exited gracefully")
}

// requestLogger feeds the access log through the category logger.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", ww.Status()), time.Since(start).String())
		})
	}
}
