package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eskan-backend/internal/auth"
	"eskan-backend/internal/config"
	"eskan-backend/internal/database"
	"eskan-backend/internal/handlers"
	"eskan-backend/internal/logging"
	"eskan-backend/internal/mailer"
	"eskan-backend/internal/push"
	"eskan-backend/internal/redis"
	"eskan-backend/internal/search"
	"eskan-backend/internal/services"
	"eskan-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			logrus.WithError(err).Fatal("Failed to load config file")
		}
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Debug("No .env file found")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Sessions live in Redis when configured so that they survive restarts
	// and are shared between replicas.
	var store auth.Store = auth.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisClient, err := redis.Initialize(ctx, cfg.RedisURL, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
		store = redisClient
	} else {
		log.Warn("REDIS_URL not set, sessions are kept in memory")
	}
	sessions := auth.NewSessions(auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry), store)

	hub := websocket.NewHub(log, cfg.CORSOrigins)
	go hub.Run(ctx)

	deliverers := []services.Deliverer{hub}
	if cfg.FirebaseProjectID != "" {
		fcm, err := push.NewFCMSender(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.WithError(err).Warn("Push notifications disabled")
		} else {
			deliverers = append(deliverers, fcm)
		}
	}
	notifier := services.NewNotifier(db, log, deliverers...)
	audit := services.NewAuditRecorder(db, log)

	var mail mailer.Mailer = mailer.NewLogMailer(log)
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.DefaultFromEmail)
	}
	templates := mailer.Templates{FrontendURL: cfg.FrontendURL, SupportEmail: cfg.SupportEmail}

	propertyDeps := services.PropertyDeps{
		Audit:     audit,
		Notifier:  notifier,
		Mailer:    mail,
		Templates: templates,
		Indexer:   search.Noop{},
		Logger:    log,
	}
	if cfg.StorageDriver != "" {
		storage, err := services.NewStorageService(cfg)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize media storage")
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			log.WithError(err).Warn("Failed to ensure media bucket")
		}
		propertyDeps.Media = storage
	}
	if cfg.MeilisearchHost != "" {
		indexer := search.NewMeiliIndexer(cfg.MeilisearchHost, cfg.MeilisearchAPIKey, cfg.MeilisearchIndex)
		if err := indexer.InitIndex(); err != nil {
			log.WithError(err).Warn("Failed to initialize search index")
		}
		propertyDeps.Indexer = indexer
	}

	router := handlers.NewRouter(cfg, handlers.Services{
		Accounts: services.NewAccountService(db, services.AccountDeps{
			Sessions:  sessions,
			Audit:     audit,
			Notifier:  notifier,
			Mailer:    mail,
			Templates: templates,
			ResetTTL:  cfg.PasswordResetTTL,
			Logger:    log,
		}),
		Properties: services.NewPropertyService(db, propertyDeps),
		Catalog: services.NewCatalogService(db, services.CatalogDeps{
			Notifier:  notifier,
			Mailer:    mail,
			Templates: templates,
			Logger:    log,
		}),
		Analytics:     services.NewAnalyticsService(db),
		Visitors:      services.NewVisitorService(db),
		Notifications: services.NewNotificationService(db),
		Transactions:  services.NewTransactionService(db),
		Earnings:      services.NewEarningService(db),
		Hub:           hub,
	}, log)

	serve(ctx, log, &http.Server{Addr: ":" + cfg.Port, Handler: router})
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, log logrus.FieldLogger, srv *http.Server) {
	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
