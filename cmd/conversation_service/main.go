package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/covertext/smsflow/internal/conversation/app"
	"github.com/covertext/smsflow/internal/conversation/domain"
	"github.com/covertext/smsflow/internal/conversation/provider"
	"github.com/covertext/smsflow/internal/conversation/repository/postgres"
	transporthttp "github.com/covertext/smsflow/internal/conversation/transport/http"
	"github.com/covertext/smsflow/internal/platform/config"
	"github.com/covertext/smsflow/internal/platform/database"
	"github.com/covertext/smsflow/internal/platform/logger"
	"github.com/covertext/smsflow/internal/platform/messagebroker"
)

const (
	serviceName     = "conversation_service"
	shutdownTimeout = 10 * time.Second
	shardBufferSize = 64
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger = appLogger.With("service", serviceName)
	appLogger.Info("Starting service...")

	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"nats_url", cfg.NATSUrl,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"sms_provider", cfg.SMSProvider,
		"server_port", cfg.ServerPort,
		"metrics_port", cfg.MetricsPort,
		"worker_shards", cfg.WorkerShards,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	nc, err := messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	appLogger.Info("NATS connection initialized")

	// Repositories share the pool; transactional calls rebind through the
	// context carried by the TxManager.
	repos := app.ManagerRepos{
		Agencies: postgres.NewPgAgencyRepository(dbPool, appLogger),
		Contacts: postgres.NewPgContactRepository(dbPool, appLogger),
		Policies: postgres.NewPgPolicyRepository(dbPool, appLogger),
		Sessions: postgres.NewPgSessionRepository(dbPool, appLogger),
		Messages: postgres.NewPgMessageLogRepository(dbPool, appLogger),
		Requests: postgres.NewPgRequestRepository(dbPool, appLogger),
		Audits:   postgres.NewPgAuditEventRepository(dbPool, appLogger),
		OptOuts:  postgres.NewPgOptOutRepository(dbPool, appLogger),
	}
	deliveryRepo := postgres.NewPgDeliveryRepository(dbPool, appLogger)
	txManager := postgres.NewTxManager(dbPool)

	smsProvider, err := buildProvider(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize SMS provider", "error", err)
		os.Exit(1)
	}
	appLogger.Info("SMS provider initialized", "provider", smsProvider.Name())

	messenger := app.NewOutboundMessenger(smsProvider, repos.Messages, deliveryRepo, appLogger)

	docBaseURL := strings.TrimRight(cfg.PublicDocumentBaseURL, "/")
	docURL := func(doc *domain.Document) string {
		return fmt.Sprintf("%s/documents/%s", docBaseURL, doc.FileKey)
	}

	manager := app.NewManager(
		app.Config{
			SessionTTL:          time.Duration(cfg.SessionTTLMinutes) * time.Minute,
			MenuResendInterval:  time.Duration(cfg.MenuResendSeconds) * time.Second,
			RateLimitMaxInbound: cfg.RateLimitMaxInbound,
			RateLimitWindow:     time.Duration(cfg.RateLimitWindowMinutes) * time.Minute,
			BlockNoticeInterval: time.Duration(cfg.BlockNoticeIntervalHours) * time.Hour,
		},
		txManager,
		repos,
		messenger,
		docURL,
		appLogger,
	)

	consumer := app.NewConsumer(nc, manager, appLogger, cfg.WorkerShards, shardBufferSize)

	publicKey, err := decodePublicKey(cfg.TelnyxPublicKey)
	if err != nil {
		appLogger.Error("Failed to decode webhook public key", "error", err)
		os.Exit(1)
	}
	if publicKey == nil {
		appLogger.Warn("Webhook signature verification disabled: no public key configured")
	}

	validate := validator.New()
	inboundHandler := transporthttp.NewInboundHandler(repos.Agencies, repos.Messages, nc, publicKey, appLogger, validate)
	statusHandler := transporthttp.NewStatusHandler(deliveryRepo, publicKey, appLogger)
	router := transporthttp.NewRouter(inboundHandler, statusHandler)

	webhookServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("Starting inbound consumer", "subject", app.SubjectInboundReceived, "queue_group", app.QueueGroupConversation)
		return consumer.Run(groupCtx)
	})

	g.Go(func() error {
		appLogger.Info("Starting webhook server", "addr", webhookServer.Addr)
		if err := webhookServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := webhookServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Webhook server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown error", "error", err)
		}
		return groupCtx.Err()
	})

	appLogger.Info("Service components initialized. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case <-groupCtx.Done():
		appLogger.Error("A critical component failed, initiating shutdown")
	}

	appLogger.Info("Attempting graceful shutdown...")
	mainCancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Error during graceful shutdown of components", "error", err)
	}

	appLogger.Info("Service shutdown complete.")
}

// buildProvider selects the outbound SMS provider adapter.
func buildProvider(cfg *config.Config, appLogger *slog.Logger) (provider.MessageProvider, error) {
	switch strings.ToLower(cfg.SMSProvider) {
	case "telnyx":
		if cfg.TelnyxAPIKey == "" {
			return nil, errors.New("telnyx provider selected but APP_TELNYX_API_KEY is empty")
		}
		return provider.NewTelnyxProvider(appLogger, cfg.TelnyxAPIURL, cfg.TelnyxAPIKey, nil), nil
	case "mock":
		return provider.NewMockProvider(appLogger), nil
	default:
		return nil, fmt.Errorf("unknown SMS provider %q", cfg.SMSProvider)
	}
}

// decodePublicKey parses the base64-encoded ed25519 webhook signing key.
// Empty input disables verification.
func decodePublicKey(encoded string) (ed25519.PublicKey, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has wrong length %d", len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
