package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tabsplit/internal/auth"
	"github.com/mmynk/tabsplit/internal/config"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/middleware"
	"github.com/mmynk/tabsplit/internal/reminder"
	"github.com/mmynk/tabsplit/internal/service"
	"github.com/mmynk/tabsplit/internal/storage/sqlite"
	"github.com/mmynk/tabsplit/pkg/api/apiconnect"
	"github.com/mmynk/tabsplit/pkg/currency"
	"github.com/mmynk/tabsplit/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := logging.SetupWith(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	scheduler, closeScheduler, err := newScheduler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeScheduler()

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	rates, err := currency.ParseRates(cfg.CurrencyRates)
	if err != nil {
		return err
	}

	m := metrics.New()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.BcryptCost)

	public := connect.WithInterceptors(
		m.Interceptor(),
		middleware.LoggingInterceptor(logger),
	)
	protected := connect.WithInterceptors(
		m.Interceptor(),
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(logger),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Connect serves every procedure of a service under its path prefix.
	mount := func(path string, handler http.Handler) {
		r.Handle(path+"*", handler)
	}
	mount(apiconnect.NewAuthServiceHandler(service.NewAuthService(authenticator, jwtManager, logger), public))
	mount(apiconnect.NewGroupServiceHandler(service.NewGroupService(store, scheduler, rates, logger), protected))
	mount(apiconnect.NewSplitServiceHandler(service.NewSplitService(store, scheduler, m, logger), protected))
	mount(apiconnect.NewReminderServiceHandler(service.NewReminderService(store, scheduler, logger), protected))

	dispatcher := reminder.NewDispatcher(scheduler, publisher, cfg.ReminderInterval, logger)
	dispatcher.OnFired(m.ReminderFired)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(r, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Connect server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newScheduler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (reminder.Scheduler, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("Reminders kept in memory - no REDIS_ADDR provided")
		return reminder.NewMemoryScheduler(), func() {}, nil
	}

	s, err := reminder.NewRedisScheduler(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Redis scheduler: %w", err)
	}
	logger.Info("Reminders stored in Redis", "addr", cfg.RedisAddr)
	return s, func() { s.Close() }, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (reminder.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		logger.Info("Reminders logged only - no AMQP_URL provided")
		return reminder.NewLogPublisher(logger), func() {}, nil
	}

	p, err := reminder.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize AMQP publisher: %w", err)
	}
	logger.Info("Reminders published to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return p, func() { p.Close() }, nil
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
