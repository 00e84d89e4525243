package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/z-chat/internal/config"
	"github.com/zhouzirui/z-chat/internal/handler"
	"github.com/zhouzirui/z-chat/internal/logging"
	"github.com/zhouzirui/z-chat/internal/metrics"
	"github.com/zhouzirui/z-chat/internal/service/ai"
	"github.com/zhouzirui/z-chat/internal/service/history"
	"github.com/zhouzirui/z-chat/internal/service/reply"
)

type serverFlags struct {
	addr      string
	logLevel  string
	jsonLogs  bool
	noMetrics bool
	rulesOnly bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &serverFlags{}

	cmd := &cobra.Command{
		Use:           "z-chat-api",
		Short:         "Reply server for the z-chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Setup(os.Stderr, flags.logLevel, flags.jsonLogs); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, flags); err != nil {
				log.Error().Err(err).Msg("server exited")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address, overrides PORT")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	cmd.Flags().BoolVar(&flags.jsonLogs, "json-logs", false, "emit JSON log lines instead of console output")
	cmd.Flags().BoolVar(&flags.noMetrics, "no-metrics", false, "do not serve /metrics")
	cmd.Flags().BoolVar(&flags.rulesOnly, "rules-only", false, "answer with the rule-based responder even when Ark is configured")
	return cmd
}

func run(ctx context.Context, flags *serverFlags) error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}

	store, closeStore, err := newHistoryStore(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer closeStore()

	var m *metrics.Metrics
	opts := []reply.Option{reply.WithLogger(log.Logger.With().Str("component", "reply").Logger())}
	if !flags.noMetrics {
		m = metrics.New()
		opts = append(opts, reply.WithObserver(m))
	}

	switch {
	case flags.rulesOnly:
		log.Info().Msg("rule-based replies forced by flag")
	case cfg.AI.Enabled():
		aiService, err := ai.NewService(ctx, cfg.AI, log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize AI service, continuing with rule-based replies")
		} else {
			opts = append(opts, reply.WithPrimary(aiService))
			log.Info().Str("model", cfg.AI.Model).Msg("AI service initialized")
		}
	default:
		log.Info().Msg("Ark credentials not configured, using rule-based replies")
	}

	router := handler.NewRouter(reply.NewService(store, opts...), m, log.Logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", cfg.Server.Addr).Msg("z-chat api listening")
	return runServer(ctx, srv)
}

func newHistoryStore(ctx context.Context, cfg config.HistoryConfig) (history.Store, func(), error) {
	if !cfg.UseRedis() {
		log.Info().Int("limit", cfg.Limit).Msg("keeping history in memory")
		return history.NewMemoryStore(cfg.Limit), func() {}, nil
	}

	store := history.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		history.WithPrefix(cfg.KeyPrefix),
		history.WithTTL(cfg.TTL),
		history.WithLimit(cfg.Limit),
	)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		return nil, nil, errors.Wrapf(err, "failed to reach redis at %s", cfg.RedisAddr)
	}

	log.Info().Str("addr", cfg.RedisAddr).Str("prefix", cfg.KeyPrefix).Msg("keeping history in redis")
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis history store")
		}
	}, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
