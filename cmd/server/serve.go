package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ledenbeheer/internal/adapters/email"
	web "ledenbeheer/internal/adapters/http"
	"ledenbeheer/internal/adapters/http/middleware"
	"ledenbeheer/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the VOG compliance API.

The schema is applied on start. When no policy is stored yet it is seeded
from VOG_POLICY_FILE, or from the built-in default.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, m := newRegistry()
	a, err := openApp(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer a.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, max(int(cfg.RateLimit)*2, 1))
	go limiter.Run(ctx)

	if cfg.CSRFKeyRandom {
		slog.Warn("csrf_key_random", "hint", "set VOG_CSRF_KEY so tokens survive restarts")
	}

	mux := web.NewMux(a.stores, web.Options{
		Policy:          a.holder,
		Sender:          newSender(cfg),
		Health:          a.timed,
		Metrics:         m,
		Gatherer:        reg,
		CSRFKey:         cfg.CSRFKey,
		SecureCookies:   cfg.Production(),
		TrustedOrigins:  cfg.TrustedOrigins,
		RateLimiter:     limiter,
		SlowRequest:     cfg.SlowRequest,
		BulkConcurrency: cfg.BulkConcurrency,
		DispatchTimeout: cfg.DispatchTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_start", "version", version, "addr", cfg.Addr, "env", cfg.Env, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	slog.Info("server_stop")
	// Covers one reminder dispatch. A throttled bulk batch can take longer
	// than this and is then cut off mid-way; its finished items stay recorded.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DispatchTimeout+10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSender picks Resend when a key is configured and the noop sender
// otherwise, throttled to the configured provider rate.
func newSender(cfg config.Config) email.Sender {
	var s email.Sender
	if cfg.ResendKey != "" {
		s = email.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("email_sender", "provider", "resend")
	} else {
		s = email.NewNoopSender()
		if cfg.Production() {
			slog.Warn("email_sender", "provider", "noop", "hint", "VOG_RESEND_KEY is not set, reminders are not delivered")
		} else {
			slog.Info("email_sender", "provider", "noop")
		}
	}
	return email.NewRateLimitedSender(s, cfg.EmailRate)
}
