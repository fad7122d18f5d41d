package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when a variable is unset.
const (
	DefaultAddr            = ":8080"
	DefaultDBPath          = "ledenbeheer.db"
	DefaultResendFrom      = "Vrijwilligerscoördinatie <vog@example.org>"
	DefaultRateLimit       = 10.0
	DefaultEmailRate       = 2.0
	DefaultBulkConcurrency = 4
	MaxBulkConcurrency     = 16
	DefaultDispatchTimeout = 15 * time.Second
	DefaultSlowQuery       = 50 * time.Millisecond
	DefaultSlowRequest     = 200 * time.Millisecond
)

// Config is the process configuration, read once at startup.
type Config struct {
	Env             string
	Addr            string
	DBPath          string
	ResendKey       string
	ResendFrom      string
	CSRFKey         []byte
	CSRFKeyRandom   bool
	TrustedOrigins  []string
	RateLimit       float64
	EmailRate       float64
	BulkConcurrency int
	DispatchTimeout time.Duration
	PolicyFile      string
	LogLevel        slog.Level
	SlowQuery       time.Duration
	SlowRequest     time.Duration
}

// Production reports whether the service runs in production mode.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv.
// PRE: getenv is not nil
// POST: Returns a fully defaulted Config, or the first malformed variable as error
func LoadFrom(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Env:        env("VOG_ENV", "development"),
		Addr:       env("VOG_ADDR", DefaultAddr),
		DBPath:     env("VOG_DB_PATH", DefaultDBPath),
		ResendKey:  getenv("VOG_RESEND_KEY"),
		ResendFrom: env("VOG_RESEND_FROM", DefaultResendFrom),
		PolicyFile: getenv("VOG_POLICY_FILE"),
	}

	var err error
	if cfg.RateLimit, err = floatVar(getenv, "VOG_RATE_LIMIT", DefaultRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.EmailRate, err = floatVar(getenv, "VOG_EMAIL_RATE", DefaultEmailRate); err != nil {
		return Config{}, err
	}
	if cfg.BulkConcurrency, err = intVar(getenv, "VOG_BULK_CONCURRENCY", DefaultBulkConcurrency); err != nil {
		return Config{}, err
	}
	cfg.BulkConcurrency = min(max(cfg.BulkConcurrency, 1), MaxBulkConcurrency)

	if cfg.DispatchTimeout, err = durationVar(getenv, "VOG_DISPATCH_TIMEOUT", DefaultDispatchTimeout); err != nil {
		return Config{}, err
	}
	slowQueryMs, err := intVar(getenv, "VOG_SLOW_QUERY_MS", int(DefaultSlowQuery/time.Millisecond))
	if err != nil {
		return Config{}, err
	}
	cfg.SlowQuery = time.Duration(slowQueryMs) * time.Millisecond
	slowRequestMs, err := intVar(getenv, "VOG_SLOW_REQUEST_MS", int(DefaultSlowRequest/time.Millisecond))
	if err != nil {
		return Config{}, err
	}
	cfg.SlowRequest = time.Duration(slowRequestMs) * time.Millisecond

	if err := cfg.LogLevel.UnmarshalText([]byte(env("VOG_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("VOG_LOG_LEVEL: %w", err)
	}

	for _, o := range strings.Split(getenv("VOG_TRUSTED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.TrustedOrigins = append(cfg.TrustedOrigins, o)
		}
	}

	if cfg.CSRFKey, cfg.CSRFKeyRandom, err = loadCSRFKey(getenv("VOG_CSRF_KEY"), cfg.Production()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadCSRFKey decodes the hex-encoded 32-byte CSRF secret. In production the
// key must be set; elsewhere a random key is generated per startup.
func loadCSRFKey(keyHex string, production bool) ([]byte, bool, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, false, fmt.Errorf("VOG_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key, false, nil
	}
	if production {
		return nil, false, fmt.Errorf("VOG_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate CSRF key: %w", err)
	}
	return key, true, nil
}

// NewLogger builds the process logger: JSON in production, text elsewhere.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.Production() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func floatVar(getenv func(string) string, key string, fallback float64) (float64, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s: %q is not a non-negative number", key, raw)
	}
	return v, nil
}

func intVar(getenv func(string) string, key string, fallback int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s: %q is not a non-negative integer", key, raw)
	}
	return v, nil
}

func durationVar(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s: %q is not a positive duration", key, raw)
	}
	return v, nil
}
