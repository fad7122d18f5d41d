package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	web "ledenbeheer/internal/adapters/http"
	"ledenbeheer/internal/adapters/storage"
	auditStore "ledenbeheer/internal/adapters/storage/audit"
	complianceStore "ledenbeheer/internal/adapters/storage/compliance"
	policyStore "ledenbeheer/internal/adapters/storage/policy"
	volunteerStore "ledenbeheer/internal/adapters/storage/volunteer"
	"ledenbeheer/internal/config"
	policyDomain "ledenbeheer/internal/domain/policy"
	"ledenbeheer/internal/platform/metrics"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledenbeheer",
	Short: "VOG compliance tracking for association volunteers",
	Long: `ledenbeheer tracks which volunteers need a VOG (certificate of conduct),
where each of them stands in the request lifecycle, and sends reminder emails.

Configuration is read from VOG_* environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(volunteersCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d at %s\n", storage.SchemaVersion, cfg.DBPath)
		return nil
	},
}

// app bundles the resources every subcommand needs.
type app struct {
	db     *sql.DB
	timed  *storage.TimedDB
	stores *web.Stores
	holder *policyDomain.Holder
}

func (a *app) Close() error {
	return a.db.Close()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))
	return cfg, nil
}

// openApp opens the database, applies the schema and loads the policy.
// PRE: cfg came from config.Load
// POST: The caller owns the returned app and must Close it
func openApp(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*app, error) {
	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := storage.InitDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	timed := storage.NewTimedDB(db, m, cfg.SlowQuery)
	stores := &web.Stores{
		VolunteerStore: volunteerStore.NewSQLiteStore(timed),
		RecordStore:    complianceStore.NewSQLiteStore(timed),
		PolicyStore:    policyStore.NewSQLiteStore(timed),
		AuditStore:     auditStore.NewSQLiteStore(timed),
	}

	p, err := loadPolicy(ctx, stores.PolicyStore, cfg.PolicyFile)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &app{db: db, timed: timed, stores: stores, holder: policyDomain.NewHolder(p)}, nil
}

// loadPolicy returns the stored policy. On first start it seeds the store
// from seedFile, or from the built-in default when no file is configured.
func loadPolicy(ctx context.Context, store policyStore.Store, seedFile string) (policyDomain.Policy, error) {
	p, err := store.Load(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return policyDomain.Policy{}, fmt.Errorf("load policy: %w", err)
	}

	p = policyDomain.Default()
	source := "default"
	if seedFile != "" {
		if p, err = config.ReadPolicyFile(seedFile); err != nil {
			return policyDomain.Policy{}, err
		}
		source = seedFile
	}
	p = p.Normalized()
	if err := p.Validate(); err != nil {
		return policyDomain.Policy{}, fmt.Errorf("seed policy from %s: %w", source, err)
	}
	if err := store.Save(ctx, p); err != nil {
		return policyDomain.Policy{}, fmt.Errorf("seed policy: %w", err)
	}
	slog.InfoContext(ctx, "policy_event", "event", "seeded", "source", source)
	return p, nil
}

// newRegistry returns a registry carrying the VOG series plus the Go runtime
// and process collectors.
func newRegistry() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.New(reg)
}
