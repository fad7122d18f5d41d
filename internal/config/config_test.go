package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	policyDomain "ledenbeheer/internal/domain/policy"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit)
	assert.Equal(t, DefaultEmailRate, cfg.EmailRate)
	assert.Equal(t, DefaultBulkConcurrency, cfg.BulkConcurrency)
	assert.Equal(t, DefaultDispatchTimeout, cfg.DispatchTimeout)
	assert.Equal(t, DefaultSlowQuery, cfg.SlowQuery)
	assert.Equal(t, DefaultSlowRequest, cfg.SlowRequest)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Len(t, cfg.CSRFKey, 32)
	assert.True(t, cfg.CSRFKeyRandom)
	assert.False(t, cfg.Production())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"VOG_ENV":              "production",
		"VOG_ADDR":             ":9090",
		"VOG_CSRF_KEY":         strings.Repeat("ab", 32),
		"VOG_BULK_CONCURRENCY": "64",
		"VOG_DISPATCH_TIMEOUT": "3s",
		"VOG_LOG_LEVEL":        "debug",
		"VOG_TRUSTED_ORIGINS":  "leden.example.org, admin.example.org ,",
		"VOG_SLOW_QUERY_MS":    "10",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, ":9090", cfg.Addr)
	assert.False(t, cfg.CSRFKeyRandom)
	assert.Equal(t, MaxBulkConcurrency, cfg.BulkConcurrency)
	assert.Equal(t, 3*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"leden.example.org", "admin.example.org"}, cfg.TrustedOrigins)
	assert.Equal(t, 10*time.Millisecond, cfg.SlowQuery)
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"production without csrf key": {"VOG_ENV": "production"},
		"short csrf key":              {"VOG_CSRF_KEY": "abcd"},
		"bad rate":                    {"VOG_RATE_LIMIT": "fast"},
		"negative email rate":         {"VOG_EMAIL_RATE": "-1"},
		"bad timeout":                 {"VOG_DISPATCH_TIMEOUT": "soon"},
		"bad level":                   {"VOG_LOG_LEVEL": "loud"},
		"bad concurrency":             {"VOG_BULK_CONCURRENCY": "four"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(envMap(vars))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Env: "production", LogLevel: slog.LevelInfo}
	cfg.NewLogger(&buf).Info("policy_event", "event", "applied")
	assert.Contains(t, buf.String(), `"msg":"policy_event"`)
}

func TestPolicyFile_RoundTrip(t *testing.T) {
	p := policyDomain.Default()
	p.ExemptCommittees = []int64{3, 9}

	var buf bytes.Buffer
	require.NoError(t, WritePolicy(&buf, p))
	assert.Contains(t, buf.String(), "exempt_commissies:")

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, err := ReadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestParsePolicy_RejectsUnknownKeys(t *testing.T) {
	_, err := ParsePolicy([]byte("from_email: vog@example.org\nexempt_committees: [1]\n"))
	assert.Error(t, err)
}
