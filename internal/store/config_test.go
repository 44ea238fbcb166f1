package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	t.Setenv("TRADES_FILE", "")

	cfg, err := ParseConfig([]byte("watch:\n  path: data/trades.csv\n"))
	require.NoError(t, err)

	assert.Equal(t, FormatAuto, cfg.Watch.Format)
	assert.Equal(t, FormatCSV, cfg.ResolvedFormat())
	assert.Equal(t, ',', cfg.Delimiter())
	assert.Equal(t, []string{"########"}, cfg.Watch.NullTokens)
	assert.Equal(t, 60*time.Second, cfg.RefreshInterval())
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "/api", cfg.Server.APIPrefix)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.True(t, cfg.WebSocketEnabled())
	assert.Equal(t, "/ws/trades", cfg.WebSocket.Path)
	assert.True(t, cfg.JournalEnabled())
	assert.Equal(t, filepath.Join("logs", "reloads"), cfg.Journal.Dir)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "trade-snapshots", cfg.Kafka.Topic)
}

func TestParseConfig_Overrides(t *testing.T) {
	t.Setenv("TRADES_FILE", "")

	cfg, err := ParseConfig([]byte(`
watch:
  path: /srv/book.xlsx
  delimiter: ";"
  null_tokens: []
refresh:
  interval_seconds: 5
server:
  api_prefix: /v1/
websocket:
  enabled: false
journal:
  enabled: false
kafka:
  brokers: ["localhost:9092"]
`))
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, cfg.ResolvedFormat())
	assert.Equal(t, ';', cfg.Delimiter())
	assert.Empty(t, cfg.Watch.NullTokens)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval())
	assert.Equal(t, "/v1", cfg.Server.APIPrefix)
	assert.False(t, cfg.WebSocketEnabled())
	assert.False(t, cfg.JournalEnabled())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestParseConfig_EnvOverridesPath(t *testing.T) {
	t.Setenv("TRADES_FILE", "/env/trades.csv")

	cfg, err := ParseConfig([]byte("watch:\n  path: data/trades.csv\n"))
	require.NoError(t, err)
	assert.Equal(t, "/env/trades.csv", cfg.Watch.Path)
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Setenv("TRADES_FILE", "")

	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{"missing path", "refresh:\n  interval_seconds: 5\n", ErrMissingPath},
		{"negative interval", "watch:\n  path: a.csv\nrefresh:\n  interval_seconds: -1\n", ErrBadInterval},
		{"bad format", "watch:\n  path: a.csv\n  format: json\n", nil},
		{"long delimiter", "watch:\n  path: a.csv\n  delimiter: ';;'\n", nil},
		{"quote delimiter", "watch:\n  path: a.csv\n  delimiter: '\"'\n", nil},
		{"relative prefix", "watch:\n  path: a.csv\nserver:\n  api_prefix: api\n", nil},
		{"negative retention", "watch:\n  path: a.csv\njournal:\n  retention_days: -2\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TRADES_FILE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watch:\n  path: x.csv\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "x.csv", cfg.Watch.Path)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
