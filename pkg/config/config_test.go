package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/storage"
	"github.com/athapong/ndex-mcp/pkg/network"
)

var envKeys = []string{
	"NDEX_CONFIG", "NDEX_STORE", "NDEX_BADGER_PATH", "NDEX_BADGER_IN_MEMORY",
	"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "NEO4J_DATABASE", "LOG_LEVEL",
	"NDEX_STRICT_IMPORT", "NDEX_EQUIVALENCE", "NDEX_TRAVERSAL_DEPTH", "NDEX_METRICS_ADDR",
	"NDEX_ACTOR", "NDEX_ALLOW_ALL",
}

// clearEnv unsets every variable Load reads for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ndex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store: badger
badger_path: /var/lib/ndex
log_level: debug
strict_import: true
traversal_depth: 5
actor: curator
`), 0644))
	t.Setenv("NDEX_CONFIG", path)
	t.Setenv("NDEX_ACTOR", "alice")
	t.Setenv("NDEX_EQUIVALENCE", "import_id")
	t.Setenv("NDEX_ALLOW_ALL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreBadger, cfg.Store)
	assert.Equal(t, "/var/lib/ndex", cfg.BadgerPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.StrictImport)
	assert.Equal(t, 5, cfg.TraversalDepth)
	assert.Equal(t, "alice", cfg.Actor)
	assert.True(t, cfg.AllowAll)

	logger := cfg.Logger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	opts := cfg.ServiceOptions(logger)
	assert.True(t, opts.Strict)
	assert.Equal(t, 5, opts.TraversalDepth)
	assert.Equal(t, "import_id", opts.DefaultPolicy)
	assert.Equal(t, network.AllowAll{}, opts.Authorizer)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"unknown store", map[string]string{"NDEX_STORE": "cassandra"}, graph.ErrInvalidInput},
		{"neo4j without uri", map[string]string{"NDEX_STORE": "neo4j"}, graph.ErrInvalidInput},
		{"badger without path", map[string]string{"NDEX_STORE": "badger", "NDEX_BADGER_PATH": ""}, graph.ErrInvalidInput},
		{"bad bool", map[string]string{"NDEX_STRICT_IMPORT": "maybe"}, graph.ErrInvalidInput},
		{"bad depth", map[string]string{"NDEX_TRAVERSAL_DEPTH": "deep"}, graph.ErrInvalidInput},
		{"negative depth", map[string]string{"NDEX_TRAVERSAL_DEPTH": "-1"}, graph.ErrInvalidInput},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, graph.ErrInvalidInput},
		{"unknown equivalence", map[string]string{"NDEX_EQUIVALENCE": "NAME"}, graph.ErrUnsupportedEquivalence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestBadgerInMemoryNeedsNoPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("NDEX_STORE", "BADGER")
	t.Setenv("NDEX_BADGER_PATH", "")
	t.Setenv("NDEX_BADGER_IN_MEMORY", "1")

	cfg, err := Load()
	require.NoError(t, err)

	store, err := cfg.OpenStore(context.Background(), cfg.Logger())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &storage.BadgerStore{}, store)
}

func TestOpenMemoryStore(t *testing.T) {
	store, err := Default().OpenStore(context.Background(), nil)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &storage.MemoryStore{}, store)

	cfg := Default()
	cfg.Store = "tape"
	_, err = cfg.OpenStore(context.Background(), nil)
	assert.True(t, errors.Is(err, graph.ErrInvalidInput))
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NDEX_ACTOR=from-file\n"), 0644))

	require.NoError(t, LoadEnvFile(path))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Actor)

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}
