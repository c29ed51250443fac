package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := `
database:
  driver: sqlite
  sqlite_path: /var/lib/tablekit.db
  port: 6543
tables:
  dir: defs
  page_options: [5, 15]
presets:
  store: memory
server:
  allowed_origins: [https://a.example, https://b.example]
export:
  page_size: 250
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	t.Setenv("TABLEKIT_DATABASE_HOST", "db.internal")
	t.Setenv("TABLEKIT_SERVER_ADDR", ":9090")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/var/lib/tablekit.db", cfg.Database.SQLitePath)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "postgres", cfg.Database.User, "unset keys keep defaults")

	assert.Equal(t, "defs", cfg.Tables.Dir)
	assert.Equal(t, 10, cfg.Tables.PerPage)
	assert.Equal(t, []int{5, 15}, cfg.Tables.PageOptions)
	assert.Equal(t, PresetStoreMemory, cfg.Presets.Store)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 250, cfg.Export.PageSize)
	assert.Equal(t, "exports", cfg.Export.Directory)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database: [unclosed"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}
