package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.HTTP.TrustProxy)
	assert.Equal(t, "assetlend.db", cfg.Database.Path)
	assert.True(t, cfg.Catalog.Public)
	assert.True(t, cfg.Catalog.FieldStore)
	assert.Equal(t, 20, cfg.Catalog.DefaultPerPage)
	assert.True(t, cfg.Security.AutocompleteNonce)
	assert.Equal(t, 12*time.Hour, cfg.Security.NonceTTL)
	assert.Equal(t, "local", cfg.Media.Driver)
	assert.Equal(t, "/media", cfg.Media.URLPrefix)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: prod
http:
  addr: ":9000"
  base_url: "https://lend.example.org/"
catalog:
  public: false
  default_per_page: 12
`), 0o600))

	t.Setenv("ASSETLEND_DATABASE_PATH", "/var/lib/assetlend.db")
	t.Setenv("ASSETLEND_SECURITY_AUTOCOMPLETE_NONCE", "false")
	t.Setenv("ASSETLEND_HTTP_TRUST_PROXY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "https://lend.example.org", cfg.HTTP.BaseURL)
	assert.False(t, cfg.Catalog.Public)
	assert.Equal(t, 12, cfg.Catalog.DefaultPerPage)
	assert.Equal(t, "/var/lib/assetlend.db", cfg.Database.Path)
	assert.False(t, cfg.Security.AutocompleteNonce)
	assert.True(t, cfg.HTTP.TrustProxy)
}

func TestLoadRejectsIncompleteS3(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ASSETLEND_MEDIA_DRIVER", "s3")

	_, err := Load("")
	assert.Error(t, err)
}
