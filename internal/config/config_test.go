package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, FetchModeProxy, cfg.FetchMode)
	assert.Equal(t, "./badger_data", cfg.BadgerDBPath)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.AdminEmails)

	// A missing key is not a load error; it surfaces on first use.
	_, err = cfg.RequireAPIKey()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "OPENAI_MODEL: from-file\nHTTP_ADDR: \":9000\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("OPENAI_MODEL", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.OpenAIModel)
	assert.Equal(t, ":9000", cfg.HTTPAddr)

	key, err := cfg.RequireAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestLoadConfig_RejectsUnknownFetchMode(t *testing.T) {
	t.Setenv("FETCH_MODE", "carrier-pigeon")

	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestLoadConfig_AdminEmailsFromEnv(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", "root@example.com,ops@example.com")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.AdminEmails)
}
