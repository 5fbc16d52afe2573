package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martbuild/pkg/models"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("MARTBUILD_CONFIG", path)
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Pipeline.DuplicatePolicy)
	assert.Equal(t, int64(-1), cfg.Pipeline.SentinelKey)
	assert.Equal(t, "fnv1a-64", cfg.Pipeline.KeyHash)
	assert.Equal(t, 730, cfg.Pipeline.DateDimension.Days)
	assert.Equal(t, []string{"Saturday", "Sunday"}, cfg.Pipeline.DateDimension.WeekendDays)
	assert.Len(t, cfg.Pipeline.SeverityTiers, 4)
	assert.Equal(t, int64(42), cfg.Generator.Seed)
	assert.Equal(t, "data/raw", cfg.Generator.OutputDir)
	assert.Equal(t, "main", cfg.ModelsRepo.Branch)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	useTempConfig(t)

	cfg := &models.Config{}
	ApplyDefaults(cfg)
	cfg.Snowflake.Account = "xy12345.us-east-1"
	cfg.Snowflake.Username = "builder"
	cfg.Pipeline.Workers = 8

	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "xy12345.us-east-1", loaded.Snowflake.Account)
	assert.Equal(t, "builder", loaded.Snowflake.Username)
	assert.Equal(t, 8, loaded.Pipeline.Workers)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.WriteFile(path, []byte(
		"pipeline:\n  duplicate_policy: last-wins\n  workers: 4\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "last-wins", cfg.Pipeline.DuplicatePolicy)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	// Unset options still get their defaults
	assert.Equal(t, int64(-1), cfg.Pipeline.SentinelKey)
	assert.Equal(t, "2025-01-01", cfg.Pipeline.DateDimension.StartDate)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.WriteFile(path, []byte("pipeline: [not a map"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	t.Setenv("MARTBUILD_ENCRYPTION_KEY", "test-passphrase")

	encrypted, err := EncryptPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(encrypted))
	assert.NotContains(t, encrypted, "hunter2")

	decrypted, err := DecryptPassword(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", decrypted)
}

func TestEncryptPasswordIsIdempotent(t *testing.T) {
	t.Setenv("MARTBUILD_ENCRYPTION_KEY", "test-passphrase")

	encrypted, err := EncryptPassword("hunter2")
	require.NoError(t, err)

	again, err := EncryptPassword(encrypted)
	require.NoError(t, err)
	assert.Equal(t, encrypted, again)
}

func TestDecryptPlaintextPassesThrough(t *testing.T) {
	decrypted, err := DecryptPassword("plaintext")
	require.NoError(t, err)
	assert.Equal(t, "plaintext", decrypted)
}

func TestEncryptConfigPasswords(t *testing.T) {
	t.Setenv("MARTBUILD_ENCRYPTION_KEY", "test-passphrase")

	cfg := &models.Config{}
	cfg.Snowflake.Password = "hunter2"

	require.NoError(t, EncryptConfigPasswords(cfg))
	assert.True(t, IsEncrypted(cfg.Snowflake.Password))

	require.NoError(t, DecryptConfigPasswords(cfg))
	assert.Equal(t, "hunter2", cfg.Snowflake.Password)
}

func TestConfigFileRespectsEnvOverride(t *testing.T) {
	path := useTempConfig(t)
	assert.Equal(t, path, GetConfigFile())
	assert.Equal(t, filepath.Dir(path), GetConfigPath())
}
