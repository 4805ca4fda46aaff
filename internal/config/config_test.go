package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adshrt/internal/models"
)

const testJSON = `{
	"server_address": ":3000",
	"base_url": "http://json-config.com/",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"ad_chain": "single",
	"cpc_rate": 0.75
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "http://localhost:8080", cfg.ShortURLBase)
	assert.Equal(t, "fallback-secret", cfg.SecretKey)
	assert.Equal(t, models.AdChainDouble, cfg.AdChain)
	assert.Equal(t, 0.5, cfg.CPCRate)
	assert.Equal(t, 5.0, cfg.CPMRate)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.RequireLoginForRedirects)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "http://json-config.com", cfg.ShortURLBase)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, models.AdChainSingle, cfg.AdChain)
	assert.Equal(t, 0.75, cfg.CPCRate)
	assert.Equal(t, 5.0, cfg.CPMRate)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("BASE_URL", "http://env.com")
	t.Setenv("AD_CHAIN", "direct")
	t.Setenv("SESSION_TTL", "1h")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr)
	assert.Equal(t, "http://env.com", cfg.ShortURLBase)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, models.AdChainDirect, cfg.AdChain)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("SECRET_KEY", "from-env")

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{
		"testbin",
		"-a", ":6000",
		"-k", "from-cli",
		"-chain", "direct",
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr)
	assert.Equal(t, "from-cli", cfg.SecretKey)
	assert.Equal(t, models.AdChainDirect, cfg.AdChain)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
}

func TestConfigRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown_ad_chain", key: "AD_CHAIN", value: "triple"},
		{name: "unknown_log_level", key: "LOG_LEVEL", value: "loud"},
		{name: "bad_subnet", key: "TRUSTED_SUBNET", value: "10.0.0.0"},
		{name: "bad_base_url", key: "BASE_URL", value: "not a url"},
		{name: "negative_cpc", key: "CPC_RATE", value: "-1"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv(testCase.key, testCase.value)

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}
