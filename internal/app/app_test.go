package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adshrt/internal/config"
	"github.com/patric-chuzhbe/adshrt/internal/models"
)

func TestGetAvailableStorageType(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.Config
		want int
	}{
		{name: "dsn_wins", cfg: config.Config{DatabaseDSN: "postgres://x", DBFileName: "db.json"}, want: models.StorageTypePostgresql},
		{name: "file", cfg: config.Config{DBFileName: "db.json"}, want: models.StorageTypeFile},
		{name: "memory", cfg: config.Config{}, want: models.StorageTypeMemory},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, getAvailableStorageType(&testCase.cfg))
		})
	}
}

func TestNewWiresFileStorage(t *testing.T) {
	dbFileName := filepath.Join(t.TempDir(), "db.json")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("FILE_STORAGE_PATH", dbFileName)
	t.Setenv("TRUSTED_SUBNET", "127.0.0.0/8")
	t.Setenv("AD_CHAIN", "direct")

	theApp, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	require.NoError(t, err)
	defer theApp.Close()

	server := httptest.NewServer(theApp.Handler())
	defer server.Close()

	client := resty.New().
		SetBaseURL(server.URL).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	resp, err := client.R().Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = client.R().Get("/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())

	var stats models.InternalStatsResponse
	resp, err = client.R().SetResult(&stats).Get("/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, models.InternalStatsResponse{}, stats)

	require.NoError(t, theApp.db.Close())
	_, err = os.Stat(dbFileName)
	assert.NoError(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Setenv("AD_CHAIN", "triple")

	_, err := New(WithConfigOptions(config.WithDisableFlagsParsing(true)))
	assert.Error(t, err)
}
