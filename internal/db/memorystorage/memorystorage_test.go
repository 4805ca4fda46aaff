package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()

	theStorage, err := New()
	require.NoError(t, err)

	userID, err := theStorage.CreateUser(ctx, &user.User{Username: "carol", PasswordHash: "hash"})
	require.NoError(t, err)

	require.NoError(t, theStorage.InsertShortLink(ctx, &models.ShortLink{
		Short:  "Qw12Er",
		Long:   "https://go.dev/",
		UserID: userID,
	}))

	full, found, err := theStorage.FindFullByShort(ctx, "Qw12Er")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://go.dev/", full)

	urls, err := theStorage.GetNumberOfShortenedURLs(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), urls)

	assert.NoError(t, theStorage.Ping(ctx))
	assert.NoError(t, theStorage.Close())
}
