// Package mockstorage provides a testify-based mock of the storage contract,
// used to drive the service through failures a real backend rarely produces.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

// StorageMock implements every storage method with testify's mock.Mock.
type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (int64, error) {
	args := m.Called(ctx, usr)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) InsertShortLink(ctx context.Context, link *models.ShortLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *StorageMock) FindFullByShort(ctx context.Context, short string) (string, bool, error) {
	args := m.Called(ctx, short)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *StorageMock) IncrementCounters(
	ctx context.Context,
	short string,
	impressions,
	clicks int64,
) (string, bool, error) {
	args := m.Called(ctx, short, impressions, clicks)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetUserLinks(ctx context.Context, userID int64) ([]models.ShortLink, error) {
	args := m.Called(ctx, userID)
	links, _ := args.Get(0).([]models.ShortLink)
	return links, args.Error(1)
}

func (m *StorageMock) ResetUserCounters(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *StorageMock) GetNumberOfShortenedURLs(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
