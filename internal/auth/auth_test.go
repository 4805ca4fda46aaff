package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adshrt/internal/db/memorystorage"
	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

const (
	testCookieName = "session"
	testSecret     = "test-secret"
)

func newTestAuth(t *testing.T) (*Auth, int64) {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	userID, err := db.CreateUser(context.Background(), &user.User{Username: "dave", PasswordHash: "x"})
	require.NoError(t, err)

	return New(db, testCookieName, []byte(testSecret), time.Hour), userID
}

// whoAmI answers with 200 when a user is in the context and 204 otherwise.
func whoAmI(t *testing.T, wantUserID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		assert.Equal(t, wantUserID, userID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "S3cret"))
	assert.False(t, CheckPassword("not a hash", "s3cret"))
}

func TestHashPasswordRejectsOverlongInBytes(t *testing.T) {
	_, err := HashPassword(strings.Repeat("€", 30))
	assert.ErrorIs(t, err, models.ErrPasswordTooLong)

	hash, err := HashPassword(strings.Repeat("€", 24))
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, strings.Repeat("€", 24)))
}

func TestSessionRoundTrip(t *testing.T) {
	theAuth, userID := newTestAuth(t)

	w := httptest.NewRecorder()
	require.NoError(t, theAuth.StartSession(w, userID))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	request := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	request.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	theAuth.AuthenticateUser(theAuth.RequireLogin(whoAmI(t, userID))).ServeHTTP(w, request)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireLoginRedirectsAnonymous(t *testing.T) {
	theAuth, userID := newTestAuth(t)
	forged, err := New(nil, testCookieName, []byte("another-secret"), time.Hour).buildJWTString(&Claims{UserID: userID})
	require.NoError(t, err)
	unknownUser, err := theAuth.buildJWTString(&Claims{UserID: userID + 42})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no_cookie"},
		{name: "garbage_cookie", cookie: &http.Cookie{Name: testCookieName, Value: "garbage"}},
		{name: "foreign_signature", cookie: &http.Cookie{Name: testCookieName, Value: forged}},
		{name: "unknown_user", cookie: &http.Cookie{Name: testCookieName, Value: unknownUser}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if testCase.cookie != nil {
				request.AddCookie(testCase.cookie)
			}
			w := httptest.NewRecorder()
			theAuth.AuthenticateUser(theAuth.RequireLogin(whoAmI(t, userID))).ServeHTTP(w, request)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, LoginPath, w.Header().Get("Location"))
		})
	}
}

func TestExpiredSessionIsAnonymous(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)
	userID, err := db.CreateUser(context.Background(), &user.User{Username: "erin", PasswordHash: "x"})
	require.NoError(t, err)

	theAuth := New(db, testCookieName, []byte(testSecret), -time.Minute)
	w := httptest.NewRecorder()
	require.NoError(t, theAuth.StartSession(w, userID))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: testCookieName, Value: w.Result().Cookies()[0].Value})
	w = httptest.NewRecorder()
	theAuth.AuthenticateUser(whoAmI(t, userID)).ServeHTTP(w, request)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestEndSessionExpiresCookie(t *testing.T) {
	theAuth, _ := newTestAuth(t)

	w := httptest.NewRecorder()
	theAuth.EndSession(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}
