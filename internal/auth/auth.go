// Package auth implements the session gate: passwords are stored as bcrypt
// hashes and a logged-in user is identified by a JWT signed with the service
// secret and carried in a cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/adshrt/internal/logger"
	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

// LoginPath is where RequireLogin sends anonymous visitors.
const LoginPath = "/login"

// MaxPasswordBytes is the bcrypt input limit; it counts bytes, not characters.
const MaxPasswordBytes = 72

type userKeeper interface {
	GetUserByID(ctx context.Context, userID int64) (*user.User, error)
}

// Auth issues, verifies and clears session cookies.
type Auth struct {
	// db is used to make sure the user behind a session still exists.
	db userKeeper

	// authCookieName is the name of the cookie that stores the JWT.
	authCookieName string

	// authCookieSigningSecretKey signs and verifies the JWT.
	authCookieSigningSecretKey []byte

	// sessionTTL bounds the lifetime of a session.
	sessionTTL time.Duration
}

// Claims represents the JWT claims of a session.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key of the authenticated user's ID.
const UserIDKey ContextKey = "userID"

func New(
	db userKeeper,
	authCookieName string,
	authCookieSigningSecretKey []byte,
	sessionTTL time.Duration,
) *Auth {
	return &Auth{
		db:                         db,
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
		sessionTTL:                 sessionTTL,
	}
}

// HashPassword returns the bcrypt hash of password.
// Passwords over MaxPasswordBytes yield models.ErrPasswordTooLong.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", models.ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserIDFromContext returns the ID stored by AuthenticateUser, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)

	return userID, ok && userID != 0
}

// StartSession signs a session for userID and sets it as a cookie.
func (a *Auth) StartSession(response http.ResponseWriter, userID int64) error {
	now := time.Now()
	tokenString, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionTTL)),
		},
		UserID: userID,
	})
	if err != nil {
		return err
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    tokenString,
			Path:     "/",
			Expires:  now.Add(a.sessionTTL),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

// EndSession expires the session cookie.
func (a *Auth) EndSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)
}

// AuthenticateUser puts the session's user ID into the request context when the
// cookie carries a valid token for an existing user. Anonymous requests pass through untouched.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		cookie, err := request.Cookie(a.authCookieName)
		if err != nil || cookie.Value == "" {
			h.ServeHTTP(response, request)
			return
		}

		userID, err := a.GetUserIDFromToken(cookie.Value)
		if err != nil {
			logger.Log.Debugw("rejected session token", zap.Error(err))
			h.ServeHTTP(response, request)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), userID)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}
		if usr.ID == 0 {
			h.ServeHTTP(response, request)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireLogin redirects requests without an authenticated user to the login page.
// It must run after AuthenticateUser.
func (a *Auth) RequireLogin(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if _, ok := UserIDFromContext(request.Context()); !ok {
			http.Redirect(response, request, LoginPath, http.StatusFound)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// GetUserIDFromToken validates a session token and returns the user ID it carries.
func (a *Auth) GetUserIDFromToken(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, errors.New("invalid session token")
	}

	return claims.UserID, nil
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	return token.SignedString(a.authCookieSigningSecretKey)
}
