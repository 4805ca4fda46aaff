// Package router wires the HTTP surface of the shortener: account pages, the
// link form, the ad chain hops, the dashboard and the JSON API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/adshrt/internal/auth"
	"github.com/patric-chuzhbe/adshrt/internal/logger"
	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/service"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

type shortener interface {
	SignUp(ctx context.Context, username, password string) (int64, error)
	LogIn(ctx context.Context, username, password string) (*user.User, error)
	ShortenURL(ctx context.Context, longURL string, userID int64) (string, error)
	Enter(ctx context.Context, short string) (models.ChainStep, error)
	RecordImpression(ctx context.Context, short string) error
	RecordClick(ctx context.Context, short string) (string, error)
	GetUserURLs(ctx context.Context, userID int64) (models.UserUrls, error)
	GetStats(ctx context.Context, userID int64) (models.StatsResponse, error)
	ResetCounters(ctx context.Context, userID int64) error
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
	Ping(ctx context.Context) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	RequireLogin(h http.Handler) http.Handler
	StartSession(response http.ResponseWriter, userID int64) error
	EndSession(response http.ResponseWriter)
}

type subnetGuard interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

type credentialsForm struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required"`
}

type shortenForm struct {
	LongURL string `validate:"required"`
}

const (
	msgUsernameTaken      = "Username already exists"
	msgInvalidLogin       = "Invalid login"
	msgInvalidURL         = "Invalid URL"
	msgCredentialsMissing = "Username and password are required"
	msgPasswordTooLong    = "Password must not exceed 72 bytes"
)

// Router holds the handlers. Its zero value is not usable; see New.
type Router struct {
	service  shortener
	auth     authenticator
	validate *validator.Validate
}

// New builds the chi mux. When requireLoginForRedirects is set the ad chain
// routes are gated like every other page.
func New(
	svc shortener,
	theAuth authenticator,
	guard subnetGuard,
	requireLoginForRedirects bool,
) *chi.Mux {
	myRouter := &Router{
		service:  svc,
		auth:     theAuth,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		middleware.Compress(5),
		theAuth.AuthenticateUser,
	)

	router.Get(`/signup`, myRouter.GetSignup)
	router.Post(`/signup`, myRouter.PostSignup)
	router.Get(`/login`, myRouter.GetLogin)
	router.Post(`/login`, myRouter.PostLogin)
	router.Get(`/logout`, myRouter.GetLogout)
	router.Get(`/ping`, myRouter.GetPing)
	router.Handle(`/static/*`, http.FileServer(http.FS(staticFS)))

	chainGate := []func(http.Handler) http.Handler{}
	if requireLoginForRedirects {
		chainGate = append(chainGate, theAuth.RequireLogin)
	}
	router.With(chainGate...).Get(`/{short}`, myRouter.GetEntry)
	router.With(chainGate...).Get(`/ad/{short}`, myRouter.GetAdpage)
	router.With(chainGate...).Get(`/go/{short}`, myRouter.GetClickthrough)

	router.With(guard.TrustedSubnetOnly).Get(`/api/internal/stats`, myRouter.GetApiinternalstats)

	router.Group(func(protected chi.Router) {
		protected.Use(theAuth.RequireLogin)

		protected.Get(`/`, myRouter.GetHome)
		protected.Post(`/`, myRouter.PostHome)
		protected.Get(`/dashboard`, myRouter.GetDashboard)
		protected.Post(`/dashboard`, myRouter.PostDashboard)
		protected.Get(`/api/stats`, myRouter.GetApistats)
		protected.Get(`/api/user/urls`, myRouter.GetApiuserurls)
		protected.Post(`/api/shorten`, myRouter.PostApishorten)
	})

	// Anonymous visitors go to the login page even for paths or methods
	// that do not exist; only logged-in users see 404 and 405.
	router.NotFound(theAuth.RequireLogin(http.NotFoundHandler()).ServeHTTP)
	router.MethodNotAllowed(theAuth.RequireLogin(http.HandlerFunc(methodNotAllowed)).ServeHTTP)

	return router
}

func methodNotAllowed(response http.ResponseWriter, request *http.Request) {
	http.Error(response, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func currentUserID(request *http.Request) int64 {
	userID, _ := auth.UserIDFromContext(request.Context())
	return userID
}

func internalError(response http.ResponseWriter, call string, err error) {
	logger.Log.Debugln("Error calling the `"+call+"`: ", zap.Error(err))
	response.WriteHeader(http.StatusInternalServerError)
}

func (myRouter *Router) readCredentials(request *http.Request) (credentialsForm, bool) {
	form := credentialsForm{
		Username: strings.TrimSpace(request.PostFormValue("username")),
		Password: request.PostFormValue("password"),
	}

	return form, myRouter.validate.Struct(form) == nil
}

func (myRouter *Router) GetSignup(response http.ResponseWriter, request *http.Request) {
	renderPage(response, http.StatusOK, pageSignup, pageData{Title: "Sign up"})
}

func (myRouter *Router) PostSignup(response http.ResponseWriter, request *http.Request) {
	form, ok := myRouter.readCredentials(request)
	if !ok {
		http.Error(response, msgCredentialsMissing, http.StatusBadRequest)
		return
	}

	_, err := myRouter.service.SignUp(request.Context(), form.Username, form.Password)
	if errors.Is(err, models.ErrUsernameTaken) {
		http.Error(response, msgUsernameTaken, http.StatusConflict)
		return
	}
	if errors.Is(err, models.ErrPasswordTooLong) {
		http.Error(response, msgPasswordTooLong, http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(response, "myRouter.service.SignUp()", err)
		return
	}

	http.Redirect(response, request, auth.LoginPath, http.StatusSeeOther)
}

func (myRouter *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	renderPage(response, http.StatusOK, pageLogin, pageData{Title: "Log in"})
}

func (myRouter *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	form, ok := myRouter.readCredentials(request)
	if !ok {
		http.Error(response, msgInvalidLogin, http.StatusUnauthorized)
		return
	}

	usr, err := myRouter.service.LogIn(request.Context(), form.Username, form.Password)
	if errors.Is(err, models.ErrInvalidCredentials) {
		http.Error(response, msgInvalidLogin, http.StatusUnauthorized)
		return
	}
	if err != nil {
		internalError(response, "myRouter.service.LogIn()", err)
		return
	}

	if err := myRouter.auth.StartSession(response, usr.ID); err != nil {
		internalError(response, "myRouter.auth.StartSession()", err)
		return
	}

	http.Redirect(response, request, "/", http.StatusSeeOther)
}

func (myRouter *Router) GetLogout(response http.ResponseWriter, request *http.Request) {
	myRouter.auth.EndSession(response)
	http.Redirect(response, request, auth.LoginPath, http.StatusFound)
}

func (myRouter *Router) GetHome(response http.ResponseWriter, request *http.Request) {
	myRouter.renderHome(response, request, http.StatusOK, "", "")
}

func (myRouter *Router) PostHome(response http.ResponseWriter, request *http.Request) {
	form := shortenForm{LongURL: strings.TrimSpace(request.PostFormValue("long_url"))}
	if err := myRouter.validate.Struct(form); err != nil {
		myRouter.renderHome(response, request, http.StatusBadRequest, "", models.ErrInvalidURL.Error())
		return
	}

	shortURL, err := myRouter.service.ShortenURL(request.Context(), form.LongURL, currentUserID(request))
	if errors.Is(err, models.ErrInvalidURL) {
		myRouter.renderHome(response, request, http.StatusBadRequest, "", err.Error())
		return
	}
	if err != nil {
		internalError(response, "myRouter.service.ShortenURL()", err)
		return
	}

	myRouter.renderHome(response, request, http.StatusOK, shortURL, "")
}

func (myRouter *Router) renderHome(
	response http.ResponseWriter,
	request *http.Request,
	status int,
	shortURL,
	errorMessage string,
) {
	links, err := myRouter.service.GetUserURLs(request.Context(), currentUserID(request))
	if err != nil {
		internalError(response, "myRouter.service.GetUserURLs()", err)
		return
	}

	renderPage(response, status, pageIndex, pageData{
		Title:    "Shorten",
		LoggedIn: true,
		Error:    errorMessage,
		ShortURL: shortURL,
		Links:    links,
	})
}

// GetEntry is the first hop of the ad chain.
func (myRouter *Router) GetEntry(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")

	step, err := myRouter.service.Enter(request.Context(), short)
	if errors.Is(err, models.ErrLinkNotFound) {
		http.Error(response, msgInvalidURL, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(response, "myRouter.service.Enter()", err)
		return
	}

	switch step.Kind {
	case models.StepExternalRedirect:
		http.Redirect(response, request, step.Location, http.StatusTemporaryRedirect)
	case models.StepInternalRedirect:
		http.Redirect(response, request, step.Location, http.StatusFound)
	default:
		myRouter.renderAd(response, request, step.Location)
	}
}

// GetAdpage is the impression hop.
func (myRouter *Router) GetAdpage(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")

	err := myRouter.service.RecordImpression(request.Context(), short)
	if errors.Is(err, models.ErrLinkNotFound) {
		http.Error(response, msgInvalidURL, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(response, "myRouter.service.RecordImpression()", err)
		return
	}

	myRouter.renderAd(response, request, service.ClickPath(short))
}

// GetClickthrough is the click hop; it ends the chain at the long URL.
func (myRouter *Router) GetClickthrough(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")

	full, err := myRouter.service.RecordClick(request.Context(), short)
	if errors.Is(err, models.ErrLinkNotFound) {
		http.Error(response, msgInvalidURL, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(response, "myRouter.service.RecordClick()", err)
		return
	}

	http.Redirect(response, request, full, http.StatusTemporaryRedirect)
}

func (myRouter *Router) renderAd(response http.ResponseWriter, request *http.Request, continueURL string) {
	_, loggedIn := auth.UserIDFromContext(request.Context())
	renderPage(response, http.StatusOK, pageAd, pageData{
		Title:       "Advertisement",
		LoggedIn:    loggedIn,
		ContinueURL: continueURL,
	})
}

func (myRouter *Router) GetDashboard(response http.ResponseWriter, request *http.Request) {
	userID := currentUserID(request)

	stats, err := myRouter.service.GetStats(request.Context(), userID)
	if err != nil {
		internalError(response, "myRouter.service.GetStats()", err)
		return
	}

	links, err := myRouter.service.GetUserURLs(request.Context(), userID)
	if err != nil {
		internalError(response, "myRouter.service.GetUserURLs()", err)
		return
	}

	renderPage(response, http.StatusOK, pageDashboard, pageData{
		Title:    "Dashboard",
		LoggedIn: true,
		Links:    links,
		Stats:    stats,
	})
}

func (myRouter *Router) PostDashboard(response http.ResponseWriter, request *http.Request) {
	if request.PostFormValue("action") != "reset" {
		http.Error(response, "unknown action", http.StatusBadRequest)
		return
	}

	if err := myRouter.service.ResetCounters(request.Context(), currentUserID(request)); err != nil {
		internalError(response, "myRouter.service.ResetCounters()", err)
		return
	}

	http.Redirect(response, request, "/dashboard", http.StatusSeeOther)
}

func (myRouter *Router) GetApistats(response http.ResponseWriter, request *http.Request) {
	stats, err := myRouter.service.GetStats(request.Context(), currentUserID(request))
	if err != nil {
		internalError(response, "myRouter.service.GetStats()", err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func (myRouter *Router) GetApiuserurls(response http.ResponseWriter, request *http.Request) {
	links, err := myRouter.service.GetUserURLs(request.Context(), currentUserID(request))
	if err != nil {
		internalError(response, "myRouter.service.GetUserURLs()", err)
		return
	}
	if len(links) == 0 {
		response.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(response, http.StatusOK, links)
}

func (myRouter *Router) PostApishorten(response http.ResponseWriter, request *http.Request) {
	var requestDTO models.ShortenRequest
	if err := json.NewDecoder(request.Body).Decode(&requestDTO); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}
	if err := myRouter.validate.Struct(requestDTO); err != nil {
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	shortURL, err := myRouter.service.ShortenURL(request.Context(), requestDTO.URL, currentUserID(request))
	if errors.Is(err, models.ErrInvalidURL) {
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		internalError(response, "myRouter.service.ShortenURL()", err)
		return
	}

	writeJSON(response, http.StatusCreated, models.ShortenResponse{Result: shortURL})
}

func (myRouter *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := myRouter.service.GetInternalStats(request.Context())
	if err != nil {
		internalError(response, "myRouter.service.GetInternalStats()", err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func (myRouter *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := myRouter.service.Ping(request.Context()); err != nil {
		internalError(response, "myRouter.service.Ping()", err)
		return
	}

	response.WriteHeader(http.StatusOK)
}
