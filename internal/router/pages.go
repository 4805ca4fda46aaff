package router

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/adshrt/internal/logger"
	"github.com/patric-chuzhbe/adshrt/internal/models"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	pageSignup    = "signup"
	pageLogin     = "login"
	pageIndex     = "index"
	pageAd        = "ad"
	pageDashboard = "dashboard"
)

var pages = func() map[string]*template.Template {
	result := map[string]*template.Template{}
	for _, name := range []string{pageSignup, pageLogin, pageIndex, pageAd, pageDashboard} {
		result[name] = template.Must(
			template.ParseFS(templatesFS, "templates/base.html", "templates/"+name+".html"),
		)
	}
	return result
}()

// pageData is the single view model shared by all pages.
type pageData struct {
	Title       string
	LoggedIn    bool
	Error       string
	ShortURL    string
	ContinueURL string
	Links       models.UserUrls
	Stats       models.StatsResponse
}

func renderPage(response http.ResponseWriter, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		logger.Log.Debugln("Error calling the `ExecuteTemplate()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	if _, err := buf.WriteTo(response); err != nil {
		logger.Log.Debugln("Error writing page: ", zap.Error(err))
	}
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}
