// Package logger provides structured logging for the shortener
// using the Uber zap logging library.
package logger

import (
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Log is the process-wide sugared logger. It is a no-op logger until Init is called,
// so packages may log from tests that never initialize it.
var Log = zap.NewNop().Sugar()

type responseData struct {
	status int
	size   int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *responseData
}

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.responseData.status = statusCode
}

// Init replaces Log with a development-style logger at the given level
// ("debug", "info", "warn", "error", ...).
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes buffered entries. Syncing a console sink returns os.ErrInvalid, which is ignored.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithLoggingHTTPMiddleware logs method, URI, status, duration and size of every request.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lw := loggingResponseWriter{
			ResponseWriter: w,
			responseData: &responseData{
				status: http.StatusOK,
			},
		}
		h.ServeHTTP(&lw, r)

		Log.Infow(
			"http request",
			"uri", r.RequestURI,
			"method", r.Method,
			"remote", r.RemoteAddr,
			"status", lw.responseData.status,
			"duration", time.Since(start),
			"size", lw.responseData.size,
		)
	}

	return http.HandlerFunc(logFn)
}
