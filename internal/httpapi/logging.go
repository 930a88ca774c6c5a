package httpapi

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("FITD_REQUEST_LOG"))

// SetRequestLogLevel overrides the default per-request log level.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// RequestLogMiddleware logs request start/end according to the request's log
// level. At LevelError only failed requests (status >= 400) are logged.
func RequestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		if lvl == LevelOff {
			next.ServeHTTP(w, r)
			return
		}
		rid := middleware.GetReqID(r.Context())
		if lvl >= LevelInfo {
			logStart(r, rid, lvl)
		}
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		if lvl == LevelError && sr.status < 400 {
			return
		}
		logEnd(r, rid, sr.status, time.Since(start))
	})
}

func logStart(r *http.Request, rid string, lvl LogLevel) {
	if zlog == nil {
		log.Printf("request start method=%s path=%s", r.Method, r.URL.Path)
		return
	}
	z := zlog.Info().Str("method", r.Method).Str("path", r.URL.Path)
	if rid != "" {
		z = z.Str("request_id", rid)
	}
	if lvl >= LevelDebug {
		z = z.Str("remote", r.RemoteAddr).Str("user_agent", r.UserAgent()).Int64("content_length", r.ContentLength)
	}
	z.Msg("request start")
}

func logEnd(r *http.Request, rid string, status int, dur time.Duration) {
	if zlog == nil {
		log.Printf("request end method=%s path=%s status=%d dur=%s", r.Method, r.URL.Path, status, dur)
		return
	}
	z := zlog.Info()
	if status >= 500 {
		z = zlog.Error()
	} else if status >= 400 {
		z = zlog.Warn()
	}
	z = z.Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Dur("dur", dur)
	if rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("request end")
}
