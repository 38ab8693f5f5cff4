package httpadapter

import (
	"bufio"
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type requestLoggerKey struct{}

// logFor returns the request-scoped logger installed by requestMiddleware,
// carrying the request id on every line.
func logFor(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(requestLoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// requestMiddleware assigns the request id, scopes a logger to it and
// writes one access line per request. Probe traffic logs at debug.
func requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		logger := slog.Default().With("request_id", requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestLoggerKey{}, logger))
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		remote := r.RemoteAddr
		if host, _, err := net.SplitHostPort(remote); err == nil {
			remote = host
		}
		level := slog.LevelInfo
		switch {
		case recorder.statusCode >= 500:
			level = slog.LevelError
		case recorder.statusCode >= 400:
			level = slog.LevelWarn
		case r.URL.Path == "/api/health" || r.URL.Path == "/metrics":
			level = slog.LevelDebug
		}
		logger.Log(r.Context(), level, "http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", recorder.bytesWritten,
			"remote_addr", remote,
		)
	})
}

// authMiddleware requires "Authorization: Bearer <token>" when a token is
// configured. The health probe stays open, and the transcript socket may
// pass the token as ?token= because browsers cannot set headers on it.
func authMiddleware(next http.Handler, token string) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isAuthorizedBearerHeader(r.Header.Get("Authorization"), token) {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, websocketPrefix) && subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("token")), []byte(token)) == 1 {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	})
}

func isAuthorizedBearerHeader(headerValue, expectedToken string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expectedToken == "" {
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
