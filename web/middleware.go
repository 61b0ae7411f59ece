package web

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const (
	sessionName     = "cagefight-session"
	followingKey    = "following"
	sessionMaxAge   = 30 * 24 * 60 * 60
	requestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an id and a logger carrying it
func RequestID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			reqLogger := logger.With().Str("request_id", requestID).Logger()
			ctx = reqLogger.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			reqLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Int64("duration_ms", duration.Milliseconds()).
				Msg("request completed")
		})
	}
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Viewers remembers which match a browser last followed. There are no
// accounts; the cookie is the only state.
type Viewers struct {
	store *sessions.CookieStore
}

func NewViewers(sessionSecret string, secure bool) *Viewers {
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Viewers{store: store}
}

// Follow records matchID in the viewer's session
func (v *Viewers) Follow(w http.ResponseWriter, r *http.Request, matchID string) error {
	session, err := v.store.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[followingKey] = matchID
	return session.Save(r, w)
}

// Following returns the match the viewer last followed, if any
func (v *Viewers) Following(r *http.Request) string {
	session, err := v.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values[followingKey].(string)
	return id
}
