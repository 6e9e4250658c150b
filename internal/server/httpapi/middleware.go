package httpapi

import (
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/model"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// logging records method, path, status, duration and remote for every
// request, tagged with a request id.
func (r *Router) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		reqID, _ := uuid.NewV4()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		r.log.Info("http",
			zap.String("reqid", reqID.String()),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("dur", time.Since(start)),
			zap.String("remote", remoteAddr(req)),
		)
	})
}

// recover converts handler panics into a generic 500.
func (r *Router) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", req.URL.Path),
				)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

// rateLimit consults the limiter before authentication on every request. The
// limiter receives the path so its policy can allow-list; a limiter failure
// does not take the service down.
func (r *Router) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		allowed, err := r.lim.Check(req.Context(), remoteAddr(req), req.URL.Path)
		if err != nil {
			r.log.Warn("rate limiter check failed", zap.Error(err))
			allowed = true
		}
		if !allowed {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// authenticate validates the channel-appropriate token, attaches the
// AuthContext and enforces the degraded mode for lapsed accounts: on the API
// channel a lapsed account is denied outright, on the web channel the
// remaining routes are exactly the self-service allow-list.
func (r *Router) authenticate(ch model.Channel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			var token string
			if ch.IsWeb() {
				if c, err := req.Cookie("token"); err == nil {
					token = c.Value
				}
			} else {
				token = req.Header.Get("x-token")
			}
			if token == "" {
				r.denyAuth(w, req, ch)
				return
			}

			auth, err := r.sessions.Validate(req.Context(), token, ch)
			if err != nil {
				if errors.Is(err, errs.ErrUnauthorized) {
					r.denyAuth(w, req, ch)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !ch.IsWeb() && auth.Lapsed {
				writeText(w, http.StatusForbidden, "account expired")
				return
			}

			next.ServeHTTP(w, req.WithContext(WithAuth(req.Context(), auth)))
		})
	}
}

// denyAuth never reveals whether the token was missing, invalid or expired.
func (r *Router) denyAuth(w http.ResponseWriter, req *http.Request, ch model.Channel) {
	if ch.IsWeb() {
		http.Redirect(w, req, "/account/login", http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusForbidden)
}

func remoteAddr(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
