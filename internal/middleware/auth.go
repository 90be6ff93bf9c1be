package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/greenfield-academy/website/internal/auth"
	"github.com/greenfield-academy/website/internal/telemetry/metrics"
	"github.com/greenfield-academy/website/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

type sessionVerifier interface {
	Verify(token string) (*auth.Claim, error)
}

var (
	DefaultProtectedPathPrefixes = []string{"/admin", "/api/admin"}
	DefaultLoginPath             = "/admin/login"
)

// AuthMiddlewareHandler gates the admin surface. Requests to a protected path
// prefix need a verifiable session cookie, otherwise the client is redirected
// to the login page.
type AuthMiddlewareHandler struct {
	verifier          sessionVerifier
	protectedPrefixes []string
	loginPath         string
	publicPaths       []string
	metrics           *metrics.Manager
}

type AuthMiddlewareOption func(*AuthMiddlewareHandler)

// WithPublicPaths lets paths under a protected prefix through without a
// session, like the login path. Meant for the assets the login page loads.
func WithPublicPaths(paths []string) AuthMiddlewareOption {
	return func(h *AuthMiddlewareHandler) {
		for _, p := range paths {
			h.publicPaths = append(h.publicPaths, cleanPath(p))
		}
	}
}

func NewAuthMiddlewareHandler(
	verifier sessionVerifier,
	protectedPrefixes []string,
	loginPath string,
	metricsManager *metrics.Manager,
	opts ...AuthMiddlewareOption,
) *AuthMiddlewareHandler {
	if len(protectedPrefixes) == 0 {
		protectedPrefixes = DefaultProtectedPathPrefixes
	}
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	prefixes := make([]string, 0, len(protectedPrefixes))
	for _, p := range protectedPrefixes {
		prefixes = append(prefixes, cleanPath(p))
	}

	h := &AuthMiddlewareHandler{
		verifier:          verifier,
		protectedPrefixes: prefixes,
		loginPath:         cleanPath(loginPath),
		metrics:           metricsManager,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// matchesPrefix matches whole path segments: /admin covers /admin and
// /admin/x, but not /administrator.
func matchesPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func (h *AuthMiddlewareHandler) isProtected(p string) bool {
	for _, prefix := range h.protectedPrefixes {
		if matchesPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) isPublic(p string) bool {
	if matchesPrefix(p, h.loginPath) {
		return true
	}
	for _, public := range h.publicPaths {
		if matchesPrefix(p, public) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.loginPath, http.StatusTemporaryRedirect)
}

func (h *AuthMiddlewareHandler) decision(decision string) {
	if h.metrics != nil {
		h.metrics.CounterGuardDecisions.WithLabelValues(decision).Inc()
	}
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := cleanPath(r.URL.Path)
			if !h.isProtected(p) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if h.isPublic(p) {
				span.SetStatus(codes.Ok, "public-path")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				log.Tracef("[missing session] [auth middleware] redirect => %s", r.URL.Path)
				h.decision("missing-session")
				span.SetStatus(codes.Error, "missing-session")
				h.redirectToLogin(w, r)
				return
			}

			claim, err := h.verifier.Verify(cookie.Value)
			if err != nil {
				log.Tracef("[invalid session] [auth middleware] redirect => %s: %s", r.URL.Path, err)
				h.decision("invalid-session")
				span.SetStatus(codes.Error, "invalid-session")
				h.redirectToLogin(w, r)
				return
			}

			h.decision("allowed")
			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithClaim(ctx, claim)))
		})
	}
}
