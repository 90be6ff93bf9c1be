package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/greenfield-academy/website/internal/telemetry/metrics"
	"github.com/greenfield-academy/website/internal/telemetry/tracing"
	"github.com/greenfield-academy/website/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxLoginBodyBytes = 16 << 10

type Handler struct {
	service       *Service
	cookieOptions SessionCookieOptions
	metrics       *metrics.Manager
}

func NewHandler(
	service *Service,
	cookieOptions SessionCookieOptions,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		service:       service,
		cookieOptions: cookieOptions,
		metrics:       metricsManager,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	authRouter := mainRouter.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/login", handler.handleLogin).Methods("POST").Name("login")
	authRouter.HandleFunc("/logout", handler.handleLogout).Methods("POST").Name("logout")

	// gated by the route guard, which puts the verified claim into the context
	mainRouter.HandleFunc("/api/admin/session", handler.handleSession).Methods("GET").Name("session")
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.login")
	defer span.End()

	creds, err := decodeCredentials(w, r)
	if err != nil {
		log.Tracef("login, invalid payload: %s", err)
		handler.metrics.CounterLoginAttempts.WithLabelValues("invalid-payload").Inc()
		span.SetStatus(codes.Error, "invalid-payload")
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	span.SetAttributes(attribute.String("login.username", creds.Username))

	token, err := handler.service.Login(ctx, creds)
	switch {
	case errors.Is(err, ErrValidation):
		handler.metrics.CounterLoginAttempts.WithLabelValues("invalid-payload").Inc()
		span.SetStatus(codes.Error, "invalid-payload")
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	case errors.Is(err, ErrInvalidCredentials):
		log.Tracef("failed login attempt for user: %s", creds.Username)
		handler.metrics.CounterLoginAttempts.WithLabelValues("invalid-credentials").Inc()
		span.SetStatus(codes.Error, "invalid-credentials")
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		log.Errorf("login for user %s failed: %s", creds.Username, err)
		handler.metrics.CounterLoginAttempts.WithLabelValues("error").Inc()
		span.SetStatus(codes.Error, "login-error")
		span.RecordError(err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	SetSessionCookie(w, token, handler.cookieOptions)
	handler.metrics.CounterLoginAttempts.WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "ok")

	log.Debugf("new login success for user: %s", creds.Username)
	pkg.WriteJSONOK(w, map[string]bool{"success": true})
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.logout")
	defer span.End()

	ClearSessionCookie(w, handler.cookieOptions)
	pkg.WriteJSONOK(w, map[string]bool{"success": true})
}

func (handler *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.session")
	defer span.End()

	claim, ok := ClaimFromContext(r.Context())
	if !ok {
		span.SetStatus(codes.Error, "no-claim")
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	pkg.WriteJSONOK(w, struct {
		Username  string    `json:"username"`
		Subject   string    `json:"sub"`
		ExpiresAt time.Time `json:"expiresAt"`
	}{
		Username:  claim.Username,
		Subject:   claim.Subject,
		ExpiresAt: claim.ExpiresAt,
	})
}

// decodeCredentials accepts exactly one JSON object with known fields only.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (Credentials, error) {
	var creds Credentials
	if r.Body == nil {
		return creds, ErrValidation
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&creds); err != nil {
		return creds, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return creds, fmt.Errorf("%w: trailing data after json object", ErrValidation)
	}
	if err := creds.Validate(); err != nil {
		return creds, err
	}

	return creds, nil
}
