package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/greenfield-academy/website/internal/middleware"
	"github.com/greenfield-academy/website/internal/telemetry/metrics"
	"github.com/greenfield-academy/website/internal/telemetry/tracing"
	"github.com/greenfield-academy/website/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxRecordBodyBytes = 1 << 20

type Handler struct {
	api     *Api
	metrics *metrics.Manager
}

func NewHandler(api *Api, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		api:     api,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	subscribeRatePerMin int,
	trustedProxies pkg.TrustedProxies,
) {
	publicRouter := mainRouter.PathPrefix("/api/content").Subrouter()
	publicRouter.HandleFunc("/{kind}", handler.handlePublicList).Methods("GET").Name("content-list")
	publicRouter.HandleFunc("/{kind}/{id}", handler.handlePublicGet).Methods("GET").Name("content-get")

	// gated by the route guard
	adminRouter := mainRouter.PathPrefix("/api/admin/content").Subrouter()
	adminRouter.HandleFunc("/{kind}", handler.handleAdminList).Methods("GET").Name("admin-content-list")
	adminRouter.HandleFunc("/{kind}", handler.handleAdminCreate).Methods("POST").Name("admin-content-create")
	adminRouter.HandleFunc("/{kind}/{id}", handler.handleAdminGet).Methods("GET").Name("admin-content-get")
	adminRouter.HandleFunc("/{kind}/{id}", handler.handleAdminUpdate).Methods("PUT").Name("admin-content-update")
	adminRouter.HandleFunc("/{kind}/{id}", handler.handleAdminDelete).Methods("DELETE").Name("admin-content-delete")

	mainRouter.Handle(
		"/api/subscribers",
		middleware.RateLimit(rateLimiter, "subscribe", subscribeRatePerMin, trustedProxies, handler.metrics)(
			http.HandlerFunc(handler.handleSubscribe),
		),
	).Methods("POST").Name("subscribe")
}

// kindAndID reads the {kind} and the optional {id} route vars. On failure the
// error response is already written.
func kindAndID(w http.ResponseWriter, r *http.Request, withID bool) (Kind, int, bool) {
	vars := mux.Vars(r)
	kind, err := ParseKind(vars["kind"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "Unknown content kind")
		return "", 0, false
	}
	if !withID {
		return kind, 0, true
	}

	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid id")
		return "", 0, false
	}
	return kind, id, true
}

func writeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, ErrUnknownKind):
		pkg.WriteJSONError(w, http.StatusNotFound, "Unknown content kind")
	case errors.Is(err, ErrRecordNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrInvalidRecord), errors.Is(err, ErrInvalidEmail):
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid payload")
	case errors.Is(err, ErrAlreadySubscribed):
		pkg.WriteJSONError(w, http.StatusConflict, "Already subscribed")
	default:
		log.Errorf("%s: %s", action, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeRecords(w http.ResponseWriter, records []Record) {
	pkg.WriteJSONOK(w, struct {
		Records []Record `json:"records"`
		Total   int      `json:"total"`
	}{
		Records: records,
		Total:   len(records),
	})
}

func decodeStrict(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after json object")
	}
	return nil
}

func (handler *Handler) handlePublicList(w http.ResponseWriter, r *http.Request) {
	kind, _, ok := kindAndID(w, r, false)
	if !ok {
		return
	}

	records, err := handler.api.ListActive(r.Context(), kind)
	if err != nil {
		writeError(w, err, fmt.Sprintf("list public %s", kind))
		return
	}
	writeRecords(w, records)
}

func (handler *Handler) handlePublicGet(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := kindAndID(w, r, true)
	if !ok {
		return
	}

	record, err := handler.api.GetActive(r.Context(), kind, id)
	if err != nil {
		writeError(w, err, fmt.Sprintf("get public %s %d", kind, id))
		return
	}
	pkg.WriteJSONOK(w, record)
}

func (handler *Handler) handleAdminList(w http.ResponseWriter, r *http.Request) {
	kind, _, ok := kindAndID(w, r, false)
	if !ok {
		return
	}

	records, err := handler.api.List(r.Context(), kind)
	if err != nil {
		writeError(w, err, fmt.Sprintf("list %s", kind))
		return
	}
	writeRecords(w, records)
}

func (handler *Handler) handleAdminGet(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := kindAndID(w, r, true)
	if !ok {
		return
	}

	record, err := handler.api.Get(r.Context(), kind, id)
	if err != nil {
		writeError(w, err, fmt.Sprintf("get %s %d", kind, id))
		return
	}
	pkg.WriteJSONOK(w, record)
}

func (handler *Handler) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contentHandler.create")
	defer span.End()

	kind, _, ok := kindAndID(w, r, false)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("content.kind", string(kind)))

	var in RecordInput
	if err := decodeStrict(w, r, &in); err != nil {
		span.SetStatus(codes.Error, "invalid-payload")
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	record, err := handler.api.Create(ctx, kind, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, err, fmt.Sprintf("create %s", kind))
		return
	}

	log.Printf("new %s record added: [%d] %s", kind, record.ID, record.Title)
	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSON(w, http.StatusCreated, record)
}

func (handler *Handler) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contentHandler.update")
	defer span.End()

	kind, id, ok := kindAndID(w, r, true)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("content.kind", string(kind)), attribute.Int("content.id", id))

	var in RecordInput
	if err := decodeStrict(w, r, &in); err != nil {
		span.SetStatus(codes.Error, "invalid-payload")
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	record, err := handler.api.Update(ctx, kind, id, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, err, fmt.Sprintf("update %s %d", kind, id))
		return
	}

	log.Printf("%s record updated: [%d] %s", kind, record.ID, record.Title)
	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSONOK(w, record)
}

func (handler *Handler) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contentHandler.delete")
	defer span.End()

	kind, id, ok := kindAndID(w, r, true)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("content.kind", string(kind)), attribute.Int("content.id", id))

	if err := handler.api.Deactivate(ctx, kind, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, err, fmt.Sprintf("delete %s %d", kind, id))
		return
	}

	log.Printf("%s record deactivated: [%d]", kind, id)
	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSONOK(w, map[string]bool{"success": true})
}

func (handler *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contentHandler.subscribe")
	defer span.End()

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeStrict(w, r, &req); err != nil {
		span.SetStatus(codes.Error, "invalid-payload")
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if _, err := handler.api.Subscribe(ctx, req.Email); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(w, err, "subscribe")
		return
	}

	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
