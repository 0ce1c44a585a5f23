package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetguard/fleetguard/api/respond"
	"github.com/fleetguard/fleetguard/core/logger"
	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/monitoring"
	"github.com/fleetguard/fleetguard/core/store"
	coretelemetry "github.com/fleetguard/fleetguard/core/telemetry"
	"github.com/fleetguard/fleetguard/pkg/export"
)

// storeTimeout bounds every persistence call made by the handlers.
const storeTimeout = 5 * time.Second

// Handler serves the telemetry ingest, query, and export endpoints.
type Handler struct {
	validator *coretelemetry.Validator
	store     store.TelemetryStore
	archive   *store.Archive
	sink      coremetrics.MetricsSink
	log       logger.Logger
	limit     int
}

// NewHandler wires the telemetry endpoints. archive may be nil; sink nil
// falls back to the no-op sink. defaultLimit caps GET responses when the
// request does not name one.
func NewHandler(v *coretelemetry.Validator, st store.TelemetryStore, archive *store.Archive, sink coremetrics.MetricsSink, log logger.Logger, defaultLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 150
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Handler{
		validator: v,
		store:     st,
		archive:   archive,
		sink:      sink,
		log:       log,
		limit:     defaultLimit,
	}
}

// Ingest handles POST: validate, persist, return the assigned id.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var raw coretelemetry.RawRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		verr := model.NewInvalidPayload("request body is not valid JSON")
		h.countRejection(verr)
		respond.Validation(w, verr)
		return
	}

	rec, err := h.validator.Validate(raw)
	if err != nil {
		verr, ok := model.AsValidation(err)
		if !ok {
			verr = model.NewInvalidPayload(err.Error())
		}
		h.countRejection(verr)
		respond.Validation(w, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	id, err := h.store.InsertTelemetry(ctx, rec)
	if err != nil {
		h.log.Errorf("telemetry insert for %s failed: %v", rec.VehicleID, err)
		monitoring.CaptureException(err, map[string]string{
			"module":     "telemetry_api",
			"vehicle_id": rec.VehicleID,
		})
		respond.Storage(w)
		return
	}
	rec.ID = id

	if h.archive != nil {
		if err := h.archive.AppendTelemetry(rec); err != nil {
			h.log.Warnf("telemetry archive append failed: %v", err)
		}
	}
	if rec.Degraded {
		h.log.Debugf("degraded record from %s: driver info missing", rec.VehicleID)
	}
	if ing, ok := h.sink.(coremetrics.IngestRecorder); ok {
		_ = ing.RecordIngest(coremetrics.IngestEvent{
			VehicleID: rec.VehicleID,
			Degraded:  rec.Degraded,
			Time:      time.Now(),
		})
	}

	respond.JSON(w, http.StatusCreated, map[string]string{"insertedId": id})
}

// Recent handles GET: the newest records, timestamp-descending.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	records, ok := h.fetch(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, records)
}

// Export handles GET /export: the same window as Recent, as a CSV or JSON
// download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		respond.Validation(w, model.NewInvalidPayload("format must be csv or json"))
		return
	}

	records, ok := h.fetch(w, r)
	if !ok {
		return
	}

	var err error
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="telemetry.csv"`)
		err = export.WriteTelemetryCSV(w, records)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="telemetry.json"`)
		err = export.WriteTelemetryJSON(w, records)
	}
	if err != nil {
		h.log.Errorf("telemetry export failed: %v", err)
	}
}

// fetch reads the recent window, honoring a positive limit query parameter.
// Invalid values fall back to the configured default. On store failure the
// error response is already written and ok is false.
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) ([]model.TelemetryRecord, bool) {
	limit := h.limit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	records, err := h.store.RecentTelemetry(ctx, limit)
	if err != nil {
		h.log.Errorf("telemetry query failed: %v", err)
		respond.Storage(w)
		return nil, false
	}
	if records == nil {
		records = []model.TelemetryRecord{}
	}
	return records, true
}

func (h *Handler) countRejection(verr *model.ValidationError) {
	if ing, ok := h.sink.(coremetrics.IngestRecorder); ok {
		_ = ing.RecordValidationFailure(coremetrics.ValidationFailureEvent{
			Kind:  string(verr.Kind),
			Field: verr.Field,
			Time:  time.Now(),
		})
	}
}
