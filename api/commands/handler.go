package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetguard/fleetguard/api/respond"
	"github.com/fleetguard/fleetguard/core/command"
	"github.com/fleetguard/fleetguard/core/logger"
	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/core/model"
)

// storeTimeout bounds every persistence call made by the handlers.
const storeTimeout = 5 * time.Second

// DefaultRecentLimit is how many commands a GET returns by default,
// matching what onboard agents poll for.
const DefaultRecentLimit = 20

// Handler serves the command submission and query endpoints.
type Handler struct {
	dispatcher *command.Dispatcher
	sink       coremetrics.MetricsSink
	log        logger.Logger
	limit      int
}

// NewHandler wires the command endpoints. sink nil falls back to the no-op
// sink; defaultLimit <= 0 to DefaultRecentLimit.
func NewHandler(d *command.Dispatcher, sink coremetrics.MetricsSink, log logger.Logger, defaultLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = DefaultRecentLimit
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Handler{dispatcher: d, sink: sink, log: log, limit: defaultLimit}
}

// Submit handles POST: validate against the allow-list, persist as PENDING,
// return the stored record.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req command.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		verr := model.NewInvalidPayload("request body is not valid JSON")
		h.countRejection(verr)
		respond.Validation(w, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := h.dispatcher.Submit(ctx, req)
	if err != nil {
		if verr, ok := model.AsValidation(err); ok {
			h.countRejection(verr)
			respond.Validation(w, verr)
			return
		}
		h.log.Errorf("command submit for %s failed: %v", req.VehicleID, err)
		respond.Storage(w)
		return
	}

	respond.JSON(w, http.StatusCreated, rec)
}

// Recent handles GET: the newest commands, timestamp-descending.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := h.limit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	records, err := h.dispatcher.Recent(ctx, limit)
	if err != nil {
		h.log.Errorf("command query failed: %v", err)
		respond.Storage(w)
		return
	}
	if records == nil {
		records = []model.CommandRecord{}
	}
	respond.JSON(w, http.StatusOK, records)
}

func (h *Handler) countRejection(verr *model.ValidationError) {
	if rec, ok := h.sink.(coremetrics.CommandRecorder); ok {
		_ = rec.RecordCommandRejection(coremetrics.CommandRejectionEvent{
			Kind: string(verr.Kind),
			Time: time.Now(),
		})
	}
}
