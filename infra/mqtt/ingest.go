package mqtt

import (
	"context"
	"encoding/json"
	"time"

	coremetrics "github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/core/model"
	"github.com/fleetguard/fleetguard/core/monitoring"
	"github.com/fleetguard/fleetguard/core/store"
	coretelemetry "github.com/fleetguard/fleetguard/core/telemetry"
	"github.com/fleetguard/fleetguard/infra/logger"
)

// storeTimeout bounds persistence calls made from broker callbacks.
const storeTimeout = 5 * time.Second

// Ingestor accepts telemetry pushed over the broker. It applies the same
// validate-persist-archive sequence as the HTTP ingest endpoint, so a record
// is held to one standard regardless of transport.
type Ingestor struct {
	validator *coretelemetry.Validator
	store     store.TelemetryStore
	archive   *store.Archive
	sink      coremetrics.MetricsSink
	log       logger.Logger
}

// NewIngestor wires the broker-side ingest path. archive may be nil; sink
// nil falls back to the no-op sink.
func NewIngestor(v *coretelemetry.Validator, st store.TelemetryStore, archive *store.Archive, sink coremetrics.MetricsSink, log logger.Logger) *Ingestor {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Ingestor{validator: v, store: st, archive: archive, sink: sink, log: log}
}

// Handle processes one telemetry payload. Broker deliveries have no reply
// channel, so rejections are counted and logged instead of returned.
func (i *Ingestor) Handle(payload []byte) {
	var raw coretelemetry.RawRecord
	if err := json.Unmarshal(payload, &raw); err != nil {
		i.countRejection(model.NewInvalidPayload("payload is not valid JSON"))
		i.log.Warnf("telemetry payload rejected: %v", err)
		return
	}

	rec, err := i.validator.Validate(raw)
	if err != nil {
		verr, ok := model.AsValidation(err)
		if !ok {
			verr = model.NewInvalidPayload(err.Error())
		}
		i.countRejection(verr)
		vid := ""
		if raw.VehicleID != nil {
			vid = *raw.VehicleID
		}
		i.log.Warnf("telemetry from %q rejected: %v", vid, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	id, err := i.store.InsertTelemetry(ctx, rec)
	if err != nil {
		i.log.Errorf("telemetry insert for %s failed: %v", rec.VehicleID, err)
		monitoring.CaptureException(err, map[string]string{
			"module":     "mqtt_ingest",
			"vehicle_id": rec.VehicleID,
		})
		return
	}
	rec.ID = id

	if i.archive != nil {
		if err := i.archive.AppendTelemetry(rec); err != nil {
			i.log.Warnf("telemetry archive append failed: %v", err)
		}
	}
	if rec.Degraded {
		i.log.Debugf("degraded record from %s: driver info missing", rec.VehicleID)
	}
	if ing, ok := i.sink.(coremetrics.IngestRecorder); ok {
		_ = ing.RecordIngest(coremetrics.IngestEvent{
			VehicleID: rec.VehicleID,
			Degraded:  rec.Degraded,
			Time:      time.Now(),
		})
	}
}

func (i *Ingestor) countRejection(verr *model.ValidationError) {
	if ing, ok := i.sink.(coremetrics.IngestRecorder); ok {
		_ = ing.RecordValidationFailure(coremetrics.ValidationFailureEvent{
			Kind:  string(verr.Kind),
			Field: verr.Field,
			Time:  time.Now(),
		})
	}
}
