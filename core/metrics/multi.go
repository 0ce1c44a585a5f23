package metrics

// MultiSink fans events out to multiple sinks. Optional recorder methods
// are forwarded only to sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordFleetSnapshot forwards the snapshot to all sinks, returning the
// first error encountered.
func (m *MultiSink) RecordFleetSnapshot(ev FleetSnapshotEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordFleetSnapshot(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordIngest forwards ingest counts.
func (m *MultiSink) RecordIngest(ev IngestEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(IngestRecorder); ok {
			if err := rec.RecordIngest(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordValidationFailure forwards rejection counts.
func (m *MultiSink) RecordValidationFailure(ev ValidationFailureEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(IngestRecorder); ok {
			if err := rec.RecordValidationFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordVehicleState forwards per-vehicle observations.
func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(VehicleStateRecorder); ok {
			if err := rec.RecordVehicleState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCommand forwards command submissions.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CommandRecorder); ok {
			if err := rec.RecordCommand(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCommandRejection forwards command rejections.
func (m *MultiSink) RecordCommandRejection(ev CommandRejectionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CommandRecorder); ok {
			if err := rec.RecordCommandRejection(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAlertTransition forwards latch flips.
func (m *MultiSink) RecordAlertTransition(ev AlertTransitionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AlertRecorder); ok {
			if err := rec.RecordAlertTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAcknowledge forwards operator acknowledgments.
func (m *MultiSink) RecordAcknowledge(ev AcknowledgeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AckRecorder); ok {
			if err := rec.RecordAcknowledge(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
