package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mdp211/flowmeter-monitor/internal/events"
	"github.com/mdp211/flowmeter-monitor/internal/metrics"
	"github.com/mdp211/flowmeter-monitor/internal/model"
	"github.com/mdp211/flowmeter-monitor/internal/notify"
	"github.com/mdp211/flowmeter-monitor/internal/store"
	"github.com/mdp211/flowmeter-monitor/internal/threshold"
	"github.com/mdp211/flowmeter-monitor/internal/warning"
	"go.uber.org/zap"
)

// Service orchestrates the reading ingest pipeline: persist the update,
// then for every associated user evaluate thresholds, record warnings and
// dispatch notifications.
type Service struct {
	store      store.Store
	evaluator  *threshold.Evaluator
	recorder   *warning.Recorder
	dispatcher *notify.Dispatcher
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewService creates the monitor service.
func NewService(
	st store.Store,
	evaluator *threshold.Evaluator,
	recorder *warning.Recorder,
	dispatcher *notify.Dispatcher,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:      st,
		evaluator:  evaluator,
		recorder:   recorder,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// UpdateReadings merges the supplied fields into the flowmeter's current
// readings, appends one history entry, and fans alerting out to every
// associated user. No associated users is not an error.
func (s *Service) UpdateReadings(ctx context.Context, serialNumber string, update model.ReadingUpdate) error {
	flowmeterID, err := s.resolveSerial(ctx, serialNumber)
	if err != nil {
		return err
	}

	timestamp := update.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	values := update.Metrics()
	fields := make(map[string]interface{}, len(values)+1)
	for metric, value := range values {
		fields[string(metric)] = value
	}
	fields["timestamp"] = timestamp.Format(time.RFC3339)

	if err := s.store.Update(ctx, store.ReadingsPath(flowmeterID), fields); err != nil {
		return fmt.Errorf("failed to update readings: %w", err)
	}

	// The history log records the merged snapshot, one entry per update.
	snapshot, err := s.store.Get(ctx, store.ReadingsPath(flowmeterID))
	if err != nil {
		return fmt.Errorf("failed to read back snapshot: %w", err)
	}
	if _, err := s.store.Push(ctx, store.HistoryPath(flowmeterID), snapshot); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	metrics.ReadingsIngested.Inc()
	s.publishReadingAccepted(ctx, flowmeterID, serialNumber, timestamp, values)

	users, err := s.store.Children(ctx, store.FlowmeterUsersPath(flowmeterID))
	if err != nil {
		return fmt.Errorf("failed to list flowmeter users: %w", err)
	}

	for userID := range users {
		if err := s.evaluateForUser(ctx, userID, flowmeterID, values); err != nil {
			return err
		}
	}

	s.logger.Info("readings updated",
		zap.String("flowmeter_id", flowmeterID),
		zap.String("serial_number", serialNumber),
		zap.Int("metric_count", len(values)),
		zap.Int("user_count", len(users)),
	)

	return nil
}

// evaluateForUser checks every evaluated metric present in this update
// against one user's configured bounds for the flowmeter.
func (s *Service) evaluateForUser(ctx context.Context, userID, flowmeterID string, values map[model.Metric]float64) error {
	for _, metric := range model.EvaluatedMetrics() {
		value, present := values[metric]
		if !present {
			continue
		}

		bound, ok, err := s.loadBound(ctx, userID, flowmeterID, metric)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		breach, fired := s.evaluator.Evaluate(value, bound)
		if !fired {
			continue
		}

		warningID, err := s.recorder.Record(ctx, userID, flowmeterID, metric, breach.Severity, value, breach.Threshold)
		if err != nil {
			return err
		}

		metrics.WarningsFired.WithLabelValues(string(metric), string(breach.Severity)).Inc()
		s.publishWarningFired(ctx, warningID, flowmeterID, userID, metric, breach, value)

		// Delivery problems stay inside the dispatcher's report.
		s.dispatcher.Notify(ctx, userID, flowmeterID, metric, breach.Severity, value, breach.Threshold)
	}
	return nil
}

// AcknowledgeWarning marks a warning as acknowledged by its owner.
// Re-acknowledging overwrites the same fields and is permitted.
func (s *Service) AcknowledgeWarning(ctx context.Context, warningID, flowmeterID, userID string) error {
	path := store.WarningPath(flowmeterID, warningID)

	raw, err := s.store.Get(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: warning %s on flowmeter %s", ErrNotFound, warningID, flowmeterID)
	}
	if err != nil {
		return fmt.Errorf("failed to load warning: %w", err)
	}

	var record model.Warning
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("failed to unmarshal warning: %w", err)
	}

	if record.UserID != userID {
		return fmt.Errorf("%w: warning %s does not belong to user %s", ErrPermissionDenied, warningID, userID)
	}

	err = s.store.Update(ctx, path, map[string]interface{}{
		"acknowledged":    true,
		"acknowledged_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to acknowledge warning: %w", err)
	}

	s.logger.Info("warning acknowledged",
		zap.String("warning_id", warningID),
		zap.String("flowmeter_id", flowmeterID),
		zap.String("user_id", userID),
	)
	return nil
}

// resolveSerial maps an externally visible serial number to the internal
// flowmeter id.
func (s *Service) resolveSerial(ctx context.Context, serialNumber string) (string, error) {
	matches, err := s.store.Query(ctx, store.FlowmetersPath, "serial_number", serialNumber)
	if err != nil {
		return "", fmt.Errorf("failed to query flowmeters: %w", err)
	}
	for id := range matches {
		return id, nil
	}
	return "", fmt.Errorf("%w: flowmeter with serial number %s", ErrNotFound, serialNumber)
}

func (s *Service) publishReadingAccepted(ctx context.Context, flowmeterID, serialNumber string, timestamp time.Time, values map[model.Metric]float64) {
	event := events.ReadingAcceptedEvent{
		FlowmeterID:  flowmeterID,
		SerialNumber: serialNumber,
		Timestamp:    timestamp.Format(time.RFC3339),
		Metrics:      make(map[string]float64, len(values)),
	}
	for metric, value := range values {
		event.Metrics[string(metric)] = value
	}

	if err := s.publisher.PublishReadingAccepted(ctx, event); err != nil {
		s.logger.Error("failed to publish reading-accepted event",
			zap.Error(err),
			zap.String("flowmeter_id", flowmeterID),
		)
	}
}

func (s *Service) publishWarningFired(ctx context.Context, warningID, flowmeterID, userID string, metric model.Metric, breach threshold.Breach, value float64) {
	event := events.WarningFiredEvent{
		WarningID:   warningID,
		FlowmeterID: flowmeterID,
		UserID:      userID,
		Metric:      string(metric),
		Severity:    string(breach.Severity),
		Value:       value,
		Threshold:   breach.Threshold,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.publisher.PublishWarningFired(ctx, event); err != nil {
		s.logger.Error("failed to publish warning-fired event",
			zap.Error(err),
			zap.String("warning_id", warningID),
		)
	}
}

// loadBound reads one user's bound for (flowmeter, metric). A missing path
// means no threshold is configured for that metric.
func (s *Service) loadBound(ctx context.Context, userID, flowmeterID string, metric model.Metric) (model.Bound, bool, error) {
	raw, err := s.store.Get(ctx, store.ThresholdPath(userID, flowmeterID, string(metric)))
	if errors.Is(err, store.ErrNotFound) {
		return model.Bound{}, false, nil
	}
	if err != nil {
		return model.Bound{}, false, fmt.Errorf("failed to load threshold: %w", err)
	}

	var bound model.Bound
	if err := json.Unmarshal(raw, &bound); err != nil {
		return model.Bound{}, false, fmt.Errorf("failed to unmarshal threshold: %w", err)
	}
	return bound, true, nil
}
