package warning

import (
	"context"
	"fmt"
	"time"

	"github.com/mdp211/flowmeter-monitor/internal/model"
	"github.com/mdp211/flowmeter-monitor/internal/store"
	"go.uber.org/zap"
)

// Recorder persists fired warnings and indexes them for the affected user.
type Recorder struct {
	store  store.Store
	logger *zap.Logger
}

// NewRecorder creates a new warning recorder.
func NewRecorder(st store.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: st, logger: logger}
}

// Record appends a warning under the flowmeter's warning collection and
// marks it in the user's warning index. There is no deduplication: a value
// that stays out of bounds across updates produces a new warning each time.
func (r *Recorder) Record(
	ctx context.Context,
	userID string,
	flowmeterID string,
	metric model.Metric,
	severity model.Severity,
	value float64,
	thresholdValue float64,
) (string, error) {
	record := model.Warning{
		UserID:         userID,
		Metric:         metric,
		Severity:       severity,
		ReadingValue:   value,
		ThresholdValue: thresholdValue,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Acknowledged:   false,
		AcknowledgedAt: nil,
	}

	warningID, err := r.store.Push(ctx, store.WarningsPath(flowmeterID), record)
	if err != nil {
		return "", fmt.Errorf("failed to record warning: %w", err)
	}

	// Presence marker for O(1) "warnings addressed to user" lookups.
	if err := r.store.Set(ctx, store.UserWarningPath(userID, warningID), true); err != nil {
		return "", fmt.Errorf("failed to index warning for user: %w", err)
	}

	r.logger.Info("warning recorded",
		zap.String("warning_id", warningID),
		zap.String("flowmeter_id", flowmeterID),
		zap.String("user_id", userID),
		zap.String("metric", string(metric)),
		zap.String("severity", string(severity)),
		zap.Float64("value", value),
		zap.Float64("threshold", thresholdValue),
	)

	return warningID, nil
}
