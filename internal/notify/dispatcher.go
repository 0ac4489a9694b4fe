package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mdp211/flowmeter-monitor/internal/metrics"
	"github.com/mdp211/flowmeter-monitor/internal/model"
	"github.com/mdp211/flowmeter-monitor/internal/store"
	"go.uber.org/zap"
)

// DeliveryFailure records one device that could not be notified.
type DeliveryFailure struct {
	DeviceID string
	Err      error
}

// DeliveryReport aggregates the outcome of one alert fan-out across a
// user's devices.
type DeliveryReport struct {
	Sent     int
	Skipped  int
	Failures []DeliveryFailure
}

// Dispatcher formats threshold alerts and pushes them to every registered
// device of a user. It never returns an error to the caller: delivery
// problems are confined to the report and the log.
type Dispatcher struct {
	store  store.Store
	push   Pusher
	logger *zap.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(st store.Store, push Pusher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{store: st, push: push, logger: logger}
}

// Notify fans one threshold alert out to all enabled devices of userID.
// One bad token never prevents delivery to the user's other devices.
func (d *Dispatcher) Notify(
	ctx context.Context,
	userID string,
	flowmeterID string,
	metric model.Metric,
	severity model.Severity,
	value float64,
	thresholdValue float64,
) DeliveryReport {
	var report DeliveryReport

	devices, err := d.loadDevices(ctx, userID)
	if err != nil {
		d.logger.Error("failed to load devices for notification",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return report
	}
	if len(devices) == 0 {
		return report
	}

	serial := d.serialNumber(ctx, flowmeterID)

	title := fmt.Sprintf("%s %s Alert", strings.ToUpper(string(severity)), metric.DisplayName())
	body := fmt.Sprintf("Flowmeter %s %s exceeded %s threshold: %.2f > %.2f",
		serial, metric, severity, value, thresholdValue)
	data := map[string]string{
		"type":         "threshold_warning",
		"metric":       string(metric),
		"severity":     string(severity),
		"flowmeter_id": flowmeterID,
		"reading":      fmt.Sprintf("%.2f", value),
		"threshold":    fmt.Sprintf("%.2f", thresholdValue),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}

	for deviceID, device := range devices {
		if !device.Enabled() {
			report.Skipped++
			continue
		}

		if err := d.push.Send(ctx, device.Token, title, body, data); err != nil {
			report.Failures = append(report.Failures, DeliveryFailure{DeviceID: deviceID, Err: err})
			metrics.NotificationsFailed.Inc()
			d.logger.Error("failed to deliver notification",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("device_id", deviceID),
			)
			continue
		}

		report.Sent++
		metrics.NotificationsSent.Inc()
	}

	d.logger.Info("alert fan-out complete",
		zap.String("user_id", userID),
		zap.String("flowmeter_id", flowmeterID),
		zap.String("metric", string(metric)),
		zap.String("severity", string(severity)),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
	)

	return report
}

func (d *Dispatcher) loadDevices(ctx context.Context, userID string) (map[string]model.Device, error) {
	raw, err := d.store.Children(ctx, store.DevicesPath(userID))
	if err != nil {
		return nil, err
	}

	devices := make(map[string]model.Device, len(raw))
	for id, doc := range raw {
		var device model.Device
		if err := json.Unmarshal(doc, &device); err != nil {
			d.logger.Warn("skipping malformed device record",
				zap.String("user_id", userID),
				zap.String("device_id", id),
				zap.Error(err),
			)
			continue
		}
		devices[id] = device
	}
	return devices, nil
}

// serialNumber resolves the flowmeter's display serial, falling back to the
// opaque id so a metadata read failure cannot block the alert.
func (d *Dispatcher) serialNumber(ctx context.Context, flowmeterID string) string {
	raw, err := d.store.Get(ctx, store.FlowmeterPath(flowmeterID))
	if err != nil {
		d.logger.Warn("failed to load flowmeter metadata for alert",
			zap.Error(err),
			zap.String("flowmeter_id", flowmeterID),
		)
		return flowmeterID
	}

	var meter model.FlowMeter
	if err := json.Unmarshal(raw, &meter); err != nil || meter.SerialNumber == "" {
		return flowmeterID
	}
	return meter.SerialNumber
}
