package model

import "time"

// Metric identifies one measured quantity on a flowmeter.
type Metric string

const (
	MetricFlowrate    Metric = "flowrate"
	MetricTemperature Metric = "temperature"
	MetricPressure    Metric = "pressure"
	MetricHumidity    Metric = "humidity"
)

// EvaluatedMetrics lists the metrics that are checked against user
// thresholds. Humidity is stored but never evaluated.
func EvaluatedMetrics() []Metric {
	return []Metric{MetricFlowrate, MetricTemperature, MetricPressure}
}

// DisplayName returns the capitalized form used in alert titles.
func (m Metric) DisplayName() string {
	switch m {
	case MetricFlowrate:
		return "Flowrate"
	case MetricTemperature:
		return "Temperature"
	case MetricPressure:
		return "Pressure"
	case MetricHumidity:
		return "Humidity"
	}
	return string(m)
}

// Severity is the breach tier of a warning.
type Severity string

const (
	SeverityLow Severity = "low"
	// SeverityMedium is declared but the evaluator never produces it.
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Bound is a per (user, flowmeter, metric) threshold pair. A side set to
// exactly 0 is disabled and never triggers.
type Bound struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ReadingUpdate carries the validated input for one flowmeter update.
// Nil fields were not supplied and must not overwrite stored values.
type ReadingUpdate struct {
	Flowrate    *float64
	Temperature *float64
	Pressure    *float64
	Humidity    *float64
	Timestamp   time.Time
}

// Metrics returns the supplied values keyed by metric.
func (r ReadingUpdate) Metrics() map[Metric]float64 {
	values := make(map[Metric]float64, 4)
	if r.Flowrate != nil {
		values[MetricFlowrate] = *r.Flowrate
	}
	if r.Temperature != nil {
		values[MetricTemperature] = *r.Temperature
	}
	if r.Pressure != nil {
		values[MetricPressure] = *r.Pressure
	}
	if r.Humidity != nil {
		values[MetricHumidity] = *r.Humidity
	}
	return values
}

// FlowMeter is the stored identity record of one physical device.
type FlowMeter struct {
	SerialNumber string `json:"serial_number"`
}

// Warning is one persisted threshold breach. The authoritative record lives
// under its flowmeter; users hold an id index only.
type Warning struct {
	ID             string   `json:"id,omitempty"`
	UserID         string   `json:"user_id"`
	Metric         Metric   `json:"metric_type"`
	Severity       Severity `json:"severity"`
	ReadingValue   float64  `json:"reading_value"`
	ThresholdValue float64  `json:"threshold_value"`
	Timestamp      string   `json:"timestamp"`
	Acknowledged   bool     `json:"acknowledged"`
	AcknowledgedAt *string  `json:"acknowledged_at"`
}

// Device is a push-notification endpoint registered to a user.
type Device struct {
	Token string `json:"token"`
	// NotificationsEnabled defaults to true when absent from the store.
	NotificationsEnabled *bool `json:"notifications_enabled,omitempty"`
}

// Enabled reports whether the device should receive pushes.
func (d Device) Enabled() bool {
	return d.NotificationsEnabled == nil || *d.NotificationsEnabled
}
