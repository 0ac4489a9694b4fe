package validator

import (
	"fmt"
	"time"

	"github.com/mdp211/flowmeter-monitor/tools/timeparser"
)

// Result describes how the effective reading timestamp was chosen.
type Result struct {
	UsedFallback bool
	Reason       string
}

// Validator resolves the effective timestamp of a reading update.
type Validator struct {
	timestampToleranceMinutes int
}

// NewValidator creates a validator with the specified tolerance window.
func NewValidator(timestampToleranceMinutes int) *Validator {
	return &Validator{
		timestampToleranceMinutes: timestampToleranceMinutes,
	}
}

// ReadingTimestamp parses an optional device-supplied timestamp. Absent,
// unparseable or out-of-tolerance timestamps fall back to the server
// receive time; a bad timestamp never rejects the update.
func (v *Validator) ReadingTimestamp(raw string, receivedAt time.Time) (time.Time, Result) {
	if raw == "" {
		return receivedAt.UTC(), Result{}
	}

	readingTime, err := timeparser.ParseReadingTimestamp(raw)
	if err != nil {
		return receivedAt.UTC(), Result{
			UsedFallback: true,
			Reason:       fmt.Sprintf("invalid timestamp format: %v", err),
		}
	}

	if !timeparser.IsWithinTolerance(readingTime, receivedAt, v.timestampToleranceMinutes) {
		return receivedAt.UTC(), Result{
			UsedFallback: true,
			Reason:       fmt.Sprintf("timestamp outside tolerance window (±%d minutes)", v.timestampToleranceMinutes),
		}
	}

	return readingTime.UTC(), Result{}
}
