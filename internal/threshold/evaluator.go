package threshold

import (
	"github.com/mdp211/flowmeter-monitor/internal/model"
)

// Breach describes one fired threshold violation.
type Breach struct {
	Severity  model.Severity
	Threshold float64
}

// Evaluator decides whether a reading value violates a user's configured
// bounds and at what severity.
type Evaluator struct{}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate checks value against bound. The high side is checked first and
// short-circuits, so at most one severity fires per evaluation. A side set
// to exactly 0 is disabled and never triggers. Medium severity exists in
// the model but is never produced here.
func (e *Evaluator) Evaluate(value float64, bound model.Bound) (Breach, bool) {
	if bound.High != 0 && value > bound.High {
		return Breach{Severity: model.SeverityHigh, Threshold: bound.High}, true
	}
	if bound.Low != 0 && value < bound.Low {
		return Breach{Severity: model.SeverityLow, Threshold: bound.Low}, true
	}
	return Breach{}, false
}
