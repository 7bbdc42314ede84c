package domain

import (
	"math"

	"github.com/google/uuid"
)

// EstimateResult is the value object returned by every rate estimator.
// Values are expressed as percentages and clamped to [0, 100], with
// 0 <= CILow <= Estimate <= CIHigh <= 100 and CIWidth = CIHigh - CILow.
type EstimateResult struct {
	ID       string  `json:"id"`
	Estimate float64 `json:"estimate"`
	CILow    float64 `json:"ci_low"`
	CIHigh   float64 `json:"ci_high"`
	CIWidth  float64 `json:"ci_width"`
	Method   string  `json:"method"`
	Patients int     `json:"patients"`
	Events   int     `json:"events"`

	// Warnings records scientific-fallback situations (numeric degeneracy)
	// that were resolved with a documented neutral value.
	Warnings []string       `json:"warnings,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewEstimateResult builds a result from fractional rates in [0, 1],
// converting to percentages and enforcing the ordering and clamping
// invariants. Estimators construct results only through this helper.
func NewEstimateResult(method string, estimate, ciLow, ciHigh float64, patients, events int) *EstimateResult {
	est := clampPercent(estimate * 100)
	lo := clampPercent(ciLow * 100)
	hi := clampPercent(ciHigh * 100)

	// Interval bounds bracket the point estimate.
	if lo > est {
		lo = est
	}
	if hi < est {
		hi = est
	}

	return &EstimateResult{
		ID:       uuid.New().String(),
		Estimate: est,
		CILow:    lo,
		CIHigh:   hi,
		CIWidth:  hi - lo,
		Method:   method,
		Patients: patients,
		Events:   events,
		Metadata: make(map[string]any),
	}
}

// AddWarning attaches a degeneracy warning to the result.
func (r *EstimateResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}

// Input carries estimator inputs keyed by field name. Optional fields are
// represented as present-or-absent rather than sentinel values; typed
// accessors report absence explicitly.
type Input map[string]any

// Has reports whether a field is present.
func (in Input) Has(field string) bool {
	_, ok := in[field]
	return ok
}

// Int returns an integer field, accepting whole-valued floats from decoded
// JSON.
func (in Input) Int(field string) (int, bool) {
	switch v := in[field].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Float returns a numeric field as float64.
func (in Input) Float(field string) (float64, bool) {
	switch v := in[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool returns a boolean field.
func (in Input) Bool(field string) (bool, bool) {
	v, ok := in[field].(bool)
	return v, ok
}

// Prior returns a Beta prior field.
func (in Input) Prior(field string) (*PriorSpec, bool) {
	switch v := in[field].(type) {
	case *PriorSpec:
		return v, true
	case PriorSpec:
		return &v, true
	default:
		return nil, false
	}
}

// Studies returns a study-list field.
func (in Input) Studies(field string) ([]StudyRecord, bool) {
	switch v := in[field].(type) {
	case []StudyRecord:
		return v, true
	case []*StudyRecord:
		out := make([]StudyRecord, len(v))
		for i, s := range v {
			if s == nil {
				return nil, false
			}
			out[i] = *s
		}
		return out, true
	default:
		return nil, false
	}
}

// Observations returns a time-to-event observation list field.
func (in Input) Observations(field string) ([]Observation, bool) {
	v, ok := in[field].([]Observation)
	return v, ok
}
