// Package domain contains core business entities and types for adverse-event
// rate estimation and pharmacovigilance signal detection.
//
// Rate estimation follows standard binomial interval methods (Clopper-Pearson,
// Wilson) and conjugate Bayesian updating; disproportionality follows the
// Multi-Item Gamma-Poisson Shrinker (MGPS) model.
//
// Reference: DuMouchel W (1999) Bayesian data mining in large frequency
// tables, with an application to the FDA Spontaneous Reporting System.
// Am Stat. 53(3):177-90.
package domain

import (
	"errors"
	"fmt"
)

// SignalStrength represents the tiered strength of a pharmacovigilance
// disproportionality signal. The tier is a pure deterministic function of
// the numeric fields on FAERSSignal.
type SignalStrength string

const (
	SIGNAL_NONE     SignalStrength = "NONE"
	SIGNAL_WEAK     SignalStrength = "WEAK"
	SIGNAL_MODERATE SignalStrength = "MODERATE"
	SIGNAL_STRONG   SignalStrength = "STRONG"
)

// Validation errors for statistical data integrity
var (
	ErrUnknownModel     = errors.New("unknown risk model")
	ErrInvalidStrength  = errors.New("invalid signal strength")
	ErrNoStudies        = errors.New("at least one study is required")
	ErrNoObservations   = errors.New("at least one observation is required")
	ErrEventsExceedSize = errors.New("event count exceeds sample size")
)

// IsValid validates that the SignalStrength is one of the four defined tiers.
// Only valid tiers may be attached to a signal assessment used in
// pharmacovigilance decision-making.
func (s SignalStrength) IsValid() bool {
	switch s {
	case SIGNAL_NONE, SIGNAL_WEAK, SIGNAL_MODERATE, SIGNAL_STRONG:
		return true
	default:
		return false
	}
}

// String returns the string representation of the signal strength.
func (s SignalStrength) String() string {
	return string(s)
}

// RequiresReview determines if the signal tier warrants pharmacovigilance
// follow-up.
func (s SignalStrength) RequiresReview() bool {
	switch s {
	case SIGNAL_MODERATE, SIGNAL_STRONG:
		return true
	case SIGNAL_NONE, SIGNAL_WEAK:
		return false
	default:
		return true // Conservative approach for unknown tiers
	}
}

// LogFields returns structured logging fields for audit trails.
func (s SignalStrength) LogFields() map[string]any {
	return map[string]any{
		"signal_strength": string(s),
		"is_valid":        s.IsValid(),
		"requires_review": s.RequiresReview(),
	}
}

// PriorSpec is a Beta-distribution prior with a human-readable provenance
// string describing where the prior mass comes from.
type PriorSpec struct {
	Alpha  float64 `json:"alpha" validate:"gt=0"`
	Beta   float64 `json:"beta" validate:"gt=0"`
	Source string  `json:"source,omitempty"`
}

// Validate ensures the prior is a proper Beta distribution.
func (p *PriorSpec) Validate() error {
	if p.Alpha <= 0 {
		return &ValidationError{Field: "alpha", Message: "prior alpha must be positive", Value: p.Alpha}
	}
	if p.Beta <= 0 {
		return &ValidationError{Field: "beta", Message: "prior beta must be positive", Value: p.Beta}
	}
	return nil
}

// Mean returns the prior mean alpha/(alpha+beta).
func (p *PriorSpec) Mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

// StudyRecord is one meta-analysis or cross-validation unit: a labelled
// cohort with an event count out of a sample size.
type StudyRecord struct {
	Label  string `json:"label"`
	Events int    `json:"events" validate:"min=0"`
	N      int    `json:"n" validate:"min=1"`
}

// Validate enforces 0 <= events <= n.
func (s *StudyRecord) Validate() error {
	if s.N <= 0 {
		return &ValidationError{Field: "n", Message: "sample size must be positive", Value: s.N}
	}
	if s.Events < 0 {
		return &ValidationError{Field: "events", Message: "event count cannot be negative", Value: s.Events}
	}
	if s.Events > s.N {
		return fmt.Errorf("study %q: %w (%d > %d)", s.Label, ErrEventsExceedSize, s.Events, s.N)
	}
	return nil
}

// Rate returns the raw event proportion.
func (s *StudyRecord) Rate() float64 {
	return float64(s.Events) / float64(s.N)
}

// Observation is one subject in a time-to-event analysis. Time is measured
// in days from exposure; Event is false for right-censored subjects.
type Observation struct {
	Time  float64 `json:"time" validate:"min=0"`
	Event bool    `json:"event"`
}

// RiskModel is a static registration record for one rate estimator. Built
// once at process start and never mutated.
type RiskModel struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Contexts       []string    `json:"contexts"`
	RequiredInputs []string    `json:"required_inputs"`
	Compute        ComputeFunc `json:"-"`
}

// ComputeFunc is the single compute capability registered for a model.
type ComputeFunc func(in Input) (*EstimateResult, error)
