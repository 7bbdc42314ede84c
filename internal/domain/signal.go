package domain

import "fmt"

// ReportCounts holds the four 2x2 contingency-table counts for one
// product x adverse-event pair, plus the database-wide report total. The
// counts are supplied by an external report-count collaborator; product and
// event identifiers are opaque strings.
//
//	A: reports with the product and the event
//	B: reports with the product, without the event
//	C: reports without the product, with the event
//	D: reports with neither
type ReportCounts struct {
	Product string `json:"product"`
	Event   string `json:"event"`
	A       int64  `json:"a" validate:"min=0"`
	B       int64  `json:"b" validate:"min=0"`
	C       int64  `json:"c" validate:"min=0"`
	D       int64  `json:"d" validate:"min=0"`
	Total   int64  `json:"total" validate:"min=0"`
}

// Validate ensures all counts are non-negative and consistent with the
// database total when one is supplied.
func (rc *ReportCounts) Validate() error {
	for _, c := range []struct {
		name  string
		value int64
	}{{"a", rc.A}, {"b", rc.B}, {"c", rc.C}, {"d", rc.D}} {
		if c.value < 0 {
			return &ValidationError{Field: c.name, Message: "report count cannot be negative", Value: c.value}
		}
	}
	if rc.Total < 0 {
		return &ValidationError{Field: "total", Message: "database total cannot be negative", Value: rc.Total}
	}
	sum := rc.A + rc.B + rc.C + rc.D
	if rc.Total > 0 && sum > rc.Total {
		return &ValidationError{
			Field:   "total",
			Message: fmt.Sprintf("table sum %d exceeds database total", sum),
			Value:   rc.Total,
		}
	}
	return nil
}

// FAERSSignal is one product x adverse-event disproportionality assessment.
// Created fresh per call and owned by the caller; the Strength tier is a
// deterministic function of the numeric fields.
type FAERSSignal struct {
	ID      string       `json:"id"`
	Counts  ReportCounts `json:"counts"`

	PRR     float64 `json:"prr"`
	PRRLow  float64 `json:"prr_ci_low"`
	PRRHigh float64 `json:"prr_ci_high"`

	ROR     float64 `json:"ror"`
	RORLow  float64 `json:"ror_ci_low"`
	RORHigh float64 `json:"ror_ci_high"`

	EBGM   float64 `json:"ebgm"`
	EBGM05 float64 `json:"ebgm05"`

	CaseCount int64          `json:"case_count"`
	Signal    bool           `json:"signal"`
	Strength  SignalStrength `json:"strength"`

	Warnings []string `json:"warnings,omitempty"`
}

// LogFields returns structured logging fields for pharmacovigilance audit
// trails.
func (s *FAERSSignal) LogFields() map[string]any {
	return map[string]any{
		"product":    s.Counts.Product,
		"event":      s.Counts.Event,
		"prr":        s.PRR,
		"ror":        s.ROR,
		"ebgm":       s.EBGM,
		"ebgm05":     s.EBGM05,
		"case_count": s.CaseCount,
		"signal":     s.Signal,
		"strength":   s.Strength.String(),
	}
}
