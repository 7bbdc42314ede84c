package signal

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ae-risk-core/internal/domain"
)

// Engine performs per-pair disproportionality assessment. It is pure,
// stateless computation over immutable inputs; report counts come from an
// external collaborator.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates a new disproportionality engine
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{logger: logger}
}

// Assess builds the 2x2 table from the supplied counts and computes PRR,
// ROR, EBGM/EBGM05 and the signal-strength tier.
func (e *Engine) Assess(counts domain.ReportCounts) (*domain.FAERSSignal, error) {
	table, err := NewContingencyTable(counts)
	if err != nil {
		return nil, err
	}

	prr := PRR(table)
	ror := ROR(table)
	ebgm := EBGM(table.A, table.Expected())

	sig := &domain.FAERSSignal{
		ID:        uuid.New().String(),
		Counts:    counts,
		PRR:       prr.Point,
		PRRLow:    prr.Low,
		PRRHigh:   prr.High,
		ROR:       ror.Point,
		RORLow:    ror.Low,
		RORHigh:   ror.High,
		EBGM:      ebgm.EBGM,
		EBGM05:    ebgm.EBGM05,
		CaseCount: counts.A,
	}
	sig.Strength = classify(sig)
	sig.Signal = sig.Strength != domain.SIGNAL_NONE

	if prr == (Ratio{}) && counts.A > 0 {
		sig.Warnings = append(sig.Warnings, "PRR undefined for this table; neutral (0,0,0) reported")
	}
	if table.Expected() == 0 {
		sig.Warnings = append(sig.Warnings, "expected count is zero; EBGM not computable")
	}

	e.logger.WithFields(sig.LogFields()).Debug("Disproportionality assessment completed")
	return sig, nil
}

// classify applies the tiered thresholds. The tier is a deterministic
// function of the numeric fields only.
//
//	strong:   PRR >= 2, PRR CI-low > 1, cases >= 3, EBGM05 >= 2
//	moderate: PRR >= 2, ROR CI-low > 1, cases >= 3
//	weak:     PRR >= 1.5 or EBGM05 >= 1
func classify(s *domain.FAERSSignal) domain.SignalStrength {
	switch {
	case s.PRR >= 2 && s.PRRLow > 1 && s.CaseCount >= 3 && s.EBGM05 >= 2:
		return domain.SIGNAL_STRONG
	case s.PRR >= 2 && s.RORLow > 1 && s.CaseCount >= 3:
		return domain.SIGNAL_MODERATE
	case s.PRR >= 1.5 || s.EBGM05 >= 1:
		return domain.SIGNAL_WEAK
	default:
		return domain.SIGNAL_NONE
	}
}

// SweepReport is the combined success/error report of a multi-term sweep.
// One failing term never aborts the batch.
type SweepReport struct {
	Product string                         `json:"product"`
	Signals map[string]*domain.FAERSSignal `json:"signals"`
	Errors  map[string]string              `json:"errors,omitempty"`
}

// AssessProducts evaluates one product against many adverse-event terms,
// fetching counts from the collaborator and isolating per-term failures.
func (e *Engine) AssessProducts(ctx context.Context, source domain.ReportCountSource, product string, events []string) (*SweepReport, error) {
	if product == "" {
		return nil, domain.NewValidationError("product", "product identifier is required", product)
	}
	if len(events) == 0 {
		return nil, domain.NewValidationError("events", "at least one adverse-event term is required", 0)
	}

	report := &SweepReport{
		Product: product,
		Signals: make(map[string]*domain.FAERSSignal),
		Errors:  make(map[string]string),
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		counts, err := source.ReportCounts(ctx, product, event)
		if err != nil {
			report.Errors[event] = err.Error()
			e.logger.WithError(err).WithFields(logrus.Fields{
				"product": product,
				"event":   event,
			}).Warn("Report-count lookup failed; continuing sweep")
			continue
		}
		sig, err := e.Assess(*counts)
		if err != nil {
			report.Errors[event] = err.Error()
			continue
		}
		report.Signals[event] = sig
	}

	e.logger.WithFields(logrus.Fields{
		"product":  product,
		"assessed": len(report.Signals),
		"failed":   len(report.Errors),
	}).Info("Signal sweep completed")
	return report, nil
}
