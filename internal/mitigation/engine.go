package mitigation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ae-risk-core/internal/domain"
)

// Engine applies registered mitigation strategies to a baseline adverse-event
// risk. Deterministic combination lives here; uncertainty propagation is in
// the Monte Carlo simulator.
type Engine struct {
	logger   *logrus.Logger
	registry *Registry
}

// NewEngine creates a mitigation engine over the given strategy registry
func NewEngine(registry *Registry, logger *logrus.Logger) *Engine {
	return &Engine{logger: logger, registry: registry}
}

// resolve looks up the requested strategies and drops those not targeting
// the adverse-event type, recording a warning per dropped strategy.
func (e *Engine) resolve(aeType string, strategyIDs []string) ([]domain.MitigationStrategy, []string, error) {
	var (
		applied  []domain.MitigationStrategy
		warnings []string
	)
	for _, id := range strategyIDs {
		s, err := e.registry.Strategy(id)
		if err != nil {
			return nil, nil, err
		}
		if !s.AppliesTo(aeType) {
			warnings = append(warnings, fmt.Sprintf("strategy %s does not target %s; ignored", id, aeType))
			continue
		}
		applied = append(applied, s)
	}
	return applied, warnings, nil
}

// CalculateMitigatedRisk combines the point relative risks of the selected
// strategies and applies the result to the baseline risk, clamped to [0, 1].
// Non-applicable strategies are ignored with a warning rather than failing
// the request.
func (e *Engine) CalculateMitigatedRisk(baselineRisk float64, aeType string, strategyIDs []string) (*domain.MitigationResult, error) {
	if baselineRisk < 0 || baselineRisk > 1 {
		return nil, domain.NewValidationError("baseline_risk", "baseline risk must be in [0, 1]", baselineRisk)
	}
	if aeType == "" {
		return nil, domain.NewValidationError("ae_type", "adverse-event type is required", aeType)
	}

	applied, warnings, err := e.resolve(aeType, strategyIDs)
	if err != nil {
		return nil, err
	}

	rrs := make([]float64, len(applied))
	ids := make([]string, len(applied))
	for i, s := range applied {
		rrs[i] = s.RR
		ids[i] = s.ID
	}

	combined, adjustments, err := CombineMultipleRRs(rrs, ids, func(i, j int) float64 {
		return e.registry.Correlation(ids[i], ids[j])
	})
	if err != nil {
		return nil, err
	}

	mitigated := clamp01(baselineRisk * combined)
	result := &domain.MitigationResult{
		ID:            uuid.New().String(),
		AEType:        aeType,
		BaselineRisk:  baselineRisk,
		MitigatedRisk: mitigated,
		CombinedRR:    combined,
		Applied:       ids,
		Adjustments:   adjustments,
		Warnings:      warnings,
	}

	e.logger.WithFields(logrus.Fields{
		"ae_type":        aeType,
		"applied":        len(ids),
		"combined_rr":    combined,
		"baseline_risk":  baselineRisk,
		"mitigated_risk": mitigated,
	}).Debug("Mitigated risk calculated")
	return result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
