package domain

// MitigationStrategy is a static registry entry for one risk-mitigating
// intervention: a point relative risk with its published 95% CI and the set
// of adverse-event types it targets. Read-only after load.
type MitigationStrategy struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	RR       float64  `json:"rr" validate:"min=0"`
	CILow    float64  `json:"ci_low"`
	CIHigh   float64  `json:"ci_high"`
	Targets  []string `json:"targets"`
	Evidence string   `json:"evidence,omitempty"`
}

// Validate enforces rr >= 0 and ci_low <= rr <= ci_high.
func (m *MitigationStrategy) Validate() error {
	if m.RR < 0 {
		return &ValidationError{Field: "rr", Message: "relative risk cannot be negative", Value: m.RR}
	}
	if m.CILow > m.RR || m.CIHigh < m.RR {
		return &ValidationError{Field: "ci", Message: "confidence interval must bracket the point estimate", Value: m.ID}
	}
	return nil
}

// Targets the given adverse-event type?
func (m *MitigationStrategy) AppliesTo(aeType string) bool {
	for _, t := range m.Targets {
		if t == aeType {
			return true
		}
	}
	return false
}

// CorrelationAdjustment logs one pairwise merge performed by the greedy
// combination routine, for explainability of the final combined RR.
type CorrelationAdjustment struct {
	StrategyA   string  `json:"strategy_a"`
	StrategyB   string  `json:"strategy_b"`
	Correlation float64 `json:"correlation"`
	Independent float64 `json:"independent_rr"` // pure product, rho = 0
	Adjusted    float64 `json:"adjusted_rr"`    // geometric interpolation applied
}

// MitigationResult is the per-request output of the deterministic mitigation
// combination: mitigated_risk = baseline_risk * combined_rr, clamped to
// [0, 1].
type MitigationResult struct {
	ID            string                  `json:"id"`
	AEType        string                  `json:"ae_type"`
	BaselineRisk  float64                 `json:"baseline_risk"`
	MitigatedRisk float64                 `json:"mitigated_risk"`
	CombinedRR    float64                 `json:"combined_rr"`
	Applied       []string                `json:"applied"`
	Adjustments   []CorrelationAdjustment `json:"adjustments,omitempty"`
	Warnings      []string                `json:"warnings,omitempty"`
}

// MonteCarloSummary aggregates the sampled mitigated-risk distribution from
// the uncertainty-propagation run. Quantiles are over the clamped per-sample
// mitigated risks.
type MonteCarloSummary struct {
	ID      string `json:"id"`
	Samples int    `json:"samples"`
	Seed    uint64 `json:"seed"`

	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	P025   float64 `json:"p025"`
	P975   float64 `json:"p975"`

	BaselineMean float64 `json:"baseline_mean"`
	Applied      []string `json:"applied"`
}
