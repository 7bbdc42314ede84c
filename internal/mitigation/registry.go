package mitigation

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ae-risk-core/internal/domain"
)

// Registry holds the static mitigation-strategy catalogue and the pairwise
// correlation table. Built once at startup; read-only afterwards.
type Registry struct {
	logger       *logrus.Logger
	strategies   map[string]domain.MitigationStrategy
	correlations map[[2]string]float64
}

// Strategy identifiers.
const (
	StrategyStepUpDosing     = "step-up-dosing"
	StrategyTocilizumab      = "prophylactic-tocilizumab"
	StrategyCorticosteroids  = "early-corticosteroids"
	StrategyAnakinra         = "prophylactic-anakinra"
	StrategyPremedication    = "antihistamine-premedication"
	StrategyInfusionSlowdown = "slowed-infusion"
)

// NewRegistry builds the catalogue of supported mitigation strategies with
// their published relative risks. Strategies acting on the same cytokine
// axis carry high pairwise correlations; unrelated mechanisms default to 0.
func NewRegistry(logger *logrus.Logger) *Registry {
	r := &Registry{
		logger:       logger,
		strategies:   make(map[string]domain.MitigationStrategy),
		correlations: make(map[[2]string]float64),
	}

	for _, s := range []domain.MitigationStrategy{
		{
			ID:       StrategyStepUpDosing,
			Name:     "Step-up dosing schedule",
			RR:       0.45,
			CILow:    0.30,
			CIHigh:   0.67,
			Targets:  []string{"crs", "neurotoxicity"},
			Evidence: "pooled phase-2 step-up cohorts",
		},
		{
			ID:       StrategyTocilizumab,
			Name:     "Prophylactic tocilizumab",
			RR:       0.55,
			CILow:    0.38,
			CIHigh:   0.80,
			Targets:  []string{"crs"},
			Evidence: "single-arm expansion cohort vs matched controls",
		},
		{
			ID:       StrategyCorticosteroids,
			Name:     "Early corticosteroid intervention",
			RR:       0.60,
			CILow:    0.41,
			CIHigh:   0.88,
			Targets:  []string{"crs", "neurotoxicity"},
			Evidence: "retrospective management-guideline comparison",
		},
		{
			ID:       StrategyAnakinra,
			Name:     "Prophylactic anakinra",
			RR:       0.50,
			CILow:    0.28,
			CIHigh:   0.89,
			Targets:  []string{"neurotoxicity"},
			Evidence: "phase-2 prophylaxis trial",
		},
		{
			ID:       StrategyPremedication,
			Name:     "Antihistamine premedication",
			RR:       0.70,
			CILow:    0.52,
			CIHigh:   0.94,
			Targets:  []string{"infusion-reaction"},
			Evidence: "standard-of-care infusion protocols",
		},
		{
			ID:       StrategyInfusionSlowdown,
			Name:     "Slowed infusion rate",
			RR:       0.65,
			CILow:    0.47,
			CIHigh:   0.90,
			Targets:  []string{"infusion-reaction"},
			Evidence: "standard-of-care infusion protocols",
		},
	} {
		r.strategies[s.ID] = s
	}

	// IL-6 axis overlap: tocilizumab blocks the receptor the steroid
	// response partially suppresses upstream.
	r.setCorrelation(StrategyTocilizumab, StrategyCorticosteroids, 0.50)
	// Step-up dosing lowers peak cytokine exposure that both drugs target.
	r.setCorrelation(StrategyStepUpDosing, StrategyTocilizumab, 0.30)
	r.setCorrelation(StrategyStepUpDosing, StrategyCorticosteroids, 0.30)
	// IL-1 and IL-6 blockade act on partially shared inflammatory cascade.
	r.setCorrelation(StrategyAnakinra, StrategyTocilizumab, 0.40)
	r.setCorrelation(StrategyAnakinra, StrategyCorticosteroids, 0.40)
	// Same infusion-reaction pathway.
	r.setCorrelation(StrategyPremedication, StrategyInfusionSlowdown, 0.60)

	logger.WithField("strategies", len(r.strategies)).Info("Mitigation strategy registry initialized")
	return r
}

func (r *Registry) setCorrelation(a, b string, rho float64) {
	r.correlations[corrKey(a, b)] = rho
}

func corrKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Strategy returns the catalogue entry for the given identifier.
func (r *Registry) Strategy(id string) (domain.MitigationStrategy, error) {
	s, ok := r.strategies[id]
	if !ok {
		return domain.MitigationStrategy{}, fmt.Errorf("unknown mitigation strategy: %s", id)
	}
	return s, nil
}

// Strategies returns all catalogue entries sorted by ID.
func (r *Registry) Strategies() []domain.MitigationStrategy {
	out := make([]domain.MitigationStrategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Correlation returns the assumed pairwise correlation between two
// strategies, 0 when none is tabulated, 1 for a strategy with itself.
func (r *Registry) Correlation(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return r.correlations[corrKey(a, b)]
}
