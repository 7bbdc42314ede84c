package mitigation

import (
	"math"
	randv2 "math/rand/v2"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ae-risk-core/internal/domain"
)

// MonteCarloRequest parameterizes one uncertainty-propagation run. The
// baseline risk is drawn from Beta(Alpha, Beta); each selected strategy's RR
// is drawn from a Log-Normal centered on its point estimate with the
// log-standard-error implied by its published 95% CI. Seed is caller
// supplied so runs are reproducible.
type MonteCarloRequest struct {
	AEType     string   `json:"ae_type"`
	Alpha      float64  `json:"alpha"`
	Beta       float64  `json:"beta"`
	Strategies []string `json:"strategies"`
	Samples    int      `json:"samples"`
	Seed       uint64   `json:"seed"`
}

// Validate checks the Beta parameters and sample count.
func (r *MonteCarloRequest) Validate() error {
	if r.Alpha <= 0 || math.IsNaN(r.Alpha) {
		return domain.NewValidationError("alpha", "baseline Beta alpha must be positive", r.Alpha)
	}
	if r.Beta <= 0 || math.IsNaN(r.Beta) {
		return domain.NewValidationError("beta", "baseline Beta beta must be positive", r.Beta)
	}
	if r.Samples <= 0 {
		return domain.NewValidationError("samples", "sample count must be positive", r.Samples)
	}
	if r.AEType == "" {
		return domain.NewValidationError("ae_type", "adverse-event type is required", r.AEType)
	}
	return nil
}

// logSE converts a published 95% CI on a relative risk to the Log-Normal
// scale parameter: (ln hi - ln lo) / (2 * 1.96). A degenerate or zero-width
// interval yields 0, collapsing the draw to the point estimate.
func logSE(lo, hi float64) float64 {
	if lo <= 0 || hi <= 0 || hi <= lo {
		return 0
	}
	return (math.Log(hi) - math.Log(lo)) / (2 * 1.96)
}

// MonteCarloMitigatedRisk propagates baseline and strategy uncertainty into
// the mitigated-risk distribution. Each sample draws a baseline risk and
// per-strategy RRs, reduces the RRs through the same greedy correlated
// combination as the deterministic path, and clamps the product at 1.0.
func (e *Engine) MonteCarloMitigatedRisk(req MonteCarloRequest) (*domain.MonteCarloSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	applied, _, err := e.resolve(req.AEType, req.Strategies)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(applied))
	sigmas := make([]float64, len(applied))
	for i, s := range applied {
		ids[i] = s.ID
		sigmas[i] = logSE(s.CILow, s.CIHigh)
	}
	corr := func(i, j int) float64 { return e.registry.Correlation(ids[i], ids[j]) }

	src := randv2.NewPCG(req.Seed, req.Seed)
	baseline := distuv.Beta{Alpha: req.Alpha, Beta: req.Beta, Src: src}

	draws := make([]float64, req.Samples)
	rrs := make([]float64, len(applied))
	var sum float64
	for k := 0; k < req.Samples; k++ {
		for i, s := range applied {
			if sigmas[i] == 0 {
				rrs[i] = s.RR
				continue
			}
			ln := distuv.LogNormal{Mu: math.Log(s.RR), Sigma: sigmas[i], Src: src}
			rrs[i] = ln.Rand()
		}
		combined, _, err := CombineMultipleRRs(rrs, ids, corr)
		if err != nil {
			return nil, err
		}
		risk := baseline.Rand() * combined
		if risk > 1 {
			risk = 1
		}
		draws[k] = risk
		sum += risk
	}

	sort.Float64s(draws)
	summary := &domain.MonteCarloSummary{
		ID:           uuid.New().String(),
		Samples:      req.Samples,
		Seed:         req.Seed,
		Median:       quantile(draws, 0.5),
		Mean:         sum / float64(req.Samples),
		P025:         quantile(draws, 0.025),
		P975:         quantile(draws, 0.975),
		BaselineMean: req.Alpha / (req.Alpha + req.Beta),
		Applied:      ids,
	}

	e.logger.WithFields(logrus.Fields{
		"ae_type": req.AEType,
		"samples": req.Samples,
		"seed":    req.Seed,
		"median":  summary.Median,
	}).Debug("Monte Carlo mitigation run completed")
	return summary, nil
}

// quantile reads the q-th empirical quantile from a sorted sample by
// nearest-rank.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
