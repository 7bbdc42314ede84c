// Package mitigation combines relative risks of correlated interventions
// and propagates their uncertainty into a mitigated-risk distribution.
//
// Two mitigations that act through overlapping mechanisms must not be
// multiplied as if independent; the combination interpolates geometrically
// between the independence product and the stronger single effect.
package mitigation

import (
	"math"
	"sort"

	"github.com/ae-risk-core/internal/domain"
)

// CombineCorrelatedRR merges two relative risks under mechanistic
// correlation rho in [0, 1]:
//
//	combined = (a*b)^(1-rho) * min(a,b)^rho
//
// rho = 0 recovers the independence product, rho = 1 collapses to the
// stronger (smaller) effect alone.
func CombineCorrelatedRR(a, b, rho float64) (float64, error) {
	if a < 0 || math.IsNaN(a) {
		return 0, domain.NewValidationError("rr_a", "relative risk cannot be negative", a)
	}
	if b < 0 || math.IsNaN(b) {
		return 0, domain.NewValidationError("rr_b", "relative risk cannot be negative", b)
	}
	if rho < 0 || rho > 1 || math.IsNaN(rho) {
		return 0, domain.NewValidationError("correlation", "correlation must be in [0, 1]", rho)
	}
	return math.Pow(a*b, 1-rho) * math.Pow(math.Min(a, b), rho), nil
}

// rrEntry is one live entry of the greedy merge. Sources tracks which
// original strategy indices the entry absorbed, for correlation lookups
// after merging.
type rrEntry struct {
	rr      float64
	sources []int
}

// CorrelationFunc reports the assumed correlation between two strategies by
// index into the original input slice.
type CorrelationFunc func(i, j int) float64

// CombineMultipleRRs reduces a set of relative risks to a single combined
// RR by repeatedly merging the most-correlated remaining pair. Ties break
// toward the lowest index pair so the reduction is deterministic. The merge
// log records every pairwise step.
func CombineMultipleRRs(rrs []float64, ids []string, corr CorrelationFunc) (float64, []domain.CorrelationAdjustment, error) {
	if len(rrs) == 0 {
		return 1.0, nil, nil
	}
	if len(ids) != len(rrs) {
		return 0, nil, domain.NewValidationError("ids", "one identifier per relative risk required", len(ids))
	}
	for _, rr := range rrs {
		if rr < 0 || math.IsNaN(rr) {
			return 0, nil, domain.NewValidationError("rr", "relative risk cannot be negative", rr)
		}
	}

	entries := make([]rrEntry, len(rrs))
	for i, rr := range rrs {
		entries[i] = rrEntry{rr: rr, sources: []int{i}}
	}

	// The correlation between two merged entries is the maximum across all
	// source pairs: overlap with any absorbed mechanism discounts the whole
	// entry.
	entryCorr := func(x, y rrEntry) float64 {
		best := 0.0
		for _, i := range x.sources {
			for _, j := range y.sources {
				if c := corr(i, j); c > best {
					best = c
				}
			}
		}
		return best
	}

	var log []domain.CorrelationAdjustment
	for len(entries) > 1 {
		bi, bj, bestRho := 0, 1, -1.0
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				if rho := entryCorr(entries[i], entries[j]); rho > bestRho {
					bi, bj, bestRho = i, j, rho
				}
			}
		}

		a, b := entries[bi], entries[bj]
		combined, err := CombineCorrelatedRR(a.rr, b.rr, bestRho)
		if err != nil {
			return 0, nil, err
		}
		log = append(log, domain.CorrelationAdjustment{
			StrategyA:   mergeLabel(a, ids),
			StrategyB:   mergeLabel(b, ids),
			Correlation: bestRho,
			Independent: a.rr * b.rr,
			Adjusted:    combined,
		})

		merged := rrEntry{rr: combined, sources: append(append([]int{}, a.sources...), b.sources...)}
		sort.Ints(merged.sources)
		entries = append(entries[:bj], entries[bj+1:]...)
		entries[bi] = merged
	}

	return entries[0].rr, log, nil
}

func mergeLabel(e rrEntry, ids []string) string {
	label := ids[e.sources[0]]
	for _, s := range e.sources[1:] {
		label += "+" + ids[s]
	}
	return label
}
