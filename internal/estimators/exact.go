package estimators

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ae-risk-core/internal/domain"
	"github.com/ae-risk-core/pkg/statmath"
)

// ClopperPearson computes the exact binomial confidence interval by
// inverting the binomial tail via the inverse Beta CDF. The interval is
// conservative: coverage is guaranteed >= the nominal 95%.
//
// events = 0 forces ci_low = 0 and events = n forces ci_high = 1, exactly.
func ClopperPearson(events, n int) (*domain.EstimateResult, error) {
	if err := validateCounts(events, n); err != nil {
		return nil, err
	}

	point := float64(events) / float64(n)

	lo := 0.0
	if events > 0 {
		lo = distuv.Beta{Alpha: float64(events), Beta: float64(n - events + 1)}.Quantile(0.025)
	}

	hi := 1.0
	if events < n {
		hi = distuv.Beta{Alpha: float64(events + 1), Beta: float64(n - events)}.Quantile(0.975)
	}

	return domain.NewEstimateResult(ModelClopperPearson, point, lo, hi, n, events), nil
}

// Wilson computes the Wilson score interval, optionally with continuity
// correction. The reported point estimate is the score-interval center
// (p-hat + z^2/2n) / (1 + z^2/n), which shrinks toward 0.5 and behaves
// better than the raw proportion in small samples; the raw proportion is
// kept in the metadata.
func Wilson(events, n int, continuity bool) (*domain.EstimateResult, error) {
	if err := validateCounts(events, n); err != nil {
		return nil, err
	}

	z := statmath.NormalQuantile(0.975)
	z2 := z * z
	nf := float64(n)
	p := float64(events) / nf

	center := (p + z2/(2*nf)) / (1 + z2/nf)

	var lo, hi float64
	if continuity {
		lo = wilsonCCLower(p, nf, z)
		hi = wilsonCCUpper(p, nf, z)
	} else {
		half := z / (1 + z2/nf) * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))
		lo = center - half
		hi = center + half
	}

	if events == 0 {
		lo = 0
	}
	if events == n {
		hi = 1
	}

	result := domain.NewEstimateResult(ModelWilson, center, lo, hi, n, events)
	result.Metadata["raw_rate"] = p
	result.Metadata["continuity_correction"] = continuity
	return result, nil
}

// Continuity-corrected Wilson bounds (Newcombe 1998, method 4).
func wilsonCCLower(p, n, z float64) float64 {
	if p == 0 {
		return 0
	}
	z2 := z * z
	num := 2*n*p + z2 - 1 - z*math.Sqrt(z2-2-1/n+4*p*(n*(1-p)+1))
	return math.Max(0, num/(2*(n+z2)))
}

func wilsonCCUpper(p, n, z float64) float64 {
	if p == 1 {
		return 1
	}
	z2 := z * z
	num := 2*n*p + z2 + 1 + z*math.Sqrt(z2+2-1/n+4*p*(n*(1-p)-1))
	return math.Min(1, num/(2*(n+z2)))
}
