package estimators

import (
	"math"

	"github.com/ae-risk-core/internal/domain"
	"github.com/ae-risk-core/pkg/statmath"
)

// PredictivePosterior enumerates, in log-space, the exact Beta-Binomial
// predictive probability mass over every possible future event count in a
// new cohort of size nNew, given the posterior from (events, n) and the
// supplied prior.
//
// The result is a prediction interval on the future event rate, not a
// confidence interval on the current population rate: it is wider because
// it carries both the parameter uncertainty and the binomial sampling noise
// of the future cohort.
func PredictivePosterior(events, n, nNew int, prior *domain.PriorSpec) (*domain.EstimateResult, error) {
	if err := validateCounts(events, n); err != nil {
		return nil, err
	}
	if nNew <= 0 {
		return nil, domain.NewValidationError("n_new", "future cohort size must be positive", nNew)
	}
	p := defaultPrior(prior)

	alpha := p.Alpha + float64(events)
	beta := p.Beta + float64(n-events)
	logNorm := statmath.LogBeta(alpha, beta)

	// P(y | data) = C(nNew, y) * B(alpha+y, beta+nNew-y) / B(alpha, beta)
	pmf := make([]float64, nNew+1)
	var total float64
	for y := 0; y <= nNew; y++ {
		lp := statmath.LogChoose(nNew, y) +
			statmath.LogBeta(alpha+float64(y), beta+float64(nNew-y)) -
			logNorm
		pmf[y] = math.Exp(lp)
		total += pmf[y]
	}

	// Absorb the tiny floating-point drift so the CDF ends at exactly 1.
	var mean float64
	for y := range pmf {
		pmf[y] /= total
		mean += float64(y) * pmf[y]
	}

	lowCount, highCount := 0, nNew
	cdf := 0.0
	lowSet := false
	for y := 0; y <= nNew; y++ {
		cdf += pmf[y]
		if !lowSet && cdf >= 0.025 {
			lowCount = y
			lowSet = true
		}
		if cdf >= 0.975 {
			highCount = y
			break
		}
	}

	nf := float64(nNew)
	result := domain.NewEstimateResult(ModelPredictive, mean/nf, float64(lowCount)/nf, float64(highCount)/nf, n, events)
	result.Metadata["n_new"] = nNew
	result.Metadata["predicted_mean_events"] = mean
	result.Metadata["prediction_low_count"] = lowCount
	result.Metadata["prediction_high_count"] = highCount
	result.Metadata["posterior_alpha"] = alpha
	result.Metadata["posterior_beta"] = beta
	result.Metadata["interval_kind"] = "prediction"
	return result, nil
}
