package estimators

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ae-risk-core/internal/domain"
)

// validateCounts enforces the shared binomial input invariants.
func validateCounts(events, n int) error {
	if n <= 0 {
		return domain.NewValidationError("n", "sample size must be positive", n)
	}
	if events < 0 {
		return domain.NewValidationError("events", "event count cannot be negative", events)
	}
	if events > n {
		return fmt.Errorf("%w (%d > %d)", domain.ErrEventsExceedSize, events, n)
	}
	return nil
}

// BetaBinomial computes the conjugate posterior of a Beta prior updated by
// (events, n-events) Bernoulli observations, reporting the posterior mean
// and the equal-tailed 95% credible interval from Beta quantiles.
//
// The posterior parameters are carried in the result metadata so a caller
// can feed them back as the prior for the next cohort (sequential
// conjugate updating).
func BetaBinomial(events, n int, prior *domain.PriorSpec) (*domain.EstimateResult, error) {
	if err := validateCounts(events, n); err != nil {
		return nil, err
	}
	p := defaultPrior(prior)

	alpha := p.Alpha + float64(events)
	beta := p.Beta + float64(n-events)
	posterior := distuv.Beta{Alpha: alpha, Beta: beta}

	mean := alpha / (alpha + beta)
	lo := posterior.Quantile(0.025)
	hi := posterior.Quantile(0.975)

	result := domain.NewEstimateResult(ModelBetaBinomial, mean, lo, hi, n, events)
	result.Metadata["posterior_alpha"] = alpha
	result.Metadata["posterior_beta"] = beta
	result.Metadata["prior_source"] = p.Source
	return result, nil
}

// PosteriorPrior extracts the posterior parameters from a Beta-Binomial
// result as a PriorSpec for sequential reuse.
func PosteriorPrior(result *domain.EstimateResult) (*domain.PriorSpec, error) {
	alpha, okA := result.Metadata["posterior_alpha"].(float64)
	beta, okB := result.Metadata["posterior_beta"].(float64)
	if !okA || !okB {
		return nil, domain.NewValidationError("metadata", "result carries no posterior parameters", result.Method)
	}
	return &domain.PriorSpec{
		Alpha:  alpha,
		Beta:   beta,
		Source: fmt.Sprintf("posterior of %s run %s", result.Method, result.ID),
	}, nil
}
