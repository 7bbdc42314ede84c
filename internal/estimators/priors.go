package estimators

import "github.com/ae-risk-core/internal/domain"

// Named Beta priors with provenance. Jeffreys is the default for the
// Bayesian estimators when no prior is supplied.
var (
	PriorJeffreys = domain.PriorSpec{
		Alpha:  0.5,
		Beta:   0.5,
		Source: "Jeffreys noninformative prior Beta(0.5, 0.5)",
	}

	PriorUniform = domain.PriorSpec{
		Alpha:  1,
		Beta:   1,
		Source: "Uniform prior Beta(1, 1)",
	}

	// Pooled severe-event rate from pivotal CAR-T registration trials,
	// ~3 severe events per 100 treated patients.
	PriorPivotalTrials = domain.PriorSpec{
		Alpha:  3,
		Beta:   97,
		Source: "Pooled pivotal-trial severe adverse-event prior Beta(3, 97)",
	}
)

// PriorCatalogue lists the named priors by identifier.
func PriorCatalogue() map[string]domain.PriorSpec {
	return map[string]domain.PriorSpec{
		"jeffreys":       PriorJeffreys,
		"uniform":        PriorUniform,
		"pivotal-trials": PriorPivotalTrials,
	}
}

func defaultPrior(prior *domain.PriorSpec) domain.PriorSpec {
	if prior == nil {
		return PriorJeffreys
	}
	return *prior
}
