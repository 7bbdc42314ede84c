package estimators

import (
	"github.com/ae-risk-core/internal/domain"
)

// Input field names shared by the registry models.
const (
	FieldEvents       = "events"
	FieldN            = "n"
	FieldNNew         = "n_new"
	FieldPrior        = "prior"
	FieldStudies      = "studies"
	FieldCategories   = "categories"
	FieldTarget       = "target"
	FieldObservations = "observations"
	FieldHorizon      = "horizon"
	FieldContinuity   = "continuity"
)

func countsFromInput(in domain.Input) (events, n int, err error) {
	events, ok := in.Int(FieldEvents)
	if !ok {
		return 0, 0, domain.NewValidationError(FieldEvents, "event count must be a non-negative integer", in[FieldEvents])
	}
	n, ok = in.Int(FieldN)
	if !ok {
		return 0, 0, domain.NewValidationError(FieldN, "sample size must be a positive integer", in[FieldN])
	}
	return events, n, nil
}

func priorFromInput(in domain.Input) (*domain.PriorSpec, error) {
	if !in.Has(FieldPrior) {
		return nil, nil
	}
	prior, ok := in.Prior(FieldPrior)
	if !ok {
		return nil, domain.NewValidationError(FieldPrior, "prior must be a Beta PriorSpec", in[FieldPrior])
	}
	if err := prior.Validate(); err != nil {
		return nil, err
	}
	return prior, nil
}

func (r *Registry) computeBetaBinomial(in domain.Input) (*domain.EstimateResult, error) {
	events, n, err := countsFromInput(in)
	if err != nil {
		return nil, err
	}
	prior, err := priorFromInput(in)
	if err != nil {
		return nil, err
	}
	return BetaBinomial(events, n, prior)
}

func (r *Registry) computeClopperPearson(in domain.Input) (*domain.EstimateResult, error) {
	events, n, err := countsFromInput(in)
	if err != nil {
		return nil, err
	}
	return ClopperPearson(events, n)
}

func (r *Registry) computeWilson(in domain.Input) (*domain.EstimateResult, error) {
	events, n, err := countsFromInput(in)
	if err != nil {
		return nil, err
	}
	continuity, _ := in.Bool(FieldContinuity)
	return Wilson(events, n, continuity)
}

func (r *Registry) computeDerSimonianLaird(in domain.Input) (*domain.EstimateResult, error) {
	studies, ok := in.Studies(FieldStudies)
	if !ok {
		return nil, domain.NewValidationError(FieldStudies, "studies must be a list of study records", in[FieldStudies])
	}
	return DerSimonianLaird(studies)
}

func (r *Registry) computeEmpiricalBayes(in domain.Input) (*domain.EstimateResult, error) {
	categories, ok := in.Studies(FieldCategories)
	if !ok {
		return nil, domain.NewValidationError(FieldCategories, "categories must be a list of study records", in[FieldCategories])
	}
	target := ""
	if in.Has(FieldTarget) {
		t, ok := in[FieldTarget].(string)
		if !ok {
			return nil, domain.NewValidationError(FieldTarget, "target must be a category label", in[FieldTarget])
		}
		target = t
	}
	return EmpiricalBayes(categories, target)
}

func (r *Registry) computeKaplanMeier(in domain.Input) (*domain.EstimateResult, error) {
	obs, ok := in.Observations(FieldObservations)
	if !ok {
		return nil, domain.NewValidationError(FieldObservations, "observations must be a list of time-to-event records", in[FieldObservations])
	}
	horizon, ok := in.Float(FieldHorizon)
	if !ok {
		return nil, domain.NewValidationError(FieldHorizon, "horizon must be numeric", in[FieldHorizon])
	}
	return KaplanMeier(obs, horizon)
}

func (r *Registry) computePredictive(in domain.Input) (*domain.EstimateResult, error) {
	events, n, err := countsFromInput(in)
	if err != nil {
		return nil, err
	}
	nNew, ok := in.Int(FieldNNew)
	if !ok {
		return nil, domain.NewValidationError(FieldNNew, "future cohort size must be a positive integer", in[FieldNNew])
	}
	prior, err := priorFromInput(in)
	if err != nil {
		return nil, err
	}
	return PredictivePosterior(events, n, nNew, prior)
}
