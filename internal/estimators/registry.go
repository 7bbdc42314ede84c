// Package estimators implements the seven adverse-event rate estimators and
// the immutable model registry that dispatches them.
package estimators

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ae-risk-core/internal/domain"
)

// Registry is an immutable, process-wide mapping from estimator identifier
// to its metadata and compute capability. Built once at process start;
// concurrent reads require no locking.
type Registry struct {
	logger *logrus.Logger
	models map[string]*domain.RiskModel
}

// Model identifiers.
const (
	ModelBetaBinomial   = "beta-binomial"
	ModelClopperPearson = "clopper-pearson"
	ModelWilson         = "wilson"
	ModelDerSimonian    = "dersimonian-laird"
	ModelEmpiricalBayes = "empirical-bayes"
	ModelKaplanMeier    = "kaplan-meier"
	ModelPredictive     = "predictive-posterior"
)

// NewRegistry creates the registry with all seven estimators registered.
func NewRegistry(logger *logrus.Logger) *Registry {
	r := &Registry{
		logger: logger,
		models: make(map[string]*domain.RiskModel),
	}
	r.registerModels()
	return r
}

func (r *Registry) register(m *domain.RiskModel) {
	r.models[m.ID] = m
}

func (r *Registry) registerModels() {
	r.register(&domain.RiskModel{
		ID:             ModelBetaBinomial,
		Name:           "Bayesian Beta-Binomial",
		Description:    "Conjugate Beta prior updated by observed events; posterior mean with equal-tailed 95% credible interval",
		Contexts:       []string{"single-cohort", "sparse-data", "sequential-updating"},
		RequiredInputs: []string{"events", "n"},
		Compute:        r.computeBetaBinomial,
	})
	r.register(&domain.RiskModel{
		ID:             ModelClopperPearson,
		Name:           "Clopper-Pearson exact",
		Description:    "Exact binomial interval by inverting the binomial tail via the Beta distribution; coverage >= nominal",
		Contexts:       []string{"single-cohort", "regulatory", "zero-events"},
		RequiredInputs: []string{"events", "n"},
		Compute:        r.computeClopperPearson,
	})
	r.register(&domain.RiskModel{
		ID:             ModelWilson,
		Name:           "Wilson score",
		Description:    "Closed-form score interval with optional continuity correction; good coverage near 0 and 1",
		Contexts:       []string{"single-cohort", "small-sample"},
		RequiredInputs: []string{"events", "n"},
		Compute:        r.computeWilson,
	})
	r.register(&domain.RiskModel{
		ID:             ModelDerSimonian,
		Name:           "DerSimonian-Laird meta-analysis",
		Description:    "Random-effects pooling over the Freeman-Tukey double-arcsine transform with method-of-moments tau^2",
		Contexts:       []string{"meta-analysis", "multi-study"},
		RequiredInputs: []string{"studies"},
		Compute:        r.computeDerSimonianLaird,
	})
	r.register(&domain.RiskModel{
		ID:             ModelEmpiricalBayes,
		Name:           "Empirical Bayes shrinkage",
		Description:    "Shrinks per-category rates toward the grand mean by the within/between variance ratio",
		Contexts:       []string{"multi-category", "sparse-data"},
		RequiredInputs: []string{"categories"},
		Compute:        r.computeEmpiricalBayes,
	})
	r.register(&domain.RiskModel{
		ID:             ModelKaplanMeier,
		Name:           "Kaplan-Meier cumulative incidence",
		Description:    "Product-limit estimator with right-censoring and Greenwood variance at a chosen horizon",
		Contexts:       []string{"time-to-event", "censored-data"},
		RequiredInputs: []string{"observations", "horizon"},
		Compute:        r.computeKaplanMeier,
	})
	r.register(&domain.RiskModel{
		ID:             ModelPredictive,
		Name:           "Bayesian predictive posterior",
		Description:    "Exact log-space Beta-Binomial predictive mass over future event counts in a new cohort",
		Contexts:       []string{"forecast", "trial-planning"},
		RequiredInputs: []string{"events", "n", "n_new"},
		Compute:        r.computePredictive,
	})
}

// Model returns the registration record for an estimator identifier.
func (r *Registry) Model(id string) (*domain.RiskModel, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModel, id)
	}
	return m, nil
}

// Models returns all registered models sorted by identifier.
func (r *Registry) Models() []*domain.RiskModel {
	out := make([]*domain.RiskModel, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// missingInputs lists the model's required fields absent from the input.
func missingInputs(m *domain.RiskModel, in domain.Input) []string {
	var missing []string
	for _, field := range m.RequiredInputs {
		if !in.Has(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// EstimateRisk looks up the registered estimator, validates that every
// required field is present, and invokes it.
func (r *Registry) EstimateRisk(modelID string, in domain.Input) (*domain.EstimateResult, error) {
	model, err := r.Model(modelID)
	if err != nil {
		return nil, err
	}

	if missing := missingInputs(model, in); len(missing) > 0 {
		return nil, &domain.MissingInputError{ModelID: modelID, Missing: missing}
	}

	result, err := model.Compute(in)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"model":    modelID,
		"estimate": result.Estimate,
		"ci_low":   result.CILow,
		"ci_high":  result.CIHigh,
		"patients": result.Patients,
		"events":   result.Events,
	}).Debug("Risk estimate computed")

	return result, nil
}

// ComparisonRow summarizes one model's estimate for the side-by-side table.
type ComparisonRow struct {
	ModelID  string  `json:"model_id"`
	Estimate float64 `json:"estimate"`
	CILow    float64 `json:"ci_low"`
	CIHigh   float64 `json:"ci_high"`
	CIWidth  float64 `json:"ci_width"`
}

// ComparisonReport is the combined success/error report from a model sweep.
// One failing estimator never aborts the batch.
type ComparisonReport struct {
	Results map[string]*domain.EstimateResult `json:"results"`
	Errors  map[string]string                 `json:"errors,omitempty"`
	Summary []ComparisonRow                   `json:"summary"`
}

// CompareModels attempts every requested model (or, with no explicit ids,
// every model whose required fields are satisfiable), isolating per-model
// failures into the error map.
func (r *Registry) CompareModels(in domain.Input, modelIDs ...string) *ComparisonReport {
	report := &ComparisonReport{
		Results: make(map[string]*domain.EstimateResult),
		Errors:  make(map[string]string),
	}

	ids := modelIDs
	if len(ids) == 0 {
		for _, m := range r.Models() {
			if len(missingInputs(m, in)) == 0 {
				ids = append(ids, m.ID)
			}
		}
	}

	for _, id := range ids {
		result, err := r.EstimateRisk(id, in)
		if err != nil {
			report.Errors[id] = err.Error()
			continue
		}
		report.Results[id] = result
		report.Summary = append(report.Summary, ComparisonRow{
			ModelID:  id,
			Estimate: result.Estimate,
			CILow:    result.CILow,
			CIHigh:   result.CIHigh,
			CIWidth:  result.CIWidth,
		})
	}

	sort.Slice(report.Summary, func(i, j int) bool {
		return report.Summary[i].ModelID < report.Summary[j].ModelID
	})

	r.logger.WithFields(logrus.Fields{
		"attempted": len(ids),
		"succeeded": len(report.Results),
		"failed":    len(report.Errors),
	}).Info("Model comparison completed")

	return report
}
