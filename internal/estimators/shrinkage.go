package estimators

import (
	"math"

	"github.com/ae-risk-core/internal/domain"
)

// ShrunkenRate is one category's empirical-Bayes shrinkage outcome.
type ShrunkenRate struct {
	Label    string  `json:"label"`
	Raw      float64 `json:"raw"`
	Shrunken float64 `json:"shrunken"`
	B        float64 `json:"b"` // shrinkage factor toward the grand mean
	Events   int     `json:"events"`
	N        int     `json:"n"`
}

// EmpiricalBayesShrinkage shrinks each adverse-event category's raw rate
// toward the grand mean. The shrinkage factor is
// B = var_within / (var_within + tau^2), with tau^2 the method-of-moments
// between-category variance floored at 0: noisy categories (large within
// variance) borrow more strength from the ensemble.
//
// Degenerate cases degrade to B = 0 (no shrinkage) rather than failing.
func EmpiricalBayesShrinkage(categories []domain.StudyRecord) ([]ShrunkenRate, float64, error) {
	if len(categories) == 0 {
		return nil, 0, domain.ErrNoStudies
	}
	for i := range categories {
		if err := categories[i].Validate(); err != nil {
			return nil, 0, err
		}
	}

	k := len(categories)
	rates := make([]float64, k)
	within := make([]float64, k)
	var grand float64
	for i, c := range categories {
		rates[i] = c.Rate()
		within[i] = rates[i] * (1 - rates[i]) / float64(c.N)
		grand += rates[i]
	}
	grand /= float64(k)

	// Method-of-moments between-category variance.
	tau2 := 0.0
	if k > 1 {
		var sampleVar, meanWithin float64
		for i := range rates {
			d := rates[i] - grand
			sampleVar += d * d
			meanWithin += within[i]
		}
		sampleVar /= float64(k - 1)
		meanWithin /= float64(k)
		tau2 = math.Max(0, sampleVar-meanWithin)
	}

	out := make([]ShrunkenRate, k)
	for i, c := range categories {
		b := 0.0
		if within[i]+tau2 > 0 {
			b = within[i] / (within[i] + tau2)
		}
		out[i] = ShrunkenRate{
			Label:    c.Label,
			Raw:      rates[i],
			Shrunken: b*grand + (1-b)*rates[i],
			B:        b,
			Events:   c.Events,
			N:        c.N,
		}
	}
	return out, grand, nil
}

// EmpiricalBayes runs shrinkage across the supplied categories and reports
// the target category's shrunken rate (the first category when no target
// label is given). The interval is a Wilson score interval at the
// category's own sample size around the shrunken rate; all per-category
// results ride along in the metadata.
func EmpiricalBayes(categories []domain.StudyRecord, target string) (*domain.EstimateResult, error) {
	shrunken, grand, err := EmpiricalBayesShrinkage(categories)
	if err != nil {
		return nil, err
	}

	idx := 0
	if target != "" {
		found := false
		for i := range shrunken {
			if shrunken[i].Label == target {
				idx = i
				found = true
				break
			}
		}
		if !found {
			return nil, domain.NewValidationError("target", "target label not among supplied categories", target)
		}
	}
	sel := shrunken[idx]

	wilson, err := Wilson(sel.Events, sel.N, false)
	if err != nil {
		return nil, err
	}
	// Re-center the Wilson interval half-widths on the shrunken rate.
	halfLow := wilson.Estimate/100 - wilson.CILow/100
	halfHigh := wilson.CIHigh/100 - wilson.Estimate/100

	result := domain.NewEstimateResult(ModelEmpiricalBayes, sel.Shrunken, sel.Shrunken-halfLow, sel.Shrunken+halfHigh, sel.N, sel.Events)
	result.Metadata["shrinkage_b"] = sel.B
	result.Metadata["grand_mean"] = grand
	result.Metadata["raw_rate"] = sel.Raw
	result.Metadata["categories"] = shrunken
	if sel.B == 0 {
		result.AddWarning("zero within-category variance; no shrinkage applied")
	}
	if len(categories) == 1 {
		result.AddWarning("single category supplied; between-category variance is undefined")
	}
	return result, nil
}
