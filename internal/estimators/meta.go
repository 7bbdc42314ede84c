package estimators

import (
	"fmt"
	"math"

	"github.com/ae-risk-core/internal/domain"
	"github.com/ae-risk-core/pkg/statmath"
)

// ftTransform applies the Freeman-Tukey double-arcsine variance-stabilizing
// transform to one study's proportion. The transformed value lies in
// [0, pi] and has approximate variance 1/(n + 0.5) regardless of the
// underlying rate, which is what makes pooling across studies with very
// different rates legitimate.
func ftTransform(events, n int) (theta, variance float64) {
	e := float64(events)
	nf := float64(n)
	theta = math.Asin(math.Sqrt(e/(nf+1))) + math.Asin(math.Sqrt((e+1)/(nf+1)))
	variance = 1 / (nf + 0.5)
	return theta, variance
}

// ftBack inverts the double-arcsine transform with p = sin^2(theta/2),
// clamping theta into its valid [0, pi] range first.
func ftBack(theta float64) float64 {
	theta = math.Max(0, math.Min(math.Pi, theta))
	s := math.Sin(theta / 2)
	return s * s
}

// DerSimonianLaird pools study proportions with a random-effects model:
// Freeman-Tukey transformed rates, a fixed-effect pooled estimate, Cochran's
// Q, a method-of-moments between-study variance tau^2 (floored at 0), and
// inverse-variance random-effects weights. I^2 heterogeneity and tau^2 are
// reported in the metadata.
//
// With exactly one study the random-effects machinery is information-free,
// so the estimate degenerates to the single-study Clopper-Pearson result.
func DerSimonianLaird(studies []domain.StudyRecord) (*domain.EstimateResult, error) {
	if len(studies) == 0 {
		return nil, domain.ErrNoStudies
	}
	for i := range studies {
		if err := studies[i].Validate(); err != nil {
			return nil, err
		}
	}

	if len(studies) == 1 {
		result, err := ClopperPearson(studies[0].Events, studies[0].N)
		if err != nil {
			return nil, err
		}
		result.Method = ModelDerSimonian
		result.Metadata["single_study_fallback"] = ModelClopperPearson
		result.AddWarning("single study supplied; random-effects pooling degenerates to Clopper-Pearson")
		return result, nil
	}

	k := len(studies)
	thetas := make([]float64, k)
	variances := make([]float64, k)
	totalEvents, totalN := 0, 0
	for i, s := range studies {
		thetas[i], variances[i] = ftTransform(s.Events, s.N)
		totalEvents += s.Events
		totalN += s.N
	}

	// Fixed-effect pooling.
	var sumW, sumW2, sumWT float64
	for i := range thetas {
		w := 1 / variances[i]
		sumW += w
		sumW2 += w * w
		sumWT += w * thetas[i]
	}
	fixed := sumWT / sumW

	// Cochran's Q and method-of-moments tau^2.
	var q float64
	for i := range thetas {
		d := thetas[i] - fixed
		q += d * d / variances[i]
	}
	df := float64(k - 1)
	c := sumW - sumW2/sumW
	tau2 := 0.0
	if c > 0 {
		tau2 = math.Max(0, (q-df)/c)
	}

	// Random-effects pooling.
	var sumWStar, sumWStarT float64
	for i := range thetas {
		w := 1 / (variances[i] + tau2)
		sumWStar += w
		sumWStarT += w * thetas[i]
	}
	pooled := sumWStarT / sumWStar
	se := math.Sqrt(1 / sumWStar)

	z := statmath.NormalQuantile(0.975)
	estimate := ftBack(pooled)
	lo := ftBack(pooled - z*se)
	hi := ftBack(pooled + z*se)

	i2 := 0.0
	if q > df {
		i2 = (q - df) / q * 100
	}

	result := domain.NewEstimateResult(ModelDerSimonian, estimate, lo, hi, totalN, totalEvents)
	result.Metadata["tau2"] = tau2
	result.Metadata["cochran_q"] = q
	result.Metadata["i2"] = i2
	result.Metadata["studies"] = k
	if i2 > 75 {
		result.AddWarning(fmt.Sprintf("substantial heterogeneity (I^2 = %.1f%%); pooled estimate may mask real between-study differences", i2))
	}
	return result, nil
}
