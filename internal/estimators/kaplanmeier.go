package estimators

import (
	"math"
	"sort"

	"github.com/ae-risk-core/internal/domain"
	"github.com/ae-risk-core/pkg/statmath"
)

// KaplanMeier estimates cumulative adverse-event incidence at a chosen time
// horizon with the product-limit estimator over distinct observed event
// times, handling right-censored subjects. The variance of the survival
// estimate comes from Greenwood's formula; the reported interval is the
// incidence plus/minus the normal critical value times the Greenwood
// standard error, clamped into [0, 1].
//
// The median time-to-event (first event time at which survival drops to
// 0.5 or below) rides along in the metadata when it is reached.
func KaplanMeier(observations []domain.Observation, horizon float64) (*domain.EstimateResult, error) {
	if len(observations) == 0 {
		return nil, domain.ErrNoObservations
	}
	if horizon <= 0 {
		return nil, domain.NewValidationError("horizon", "time horizon must be positive", horizon)
	}
	for _, o := range observations {
		if o.Time < 0 || math.IsNaN(o.Time) {
			return nil, domain.NewValidationError("observations", "observation time cannot be negative", o.Time)
		}
	}

	sorted := make([]domain.Observation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	// Walk distinct event times. Subjects censored at an event time are
	// still counted at risk for that time.
	survival := 1.0
	greenwood := 0.0
	totalEvents := 0
	medianTime := math.NaN()

	i := 0
	for i < len(sorted) {
		t := sorted[i].Time
		deaths := 0
		ties := 0
		for j := i; j < len(sorted) && sorted[j].Time == t; j++ {
			ties++
			if sorted[j].Event {
				deaths++
			}
		}

		if deaths > 0 {
			totalEvents += deaths
			if t <= horizon {
				atRisk := len(sorted) - i
				d := float64(deaths)
				n := float64(atRisk)
				survival *= 1 - d/n
				if n > d {
					greenwood += d / (n * (n - d))
				}
				if math.IsNaN(medianTime) && survival <= 0.5 {
					medianTime = t
				}
			}
		}
		i += ties
	}

	incidence := 1 - survival
	se := survival * math.Sqrt(greenwood)
	z := statmath.NormalQuantile(0.975)
	lo := incidence - z*se
	hi := incidence + z*se

	result := domain.NewEstimateResult(ModelKaplanMeier, incidence, lo, hi, len(observations), totalEvents)
	result.Metadata["horizon"] = horizon
	result.Metadata["survival_at_horizon"] = survival
	result.Metadata["greenwood_se"] = se
	if !math.IsNaN(medianTime) {
		result.Metadata["median_time_to_event"] = medianTime
	}
	if totalEvents == 0 {
		result.AddWarning("no events observed; incidence is zero with a degenerate interval")
	}
	return result, nil
}
