// Package validation provides model-validation and benchmarking diagnostics
// over estimator outputs: calibration, Brier score, coverage audit,
// leave-one-out cross-validation, head-to-head comparison and a sequential
// prediction test.
package validation

import (
	"math"

	"github.com/ae-risk-core/internal/domain"
)

// CalibrationBin compares mean predicted probability against the observed
// outcome frequency for one prediction bin.
type CalibrationBin struct {
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	MeanObserved  float64 `json:"mean_observed"`
}

// CalibrationReport summarizes predicted-versus-observed agreement.
type CalibrationReport struct {
	Bins            []CalibrationBin `json:"bins"`
	MeanAbsoluteGap float64          `json:"mean_absolute_gap"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// CalibrationCheck bins predictions and compares mean predicted against
// mean observed per occupied bin. Predictions are probabilities in [0, 1];
// outcomes are binary 0/1.
func CalibrationCheck(predictions []float64, outcomes []int, bins int) (*CalibrationReport, error) {
	if len(predictions) == 0 {
		return nil, domain.NewValidationError("predictions", "at least one prediction is required", len(predictions))
	}
	if len(predictions) != len(outcomes) {
		return nil, domain.NewValidationError("outcomes", "predictions and outcomes must align", len(outcomes))
	}
	if bins <= 0 {
		bins = 10
	}
	for i, p := range predictions {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return nil, domain.NewValidationError("predictions", "prediction must be a probability in [0, 1]", p)
		}
		if outcomes[i] != 0 && outcomes[i] != 1 {
			return nil, domain.NewValidationError("outcomes", "outcome must be binary", outcomes[i])
		}
	}

	type acc struct {
		count   int
		sumPred float64
		sumObs  float64
	}
	buckets := make([]acc, bins)
	for i, p := range predictions {
		b := int(p * float64(bins))
		if b == bins {
			b = bins - 1
		}
		buckets[b].count++
		buckets[b].sumPred += p
		buckets[b].sumObs += float64(outcomes[i])
	}

	report := &CalibrationReport{}
	var gapSum float64
	var occupied int
	width := 1 / float64(bins)
	for b, a := range buckets {
		if a.count == 0 {
			continue
		}
		bin := CalibrationBin{
			Low:           float64(b) * width,
			High:          float64(b+1) * width,
			Count:         a.count,
			MeanPredicted: a.sumPred / float64(a.count),
			MeanObserved:  a.sumObs / float64(a.count),
		}
		report.Bins = append(report.Bins, bin)
		gapSum += math.Abs(bin.MeanPredicted - bin.MeanObserved)
		occupied++
	}
	report.MeanAbsoluteGap = gapSum / float64(occupied)
	if occupied == 1 {
		report.Warnings = append(report.Warnings, "all predictions fall into a single bin; calibration curve is uninformative")
	}
	return report, nil
}

// BrierReport carries the Brier score with a naive base-rate reference and
// the derived skill score.
type BrierReport struct {
	Brier     float64  `json:"brier"`
	Reference float64  `json:"reference"`
	Skill     float64  `json:"skill"`
	Warnings  []string `json:"warnings,omitempty"`
}

// BrierScore computes the mean squared error of predicted probability
// against binary outcome, a reference score from always predicting the
// base rate, and the skill score 1 - brier/reference.
//
// When only one outcome class is present the reference degenerates to the
// Brier score of a perfect constant forecast; the skill is then reported as
// the neutral 0.5 with a warning rather than dividing by zero.
func BrierScore(predictions []float64, outcomes []int) (*BrierReport, error) {
	if len(predictions) == 0 || len(predictions) != len(outcomes) {
		return nil, domain.NewValidationError("predictions", "aligned non-empty predictions and outcomes are required", len(predictions))
	}

	var brier, baseRate float64
	for i, p := range predictions {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return nil, domain.NewValidationError("predictions", "prediction must be a probability in [0, 1]", p)
		}
		if outcomes[i] != 0 && outcomes[i] != 1 {
			return nil, domain.NewValidationError("outcomes", "outcome must be binary", outcomes[i])
		}
		d := p - float64(outcomes[i])
		brier += d * d
		baseRate += float64(outcomes[i])
	}
	n := float64(len(predictions))
	brier /= n
	baseRate /= n

	var reference float64
	for _, o := range outcomes {
		d := baseRate - float64(o)
		reference += d * d
	}
	reference /= n

	report := &BrierReport{Brier: brier, Reference: reference}
	if reference == 0 {
		report.Skill = 0.5
		report.Warnings = append(report.Warnings, "single outcome class; skill score is undefined, reporting neutral 0.5")
	} else {
		report.Skill = 1 - brier/reference
	}
	return report, nil
}

// CoverageReport is the result of an interval coverage audit.
type CoverageReport struct {
	Nominal   float64 `json:"nominal"`
	Empirical float64 `json:"empirical"`
	SE        float64 `json:"se"`
	Intervals int     `json:"intervals"`
	Flag      string  `json:"flag"` // "ok", "under-coverage" or "over-coverage"
}

// CoverageAudit computes the empirical fraction of stated intervals that
// contain the true value and flags under/over-coverage outside a
// two-standard-error band around the nominal level.
func CoverageAudit(intervals [][2]float64, truths []float64, nominal float64) (*CoverageReport, error) {
	if len(intervals) == 0 || len(intervals) != len(truths) {
		return nil, domain.NewValidationError("intervals", "aligned non-empty intervals and truths are required", len(intervals))
	}
	if nominal <= 0 || nominal >= 1 {
		return nil, domain.NewValidationError("nominal", "nominal coverage must be in (0, 1)", nominal)
	}

	covered := 0
	for i, iv := range intervals {
		if iv[0] > iv[1] {
			return nil, domain.NewValidationError("intervals", "interval bounds are reversed", iv)
		}
		if truths[i] >= iv[0] && truths[i] <= iv[1] {
			covered++
		}
	}

	n := float64(len(intervals))
	empirical := float64(covered) / n
	se := math.Sqrt(nominal * (1 - nominal) / n)

	flag := "ok"
	switch {
	case empirical < nominal-2*se:
		flag = "under-coverage"
	case empirical > nominal+2*se:
		flag = "over-coverage"
	}

	return &CoverageReport{
		Nominal:   nominal,
		Empirical: empirical,
		SE:        se,
		Intervals: len(intervals),
		Flag:      flag,
	}, nil
}
