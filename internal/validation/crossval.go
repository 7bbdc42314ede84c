package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ae-risk-core/internal/domain"
)

// EstimatorFunc fits an estimator to a set of studies and returns its
// estimate. Cross-validation treats the estimator as a black box behind
// this signature.
type EstimatorFunc func(studies []domain.StudyRecord) (*domain.EstimateResult, error)

// LOOCVReport aggregates leave-one-out prediction errors.
type LOOCVReport struct {
	Folds    int      `json:"folds"`
	RMSE     float64  `json:"rmse"`     // percentage points
	MAE      float64  `json:"mae"`      // percentage points
	Coverage float64  `json:"coverage"` // fraction of held-out rates inside the fitted CI
	Skipped  []string `json:"skipped,omitempty"`
}

// LeaveOneOut refits the estimator on k-1 studies and predicts each
// held-out study in turn. A failing fold is skipped and logged, not fatal;
// the report lists skipped folds by study label.
func LeaveOneOut(studies []domain.StudyRecord, fit EstimatorFunc, logger *logrus.Logger) (*LOOCVReport, error) {
	if len(studies) < 2 {
		return nil, domain.NewValidationError("studies", "leave-one-out needs at least two studies", len(studies))
	}
	for i := range studies {
		if err := studies[i].Validate(); err != nil {
			return nil, err
		}
	}

	report := &LOOCVReport{}
	var sqSum, absSum float64
	covered := 0

	for i := range studies {
		held := studies[i]
		train := make([]domain.StudyRecord, 0, len(studies)-1)
		train = append(train, studies[:i]...)
		train = append(train, studies[i+1:]...)

		fitted, err := fit(train)
		if err != nil {
			report.Skipped = append(report.Skipped, held.Label)
			if logger != nil {
				logger.WithError(err).WithField("held_out", held.Label).Warn("Skipping failed cross-validation fold")
			}
			continue
		}

		observed := held.Rate() * 100
		diff := fitted.Estimate - observed
		sqSum += diff * diff
		absSum += math.Abs(diff)
		if observed >= fitted.CILow && observed <= fitted.CIHigh {
			covered++
		}
		report.Folds++
	}

	if report.Folds == 0 {
		return nil, fmt.Errorf("all %d cross-validation folds failed", len(studies))
	}

	n := float64(report.Folds)
	report.RMSE = math.Sqrt(sqSum / n)
	report.MAE = absSum / n
	report.Coverage = float64(covered) / n
	return report, nil
}

// ModelRank is one entry of a head-to-head comparison, ordered by RMSE.
type ModelRank struct {
	Name   string       `json:"name"`
	Report *LOOCVReport `json:"report,omitempty"`
	Err    string       `json:"error,omitempty"`
}

// CompareEstimators runs leave-one-out cross-validation for several
// estimator functions and ranks them by RMSE. Estimators that fail outright
// are listed last with their error, never aborting the comparison.
func CompareEstimators(studies []domain.StudyRecord, estimators map[string]EstimatorFunc, logger *logrus.Logger) ([]ModelRank, error) {
	if len(estimators) == 0 {
		return nil, domain.NewValidationError("estimators", "at least one estimator is required", 0)
	}

	ranks := make([]ModelRank, 0, len(estimators))
	for name, fit := range estimators {
		report, err := LeaveOneOut(studies, fit, logger)
		if err != nil {
			ranks = append(ranks, ModelRank{Name: name, Err: err.Error()})
			continue
		}
		ranks = append(ranks, ModelRank{Name: name, Report: report})
	}

	sort.Slice(ranks, func(i, j int) bool {
		ri, rj := ranks[i], ranks[j]
		switch {
		case ri.Report == nil && rj.Report == nil:
			return ri.Name < rj.Name
		case ri.Report == nil:
			return false
		case rj.Report == nil:
			return true
		case ri.Report.RMSE != rj.Report.RMSE:
			return ri.Report.RMSE < rj.Report.RMSE
		default:
			return ri.Name < rj.Name
		}
	})
	return ranks, nil
}

// SequentialStep records one step of the time-ordered prediction walk.
type SequentialStep struct {
	Step      int     `json:"step"`
	Label     string  `json:"label"`
	Predicted float64 `json:"predicted"` // percent
	Observed  float64 `json:"observed"`  // percent
	AbsError  float64 `json:"abs_error"`
}

// SequentialReport summarizes whether prediction error shrinks as evidence
// accrues through a time-ordered study list.
type SequentialReport struct {
	Steps         []SequentialStep `json:"steps"`
	FirstHalfMAE  float64          `json:"first_half_mae"`
	SecondHalfMAE float64          `json:"second_half_mae"`
	Improving     bool             `json:"improving"`
	Skipped       []string         `json:"skipped,omitempty"`
}

// SequentialTest walks the studies in their given time order: at each step
// it fits on the history so far and predicts the next study's rate. The
// error trend is judged improving when the second half's mean absolute
// error is no worse than the first half's.
func SequentialTest(ordered []domain.StudyRecord, fit EstimatorFunc, logger *logrus.Logger) (*SequentialReport, error) {
	if len(ordered) < 3 {
		return nil, domain.NewValidationError("studies", "sequential test needs at least three time-ordered studies", len(ordered))
	}
	for i := range ordered {
		if err := ordered[i].Validate(); err != nil {
			return nil, err
		}
	}

	report := &SequentialReport{}
	for i := 1; i < len(ordered); i++ {
		next := ordered[i]
		fitted, err := fit(ordered[:i])
		if err != nil {
			report.Skipped = append(report.Skipped, next.Label)
			if logger != nil {
				logger.WithError(err).WithField("next", next.Label).Warn("Skipping failed sequential step")
			}
			continue
		}
		observed := next.Rate() * 100
		report.Steps = append(report.Steps, SequentialStep{
			Step:      i,
			Label:     next.Label,
			Predicted: fitted.Estimate,
			Observed:  observed,
			AbsError:  math.Abs(fitted.Estimate - observed),
		})
	}

	if len(report.Steps) < 2 {
		return nil, fmt.Errorf("too few successful sequential steps (%d) to judge a trend", len(report.Steps))
	}

	half := len(report.Steps) / 2
	var first, second float64
	for i, s := range report.Steps {
		if i < half {
			first += s.AbsError
		} else {
			second += s.AbsError
		}
	}
	report.FirstHalfMAE = first / float64(half)
	report.SecondHalfMAE = second / float64(len(report.Steps)-half)
	report.Improving = report.SecondHalfMAE <= report.FirstHalfMAE
	return report, nil
}
