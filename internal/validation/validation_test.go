package validation

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ae-risk-core/internal/domain"
	"github.com/ae-risk-core/internal/estimators"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCalibrationCheckPerfectlyCalibrated(t *testing.T) {
	// Predictions exactly matching observed frequencies per bin.
	preds := []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1,
		0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9}
	outcomes := []int{1, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 0}

	report, err := CalibrationCheck(preds, outcomes, 10)
	require.NoError(t, err)

	assert.Len(t, report.Bins, 2)
	assert.InDelta(t, 0.0, report.MeanAbsoluteGap, 1e-9)
}

func TestCalibrationCheckMiscalibrated(t *testing.T) {
	// Confident predictions, coin-flip outcomes.
	preds := []float64{0.95, 0.95, 0.95, 0.95}
	outcomes := []int{1, 0, 1, 0}

	report, err := CalibrationCheck(preds, outcomes, 10)
	require.NoError(t, err)

	assert.InDelta(t, 0.45, report.MeanAbsoluteGap, 1e-9)
	assert.NotEmpty(t, report.Warnings) // single occupied bin
}

func TestCalibrationCheckValidation(t *testing.T) {
	_, err := CalibrationCheck(nil, nil, 10)
	assert.Error(t, err)

	_, err = CalibrationCheck([]float64{1.5}, []int{1}, 10)
	assert.Error(t, err)

	_, err = CalibrationCheck([]float64{0.5}, []int{2}, 10)
	assert.Error(t, err)
}

func TestBrierScoreSkill(t *testing.T) {
	preds := []float64{0.9, 0.8, 0.2, 0.1}
	outcomes := []int{1, 1, 0, 0}

	report, err := BrierScore(preds, outcomes)
	require.NoError(t, err)

	// Brier = (0.01 + 0.04 + 0.04 + 0.01)/4 = 0.025; reference at base
	// rate 0.5 is 0.25.
	assert.InDelta(t, 0.025, report.Brier, 1e-9)
	assert.InDelta(t, 0.25, report.Reference, 1e-9)
	assert.InDelta(t, 0.9, report.Skill, 1e-9)
}

func TestBrierScoreSingleClassDegeneracy(t *testing.T) {
	report, err := BrierScore([]float64{0.1, 0.2}, []int{0, 0})
	require.NoError(t, err)

	assert.Equal(t, 0.5, report.Skill)
	assert.NotEmpty(t, report.Warnings)
}

func TestCoverageAudit(t *testing.T) {
	intervals := [][2]float64{{0, 10}, {2, 8}, {1, 9}, {4, 6}}
	truths := []float64{5, 5, 5, 5}

	report, err := CoverageAudit(intervals, truths, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 1.0, report.Empirical)
	assert.Equal(t, "ok", report.Flag)
}

func TestCoverageAuditUnderCoverage(t *testing.T) {
	intervals := make([][2]float64, 100)
	truths := make([]float64, 100)
	for i := range intervals {
		intervals[i] = [2]float64{0, 1}
		truths[i] = 5 // never covered
	}

	report, err := CoverageAudit(intervals, truths, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.Empirical)
	assert.Equal(t, "under-coverage", report.Flag)
}

func TestCoverageAuditValidation(t *testing.T) {
	_, err := CoverageAudit([][2]float64{{3, 1}}, []float64{2}, 0.95)
	assert.Error(t, err)

	_, err = CoverageAudit([][2]float64{{1, 3}}, []float64{2}, 1.5)
	assert.Error(t, err)
}

func poolingFit(studies []domain.StudyRecord) (*domain.EstimateResult, error) {
	return estimators.DerSimonianLaird(studies)
}

func TestLeaveOneOut(t *testing.T) {
	studies := []domain.StudyRecord{
		{Label: "A", Events: 3, N: 100},
		{Label: "B", Events: 4, N: 120},
		{Label: "C", Events: 2, N: 90},
		{Label: "D", Events: 5, N: 150},
	}

	report, err := LeaveOneOut(studies, poolingFit, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Folds)
	assert.Empty(t, report.Skipped)
	assert.Greater(t, report.RMSE, 0.0)
	assert.GreaterOrEqual(t, report.RMSE, report.MAE)
	assert.GreaterOrEqual(t, report.Coverage, 0.0)
	assert.LessOrEqual(t, report.Coverage, 1.0)
}

func TestLeaveOneOutSkipsFailingFolds(t *testing.T) {
	studies := []domain.StudyRecord{
		{Label: "A", Events: 3, N: 100},
		{Label: "B", Events: 4, N: 120},
		{Label: "C", Events: 2, N: 90},
	}

	calls := 0
	flaky := func(train []domain.StudyRecord) (*domain.EstimateResult, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("fit diverged")
		}
		return poolingFit(train)
	}

	report, err := LeaveOneOut(studies, flaky, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Folds)
	assert.Equal(t, []string{"B"}, report.Skipped)
}

func TestLeaveOneOutNeedsTwoStudies(t *testing.T) {
	_, err := LeaveOneOut([]domain.StudyRecord{{Label: "A", Events: 1, N: 10}}, poolingFit, testLogger())
	assert.Error(t, err)
}

func TestCompareEstimatorsRanksByRMSE(t *testing.T) {
	studies := []domain.StudyRecord{
		{Label: "A", Events: 3, N: 100},
		{Label: "B", Events: 4, N: 120},
		{Label: "C", Events: 2, N: 90},
		{Label: "D", Events: 5, N: 150},
	}

	ranks, err := CompareEstimators(studies, map[string]EstimatorFunc{
		"pooling": poolingFit,
		"broken": func([]domain.StudyRecord) (*domain.EstimateResult, error) {
			return nil, errors.New("not fitted")
		},
	}, testLogger())
	require.NoError(t, err)
	require.Len(t, ranks, 2)

	assert.Equal(t, "pooling", ranks[0].Name)
	assert.NotNil(t, ranks[0].Report)
	assert.Equal(t, "broken", ranks[1].Name)
	assert.NotEmpty(t, ranks[1].Err)
}

func TestSequentialTest(t *testing.T) {
	ordered := []domain.StudyRecord{
		{Label: "2019", Events: 2, N: 50},
		{Label: "2020", Events: 3, N: 80},
		{Label: "2021", Events: 4, N: 100},
		{Label: "2022", Events: 5, N: 130},
		{Label: "2023", Events: 4, N: 110},
	}

	report, err := SequentialTest(ordered, poolingFit, testLogger())
	require.NoError(t, err)

	assert.Len(t, report.Steps, 4)
	for i, s := range report.Steps {
		assert.Equal(t, i+1, s.Step)
		assert.GreaterOrEqual(t, s.AbsError, 0.0)
	}
	assert.GreaterOrEqual(t, report.FirstHalfMAE, 0.0)
	assert.GreaterOrEqual(t, report.SecondHalfMAE, 0.0)
}

func TestSequentialTestNeedsThreeStudies(t *testing.T) {
	_, err := SequentialTest([]domain.StudyRecord{
		{Label: "A", Events: 1, N: 10},
		{Label: "B", Events: 1, N: 10},
	}, poolingFit, testLogger())
	assert.Error(t, err)
}
