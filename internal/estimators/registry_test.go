package estimators

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ae-risk-core/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRegistryRegistersAllSevenModels(t *testing.T) {
	r := NewRegistry(testLogger())
	models := r.Models()
	require.Len(t, models, 7)

	ids := make(map[string]bool)
	for _, m := range models {
		ids[m.ID] = true
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.RequiredInputs)
		assert.NotNil(t, m.Compute)
	}
	for _, id := range []string{
		ModelBetaBinomial, ModelClopperPearson, ModelWilson,
		ModelDerSimonian, ModelEmpiricalBayes, ModelKaplanMeier, ModelPredictive,
	} {
		assert.True(t, ids[id], "missing model %s", id)
	}
}

func TestEstimateRiskUnknownModel(t *testing.T) {
	r := NewRegistry(testLogger())
	_, err := r.EstimateRisk("poisson-gamma", domain.Input{"events": 1, "n": 10})
	assert.ErrorIs(t, err, domain.ErrUnknownModel)
}

func TestEstimateRiskMissingInputs(t *testing.T) {
	r := NewRegistry(testLogger())
	_, err := r.EstimateRisk(ModelPredictive, domain.Input{"events": 1})

	var missing *domain.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ModelPredictive, missing.ModelID)
	assert.ElementsMatch(t, []string{"n", "n_new"}, missing.Missing)
}

func TestEstimateRiskDispatch(t *testing.T) {
	r := NewRegistry(testLogger())
	res, err := r.EstimateRisk(ModelClopperPearson, domain.Input{"events": 0, "n": 47})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Estimate)
	assert.InDelta(t, 7.55, res.CIHigh, 0.1)
}

func TestCompareModelsSelectsSatisfiableModels(t *testing.T) {
	r := NewRegistry(testLogger())
	report := r.CompareModels(domain.Input{"events": 2, "n": 40})

	// events+n satisfies the three binomial models only.
	assert.Len(t, report.Results, 3)
	assert.Contains(t, report.Results, ModelBetaBinomial)
	assert.Contains(t, report.Results, ModelClopperPearson)
	assert.Contains(t, report.Results, ModelWilson)
	assert.Empty(t, report.Errors)
	assert.Len(t, report.Summary, 3)
}

func TestCompareModelsIsolatesFailures(t *testing.T) {
	r := NewRegistry(testLogger())
	report := r.CompareModels(
		domain.Input{"events": 2, "n": 40},
		ModelClopperPearson, ModelDerSimonian, ModelWilson,
	)

	// The meta-analysis model fails on missing studies without aborting
	// the rest of the batch.
	assert.Len(t, report.Results, 2)
	require.Contains(t, report.Errors, ModelDerSimonian)
	assert.Contains(t, report.Errors[ModelDerSimonian], "studies")
}

func TestCompareModelsSummaryOrdering(t *testing.T) {
	r := NewRegistry(testLogger())
	report := r.CompareModels(domain.Input{"events": 2, "n": 40})

	require.NotEmpty(t, report.Summary)
	for i := 1; i < len(report.Summary); i++ {
		assert.Less(t, report.Summary[i-1].ModelID, report.Summary[i].ModelID)
	}
	for _, row := range report.Summary {
		assert.InDelta(t, row.CIHigh-row.CILow, row.CIWidth, 1e-9)
	}
}
