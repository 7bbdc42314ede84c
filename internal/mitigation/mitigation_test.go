package mitigation

import (
	"io"
	"math"
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

func TestCombineCorrelatedRRBoundaries(t *testing.T) {
	// rho = 0: independent mechanisms multiply.
	got, err := CombineCorrelatedRR(0.4, 0.6, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.24, got, 1e-12)

	// rho = 1: fully redundant, the stronger effect is the floor.
	got, err = CombineCorrelatedRR(0.4, 0.6, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got, 1e-12)

	// Identical RRs at full correlation collapse to that RR.
	got, err = CombineCorrelatedRR(0.7, 0.7, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, got, 1e-12)
}

func TestCombineCorrelatedRRScenario(t *testing.T) {
	got, err := CombineCorrelatedRR(0.45, 0.55, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.3337, got, 0.0005)
}

func TestCombineCorrelatedRRInterpolationBounds(t *testing.T) {
	// Identical RRs at partial correlation stay strictly between the
	// independence product rr^2 and the single effect rr.
	const rr = 0.5
	for _, rho := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		got, err := CombineCorrelatedRR(rr, rr, rho)
		require.NoError(t, err)
		assert.Greater(t, got, rr*rr, "rho=%v", rho)
		assert.Less(t, got, rr, "rho=%v", rho)
	}
}

func TestCombineCorrelatedRRValidation(t *testing.T) {
	_, err := CombineCorrelatedRR(-0.1, 0.5, 0.5)
	assert.Error(t, err)

	_, err = CombineCorrelatedRR(0.5, -0.1, 0.5)
	assert.Error(t, err)

	_, err = CombineCorrelatedRR(0.5, 0.5, 1.1)
	assert.Error(t, err)

	_, err = CombineCorrelatedRR(0.5, 0.5, math.NaN())
	assert.Error(t, err)
}

func TestCombineMultipleRRsEmptyAndSingle(t *testing.T) {
	combined, log, err := CombineMultipleRRs(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, combined)
	assert.Empty(t, log)

	combined, log, err = CombineMultipleRRs([]float64{0.4}, []string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.4, combined)
	assert.Empty(t, log)
}

func TestCombineMultipleRRsMergesMostCorrelatedFirst(t *testing.T) {
	rrs := []float64{0.45, 0.55, 0.60}
	ids := []string{"x", "y", "z"}
	table := map[[2]string]float64{
		{"y", "z"}: 0.5,
		{"x", "y"}: 0.3,
		{"x", "z"}: 0.3,
	}
	corr := func(i, j int) float64 {
		a, b := ids[i], ids[j]
		if a > b {
			a, b = b, a
		}
		return table[[2]string{a, b}]
	}

	combined, log, err := CombineMultipleRRs(rrs, ids, corr)
	require.NoError(t, err)
	require.Len(t, log, 2)

	// y and z merge first at rho = 0.5, then the merged entry meets x at
	// the max cross-pair correlation 0.3.
	assert.Equal(t, 0.5, log[0].Correlation)
	assert.Equal(t, 0.3, log[1].Correlation)
	assert.InDelta(t, 0.2436, combined, 0.0005)
}

func TestCombineMultipleRRsTieBreaksLowestIndexPair(t *testing.T) {
	rrs := []float64{0.5, 0.6, 0.7}
	ids := []string{"a", "b", "c"}
	uncorrelated := func(i, j int) float64 { return 0 }

	combined, log, err := CombineMultipleRRs(rrs, ids, uncorrelated)
	require.NoError(t, err)
	require.Len(t, log, 2)

	assert.Equal(t, "a", log[0].StrategyA)
	assert.Equal(t, "b", log[0].StrategyB)
	// All correlations zero: reduction is the plain product.
	assert.InDelta(t, 0.5*0.6*0.7, combined, 1e-12)
}

func TestRegistryLookupAndCorrelation(t *testing.T) {
	r := NewRegistry(testLogger())

	s, err := r.Strategy(StrategyTocilizumab)
	require.NoError(t, err)
	assert.NoError(t, s.Validate())
	assert.True(t, s.AppliesTo("crs"))
	assert.False(t, s.AppliesTo("neurotoxicity"))

	_, err = r.Strategy("leeches")
	assert.Error(t, err)

	assert.Equal(t, 0.5, r.Correlation(StrategyTocilizumab, StrategyCorticosteroids))
	assert.Equal(t, 0.5, r.Correlation(StrategyCorticosteroids, StrategyTocilizumab))
	assert.Equal(t, 0.0, r.Correlation(StrategyTocilizumab, StrategyPremedication))
	assert.Equal(t, 1.0, r.Correlation(StrategyTocilizumab, StrategyTocilizumab))
}

func TestRegistryStrategiesSortedAndValid(t *testing.T) {
	r := NewRegistry(testLogger())
	all := r.Strategies()
	require.NotEmpty(t, all)

	for i, s := range all {
		assert.NoError(t, s.Validate())
		if i > 0 {
			assert.Less(t, all[i-1].ID, s.ID)
		}
	}
}

func TestCalculateMitigatedRisk(t *testing.T) {
	engine := NewEngine(NewRegistry(testLogger()), testLogger())

	result, err := engine.CalculateMitigatedRisk(0.40, "crs",
		[]string{StrategyTocilizumab, StrategyCorticosteroids})
	require.NoError(t, err)

	// combine(0.55, 0.60, 0.5) = (0.33)^0.5 * (0.55)^0.5
	assert.InDelta(t, 0.4260, result.CombinedRR, 0.0005)
	assert.InDelta(t, 0.40*result.CombinedRR, result.MitigatedRisk, 1e-12)
	assert.Less(t, result.MitigatedRisk, result.BaselineRisk)
	require.Len(t, result.Adjustments, 1)
	assert.Equal(t, 0.5, result.Adjustments[0].Correlation)
	assert.NotEmpty(t, result.ID)
}

func TestCalculateMitigatedRiskIgnoresNonTargetingStrategies(t *testing.T) {
	engine := NewEngine(NewRegistry(testLogger()), testLogger())

	// Anakinra targets neurotoxicity only; for CRS it is dropped with a
	// warning and tocilizumab acts alone.
	result, err := engine.CalculateMitigatedRisk(0.30, "crs",
		[]string{StrategyTocilizumab, StrategyAnakinra})
	require.NoError(t, err)

	assert.Equal(t, []string{StrategyTocilizumab}, result.Applied)
	assert.InDelta(t, 0.55, result.CombinedRR, 1e-12)
	assert.NotEmpty(t, result.Warnings)
}

func TestCalculateMitigatedRiskNoStrategies(t *testing.T) {
	engine := NewEngine(NewRegistry(testLogger()), testLogger())

	result, err := engine.CalculateMitigatedRisk(0.25, "crs", nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.CombinedRR)
	assert.Equal(t, 0.25, result.MitigatedRisk)
}

func TestCalculateMitigatedRiskValidation(t *testing.T) {
	engine := NewEngine(NewRegistry(testLogger()), testLogger())

	_, err := engine.CalculateMitigatedRisk(1.5, "crs", nil)
	assert.Error(t, err)

	_, err = engine.CalculateMitigatedRisk(0.5, "", nil)
	assert.Error(t, err)

	_, err = engine.CalculateMitigatedRisk(0.5, "crs", []string{"leeches"})
	assert.Error(t, err)
}

// zeroWidthRegistry builds a registry whose strategies carry degenerate CIs
// so Monte Carlo draws collapse to the point estimates.
func zeroWidthRegistry() *Registry {
	r := &Registry{
		logger:       testLogger(),
		strategies:   make(map[string]domain.MitigationStrategy),
		correlations: make(map[[2]string]float64),
	}
	r.strategies["p"] = domain.MitigationStrategy{
		ID: "p", Name: "P", RR: 0.5, CILow: 0.5, CIHigh: 0.5, Targets: []string{"crs"},
	}
	r.strategies["q"] = domain.MitigationStrategy{
		ID: "q", Name: "Q", RR: 0.6, CILow: 0.6, CIHigh: 0.6, Targets: []string{"crs"},
	}
	r.setCorrelation("p", "q", 0.4)
	return r
}

func TestMonteCarloConvergesWithZeroWidthCIs(t *testing.T) {
	engine := NewEngine(zeroWidthRegistry(), testLogger())

	req := MonteCarloRequest{
		AEType:     "crs",
		Alpha:      2,
		Beta:       18,
		Strategies: []string{"p", "q"},
		Samples:    50000,
		Seed:       42,
	}
	summary, err := engine.MonteCarloMitigatedRisk(req)
	require.NoError(t, err)

	// Deterministic combine(0.5, 0.6, 0.4) applied to the Beta(2,18) mean.
	combined, err := CombineCorrelatedRR(0.5, 0.6, 0.4)
	require.NoError(t, err)
	expected := 0.1 * combined

	assert.InDelta(t, expected, summary.Mean, 0.002)
	assert.InDelta(t, 0.1, summary.BaselineMean, 1e-12)
	assert.Less(t, summary.P025, summary.Median)
	assert.Less(t, summary.Median, summary.P975)
	assert.Equal(t, uint64(42), summary.Seed)
}

func TestMonteCarloSeedReproducibility(t *testing.T) {
	engine := NewEngine(NewRegistry(testLogger()), testLogger())

	req := MonteCarloRequest{
		AEType:     "crs",
		Alpha:      3,
		Beta:       50,
		Strategies: []string{StrategyTocilizumab, StrategyCorticosteroids},
		Samples:    2000,
		Seed:       7,
	}

	first, err := engine.MonteCarloMitigatedRisk(req)
	require.NoError(t, err)
	second, err := engine.MonteCarloMitigatedRisk(req)
	require.NoError(t, err)

	assert.Equal(t, first.Mean, second.Mean)
	assert.Equal(t, first.Median, second.Median)
	assert.Equal(t, first.P025, second.P025)

	req.Seed = 8
	third, err := engine.MonteCarloMitigatedRisk(req)
	require.NoError(t, err)
	assert.NotEqual(t, first.Mean, third.Mean)
}

func TestMonteCarloValidation(t *testing.T) {
	engine := NewEngine(NewRegistry(testLogger()), testLogger())

	_, err := engine.MonteCarloMitigatedRisk(MonteCarloRequest{AEType: "crs", Alpha: 0, Beta: 1, Samples: 10})
	assert.Error(t, err)

	_, err = engine.MonteCarloMitigatedRisk(MonteCarloRequest{AEType: "crs", Alpha: 1, Beta: 1, Samples: 0})
	assert.Error(t, err)

	_, err = engine.MonteCarloMitigatedRisk(MonteCarloRequest{Alpha: 1, Beta: 1, Samples: 10})
	assert.Error(t, err)
}

func TestLogSE(t *testing.T) {
	assert.InDelta(t, (math.Log(0.8)-math.Log(0.38))/(2*1.96), logSE(0.38, 0.8), 1e-12)
	assert.Equal(t, 0.0, logSE(0.5, 0.5))
	assert.Equal(t, 0.0, logSE(0, 0.5))
	assert.Equal(t, 0.0, logSE(0.6, 0.5))
}
