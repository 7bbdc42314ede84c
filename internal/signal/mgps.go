package signal

import (
	"math"

	"github.com/ae-risk-core/pkg/statmath"
)

// Fixed hyperparameters of the two-component Gamma-mixture prior on the
// relative reporting rate lambda, from DuMouchel's fit to the FDA
// spontaneous-reporting database. Component 1 is the diffuse
// low-expectation component, component 2 concentrates near lambda = 0.5.
const (
	mgpsAlpha1 = 0.2
	mgpsBeta1  = 0.1
	mgpsAlpha2 = 2.0
	mgpsBeta2  = 4.0
	mgpsWeight = 1.0 / 3.0 // prior mass on component 1
)

// EBGMResult carries the MGPS shrinkage estimates for one observed/expected
// pair.
type EBGMResult struct {
	EBGM   float64 // geometric-mean estimate exp(E[ln lambda])
	EBGM05 float64 // conservative 5th-percentile bound
	Q1     float64 // posterior weight of mixture component 1
}

// EBGM computes the Multi-Item Gamma-Poisson Shrinker posterior for an
// observed report count n against an expected count e.
//
// Each Gamma component is conjugate-updated to Gamma(alpha+n, beta+e). The
// posterior mixing weight is recovered from the component marginal
// (negative-binomial) likelihoods in log space, stabilized with
// log-sum-exp. EBGM is exp of the weighted posterior mean of ln lambda
// (via the digamma function); EBGM05 blends the component 5th percentiles
// (Wilson-Hilferty Gamma quantiles) by the same weights.
func EBGM(observed, expected float64) EBGMResult {
	if observed < 0 || expected <= 0 || math.IsNaN(observed) || math.IsNaN(expected) {
		return EBGMResult{}
	}

	// Log marginal likelihood of the observed count under one Gamma
	// component: a negative binomial in n.
	logMarginal := func(alpha, beta float64) float64 {
		lgAN, _ := math.Lgamma(alpha + observed)
		lgA, _ := math.Lgamma(alpha)
		lgN, _ := math.Lgamma(observed + 1)
		return lgAN - lgA - lgN +
			alpha*math.Log(beta/(beta+expected)) +
			observed*math.Log(expected/(beta+expected))
	}

	l1 := math.Log(mgpsWeight) + logMarginal(mgpsAlpha1, mgpsBeta1)
	l2 := math.Log(1-mgpsWeight) + logMarginal(mgpsAlpha2, mgpsBeta2)
	norm := statmath.LogSumExp(l1, l2)
	q1 := math.Exp(l1 - norm)
	q2 := 1 - q1

	// Posterior components.
	a1, b1 := mgpsAlpha1+observed, mgpsBeta1+expected
	a2, b2 := mgpsAlpha2+observed, mgpsBeta2+expected

	// E[ln lambda | component] = psi(alpha) - ln(beta).
	meanLog := q1*(statmath.Digamma(a1)-math.Log(b1)) +
		q2*(statmath.Digamma(a2)-math.Log(b2))
	ebgm := math.Exp(meanLog)

	ebgm05 := q1*statmath.GammaQuantile(0.05, a1, b1) +
		q2*statmath.GammaQuantile(0.05, a2, b2)

	if math.IsNaN(ebgm) || math.IsInf(ebgm, 0) {
		return EBGMResult{}
	}
	return EBGMResult{EBGM: ebgm, EBGM05: math.Min(ebgm05, ebgm), Q1: q1}
}
