// Package statmath provides the special-function approximations used by the
// risk estimators and the MGPS disproportionality model: the digamma
// function, the standard-normal quantile, and a Gamma-distribution quantile.
//
// The approximations preserve published series and coefficients because the
// signal-classification thresholds downstream are sensitive to them:
// digamma is accurate to ~1e-10 and the normal quantile to ~4.5e-4
// (Abramowitz & Stegun 26.2.23).
package statmath

import "math"

// Digamma computes psi(x), the derivative of the log-gamma function, for
// x > 0. Arguments below 6 are shifted up with the recurrence
// psi(x) = psi(x+1) - 1/x, then the asymptotic series in 1/x^2 is applied.
// Returns NaN for x <= 0.
func Digamma(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return math.NaN()
	}

	result := 0.0
	for x < 6 {
		result -= 1 / x
		x++
	}

	// Asymptotic expansion with Bernoulli-number coefficients.
	inv := 1 / x
	inv2 := inv * inv
	series := math.Log(x) - inv/2 -
		inv2*(1.0/12.0-inv2*(1.0/120.0-inv2*(1.0/252.0-inv2*(1.0/240.0-inv2/132.0))))

	return result + series
}

// Abramowitz & Stegun 26.2.23 rational-approximation coefficients.
const (
	normC0 = 2.515517
	normC1 = 0.802853
	normC2 = 0.010328
	normD1 = 1.432788
	normD2 = 0.189269
	normD3 = 0.001308
)

// NormalQuantile computes the standard-normal quantile z_p such that
// Phi(z_p) = p, using the Abramowitz & Stegun 26.2.23 rational
// approximation (absolute error < 4.5e-4). Returns -Inf/+Inf at p = 0/1
// and NaN outside [0, 1].
func NormalQuantile(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0 || p > 1:
		return math.NaN()
	case p == 0:
		return math.Inf(-1)
	case p == 1:
		return math.Inf(1)
	}

	if p < 0.5 {
		return -normalTail(p)
	}
	return normalTail(1 - p)
}

// normalTail evaluates the approximation for the upper tail probability
// q in (0, 0.5].
func normalTail(q float64) float64 {
	t := math.Sqrt(-2 * math.Log(q))
	return t - (normC0+t*(normC1+t*normC2))/(1+t*(normD1+t*(normD2+t*normD3)))
}

// GammaQuantile approximates the p-quantile of a Gamma(shape, rate)
// distribution via the Wilson-Hilferty cube-root normal approximation.
// The cube-root of a Gamma variate is approximately normal with mean
// 1 - 1/(9k) and variance 1/(9k), scaled by k/rate.
// The result is clamped at 0 for deep lower tails where the cube goes
// negative.
func GammaQuantile(p, shape, rate float64) float64 {
	if shape <= 0 || rate <= 0 || p < 0 || p > 1 || math.IsNaN(p) {
		return math.NaN()
	}

	z := NormalQuantile(p)
	if math.IsInf(z, -1) {
		return 0
	}
	if math.IsInf(z, 1) {
		return math.Inf(1)
	}

	v := 1 / (9 * shape)
	g := 1 - v + z*math.Sqrt(v)
	if g <= 0 {
		return 0
	}
	return shape * g * g * g / rate
}

// LogBeta computes ln B(a, b) = ln Gamma(a) + ln Gamma(b) - ln Gamma(a+b)
// for a, b > 0.
func LogBeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

// LogChoose computes ln C(n, k) in log-gamma arithmetic.
func LogChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk1, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk1
}

// LogSumExp computes ln(e^a + e^b) without overflow.
func LogSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	m := math.Max(a, b)
	return m + math.Log(math.Exp(a-m)+math.Exp(b-m))
}
