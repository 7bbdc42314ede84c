package signal

import (
	"math"

	"github.com/ae-risk-core/pkg/statmath"
)

// Ratio is a disproportionality ratio with its log-normal 95% confidence
// interval. A neutral zero value marks tables where the ratio is undefined.
type Ratio struct {
	Point float64
	Low   float64
	High  float64
}

// neutral is returned for degenerate tables instead of raising or emitting
// non-finite values.
func neutral() Ratio {
	return Ratio{}
}

func (r Ratio) finite() bool {
	return !math.IsNaN(r.Point) && !math.IsInf(r.Point, 0) &&
		!math.IsNaN(r.Low) && !math.IsInf(r.Low, 0) &&
		!math.IsNaN(r.High) && !math.IsInf(r.High, 0)
}

// PRR computes the Proportional Reporting Ratio
// (a/(a+b)) / (c/(c+d)) with the standard log-normal interval
// exp(ln PRR +/- z * sqrt(1/a - 1/(a+b) + 1/c - 1/(c+d))).
//
// Any zero denominator or non-positive log argument yields the neutral
// (0,0,0) ratio rather than an error.
func PRR(t *ContingencyTable) Ratio {
	if t.A == 0 || t.C == 0 || t.A+t.B == 0 || t.C+t.D == 0 {
		return neutral()
	}

	point := (t.A / (t.A + t.B)) / (t.C / (t.C + t.D))
	if point <= 0 {
		return neutral()
	}

	variance := 1/t.A - 1/(t.A+t.B) + 1/t.C - 1/(t.C+t.D)
	if variance < 0 {
		return neutral()
	}
	z := statmath.NormalQuantile(0.975)
	se := math.Sqrt(variance)
	r := Ratio{
		Point: point,
		Low:   math.Exp(math.Log(point) - z*se),
		High:  math.Exp(math.Log(point) + z*se),
	}
	if !r.finite() {
		return neutral()
	}
	return r
}

// ROR computes the Reporting Odds Ratio (a*d)/(b*c) with the log-normal
// interval exp(ln ROR +/- z * sqrt(1/a + 1/b + 1/c + 1/d)), with the same
// neutral-on-degeneracy contract as PRR.
func ROR(t *ContingencyTable) Ratio {
	if t.A == 0 || t.B == 0 || t.C == 0 || t.D == 0 {
		return neutral()
	}

	point := (t.A * t.D) / (t.B * t.C)
	if point <= 0 {
		return neutral()
	}

	z := statmath.NormalQuantile(0.975)
	se := math.Sqrt(1/t.A + 1/t.B + 1/t.C + 1/t.D)
	r := Ratio{
		Point: point,
		Low:   math.Exp(math.Log(point) - z*se),
		High:  math.Exp(math.Log(point) + z*se),
	}
	if !r.finite() {
		return neutral()
	}
	return r
}
