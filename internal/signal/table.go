// Package signal implements the pharmacovigilance disproportionality
// engine: 2x2 contingency tables, PRR/ROR ratios with log-normal confidence
// intervals, the MGPS empirical-Bayes EBGM/EBGM05 shrinkage estimates, and
// tiered signal-strength classification.
//
// Reference: Evans SJ, Waller PC, Davis S (2001) Use of proportional
// reporting ratios (PRRs) for signal generation from spontaneous adverse
// drug reaction reports. Pharmacoepidemiol Drug Saf. 10(6):483-6.
package signal

import "github.com/ae-risk-core/internal/domain"

// ContingencyTable is the 2x2 report table for one product x event pair.
//
//	            event   no event
//	product       a        b
//	other         c        d
type ContingencyTable struct {
	A float64
	B float64
	C float64
	D float64
}

// NewContingencyTable builds the table from externally supplied report
// counts, validating them first.
func NewContingencyTable(counts domain.ReportCounts) (*ContingencyTable, error) {
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	return &ContingencyTable{
		A: float64(counts.A),
		B: float64(counts.B),
		C: float64(counts.C),
		D: float64(counts.D),
	}, nil
}

// Total returns the table grand total.
func (t *ContingencyTable) Total() float64 {
	return t.A + t.B + t.C + t.D
}

// Expected returns the expected count in cell A under row/column
// independence: (a+b)(a+c)/N. Returns 0 for an empty table.
func (t *ContingencyTable) Expected() float64 {
	n := t.Total()
	if n == 0 {
		return 0
	}
	return (t.A + t.B) * (t.A + t.C) / n
}
