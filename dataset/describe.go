package dataset

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Correlation returns the Pearson correlation matrix over Columns, in
// Columns order, together with the column names. A constant column yields
// NaN in its row and column, the same as pandas DataFrame.corr.
func (d *Dataset) Correlation() (*mat.SymDense, []string) {
	names := append([]string(nil), Columns...)
	cols := make([][]float64, len(names))
	for i, name := range names {
		cols[i], _ = d.Column(name)
	}

	corr := mat.NewSymDense(len(names), nil)
	for i := range names {
		for j := i; j < len(names); j++ {
			if i == j {
				corr.SetSym(i, j, selfCorrelation(cols[i]))
				continue
			}
			corr.SetSym(i, j, stat.Correlation(cols[i], cols[j], nil))
		}
	}
	return corr, names
}

// selfCorrelation is exactly 1 unless the column has no variance.
func selfCorrelation(x []float64) float64 {
	if std := stat.StdDev(x, nil); std == 0 || math.IsNaN(std) {
		return math.NaN()
	}
	return 1
}

// Summary describes one column for the trainer's dataset printout.
type Summary struct {
	Column string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Describe summarizes every required column.
func (d *Dataset) Describe() []Summary {
	out := make([]Summary, 0, len(Columns))
	for _, name := range Columns {
		col, _ := d.Column(name)
		mean, std := stat.MeanStdDev(col, nil)
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		out = append(out, Summary{Column: name, Mean: mean, StdDev: std, Min: lo, Max: hi})
	}
	return out
}
