// Package metrics implements the regression metrics reported by the trainer.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrZeroVariance is returned by R2Score when every true value is identical.
var ErrZeroVariance = errors.New("total sum of squares is zero (no variance in yTrue)")

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	tss, rss, err := sumsOfSquares(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if tss == 0 {
		return 0, errors.Wrap(ErrZeroVariance, "R2Score")
	}
	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// RegressionReport holds the held-out metrics printed by the trainer.
type RegressionReport struct {
	R2   float64
	MAE  float64
	MSE  float64
	RMSE float64
	N    int
}

// Evaluate computes R², MAE, MSE and RMSE for n×1 true and predicted columns.
//
// When R² is undefined (fewer than two samples or no variance in yTrue) an
// UndefinedMetricWarning is emitted and R² is forced finite the way
// scikit-learn does: 1.0 for a perfect fit, 0.0 otherwise.
func Evaluate(yTrue, yPred mat.Matrix) (RegressionReport, error) {
	trueVec, err := columnVec("Evaluate", yTrue)
	if err != nil {
		return RegressionReport{}, err
	}
	predVec, err := columnVec("Evaluate", yPred)
	if err != nil {
		return RegressionReport{}, err
	}

	mse, err := MSE(trueVec, predVec)
	if err != nil {
		return RegressionReport{}, err
	}
	mae, err := MAE(trueVec, predVec)
	if err != nil {
		return RegressionReport{}, err
	}

	report := RegressionReport{
		MAE:  mae,
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		N:    trueVec.Len(),
	}

	r2, err := R2Score(trueVec, predVec)
	switch {
	case err == nil && report.N >= 2:
		report.R2 = r2
	case err == nil || errors.Is(err, ErrZeroVariance):
		report.R2 = 0
		if mse == 0 {
			report.R2 = 1
		}
		condition := "no variance in y_true"
		if report.N < 2 {
			condition = "less than two samples"
		}
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", condition, report.R2))
	default:
		return RegressionReport{}, err
	}
	return report, nil
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func sumsOfSquares(yTrue, yPred *mat.VecDense) (tss, rss float64, err error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, 0, err
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		p := yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}
	return tss, rss, nil
}

// columnVec converts an n×1 matrix to a vector.
func columnVec(op string, m mat.Matrix) (*mat.VecDense, error) {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if cols != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}
