// Package model_selection splits data into training and held-out partitions.
package model_selection

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// TrainTestSplit shuffles the rows of X and y with a generator seeded by
// randomState and splits them into train and test partitions.
//
// The test partition holds ceil(testSize*n) rows, the train partition the
// rest. The same data and seed always produce the same partition.
//
// 使用例:
//
//	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(X, y, 0.2, 42)
func TrainTestSplit(X, y mat.Matrix, testSize float64, randomState int64) (XTrain, XTest, yTrain, yTest *mat.Dense, err error) {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows != yRows {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", rows, yRows, 0)
	}
	if rows == 0 {
		return nil, nil, nil, nil, errors.ErrEmptyData
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, nil, nil, errors.NewValidationError("test_size", "must be in the open interval (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(rows)))
	nTrain := rows - nTest
	if nTrain == 0 || nTest == 0 {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%v one partition would be empty", rows, testSize))
	}

	perm := rand.New(rand.NewSource(randomState)).Perm(rows)

	XTrain = mat.NewDense(nTrain, cols, nil)
	XTest = mat.NewDense(nTest, cols, nil)
	yTrain = mat.NewDense(nTrain, yCols, nil)
	yTest = mat.NewDense(nTest, yCols, nil)

	// First nTest shuffled rows form the test partition.
	for i, src := range perm {
		xDst, yDst, dst := XTest, yTest, i
		if i >= nTest {
			xDst, yDst, dst = XTrain, yTrain, i-nTest
		}
		for j := 0; j < cols; j++ {
			xDst.Set(dst, j, X.At(src, j))
		}
		for j := 0; j < yCols; j++ {
			yDst.Set(dst, j, y.At(src, j))
		}
	}
	return XTrain, XTest, yTrain, yTest, nil
}
