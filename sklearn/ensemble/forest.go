// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"bytes"
	"encoding/gob"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/parallel"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/sklearn/tree"
)

const modelName = "RandomForestRegressor"

var (
	_ model.Regressor       = (*RandomForestRegressor)(nil)
	_ model.ParameterGetter = (*RandomForestRegressor)(nil)
)

// RandomForestRegressor averages the predictions of decision trees fitted on
// bootstrap samples of the training data.
//
// The model is read-only after Fit, so Predict may be called concurrently.
type RandomForestRegressor struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators     int
	randomState     int64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	bootstrap       bool
	nJobs           int

	// Learned
	trees       []*tree.DecisionTreeRegressor
	importances []float64

	logger log.Logger
}

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// NewRandomForestRegressor creates a forest with scikit-learn defaults:
// 100 trees, bootstrap sampling and every feature considered at each split.
//
// 使用例:
//
//	forest := ensemble.NewRandomForestRegressor(
//	    ensemble.WithNEstimators(300),
//	    ensemble.WithRandomState(42),
//	)
//	err := forest.Fit(XTrain, yTrain)
func NewRandomForestRegressor(options ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		state:           model.NewStateManager(),
		nEstimators:     100,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
		nJobs:           1,
	}
	for _, opt := range options {
		opt(rf)
	}
	if rf.logger == nil {
		rf.logger = log.GetLogger()
	}
	rf.logger = rf.logger.With(log.ModelNameKey, modelName)
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.nEstimators = n
	}
}

// WithRandomState seeds bootstrap sampling and feature sampling.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestRegressor) {
		rf.randomState = seed
	}
}

// WithMaxDepth limits the depth of every tree. 0 leaves it unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestRegressor) {
		rf.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the features examined per split. 0 examines all.
func WithMaxFeatures(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.maxFeatures = n
	}
}

// WithBootstrap toggles bootstrap sampling. Without it every tree sees the
// full training set.
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestRegressor) {
		rf.bootstrap = bootstrap
	}
}

// WithNJobs sets the number of goroutines fitting trees. Values <= 0 use one
// per CPU core.
func WithNJobs(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.nJobs = n
	}
}

// WithLogger sets the logger used for fit progress.
func WithLogger(logger log.Logger) Option {
	return func(rf *RandomForestRegressor) {
		rf.logger = logger
	}
}

func (rf *RandomForestRegressor) validateParams() error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	return nil
}

// Fit fits nEstimators trees on X (n×p) and y (n×1).
//
// Every tree's seed is drawn from the forest seed before fitting starts, so
// the fitted forest does not depend on nJobs.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if err := rf.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if rows != yRows {
		return errors.NewDimensionError("RandomForestRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestRegressor.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("RandomForestRegressor.Fit", X); err != nil {
		return err
	}

	start := time.Now()
	logger := rf.logger.With(log.OperationKey, log.OperationFit, log.PhaseKey, log.PhaseTraining)
	logger.Info("Starting model training.",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.NEstimatorsKey, rf.nEstimators,
		log.RandomSeedKey, rf.randomState,
	)

	seeder := rand.New(rand.NewSource(rf.randomState))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	trees := make([]*tree.DecisionTreeRegressor, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ParallelizeN(rf.nEstimators, parallel.Workers(rf.nJobs), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			trees[i], errs[i] = rf.fitTree(X, y, rows, seeds[i])
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "fit tree %d", i)
		}
	}

	importances := make([]float64, cols)
	for _, t := range trees {
		for j, v := range t.GetFeatureImportances() {
			importances[j] += v
		}
	}
	for j := range importances {
		importances[j] /= float64(len(trees))
	}

	rf.trees = trees
	rf.importances = importances
	rf.state.SetFitted(cols, rows)

	logger.Info("Model training completed.",
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitTree fits one tree on a bootstrap sample drawn with seed.
func (rf *RandomForestRegressor) fitTree(X, y mat.Matrix, rows int, seed int64) (*tree.DecisionTreeRegressor, error) {
	rng := rand.New(rand.NewSource(seed))
	weights := make([]float64, rows)
	if rf.bootstrap {
		for i := 0; i < rows; i++ {
			weights[rng.Intn(rows)]++
		}
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	t := tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(rf.maxFeatures),
		tree.WithRandomState(rng.Int63()),
	)
	if err := t.FitWeighted(X, y, weights); err != nil {
		return nil, err
	}
	return t, nil
}

// Predict returns the mean prediction of the trees as an n×1 matrix.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	if err := rf.state.CheckFeatures("RandomForestRegressor.Predict", X); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("RandomForestRegressor.Predict", X); err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	sum := mat.NewDense(rows, 1, nil)
	for _, t := range rf.trees {
		pred, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, pred)
	}
	sum.Scale(1/float64(len(rf.trees)), sum)
	return sum, nil
}

// Score returns the coefficient of determination R² of the predictions.
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	report, err := metrics.Evaluate(y, pred)
	if err != nil {
		return 0, err
	}
	return report.R2, nil
}

// FeatureImportances returns the mean impurity-based importance per feature.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := rf.state.RequireFitted(modelName, "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), rf.importances...), nil
}

// NFeatures returns the number of features seen during Fit.
func (rf *RandomForestRegressor) NFeatures() int {
	n, _ := rf.state.GetDimensions()
	return n
}

// NEstimators returns the number of fitted trees.
func (rf *RandomForestRegressor) NEstimators() int { return len(rf.trees) }

// IsFitted reports whether Fit has completed.
func (rf *RandomForestRegressor) IsFitted() bool { return rf.state.IsFitted() }

// GetParams returns the hyperparameters (scikit-learn compatible).
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"random_state":      rf.randomState,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"n_jobs":            rf.nJobs,
	}
}

// snapshot is the gob form of a forest.
type snapshot struct {
	NEstimators     int
	RandomState     int64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	NJobs           int
	Trees           []*tree.DecisionTreeRegressor
	Importances     []float64
	State           *model.StateManager
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestRegressor) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		NEstimators:     rf.nEstimators,
		RandomState:     rf.randomState,
		MaxDepth:        rf.maxDepth,
		MinSamplesSplit: rf.minSamplesSplit,
		MinSamplesLeaf:  rf.minSamplesLeaf,
		MaxFeatures:     rf.maxFeatures,
		Bootstrap:       rf.bootstrap,
		NJobs:           rf.nJobs,
		Trees:           rf.trees,
		Importances:     rf.importances,
		State:           rf.state,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode random forest")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. The decoded forest logs through the
// default logger.
func (rf *RandomForestRegressor) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "decode random forest")
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	if s.State.Fitted && len(s.Trees) == 0 {
		return errors.NewModelError("RandomForestRegressor.GobDecode", "corrupt forest", errors.New("fitted forest has no trees"))
	}
	for i, t := range s.Trees {
		if t == nil || !t.IsFitted() {
			return errors.NewModelError("RandomForestRegressor.GobDecode", "corrupt forest", errors.Newf("tree %d is not fitted", i))
		}
		if t.NFeatures() != s.State.NFeatures {
			return errors.NewModelError("RandomForestRegressor.GobDecode", "corrupt forest",
				errors.Newf("tree %d has %d features, forest has %d", i, t.NFeatures(), s.State.NFeatures))
		}
	}
	*rf = RandomForestRegressor{
		state:           s.State,
		nEstimators:     s.NEstimators,
		randomState:     s.RandomState,
		maxDepth:        s.MaxDepth,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		bootstrap:       s.Bootstrap,
		nJobs:           s.NJobs,
		trees:           s.Trees,
		importances:     s.Importances,
		logger:          log.GetLogger().With(log.ModelNameKey, modelName),
	}
	return nil
}
