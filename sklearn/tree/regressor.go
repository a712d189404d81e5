// Package tree implements CART decision trees over gonum matrices.
package tree

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

var _ model.Regressor = (*DecisionTreeRegressor)(nil)

// leafFeature marks a node without a split.
const leafFeature = -1

// pureTolerance is the impurity at or below which a node is treated as pure.
const pureTolerance = 1e-12

// Node is one node of a fitted tree. Children are indices into the node
// slice; leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Impurity  float64
	NSamples  int
	Weight    float64
}

// IsLeaf reports whether the node has no split.
func (n Node) IsLeaf() bool { return n.Feature == leafFeature }

// DecisionTreeRegressor is a regression tree using the squared error criterion.
// Leaves predict the weighted mean of their training targets.
type DecisionTreeRegressor struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string
	maxDepth        int   // 0 means unlimited
	minSamplesSplit int   // minimum samples required to split a node
	minSamplesLeaf  int   // minimum samples in each child
	maxFeatures     int   // features examined per split, 0 means all
	randomState     int64 // seed for feature sampling

	// Learned
	nodes       []Node
	importances []float64
	depth       int
	rng         *rand.Rand
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// NewDecisionTreeRegressor creates a regression tree.
//
// 使用例:
//
//	dt := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(5))
//	err := dt.Fit(X, y)
func NewDecisionTreeRegressor(options ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		criterion:       "squared_error",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range options {
		opt(dt)
	}
	return dt
}

// WithMaxDepth limits the depth of the tree. 0 leaves it unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many randomly chosen features are examined at
// each split. 0 examines all of them.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.maxFeatures = n
	}
}

// WithRandomState seeds feature sampling.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.randomState = seed
	}
}

func (dt *DecisionTreeRegressor) validateParams() error {
	if dt.criterion != "squared_error" {
		return errors.NewValidationError("criterion", "must be 'squared_error'", dt.criterion)
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", dt.maxFeatures)
	}
	return nil
}

// Fit builds the tree from X (n×p) and y (n×1).
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	weights := make([]float64, rows)
	for i := range weights {
		weights[i] = 1
	}
	return dt.FitWeighted(X, y, weights)
}

// FitWeighted builds the tree with per-sample weights. Samples with weight
// zero are left out, which is how bootstrap resampling is expressed.
func (dt *DecisionTreeRegressor) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	if err := dt.validateParams(); err != nil {
		return err
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if rows != yRows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", 1, yCols, 1)
	}
	if len(sampleWeight) != rows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, len(sampleWeight), 0)
	}

	b := &builder{
		dt:      dt,
		columns: make([][]float64, cols),
		target:  make([]float64, rows),
		weight:  sampleWeight,
	}
	for j := 0; j < cols; j++ {
		b.columns[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			b.columns[j][i] = X.At(i, j)
		}
	}
	for i := 0; i < rows; i++ {
		b.target[i] = y.At(i, 0)
	}
	if err := errors.CheckFinite("DecisionTreeRegressor.Fit", b.target); err != nil {
		return err
	}

	samples := make([]int, 0, rows)
	for i, w := range sampleWeight {
		if w < 0 {
			return errors.NewValidationError("sample_weight", "must be non-negative", w)
		}
		if w > 0 {
			samples = append(samples, i)
		}
	}
	if len(samples) == 0 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "all sample weights are zero")
	}

	dt.state.Reset()
	dt.rng = rand.New(rand.NewSource(dt.randomState))
	dt.nodes = dt.nodes[:0]
	dt.depth = 0
	dt.importances = make([]float64, cols)

	b.grow(samples, 0)
	dt.normalizeImportances()
	dt.state.SetFitted(cols, len(samples))
	return nil
}

// builder holds column-major training data while a tree grows.
type builder struct {
	dt      *DecisionTreeRegressor
	columns [][]float64
	target  []float64
	weight  []float64
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples[:pos] go left once sorted by feature
	proxy     float64
}

// grow appends the node for samples and its subtree, returning its index.
func (b *builder) grow(samples []int, depth int) int {
	dt := b.dt
	value, impurity, weight := b.stats(samples)

	idx := len(dt.nodes)
	dt.nodes = append(dt.nodes, Node{
		Feature:  leafFeature,
		Left:     -1,
		Right:    -1,
		Value:    value,
		Impurity: impurity,
		NSamples: len(samples),
		Weight:   weight,
	})
	if depth > dt.depth {
		dt.depth = depth
	}

	n := len(samples)
	if (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		n < dt.minSamplesSplit ||
		n < 2*dt.minSamplesLeaf ||
		impurity <= pureTolerance {
		return idx
	}

	best, ok := b.bestSplit(samples, weight)
	if !ok {
		return idx
	}

	col := b.columns[best.feature]
	sort.SliceStable(samples, func(i, j int) bool { return col[samples[i]] < col[samples[j]] })
	left := append([]int(nil), samples[:best.pos]...)
	right := append([]int(nil), samples[best.pos:]...)

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	node := &dt.nodes[idx]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = l
	node.Right = r

	lc, rc := dt.nodes[l], dt.nodes[r]
	dt.importances[best.feature] += weight*impurity - lc.Weight*lc.Impurity - rc.Weight*rc.Impurity
	return idx
}

// stats returns the weighted mean, weighted variance and total weight.
func (b *builder) stats(samples []int) (mean, variance, weight float64) {
	var sum float64
	for _, i := range samples {
		w := b.weight[i]
		weight += w
		sum += w * b.target[i]
	}
	mean = sum / weight
	for _, i := range samples {
		d := b.target[i] - mean
		variance += b.weight[i] * d * d
	}
	return mean, variance / weight, weight
}

// bestSplit scans candidate features for the split that maximises the
// reduction in weighted squared error.
func (b *builder) bestSplit(samples []int, total float64) (split, bool) {
	dt := b.dt
	features := b.candidateFeatures()

	var totalSum float64
	for _, i := range samples {
		totalSum += b.weight[i] * b.target[i]
	}
	// Children are compared on sumL²/wL + sumR²/wR, which orders splits the
	// same way as the impurity decrease.
	parentProxy := totalSum * totalSum / total

	order := make([]int, len(samples))
	best := split{feature: -1, proxy: parentProxy}
	found := false

	for _, f := range features {
		col := b.columns[f]
		copy(order, samples)
		sort.SliceStable(order, func(i, j int) bool { return col[order[i]] < col[order[j]] })
		if col[order[0]] == col[order[len(order)-1]] {
			continue
		}

		var wL, sumL float64
		for pos := 1; pos < len(order); pos++ {
			prev := order[pos-1]
			wL += b.weight[prev]
			sumL += b.weight[prev] * b.target[prev]

			lo, hi := col[prev], col[order[pos]]
			if lo == hi {
				continue
			}
			if pos < dt.minSamplesLeaf || len(order)-pos < dt.minSamplesLeaf {
				continue
			}
			wR := total - wL
			sumR := totalSum - sumL
			if wL <= 0 || wR <= 0 {
				continue
			}
			proxy := sumL*sumL/wL + sumR*sumR/wR
			if proxy > best.proxy+pureTolerance*math.Abs(best.proxy) {
				threshold := lo + (hi-lo)/2
				if threshold == hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, pos: pos, proxy: proxy}
				found = true
			}
		}
	}
	return best, found
}

// candidateFeatures returns the features examined at one node.
func (b *builder) candidateFeatures() []int {
	nFeatures := len(b.columns)
	k := b.dt.maxFeatures
	if k <= 0 || k >= nFeatures {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.dt.rng.Perm(nFeatures)[:k]
}

func (dt *DecisionTreeRegressor) normalizeImportances() {
	var total float64
	for _, v := range dt.importances {
		total += v
	}
	if total <= 0 {
		for i := range dt.importances {
			dt.importances[i] = 0
		}
		return
	}
	for i := range dt.importances {
		dt.importances[i] /= total
	}
}

// Predict returns an n×1 matrix of predictions.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := dt.state.CheckFeatures("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := range row {
			row[j] = X.At(i, j)
		}
		out.Set(i, 0, dt.predictRow(row))
	}
	return out, nil
}

// predictRow walks the tree for one sample of the fitted width.
func (dt *DecisionTreeRegressor) predictRow(row []float64) float64 {
	n := 0
	for {
		node := &dt.nodes[n]
		if node.IsLeaf() {
			return node.Value
		}
		if row[node.Feature] <= node.Threshold {
			n = node.Left
		} else {
			n = node.Right
		}
	}
}

// Score returns the coefficient of determination R² of the predictions.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	report, err := metrics.Evaluate(y, pred)
	if err != nil {
		return 0, err
	}
	return report.R2, nil
}

// GetDepth returns the depth of the fitted tree. A single leaf has depth 0.
func (dt *DecisionTreeRegressor) GetDepth() int { return dt.depth }

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	n := 0
	for _, node := range dt.nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

// Nodes returns the fitted nodes. Index 0 is the root.
func (dt *DecisionTreeRegressor) Nodes() []Node { return dt.nodes }

// GetFeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances...)
}

// NFeatures returns the number of features seen during Fit.
func (dt *DecisionTreeRegressor) NFeatures() int {
	n, _ := dt.state.GetDimensions()
	return n
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeRegressor) IsFitted() bool { return dt.state.IsFitted() }

// GetParams returns the hyperparameters (scikit-learn compatible).
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters. Unknown keys are ignored.
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	if v, ok := params["criterion"].(string); ok {
		dt.criterion = v
	}
	if v, ok := params["max_depth"].(int); ok {
		dt.maxDepth = v
	}
	if v, ok := params["min_samples_split"].(int); ok {
		dt.minSamplesSplit = v
	}
	if v, ok := params["min_samples_leaf"].(int); ok {
		dt.minSamplesLeaf = v
	}
	if v, ok := params["max_features"].(int); ok {
		dt.maxFeatures = v
	}
	if v, ok := params["random_state"].(int64); ok {
		dt.randomState = v
	}
	return dt.validateParams()
}

// snapshot is the gob form of a fitted tree.
type snapshot struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     int64
	Nodes           []Node
	Importances     []float64
	Depth           int
	State           *model.StateManager
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeRegressor) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Criterion:       dt.criterion,
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
		MaxFeatures:     dt.maxFeatures,
		RandomState:     dt.randomState,
		Nodes:           dt.nodes,
		Importances:     dt.importances,
		Depth:           dt.depth,
		State:           dt.state,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode decision tree")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeRegressor) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "decode decision tree")
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	if s.State.Fitted && len(s.Nodes) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.GobDecode", "corrupt tree", fmt.Errorf("fitted tree has no nodes"))
	}
	if err := checkNodes(s.Nodes, s.State.NFeatures); err != nil {
		return errors.NewModelError("DecisionTreeRegressor.GobDecode", "corrupt tree", err)
	}
	*dt = DecisionTreeRegressor{
		state:           s.State,
		criterion:       s.Criterion,
		maxDepth:        s.MaxDepth,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		randomState:     s.RandomState,
		nodes:           s.Nodes,
		importances:     s.Importances,
		depth:           s.Depth,
	}
	return nil
}

// checkNodes verifies the node graph of a decoded tree. Children always come
// after their parent, so every path ends at a leaf.
func checkNodes(nodes []Node, nFeatures int) error {
	for i, n := range nodes {
		if n.IsLeaf() {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d, tree has %d features", i, n.Feature, nFeatures)
		}
		if n.Left <= i || n.Left >= len(nodes) || n.Right <= i || n.Right >= len(nodes) {
			return fmt.Errorf("node %d has children (%d, %d) outside (%d, %d)", i, n.Left, n.Right, i, len(nodes))
		}
	}
	return nil
}
