package rtl

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"
)

func fittedRegressor(t *testing.T, options ...Option) (*DecisionTreeRegressor, *mat.Dense, *mat.Dense) {
	t.Helper()
	rnd := rand.New(rand.NewSource(17))
	features, target := GenerateDebugData(rnd, 150, 3)
	regressor := NewDecisionTreeRegressor(options...)
	require.NoError(t, regressor.Fit(features, target))
	return regressor, features, target
}

func TestRegressorOptions(t *testing.T) {
	regressor := NewDecisionTreeRegressor(MinImpurityDecrease(0.25), MinSizeToSplit(5), MinLeafSize(3), MaxDepth(4))
	assert.Equal(t, Params{MinImpurityDecrease: 0.25, MinSizeToSplit: 5, MinLeafSize: 3, MaxDepth: 4}, regressor.Params)
	assert.False(t, regressor.IsFitted())

	regressor = NewDecisionTreeRegressor(WithParams(Params{MinSizeToSplit: 1, MinLeafSize: 1, MaxDepth: 0}))
	assert.Equal(t, 0, regressor.Params.MaxDepth)
}

func TestRegressorScenario(t *testing.T) {
	regressor := NewDecisionTreeRegressor(MinLeafSize(1), MinSizeToSplit(2))
	require.NoError(t, regressor.FitRows([][]float64{{1}, {2}, {3}, {4}}, []float64{10, 10, 20, 20}))

	prediction, err := regressor.PredictRows([][]float64{{4}, {1.5}, {3}, {-7}})
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 10, 20, 10}, prediction)

	leaf, err := regressor.Apply([]float64{3.5})
	require.NoError(t, err)
	assert.True(t, leaf.IsLeaf())
	assert.Equal(t, 2, leaf.NumberOfObjects)
}

func TestFitDoesNotModifyInputs(t *testing.T) {
	rnd := rand.New(rand.NewSource(8))
	features, target := GenerateDebugData(rnd, 60, 2)
	featuresCopy, targetCopy := mat.DenseCopyOf(features), mat.DenseCopyOf(target)

	require.NoError(t, NewDecisionTreeRegressor().Fit(features, target))
	assert.True(t, mat.Equal(featuresCopy, features))
	assert.True(t, mat.Equal(targetCopy, target))
}

func TestFitPreconditions(t *testing.T) {
	regressor := NewDecisionTreeRegressor()

	assert.ErrorIs(t, regressor.Fit(nil, nil), ErrNoData)
	assert.ErrorIs(t, regressor.FitRows(nil, nil), ErrNoData)
	assert.ErrorIs(t, regressor.FitRows([][]float64{}, []float64{}), ErrEmptyData)
	assert.ErrorIs(t, regressor.FitRows([][]float64{{}, {}}, []float64{1, 2}), ErrEmptyRows)
	assert.ErrorIs(t, regressor.FitRows([][]float64{{1, 2}, {3}}, []float64{1, 2}), ErrRaggedRows)
	assert.ErrorIs(t, regressor.Fit(mat.NewDense(2, 1, nil), mat.NewDense(2, 2, nil)), ErrTargetWidth)

	var mismatch DataMismatch
	require.True(t, errors.As(regressor.FitRows([][]float64{{1}, {2}}, []float64{1}), &mismatch))
	assert.Equal(t, DataMismatch{Features: 2, Target: 1}, mismatch)
	require.True(t, errors.As(regressor.Fit(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil)), &mismatch))
	assert.Equal(t, DataMismatch{Features: 3, Target: 2}, mismatch)

	assert.False(t, regressor.IsFitted())
}

func TestFitRejectsInvalidParams(t *testing.T) {
	features := mat.NewDense(2, 1, []float64{1, 2})
	target := mat.NewDense(2, 1, []float64{1, 2})
	for _, options := range [][]Option{
		{MinLeafSize(0)},
		{MinSizeToSplit(0)},
		{MaxDepth(-2)},
	} {
		assert.ErrorIs(t, NewDecisionTreeRegressor(options...).Fit(features, target), ErrInvalidParams)
	}
}

func TestFailedFitLeavesModelNotFitted(t *testing.T) {
	regressor, _, _ := fittedRegressor(t)
	require.True(t, regressor.IsFitted())

	require.Error(t, regressor.FitRows([][]float64{{1}}, []float64{1, 2}))
	assert.False(t, regressor.IsFitted())

	_, err := regressor.Predict([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = regressor.PredictValue(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = regressor.Export()
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.ErrorIs(t, regressor.Save(&bytes.Buffer{}), ErrNotFitted)
}

func TestPredictRowWidth(t *testing.T) {
	regressor, _, _ := fittedRegressor(t)

	var mismatch FeatureMismatch
	_, err := regressor.Predict([]float64{1, 2})
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, FeatureMismatch{Expected: 3, Got: 2}, mismatch)

	_, err = regressor.PredictValue(mat.NewDense(4, 2, nil))
	assert.True(t, errors.As(err, &mismatch))

	_, err = regressor.PredictRows([][]float64{{1, 2, 3}, {1}})
	assert.True(t, errors.As(err, &mismatch))

	short, err := regressor.Predict([]float64{1, 2, 3})
	require.NoError(t, err)
	long, err := regressor.Predict([]float64{1, 2, 3, 1e9})
	require.NoError(t, err)
	assert.Equal(t, short, long)
}

func TestPredictValueKeepsRowOrder(t *testing.T) {
	regressor, features, _ := fittedRegressor(t)

	prediction, err := regressor.PredictValue(features)
	require.NoError(t, err)
	h, _ := features.Dims()
	for p := 0; p < h; p++ {
		expected, err := regressor.Predict(mat.Row(nil, p, features))
		require.NoError(t, err)
		assert.Equal(t, expected, prediction.At(p, 0))
	}
}

func TestScoreAndRmse(t *testing.T) {
	regressor, features, target := fittedRegressor(t)

	score, err := regressor.Score(features, target)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	prediction, err := regressor.PredictValue(features)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, Rmse(target, prediction), 1e-9)

	assert.InDelta(t, 2.0, Rmse(mat.NewDense(2, 1, []float64{1, 3}), mat.NewDense(2, 1, []float64{3, 1})), 1e-12)
	assert.True(t, math.IsNaN(Rmse(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))))
	assert.True(t, math.IsNaN(Rmse(mat.NewDense(2, 2, nil), mat.NewDense(2, 1, nil))))
}

func TestSaveAndLoadModel(t *testing.T) {
	regressor, features, _ := fittedRegressor(t, MaxDepth(3), MinLeafSize(4))

	filename := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, regressor.SaveFile(filename))

	loaded, err := LoadModelFile(filename)
	require.NoError(t, err)
	assert.Equal(t, regressor.Params, loaded.Params)
	assert.Equal(t, regressor.Tree, loaded.Tree)

	expected, err := regressor.PredictValue(features)
	require.NoError(t, err)
	actual, err := loaded.PredictValue(features)
	require.NoError(t, err)
	assert.True(t, mat.Equal(expected, actual))
}

func TestLoadModelRejectsCorruptTrees(t *testing.T) {
	_, err := LoadModel(strings.NewReader(`{"Params": {"min_leaf_size": 1}}`))
	assert.ErrorIs(t, err, ErrCorruptModel)

	_, err = LoadModel(strings.NewReader(`{"Tree": {"NFeatures": 1, "TreeNodes": [
		{"FeatureNumber": 0, "LeftIndex": 0, "RightIndex": 0}
	]}}`))
	assert.ErrorIs(t, err, ErrCorruptModel)

	_, err = LoadModel(strings.NewReader(`{"Tree": {"NFeatures": 1, "TreeNodes": [
		{"TreeNodeId": 0, "FeatureNumber": 0, "LeftIndex": 1, "RightIndex": 2},
		{"TreeNodeId": 7, "FeatureNumber": -1, "LeftIndex": -1, "RightIndex": -1},
		{"TreeNodeId": 7, "FeatureNumber": -1, "LeftIndex": -1, "RightIndex": -1}
	]}}`))
	assert.ErrorIs(t, err, ErrCorruptModel)

	_, err = LoadModel(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestFitLogsSplits(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	regressor := NewDecisionTreeRegressor(WithLogger(zap.New(core)), MinLeafSize(1))
	require.NoError(t, regressor.FitRows([][]float64{{1}, {2}, {3}, {4}}, []float64{10, 10, 20, 20}))

	assert.Equal(t, 1, logs.FilterMessage("split node").Len())
	grown := logs.FilterMessage("tree is grown").All()
	require.Len(t, grown, 1)
	assert.Equal(t, int64(3), grown[0].ContextMap()["nodes"])
}
