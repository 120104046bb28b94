package rtl

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReadTextRows(t *testing.T) {
	features, target, err := ReadTextRows(strings.NewReader("1 2 3\n4\t5   6\n\n7 8 -9.5\n"))
	require.NoError(t, err)

	assert.True(t, mat.Equal(mat.NewDense(3, 2, []float64{1, 2, 4, 5, 7, 8}), features))
	assert.True(t, mat.Equal(mat.NewDense(3, 1, []float64{3, 6, -9.5}), target))
}

func TestReadTextRowsErrors(t *testing.T) {
	_, _, err := ReadTextRows(strings.NewReader("1 2 3\n4 5\n"))
	assert.ErrorIs(t, err, ErrRaggedRows)

	_, _, err = ReadTextRows(strings.NewReader("1 two 3\n"))
	assert.Error(t, err)

	_, _, err = ReadTextRows(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrEmptyData)

	_, _, err = ReadTextRows(strings.NewReader("1\n2\n"))
	assert.ErrorIs(t, err, ErrEmptyRows)
}

func TestTextRowsFitLikeTheHarness(t *testing.T) {
	features, target, err := ReadTextRows(strings.NewReader(`
		1 0 0 0 0 10
		2 0 0 0 0 10
		3 0 0 0 0 20
		4 0 0 0 0 20
	`))
	require.NoError(t, err)

	regressor := NewDecisionTreeRegressor(MinLeafSize(1))
	require.NoError(t, regressor.Fit(features, target))
	assert.Equal(t, 3, regressor.Tree.NodeCount())
	assert.Equal(t, 2.5, regressor.Tree.TreeNodes[0].Threshold)
}

func TestNpyFiles(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "features.npy")
	features := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	require.NoError(t, WriteNpy(filename, features))
	read, err := ReadNpy(filename)
	require.NoError(t, err)
	assert.True(t, mat.Equal(features, read))

	_, err = ReadNpy(filepath.Join(t.TempDir(), "missing.npy"))
	assert.Error(t, err)
}

func TestAsColumn(t *testing.T) {
	row := mat.NewDense(1, 3, []float64{1, 2, 3})
	column := AsColumn(row)
	h, w := column.Dims()
	assert.Equal(t, 3, h)
	assert.Equal(t, 1, w)

	single := mat.NewDense(4, 1, nil)
	assert.Same(t, single, AsColumn(single))
}
