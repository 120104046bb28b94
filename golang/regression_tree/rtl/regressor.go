package rtl

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//DecisionTreeRegressor is the model class. It is not ready for prediction until Fit succeeds.
//Fit must not be called concurrently on the same regressor.
type DecisionTreeRegressor struct {
	Params Params
	Tree   *Tree

	logger *zap.Logger
}

//NewDecisionTreeRegressor creates a model with default parameters changed by options.
func NewDecisionTreeRegressor(options ...Option) *DecisionTreeRegressor {
	regressor := &DecisionTreeRegressor{Params: DefaultParams(), logger: zap.NewNop()}
	for _, option := range options {
		option(regressor)
	}
	return regressor
}

//IsFitted reports whether the model can predict.
func (r *DecisionTreeRegressor) IsFitted() bool {
	return r.Tree != nil
}

//validatedDimensions checks the consistency of features and target and returns
//the height (the number of objects) and the width (the number of features).
func validatedDimensions(features, target mat.Matrix) (h, w int, err error) {
	if features == nil || target == nil {
		return 0, 0, ErrNoData
	}
	h, w = features.Dims()
	if h == 0 {
		return 0, 0, ErrEmptyData
	}
	if w == 0 {
		return 0, 0, ErrEmptyRows
	}
	targetH, targetW := target.Dims()
	if targetH != h {
		return 0, 0, DataMismatch{Features: h, Target: targetH}
	}
	if targetW != 1 {
		return 0, 0, ErrTargetWidth
	}
	return h, w, nil
}

//Fit grows the tree on features and a one column target. The rows are copied into
//a table owned by the fit, so the inputs are not modified. A failed fit leaves
//the model not fitted.
func (r *DecisionTreeRegressor) Fit(features, target mat.Matrix) error {
	r.Tree = nil
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if err := r.Params.Validate(); err != nil {
		return err
	}
	h, w, err := validatedDimensions(features, target)
	if err != nil {
		return err
	}

	var table mat.Dense
	table.Augment(features, target)

	start := time.Now()
	tree := BuildTree(NewRowView(&table), r.Params, r.logger)
	r.Tree = tree

	r.logger.Info("tree is grown",
		zap.Int("rows", h),
		zap.Int("features", w),
		zap.Int("nodes", tree.NodeCount()),
		zap.Int("leaves", tree.LeafCount()),
		zap.Int("depth", tree.Depth()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

//FitRows is Fit for rows given as slices.
func (r *DecisionTreeRegressor) FitRows(features [][]float64, target []float64) error {
	r.Tree = nil
	featuresMatrix, err := denseFromRows(features)
	if err != nil {
		return err
	}
	if len(target) != len(features) {
		return DataMismatch{Features: len(features), Target: len(target)}
	}
	return r.Fit(featuresMatrix, mat.NewDense(len(target), 1, append([]float64(nil), target...)))
}

func denseFromRows(rows [][]float64) (*mat.Dense, error) {
	if rows == nil {
		return nil, ErrNoData
	}
	if len(rows) == 0 {
		return nil, ErrEmptyData
	}
	w := len(rows[0])
	if w == 0 {
		return nil, ErrEmptyRows
	}
	data := make([]float64, 0, len(rows)*w)
	for _, row := range rows {
		if len(row) != w {
			return nil, ErrRaggedRows
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), w, data), nil
}

func (r *DecisionTreeRegressor) checkRow(row []float64) error {
	if !r.IsFitted() {
		return ErrNotFitted
	}
	if len(row) < r.Tree.NFeatures {
		return FeatureMismatch{Expected: r.Tree.NFeatures, Got: len(row)}
	}
	return nil
}

//Predict returns the prediction for one row. Columns past the fitted features are ignored.
func (r *DecisionTreeRegressor) Predict(row []float64) (float64, error) {
	if err := r.checkRow(row); err != nil {
		return 0, err
	}
	return r.Tree.Predict(row), nil
}

//Apply returns the leaf reached by row.
func (r *DecisionTreeRegressor) Apply(row []float64) (TreeNode, error) {
	if err := r.checkRow(row); err != nil {
		return TreeNode{}, err
	}
	return r.Tree.TreeNodes[r.Tree.Apply(row)], nil
}

//PredictValue returns a column of predictions, one per row of features, in the input order.
func (r *DecisionTreeRegressor) PredictValue(features mat.Matrix) (*mat.Dense, error) {
	if !r.IsFitted() {
		return nil, ErrNotFitted
	}
	if features == nil {
		return nil, ErrNoData
	}
	h, w := features.Dims()
	if h == 0 {
		return nil, ErrEmptyData
	}
	if w < r.Tree.NFeatures {
		return nil, FeatureMismatch{Expected: r.Tree.NFeatures, Got: w}
	}
	prediction := mat.NewDense(h, 1, nil)
	row := make([]float64, w)
	for p := 0; p < h; p++ {
		mat.Row(row, p, features)
		prediction.Set(p, 0, r.Tree.Predict(row))
	}
	return prediction, nil
}

//PredictRows is PredictValue for rows given as slices.
func (r *DecisionTreeRegressor) PredictRows(rows [][]float64) ([]float64, error) {
	prediction := make([]float64, len(rows))
	for ind, row := range rows {
		value, err := r.Predict(row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", ind)
		}
		prediction[ind] = value
	}
	return prediction, nil
}

//Export returns the DOT description of the fitted tree.
func (r *DecisionTreeRegressor) Export() (string, error) {
	if !r.IsFitted() {
		return "", ErrNotFitted
	}
	return r.Tree.ToDot()
}

//RenderFile renders the fitted tree into an image or a DOT file.
func (r *DecisionTreeRegressor) RenderFile(figureType, filename string) error {
	if !r.IsFitted() {
		return ErrNotFitted
	}
	return r.Tree.RenderFile(figureType, filename)
}

//Rmse is the root mean squared difference between two columns of equal height.
//It is NaN when the shapes differ.
func Rmse(target, prediction *mat.Dense) float64 {
	h, w := target.Dims()
	ph, pw := prediction.Dims()
	if h != ph || w != 1 || pw != 1 {
		return math.NaN()
	}
	if h == 0 {
		return 0
	}
	return floats.Distance(mat.Col(nil, 0, target), mat.Col(nil, 0, prediction), 2) / math.Sqrt(float64(h))
}

//Score returns the coefficient of determination of the predictions for features against target.
func (r *DecisionTreeRegressor) Score(features, target mat.Matrix) (float64, error) {
	if _, _, err := validatedDimensions(features, target); err != nil {
		return 0, err
	}
	prediction, err := r.PredictValue(features)
	if err != nil {
		return 0, err
	}
	return stat.RSquaredFrom(mat.Col(nil, 0, prediction), mat.Col(nil, 0, target), nil), nil
}

//Save writes the parameters and the nodes of the model as JSON.
func (r *DecisionTreeRegressor) Save(w io.Writer) error {
	if !r.IsFitted() {
		return ErrNotFitted
	}
	modelByteRepr, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "can't encode the model")
	}
	_, err = w.Write(modelByteRepr)
	return errors.Wrap(err, "can't write the model")
}

func (r *DecisionTreeRegressor) SaveFile(filename string) (err error) {
	dest, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to write", filename)
	}
	defer func() {
		if closeErr := dest.Close(); err == nil {
			err = closeErr
		}
	}()
	return r.Save(dest)
}

//LoadModel reads a model written by Save and checks its node links.
func LoadModel(source io.Reader, options ...Option) (*DecisionTreeRegressor, error) {
	regressor := NewDecisionTreeRegressor(options...)
	decoder := json.NewDecoder(source)
	if err := decoder.Decode(regressor); err != nil {
		return nil, errors.Wrap(err, "can't decode the model")
	}
	if regressor.Tree == nil {
		return nil, errors.Wrap(ErrCorruptModel, "no tree")
	}
	if err := regressor.Tree.validate(); err != nil {
		return nil, err
	}
	return regressor, nil
}

func LoadModelFile(filename string, options ...Option) (*DecisionTreeRegressor, error) {
	source, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open model %s", filename)
	}
	defer source.Close()
	return LoadModel(source, options...)
}
