package rtl

import (
	"errors"
	"fmt"
)

var (
	ErrNoData        = errors.New("rtl: nil data")
	ErrEmptyData     = errors.New("rtl: no rows in data")
	ErrEmptyRows     = errors.New("rtl: rows have no features")
	ErrRaggedRows    = errors.New("rtl: rows have different lengths")
	ErrTargetWidth   = errors.New("rtl: target should be a single column")
	ErrNotFitted     = errors.New("rtl: model is not fitted")
	ErrInvalidParams = errors.New("rtl: invalid parameters")
	ErrCorruptModel  = errors.New("rtl: corrupt model")
)

//DataMismatch reports features and target with different numbers of rows.
type DataMismatch struct {
	Features int
	Target   int
}

func (d DataMismatch) Error() string {
	return fmt.Sprintf("rtl: row count mismatch. features: %d, target: %d", d.Features, d.Target)
}

//FeatureMismatch reports a row shorter than the number of features the model was fitted on.
type FeatureMismatch struct {
	Expected int
	Got      int
}

func (f FeatureMismatch) Error() string {
	return fmt.Sprintf("rtl: row has %d features, the model needs %d", f.Got, f.Expected)
}
