package rtl

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//NoDepthLimit as MaxDepth grows the tree until the size rules stop it.
const NoDepthLimit = -1

//Params collect the stopping rules of the tree growth. The root has depth 0.
type Params struct {
	MinImpurityDecrease float64 `json:"min_impurity_decrease" mapstructure:"min_impurity_decrease"`
	MinSizeToSplit      int     `json:"min_size_to_split" mapstructure:"min_size_to_split"`
	MinLeafSize         int     `json:"min_leaf_size" mapstructure:"min_leaf_size"`
	MaxDepth            int     `json:"max_depth" mapstructure:"max_depth"`
}

//DefaultParams returns the parameters used when no option overrides them.
func DefaultParams() Params {
	return Params{
		MinImpurityDecrease: 0,
		MinSizeToSplit:      2,
		MinLeafSize:         1,
		MaxDepth:            NoDepthLimit,
	}
}

//Validate checks the ranges of the parameters.
func (p Params) Validate() error {
	if math.IsNaN(p.MinImpurityDecrease) {
		return errors.Wrap(ErrInvalidParams, "min_impurity_decrease is NaN")
	}
	if p.MinSizeToSplit < 1 {
		return errors.Wrapf(ErrInvalidParams, "min_size_to_split should be at least 1, not %d", p.MinSizeToSplit)
	}
	if p.MinLeafSize < 1 {
		return errors.Wrapf(ErrInvalidParams, "min_leaf_size should be at least 1, not %d", p.MinLeafSize)
	}
	if p.MaxDepth < NoDepthLimit {
		return errors.Wrapf(ErrInvalidParams, "max_depth should be non-negative or %d, not %d", NoDepthLimit, p.MaxDepth)
	}
	return nil
}

func (p Params) depthReached(depth int) bool {
	return p.MaxDepth != NoDepthLimit && depth >= p.MaxDepth
}

//minSizeToGrow is the smallest window that can still produce two valid children.
func (p Params) minSizeToGrow() int {
	return max(p.MinSizeToSplit, 2*p.MinLeafSize)
}

//acceptsGain rejects zero-gain splits unless MinImpurityDecrease is negative.
func (p Params) acceptsGain(gain float64) bool {
	if gain < p.MinImpurityDecrease {
		return false
	}
	return gain > 0 || p.MinImpurityDecrease < 0
}

//Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

//MinImpurityDecrease sets the smallest variance reduction that is worth a split.
func MinImpurityDecrease(v float64) Option {
	return func(r *DecisionTreeRegressor) {
		r.Params.MinImpurityDecrease = v
	}
}

//MinSizeToSplit sets the number of rows a node needs before a split is attempted.
func MinSizeToSplit(n int) Option {
	return func(r *DecisionTreeRegressor) {
		r.Params.MinSizeToSplit = n
	}
}

//MinLeafSize sets the smallest number of rows allowed in each child of a split.
func MinLeafSize(n int) Option {
	return func(r *DecisionTreeRegressor) {
		r.Params.MinLeafSize = n
	}
}

//MaxDepth limits the depth of the tree. NoDepthLimit removes the limit.
func MaxDepth(n int) Option {
	return func(r *DecisionTreeRegressor) {
		r.Params.MaxDepth = n
	}
}

//WithParams replaces all the parameters at once.
func WithParams(p Params) Option {
	return func(r *DecisionTreeRegressor) {
		r.Params = p
	}
}

//WithLogger sets the logger of the fit; nil keeps the silent default.
func WithLogger(logger *zap.Logger) Option {
	return func(r *DecisionTreeRegressor) {
		if logger != nil {
			r.logger = logger
		}
	}
}
