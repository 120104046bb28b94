// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/tarstars/regression_tree/golang/regression_tree/rtl"
	"gonum.org/v1/gonum/mat"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	regressors        = make(map[uint64]*rtl.DecisionTreeRegressor)

	lastErrorMu sync.Mutex
	lastError   string
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeRegressor(r *rtl.DecisionTreeRegressor) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	regressors[handle] = r
	nextHandle++
	return handle
}

func fetchRegressor(handle uint64) (*rtl.DecisionTreeRegressor, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	regressor, ok := regressors[handle]
	if !ok {
		return nil, errors.New("invalid model handle")
	}
	return regressor, nil
}

//export FreeModel
func FreeModel(handle C.ulonglong) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(regressors, uint64(handle))
}

func copyFloatSlice(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	src := unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length)
	dst := make([]float64, length)
	copy(dst, src)
	return dst, nil
}

func sliceFromPtr(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length), nil
}

func buildDense(ptr *C.double, rows, cols C.int) (*mat.Dense, error) {
	r := int(rows)
	c := int(cols)
	if r <= 0 || c <= 0 {
		return nil, errors.New("invalid matrix dimensions")
	}
	data, err := copyFloatSlice(ptr, r*c)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(r, c, data), nil
}

//export TrainModel
func TrainModel(
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	targetPtr *C.double,
	minImpurityDecrease C.double,
	minSizeToSplit C.int,
	minLeafSize C.int,
	maxDepth C.int,
) C.ulonglong {
	setLastError(nil)

	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 0
	}

	target, err := buildDense(targetPtr, rows, 1)
	if err != nil {
		setLastError(err)
		return 0
	}

	regressor := rtl.NewDecisionTreeRegressor(rtl.WithParams(rtl.Params{
		MinImpurityDecrease: float64(minImpurityDecrease),
		MinSizeToSplit:      int(minSizeToSplit),
		MinLeafSize:         int(minLeafSize),
		MaxDepth:            int(maxDepth),
	}))
	if err := regressor.Fit(features, target); err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeRegressor(regressor))
}

//export Predict
func Predict(
	handle C.ulonglong,
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	outputPtr *C.double,
) C.int {
	setLastError(nil)
	regressor, err := fetchRegressor(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}

	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 2
	}

	prediction, err := regressor.PredictValue(features)
	if err != nil {
		setLastError(err)
		return 3
	}

	outSlice, err := sliceFromPtr(outputPtr, int(rows))
	if err != nil {
		setLastError(err)
		return 4
	}
	copy(outSlice, prediction.RawMatrix().Data)
	return 0
}

//export SaveModel
func SaveModel(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	regressor, err := fetchRegressor(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := regressor.SaveFile(C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export LoadModel
func LoadModel(path *C.char) C.ulonglong {
	setLastError(nil)
	regressor, err := rtl.LoadModelFile(C.GoString(path))
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeRegressor(regressor))
}

//ExportDot returns the DOT text of the tree; the caller frees it with FreeCString.
//
//export ExportDot
func ExportDot(handle C.ulonglong) *C.char {
	setLastError(nil)
	regressor, err := fetchRegressor(uint64(handle))
	if err != nil {
		setLastError(err)
		return nil
	}
	description, err := regressor.Export()
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(description)
}

//export RenderTree
func RenderTree(handle C.ulonglong, figureType, path *C.char) C.int {
	setLastError(nil)
	regressor, err := fetchRegressor(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	goFigureType := C.GoString(figureType)
	if goFigureType == "" {
		goFigureType = "svg"
	}
	if err := regressor.RenderFile(goFigureType, C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
