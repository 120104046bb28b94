package rtl

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//RowView is a window [begin, end) over the rows of a row-major table. It does not own
//the table: SortBy and Partition reorder the rows of the table in place, but only
//inside the window. Copying a RowView copies the two bounds only.
type RowView struct {
	data       *mat.Dense
	begin, end int
}

//NewRowView creates a view over all rows of data.
func NewRowView(data *mat.Dense) RowView {
	h, _ := data.Dims()
	return RowView{data: data, begin: 0, end: h}
}

func (v RowView) Size() int {
	return v.end - v.begin
}

//Width returns the number of columns of the underlying table.
func (v RowView) Width() int {
	_, w := v.data.Dims()
	return w
}

//TargetColumn is the index of the last column, where the fit routine keeps the target.
func (v RowView) TargetColumn() int {
	return v.Width() - 1
}

//Row returns the ind-th row of the window. The slice aliases the table.
func (v RowView) Row(ind int) []float64 {
	return v.data.RawRowView(v.begin + ind)
}

func (v RowView) At(ind, column int) float64 {
	return v.data.At(v.begin+ind, column)
}

//Each calls fn for every row of the window in the current order.
func (v RowView) Each(fn func(ind int, row []float64)) {
	for p := v.begin; p < v.end; p++ {
		fn(p-v.begin, v.data.RawRowView(p))
	}
}

func (v RowView) swap(p, q int) {
	rowP := v.data.RawRowView(v.begin + p)
	rowQ := v.data.RawRowView(v.begin + q)
	for ind := range rowP {
		rowP[ind], rowQ[ind] = rowQ[ind], rowP[ind]
	}
}

type rowsByColumn struct {
	view   RowView
	column int
}

func (r rowsByColumn) Len() int           { return r.view.Size() }
func (r rowsByColumn) Swap(p, q int)      { r.view.swap(p, q) }
func (r rowsByColumn) Less(p, q int) bool { return r.view.At(p, r.column) < r.view.At(q, r.column) }

//SortBy orders the rows of the window by ascending value of feature.
//Rows with equal values end up in an unspecified order.
func (v RowView) SortBy(feature int) {
	sort.Sort(rowsByColumn{view: v, column: feature})
}

//Partition moves the rows with row[feature] <= threshold to the front of the window and
//the rest to the back, then returns both parts. The order inside the parts is not kept.
func (v RowView) Partition(feature int, threshold float64) (RowView, RowView) {
	left, right := 0, v.Size()-1
	for {
		for left <= right && v.At(left, feature) <= threshold {
			left++
		}
		for left <= right && v.At(right, feature) > threshold {
			right--
		}
		if left < right {
			v.swap(left, right)
			left++
			right--
		} else {
			break
		}
	}
	border := v.begin + left
	return RowView{data: v.data, begin: v.begin, end: border}, RowView{data: v.data, begin: border, end: v.end}
}

//Mean returns the mean of a column, 0 for an empty window. The incremental form
//keeps the mean of a constant column exact.
func (v RowView) Mean(column int) float64 {
	mean := 0.0
	for p := v.begin; p < v.end; p++ {
		mean += (v.data.At(p, column) - mean) / float64(p-v.begin+1)
	}
	return mean
}

//SumSqDev returns the sum of squared deviations of a column from its mean.
func (v RowView) SumSqDev(column int) float64 {
	mean := v.Mean(column)
	result := 0.0
	for p := v.begin; p < v.end; p++ {
		dev := v.data.At(p, column) - mean
		result += dev * dev
	}
	return result
}

//Variance returns the sample variance of a column, 0 for fewer than two rows.
func (v RowView) Variance(column int) float64 {
	n := v.Size()
	if n < 2 {
		return 0
	}
	return v.SumSqDev(column) / float64(n-1)
}

//Stats returns the aggregate of a column ready to seed a RunningStats.
func (v RowView) Stats(column int) RunningStats {
	return NewRunningStats(v.Mean(column), v.SumSqDev(column), v.Size())
}

func (v RowView) String() string {
	if v.Size() == 0 {
		return "(empty)"
	}
	var sb strings.Builder
	v.Each(func(ind int, row []float64) {
		if ind > 0 {
			sb.WriteString("\n")
		}
		for q, val := range row {
			if q > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(fmt.Sprint(val))
		}
	})
	return sb.String()
}
