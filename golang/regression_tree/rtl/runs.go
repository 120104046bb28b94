package rtl

//ValueRuns iterates over the runs of equal values of one column of a sorted view.
//Every run is reported as a half interval [begin, end) of row indices of the view.
type ValueRuns struct {
	view   RowView
	column int
	pos    int
}

//NewValueRuns initializes an iterator over the runs of column. The view has to be
//sorted by this column.
func NewValueRuns(view RowView, column int) *ValueRuns {
	return &ValueRuns{view: view, column: column}
}

//HasNext checks whether there are more runs in the iterator.
func (r *ValueRuns) HasNext() bool {
	return r.pos < r.view.Size()
}

//GetNext returns the next run and moves the iterator past it.
func (r *ValueRuns) GetNext() (begin, end int) {
	begin = r.pos
	value := r.view.At(begin, r.column)
	end = begin + 1
	for end < r.view.Size() && r.view.At(end, r.column) == value {
		end++
	}
	r.pos = end
	return
}
