package rtl

//noGain is the gain of a split search that has not found a candidate yet.
const noGain = -1.0

//BestSplit contains results of the split selection algorithm.
type BestSplit struct {
	featureIndex    int
	threshold       float64
	gain            float64
	leftSize        int
	numberOfObjects int
	validSplit      bool
}

func newBestSplit(featureIndex, numberOfObjects int) BestSplit {
	return BestSplit{featureIndex: featureIndex, gain: noGain, numberOfObjects: numberOfObjects}
}

//better reports whether the receiver should replace the incumbent. Only a strictly greater
//gain wins, so the first candidate is kept on ties.
func (split BestSplit) better(incumbent BestSplit) bool {
	return split.validSplit && (!incumbent.validSplit || split.gain > incumbent.gain)
}

//splitThreshold returns the threshold between the run ending at border-1 and the next row.
//The view has to be sorted by feature.
func splitThreshold(view RowView, feature, border int) float64 {
	last := view.At(border-1, feature)
	if border >= view.Size() {
		return last
	}
	next := view.At(border, feature)
	threshold := last + (next-last)/2
	if !(threshold < next) {
		threshold = last
	}
	return threshold
}

//scanForSplit sorts the view by feature and moves the runs of equal feature values one by
//one from the right accumulator to the left one, evaluating the variance reduction
//at every border between runs.
//parent is the aggregate of the target column over the whole view.
func scanForSplit(view RowView, feature int, parent RunningStats, minLeafSize int) (bestSplit BestSplit) {
	view.SortBy(feature)

	n := view.Size()
	target := view.TargetColumn()
	parentVariance := parent.Variance()

	bestSplit = newBestSplit(feature, n)

	var left RunningStats
	right := parent

	runs := NewValueRuns(view, feature)
	for runs.HasNext() {
		begin, end := runs.GetNext()
		for ind := begin; ind < end; ind++ {
			y := view.At(ind, target)
			right.Pop(y)
			left.Push(y)
		}

		if left.Count() < minLeafSize {
			continue
		}
		if right.Count() < minLeafSize {
			break
		}

		leftShare := float64(left.Count()) / float64(n)
		rightShare := float64(right.Count()) / float64(n)
		gain := parentVariance - (leftShare*left.Variance() + rightShare*right.Variance())

		if gain > bestSplit.gain {
			bestSplit.gain = gain
			bestSplit.threshold = splitThreshold(view, feature, end)
			bestSplit.leftSize = end
			bestSplit.validSplit = true
		}
	}
	return
}

//TheBestSplit runs the split search over every feature column of the view and returns the
//split with the strictly greatest gain; lower feature indices win ties.
//The returned split is not valid when no feature admits a split.
func TheBestSplit(view RowView, parent RunningStats, minLeafSize int) BestSplit {
	features := view.TargetColumn()
	result := newBestSplit(0, view.Size())

	for q := 0; q < features; q++ {
		currentSplit := scanForSplit(view, q, parent, minLeafSize)
		if currentSplit.better(result) {
			result = currentSplit
		}
	}
	return result
}
