package rtl

//RunningStats keeps the count, the mean and the sum of squared deviations of a multiset
//of values under insertion and removal. Both operations are O(1) and never revisit
//previously pushed values.
//
//Pop relies on the caller: the popped value must have been pushed before and not popped
//since. Nothing checks this; a violation silently corrupts the statistics.
type RunningStats struct {
	mean     float64
	sumSqDev float64
	n        int
}

//NewRunningStats seeds an accumulator with an already known aggregate,
//so that a window does not have to be rescanned.
func NewRunningStats(mean, sumSqDev float64, n int) RunningStats {
	if n <= 0 {
		return RunningStats{}
	}
	return RunningStats{mean: mean, sumSqDev: sumSqDev, n: n}
}

//Push adds x using Welford's update.
func (s *RunningStats) Push(x float64) {
	prevMean := s.mean
	s.n++
	s.mean += (x - s.mean) / float64(s.n)
	s.sumSqDev += (x - s.mean) * (x - prevMean)
}

//Pop removes x as if it had never been pushed.
func (s *RunningStats) Pop(x float64) {
	s.n--
	if s.n <= 0 {
		*s = RunningStats{}
		return
	}
	prevMean := s.mean
	s.mean -= (x - s.mean) / float64(s.n)
	s.sumSqDev -= (x - s.mean) * (x - prevMean)
}

func (s RunningStats) Count() int {
	return s.n
}

func (s RunningStats) Mean() float64 {
	return s.mean
}

func (s RunningStats) SumSqDev() float64 {
	return s.sumSqDev
}

//Variance is the sample variance, 0 for fewer than two values.
func (s RunningStats) Variance() float64 {
	if s.n < 2 || s.sumSqDev <= 0 {
		return 0
	}
	return s.sumSqDev / float64(s.n-1)
}
