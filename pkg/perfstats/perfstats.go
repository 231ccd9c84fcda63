package perfstats

import "time"

// TimeAccumulator records how long a repeated step takes, such as rendering one frame.
// It is not thread safe.
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
	Max     time.Duration
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
	if v > a.Max {
		a.Max = v
	}
}

// Time adds the duration since start
func (a *TimeAccumulator) Time(start time.Time) {
	a.AddSample(time.Since(start))
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}
