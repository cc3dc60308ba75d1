package profiling

import (
	"github.com/montanaflynn/stats"
)

// Summary is the describe-style summary of a numeric column
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe computes count, mean, sample standard deviation, min,
// nearest-rank quartiles and max of data
func Describe(data []float64) (Summary, error) {
	summary := Summary{Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return summary, err
	}

	q25, err := stats.PercentileNearestRank(data, 25)
	if err != nil {
		return summary, err
	}

	q75, err := stats.PercentileNearestRank(data, 75)
	if err != nil {
		return summary, err
	}

	// A single value has no sample deviation
	if len(data) > 1 {
		stdDev, err := stats.StandardDeviationSample(data)
		if err != nil {
			return summary, err
		}
		summary.StdDev = stdDev
	}

	summary.Mean = mean
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Q25 = q25
	summary.Q75 = q75

	return summary, nil
}
