package tiles

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrUnknownAggregation is returned for an aggregation name that has no reducer
var ErrUnknownAggregation = errors.New("unknown aggregation")

// Aggregation names a reduction applied to the masked voxels of a tile
type Aggregation string

const (
	Min    Aggregation = "min"
	Max    Aggregation = "max"
	Sum    Aggregation = "sum"
	Mean   Aggregation = "mean"
	Median Aggregation = "median"
	Std    Aggregation = "std"
	Var    Aggregation = "var"
	PTP    Aggregation = "ptp"
)

var reducers = map[Aggregation]func([]float64) float64{
	Min:  floats.Min,
	Max:  floats.Max,
	Sum:  floats.Sum,
	Mean: func(x []float64) float64 { return stat.Mean(x, nil) },
	Median: func(x []float64) float64 {
		sorted := append([]float64(nil), x...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2]
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2
	},
	// Population statistics, matching the usual array-library defaults
	Std: func(x []float64) float64 {
		_, std := stat.PopMeanStdDev(x, nil)
		return std
	},
	Var: func(x []float64) float64 {
		_, variance := stat.PopMeanVariance(x, nil)
		return variance
	},
	PTP: func(x []float64) float64 { return floats.Max(x) - floats.Min(x) },
}

// ParseAggregation validates an aggregation name
func ParseAggregation(name string) (Aggregation, error) {
	a := Aggregation(name)
	if _, ok := reducers[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAggregation, name)
	}
	return a, nil
}

// Aggregations lists the supported aggregation names in sorted order
func Aggregations() []string {
	names := make([]string, 0, len(reducers))
	for a := range reducers {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// Reduce applies the aggregation to values
func (a Aggregation) Reduce(values []float64) (float64, error) {
	fn, ok := reducers[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAggregation, string(a))
	}
	return fn(values), nil
}
