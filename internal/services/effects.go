package services

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"cox-analyzer/internal/report"
)

// PlotValues picks the covariate values at which partial effect curves are
// drawn: the distinct quantiles of x at probs, or the smallest distinct
// values of x (at most fallback of them) when the quantiles collapse.
func PlotValues(x []float64, probs []float64, fallback int) ([]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no data to choose plot values from")
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	values := make([]float64, 0, len(probs))
	for _, p := range probs {
		values = append(values, report.Quantile(p, sorted))
	}
	values = uniqueSorted(values)
	if len(values) >= 2 {
		return values, nil
	}

	values = uniqueSorted(sorted)
	if len(values) > fallback {
		values = values[:fallback]
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("fewer than two distinct values to plot")
	}
	return values, nil
}

func uniqueSorted(x []float64) []float64 {
	y := append([]float64(nil), x...)
	sort.Float64s(y)
	out := y[:0]
	for i, v := range y {
		if i == 0 || !floats.EqualWithinAbsOrRel(v, out[len(out)-1], 1e-12, 1e-12) {
			out = append(out, v)
		}
	}
	return out
}
