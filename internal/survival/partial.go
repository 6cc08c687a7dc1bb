package survival

import (
	"fmt"
	"math"
)

// Curve is a survival curve S(t) evaluated at the fitter's event times.
type Curve struct {
	Label    string
	Value    float64
	Baseline bool

	Times    []float64
	Survival []float64
}

// PartialEffects returns one survival curve per value of the covariate,
// holding the other covariates at their means, followed by the baseline
// curve with every covariate at its mean.
func (m *Model) PartialEffects(covariate string, values []float64) ([]Curve, error) {
	k := m.Index(covariate)
	if k < 0 {
		return nil, fmt.Errorf("covariate %q is not in the model", covariate)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no values given for %q", covariate)
	}

	times, h0 := m.BaselineCumHaz()
	means := m.data.Means()

	var mlp float64
	for j, b := range m.Coef {
		mlp += b * means[j]
	}

	curve := func(lp float64) []float64 {
		sv := make([]float64, len(h0))
		r := math.Exp(lp)
		for i, h := range h0 {
			sv[i] = math.Exp(-h * r)
		}
		return sv
	}

	curves := make([]Curve, 0, len(values)+1)
	for _, v := range values {
		lp := mlp + m.Coef[k]*(v-means[k])
		curves = append(curves, Curve{
			Label:    fmt.Sprintf("%s=%g", covariate, v),
			Value:    v,
			Times:    times,
			Survival: curve(lp),
		})
	}
	curves = append(curves, Curve{
		Label:    "baseline survival",
		Value:    means[k],
		Baseline: true,
		Times:    times,
		Survival: curve(mlp),
	})

	return curves, nil
}
