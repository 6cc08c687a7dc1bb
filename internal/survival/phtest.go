package survival

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TimeTransform maps event times before they are correlated with the
// scaled Schoenfeld residuals.
type TimeTransform string

const (
	RankTransform     TimeTransform = "rank"
	IdentityTransform TimeTransform = "identity"
	LogTransform      TimeTransform = "log"
)

// PHTest holds the per-covariate results of the proportional hazards test.
type PHTest struct {
	Transform TimeTransform
	NumEvents int

	Names     []string
	Statistic []float64
	PValue    []float64

	// NegLog2P is -log2(p), the number of bits of evidence against
	// proportional hazards.
	NegLog2P []float64
}

// Violations returns the covariates whose p-value is below threshold.
func (t *PHTest) Violations(threshold float64) []string {
	var out []string
	for j, p := range t.PValue {
		if p < threshold {
			out = append(out, t.Names[j])
		}
	}
	return out
}

// SchoenfeldResiduals returns the event times (ascending) and, for each of
// them, the difference between the covariates of the failing row and their
// risk-weighted mean over the risk set. Ties use the Breslow risk set.
func (m *Model) SchoenfeldResiduals() ([]float64, [][]float64, error) {
	p := m.NumParams()
	if p == 0 {
		return nil, nil, errors.New("no covariates in the model")
	}

	d := m.data
	n := d.NumObs()

	lp := m.LinearPredictor()
	mx := floats.Max(lp)
	w := make([]float64, n)
	for i := range lp {
		w[i] = math.Exp(lp[i] - mx)
	}

	ord := make([]int, n)
	for i := range ord {
		ord[i] = i
	}
	sort.SliceStable(ord, func(a, b int) bool {
		return d.Time[ord[a]] > d.Time[ord[b]]
	})

	var times []float64
	var resid [][]float64

	var s0 float64
	s1 := make([]float64, p)

	for g0 := 0; g0 < n; {
		g1 := g0
		t := d.Time[ord[g0]]
		for g1 < n && d.Time[ord[g1]] == t {
			i := ord[g1]
			s0 += w[i]
			for j := 0; j < p; j++ {
				s1[j] += w[i] * d.X[j][i]
			}
			g1++
		}

		for _, i := range ord[g0:g1] {
			if d.Status[i] != 1 {
				continue
			}
			r := make([]float64, p)
			for j := 0; j < p; j++ {
				r[j] = d.X[j][i] - s1[j]/s0
			}
			times = append(times, t)
			resid = append(resid, r)
		}
		g0 = g1
	}

	// Collected from the latest time backwards.
	for a, b := 0, len(times)-1; a < b; a, b = a+1, b-1 {
		times[a], times[b] = times[b], times[a]
		resid[a], resid[b] = resid[b], resid[a]
	}

	return times, resid, nil
}

// ScaledSchoenfeldResiduals returns D * r * V, where r are the Schoenfeld
// residuals, V the covariance of the coefficients and D the event count.
func (m *Model) ScaledSchoenfeldResiduals() ([]float64, *mat.Dense, error) {
	times, resid, err := m.SchoenfeldResiduals()
	if err != nil {
		return nil, nil, err
	}
	if len(times) == 0 {
		return nil, nil, ErrNoEvents
	}

	p := m.NumParams()
	ne := len(times)

	r := mat.NewDense(ne, p, nil)
	for k, row := range resid {
		r.SetRow(k, row)
	}
	v := mat.NewDense(p, p, m.VCov)

	var scaled mat.Dense
	scaled.Mul(r, v)
	scaled.Scale(float64(ne), &scaled)

	return times, &scaled, nil
}

// ProportionalHazardTest runs the Grambsch-Therneau test of each
// coefficient against a linear trend in the transformed event time. Each
// statistic is chi-square with one degree of freedom under proportional
// hazards.
func (m *Model) ProportionalHazardTest(tr TimeTransform) (*PHTest, error) {
	times, scaled, err := m.ScaledSchoenfeldResiduals()
	if err != nil {
		return nil, err
	}

	ne := len(times)
	if ne < 2 {
		return nil, fmt.Errorf("the test needs at least two events, found %d", ne)
	}

	g, err := transformTimes(times, tr)
	if err != nil {
		return nil, err
	}
	gm := floats.Sum(g) / float64(ne)
	floats.AddConst(-gm, g)
	ss := floats.Dot(g, g)
	if ss == 0 {
		return nil, errors.New("event times do not vary, the test is not applicable")
	}

	p := m.NumParams()
	chi2 := distuv.ChiSquared{K: 1}

	res := &PHTest{
		Transform: tr,
		NumEvents: ne,
		Names:     append([]string(nil), m.Names...),
		Statistic: make([]float64, p),
		PValue:    make([]float64, p),
		NegLog2P:  make([]float64, p),
	}

	col := make([]float64, ne)
	for j := 0; j < p; j++ {
		mat.Col(col, j, scaled)
		u := floats.Dot(g, col)
		vjj := m.VCov[j*p+j]
		stat := u * u / (float64(ne) * vjj * ss)

		res.Statistic[j] = stat
		res.PValue[j] = chi2.Survival(stat)
		res.NegLog2P[j] = -math.Log2(res.PValue[j])
	}

	return res, nil
}

func transformTimes(times []float64, tr TimeTransform) ([]float64, error) {
	switch tr {
	case RankTransform, "":
		return averageRanks(times), nil
	case IdentityTransform:
		return append([]float64(nil), times...), nil
	case LogTransform:
		g := make([]float64, len(times))
		for i, t := range times {
			if t <= 0 {
				return nil, fmt.Errorf("log transform needs positive event times, found %v", t)
			}
			g[i] = math.Log(t)
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown time transform %q", tr)
}

// averageRanks returns 1-based ranks, tied values sharing the mean rank.
func averageRanks(x []float64) []float64 {
	n := len(x)
	s := append([]float64(nil), x...)
	inds := make([]int, n)
	floats.Argsort(s, inds)

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && s[j] == s[i] {
			j++
		}
		r := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[inds[k]] = r
		}
		i = j
	}
	return ranks
}
