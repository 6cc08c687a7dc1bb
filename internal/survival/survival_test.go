package survival

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simulated draws exponential event times with hazard exp(beta*x), x
// standard normal, plus a noise covariate z with no effect and independent
// exponential censoring.
func simulated(t *testing.T, n int, beta float64, seed int64) *Data {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	time := make([]float64, n)
	status := make([]float64, n)
	x := make([]float64, n)
	z := make([]float64, n)

	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		z[i] = rng.NormFloat64()
		ev := rng.ExpFloat64() / math.Exp(beta*x[i])
		ce := 3 * rng.ExpFloat64()
		if ev <= ce {
			time[i], status[i] = ev, 1
		} else {
			time[i], status[i] = ce, 0
		}
	}

	d, err := NewData("time", "status", time, status, []string{"x", "z"}, [][]float64{x, z})
	require.NoError(t, err)
	return d
}

func TestNewDataValidates(t *testing.T) {
	_, err := NewData("t", "s", []float64{1, 2}, []float64{1}, nil, nil)
	assert.Error(t, err)

	_, err = NewData("t", "t", []float64{1}, []float64{1}, nil, nil)
	assert.Error(t, err)

	_, err = NewData("t", "s", []float64{1}, []float64{1}, []string{"t"}, [][]float64{{1}})
	assert.Error(t, err)

	_, err = NewData("t", "s", []float64{1}, []float64{1}, []string{"x"}, [][]float64{{1, 2}})
	assert.Error(t, err)

	d, err := NewData("t", "s", []float64{1, 2}, []float64{1, 0}, []string{"x"}, [][]float64{{2, 4}})
	require.NoError(t, err)
	assert.Equal(t, 2, d.NumObs())
	assert.Equal(t, 1, d.NumEvents())
	assert.Equal(t, []float64{3}, d.Means())

	col, ok := d.Column("s")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0}, col)
	_, ok = d.Column("missing")
	assert.False(t, ok)
}

func TestFitModelRecoversEffect(t *testing.T) {
	d := simulated(t, 400, 0.8, 1)

	m, err := FitModel(d, Options{})
	require.NoError(t, err)

	require.Equal(t, []string{"x", "z"}, m.Names)
	assert.Equal(t, 0.95, m.ConfidenceLevel)
	assert.Equal(t, d.NumEvents(), m.NumEvents)
	assert.Equal(t, 400, m.NumObs)
	assert.Less(t, m.LogLike, 0.0)

	assert.Greater(t, m.Coef[0], 0.5)
	assert.Less(t, m.Coef[0], 1.1)
	assert.Less(t, math.Abs(m.Coef[1]), 0.35)
	assert.Less(t, m.PValue[0], 1e-6)

	for j := range m.Coef {
		assert.InDelta(t, math.Exp(m.Coef[j]), m.HazardRatio[j], 1e-12)
		assert.Less(t, m.CoefLower[j], m.Coef[j])
		assert.Greater(t, m.CoefUpper[j], m.Coef[j])
		assert.InDelta(t, math.Exp(m.CoefLower[j]), m.HRLower[j], 1e-12)
		assert.InDelta(t, math.Exp(m.CoefUpper[j]), m.HRUpper[j], 1e-12)
		assert.InDelta(t, m.Coef[j]/m.StdErr[j], m.ZScore[j], 1e-9)
		assert.GreaterOrEqual(t, m.PValue[j], 0.0)
		assert.LessOrEqual(t, m.PValue[j], 1.0)
		// 95% interval half width is 1.96 standard errors
		assert.InDelta(t, 1.959964*m.StdErr[j], m.CoefUpper[j]-m.Coef[j], 1e-5)
	}
	assert.Len(t, m.VCov, 4)
}

func TestFitModelConfidenceLevel(t *testing.T) {
	d := simulated(t, 200, 0.5, 2)

	m, err := FitModel(d, Options{ConfidenceLevel: 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 1.644854*m.StdErr[0], m.CoefUpper[0]-m.Coef[0], 1e-5)

	_, err = FitModel(d, Options{ConfidenceLevel: 1.5})
	assert.Error(t, err)
}

func TestFitModelNoEvents(t *testing.T) {
	d, err := NewData("t", "s", []float64{1, 2, 3}, []float64{0, 0, 0}, []string{"x"}, [][]float64{{1, 2, 3}})
	require.NoError(t, err)

	_, err = FitModel(d, Options{})
	assert.ErrorIs(t, err, ErrNoEvents)
}

func TestFitModelNullModel(t *testing.T) {
	d, err := NewData("t", "s", []float64{1, 2, 3, 4}, []float64{1, 0, 1, 1}, nil, nil)
	require.NoError(t, err)

	m, err := FitModel(d, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, m.NumParams())
	assert.False(t, math.IsNaN(m.LogLike))
	assert.Less(t, m.LogLike, 0.0)

	_, err = m.Concordance()
	assert.Error(t, err)
}

func TestModelConcordance(t *testing.T) {
	d := simulated(t, 300, 1.0, 3)
	m, err := FitModel(d, Options{})
	require.NoError(t, err)

	c, err := m.Concordance()
	require.NoError(t, err)
	assert.Greater(t, c, 0.6)
	assert.LessOrEqual(t, c, 1.0)
}

func TestConcordanceIndex(t *testing.T) {
	time := []float64{1, 2, 3}
	events := []float64{1, 1, 1}

	c, err := ConcordanceIndex(time, []float64{1, 2, 3}, events)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c)

	c, err = ConcordanceIndex(time, []float64{3, 2, 1}, events)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c)

	c, err = ConcordanceIndex(time, []float64{1, 1, 1}, events)
	require.NoError(t, err)
	assert.Equal(t, 0.5, c)

	// A censored row only counts as the later member of a pair.
	c, err = ConcordanceIndex(time, []float64{3, 1, 2}, []float64{0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, c)

	// Tied times are admissible when the later row is censored.
	c, err = ConcordanceIndex([]float64{2, 2}, []float64{1, 2}, []float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, c)

	_, err = ConcordanceIndex(time, []float64{1, 2, 3}, []float64{0, 0, 0})
	assert.ErrorIs(t, err, ErrNoAdmissiblePairs)

	_, err = ConcordanceIndex(time, []float64{1}, events)
	assert.Error(t, err)
}

func TestAverageRanks(t *testing.T) {
	assert.Equal(t, []float64{3.5, 1, 3.5, 2}, averageRanks([]float64{3, 1, 3, 2}))
	assert.Equal(t, []float64{1, 2, 3}, averageRanks([]float64{0.1, 0.2, 0.3}))
}

func TestTransformTimes(t *testing.T) {
	g, err := transformTimes([]float64{1, math.E}, LogTransform)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1}, g, 1e-12)

	_, err = transformTimes([]float64{0, 1}, LogTransform)
	assert.Error(t, err)

	_, err = transformTimes([]float64{1}, "km")
	assert.Error(t, err)
}

func TestSchoenfeldResidualsSumToScore(t *testing.T) {
	d := simulated(t, 300, 0.6, 4)
	m, err := FitModel(d, Options{})
	require.NoError(t, err)

	times, resid, err := m.SchoenfeldResiduals()
	require.NoError(t, err)
	require.Len(t, times, d.NumEvents())
	require.Len(t, resid, d.NumEvents())

	for k := 1; k < len(times); k++ {
		assert.LessOrEqual(t, times[k-1], times[k])
	}

	// The residuals add up to the score, which vanishes at the estimate.
	for j := 0; j < m.NumParams(); j++ {
		var s float64
		for _, r := range resid {
			s += r[j]
		}
		assert.InDelta(t, 0, s, 1e-2, m.Names[j])
	}
}

func TestProportionalHazardTest(t *testing.T) {
	d := simulated(t, 300, 0.6, 5)
	m, err := FitModel(d, Options{})
	require.NoError(t, err)

	for _, tr := range []TimeTransform{RankTransform, IdentityTransform, LogTransform} {
		res, err := m.ProportionalHazardTest(tr)
		require.NoError(t, err, tr)
		assert.Equal(t, tr, res.Transform)
		assert.Equal(t, d.NumEvents(), res.NumEvents)
		require.Len(t, res.Statistic, 2)
		for j := range res.Statistic {
			assert.GreaterOrEqual(t, res.Statistic[j], 0.0)
			assert.GreaterOrEqual(t, res.PValue[j], 0.0)
			assert.LessOrEqual(t, res.PValue[j], 1.0)
			assert.InDelta(t, -math.Log2(res.PValue[j]), res.NegLog2P[j], 1e-12)
		}
	}
}

func TestProportionalHazardTestDetectsCrossingHazards(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	n := 400
	time := make([]float64, n)
	status := make([]float64, n)
	group := make([]float64, n)
	for i := 0; i < n; i++ {
		u := rng.Float64()
		if i%2 == 0 {
			// constant hazard
			time[i] = -math.Log(u)
		} else {
			// Weibull with shape 3, hazard rising as 3t^2
			group[i] = 1
			time[i] = math.Pow(-math.Log(u), 1.0/3)
		}
		status[i] = 1
	}
	d, err := NewData("time", "status", time, status, []string{"group"}, [][]float64{group})
	require.NoError(t, err)

	m, err := FitModel(d, Options{})
	require.NoError(t, err)

	res, err := m.ProportionalHazardTest(RankTransform)
	require.NoError(t, err)
	assert.Equal(t, []string{"group"}, res.Violations(0.05))
	assert.Empty(t, res.Violations(0))
}

func TestProportionalHazardTestNeedsCovariates(t *testing.T) {
	d, err := NewData("t", "s", []float64{1, 2, 3}, []float64{1, 1, 0}, nil, nil)
	require.NoError(t, err)
	m, err := FitModel(d, Options{})
	require.NoError(t, err)

	_, err = m.ProportionalHazardTest(RankTransform)
	assert.Error(t, err)
}

func TestPartialEffects(t *testing.T) {
	d := simulated(t, 300, 0.8, 7)
	m, err := FitModel(d, Options{})
	require.NoError(t, err)
	require.Greater(t, m.Coef[0], 0.0)

	values := []float64{-1, 0, 1}
	curves, err := m.PartialEffects("x", values)
	require.NoError(t, err)
	require.Len(t, curves, len(values)+1)

	last := curves[len(curves)-1]
	assert.True(t, last.Baseline)
	assert.Equal(t, "baseline survival", last.Label)
	assert.Equal(t, "x=-1", curves[0].Label)

	for _, c := range curves {
		require.Equal(t, len(c.Times), len(c.Survival))
		for i, s := range c.Survival {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
			if i > 0 {
				assert.LessOrEqual(t, s, c.Survival[i-1])
			}
		}
	}

	// A positive coefficient lowers survival as the value grows.
	end := len(curves[0].Survival) - 1
	assert.Greater(t, curves[0].Survival[end], curves[1].Survival[end])
	assert.Greater(t, curves[1].Survival[end], curves[2].Survival[end])

	_, err = m.PartialEffects("age", values)
	assert.Error(t, err)
	_, err = m.PartialEffects("x", nil)
	assert.Error(t, err)
}

func TestFormula(t *testing.T) {
	assert.Equal(t, "age + sex + bmi", Formula([]string{"age", "sex", "bmi"}))
	assert.Equal(t, "age", Formula([]string{"age"}))
}
