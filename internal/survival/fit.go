package survival

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kshedden/statmodel/duration"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNoEvents is returned when the data contain no observed event.
	ErrNoEvents = errors.New("no events observed in the data")

	// ErrNoCovariance is returned when the fitter could not invert the
	// Hessian at the estimate, usually because of collinear covariates.
	ErrNoCovariance = errors.New("could not compute the covariance of the estimates (collinear or separated covariates?)")
)

// Options configures a fit.
type Options struct {
	// ConfidenceLevel of the reported intervals, 0.95 when zero.
	ConfidenceLevel float64
}

// Model is a fitted proportional hazards regression.
type Model struct {
	data *Data
	ph   *duration.PHReg

	Names       []string
	Coef        []float64
	StdErr      []float64
	HazardRatio []float64
	ZScore      []float64
	PValue      []float64

	// Interval bounds for the coefficients and for the hazard ratios.
	CoefLower []float64
	CoefUpper []float64
	HRLower   []float64
	HRUpper   []float64

	// VCov is the p x p covariance of the coefficients, row major.
	VCov []float64

	LogLike         float64
	NumObs          int
	NumEvents       int
	ConfidenceLevel float64
}

// Formula renders the covariates the way they are echoed to the user.
func Formula(names []string) string {
	return strings.Join(names, " + ")
}

// FitModel fits a proportional hazards regression of d.Time and d.Status on
// all covariates of d. Panics raised by the fitter are returned as errors.
func FitModel(d *Data, opts Options) (m *Model, err error) {
	if d.NumObs() == 0 {
		return nil, errors.New("no rows to fit")
	}
	if d.NumEvents() == 0 {
		return nil, ErrNoEvents
	}

	level := opts.ConfidenceLevel
	if level == 0 {
		level = 0.95
	}
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("confidence level %g outside (0, 1)", level)
	}

	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("proportional hazards fit: %v", r)
		}
	}()

	ph, err := duration.NewPHReg(d.dataset(), d.TimeName, d.StatusName, d.Names, nil)
	if err != nil {
		return nil, err
	}

	m = &Model{
		data:            d,
		ph:              ph,
		Names:           append([]string(nil), d.Names...),
		NumObs:          d.NumObs(),
		NumEvents:       d.NumEvents(),
		ConfidenceLevel: level,
	}

	if len(d.Names) == 0 {
		// Null model: nothing to optimise, the partial likelihood is
		// evaluated at the empty coefficient vector.
		param := &duration.PHParameter{}
		param.SetCoeff([]float64{})
		m.LogLike = ph.LogLike(param, false)
		return m, nil
	}

	rslt, err := ph.Fit()
	if err != nil {
		return nil, err
	}
	if rslt.VCov() == nil {
		return nil, ErrNoCovariance
	}

	m.Coef = append([]float64(nil), rslt.Params()...)
	m.StdErr = append([]float64(nil), rslt.StdErr()...)
	// PValues reads the cached z-scores, so they have to exist first.
	m.ZScore = append([]float64(nil), rslt.ZScores()...)
	m.PValue = append([]float64(nil), rslt.PValues()...)
	m.VCov = append([]float64(nil), rslt.VCov()...)
	m.LogLike = rslt.LogLike()

	for j, se := range m.StdErr {
		if math.IsNaN(se) || math.IsInf(se, 0) {
			return nil, fmt.Errorf("%w: standard error of %s is %v", ErrNoCovariance, m.Names[j], se)
		}
	}

	m.setIntervals()

	return m, nil
}

func (m *Model) setIntervals() {
	z := distuv.UnitNormal.Quantile(1 - (1-m.ConfidenceLevel)/2)

	p := len(m.Coef)
	m.HazardRatio = make([]float64, p)
	m.CoefLower = make([]float64, p)
	m.CoefUpper = make([]float64, p)
	m.HRLower = make([]float64, p)
	m.HRUpper = make([]float64, p)

	for j, b := range m.Coef {
		m.HazardRatio[j] = math.Exp(b)
		m.CoefLower[j] = b - z*m.StdErr[j]
		m.CoefUpper[j] = b + z*m.StdErr[j]
		m.HRLower[j] = math.Exp(m.CoefLower[j])
		m.HRUpper[j] = math.Exp(m.CoefUpper[j])
	}
}

// Data returns the data the model was fit to.
func (m *Model) Data() *Data {
	return m.data
}

// NumParams returns the number of coefficients.
func (m *Model) NumParams() int {
	return len(m.Coef)
}

// Index returns the position of a covariate, or -1.
func (m *Model) Index(name string) int {
	for j, na := range m.Names {
		if na == name {
			return j
		}
	}
	return -1
}

// LinearPredictor returns x'b for every row of the fitting data.
func (m *Model) LinearPredictor() []float64 {
	lp := make([]float64, m.data.NumObs())
	for j, x := range m.data.X {
		if j >= len(m.Coef) {
			break
		}
		for i, v := range x {
			lp[i] += v * m.Coef[j]
		}
	}
	return lp
}

// PartialHazard returns exp(x'b) for every row of the fitting data.
func (m *Model) PartialHazard() []float64 {
	lp := m.LinearPredictor()
	for i := range lp {
		lp[i] = math.Exp(lp[i])
	}
	return lp
}

// Concordance returns Harrell's concordance index of the fitted partial
// hazards on the fitting data.
func (m *Model) Concordance() (float64, error) {
	if m.NumParams() == 0 {
		return 0, errors.New("no covariates in the model")
	}
	ph := m.PartialHazard()
	score := make([]float64, len(ph))
	for i, h := range ph {
		// A larger hazard predicts a shorter time.
		score[i] = -h
	}
	return ConcordanceIndex(m.data.Time, score, m.data.Status)
}

// BaselineCumHaz returns the event times and the baseline cumulative hazard
// (all covariates at zero) estimated by the fitter.
func (m *Model) BaselineCumHaz() ([]float64, []float64) {
	coef := m.Coef
	if coef == nil {
		coef = []float64{}
	}
	times, cumhaz := m.ph.BaselineCumHaz(0, coef)
	return append([]float64(nil), times...), append([]float64(nil), cumhaz...)
}
