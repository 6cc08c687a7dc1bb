package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/kshedden/statmodel/statmodel"

	"cox-analyzer/internal/survival"
)

// names pads labels to a common width, left aligned.
func names(x interface{}, h string) []string {
	y := x.([]string)
	m := len(h)
	for _, s := range y {
		if len(s) > m {
			m = len(s)
		}
	}
	z := make([]string, len(y))
	for i, s := range y {
		z[i] = fmt.Sprintf("%-*s", m, s)
	}
	return z
}

func floatsFmt(verb string) statmodel.Fmter {
	return func(x interface{}, h string) []string {
		y := x.([]float64)
		z := make([]string, len(y))
		for i, v := range y {
			z[i] = fmt.Sprintf(verb, v)
		}
		return z
	}
}

var (
	coefFmt = floatsFmt("%11.4f")
	pFmt    = floatsFmt("%11.4g")
	bitsFmt = floatsFmt("%10.2f")
)

// CoxSummary renders the coefficient table of a fitted model.
func CoxSummary(m *survival.Model) string {
	d := m.Data()

	top := []string{
		fmt.Sprintf("duration col: %s", d.TimeName),
		fmt.Sprintf("event col: %s", d.StatusName),
		fmt.Sprintf("observations: %d", m.NumObs),
		fmt.Sprintf("events observed: %d", m.NumEvents),
		"baseline estimation: breslow",
		fmt.Sprintf("partial log-likelihood: %.4f", m.LogLike),
	}

	if m.NumParams() == 0 {
		var b strings.Builder
		b.WriteString("Cox proportional hazards model (no covariates)\n")
		for _, s := range top {
			b.WriteString("  " + s + "\n")
		}
		return b.String()
	}

	lvl := fmt.Sprintf("%g%%", 100*m.ConfidenceLevel)
	sum := &statmodel.SummaryTable{
		Title: "Cox proportional hazards model",
		Top:   top,
		ColNames: []string{
			"covariate",
			"  coef",
			"  exp(coef)",
			"  se(coef)",
			"  coef lower " + lvl,
			"  coef upper " + lvl,
			"  exp(coef) lower " + lvl,
			"  exp(coef) upper " + lvl,
			"  z",
			"  p",
			"  -log2(p)",
		},
		ColFmt: []statmodel.Fmter{names, coefFmt, coefFmt, coefFmt, coefFmt, coefFmt, coefFmt, coefFmt, coefFmt, pFmt, bitsFmt},
		Cols: []interface{}{
			m.Names, m.Coef, m.HazardRatio, m.StdErr,
			m.CoefLower, m.CoefUpper, m.HRLower, m.HRUpper,
			m.ZScore, m.PValue, negLog2(m.PValue),
		},
	}

	return sum.String()
}

// PHTestTable renders the proportional hazards test and flags covariates
// whose p-value falls below threshold.
func PHTestTable(res *survival.PHTest, threshold float64) string {
	sum := &statmodel.SummaryTable{
		Title: "Proportional hazard assumption test",
		Top: []string{
			fmt.Sprintf("time transform: %s", res.Transform),
			"null distribution: chi squared",
			"degrees of freedom: 1",
			fmt.Sprintf("events: %d", res.NumEvents),
		},
		ColNames: []string{"covariate", "  test statistic", "  p", "  -log2(p)"},
		ColFmt:   []statmodel.Fmter{names, coefFmt, pFmt, bitsFmt},
		Cols:     []interface{}{res.Names, res.Statistic, res.PValue, res.NegLog2P},
	}

	if v := res.Violations(threshold); len(v) > 0 {
		for _, na := range v {
			sum.Msg = append(sum.Msg, fmt.Sprintf("%s: p-value below %g, the proportional hazards assumption may not hold.", na, threshold))
		}
	} else {
		sum.Msg = append(sum.Msg, fmt.Sprintf("No covariate has a p-value below %g.", threshold))
	}

	return sum.String()
}

func negLog2(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = -math.Log2(v)
	}
	return out
}
