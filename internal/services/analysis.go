package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cox-analyzer/internal/config"
	"cox-analyzer/internal/logger"
	"cox-analyzer/internal/models"
	"cox-analyzer/internal/plotting"
	"cox-analyzer/internal/report"
	"cox-analyzer/internal/survival"
)

// Reporter receives the text and notices an analysis produces.
type Reporter interface {
	// Clear empties the results log.
	Clear()
	// Append adds text to the end of the results log.
	Append(text string)
	// Notify reports a notice; warnings are shown in a dialog.
	Notify(n models.Notice)
}

// AnalysisError is a failure of a model fit, test or plot. Title is the
// dialog title it is reported under.
type AnalysisError struct {
	Title string
	Err   error
}

func (e *AnalysisError) Error() string {
	return e.Err.Error()
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// AnalysisService runs the regressions and diagnostics on the session
// dataset and keeps the last successful fit in the session.
type AnalysisService struct {
	session  *models.Session
	analysis config.AnalysisConfig
	plot     config.PlotConfig
	logger   logger.Logger
}

func NewAnalysisService(session *models.Session, cfg *config.Config, log logger.Logger) *AnalysisService {
	return &AnalysisService{
		session:  session,
		analysis: cfg.Analysis,
		plot:     cfg.Plot,
		logger:   log,
	}
}

func (as *AnalysisService) appendf(rep Reporter, format string, args ...interface{}) {
	rep.Append(fmt.Sprintf(format, args...))
}

func (as *AnalysisService) prepare(sel models.Selection, mode models.Mode, rep Reporter) (*Prepared, error) {
	p, notices, err := Prepare(as.session.Dataset(), sel, mode)
	for _, n := range notices {
		rep.Notify(n)
	}
	if err != nil {
		as.logger.Warning("data preparation failed", map[string]interface{}{
			"mode":  mode.String(),
			"error": err.Error(),
		})
		as.appendf(rep, "Failed to prepare data for %s model (see error popups for details).", mode)
		return nil, err
	}
	return p, nil
}

// RunUnadjusted fits the variable of interest alone. It returns the
// covariates available for plotting.
func (as *AnalysisService) RunUnadjusted(sel models.Selection, rep Reporter) ([]string, error) {
	rep.Clear()
	rep.Append("Running Unadjusted Cox Regression...")

	p, err := as.prepare(sel, models.Unadjusted, rep)
	if err != nil {
		return nil, err
	}

	voi := p.Covariates[0]
	as.appendf(rep, "Duration column: %s", p.Duration)
	as.appendf(rep, "Event column: %s", p.Event)
	as.appendf(rep, "Variable of Interest (for formula): %s", voi)
	as.appendf(rep, "Data subset for model has %d rows.", p.RowsAfter)
	as.appendf(rep, "Head of relevant columns in data_subset:\n%s", as.head(p))
	as.appendf(rep, "Info for VOI '%s' in data_subset:\n%s", voi, report.Describe(voi, p.Columns[voi]))

	return as.fit(p, models.Unadjusted, rep)
}

// RunAdjusted fits all selected covariates together. It returns the
// covariates available for plotting.
func (as *AnalysisService) RunAdjusted(sel models.Selection, rep Reporter) ([]string, error) {
	rep.Clear()
	rep.Append("Running Adjusted Cox Regression...")

	p, err := as.prepare(sel, models.Adjusted, rep)
	if err != nil {
		return nil, err
	}

	as.appendf(rep, "Covariates for formula: %s", strings.Join(p.Covariates, ", "))
	as.appendf(rep, "Data subset for model has %d rows.", p.RowsAfter)
	as.appendf(rep, "Head of relevant columns in data_subset:\n%s", as.head(p))

	return as.fit(p, models.Adjusted, rep)
}

func (as *AnalysisService) head(p *Prepared) string {
	names := append([]string{p.Duration, p.Event}, p.Covariates...)
	cols := make([][]string, len(names))
	for j, na := range names {
		x, _ := p.Column(na)
		cols[j] = report.FormatColumn(x)
	}
	return report.Head(names, cols, as.analysis.PreviewRows)
}

func (as *AnalysisService) fit(p *Prepared, mode models.Mode, rep Reporter) ([]string, error) {
	start := time.Now()

	fail := func(err error) ([]string, error) {
		as.session.ClearFit()
		as.logger.Error("cox regression failed", err, map[string]interface{}{
			"mode":       mode.String(),
			"covariates": p.Covariates,
		})
		as.appendf(rep, "\nError during Cox regression: %v", err)
		return nil, &AnalysisError{
			Title: "Cox Regression Error",
			Err:   fmt.Errorf("An error occurred during model fitting: %w", err),
		}
	}

	data, err := p.Data()
	if err != nil {
		return fail(err)
	}

	as.appendf(rep, "Fitting model with formula: '%s'", survival.Formula(p.Covariates))
	m, err := survival.FitModel(data, survival.Options{ConfidenceLevel: as.analysis.ConfidenceLevel})
	if err != nil {
		return fail(err)
	}

	rep.Append("\n--- Cox Model Summary ---")
	rep.Append(report.CoxSummary(m))

	if m.NumParams() > 0 {
		c, err := m.Concordance()
		if err != nil {
			as.appendf(rep, "\nCould not calculate Concordance Index: %v", err)
		} else {
			as.appendf(rep, "\nConcordance Index (C-statistic): %.4f", c)
		}
	} else {
		rep.Append("\nConcordance Index not applicable (no covariates in the final model).")
	}

	as.session.SetFit(&models.FitRecord{
		Model:      m,
		Mode:       mode,
		Covariates: append([]string(nil), p.Covariates...),
		Data:       data,
	})

	as.logger.Info("cox regression fitted", map[string]interface{}{
		"mode":       mode.String(),
		"covariates": p.Covariates,
		"rows":       m.NumObs,
		"events":     m.NumEvents,
		"loglike":    m.LogLike,
		"duration":   time.Since(start).String(),
	})

	return append([]string(nil), p.Covariates...), nil
}

// CheckProportionalHazards tests the last fit for proportional hazards
// using scaled Schoenfeld residuals.
func (as *AnalysisService) CheckProportionalHazards(rep Reporter) error {
	rec := as.session.Fit()
	if rec == nil || rec.Model == nil {
		return ErrNoModel
	}
	if len(rec.Covariates) == 0 {
		rep.Notify(models.Notice{
			Level:   models.Warning,
			Title:   "Info",
			Message: "No covariates were in the last successfully fitted model. Proportional hazards check is for covariates.",
		})
		return nil
	}

	rep.Append("\n--- Proportional Hazards Assumption Check ---")
	as.appendf(rep, "Checking PH on data with %d rows. Model's internal formula will be used.", rec.Data.NumObs())

	threshold := as.analysis.PValueThreshold
	res, err := rec.Model.ProportionalHazardTest(survival.TimeTransform(as.analysis.TimeTransform))
	if err != nil {
		as.logger.Error("proportional hazards check failed", err, nil)
		as.appendf(rep, "\nError during assumption check: %v", err)
		return &AnalysisError{
			Title: "Assumption Check Error",
			Err:   fmt.Errorf("Error during proportional hazards check: %w", err),
		}
	}

	rep.Append("Test Results (p-values for deviation from proportionality):")
	rep.Append(report.PHTestTable(res, threshold))
	as.appendf(rep, "A low p-value (e.g., < %g) in the test results would suggest that the proportional hazard assumption may be violated for that covariate.", threshold)

	as.logger.Info("proportional hazards checked", map[string]interface{}{
		"covariates": res.Names,
		"violations": res.Violations(threshold),
	})
	return nil
}

// PlotPartialEffects draws survival curves for several values of one
// covariate of the last fit. When a plot directory is configured the chart
// is saved there too.
func (as *AnalysisService) PlotPartialEffects(covariate string, rep Reporter) (*plotting.Chart, error) {
	rec := as.session.Fit()
	if rec == nil || rec.Model == nil {
		return nil, ErrNoModel
	}
	if covariate == "" {
		return nil, prepErr("Error", "Please select a covariate to plot from the dropdown.")
	}
	if !contains(rec.Covariates, covariate) {
		return nil, prepErr("Error", "Covariate '%s' was not in the last model run or is not available for plotting.", covariate)
	}

	as.appendf(rep, "\n--- Plotting Partial Effects for '%s' ---", covariate)

	fail := func(err error) (*plotting.Chart, error) {
		as.logger.Error("partial effects plot failed", err, map[string]interface{}{
			"covariate": covariate,
		})
		as.appendf(rep, "\nError plotting partial effects for %s: %v", covariate, err)
		return nil, &AnalysisError{
			Title: "Plotting Error",
			Err:   fmt.Errorf("Error plotting partial effects for %s: %w", covariate, err),
		}
	}

	x, _ := rec.Data.Column(covariate)
	values, err := PlotValues(x, as.plot.Quantiles, as.plot.FallbackValues)
	if err != nil {
		return fail(err)
	}
	as.appendf(rep, "Attempting to plot '%s' with values: %s", covariate, formatValues(values))

	curves, err := rec.Model.PartialEffects(covariate, values)
	if err != nil {
		return fail(err)
	}
	chart, err := plotting.PartialEffects(covariate, curves, as.plot.Width, as.plot.Height)
	if err != nil {
		return fail(err)
	}

	if as.plot.OutputDir != "" {
		path, err := as.SaveChart(chart, covariate)
		if err != nil {
			return fail(err)
		}
		as.appendf(rep, "Plot saved to %s", path)
	}

	as.appendf(rep, "Plot for '%s' displayed in a new window.", covariate)
	return chart, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SaveChart writes chart as a PNG named after the covariate into the
// configured plot directory and returns the file path.
func (as *AnalysisService) SaveChart(chart *plotting.Chart, covariate string) (string, error) {
	if as.plot.OutputDir == "" {
		return "", errors.New("no plot output directory configured")
	}
	if err := os.MkdirAll(as.plot.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create plot directory: %w", err)
	}

	name := unsafeFileChars.ReplaceAllString(covariate, "_")
	path := filepath.Join(as.plot.OutputDir, fmt.Sprintf("partial_effects_%s.png", name))
	if err := chart.SavePNG(path); err != nil {
		return "", fmt.Errorf("save plot: %w", err)
	}
	return path, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func formatValues(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
