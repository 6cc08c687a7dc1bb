package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"cox-analyzer/internal/models"
	"cox-analyzer/internal/survival"
)

var (
	ErrNoDataset = &PrepError{Title: "Error", Msg: "Please load a CSV file first."}
	ErrNoModel   = &PrepError{Title: "Error", Msg: "Please run a Cox model first and ensure data was available for it."}
)

// PrepError is a user-facing validation failure. Title is the dialog title
// it is reported under.
type PrepError struct {
	Title string
	Msg   string
}

func (e *PrepError) Error() string {
	return e.Msg
}

func prepErr(title, format string, args ...interface{}) *PrepError {
	return &PrepError{Title: title, Msg: fmt.Sprintf(format, args...)}
}

// Prepared is the cleaned numeric data a model is fit on. Rows with a
// missing value in any used column are gone and event values are 0 or 1.
type Prepared struct {
	Duration   string
	Event      string
	Covariates []string

	Time    []float64
	Status  []float64
	Columns map[string][]float64

	RowsBefore int
	RowsAfter  int
}

// Data converts the prepared columns into fitter input.
func (p *Prepared) Data() (*survival.Data, error) {
	x := make([][]float64, len(p.Covariates))
	for j, na := range p.Covariates {
		x[j] = p.Columns[na]
	}
	return survival.NewData(p.Duration, p.Event, p.Time, p.Status, p.Covariates, x)
}

// Column returns a prepared column by name, including the duration and
// event columns.
func (p *Prepared) Column(name string) ([]float64, bool) {
	switch name {
	case p.Duration:
		return p.Time, true
	case p.Event:
		return p.Status, true
	}
	x, ok := p.Columns[name]
	return x, ok
}

// naTokens are read as missing values in numeric columns.
var naTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"None": true,
	"N/A":  true,
}

// coerce parses cells as numbers. Missing and infinite cells become NaN. In strict mode
// the first unparseable cell is returned as an error; otherwise it becomes
// NaN too.
func coerce(cells []string, strict bool) ([]float64, error) {
	x := make([]float64, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if naTokens[c] {
			x[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("row %d: %q is not a number", i+1, c)
			}
			v = math.NaN()
		}
		if math.IsInf(v, 0) {
			v = math.NaN()
		}
		x[i] = v
	}
	return x, nil
}

func countMissing(x []float64) int {
	var n int
	for _, v := range x {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

func binary(x []float64) bool {
	for _, v := range x {
		if !math.IsNaN(v) && v != 0 && v != 1 {
			return false
		}
	}
	return true
}

func distinct(x []float64) int {
	seen := make(map[float64]struct{}, len(x))
	for _, v := range x {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Prepare validates the selection against the table and returns the
// cleaned data with the notices raised along the way. Any error aborts
// preparation; the notices gathered before it are still returned.
func Prepare(t *models.Table, sel models.Selection, mode models.Mode) (*Prepared, []models.Notice, error) {
	var notices []models.Notice
	info := func(format string, args ...interface{}) {
		notices = append(notices, models.Notice{Level: models.Info, Message: fmt.Sprintf(format, args...)})
	}
	warn := func(title, format string, args ...interface{}) {
		notices = append(notices, models.Notice{Level: models.Warning, Title: title, Message: fmt.Sprintf(format, args...)})
	}

	if t == nil {
		return nil, notices, ErrNoDataset
	}
	if sel.Duration == "" || sel.Event == "" {
		return nil, notices, prepErr("Error", "Please select Duration and Event columns.")
	}

	durCells, ok := t.Column(sel.Duration)
	if !ok {
		return nil, notices, prepErr("Error", "Duration column '%s' is not in the dataset.", sel.Duration)
	}
	dur, err := coerce(durCells, true)
	if err != nil {
		return nil, notices, prepErr("Error", "Duration column '%s' must be convertible to a numeric type (%v).", sel.Duration, err)
	}
	if countMissing(dur) > 0 {
		info("Warning: Duration column '%s' has missing values after numeric conversion. Rows with these NaNs will be dropped.", sel.Duration)
	}

	evCells, ok := t.Column(sel.Event)
	if !ok {
		return nil, notices, prepErr("Error", "Event column '%s' is not in the dataset.", sel.Event)
	}
	ev, err := coerce(evCells, true)
	if err != nil {
		return nil, notices, prepErr("Error", "Event column '%s' must be convertible to a numeric type (%v).", sel.Event, err)
	}
	if countMissing(ev) > 0 {
		info("Warning: Event column '%s' has missing values after numeric conversion. Rows with these NaNs will be dropped.", sel.Event)
	}
	if !binary(ev) {
		warn("Warning", "Event column '%s' contains values other than 0 and 1 (and NaNs). Ensure 1 means event and 0 means censored.", sel.Event)
	}

	var candidates []string
	switch mode {
	case models.Adjusted:
		if len(sel.Covariates) == 0 {
			return nil, notices, prepErr("Error", "Please select at least one covariate for the adjusted model.")
		}
		seen := make(map[string]bool, len(sel.Covariates))
		for _, c := range sel.Covariates {
			if !seen[c] {
				seen[c] = true
				candidates = append(candidates, c)
			}
		}
	case models.Unadjusted:
		if sel.Interest == "" {
			return nil, notices, prepErr("Error", "Please select a 'Variable of Interest'.")
		}
		candidates = []string{sel.Interest}
	default:
		return nil, notices, fmt.Errorf("unknown mode %v", mode)
	}
	single := mode == models.Unadjusted

	cols := make(map[string][]float64, len(candidates))
	var kept []string
	for _, na := range candidates {
		if na == sel.Duration || na == sel.Event {
			return nil, notices, prepErr("Error", "Covariate/VOI '%s' cannot be the same as Duration or Event column.", na)
		}
		cells, ok := t.Column(na)
		if !ok {
			return nil, notices, prepErr("Error", "Covariate/VOI '%s' is not in the dataset.", na)
		}
		x, _ := coerce(cells, false)
		if countMissing(x) == len(x) {
			msg := fmt.Sprintf("Covariate/VOI '%s' contains no valid numeric data after conversion and will be excluded.", na)
			if single {
				return nil, notices, &PrepError{Title: "Data Error", Msg: msg}
			}
			warn("Data Warning", "%s", msg)
			continue
		}
		cols[na] = x
		kept = append(kept, na)
	}

	if len(kept) == 0 {
		if single {
			return nil, notices, prepErr("Error", "The selected Variable of Interest could not be processed or was invalid.")
		}
		return nil, notices, prepErr("Error", "No valid covariates selected or remaining after initial processing for the adjusted model.")
	}

	// Keep rows complete in every used column.
	before := t.NumRows()
	var rows []int
	for i := 0; i < before; i++ {
		if math.IsNaN(dur[i]) || math.IsNaN(ev[i]) {
			continue
		}
		complete := true
		for _, na := range kept {
			if math.IsNaN(cols[na][i]) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, i)
		}
	}
	if dropped := before - len(rows); dropped > 0 {
		info("Note: %d rows with missing values in selected columns (Duration, Event, and processed Covariates/VOI) were dropped.", dropped)
	}
	if len(rows) == 0 {
		return nil, notices, prepErr("Error", "No data remains after dropping missing values from selected columns.")
	}

	pick := func(x []float64) []float64 {
		y := make([]float64, len(rows))
		for k, i := range rows {
			y[k] = x[i]
		}
		return y
	}

	p := &Prepared{
		Duration:   sel.Duration,
		Event:      sel.Event,
		Time:       pick(dur),
		Status:     pick(ev),
		Columns:    make(map[string][]float64, len(kept)),
		RowsBefore: before,
		RowsAfter:  len(rows),
	}

	for k, v := range p.Time {
		if v < 0 {
			return nil, notices, prepErr("Data Error", "Duration column '%s' has a negative value (%g) in row %d. Durations must be non-negative.", sel.Duration, v, rows[k]+1)
		}
	}
	for k, v := range p.Status {
		if v != 0 {
			p.Status[k] = 1
		}
	}

	for _, na := range kept {
		x := pick(cols[na])
		if distinct(x) <= 1 {
			msg := fmt.Sprintf("Covariate/VOI '%s' has no variance (all values are the same) in the filtered data and will be excluded.", na)
			if single {
				return nil, notices, &PrepError{Title: "Data Error", Msg: msg}
			}
			warn("Data Warning", "%s", msg)
			continue
		}
		p.Columns[na] = x
		p.Covariates = append(p.Covariates, na)
	}
	if len(p.Covariates) == 0 {
		return nil, notices, prepErr("Error", "No usable covariates/VOI with variance remain after data cleaning. Cannot fit model.")
	}

	return p, notices, nil
}
