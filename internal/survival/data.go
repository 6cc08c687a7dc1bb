// Package survival adapts the statmodel proportional hazards regression to
// the analyzer. Estimation is done by statmodel; this package shapes the
// inputs, collects the results and derives the reported quantities.
package survival

import (
	"errors"
	"fmt"

	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat"
)

// Data is a cleaned, fully numeric dataset ready to be fit. X[j] holds the
// values of covariate Names[j], aligned with Time and Status.
type Data struct {
	TimeName   string
	StatusName string

	Time   []float64
	Status []float64

	Names []string
	X     [][]float64
}

// NewData validates the shape of the columns and returns a Data value.
func NewData(timeName, statusName string, time, status []float64, names []string, x [][]float64) (*Data, error) {
	if len(time) != len(status) {
		return nil, fmt.Errorf("time has %d values but status has %d", len(time), len(status))
	}
	if len(names) != len(x) {
		return nil, fmt.Errorf("%d covariate names for %d covariate columns", len(names), len(x))
	}
	if timeName == statusName {
		return nil, errors.New("time and status must be different columns")
	}
	seen := map[string]bool{timeName: true, statusName: true}
	for j, na := range names {
		if seen[na] {
			return nil, fmt.Errorf("duplicate column name %q", na)
		}
		seen[na] = true
		if len(x[j]) != len(time) {
			return nil, fmt.Errorf("covariate %q has %d values, expected %d", na, len(x[j]), len(time))
		}
	}

	return &Data{
		TimeName:   timeName,
		StatusName: statusName,
		Time:       time,
		Status:     status,
		Names:      names,
		X:          x,
	}, nil
}

// NumObs returns the number of rows.
func (d *Data) NumObs() int {
	return len(d.Time)
}

// NumEvents returns the number of rows with an observed event.
func (d *Data) NumEvents() int {
	var n int
	for _, s := range d.Status {
		if s == 1 {
			n++
		}
	}
	return n
}

// Column returns a named column, which may be the time, the status or a
// covariate.
func (d *Data) Column(name string) ([]float64, bool) {
	switch name {
	case d.TimeName:
		return d.Time, true
	case d.StatusName:
		return d.Status, true
	}
	for j, na := range d.Names {
		if na == name {
			return d.X[j], true
		}
	}
	return nil, false
}

// Means returns the covariate means, in the order of Names.
func (d *Data) Means() []float64 {
	mn := make([]float64, len(d.X))
	for j, x := range d.X {
		mn[j] = stat.Mean(x, nil)
	}
	return mn
}

// dataset copies the columns into a statmodel dataset, time first, status
// second, then the covariates. The fitter owns the copies.
func (d *Data) dataset() statmodel.Dataset {
	da := make([][]statmodel.Dtype, 0, 2+len(d.X))
	names := make([]string, 0, 2+len(d.X))

	da = append(da, clone(d.Time), clone(d.Status))
	names = append(names, d.TimeName, d.StatusName)
	for j, x := range d.X {
		da = append(da, clone(x))
		names = append(names, d.Names[j])
	}

	return statmodel.NewDataset(da, names)
}

func clone(x []float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	return y
}
