package models

import "fmt"

// Mode selects which columns enter the regression.
type Mode int

const (
	// Unadjusted fits the variable of interest alone.
	Unadjusted Mode = iota
	// Adjusted fits all selected covariates.
	Adjusted
)

func (m Mode) String() string {
	switch m {
	case Unadjusted:
		return "unadjusted"
	case Adjusted:
		return "adjusted"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Selection is the user's column choice on the form.
type Selection struct {
	Duration   string
	Event      string
	Interest   string
	Covariates []string
}

// Level grades a Notice.
type Level int

const (
	Info Level = iota
	Warning
)

// Notice is a non-fatal message produced while preparing data or running
// an analysis. Info notices go to the results log, warnings are also shown
// in a dialog.
type Notice struct {
	Level   Level
	Title   string
	Message string
}
