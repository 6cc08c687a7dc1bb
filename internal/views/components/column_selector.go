package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"cox-analyzer/internal/models"
)

// ColumnSelector lets the user pick the duration, event, variable of
// interest and covariate columns.
type ColumnSelector struct {
	container *fyne.Container

	duration   *widget.Select
	event      *widget.Select
	interest   *widget.Select
	covariates *widget.CheckGroup
}

func NewColumnSelector() *ColumnSelector {
	cs := &ColumnSelector{}
	cs.createComponents()
	cs.buildLayout()
	return cs
}

func (cs *ColumnSelector) createComponents() {
	cs.duration = widget.NewSelect(nil, nil)
	cs.duration.PlaceHolder = "(select column)"
	cs.event = widget.NewSelect(nil, nil)
	cs.event.PlaceHolder = "(select column)"
	cs.interest = widget.NewSelect(nil, nil)
	cs.interest.PlaceHolder = "(select column)"
	cs.covariates = widget.NewCheckGroup(nil, nil)
}

func (cs *ColumnSelector) buildLayout() {
	form := widget.NewForm(
		widget.NewFormItem("Duration Column:", cs.duration),
		widget.NewFormItem("Event Column (1=event, 0=censored):", cs.event),
		widget.NewFormItem("Variable of Interest (for Unadjusted):", cs.interest),
	)

	covScroll := container.NewVScroll(cs.covariates)
	covScroll.SetMinSize(fyne.NewSize(0, 120))

	cs.container = container.NewVBox(
		widget.NewCard("Column Selection", "", form),
		widget.NewCard("Covariates (for Adjusted Model)", "", covScroll),
	)
}

// SetColumns replaces the choices of every selector. Selections that no
// longer name a column are cleared.
func (cs *ColumnSelector) SetColumns(columns []string) {
	opts := append([]string(nil), columns...)

	for _, sel := range []*widget.Select{cs.duration, cs.event, cs.interest} {
		sel.SetOptions(opts)
		if !containsString(opts, sel.Selected) {
			sel.ClearSelected()
		}
	}

	cs.covariates.Options = opts
	cs.covariates.Selected = nil
	cs.covariates.Refresh()
}

// Columns returns the current choices.
func (cs *ColumnSelector) Columns() []string {
	return append([]string(nil), cs.duration.Options...)
}

// Selection reads the current choice.
func (cs *ColumnSelector) Selection() models.Selection {
	return models.Selection{
		Duration:   cs.duration.Selected,
		Event:      cs.event.Selected,
		Interest:   cs.interest.Selected,
		Covariates: cs.selectedCovariates(),
	}
}

// selectedCovariates keeps the column order rather than the click order.
func (cs *ColumnSelector) selectedCovariates() []string {
	var out []string
	for _, opt := range cs.covariates.Options {
		if containsString(cs.covariates.Selected, opt) {
			out = append(out, opt)
		}
	}
	return out
}

// Select sets the selection programmatically.
func (cs *ColumnSelector) Select(sel models.Selection) {
	cs.duration.SetSelected(sel.Duration)
	cs.event.SetSelected(sel.Event)
	cs.interest.SetSelected(sel.Interest)
	cs.covariates.SetSelected(sel.Covariates)
}

func (cs *ColumnSelector) GetContainer() *fyne.Container {
	return cs.container
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
