package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// AnalysisPanel holds the analysis buttons and the covariate chooser for
// partial effect plots.
type AnalysisPanel struct {
	container *fyne.Container

	unadjusted *widget.Button
	adjusted   *widget.Button
	checkPH    *widget.Button
	plot       *widget.Button
	plotChoice *widget.Select

	unadjustedHandler func()
	adjustedHandler   func()
	checkPHHandler    func()
	plotHandler       func(string)
}

func NewAnalysisPanel() *AnalysisPanel {
	ap := &AnalysisPanel{}
	ap.createComponents()
	ap.buildLayout()
	return ap
}

func (ap *AnalysisPanel) createComponents() {
	ap.unadjusted = widget.NewButton("Run Unadjusted Cox", func() {
		if ap.unadjustedHandler != nil {
			ap.unadjustedHandler()
		}
	})
	ap.adjusted = widget.NewButton("Run Adjusted Cox", func() {
		if ap.adjustedHandler != nil {
			ap.adjustedHandler()
		}
	})
	ap.checkPH = widget.NewButton("Check PH Assumption", func() {
		if ap.checkPHHandler != nil {
			ap.checkPHHandler()
		}
	})

	ap.plotChoice = widget.NewSelect(nil, nil)
	ap.plotChoice.PlaceHolder = "(run a model first)"
	ap.plot = widget.NewButton("Plot Partial Effects", func() {
		if ap.plotHandler != nil {
			ap.plotHandler(ap.plotChoice.Selected)
		}
	})
}

func (ap *AnalysisPanel) buildLayout() {
	runRow := container.NewGridWithColumns(3, ap.unadjusted, ap.adjusted, ap.checkPH)
	plotRow := container.NewBorder(nil, nil, widget.NewLabel("Covariate to plot:"), ap.plot, ap.plotChoice)

	ap.container = container.NewVBox(
		widget.NewCard("Analysis", "", container.NewVBox(runRow, plotRow)),
	)
}

func (ap *AnalysisPanel) SetUnadjustedHandler(handler func()) {
	ap.unadjustedHandler = handler
}

func (ap *AnalysisPanel) SetAdjustedHandler(handler func()) {
	ap.adjustedHandler = handler
}

func (ap *AnalysisPanel) SetCheckPHHandler(handler func()) {
	ap.checkPHHandler = handler
}

// SetPlotHandler sets the handler called with the chosen covariate.
func (ap *AnalysisPanel) SetPlotHandler(handler func(string)) {
	ap.plotHandler = handler
}

// SetPlotChoices replaces the plot covariates and preselects the first.
func (ap *AnalysisPanel) SetPlotChoices(covariates []string) {
	ap.plotChoice.SetOptions(append([]string(nil), covariates...))
	if len(covariates) > 0 {
		ap.plotChoice.SetSelected(covariates[0])
	} else {
		ap.plotChoice.ClearSelected()
	}
}

func (ap *AnalysisPanel) PlotChoices() []string {
	return append([]string(nil), ap.plotChoice.Options...)
}

func (ap *AnalysisPanel) PlotCovariate() string {
	return ap.plotChoice.Selected
}

func (ap *AnalysisPanel) UnadjustedButton() *widget.Button { return ap.unadjusted }
func (ap *AnalysisPanel) AdjustedButton() *widget.Button   { return ap.adjusted }
func (ap *AnalysisPanel) CheckPHButton() *widget.Button    { return ap.checkPH }
func (ap *AnalysisPanel) PlotButton() *widget.Button       { return ap.plot }

func (ap *AnalysisPanel) GetContainer() *fyne.Container {
	return ap.container
}
