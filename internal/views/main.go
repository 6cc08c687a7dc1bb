package views

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"cox-analyzer/internal/models"
	"cox-analyzer/internal/views/components"
)

// MainView is the single analysis form.
type MainView struct {
	app    fyne.App
	window fyne.Window

	mainContainer *fyne.Container
	dataPanel     *components.DataPanel
	selector      *components.ColumnSelector
	analysis      *components.AnalysisPanel
	results       *components.ResultsLog

	chartWindow fyne.Window
}

func NewMainView(app fyne.App, window fyne.Window) *MainView {
	view := &MainView{
		app:    app,
		window: window,
	}

	view.initializeComponents()
	view.buildLayout()

	return view
}

func (mv *MainView) initializeComponents() {
	mv.dataPanel = components.NewDataPanel()
	mv.selector = components.NewColumnSelector()
	mv.analysis = components.NewAnalysisPanel()
	mv.results = components.NewResultsLog()
}

func (mv *MainView) buildLayout() {
	top := container.NewVBox(
		widget.NewCard("Data Loading", "", mv.dataPanel.GetContainer()),
		mv.selector.GetContainer(),
		mv.analysis.GetContainer(),
	)

	resultsCard := widget.NewCard("Results", "", mv.results.GetContainer())

	mv.mainContainer = container.NewBorder(top, nil, nil, nil, resultsCard)
	mv.window.SetContent(mv.mainContainer)
}

// Event handler setters, called by the controller.

func (mv *MainView) SetLoadHandler(handler func()) {
	mv.dataPanel.SetLoadHandler(handler)
}

func (mv *MainView) SetRunUnadjustedHandler(handler func()) {
	mv.analysis.SetUnadjustedHandler(handler)
}

func (mv *MainView) SetRunAdjustedHandler(handler func()) {
	mv.analysis.SetAdjustedHandler(handler)
}

func (mv *MainView) SetCheckPHHandler(handler func()) {
	mv.analysis.SetCheckPHHandler(handler)
}

func (mv *MainView) SetPlotHandler(handler func(string)) {
	mv.analysis.SetPlotHandler(handler)
}

// UI updates, called by the controller from the UI goroutine.

// SetDataset shows a loaded file and offers its columns in every selector.
func (mv *MainView) SetDataset(fileName string, columns []string) {
	mv.dataPanel.SetFileName(fileName)
	mv.selector.SetColumns(columns)
	mv.analysis.SetPlotChoices(nil)
}

// ResetDataset returns the form to the no-data state.
func (mv *MainView) ResetDataset() {
	mv.dataPanel.Reset()
	mv.selector.SetColumns(nil)
	mv.analysis.SetPlotChoices(nil)
}

func (mv *MainView) Selection() models.Selection {
	return mv.selector.Selection()
}

func (mv *MainView) SetPlotChoices(covariates []string) {
	mv.analysis.SetPlotChoices(covariates)
}

func (mv *MainView) PlotCovariate() string {
	return mv.analysis.PlotCovariate()
}

func (mv *MainView) ClearResults() {
	mv.results.Clear()
}

func (mv *MainView) AppendResults(text string) {
	mv.results.Append(text)
}

func (mv *MainView) ResultsText() string {
	return mv.results.Text()
}

// ShowError displays a modal error dialog with the given title.
func (mv *MainView) ShowError(title string, err error) {
	mv.showMessage(title, err.Error(), theme.ErrorIcon())
}

// ShowWarning displays a modal warning dialog.
func (mv *MainView) ShowWarning(title, message string) {
	mv.showMessage(title, message, theme.WarningIcon())
}

func (mv *MainView) ShowConfirm(title, message string, callback func(bool)) {
	dialog.ShowConfirm(title, message, callback, mv.window)
}

func (mv *MainView) showMessage(title, message string, icon fyne.Resource) {
	text := widget.NewLabel(message)
	text.Wrapping = fyne.TextWrapWord

	content := container.NewBorder(nil, nil, widget.NewIcon(icon), nil, text)
	d := dialog.NewCustom(title, "OK", content, mv.window)
	d.Resize(fyne.NewSize(420, 0))
	d.Show()
}

// ShowFileOpen asks for a delimited text file.
func (mv *MainView) ShowFileOpen(callback func(fyne.URIReadCloser, error)) {
	d := dialog.NewFileOpen(callback, mv.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".tsv", ".txt"}))
	d.Show()
}

// ShowChart opens the chart in its own window, replacing the previous one.
func (mv *MainView) ShowChart(title string, img image.Image) {
	if mv.chartWindow != nil {
		mv.chartWindow.Close()
	}

	w := mv.app.NewWindow(title)
	picture := canvas.NewImageFromImage(img)
	picture.FillMode = canvas.ImageFillContain
	picture.SetMinSize(fyne.NewSize(480, 360))

	w.SetContent(picture)
	w.Resize(fyne.NewSize(660, 500))
	w.SetOnClosed(func() {
		if mv.chartWindow == w {
			mv.chartWindow = nil
		}
	})
	mv.chartWindow = w
	w.Show()
}

// ChartWindow returns the open chart window, or nil.
func (mv *MainView) ChartWindow() fyne.Window {
	return mv.chartWindow
}

func (mv *MainView) DataPanel() *components.DataPanel {
	return mv.dataPanel
}

func (mv *MainView) ColumnSelector() *components.ColumnSelector {
	return mv.selector
}

func (mv *MainView) AnalysisPanel() *components.AnalysisPanel {
	return mv.analysis
}

func (mv *MainView) Show() {
	mv.window.Show()
}
