package views

import (
	"errors"
	"image"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cox-analyzer/internal/models"
)

func newTestView(t *testing.T) *MainView {
	t.Helper()
	a := test.NewTempApp(t)
	w := a.NewWindow("test")
	t.Cleanup(w.Close)
	return NewMainView(a, w)
}

func TestSetDatasetFillsSelectors(t *testing.T) {
	view := newTestView(t)

	view.SetDataset("data.csv", []string{"time", "status", "age"})
	assert.Equal(t, "data.csv", view.DataPanel().FileName())
	assert.Equal(t, []string{"time", "status", "age"}, view.ColumnSelector().Columns())

	view.ColumnSelector().Select(models.Selection{
		Duration:   "time",
		Event:      "status",
		Interest:   "age",
		Covariates: []string{"age"},
	})
	sel := view.Selection()
	assert.Equal(t, "time", sel.Duration)
	assert.Equal(t, "status", sel.Event)
	assert.Equal(t, "age", sel.Interest)
	assert.Equal(t, []string{"age"}, sel.Covariates)
}

func TestResetDatasetClearsSelection(t *testing.T) {
	view := newTestView(t)
	view.SetDataset("data.csv", []string{"time", "status"})
	view.ColumnSelector().Select(models.Selection{Duration: "time", Event: "status"})
	view.SetPlotChoices([]string{"age"})

	view.ResetDataset()
	assert.Equal(t, "No file loaded.", view.DataPanel().FileName())
	assert.Empty(t, view.ColumnSelector().Columns())
	assert.Equal(t, models.Selection{}, view.Selection())
	assert.Empty(t, view.AnalysisPanel().PlotChoices())
	assert.Equal(t, "", view.PlotCovariate())
}

func TestNewColumnsDropStaleSelection(t *testing.T) {
	view := newTestView(t)
	view.SetDataset("a.csv", []string{"time", "status", "age"})
	view.ColumnSelector().Select(models.Selection{Duration: "time", Event: "status", Interest: "age"})

	view.SetDataset("b.csv", []string{"time", "dead"})
	sel := view.Selection()
	assert.Equal(t, "time", sel.Duration)
	assert.Equal(t, "", sel.Event)
	assert.Equal(t, "", sel.Interest)
}

func TestPlotChoicesPreselectFirst(t *testing.T) {
	view := newTestView(t)

	view.SetPlotChoices([]string{"age", "group"})
	assert.Equal(t, "age", view.PlotCovariate())

	view.SetPlotChoices(nil)
	assert.Equal(t, "", view.PlotCovariate())
}

func TestButtonsCallHandlers(t *testing.T) {
	view := newTestView(t)

	var calls []string
	view.SetLoadHandler(func() { calls = append(calls, "load") })
	view.SetRunUnadjustedHandler(func() { calls = append(calls, "unadjusted") })
	view.SetRunAdjustedHandler(func() { calls = append(calls, "adjusted") })
	view.SetCheckPHHandler(func() { calls = append(calls, "ph") })
	view.SetPlotHandler(func(cov string) { calls = append(calls, "plot:"+cov) })

	view.SetPlotChoices([]string{"age"})

	test.Tap(view.DataPanel().LoadButton())
	test.Tap(view.AnalysisPanel().UnadjustedButton())
	test.Tap(view.AnalysisPanel().AdjustedButton())
	test.Tap(view.AnalysisPanel().CheckPHButton())
	test.Tap(view.AnalysisPanel().PlotButton())

	assert.Equal(t, []string{"load", "unadjusted", "adjusted", "ph", "plot:age"}, calls)
}

func TestResultsLog(t *testing.T) {
	view := newTestView(t)

	view.AppendResults("first")
	view.AppendResults("table\nrow\n")
	assert.Equal(t, "first\ntable\nrow\n", view.ResultsText())

	view.ClearResults()
	assert.Equal(t, "", view.ResultsText())
}

func TestShowChartReplacesWindow(t *testing.T) {
	view := newTestView(t)
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	view.ShowChart("first", img)
	first := view.ChartWindow()
	require.NotNil(t, first)
	assert.Equal(t, "first", first.Title())

	view.ShowChart("second", img)
	second := view.ChartWindow()
	require.NotNil(t, second)
	assert.Equal(t, "second", second.Title())
	assert.NotSame(t, first, second)
}

func TestDialogsDoNotPanic(t *testing.T) {
	view := newTestView(t)

	assert.NotPanics(t, func() {
		view.ShowError("Error Loading CSV", errors.New(strings.Repeat("bad ", 20)))
		view.ShowWarning("Data Warning", "something odd")
	})
}
