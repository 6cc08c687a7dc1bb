package controllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cox-analyzer/internal/config"
	"cox-analyzer/internal/logger"
	"cox-analyzer/internal/models"
	"cox-analyzer/internal/services"
	"cox-analyzer/internal/views"
)

func newTestController(t *testing.T) (*MainController, *views.MainView, *models.Session) {
	t.Helper()
	return newTestControllerContext(t, context.Background())
}

func newTestControllerContext(t *testing.T, ctx context.Context) (*MainController, *views.MainView, *models.Session) {
	t.Helper()
	a := test.NewTempApp(t)
	w := a.NewWindow("test")
	t.Cleanup(w.Close)

	cfg := config.Default()
	log := logger.Nop()
	session := models.NewSession()

	mc := NewMainController(
		ctx,
		services.NewDatasetService(session, log),
		services.NewAnalysisService(session, cfg, log),
		session,
		cfg.Analysis.PreviewRows,
		log,
	)
	view := views.NewMainView(a, w)
	mc.SetMainView(view)
	return mc, view, session
}

func simulatedCSV(n int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))

	var b strings.Builder
	b.WriteString("time,status,x,group\n")
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		g := rng.Intn(2)
		ev := rng.ExpFloat64() / math.Exp(0.7*x)
		ce := 3 * rng.ExpFloat64()
		if ev <= ce {
			fmt.Fprintf(&b, "%.5f,1,%.5f,%d\n", ev, x, g)
		} else {
			fmt.Fprintf(&b, "%.5f,0,%.5f,%d\n", ce, x, g)
		}
	}
	return b.String()
}

func TestLoadFrom(t *testing.T) {
	mc, view, session := newTestController(t)

	mc.LoadFrom("sim.csv", strings.NewReader(simulatedCSV(50, 1)))

	require.NotNil(t, session.Dataset())
	assert.Equal(t, "sim.csv", view.DataPanel().FileName())
	assert.Equal(t, []string{"time", "status", "x", "group"}, view.ColumnSelector().Columns())

	out := view.ResultsText()
	assert.True(t, strings.HasPrefix(out, "CSV file loaded successfully.\n"))
	assert.Contains(t, out, "Shape: 50 rows, 4 columns.")
	assert.Contains(t, out, "First 5 rows:")
}

func TestLoadFromFailureResets(t *testing.T) {
	mc, view, session := newTestController(t)
	mc.LoadFrom("sim.csv", strings.NewReader(simulatedCSV(20, 1)))
	require.NotNil(t, session.Dataset())

	mc.LoadFrom("bad.csv", strings.NewReader("a,b\n1,2\n3\n"))

	assert.Nil(t, session.Dataset())
	assert.Equal(t, "No file loaded.", view.DataPanel().FileName())
	assert.Empty(t, view.ColumnSelector().Columns())
}

func TestRunAndPlot(t *testing.T) {
	mc, view, session := newTestController(t)
	mc.LoadFrom("sim.csv", strings.NewReader(simulatedCSV(200, 3)))

	view.ColumnSelector().Select(models.Selection{
		Duration:   "time",
		Event:      "status",
		Covariates: []string{"x", "group"},
	})
	test.Tap(view.AnalysisPanel().AdjustedButton())

	require.NotNil(t, session.Fit())
	assert.Equal(t, []string{"x", "group"}, view.AnalysisPanel().PlotChoices())
	assert.Equal(t, "x", view.PlotCovariate())
	assert.Contains(t, view.ResultsText(), "--- Cox Model Summary ---")

	test.Tap(view.AnalysisPanel().CheckPHButton())
	assert.Contains(t, view.ResultsText(), "--- Proportional Hazards Assumption Check ---")

	test.Tap(view.AnalysisPanel().PlotButton())
	require.NotNil(t, view.ChartWindow())
	assert.Contains(t, view.ResultsText(), "Plot for 'x' displayed in a new window.")
}

func TestRunWithoutDataset(t *testing.T) {
	mc, view, session := newTestController(t)

	mc.RunUnadjusted()
	assert.Nil(t, session.Fit())
	assert.Contains(t, view.ResultsText(), "Failed to prepare data for unadjusted model")
}

func TestPreparationFailureKeepsPlotChoices(t *testing.T) {
	mc, view, _ := newTestController(t)
	mc.LoadFrom("sim.csv", strings.NewReader(simulatedCSV(200, 5)))

	view.ColumnSelector().Select(models.Selection{Duration: "time", Event: "status", Interest: "x"})
	mc.RunUnadjusted()
	require.Equal(t, []string{"x"}, view.AnalysisPanel().PlotChoices())

	view.ColumnSelector().Select(models.Selection{Duration: "time", Event: "status", Interest: "status"})
	mc.RunUnadjusted()
	assert.Equal(t, []string{"x"}, view.AnalysisPanel().PlotChoices())
}

func TestCheckWithoutModel(t *testing.T) {
	mc, view, _ := newTestController(t)
	mc.CheckProportionalHazards()
	mc.PlotPartialEffects("x")
	assert.Nil(t, view.ChartWindow())
}

func TestNotifyRoutesInfoToResults(t *testing.T) {
	mc, view, _ := newTestController(t)

	mc.Notify(models.Notice{Level: models.Info, Message: "Note: 3 rows dropped."})
	assert.Equal(t, "Note: 3 rows dropped.\n", view.ResultsText())

	mc.Notify(models.Notice{Level: models.Warning, Title: "Data Warning", Message: "excluded"})
	assert.Equal(t, "Note: 3 rows dropped.\n", view.ResultsText())
}

func TestErrorTitle(t *testing.T) {
	assert.Equal(t, "Data Error", errorTitle(&services.PrepError{Title: "Data Error", Msg: "x"}))
	assert.Equal(t, "Plotting Error", errorTitle(fmt.Errorf("wrap: %w", &services.AnalysisError{Title: "Plotting Error", Err: errors.New("x")})))
	assert.Equal(t, "Error", errorTitle(errors.New("plain")))
}

func TestLoadStopsAfterParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mc, view, session := newTestControllerContext(t, ctx)

	cancel()
	assert.Error(t, mc.ctx.Err())

	mc.LoadFrom("sim.csv", strings.NewReader(simulatedCSV(20, 1)))
	assert.Nil(t, session.Dataset())
	assert.Equal(t, "No file loaded.", view.DataPanel().FileName())
}

func TestShutdown(t *testing.T) {
	mc, _, _ := newTestController(t)
	mc.Shutdown()
	assert.Error(t, mc.ctx.Err())
}
