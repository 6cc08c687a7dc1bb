package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"fyne.io/fyne/v2"

	"cox-analyzer/internal/logger"
	"cox-analyzer/internal/models"
	"cox-analyzer/internal/report"
	"cox-analyzer/internal/services"
	"cox-analyzer/internal/views"
)

// MainController connects the form to the dataset and analysis services.
// Every handler runs to completion on the UI goroutine.
type MainController struct {
	datasetService  *services.DatasetService
	analysisService *services.AnalysisService
	session         *models.Session
	logger          logger.Logger

	mainView    *views.MainView
	previewRows int

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMainController returns a controller whose loads stop when ctx is done.
func NewMainController(
	ctx context.Context,
	datasetService *services.DatasetService,
	analysisService *services.AnalysisService,
	session *models.Session,
	previewRows int,
	log logger.Logger,
) *MainController {
	ctx, cancel := context.WithCancel(ctx)
	return &MainController{
		datasetService:  datasetService,
		analysisService: analysisService,
		session:         session,
		logger:          log,
		previewRows:     previewRows,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// SetMainView associates the main view with this controller
func (mc *MainController) SetMainView(view *views.MainView) {
	mc.mainView = view
	mc.setupViewEventHandlers()
}

func (mc *MainController) setupViewEventHandlers() {
	mc.mainView.SetLoadHandler(mc.LoadData)
	mc.mainView.SetRunUnadjustedHandler(mc.RunUnadjusted)
	mc.mainView.SetRunAdjustedHandler(mc.RunAdjusted)
	mc.mainView.SetCheckPHHandler(mc.CheckProportionalHazards)
	mc.mainView.SetPlotHandler(mc.PlotPartialEffects)
}

// LoadData asks for a file and loads it.
func (mc *MainController) LoadData() {
	mc.mainView.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mc.loadFailed(err)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		mc.LoadFrom(reader.URI().Name(), reader)
	})
}

// LoadFrom loads a dataset from r and refreshes the form.
func (mc *MainController) LoadFrom(name string, r io.Reader) {
	table, err := mc.datasetService.Load(mc.ctx, r, name)
	if err != nil {
		mc.loadFailed(err)
		return
	}

	mc.mainView.SetDataset(name, table.Names())
	mc.mainView.ClearResults()
	mc.mainView.AppendResults("CSV file loaded successfully.")
	mc.mainView.AppendResults(fmt.Sprintf("Shape: %d rows, %d columns.", table.NumRows(), table.NumCols()))
	mc.mainView.AppendResults(fmt.Sprintf("First %d rows:", mc.previewRows))
	mc.mainView.AppendResults(report.TableHead(table, mc.previewRows))
}

func (mc *MainController) loadFailed(err error) {
	mc.session.Reset()
	mc.mainView.ResetDataset()
	mc.handleError("Error Loading CSV", fmt.Errorf("Failed to load or parse CSV file.\nError: %w", err))
}

func (mc *MainController) RunUnadjusted() {
	covs, err := mc.analysisService.RunUnadjusted(mc.mainView.Selection(), mc)
	mc.afterRun(covs, err)
}

func (mc *MainController) RunAdjusted() {
	covs, err := mc.analysisService.RunAdjusted(mc.mainView.Selection(), mc)
	mc.afterRun(covs, err)
}

// afterRun updates the plot choices. A failed preparation keeps the choices
// of the previous fit; a failed fit clears them.
func (mc *MainController) afterRun(covs []string, err error) {
	if err != nil {
		var ae *services.AnalysisError
		if errors.As(err, &ae) {
			mc.mainView.SetPlotChoices(nil)
		}
		mc.handleError("", err)
		return
	}
	mc.mainView.SetPlotChoices(covs)
}

func (mc *MainController) CheckProportionalHazards() {
	if err := mc.analysisService.CheckProportionalHazards(mc); err != nil {
		mc.handleError("", err)
	}
}

func (mc *MainController) PlotPartialEffects(covariate string) {
	chart, err := mc.analysisService.PlotPartialEffects(covariate, mc)
	if err != nil {
		mc.handleError("", err)
		return
	}
	mc.mainView.ShowChart(chart.Title, chart.Image())
}

// Clear, Append and Notify route analysis output to the form.

func (mc *MainController) Clear() {
	mc.mainView.ClearResults()
}

func (mc *MainController) Append(text string) {
	mc.mainView.AppendResults(text)
}

func (mc *MainController) Notify(n models.Notice) {
	switch n.Level {
	case models.Warning:
		mc.logger.Warning(n.Message, map[string]interface{}{"title": n.Title})
		mc.mainView.ShowWarning(n.Title, n.Message)
	default:
		mc.mainView.AppendResults(n.Message)
	}
}

// handleError shows err in a modal dialog. An empty title is taken from
// the error when it carries one.
func (mc *MainController) handleError(title string, err error) {
	if title == "" {
		title = errorTitle(err)
	}
	mc.logger.Error(title, err, nil)

	if mc.mainView != nil {
		mc.mainView.ShowError(title, err)
	}
}

func errorTitle(err error) string {
	var pe *services.PrepError
	if errors.As(err, &pe) {
		return pe.Title
	}
	var ae *services.AnalysisError
	if errors.As(err, &ae) {
		return ae.Title
	}
	return "Error"
}

// Shutdown cancels pending loads.
func (mc *MainController) Shutdown() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cancel()
	mc.logger.Info("controller stopped", map[string]interface{}{
		"has_dataset": mc.session.State().HasDataset,
		"has_fit":     mc.session.State().HasFit,
	})
}
