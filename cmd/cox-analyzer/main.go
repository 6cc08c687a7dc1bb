package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"cox-analyzer/internal/config"
	"cox-analyzer/internal/controllers"
	"cox-analyzer/internal/logger"
	"cox-analyzer/internal/models"
	"cox-analyzer/internal/services"
	"cox-analyzer/internal/shutdown"
	"cox-analyzer/internal/views"
)

const (
	AppName    = "Cox Regression Analyzer"
	AppID      = "com.survival.cox-analyzer"
	AppVersion = "1.0.0"
)

// Application owns the process-wide components.
type Application struct {
	fyneApp fyne.App
	window  fyne.Window
	logger  *logger.ZerologAdapter
	logFile *os.File

	controller *controllers.MainController
	view       *views.MainView
	session    *models.Session
	shutdown   *shutdown.Manager
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $"+config.EnvConfigPath+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	application, err := NewApplication(cfg)
	if err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}

	application.Run()
}

// newLogger logs to the console, or to cfg.LogFile as JSON lines with a
// console copy.
func newLogger(cfg *config.Config) (*logger.ZerologAdapter, *os.File, error) {
	if cfg.LogFile == "" {
		return logger.NewConsoleLogger(cfg.Level()), nil, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logger.NewFileLogger(cfg.Level(), f, true), f, nil
}

// NewApplication creates and wires the application.
func NewApplication(cfg *config.Config) (*Application, error) {
	appLogger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetMetadata(&fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})

	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	window.CenterOnScreen()

	appLogger.Info("Application starting", map[string]interface{}{
		"version":     AppVersion,
		"window_size": fmt.Sprintf("%.0fx%.0f", cfg.Window.Width, cfg.Window.Height),
		"go_version":  runtime.Version(),
		"log_level":   cfg.Level().String(),
		"confidence":  cfg.Analysis.ConfidenceLevel,
		"plot_dir":    cfg.Plot.OutputDir,
	})

	session := models.NewSession()
	datasetService := services.NewDatasetService(session, appLogger.With("dataset"))
	analysisService := services.NewAnalysisService(session, cfg, appLogger.With("analysis"))

	shutdownManager := shutdown.NewManager(appLogger.With("shutdown"))

	mainController := controllers.NewMainController(
		shutdownManager.Context(),
		datasetService, analysisService, session,
		cfg.Analysis.PreviewRows,
		appLogger.With("controller"),
	)
	mainView := views.NewMainView(fyneApp, window)
	mainController.SetMainView(mainView)

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		logger:     appLogger,
		logFile:    logFile,
		controller: mainController,
		view:       mainView,
		session:    session,
		shutdown:   shutdownManager,
	}

	// Registered first, stopped last.
	shutdownManager.Register("log file", shutdown.Func(application.closeLog))
	shutdownManager.Register("ui", shutdown.Func(fyneApp.Quit))
	shutdownManager.Register("controller", mainController)

	application.setupWindowEvents()
	return application, nil
}

// Run shows the window and blocks until the app quits.
func (app *Application) Run() {
	app.shutdown.Listen()

	app.view.Show()
	app.fyneApp.Run()

	app.shutdown.Shutdown()
}

func (app *Application) setupWindowEvents() {
	app.window.SetCloseIntercept(func() {
		app.logger.Info("Window close requested", nil)

		// Confirm only when there is something to lose.
		if !app.session.State().HasDataset {
			app.window.Close()
			return
		}
		app.view.ShowConfirm(
			"Exit Application",
			"Are you sure you want to exit?",
			func(confirmed bool) {
				if confirmed {
					app.window.Close()
				}
			},
		)
	})
	app.window.SetMaster()
}

func (app *Application) closeLog() {
	if app.logFile == nil {
		return
	}
	app.logger.Info("Closing log file", nil)
	if err := app.logFile.Close(); err != nil {
		log.Printf("close log file: %v", err)
	}
}
