package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/scandraw/internal/api"
	"github.com/jask/scandraw/internal/config"
	"github.com/jask/scandraw/internal/controller"
	"github.com/jask/scandraw/internal/database"
	"github.com/jask/scandraw/internal/database/repository"
	"github.com/jask/scandraw/internal/health"
	"github.com/jask/scandraw/internal/logging"
	"github.com/jask/scandraw/internal/overlay"
	"github.com/jask/scandraw/internal/prefs"
	"github.com/jask/scandraw/internal/secrets"
	"github.com/jask/scandraw/internal/service"
	"github.com/jask/scandraw/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, logFile, err := logging.Open(cfg.Log.File, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer logFile.Close()

	db, err := database.OpenMigrated(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	client, err := api.New(cfg.API.BaseURL, api.WithLogger(logger))
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	// services
	auth := &service.AuthService{Client: client, Tokens: secrets.NewStore(cfg.Storage.DataDir), Logger: logger}
	history := &service.HistoryService{Analyses: repository.NewAnalysisRepo(db)}
	maintenance := &service.MaintenanceService{DB: db}

	if email, ok := auth.Restore(); ok {
		logger.Info("restored session", "email", email)
	}

	p, err := prefs.Load(cfg.Storage.DataDir)
	if err != nil {
		logger.Warn("prefs unreadable, starting fresh", "error", err)
	}

	ctrl := controller.New(controller.Deps{
		Uploader: client,
		Prober:   client,
		Overlay:  overlay.New(),
		History:  history,
		Logger:   logger,
		MonitorOptions: []health.Option{
			health.WithInterval(cfg.Health.Interval),
			health.WithTimeout(cfg.Health.Timeout),
		},
	})
	ctrl.Mount(ctx)
	defer ctrl.Unmount()

	app := tui.New(ctx, tui.Deps{
		Controller:  ctrl,
		Auth:        auth,
		History:     history,
		Maintenance: maintenance,
		Config:      cfg,
		Prefs:       p,
		PrefsDir:    cfg.Storage.DataDir,
		Logger:      logger,
	})
	defer app.Close()

	logger.Info("starting", "backend", client.BaseURL())
	prog := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
