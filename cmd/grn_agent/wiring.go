package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aungkyaw/grn-automation/internal/config"
	"github.com/aungkyaw/grn-automation/internal/db"
	"github.com/aungkyaw/grn-automation/internal/extraction"
	"github.com/aungkyaw/grn-automation/internal/llm"
	"github.com/aungkyaw/grn-automation/internal/pipeline"
	"github.com/aungkyaw/grn-automation/internal/sap"
	"github.com/aungkyaw/grn-automation/internal/validation"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg  *config.Config
	log  *logrus.Logger
	db   *db.DB
	erp  *sap.Client
	llm  *llm.GeminiClient
	orch *pipeline.Orchestrator
}

// newApp loads configuration, connects to the database, runs
// migrations, and wires the ERP client, the Gemini client, and the
// orchestrator.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logrus.New()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, err
	}

	erp := sap.NewClient(cfg.SAP(), log)
	orch := pipeline.New(database, erp, validation.NewGemini(gemini, log), extraction.NewGemini(gemini, log), log)

	return &app{
		cfg:  cfg,
		log:  log,
		db:   database,
		erp:  erp,
		llm:  gemini,
		orch: orch,
	}, nil
}

// close releases the ERP session and every connection.
func (a *app) close(ctx context.Context) {
	a.erp.Close(ctx)
	if err := a.llm.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close llm client")
	}
	a.db.Close()
}
