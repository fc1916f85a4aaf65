package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-enrollment/internal/config"
	"github.com/goliatone/go-enrollment/pkg/draft"
	"github.com/goliatone/go-enrollment/pkg/draft/sqlkv"
	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/openapi"
	"github.com/goliatone/go-enrollment/pkg/orchestrator"
	"github.com/goliatone/go-enrollment/pkg/page"
	"github.com/goliatone/go-enrollment/pkg/rules"
	"github.com/goliatone/go-enrollment/pkg/session"
	"github.com/goliatone/go-enrollment/pkg/submission"
)

// openKV opens the configured draft backend. The returned closer releases
// any database connection.
func openKV(ctx context.Context, cfg *config.Config) (draft.KV, func() error, error) {
	switch cfg.Storage.Driver {
	case "", config.StorageMemory:
		return draft.NewMemoryKV(), func() error { return nil }, nil
	}
	var opts []sqlkv.Option
	if cfg.Storage.Table != "" {
		opts = append(opts, sqlkv.WithTable(cfg.Storage.Table))
	}
	store, err := sqlkv.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, opts...)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func buildAcceptor(cfg *config.Config) (submission.Acceptor, error) {
	if cfg.Submission.Endpoint != "" {
		return submission.NewHTTPAcceptor(cfg.Submission.Endpoint,
			submission.WithTimeout(cfg.GetSubmitTimeout()),
		)
	}
	return submission.NewSimulatedAcceptor(
		submission.WithDelay(cfg.GetSubmitDelay()),
		submission.WithSuccessRate(cfg.Submission.SuccessRate),
	), nil
}

func loadDefinition(path string) (form.Definition, error) {
	if path == "" {
		return form.DefaultDefinition(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return form.Definition{}, fmt.Errorf("open form definition: %w", err)
	}
	defer file.Close()
	return form.LoadDefinition(file)
}

// orchestratorOptions translates the configuration into pipeline options.
func orchestratorOptions(cfg *config.Config, logger *zap.Logger, kv draft.KV) ([]orchestrator.Option, error) {
	cal, err := rules.LoadCalendar(cfg.Calendar.Timezone, time.Now)
	if err != nil {
		return nil, err
	}
	def, err := loadDefinition(cfg.Form.Definition)
	if err != nil {
		return nil, err
	}
	docs, err := page.LoadDocuments(cfg.Documents.Terms, cfg.Documents.Privacy)
	if err != nil {
		return nil, err
	}
	acceptor, err := buildAcceptor(cfg)
	if err != nil {
		return nil, err
	}

	return []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithCalendar(cal),
		orchestrator.WithDefinition(def),
		orchestrator.WithKV(kv),
		orchestrator.WithDraftKey(cfg.Storage.Key),
		orchestrator.WithAcceptor(acceptor),
		orchestrator.WithBannerTTL(cfg.GetBannerTTL()),
		orchestrator.WithSessionOptions(
			session.WithAutosave(cfg.GetAutosave()),
			session.WithDebounce(cfg.GetDebounce()),
			session.WithResetDelay(cfg.GetResetDelay()),
		),
		orchestrator.WithPageOptions(
			page.WithTitle(cfg.Server.Title),
			page.WithBasePath(cfg.Server.BasePath),
			page.WithTheme(cfg.Theme.Name, cfg.Theme.Variant),
			page.WithDocuments(docs),
		),
		orchestrator.WithAPIOptions(openapi.WithBasePath(cfg.Server.BasePath)),
	}, nil
}

// openEnrollment builds and starts an enrollment from the configuration.
// The cleanup function closes the session and then the storage.
func openEnrollment(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...orchestrator.Option) (*orchestrator.Enrollment, func(), error) {
	kv, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := orchestratorOptions(cfg, logger, kv)
	if err != nil {
		_ = closeKV()
		return nil, nil, err
	}
	enr, err := orchestrator.New(append(opts, extra...)...).Open(ctx)
	if err != nil {
		_ = closeKV()
		return nil, nil, err
	}
	cleanup := func() {
		if err := enr.Close(); err != nil {
			logger.Warn("close session", zap.Error(err))
		}
		if err := closeKV(); err != nil {
			logger.Warn("close draft storage", zap.Error(err))
		}
	}
	if err := enr.Start(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return enr, cleanup, nil
}
