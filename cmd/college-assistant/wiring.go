package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joelkehle/college-assistant/internal/collegesearch"
	"github.com/joelkehle/college-assistant/internal/roster"
	"github.com/joelkehle/college-assistant/internal/telemetry"
	"go.uber.org/zap"
)

// buildPipeline wires the configured components. The returned cleanup closes
// the roster database, if one was opened.
func (a *app) buildPipeline(ctx context.Context) (*collegesearch.Pipeline, func(), error) {
	cfg := a.cfg
	cleanup := func() {}

	extractor, err := collegesearch.NewNameExtractor(cfg.ExtractorConfig())
	if err != nil {
		return nil, cleanup, err
	}
	caller, err := collegesearch.NewLLMCaller(ctx, cfg.LLMCallerConfig())
	if err != nil {
		return nil, cleanup, &collegesearch.ConfigError{Field: "llm", Err: err}
	}
	interpreter := collegesearch.NewInterpreter(caller, extractor, cfg.InterpreterConfig(), a.log.Named("interpret"))

	scorer, err := collegesearch.ScorerByName(cfg.Resolve.Scorer)
	if err != nil {
		return nil, cleanup, err
	}
	resolver, err := collegesearch.NewResolver(scorer, cfg.Resolve.Threshold)
	if err != nil {
		return nil, cleanup, err
	}

	var provider collegesearch.RosterProvider
	switch {
	case strings.TrimSpace(cfg.Roster.CSV) != "":
		provider = roster.NewFileSource(cfg.Roster.CSV, cfg.Roster.Columns)
		a.log.Debug("roster_source", zap.String("csv", cfg.Roster.CSV))
	case strings.TrimSpace(cfg.Roster.DB) != "":
		store, err := roster.OpenStore(cfg.Roster.DB)
		if err != nil {
			return nil, cleanup, fmt.Errorf("roster store %s: %w", cfg.Roster.DB, err)
		}
		cleanup = func() { _ = store.Close() }
		provider = store
		a.log.Debug("roster_source", zap.String("db", cfg.Roster.DB))
	}

	var searcher collegesearch.SearchRunner
	s, err := collegesearch.NewSearcher(collegesearch.SearchConfig{
		APIKey:  cfg.Scorecard.APIKey,
		BaseURL: cfg.Scorecard.BaseURL,
		PerPage: cfg.Scorecard.PerPage,
		Timeout: cfg.Scorecard.Timeout,
		Logger:  a.log.Named("scorecard"),
	})
	var cfgErr *collegesearch.ConfigError
	switch {
	case err == nil:
		searcher = s
	case errors.As(err, &cfgErr):
		a.log.Warn("scorecard_disabled", zap.Error(err))
	default:
		cleanup()
		return nil, func() {}, err
	}

	p := collegesearch.NewPipeline(collegesearch.NewFilter(cfg.Filter.Denylist), interpreter, resolver, provider, searcher, a.log.Named("pipeline"))
	if err := p.ValidateConfig(); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return p, cleanup, nil
}

func (a *app) startTelemetry(ctx context.Context) telemetry.ShutdownFunc {
	shutdown, err := telemetry.Setup(ctx, a.cfg.Telemetry.Endpoint, a.cfg.Telemetry.ServiceName)
	if err != nil {
		a.log.Warn("telemetry_disabled", zap.Error(err))
		return func(context.Context) error { return nil }
	}
	return shutdown
}
