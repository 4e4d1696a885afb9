package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"auto_report_generator/config"
	"auto_report_generator/generator"
	"auto_report_generator/research"
	"auto_report_generator/workflow"
)

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// buildDriver wires config into the role registry, research, agent,
// engine and driver.
func buildDriver(cfg config.Config, factory generator.Factory, logger *slog.Logger) (*workflow.Driver, *generator.Registry, error) {
	registry, err := generator.NewRegistry(cfg, factory, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build role registry: %w", err)
	}

	var searcher generator.Searcher = research.Disabled{}
	if cfg.Search.SearchEnabled() {
		searcher = research.NewDuckDuckGo(research.Options{
			Endpoint:    cfg.Search.Endpoint,
			MaxResults:  cfg.Search.MaxResults,
			Timeout:     cfg.Search.Timeout,
			MinInterval: cfg.Search.MinInterval,
			Logger:      logger,
		})
	}

	agent, err := generator.NewAgent(registry, searcher, generator.Options{
		RequestedMax: cfg.Outline.RequestedMax,
		HardMax:      cfg.Outline.HardMax,
		PlanContext:  cfg.ContextLimits.Plan,
		DraftContext: cfg.ContextLimits.Draft,
		Synthesize:   cfg.Search.Synthesize,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}
	engine, err := workflow.NewEngine(agent, logger)
	if err != nil {
		return nil, nil, err
	}
	driver, err := workflow.NewDriver(engine, cfg.MaxTransitions, logger)
	if err != nil {
		return nil, nil, err
	}
	for role, model := range registry.Bindings() {
		logger.Info("role bound", "role", role, "model", model)
	}
	return driver, registry, nil
}

// loadContextFiles reads uploaded reference documents. Only plain text and
// markdown are accepted.
func loadContextFiles(paths []string) (string, error) {
	var parts []string
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".txt", ".md", ".markdown":
		default:
			return "", fmt.Errorf("context file %s: unsupported type (want .txt or .md)", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("read context file: %w", err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
