package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"auto_report_generator/config"
	"auto_report_generator/publisher"
	"auto_report_generator/workflow"
)

type generateFlags struct {
	topic          string
	contextFiles   []string
	outDir         string
	title          string
	maxTransitions int
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one report and export it as markdown and HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.topic, "topic", "", "report topic")
	cmd.Flags().StringSliceVar(&f.contextFiles, "context", nil, "reference documents (.txt or .md), repeatable")
	cmd.Flags().StringVar(&f.outDir, "out", "", "output directory (overrides output.dir)")
	cmd.Flags().StringVar(&f.title, "title", "", "document title (defaults to output.title, then the topic)")
	cmd.Flags().IntVar(&f.maxTransitions, "max-transitions", 0, "stage execution ceiling (overrides max_transitions)")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func runGenerate(cmd *cobra.Command, f generateFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	uploaded, err := loadContextFiles(f.contextFiles)
	if err != nil {
		return err
	}
	driver, _, err := buildDriver(cfg, nil, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := driver.Run(ctx, workflow.Request{
		Topic:           f.topic,
		UploadedContext: uploaded,
		MaxTransitions:  f.maxTransitions,
	}, newProgressPrinter(cmd.ErrOrStderr()))

	out := cfg.Output
	if f.outDir != "" {
		out.Dir = f.outDir
	}
	title := f.title
	if title == "" {
		title = out.Title
	}
	if title == "" {
		title = f.topic
	}

	if res.Usable() {
		exported, err := publisher.New(out, logger).Export(publisher.ExportParams{
			Title:    title,
			Markdown: res.Document,
			Time:     time.Now(),
			Partial:  res.Outcome != workflow.OutcomeCompleted,
		})
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), exported.MarkdownPath)
		fmt.Fprintln(cmd.OutOrStdout(), exported.HTMLPath)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), res.Summary())
	return runErr
}
