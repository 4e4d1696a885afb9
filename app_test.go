package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_report_generator/config"
	"auto_report_generator/publisher"
	"auto_report_generator/workflow"
)

const offlineConfig = `
log_level: debug
models:
  offline:
    provider: mock
roles:
  writer: offline
search:
  enabled: false
`

func TestBuildDriverOfflineRun(t *testing.T) {
	cfg, err := config.Parse([]byte(offlineConfig))
	require.NoError(t, err)

	logger := newLogger(io.Discard, cfg.LogLevel)
	driver, registry, err := buildDriver(cfg, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "offline", registry.Bindings()[config.RoleReviewer])

	var out bytes.Buffer
	res, err := driver.Run(context.Background(), workflow.Request{Topic: "EV adoption"}, newProgressPrinter(&out))
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeCompleted, res.Outcome)
	assert.Equal(t, []string{"Introduction", "Current Landscape", "Outlook"}, publisher.Sections(res.Document))
	assert.Contains(t, out.String(), "outline generated: 3 chapters")
	assert.Contains(t, out.String(), "completed")
}

func TestBuildDriverRejectsDistinctReviewWithoutSecondModel(t *testing.T) {
	cfg, err := config.Parse([]byte(offlineConfig + "review_policy: distinct\n"))
	require.NoError(t, err)
	_, _, err = buildDriver(cfg, nil, newLogger(io.Discard, "error"))
	assert.Error(t, err)
}

func TestLoadContextFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("  first doc \n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("second doc"), 0o644))

	got, err := loadContextFiles([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, "first doc\n\nsecond doc", got)

	_, err = loadContextFiles([]string{filepath.Join(dir, "report.pdf")})
	assert.ErrorContains(t, err, "unsupported type")

	_, err = loadContextFiles([]string{filepath.Join(dir, "missing.md")})
	assert.Error(t, err)

	got, err = loadContextFiles(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFormatEvent(t *testing.T) {
	line := formatEvent(workflow.Event{Stage: workflow.StageDraft, ChapterIndex: 1, ChapterCount: 4, ChapterTitle: "Batteries", Path: workflow.PathPlaceholder})
	assert.Contains(t, line, "[2/4] Batteries")
	assert.Contains(t, line, "(placeholder)")

	line = formatEvent(workflow.Event{Stage: workflow.StageReview, ChapterIndex: 2, ChapterCount: 4, ChapterTitle: "Batteries", Inserted: 12, Deleted: 3})
	assert.Contains(t, line, "[2/4] Batteries complete")
	assert.Contains(t, line, "+12/-3")

	line = formatEvent(workflow.Event{Stage: workflow.StageTerminate, Outcome: workflow.OutcomePartial, ChapterIndex: 2, ChapterCount: 4, DocumentLength: 900})
	assert.Contains(t, line, "partial: 2/4 chapters, 900 chars")
}
