package publisher

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"auto_report_generator/config"
)

const (
	fileTimeLayout      = "20060102_1504"
	generatedTimeLayout = "January 02, 2006 at 15:04"
	descriptionLimit    = 160
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ExportParams describes one finished (or partial) document.
type ExportParams struct {
	Title    string
	Markdown string
	Time     time.Time
	// Partial marks a document cut short by the transition ceiling or an
	// error; a notice is written under the title.
	Partial bool
}

// ExportResult lists the files Export wrote.
type ExportResult struct {
	MarkdownPath string
	HTMLPath     string
}

// Publisher writes generated documents to the output directory.
type Publisher struct {
	cfg    config.OutputConfig
	logger *slog.Logger
}

func New(cfg config.OutputConfig, logger *slog.Logger) *Publisher {
	if cfg.Dir == "" {
		cfg.Dir = config.DefaultOutputDir
	}
	if cfg.Prefix == "" {
		cfg.Prefix = config.DefaultOutputPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, logger: logger.With("component", "publisher")}
}

// Export writes <prefix>_<YYYYMMDD_HHMM>.md and .html under the output
// directory.
func (p *Publisher) Export(params ExportParams) (ExportResult, error) {
	if strings.TrimSpace(params.Markdown) == "" {
		return ExportResult{}, errors.New("document is empty")
	}
	if params.Time.IsZero() {
		params.Time = time.Now()
	}
	if params.Title == "" {
		params.Title = p.cfg.Title
	}
	if err := os.MkdirAll(p.cfg.Dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("create output dir: %w", err)
	}

	md := Compose(params)
	body, err := RenderHTML(md)
	if err != nil {
		return ExportResult{}, fmt.Errorf("render html: %w", err)
	}

	base := filepath.Join(p.cfg.Dir, FileName(p.cfg.Prefix, params.Time))
	res := ExportResult{MarkdownPath: base + ".md", HTMLPath: base + ".html"}
	if err := os.WriteFile(res.MarkdownPath, []byte(md), 0o644); err != nil {
		return ExportResult{}, err
	}
	page := htmlPage(params.Title, Digest(params.Markdown, descriptionLimit), body)
	if err := os.WriteFile(res.HTMLPath, []byte(page), 0o644); err != nil {
		return ExportResult{}, err
	}
	p.logger.Info("document exported", "markdown", res.MarkdownPath, "html", res.HTMLPath,
		"sections", len(Sections(params.Markdown)), "partial", params.Partial)
	return res, nil
}

// FileName is the download name without extension.
func FileName(prefix string, t time.Time) string {
	return prefix + "_" + t.Format(fileTimeLayout)
}

// Compose prepends the title heading and generation line to the body.
func Compose(params ExportParams) string {
	var b strings.Builder
	if params.Title != "" {
		b.WriteString("# ")
		b.WriteString(params.Title)
		b.WriteString("\n\n")
	}
	b.WriteString("Generated: ")
	b.WriteString(params.Time.Format(generatedTimeLayout))
	b.WriteString("\n")
	if params.Partial {
		b.WriteString("\n> Generation incomplete: this document holds only the chapters finished before the run stopped.\n")
	}
	b.WriteString(params.Markdown)
	if !strings.HasSuffix(params.Markdown, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Sections returns the text of every level-2 heading in document order.
func Sections(md string) []string {
	src := []byte(md)
	doc := markdown.Parser().Parse(text.NewReader(src))
	var titles []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			if h.Level == 2 {
				titles = append(titles, strings.TrimSpace(nodeText(h, src)))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return titles
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(nodeText(c, src))
		}
	}
	return b.String()
}

// Digest compacts whitespace, drops bare heading markers and cuts the text
// to at most limit runes.
func Digest(md string, limit int) string {
	var words []string
	for _, w := range strings.Fields(md) {
		if strings.Trim(w, "#") == "" {
			continue
		}
		words = append(words, w)
	}
	joined := strings.Join(words, " ")
	runes := []rune(joined)
	if limit <= 0 || len(runes) <= limit {
		return joined
	}
	return string(runes[:limit])
}

func htmlPage(title, description, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<meta name="description" content="%s">
<style>body{max-width:48em;margin:2em auto;padding:0 1em;font-family:sans-serif;line-height:1.6}h2{margin-top:2em}</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), html.EscapeString(description), body)
}
