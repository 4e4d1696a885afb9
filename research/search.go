package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"auto_report_generator/generator"
)

const (
	DefaultEndpoint = "https://html.duckduckgo.com/html/"
	userAgent       = "Mozilla/5.0 (compatible; auto-report-generator/1.0)"
)

// Unavailable is the message returned when web search is switched off.
const Unavailable = "Web search is currently unavailable. Chapters will rely on model knowledge and uploaded context."

// ErrBlocked is reported when the backend answers with a bot challenge
// (HTTP 202) instead of results.
var ErrBlocked = errors.New("search backend served a challenge page")

// Result is one search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Options configures DuckDuckGo.
type Options struct {
	Endpoint    string
	MaxResults  int
	Timeout     time.Duration
	MinInterval time.Duration
	Client      *http.Client
	Logger      *slog.Logger
}

// DuckDuckGo searches the DuckDuckGo HTML endpoint. Failures are reported
// as text so a missing search backend never stops a run.
type DuckDuckGo struct {
	endpoint   string
	maxResults int
	client     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewDuckDuckGo(opts Options) *DuckDuckGo {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		opts.Client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DuckDuckGo{
		endpoint:   opts.Endpoint,
		maxResults: opts.MaxResults,
		client:     opts.Client,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With("component", "search"),
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) string {
	results, err := d.Fetch(ctx, query)
	if err != nil {
		d.logger.Error("web search failed", "query", query, "error", err)
		return "Search error: " + err.Error()
	}
	if len(results) == 0 {
		return generator.NoResults
	}
	return Format(results)
}

// Fetch runs one query and returns parsed results.
func (d *DuckDuckGo) Fetch(ctx context.Context, query string) ([]Result, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusAccepted {
		return nil, ErrBlocked
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search backend returned %d", resp.StatusCode)
	}
	return Parse(resp.Body, d.maxResults)
}

// Parse extracts up to max results from a DuckDuckGo HTML result page.
func Parse(r io.Reader, max int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var results []Result
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				if max > 0 && len(results) == max {
					return false
				}
				results = append(results, Result{
					Title: collapse(textOf(n)),
					URL:   resultURL(attr(n, "href")),
				})
				return true
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = collapse(textOf(n))
				}
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return results, nil
}

// Format renders results as title, snippet and URL blocks.
func Format(results []Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("%s\n%s\n%s\n", r.Title, r.Snippet, r.URL))
	}
	return strings.Join(blocks, "\n")
}

// resultURL unwraps DuckDuckGo's redirect links (/l/?uddg=<target>).
func resultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Disabled is the Searcher used when search is turned off in config.
type Disabled struct{}

func (Disabled) Search(context.Context, string) string { return Unavailable }
