package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/security"
)

const (
	// DefaultSearchBaseURL is the HTML (non-JS) DuckDuckGo endpoint.
	DefaultSearchBaseURL = "https://html.duckduckgo.com/html"

	// DefaultFetchMaxBytes bounds a retrieved response body.
	DefaultFetchMaxBytes = 10 << 20

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

// supported image and document formats; anything else falls back to
// jpeg / txt respectively.
var (
	imageFormats    = map[string]bool{"jpeg": true, "png": true, "gif": true, "webp": true}
	documentFormats = map[string]bool{"pdf": true, "csv": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "html": true, "md": true}
)

// WebConfig tunes the web tools.
type WebConfig struct {
	SearchBaseURL string
	MaxResults    int
	FetchTimeout  time.Duration
	FetchMaxBytes int64

	// Guard validates outbound URLs. Defaults to the strict validator;
	// tests inject one that allows loopback.
	Guard *security.URLValidator
}

func (c *WebConfig) applyDefaults() {
	if c.SearchBaseURL == "" {
		c.SearchBaseURL = DefaultSearchBaseURL
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 10
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.FetchMaxBytes <= 0 {
		c.FetchMaxBytes = DefaultFetchMaxBytes
	}
	if c.Guard == nil {
		c.Guard = security.NewURLValidator()
	}
}

// WebClient backs the search_web and retrieve_url tools.
// A single rate limiter covers searches across concurrent conversations so
// the bot stays a polite scraper.
type WebClient struct {
	httpClient *http.Client
	cfg        WebConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewWebClient creates a web client. All outbound requests go through the
// guard's transport so model-chosen URLs cannot reach private networks,
// even via DNS rebinding or redirects.
func NewWebClient(cfg WebConfig, logger *slog.Logger) *WebClient {
	cfg.applyDefaults()
	return &WebClient{
		httpClient: &http.Client{
			Timeout:       cfg.FetchTimeout,
			Transport:     cfg.Guard.Transport(),
			CheckRedirect: cfg.Guard.CheckRedirect,
		},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		logger:  logger,
	}
}

// SearchInput is the argument schema for search_web.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The query to search the web for."`
}

// RetrieveInput is the argument schema for retrieve_url.
type RetrieveInput struct {
	URL string `json:"url" jsonschema:"The URL to retrieve content from. Do not make up any URLs."`
}

// SearchResult is one web hit as surfaced to the model.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"href"`
	Snippet string `json:"body"`
}

// SearchTool returns the search_web tool.
func (w *WebClient) SearchTool() *Tool {
	return mustTool(NewTool(
		"search_web",
		"Search the web with DuckDuckGo for information.",
		w.search,
	))
}

// RetrieveTool returns the retrieve_url tool.
func (w *WebClient) RetrieveTool() *Tool {
	return mustTool(NewTool(
		"retrieve_url",
		`Retrieve the content of a URL. Preferably use with "search_web".`,
		w.retrieve,
	))
}

func (w *WebClient) search(ctx context.Context, input SearchInput) ([]llm.ContentBlock, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for search slot: %w", err)
	}

	form := url.Values{"q": {input.Query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.SearchBaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching the web: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	results, err := parseSearchResults(io.LimitReader(resp.Body, w.cfg.FetchMaxBytes), w.cfg.MaxResults)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("web search completed", "query", input.Query, "results", len(results))

	return []llm.ContentBlock{llm.NewJSONBlock(map[string]any{"results": results})}, nil
}

// parseSearchResults extracts hits from a DuckDuckGo HTML results page.
func parseSearchResults(r io.Reader, maxResults int) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	results := make([]SearchResult, 0, maxResults)
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		anchor := sel.Find(".result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		results = append(results, SearchResult{
			Title:   strings.TrimSpace(anchor.Text()),
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(results) < maxResults
	})
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func (w *WebClient) retrieve(ctx context.Context, input RetrieveInput) ([]llm.ContentBlock, error) {
	if err := w.cfg.Guard.Validate(input.URL); err != nil {
		return nil, fmt.Errorf("refusing to retrieve %s: %w", input.URL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", input.URL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieving %s: %w", input.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.cfg.FetchMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", input.URL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, parseErr := mime.ParseMediaType(contentType); parseErr == nil {
		contentType = mediaType
	}
	w.logger.Debug("url retrieved", "url", input.URL, "content_type", contentType, "bytes", len(body))

	return []llm.ContentBlock{classifyContent(contentType, body)}, nil
}

// classifyContent maps a response body onto the content block the model can
// consume: images stay images, JSON becomes text, other textual or
// application types become documents and everything else is dumped as text
// with its content type named.
func classifyContent(contentType string, body []byte) llm.ContentBlock {
	primary, secondary, _ := strings.Cut(contentType, "/")

	switch {
	case primary == "image":
		format := secondary
		if !imageFormats[format] {
			format = "jpeg"
		}
		return llm.NewImageBlock(format, body)

	case contentType == "application/json":
		return llm.NewTextBlock(string(body))

	case primary == "text" || primary == "application":
		format := secondary
		if !documentFormats[format] {
			format = "txt"
		}
		return llm.NewDocumentBlock(format, "document", body)

	default:
		return llm.NewTextBlock(fmt.Sprintf("Content-Type: %s\nContent:\n%s", contentType, body))
	}
}
