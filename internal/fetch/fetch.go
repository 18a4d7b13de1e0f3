// Package fetch pulls readable text from web pages so a person's public
// profile pages can be folded into their submission history.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"personad/pkg/derrors"
)

const (
	// perURLTimeout bounds each individual fetch.
	perURLTimeout = 10 * time.Second
	// maxBodyBytes caps how much of one response body is read.
	maxBodyBytes = 1 << 20
	// separator joins per-URL texts into one submission document.
	separator = "\n\n---\n\n"
	// maxConcurrent bounds parallel fetches.
	maxConcurrent = 4
)

// Fetcher retrieves URLs concurrently and reduces HTML to plain text.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// New constructs a fetcher with its own HTTP client. Per-URL deadlines come
// from context, not the client, so one slow URL cannot consume the budget of
// the others.
func New(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{},
		logger: logger,
	}
}

// Fetch retrieves all URLs and joins their extracted text in input order.
// Any single failure fails the whole fetch: a partially sourced submission
// would silently skew the derived profile.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) (string, error) {
	for _, raw := range urls {
		if err := validateURL(raw); err != nil {
			return "", err
		}
	}

	texts := make([]string, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, raw := range urls {
		g.Go(func() error {
			text, err := f.fetchOne(ctx, raw)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	nonEmpty := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return "", derrors.New(derrors.CodeValidation, "fetched pages contained no readable text")
	}
	return strings.Join(nonEmpty, separator), nil
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, perURLTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeBadRequest, "invalid url: "+rawURL)
	}
	req.Header.Set("Accept", "text/html, text/plain")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeBadRequest, "failed to fetch "+rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", derrors.Newf(derrors.CodeBadRequest, "fetching %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeBadRequest, "failed to read "+rawURL)
	}

	f.logger.DebugContext(ctx, "fetched url",
		"url", rawURL,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		return extractText(string(body)), nil
	}
	return strings.TrimSpace(string(body)), nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeBadRequest, "invalid url: "+raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return derrors.Newf(derrors.CodeBadRequest, "unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return derrors.New(derrors.CodeBadRequest, "url missing host: "+raw)
	}
	return nil
}

// extractText walks the HTML tree collecting text nodes, skipping script and
// style subtrees, and collapsing runs of whitespace.
func extractText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		// html.Parse is extremely tolerant; on the rare failure fall back to
		// the raw bytes rather than dropping the page.
		return strings.TrimSpace(page)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
