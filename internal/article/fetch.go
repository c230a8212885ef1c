package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrUnsupportedScheme = errors.New("url scheme must be http or https")
	ErrUnsupportedType   = errors.New("page is neither HTML nor plain text")
	ErrNoReadableText    = errors.New("no readable text found on page")
)

// Fetcher downloads a web page and extracts its readable text.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch retrieves rawURL and returns the extracted article text. HTML pages
// are reduced to headline and paragraph text; plain text responses pass
// through unchanged. Reads are capped at maxBytes.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrUnsupportedScheme
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html, text/plain")
	req.Header.Set("User-Agent", "news-reframer/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, parsed.Host)
	}

	contentType := resp.Header.Get("Content-Type")
	body := io.LimitReader(resp.Body, f.maxBytes)

	switch {
	case strings.Contains(contentType, "text/plain"):
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", ErrNoReadableText
		}
		return text, nil
	case strings.Contains(contentType, "text/html"), contentType == "":
		return extractHTML(body)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

// extractHTML pulls the headline and paragraph text out of an HTML document,
// dropping script, style and navigation chrome.
func extractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	var parts []string
	if headline := strings.TrimSpace(doc.Find("h1").First().Text()); headline != "" {
		parts = append(parts, headline)
	}

	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) == 0 {
		// Pages without <p> markup still often carry article text in the body.
		if text := collapseWhitespace(doc.Find("body").Text()); text != "" {
			return text, nil
		}
		return "", ErrNoReadableText
	}

	return strings.Join(parts, "\n\n"), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
