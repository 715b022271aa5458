// Package preview resolves the title shown in a link preview.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// ErrNoTitle is returned when a page was fetched but carries no title.
var ErrNoTitle = errors.New("page has no title")

const maxBody = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver downloads linked pages and extracts their titles.
type Resolver struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Resolver with the given HTTP client.
func New(client HTTPClient) *Resolver {
	return &Resolver{
		client:  client,
		timeout: 10 * time.Second,
	}
}

// Title fetches url and returns its title. Feeds use the channel title;
// HTML pages use og:title, then <title>.
func (r *Resolver) Title(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "telegram2org/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var title string
	if gofeed.DetectFeedType(bytes.NewReader(body)) != gofeed.FeedTypeUnknown {
		title, err = feedTitle(body)
	} else {
		title, err = htmlTitle(body)
	}
	if err != nil {
		return "", err
	}
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

func feedTitle(body []byte) (string, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}
	return strings.TrimSpace(feed.Title), nil
}

func htmlTitle(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if og := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); og != "" {
		return og, nil
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}
