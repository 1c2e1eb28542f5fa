// Package scraper defines the contract source-specific scrapers satisfy
// when handing listings to the core, plus shared fetch plumbing.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/flat-hunter/internal/models"
)

// userAgent keeps the sites serving us the same markup a browser gets.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Source produces raw listings from one website. Implementations own all
// site-specific HTML structure; the records they hand over conform to the
// RawListing field contract and nothing else.
type Source interface {
	Name() string
	FetchListings(ctx context.Context) ([]models.RawListing, error)
}

// NewHTTPClient returns the client scrapers share settings for.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// FetchDocument fetches a page and parses it into a goquery document.
func FetchDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
