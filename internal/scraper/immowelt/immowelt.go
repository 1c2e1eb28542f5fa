// Package immowelt extracts listings from immowelt.de search result pages.
package immowelt

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
	"github.com/flat-hunter/internal/scraper"
)

// SourceName tags listings produced by this scraper.
const SourceName = "immowelt"

// Scraper implements scraper.Source for immowelt.de.
type Scraper struct {
	searchURL string
	client    *http.Client
	log       *logging.Logger
}

// New creates a scraper for one search result URL.
func New(searchURL string, log *logging.Logger) *Scraper {
	return &Scraper{
		searchURL: searchURL,
		client:    scraper.NewHTTPClient(),
		log:       log,
	}
}

// Name implements scraper.Source.
func (s *Scraper) Name() string { return SourceName }

// FetchListings loads the search page and extracts every listing card.
func (s *Scraper) FetchListings(ctx context.Context) ([]models.RawListing, error) {
	doc, err := scraper.FetchDocument(ctx, s.client, s.searchURL)
	if err != nil {
		return nil, err
	}

	listings := extract(doc)
	s.log.WithField("count", len(listings)).Debug("immowelt listings extracted")
	return listings, nil
}

// extract walks the result cards. Each card is an anchor carrying the
// listing id, with data-test attributes on the fact cells.
func extract(doc *goquery.Document) []models.RawListing {
	var listings []models.RawListing

	doc.Find("main a[id]").Each(func(_ int, card *goquery.Selection) {
		sourceID := card.AttrOr("id", "")
		url := card.AttrOr("href", "")
		if sourceID == "" || url == "" {
			return
		}

		listing := models.RawListing{
			SourceID: sourceID,
			Source:   SourceName,
			URL:      url,
			Title:    strings.TrimSpace(card.Find("h2").First().Text()),
			Price:    strings.TrimSpace(card.Find(`div[data-test="price"]`).First().Text()),
			Size:     strings.TrimSpace(card.Find(`div[data-test="area"]`).First().Text()),
			Rooms:    strings.TrimSpace(card.Find(`div[data-test="rooms"]`).First().Text()),
			Address:  extractAddress(card),
		}

		if src, ok := card.Find("picture source").First().Attr("data-srcset"); ok {
			listing.Image = src
		}

		listings = append(listings, listing)
	})

	return listings
}

func extractAddress(card *goquery.Selection) string {
	var address string
	card.Find("div[class*='IconFact']").EachWithBreak(func(_ int, fact *goquery.Selection) bool {
		if text := strings.TrimSpace(fact.Find("span").First().Text()); text != "" {
			address = text
			return false
		}
		return true
	})
	return address
}
