// Package kleinanzeigen extracts listings from kleinanzeigen.de search
// result pages. The result list carries no address, so each listing's
// detail page is fetched for locality and street.
package kleinanzeigen

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/models"
	"github.com/flat-hunter/internal/scraper"
)

// SourceName tags listings produced by this scraper.
const SourceName = "kleinanzeigen"

const baseURL = "https://www.kleinanzeigen.de"

var leadingNumber = regexp.MustCompile(`^\d+`)

// Scraper implements scraper.Source for kleinanzeigen.de.
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

// FetchListings loads the search page, extracts every ad card and fills in
// each listing's address from its detail page. A failed detail fetch
// leaves the address empty; enrichment then degrades to the sentinel for
// that listing instead of dropping it.
func (s *Scraper) FetchListings(ctx context.Context) ([]models.RawListing, error) {
	doc, err := scraper.FetchDocument(ctx, s.client, s.searchURL)
	if err != nil {
		return nil, err
	}

	listings := extract(doc)
	for i := range listings {
		address, err := s.loadAddress(ctx, listings[i].URL)
		if err != nil {
			s.log.WithError(err).WithField("url", listings[i].URL).
				Warn("could not load listing address")
			continue
		}
		listings[i].Address = address
	}

	s.log.WithField("count", len(listings)).Debug("kleinanzeigen listings extracted")
	return listings, nil
}

func extract(doc *goquery.Document) []models.RawListing {
	var listings []models.RawListing

	doc.Find("#srchrslt-adtable article.aditem").Each(func(_ int, card *goquery.Selection) {
		sourceID := card.AttrOr("data-adid", "")
		link := card.Find("a.ellipsis").First()
		href := link.AttrOr("href", "")
		if sourceID == "" || href == "" {
			return
		}

		listing := models.RawListing{
			SourceID: sourceID,
			Source:   SourceName,
			URL:      baseURL + href,
			Title:    strings.TrimSpace(link.Text()),
			Price:    strings.TrimSpace(card.Find(".aditem-main--middle--price-shipping--price").First().Text()),
		}

		// First tag is the living area, second the room count.
		tags := card.Find(".simpletag.tag-small")
		if tags.Length() > 0 {
			listing.Size = strings.TrimSpace(tags.Eq(0).Text())
		}
		if tags.Length() > 1 {
			listing.Rooms = leadingNumber.FindString(strings.TrimSpace(tags.Eq(1).Text()))
		}

		if img, ok := card.Find("div.galleryimage-element").First().Attr("data-imgsrc"); ok {
			listing.Image = img
		}

		listings = append(listings, listing)
	})

	return listings
}

// loadAddress pulls locality and street off the listing detail page.
func (s *Scraper) loadAddress(ctx context.Context, url string) (string, error) {
	doc, err := scraper.FetchDocument(ctx, s.client, url)
	if err != nil {
		return "", err
	}

	locality := strings.TrimSpace(doc.Find("#viewad-locality").First().Text())
	street := strings.TrimSpace(doc.Find("#street-address").First().Text())
	return strings.TrimSpace(locality + " " + street), nil
}
