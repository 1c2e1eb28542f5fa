package immowelt

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `
<html><body><main>
  <a id="2xs4n5z" href="https://www.immowelt.de/expose/2xs4n5z">
    <picture><source data-srcset="https://media.immowelt.org/abc.jpg 1x"></picture>
    <h2>Helle 3-Zimmer-Wohnung mit Balkon</h2>
    <div data-test="price">1.250 €</div>
    <div data-test="area">62,5 m²</div>
    <div data-test="rooms">3</div>
    <div class="css-IconFact"><span>Musterstraße 5, 10115 Berlin</span></div>
  </a>
  <a id="9abc123" href="https://www.immowelt.de/expose/9abc123">
    <h2>Kleines Apartment</h2>
    <div data-test="price">690 €</div>
    <div data-test="area">28 m²</div>
    <div data-test="rooms">1</div>
    <div class="css-IconFact"><span></span></div>
    <div class="css-IconFact"><span>Friedrichshain, Berlin</span></div>
  </a>
  <a href="https://www.immowelt.de/nav">Navigation link without id</a>
</main></body></html>`

func TestExtract(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPage))
	require.NoError(t, err)

	listings := extract(doc)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "2xs4n5z", first.SourceID)
	assert.Equal(t, SourceName, first.Source)
	assert.Equal(t, "https://www.immowelt.de/expose/2xs4n5z", first.URL)
	assert.Equal(t, "Helle 3-Zimmer-Wohnung mit Balkon", first.Title)
	assert.Equal(t, "1.250 €", first.Price)
	assert.Equal(t, "62,5 m²", first.Size)
	assert.Equal(t, "3", first.Rooms)
	assert.Equal(t, "Musterstraße 5, 10115 Berlin", first.Address)
	assert.Equal(t, "https://media.immowelt.org/abc.jpg 1x", first.Image)

	// The address falls back to the first non-empty fact span.
	second := listings[1]
	assert.Equal(t, "Friedrichshain, Berlin", second.Address)
	assert.Empty(t, second.Image)
}

func TestExtractEmptyPage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><main></main></body></html>"))
	require.NoError(t, err)

	assert.Empty(t, extract(doc))
}
