package kleinanzeigen

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `
<html><body>
<ul id="srchrslt-adtable">
  <li>
    <article class="aditem" data-adid="2612312345">
      <div class="galleryimage-element" data-imgsrc="https://img.kleinanzeigen.de/abc.jpg"></div>
      <div class="aditem-main--middle">
        <a class="ellipsis" href="/s-anzeige/altbauwohnung/2612312345-203-3331">Schöne Altbauwohnung</a>
        <p class="aditem-main--middle--price-shipping--price">950 € VB</p>
        <span class="simpletag tag-small">68 m²</span>
        <span class="simpletag tag-small">2,5 Zimmer</span>
      </div>
    </article>
  </li>
  <li>
    <article class="aditem" data-adid="">
      <a class="ellipsis" href="/s-anzeige/ohne-id">Karte ohne id</a>
    </article>
  </li>
</ul>
</body></html>`

func TestExtract(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPage))
	require.NoError(t, err)

	listings := extract(doc)
	require.Len(t, listings, 1)

	l := listings[0]
	assert.Equal(t, "2612312345", l.SourceID)
	assert.Equal(t, SourceName, l.Source)
	assert.Equal(t, baseURL+"/s-anzeige/altbauwohnung/2612312345-203-3331", l.URL)
	assert.Equal(t, "Schöne Altbauwohnung", l.Title)
	assert.Equal(t, "950 € VB", l.Price)
	assert.Equal(t, "68 m²", l.Size)
	assert.Equal(t, "2", l.Rooms, "room count keeps only the leading number")
	assert.Equal(t, "https://img.kleinanzeigen.de/abc.jpg", l.Image)
	assert.Empty(t, l.Address, "address comes from the detail page, not the result list")
}

func TestExtractNoResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)

	assert.Empty(t, extract(doc))
}
