// Package models defines the listing records flowing through the hunting
// pipeline and the sentinel constants marking unavailable values.
package models

import (
	"crypto/sha256"
	"encoding/json"
	"math/big"
	"time"
)

// Sentinel values marking "unavailable / failed", distinct from a real zero.
const (
	// PriceUnavailable marks a missing or failed price-per-sqm value.
	PriceUnavailable = -1
	// RatioUnavailable marks a missing or failed price ratio.
	RatioUnavailable = -1.0
	// ValueUnavailable marks a missing parsed numeric field.
	ValueUnavailable = -1.0
)

// RawListing is what a source scraper hands the pipeline: site-extracted
// fields, not yet normalized and never persisted directly.
type RawListing struct {
	// SourceID is the source-native listing identifier, opaque to the core.
	SourceID string
	// Source tags the scraper that produced the listing. Identifiers are
	// only unique within one source.
	Source  string
	URL     string
	Title   string
	Image   string
	Address string
	Rooms   string
	// Price and Size keep the site's raw text alongside any parsed value
	// the scraper already derived. Zero values mean "not parsed yet".
	Price string
	Size  string
	// Details carries listing-specific fields (move-in date, tags) that do
	// not warrant their own column.
	Details map[string]string
}

// Expose is the enriched, durable listing record keyed by (ID, Source).
//
// The reference fields (RefSqmPrice, RefAddress, SqmPriceRatio) are written
// once, from a single resolver invocation; later re-saves of the row update
// the listing fields but never silently refresh a previously computed
// reference price.
type Expose struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`

	URL     string `json:"url"`
	Title   string `json:"title"`
	Image   string `json:"image,omitempty"`
	Address string `json:"address"`
	Rooms   string `json:"rooms,omitempty"`

	Price      string  `json:"price"`
	PriceValue float64 `json:"price_value"`
	Size       string  `json:"size"`
	SizeValue  float64 `json:"size_value"`

	// SqmPrice is the listing's own price per square meter, rounded.
	SqmPrice int `json:"sqm_price"`

	// RefSqmPrice is the comparable market price per square meter for the
	// resolved reference address, or PriceUnavailable.
	RefSqmPrice int `json:"ref_sqm_price"`
	// RefAddress is the address the market-data site resolved the listing
	// address to, or "" when resolution failed.
	RefAddress string `json:"ref_address"`
	// SqmPriceRatio is SqmPrice / RefSqmPrice rounded to three decimals,
	// or RatioUnavailable.
	SqmPriceRatio float64 `json:"sqm_price_ratio"`

	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Reference is the enrichment triple the cache manager produces for one
// listing.
type Reference struct {
	SqmPrice int
	Address  string
	Ratio    float64
}

// FailedReference is the sentinel triple for a failed or skipped resolution.
func FailedReference() Reference {
	return Reference{SqmPrice: PriceUnavailable, Address: "", Ratio: RatioUnavailable}
}

// Resolved reports whether the reference carries real market data.
func (r Reference) Resolved() bool {
	return r.SqmPrice > 0 && r.Address != ""
}

// SummaryRow flattens an expose into the column order the export sink
// appends: one row per newly admitted listing.
func (e *Expose) SummaryRow() []interface{} {
	return []interface{}{
		e.ID,
		e.CreatedAt.Format("2006-01-02 15:04:05"),
		e.Source,
		e.Title,
		e.URL,
		e.Image,
		e.PriceValue,
		e.SizeValue,
		e.Address,
		e.SqmPrice,
		e.RefSqmPrice,
		e.RefAddress,
		e.SqmPriceRatio,
	}
}

// MarshalDetails serializes the full expose for the store's blob column.
func (e *Expose) MarshalDetails() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalExpose decodes a stored details blob.
func UnmarshalExpose(blob []byte) (*Expose, error) {
	var e Expose
	if err := json.Unmarshal(blob, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// stableIDMod keeps derived identifiers within 16 decimal digits so they
// survive every integer column and spreadsheet cell they pass through.
var stableIDMod = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)

// StableID derives a durable integer identifier from a source-native string
// id. The same input always produces the same identifier, and distinct
// listings from one source never collide within the store's retention
// window in practice.
func StableID(sourceID string) int64 {
	sum := sha256.Sum256([]byte(sourceID))
	n := new(big.Int).SetBytes(sum[:])
	return n.Mod(n, stableIDMod).Int64()
}
