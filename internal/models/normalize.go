package models

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/flat-hunter/internal/errors"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:,\d+)?`)

// ParseGermanNumber parses a numeric value out of German-formatted listing
// text such as "369.004 €", "127,02 m²" or "1.250 € VB". Thousands dots are
// stripped, the decimal comma becomes a point, surrounding units are
// ignored. Returns a ParseError when no number is present.
func ParseGermanNumber(field, raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	match := numberPattern.FindString(cleaned)
	if match == "" {
		return ValueUnavailable, apperrors.NewParseError(field, raw)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return ValueUnavailable, apperrors.NewParseError(field, raw)
	}
	return value, nil
}

// SqmPrice derives the rounded price per square meter, or PriceUnavailable
// when either input is missing or non-positive.
func SqmPrice(price, size float64) int {
	if price <= 0 || size <= 0 {
		return PriceUnavailable
	}
	return int(math.Round(price / size))
}

// PriceRatio computes listing-vs-reference price-per-sqm rounded to three
// decimals, or RatioUnavailable when either side is a sentinel.
func PriceRatio(sqmPrice, refSqmPrice int) float64 {
	if sqmPrice <= 0 || refSqmPrice <= 0 {
		return RatioUnavailable
	}
	return math.Round(float64(sqmPrice)/float64(refSqmPrice)*1000) / 1000
}

// Normalize turns a raw listing into an expose with parsed numeric fields
// and the derived price per square meter. Parse failures degrade to
// sentinel values; the returned error reports the first failed field and
// never prevents using the expose.
func Normalize(raw RawListing) (*Expose, error) {
	e := &Expose{
		ID:            StableID(raw.SourceID),
		Source:        raw.Source,
		URL:           raw.URL,
		Title:         raw.Title,
		Image:         raw.Image,
		Address:       strings.TrimSpace(raw.Address),
		Rooms:         raw.Rooms,
		Price:         raw.Price,
		Size:          raw.Size,
		RefSqmPrice:   PriceUnavailable,
		RefAddress:    "",
		SqmPriceRatio: RatioUnavailable,
		Details:       raw.Details,
	}

	var firstErr error
	var err error

	e.PriceValue, err = ParseGermanNumber("price", raw.Price)
	if err != nil {
		firstErr = err
	}
	e.SizeValue, err = ParseGermanNumber("size", raw.Size)
	if err != nil && firstErr == nil {
		firstErr = err
	}

	e.SqmPrice = SqmPrice(e.PriceValue, e.SizeValue)
	return e, firstErr
}
