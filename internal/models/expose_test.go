package models

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestStableID(t *testing.T) {
	a := StableID("2xs4n5z")
	b := StableID("2xs4n5z")
	if a != b {
		t.Errorf("StableID not deterministic: %d != %d", a, b)
	}
	if a < 0 || a >= 1e16 {
		t.Errorf("StableID out of range: %d", a)
	}
	if a == StableID("2xs4n5y") {
		t.Error("distinct identifiers should not collide")
	}
}

func TestStableIDProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("deterministic and within 16 digits", prop.ForAll(
		func(id string) bool {
			v := StableID(id)
			return v == StableID(id) && v >= 0 && v < 1e16
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestFailedReference(t *testing.T) {
	ref := FailedReference()
	if ref.Resolved() {
		t.Error("failed reference must not report as resolved")
	}
	if ref.SqmPrice != PriceUnavailable || ref.Ratio != RatioUnavailable || ref.Address != "" {
		t.Errorf("unexpected sentinel triple: %+v", ref)
	}
}

func TestSummaryRow(t *testing.T) {
	e := &Expose{
		ID:            1234,
		Source:        "immowelt",
		URL:           "https://www.immowelt.de/expose/1234",
		Title:         "Wohnung",
		PriceValue:    1250,
		SizeValue:     62.5,
		Address:       "Berlin",
		SqmPrice:      20,
		RefSqmPrice:   16,
		RefAddress:    "Berlin (Mitte)",
		SqmPriceRatio: 1.25,
		CreatedAt:     time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),
	}

	row := e.SummaryRow()
	if len(row) != 13 {
		t.Fatalf("SummaryRow length = %d, want 13", len(row))
	}
	if row[0] != int64(1234) {
		t.Errorf("row[0] = %v, want id", row[0])
	}
	if row[1] != "2026-08-01 12:30:00" {
		t.Errorf("row[1] = %v, want formatted created time", row[1])
	}
	if row[12] != 1.25 {
		t.Errorf("row[12] = %v, want ratio", row[12])
	}
}

func TestExposeRoundTrip(t *testing.T) {
	e := &Expose{
		ID:        99,
		Source:    "kleinanzeigen",
		Title:     "Altbau",
		Details:   map[string]string{"tags": "Balkon"},
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	blob, err := e.MarshalDetails()
	if err != nil {
		t.Fatalf("MarshalDetails() error = %v", err)
	}
	got, err := UnmarshalExpose(blob)
	if err != nil {
		t.Fatalf("UnmarshalExpose() error = %v", err)
	}
	if got.ID != e.ID || got.Source != e.Source || got.Details["tags"] != "Balkon" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
