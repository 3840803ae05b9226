package market

import (
	"reflect"
	"testing"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

func TestMergeLinesExistingWins(t *testing.T) {
	existing := []models.MarketLine{
		{Line: "0/0.5", WType: "R", HomeOdds: "0.87", AwayOdds: "0.95"},
	}
	incoming := []models.MarketLine{
		{Line: "0/0.5", WType: "R", HomeOdds: "0.99", AwayOdds: "0.80"},
	}
	merged := MergeLines(existing, incoming)
	if len(merged) != 1 {
		t.Fatalf("expected 1 line, got %d", len(merged))
	}
	if merged[0].HomeOdds != "0.87" || merged[0].AwayOdds != "0.95" {
		t.Errorf("existing prices regressed: %+v", merged[0])
	}
}

func TestMergeLinesFillsAbsentFields(t *testing.T) {
	existing := []models.MarketLine{
		{Line: "0/0.5", WType: "R", HomeOdds: "0.87", AwayOdds: "0.00"},
	}
	incoming := []models.MarketLine{
		{Line: "0/0.5", WType: "R", HomeOdds: "0.85", AwayOdds: "0.95",
			HomeRType: "RH", AwayRType: "RC", HomeChoseTeam: "H", AwayChoseTeam: "C"},
	}
	merged := MergeLines(existing, incoming)
	got := merged[0]
	if got.HomeOdds != "0.87" {
		t.Errorf("populated home price overwritten: %q", got.HomeOdds)
	}
	if got.AwayOdds != "0.95" {
		t.Errorf("sentinel away price not refined: %q", got.AwayOdds)
	}
	if got.HomeRType != "RH" || got.AwayChoseTeam != "C" {
		t.Errorf("routing metadata not filled: %+v", got)
	}
}

func TestMergeLinesAppendsIncomingOnly(t *testing.T) {
	existing := []models.MarketLine{
		{Line: "0/0.5", WType: "R", HomeOdds: "0.87", AwayOdds: "0.95"},
	}
	incoming := []models.MarketLine{
		{Line: "0.5", WType: "R", HomeOdds: "0.70", AwayOdds: "1.12"},
		{Line: "2.5", WType: "OU", HomeOdds: "0.90", AwayOdds: "0.90"},
	}
	merged := MergeLines(existing, incoming)
	if len(merged) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(merged))
	}
	if merged[0].Line != "0/0.5" {
		t.Errorf("primary-poll line lost its position: %+v", merged[0])
	}
}

func TestMergeLinesNeverDropsPrimary(t *testing.T) {
	existing := []models.MarketLine{
		{Line: "0", WType: "R", HomeOdds: "0.95", AwayOdds: "0.95"},
		{Line: "0.5", WType: "R", HomeOdds: "0.80", AwayOdds: "1.05"},
	}
	merged := MergeLines(existing, nil)
	if len(merged) != 2 {
		t.Errorf("merge with empty incoming dropped lines: %d", len(merged))
	}
}

func TestMergeLinesIdempotent(t *testing.T) {
	a := []models.MarketLine{
		{Line: "0/0.5", WType: "R", HomeOdds: "0.87", AwayOdds: ""},
	}
	b := []models.MarketLine{
		{Line: "0/0.5", WType: "R", HomeOdds: "0.85", AwayOdds: "0.95", HomeRType: "RH"},
		{Line: "1", WType: "R", HomeOdds: "0.60", AwayOdds: "1.30"},
	}
	once := MergeLines(a, b)
	twice := MergeLines(once, b)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
