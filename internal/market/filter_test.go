package market

import (
	"testing"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

func hdpLine(line, home, away, wtype string) models.MarketLine {
	return models.MarketLine{Line: line, HomeOdds: home, AwayOdds: away, WType: wtype}
}

func TestFilterMarketsWhitelist(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.Handicap.Lines = []models.MarketLine{
		hdpLine("0/0.5", "0.87", "0.95", "R"),
		hdpLine("1", "0.80", "1.02", "HR"),     // half-scope code in the full list: dropped
		hdpLine("-0.5", "0.91", "0.91", "RE"),  // in-play variant of the family: kept
		hdpLine("2", "", "0.00", ""),           // untyped, no real price: dropped
		hdpLine("0.5", "0.85", "", ""),         // untyped but priced: kept provisionally
	}
	FilterMarkets(snap)

	got := snap.Markets.Full.Handicap.Lines
	if len(got) != 3 {
		t.Fatalf("expected 3 surviving lines, got %d: %+v", len(got), got)
	}
	for _, l := range got {
		if l.WType == "HR" {
			t.Errorf("half-scope wtype survived full-scope filtering: %+v", l)
		}
		if l.Line == "2" {
			t.Errorf("priceless untyped line survived: %+v", l)
		}
	}
}

func TestFilterMarketsHandicapSortedByAbs(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.Handicap.Lines = []models.MarketLine{
		hdpLine("-1", "0.90", "0.92", "R"),
		hdpLine("0/0.5", "0.87", "0.95", "R"),
		hdpLine("0.5/1", "0.80", "1.02", "R"),
	}
	FilterMarkets(snap)

	got := snap.Markets.Full.Handicap.Lines
	wantOrder := []string{"0/0.5", "0.5/1", "-1"} // |0.25| < |0.75| < |1|
	for i, want := range wantOrder {
		if got[i].Line != want {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Line, want)
		}
	}
	cur := snap.Markets.Full.Handicap.Current
	if cur == nil || cur.Line != "0/0.5" {
		t.Errorf("current shorthand not refreshed to first survivor: %+v", cur)
	}
}

func TestFilterMarketsOverUnderSortedSigned(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.OverUnder.Lines = []models.MarketLine{
		hdpLine("3", "0.85", "0.95", "OU"),
		hdpLine("2/2.5", "0.92", "0.88", "OU"),
		hdpLine("2.5", "0.90", "0.90", "OU"),
	}
	FilterMarkets(snap)

	got := snap.Markets.Full.OverUnder.Lines
	wantOrder := []string{"2/2.5", "2.5", "3"}
	for i, want := range wantOrder {
		if got[i].Line != want {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Line, want)
		}
	}
}

func TestFilterMarketsTruncatesToExpected(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.OverUnder.Expected = 3
	for _, line := range []string{"2", "2.5", "3", "3.5", "4"} {
		snap.Markets.Full.OverUnder.Lines = append(snap.Markets.Full.OverUnder.Lines,
			hdpLine(line, "0.90", "0.90", "OU"))
	}
	FilterMarkets(snap)

	if n := len(snap.Markets.Full.OverUnder.Lines); n != 3 {
		t.Errorf("expected truncation to 3 lines, got %d", n)
	}
}

func TestFilterMarketsTruncationFloor(t *testing.T) {
	// A declared count of 1 must not cut a legitimate two-line market.
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.Handicap.Expected = 1
	snap.Markets.Full.Handicap.Lines = []models.MarketLine{
		hdpLine("0", "0.95", "0.95", "R"),
		hdpLine("0.5", "0.80", "1.05", "R"),
	}
	FilterMarkets(snap)

	if n := len(snap.Markets.Full.Handicap.Lines); n != 2 {
		t.Errorf("truncation floor violated: got %d lines, want 2", n)
	}
}

func TestFilterMarketsNeverGrowsPastExpected(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.Handicap.Expected = 4
	for _, line := range []string{"0", "0.5", "1", "1.5", "2", "2.5"} {
		snap.Markets.Full.Handicap.Lines = append(snap.Markets.Full.Handicap.Lines,
			hdpLine(line, "0.90", "0.90", "R"))
	}
	FilterMarkets(snap)
	if n := len(snap.Markets.Full.Handicap.Lines); n > 4 {
		t.Errorf("line count %d exceeds declared expected 4", n)
	}
}

func TestFilterMarketsKeepsLegacyCurrent(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.Handicap.Current = &models.MarketLine{Line: "0.5", HomeOdds: "0.88", AwayOdds: "0.94", WType: "R"}
	FilterMarkets(snap)

	cur := snap.Markets.Full.Handicap.Current
	if cur == nil {
		t.Fatal("legacy current line was dropped")
	}
	if !cur.HasValue || cur.Value != 0.5 {
		t.Errorf("legacy current not canonicalized: %+v", cur)
	}
}
