package market

import (
	"testing"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

func snapWithHandicap(lines ...models.MarketLine) *models.MatchSnapshot {
	snap := &models.MatchSnapshot{MatchID: "2301557"}
	snap.Markets.Full.Handicap.Lines = lines
	return snap
}

func TestResolveMoneyline(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.Moneyline = &models.MoneylineQuote{Home: "2.05", Draw: "3.20", Away: "3.45"}

	sel, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryMoneyline, Scope: models.ScopeFull, Side: models.SideDraw,
	})
	if !ok {
		t.Fatal("expected moneyline to resolve")
	}
	if sel.Price != "3.20" {
		t.Errorf("price = %q, want 3.20", sel.Price)
	}
	if sel.Quote == nil || sel.Quote.Home != "2.05" {
		t.Errorf("quote not echoed: %+v", sel.Quote)
	}
}

func TestResolveMoneylineAllSidesAbsent(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Full.Moneyline = &models.MoneylineQuote{Home: "0.00", Draw: "", Away: "0"}

	if _, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryMoneyline, Scope: models.ScopeFull, Side: models.SideHome,
	}); ok {
		t.Error("quote with no real price on any side should be not-found")
	}
}

func TestResolveByTargetLineToleratesFormat(t *testing.T) {
	snap := snapWithHandicap(
		models.MarketLine{Line: "0/0.5", WType: "R", HomeOdds: "0.87", AwayOdds: "0.95", HomeRType: "RH", AwayRType: "RC"},
		models.MarketLine{Line: "1", WType: "R", HomeOdds: "0.60", AwayOdds: "1.30"},
	)
	// The click came from an endpoint that renders the quarter line as "0.25".
	sel, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryHandicap, Scope: models.ScopeFull, Side: models.SideHome, Line: "0.25",
	})
	if !ok {
		t.Fatal("expected quarter line to resolve")
	}
	if sel.LineValue != "0/0.5" {
		t.Errorf("original line string must be preserved, got %q", sel.LineValue)
	}
	if sel.Price != "0.87" || sel.Index != 0 {
		t.Errorf("price=%q index=%d", sel.Price, sel.Index)
	}
	if sel.Line == nil || sel.Line.HomeRType != "RH" {
		t.Errorf("routing metadata lost: %+v", sel.Line)
	}
}

func TestResolveByIndex(t *testing.T) {
	snap := snapWithHandicap(
		models.MarketLine{Line: "0", WType: "R", HomeOdds: "0.95", AwayOdds: "0.95"},
		models.MarketLine{Line: "0.5", WType: "R", HomeOdds: "0.78", AwayOdds: "1.08"},
	)
	sel, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryHandicap, Scope: models.ScopeFull, Side: models.SideAway,
		Index: 1, HasIndex: true,
	})
	if !ok || sel.Price != "1.08" || sel.LineValue != "0.5" {
		t.Errorf("ok=%v sel=%+v", ok, sel)
	}

	if _, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryHandicap, Scope: models.ScopeFull, Side: models.SideAway,
		Index: 5, HasIndex: true,
	}); ok {
		t.Error("out-of-range index should be not-found")
	}
}

func TestResolveDefaultsToFirstLine(t *testing.T) {
	snap := snapWithHandicap(
		models.MarketLine{Line: "0.5", WType: "R", HomeOdds: "0.78", AwayOdds: "1.08"},
	)
	sel, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryHandicap, Scope: models.ScopeFull, Side: models.SideHome,
	})
	if !ok || sel.Index != 0 || sel.Price != "0.78" {
		t.Errorf("ok=%v sel=%+v", ok, sel)
	}
}

func TestResolveLegacyCurrentFallback(t *testing.T) {
	snap := &models.MatchSnapshot{}
	snap.Markets.Half.OverUnder.Current = &models.MarketLine{
		Line: "1/1.5", WType: "HOU", HomeOdds: "0.92", AwayOdds: "0.88",
	}
	sel, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryOverUnder, Scope: models.ScopeHalf, Side: models.SideUnder,
	})
	if !ok {
		t.Fatal("legacy single-line payload should still resolve")
	}
	if sel.Price != "0.88" || sel.LineValue != "1/1.5" {
		t.Errorf("sel=%+v", sel)
	}
}

func TestResolveMissingMarket(t *testing.T) {
	snap := &models.MatchSnapshot{}
	if _, ok := Resolve(snap, models.SelectionRequest{
		Category: models.CategoryOverUnder, Scope: models.ScopeFull, Side: models.SideOver, Line: "2.5",
	}); ok {
		t.Error("empty market should be not-found")
	}
}

func TestNeedsMoreMarkets(t *testing.T) {
	base := func() *models.MatchSnapshot {
		snap := &models.MatchSnapshot{}
		snap.Markets.Full.Handicap.Expected = 1
		snap.Markets.Full.Handicap.Lines = []models.MarketLine{{Line: "0", WType: "R", HomeOdds: "0.9", AwayOdds: "0.9"}}
		snap.Markets.Full.OverUnder.Expected = 1
		snap.Markets.Full.OverUnder.Lines = []models.MarketLine{{Line: "2.5", WType: "OU", HomeOdds: "0.9", AwayOdds: "0.9"}}
		snap.Markets.Half.Moneyline = &models.MoneylineQuote{Home: "2.0", Draw: "3.1", Away: "3.3"}
		return snap
	}

	if NeedsMoreMarkets(base()) {
		t.Error("complete snapshot flagged for enrichment")
	}

	short := base()
	short.Markets.Full.Handicap.Expected = 4
	short.Markets.Full.Handicap.Lines = short.Markets.Full.Handicap.Lines[:1]
	if !NeedsMoreMarkets(short) {
		t.Error("undercounted handicap list not flagged")
	}

	flagged := base()
	flagged.MoreMarkets = true
	if !NeedsMoreMarkets(flagged) {
		t.Error("vendor more-markets flag ignored")
	}

	noHalf := base()
	noHalf.Markets.Half.Moneyline = nil
	if !NeedsMoreMarkets(noHalf) {
		t.Error("absent half moneyline not flagged")
	}
}

func TestEnrichCandidatesCap(t *testing.T) {
	batch := make([]models.MatchSnapshot, 80)
	for i := range batch {
		batch[i].MoreMarkets = true
	}
	got := EnrichCandidates(batch)
	if len(got) != MaxEnrichPerCycle {
		t.Errorf("expected %d candidates, got %d", MaxEnrichPerCycle, len(got))
	}
	if got[len(got)-1] != MaxEnrichPerCycle-1 {
		t.Errorf("candidates past the cycle window were considered: last=%d", got[len(got)-1])
	}
}
