// Package market normalizes raw market trees into a canonical, bounded shape
// and resolves a requested selection against the latest snapshot.
package market

import (
	"sort"

	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/pkg/oddsutil"
)

// Vendor wtype code families. The same market arrives under the base code or
// its in-play variant depending on which endpoint reported it; half-scope
// markets carry their own family.
var (
	handicapFullTypes  = map[string]bool{"R": true, "RE": true}
	handicapHalfTypes  = map[string]bool{"HR": true, "HRE": true}
	overUnderFullTypes = map[string]bool{"OU": true, "OUE": true}
	overUnderHalfTypes = map[string]bool{"HOU": true, "HOUE": true}
)

func allowedTypes(scope models.Scope, cat models.Category) map[string]bool {
	switch cat {
	case models.CategoryHandicap:
		if scope == models.ScopeHalf {
			return handicapHalfTypes
		}
		return handicapFullTypes
	case models.CategoryOverUnder:
		if scope == models.ScopeHalf {
			return overUnderHalfTypes
		}
		return overUnderFullTypes
	}
	return nil
}

// Canonicalize attaches the parsed decimal value to a line.
func Canonicalize(l *models.MarketLine) {
	l.Value, l.HasValue = oddsutil.ParseLine(l.Line)
}

// hasAnyPrice reports whether at least one side carries a real price.
func hasAnyPrice(l *models.MarketLine) bool {
	return oddsutil.IsValidOdds(l.HomeOdds) || oddsutil.IsValidOdds(l.AwayOdds)
}

// FilterMarkets normalizes the snapshot's market tree in place: drops lines
// whose wtype falls outside the allowed family (untyped lines survive only
// with at least one real price), canonicalizes and sorts the survivors,
// bounds each list to the vendor-declared expected count, and refreshes the
// per-category "current" shorthand.
func FilterMarkets(snap *models.MatchSnapshot) {
	for _, scope := range []models.Scope{models.ScopeFull, models.ScopeHalf} {
		sm := snap.Markets.At(scope)
		filterList(&sm.Handicap, scope, models.CategoryHandicap)
		filterList(&sm.OverUnder, scope, models.CategoryOverUnder)
	}
}

func filterList(ll *models.LineList, scope models.Scope, cat models.Category) {
	allowed := allowedTypes(scope, cat)

	kept := ll.Lines[:0]
	for i := range ll.Lines {
		l := ll.Lines[i]
		if l.WType != "" {
			if !allowed[l.WType] {
				continue
			}
		} else if !hasAnyPrice(&l) {
			// Unknown-but-possibly-valid only while it still quotes something.
			continue
		}
		Canonicalize(&l)
		kept = append(kept, l)
	}
	ll.Lines = kept

	if cat == models.CategoryHandicap {
		// Closest-to-zero first: that is the main line.
		sort.SliceStable(ll.Lines, func(i, j int) bool {
			return absOr(ll.Lines[i]) < absOr(ll.Lines[j])
		})
	} else {
		sort.SliceStable(ll.Lines, func(i, j int) bool {
			return valueOr(ll.Lines[i]) < valueOr(ll.Lines[j])
		})
	}

	if ll.Expected > 0 {
		// Never truncate below two lines: an expected count of 1 shows up on
		// payloads that undercount legitimate multi-line markets.
		cap := ll.Expected
		if cap < 2 {
			cap = 2
		}
		if len(ll.Lines) > cap {
			ll.Lines = ll.Lines[:cap]
		}
	}

	if len(ll.Lines) > 0 {
		first := ll.Lines[0]
		ll.Current = &first
	} else if ll.Current != nil {
		Canonicalize(ll.Current)
	}
}

// absOr sorts lines without a parsed value after everything else.
func absOr(l models.MarketLine) float64 {
	if !l.HasValue {
		return 1e9
	}
	if l.Value < 0 {
		return -l.Value
	}
	return l.Value
}

func valueOr(l models.MarketLine) float64 {
	if !l.HasValue {
		return 1e9
	}
	return l.Value
}
