package market

import (
	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/pkg/oddsutil"
)

// MaxEnrichPerCycle bounds how many matches the secondary "more markets"
// fetch may touch in one poll cycle, to keep worst-case cycle latency inside
// the polling interval.
const MaxEnrichPerCycle = 50

// enrichFloor is the line count below which the primary payload is assumed
// to be an abbreviated board row rather than the full market list.
const enrichFloor = 2

// NeedsMoreMarkets reports whether the primary payload for this match looks
// incomplete and the secondary fetch should be attempted.
func NeedsMoreMarkets(snap *models.MatchSnapshot) bool {
	if snap.MoreMarkets {
		return true
	}
	full := &snap.Markets.Full
	if listLooksShort(&full.Handicap) || listLooksShort(&full.OverUnder) {
		return true
	}
	return halfMoneylineAbsent(snap)
}

// listLooksShort: below the floor and below what the vendor itself declared.
func listLooksShort(ll *models.LineList) bool {
	if ll.Expected <= 0 {
		return false
	}
	n := len(ll.Lines)
	return n < enrichFloor && n < ll.Expected
}

func halfMoneylineAbsent(snap *models.MatchSnapshot) bool {
	q := snap.Markets.Half.Moneyline
	if q == nil {
		return true
	}
	return !oddsutil.IsValidOdds(q.Home) && !oddsutil.IsValidOdds(q.Draw) && !oddsutil.IsValidOdds(q.Away)
}

// EnrichCandidates returns the indexes of matches eligible for the secondary
// fetch this cycle. Only the first MaxEnrichPerCycle matches of the batch are
// considered; matches further down wait for a later cycle.
func EnrichCandidates(batch []models.MatchSnapshot) []int {
	limit := len(batch)
	if limit > MaxEnrichPerCycle {
		limit = MaxEnrichPerCycle
	}
	var out []int
	for i := 0; i < limit; i++ {
		if NeedsMoreMarkets(&batch[i]) {
			out = append(out, i)
		}
	}
	return out
}
