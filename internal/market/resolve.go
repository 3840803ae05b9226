package market

import (
	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/pkg/oddsutil"
)

// Resolve picks the live price for a selection out of the current snapshot.
// Not-found is an ordinary outcome, not an error: the line may have been
// pulled or renumbered between the poll and the click.
//
// The returned Selection echoes the original vendor line string and the
// resolved index; callers must carry both into the follow-up order so the
// wtype/rtype/chose_team routing metadata stays attached to the same
// physical line.
func Resolve(snap *models.MatchSnapshot, req models.SelectionRequest) (models.Selection, bool) {
	sm := snap.Markets.At(req.Scope)

	if req.Category == models.CategoryMoneyline {
		q := sm.Moneyline
		if q == nil {
			return models.Selection{}, false
		}
		if !oddsutil.IsValidOdds(q.Home) && !oddsutil.IsValidOdds(q.Draw) && !oddsutil.IsValidOdds(q.Away) {
			return models.Selection{}, false
		}
		quote := *q
		return models.Selection{
			Quote: &quote,
			Price: q.PriceFor(req.Side),
		}, true
	}

	ll := sm.ListFor(req.Category)
	if ll == nil {
		return models.Selection{}, false
	}
	candidates := ll.Candidates()
	if len(candidates) == 0 {
		return models.Selection{}, false
	}

	idx := -1
	switch {
	case req.Line != "":
		for i := range candidates {
			if oddsutil.SameLine(candidates[i].Line, req.Line) {
				idx = i
				break
			}
		}
	case req.HasIndex:
		if req.Index >= 0 && req.Index < len(candidates) {
			idx = req.Index
		}
	default:
		idx = 0
	}
	if idx < 0 {
		return models.Selection{}, false
	}

	line := candidates[idx]
	return models.Selection{
		Line:      &line,
		Price:     line.PriceFor(req.Side),
		LineValue: line.Line,
		Index:     idx,
	}, true
}
