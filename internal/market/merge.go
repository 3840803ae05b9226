package market

import (
	"strings"

	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/pkg/oddsutil"
)

// lineKey identifies one physical line across endpoints: same wtype, same
// line string (trimmed). Prices differ between endpoints; identity does not.
func lineKey(l *models.MarketLine) string {
	return l.WType + "\x00" + strings.TrimSpace(l.Line)
}

// MergeLines overlays a secondary line list onto the one from the primary
// poll. Existing entries win on key collision but absent fields are filled
// from the incoming entry; incoming-only keys are appended. A line only the
// primary poll reported is never removed, and a populated price never
// regresses to empty.
func MergeLines(existing, incoming []models.MarketLine) []models.MarketLine {
	merged := make([]models.MarketLine, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i := range merged {
		index[lineKey(&merged[i])] = i
	}

	for i := range incoming {
		in := incoming[i]
		pos, ok := index[lineKey(&in)]
		if !ok {
			merged = append(merged, in)
			index[lineKey(&in)] = len(merged) - 1
			continue
		}
		overlayLine(&merged[pos], &in)
	}
	return merged
}

// overlayLine fills fields the existing entry is missing. Price slots use the
// odds sentinel check so a vendor "0.00" counts as absent too.
func overlayLine(dst, src *models.MarketLine) {
	if !oddsutil.IsValidOdds(dst.HomeOdds) && oddsutil.IsValidOdds(src.HomeOdds) {
		dst.HomeOdds = src.HomeOdds
	}
	if !oddsutil.IsValidOdds(dst.AwayOdds) && oddsutil.IsValidOdds(src.AwayOdds) {
		dst.AwayOdds = src.AwayOdds
	}
	if dst.HomeRType == "" {
		dst.HomeRType = src.HomeRType
	}
	if dst.AwayRType == "" {
		dst.AwayRType = src.AwayRType
	}
	if dst.HomeChoseTeam == "" {
		dst.HomeChoseTeam = src.HomeChoseTeam
	}
	if dst.AwayChoseTeam == "" {
		dst.AwayChoseTeam = src.AwayChoseTeam
	}
}
