// Package feed talks to the vendor board API and adapts its wire format into
// the canonical match snapshot. Everything downstream of this package works
// with snapshots only; vendor field codes never leak past the adapter.
package feed

import (
	"time"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

// VendorZone is the timezone of kickoff strings on the wire.
var VendorZone = time.FixedZone("GMT-4", -4*60*60)

const kickoffLayout = "2006-01-02 15:04"

// Adapt converts one raw board row into a canonical snapshot. bucket is the
// stream tag of the board the row came from; boards that do not partition
// matches pass the empty bucket.
func Adapt(raw *RawMatch, sport string, bucket models.Bucket) models.MatchSnapshot {
	snap := models.MatchSnapshot{
		MatchID:     raw.GID,
		HalfMatchID: raw.HGID,
		LeagueID:    raw.LID,
		League:      raw.League,
		HomeTeam:    raw.TeamH,
		AwayTeam:    raw.TeamC,
		Sport:       sport,
		Bucket:      bucket,
		Status:      raw.Status,
		Period:      raw.Period,
		Clock:       raw.Timer,
		MoreMarkets: raw.More > 0,
		UpdatedAt:   time.Now(),
	}

	if raw.HGID == raw.GID {
		snap.HalfMatchID = ""
	}
	if raw.State != nil {
		snap.StateCode = *raw.State
		snap.HasState = true
	}
	if raw.DateTime != "" {
		if t, err := time.ParseInLocation(kickoffLayout, raw.DateTime, VendorZone); err == nil {
			snap.Kickoff = t
		}
	}

	snap.Markets.Full.Handicap.Expected = raw.RCount
	snap.Markets.Full.OverUnder.Expected = raw.OUCount
	snap.Markets.Half.Handicap.Expected = raw.HRCount
	snap.Markets.Half.OverUnder.Expected = raw.HOUCount

	for i := range raw.Lines {
		placeLine(&snap.Markets, &raw.Lines[i])
	}

	return snap
}

// AdaptBatch converts a whole board response.
func AdaptBatch(resp *BoardResponse, sport string, bucket models.Bucket) []models.MatchSnapshot {
	out := make([]models.MatchSnapshot, 0, len(resp.Games))
	for i := range resp.Games {
		out = append(out, Adapt(&resp.Games[i], sport, bucket))
	}
	return out
}

// placeLine routes one raw line into its scope/category slot by wtype.
func placeLine(m *models.Markets, l *RawLine) {
	switch l.WType {
	case "M":
		m.Full.Moneyline = &models.MoneylineQuote{Home: l.IorH, Draw: l.IorN, Away: l.IorC}
		return
	case "HM":
		m.Half.Moneyline = &models.MoneylineQuote{Home: l.IorH, Draw: l.IorN, Away: l.IorC}
		return
	}

	line := models.MarketLine{
		Line:          l.Ratio,
		HomeOdds:      l.IorH,
		AwayOdds:      l.IorC,
		WType:         l.WType,
		HomeRType:     l.RTypeH,
		AwayRType:     l.RTypeC,
		HomeChoseTeam: l.ChoseH,
		AwayChoseTeam: l.ChoseC,
	}

	switch l.WType {
	case "R", "RE":
		m.Full.Handicap.Lines = append(m.Full.Handicap.Lines, line)
	case "OU", "OUE":
		m.Full.OverUnder.Lines = append(m.Full.OverUnder.Lines, line)
	case "HR", "HRE":
		m.Half.Handicap.Lines = append(m.Half.Handicap.Lines, line)
	case "HOU", "HOUE":
		m.Half.OverUnder.Lines = append(m.Half.OverUnder.Lines, line)
	}
	// Unknown wtypes are dropped here; the market filter would reject them anyway.
}
