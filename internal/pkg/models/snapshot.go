package models

import "time"

// Scope selects the whole-match or first-half variant of a market.
type Scope string

const (
	ScopeFull Scope = "full"
	ScopeHalf Scope = "half"
)

// Category is the market category of a selection.
type Category string

const (
	CategoryMoneyline Category = "moneyline"
	CategoryHandicap  Category = "handicap"
	CategoryOverUnder Category = "overunder"
)

// Side is the chosen side of a market. Over/under markets reuse the
// home/away price slots: over is stored on the home side, under on the away side.
type Side string

const (
	SideHome  Side = "home"
	SideDraw  Side = "draw"
	SideAway  Side = "away"
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// Bucket is the display partition a match is shown under.
type Bucket string

const (
	BucketLive  Bucket = "live"
	BucketToday Bucket = "today"
	BucketEarly Bucket = "early"
)

// MarketLine is one quoted line for a handicap or over/under market.
// Line keeps the exact vendor string ("0/0.5", "-1", "2.5") because the order
// payload must echo it back unchanged together with the routing metadata.
// Value/HasValue are the canonical decimal attached during normalization.
type MarketLine struct {
	Line     string `json:"line"`
	HomeOdds string `json:"home_odds"` // home (handicap) or over (totals) price, vendor string
	AwayOdds string `json:"away_odds"` // away or under price

	// Vendor routing metadata, opaque here but round-tripped into orders.
	WType         string `json:"wtype"`
	HomeRType     string `json:"home_rtype"`
	AwayRType     string `json:"away_rtype"`
	HomeChoseTeam string `json:"home_chose_team"`
	AwayChoseTeam string `json:"away_chose_team"`

	Value    float64 `json:"value"`
	HasValue bool    `json:"has_value"`
}

// PriceFor returns the price slot for the given side.
func (l *MarketLine) PriceFor(side Side) string {
	switch side {
	case SideHome, SideOver:
		return l.HomeOdds
	case SideAway, SideUnder:
		return l.AwayOdds
	default:
		return ""
	}
}

// MoneylineQuote holds home/draw/away prices for an independent-result market.
type MoneylineQuote struct {
	Home string `json:"home"`
	Draw string `json:"draw"`
	Away string `json:"away"`
}

// PriceFor returns the price for the given side.
func (q *MoneylineQuote) PriceFor(side Side) string {
	switch side {
	case SideHome:
		return q.Home
	case SideDraw:
		return q.Draw
	case SideAway:
		return q.Away
	default:
		return ""
	}
}

// LineList is the set of quoted lines for one category at one scope.
// Expected is the vendor-declared number of lines (0 = not declared).
// Current is the shorthand "first" line; legacy payloads that only carry a
// single inline line land here with an empty Lines slice.
type LineList struct {
	Lines    []MarketLine `json:"lines"`
	Expected int          `json:"expected"`
	Current  *MarketLine  `json:"current,omitempty"`
}

// Candidates returns the lines to resolve against: the full list when present,
// otherwise a single-element list built from the legacy Current field.
func (ll *LineList) Candidates() []MarketLine {
	if len(ll.Lines) > 0 {
		return ll.Lines
	}
	if ll.Current != nil {
		return []MarketLine{*ll.Current}
	}
	return nil
}

// ScopeMarkets groups the three market categories at one scope.
type ScopeMarkets struct {
	Moneyline *MoneylineQuote `json:"moneyline,omitempty"`
	Handicap  LineList        `json:"handicap"`
	OverUnder LineList        `json:"overunder"`
}

// ListFor returns the line list for a line-based category, nil for moneyline.
func (sm *ScopeMarkets) ListFor(cat Category) *LineList {
	switch cat {
	case CategoryHandicap:
		return &sm.Handicap
	case CategoryOverUnder:
		return &sm.OverUnder
	default:
		return nil
	}
}

// Markets is the full scope/category tree of one match.
type Markets struct {
	Full ScopeMarkets `json:"full"`
	Half ScopeMarkets `json:"half"`
}

// At returns the markets for the given scope (defaults to full).
func (m *Markets) At(scope Scope) *ScopeMarkets {
	if scope == ScopeHalf {
		return &m.Half
	}
	return &m.Full
}

// MatchSnapshot is the canonical, frequently-replaced view of one match.
// Produced by the feed adapter; replaced wholesale on every poll cycle,
// never mutated field by field.
type MatchSnapshot struct {
	MatchID     string    `json:"match_id"`
	HalfMatchID string    `json:"half_match_id,omitempty"` // first-half variant id, when the vendor lists it separately
	LeagueID    string    `json:"league_id"`
	League      string    `json:"league"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	Sport       string    `json:"sport"`
	Bucket      Bucket    `json:"bucket,omitempty"` // explicit vendor tag, empty when the endpoint does not label matches
	StateCode   int       `json:"state_code"`
	HasState    bool      `json:"has_state"`
	Status      string    `json:"status"`
	Period      string    `json:"period"`
	Clock       string    `json:"clock"`
	Kickoff     time.Time `json:"kickoff"`
	MoreMarkets bool      `json:"more_markets"` // vendor "more lines available" flag
	Markets     Markets   `json:"markets"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SelectionRequest identifies one price the caller wants to bet.
// Line (when non-empty) targets a specific line value; otherwise Index is used
// when HasIndex is set; otherwise the first line is taken.
type SelectionRequest struct {
	Category Category `json:"category"`
	Scope    Scope    `json:"scope"`
	Side     Side     `json:"side"`
	Line     string   `json:"line,omitempty"`
	Index    int      `json:"index"`
	HasIndex bool     `json:"has_index"`
}

// Selection is a resolved price for a SelectionRequest.
// LineValue is the original vendor line string and must be echoed back into
// any follow-up order so the routing metadata stays attached to the same
// physical line. Quote is set for moneyline, Line for the other categories.
type Selection struct {
	Line      *MarketLine     `json:"line,omitempty"`
	Quote     *MoneylineQuote `json:"quote,omitempty"`
	Price     string          `json:"price"`
	LineValue string          `json:"line_value,omitempty"`
	Index     int             `json:"index"`
}
