package feed

// Models for the vendor board API responses. Field names follow the wire
// format; the short codes are the vendor's, not ours.

// BoardResponse is the envelope of every board endpoint.
type BoardResponse struct {
	Code    int        `json:"code"`
	Message string     `json:"msg"`
	Serial  string     `json:"serial"` // server-side feed revision
	Games   []RawMatch `json:"games"`
}

// RawMatch is one match row on a board, markets inline.
type RawMatch struct {
	GID      string `json:"gid"`      // match id
	HGID     string `json:"hgid"`     // half-market variant id, may equal gid
	LID      string `json:"lid"`      // league id
	League   string `json:"league"`   // league name
	TeamH    string `json:"team_h"`   // home team
	TeamC    string `json:"team_c"`   // away team
	State    *int   `json:"state"`    // numeric phase code, absent on some boards
	Status   string `json:"status"`   // free-text phase label
	Period   string `json:"period"`   // period marker, e.g. "1H", "HT"
	Timer    string `json:"timer"`    // running clock, e.g. "73:12"
	DateTime string `json:"datetime"` // vendor-local kickoff, "2006-01-02 15:04"
	More     int    `json:"more"`     // count of additional markets not on the board
	RCount   int    `json:"rcount"`   // expected full handicap lines
	OUCount  int    `json:"oucount"`  // expected full over/under lines
	HRCount  int    `json:"hrcount"`  // expected half handicap lines
	HOUCount int    `json:"houcount"` // expected half over/under lines

	Lines []RawLine `json:"lines"`
}

// RawLine is one priced market row. Moneyline rows use wtype M/HM and carry
// IorN for the draw; handicap and over/under rows leave it empty.
type RawLine struct {
	WType  string `json:"wtype"`
	RTypeH string `json:"rtype_h"`
	RTypeC string `json:"rtype_c"`
	Ratio  string `json:"ratio"`   // line string, e.g. "2.5/3", "-0.5"
	IorH   string `json:"ior_h"`   // home/over price
	IorN   string `json:"ior_n"`   // draw price, moneyline only
	IorC   string `json:"ior_c"`   // away/under price
	ChoseH string `json:"chose_h"` // vendor submit token, home side
	ChoseC string `json:"chose_c"` // vendor submit token, away side
}

// DetailResponse is the envelope of the per-match market expansion endpoint.
type DetailResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"msg"`
	Game    RawMatch `json:"game"`
}
