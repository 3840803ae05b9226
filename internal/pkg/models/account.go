package models

import (
	"strings"
	"time"
)

// UnknownLineKey is used when an account has no usable username at all.
const UnknownLineKey = "UNKNOWN"

// LineKeyFromUsernames derives the credential-family fingerprint for an
// account: the first four characters of the original (pre-rotation) username,
// falling back to the current one, upper-cased. Accounts sharing a key sit on
// the same underlying vendor line and must not both bet the same match.
func LineKeyFromUsernames(original, current string) string {
	name := strings.TrimSpace(original)
	if name == "" {
		name = strings.TrimSpace(current)
	}
	if name == "" {
		return UnknownLineKey
	}
	r := []rune(name)
	if len(r) > 4 {
		r = r[:4]
	}
	return strings.ToUpper(string(r))
}

// WageringAccount is one credential set usable to place orders on the vendor.
// Online reflects the vendor-session state owned by the session manager; it is
// read-only here.
type WageringAccount struct {
	ID               int64   `json:"id"`
	UserID           int64   `json:"user_id"`
	GroupID          int64   `json:"group_id"`
	Username         string  `json:"username"`
	OriginalUsername string  `json:"original_username"`
	Discount         float64 `json:"discount"`          // in (0, 1]; converts platform stake to vendor stake
	StopProfitLimit  float64 `json:"stop_profit_limit"` // daily profit ceiling, 0 = disabled
	Online           bool    `json:"online"`
}

// LineKey returns the credential-family fingerprint of the account.
func (a *WageringAccount) LineKey() string {
	return LineKeyFromUsernames(a.OriginalUsername, a.Username)
}

// VendorAmount converts a platform-facing stake into the vendor-facing stake.
func (a *WageringAccount) VendorAmount(platformAmount float64) float64 {
	if a.Discount <= 0 {
		return platformAmount
	}
	return platformAmount / a.Discount
}

// UsageAggregate holds per-account usage for one user, computed fresh on
// every selection request and never cached across requests.
type UsageAggregate struct {
	DailyEffectiveAmount float64 `json:"daily_effective_amount"` // non-cancelled stakes since the daily boundary
	DailyProfit          float64 `json:"daily_profit"`           // settled profit since the daily boundary
	WeeklyProfit         float64 `json:"weekly_profit"`          // settled profit since the weekly boundary
}

// LossBucket orders accounts by how much they are currently losing:
// 0 = losing today, 1 = losing this week, 2 = not losing.
func (u UsageAggregate) LossBucket() int {
	if u.DailyProfit < 0 {
		return 0
	}
	if u.WeeklyProfit < 0 {
		return 1
	}
	return 2
}

// AccountSelectionEntry is one account in a selection response, with the
// exclusion flags spelled out so the caller can render why an account was
// skipped, not just that it was.
type AccountSelectionEntry struct {
	Account           WageringAccount `json:"account"`
	Usage             UsageAggregate  `json:"usage"`
	StopProfitReached bool            `json:"stop_profit_reached"`
	LineConflicted    bool            `json:"line_conflicted"`
	Offline           bool            `json:"offline"`
}

// Eligible reports whether the account may receive the next wager.
func (e *AccountSelectionEntry) Eligible() bool {
	return !e.StopProfitReached && !e.LineConflicted && !e.Offline
}

// OrderRecord is a prior order row as read from storage, reduced to what
// conflict detection and aggregation need.
type OrderRecord struct {
	ID               int64     `json:"id"`
	AccountID        int64     `json:"account_id"`
	Username         string    `json:"username"`
	OriginalUsername string    `json:"original_username"`
	Amount           float64   `json:"amount"`
	Cancelled        bool      `json:"cancelled"`
	CreatedAt        time.Time `json:"created_at"`
}

// LineKey returns the credential-family fingerprint of the ordering account.
func (o *OrderRecord) LineKey() string {
	return LineKeyFromUsernames(o.OriginalUsername, o.Username)
}
