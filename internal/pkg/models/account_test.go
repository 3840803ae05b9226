package models

import "testing"

func TestLineKeyFromUsernames(t *testing.T) {
	tests := []struct {
		name     string
		original string
		current  string
		want     string
	}{
		{"original preferred", "AB1234", "xy9999", "AB12"},
		{"fallback to current", "", "ab12xy", "AB12"},
		{"whitespace original falls back", "   ", "cd5678", "CD56"},
		{"both empty", "", "", UnknownLineKey},
		{"short username kept whole", "ab", "", "AB"},
		{"exactly four", "abcd", "", "ABCD"},
		{"lowercase upper-cased", "ab12xy", "", "AB12"},
		{"leading whitespace trimmed", "  AB1234", "", "AB12"},
	}
	for _, tt := range tests {
		if got := LineKeyFromUsernames(tt.original, tt.current); got != tt.want {
			t.Errorf("%s: LineKeyFromUsernames(%q, %q) = %q, want %q",
				tt.name, tt.original, tt.current, got, tt.want)
		}
	}
}

func TestLineKeySharedAcrossRotations(t *testing.T) {
	a := WageringAccount{Username: "AB1234"}
	b := WageringAccount{Username: "zz9876", OriginalUsername: "ab12xy"}
	if a.LineKey() != b.LineKey() {
		t.Errorf("rotated credentials should share a line key: %q vs %q", a.LineKey(), b.LineKey())
	}
}

func TestVendorAmount(t *testing.T) {
	tests := []struct {
		name     string
		discount float64
		platform float64
		want     float64
	}{
		{"full price", 1, 100, 100},
		{"ninety percent", 0.9, 90, 100},
		{"zero discount passes through", 0, 100, 100},
		{"negative discount passes through", -0.5, 100, 100},
	}
	for _, tt := range tests {
		a := WageringAccount{Discount: tt.discount}
		if got := a.VendorAmount(tt.platform); got != tt.want {
			t.Errorf("%s: VendorAmount(%v) = %v, want %v", tt.name, tt.platform, got, tt.want)
		}
	}
}

func TestLossBucket(t *testing.T) {
	tests := []struct {
		name  string
		usage UsageAggregate
		want  int
	}{
		{"losing today", UsageAggregate{DailyProfit: -10, WeeklyProfit: 50}, 0},
		{"losing this week only", UsageAggregate{DailyProfit: 5, WeeklyProfit: -20}, 1},
		{"not losing", UsageAggregate{DailyProfit: 5, WeeklyProfit: 5}, 2},
		{"flat", UsageAggregate{}, 2},
	}
	for _, tt := range tests {
		if got := tt.usage.LossBucket(); got != tt.want {
			t.Errorf("%s: LossBucket() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name  string
		entry AccountSelectionEntry
		want  bool
	}{
		{"clean", AccountSelectionEntry{}, true},
		{"offline", AccountSelectionEntry{Offline: true}, false},
		{"stop profit", AccountSelectionEntry{StopProfitReached: true}, false},
		{"line conflict", AccountSelectionEntry{LineConflicted: true}, false},
		{"everything at once", AccountSelectionEntry{Offline: true, StopProfitReached: true, LineConflicted: true}, false},
	}
	for _, tt := range tests {
		if got := tt.entry.Eligible(); got != tt.want {
			t.Errorf("%s: Eligible() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
