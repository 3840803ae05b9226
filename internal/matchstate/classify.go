// Package matchstate decides whether a match is scheduled, live or finished,
// and whether it belongs to a requested display bucket. The vendor reports
// state through several partially-redundant channels (numeric codes, status
// strings, period markers, a running clock); the numeric code wins when
// present and the rest are fallbacks for endpoints that omit it.
package matchstate

import (
	"strings"
	"time"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

// State is the classified lifecycle state of a match.
type State int

const (
	StateScheduled State = iota
	StateLive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateFinished:
		return "finished"
	default:
		return "scheduled"
	}
}

// Reserved "ended" sentinels in the numeric state channel.
const (
	stateCodeEnded    = 3
	stateCodeEndedAlt = -1
)

// liveStatusTokens mark an in-play match in the status string. The vendor
// mixes English and Chinese depending on endpoint and session language.
var liveStatusTokens = []string{
	"live", "in-play", "inplay", "in play",
	"进行中", "滚球", "走地",
}

// periodTokens mark a running or paused period; their presence implies the
// match has started even when the status string says nothing.
var periodTokens = []string{
	"1h", "2h", "ht", "ot",
	"q1", "q2", "q3", "q4",
	"上半", "下半", "中场", "加时",
}

// Classify returns the lifecycle state of a match.
func Classify(m *models.MatchSnapshot) State {
	s, _ := ClassifyConclusive(m)
	return s
}

// ClassifyConclusive additionally reports whether the state was derived from
// a real signal. When every channel is silent the match defaults to
// scheduled with conclusive=false, so callers can render the uncertainty.
func ClassifyConclusive(m *models.MatchSnapshot) (State, bool) {
	if m.HasState {
		switch {
		case m.StateCode == stateCodeEnded || m.StateCode == stateCodeEndedAlt:
			return StateFinished, true
		case m.StateCode > 0:
			return StateLive, true
		case m.StateCode == 0:
			return StateScheduled, true
		}
		// Unrecognized negative codes fall through to the string channels.
	}

	status := strings.ToLower(m.Status)
	for _, tok := range liveStatusTokens {
		if strings.Contains(status, tok) {
			return StateLive, true
		}
	}

	period := strings.ToLower(m.Period)
	if period != "" {
		for _, tok := range periodTokens {
			if strings.Contains(period, tok) {
				return StateLive, true
			}
		}
	}

	if strings.TrimSpace(m.Clock) != "" {
		return StateLive, true
	}

	return StateScheduled, false
}

// MatchesBucket reports whether a match belongs to the requested display
// bucket at the given wall time. An explicit vendor bucket tag is trusted;
// otherwise the bucket is derived from kickoff relative to local midnight.
// The live bucket ignores kickoff entirely.
func MatchesBucket(m *models.MatchSnapshot, bucket models.Bucket, now time.Time) bool {
	state := Classify(m)

	if m.Bucket != "" {
		if state == StateFinished {
			return false
		}
		return m.Bucket == bucket
	}

	switch bucket {
	case models.BucketLive:
		return state == StateLive
	case models.BucketToday:
		if state == StateFinished || m.Kickoff.IsZero() {
			return false
		}
		dayStart := midnight(now)
		dayEnd := dayStart.AddDate(0, 0, 1)
		return !m.Kickoff.Before(dayStart) && m.Kickoff.Before(dayEnd)
	case models.BucketEarly:
		if state == StateFinished || m.Kickoff.IsZero() {
			return false
		}
		return !m.Kickoff.Before(midnight(now).AddDate(0, 0, 1))
	default:
		return false
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
