// Package snapstore keeps the latest adapted poll batch per (sport, bucket)
// stream in memory for fast console access, with a short-lived fallback that
// papers over transient empty responses from the upstream poller.
package snapstore

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

// FallbackTTL is how long a previous non-empty batch may substitute for a
// fresh empty one before the empty result is believed.
const FallbackTTL = 30 * time.Second

type entry struct {
	matches  []models.MatchSnapshot
	storedAt time.Time
}

// Store holds the latest batch per (sport, bucket).
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func key(sport string, bucket models.Bucket) string {
	return sport + "|" + string(bucket)
}

// Publish replaces the stored batch for the stream wholesale. An empty batch
// for today/early is ignored while the previous non-empty batch is still
// within FallbackTTL, so viewers never see the list flash empty on a single
// bad poll. The live bucket always takes the fresh result. Returns true when
// the fallback was substituted.
func (s *Store) Publish(sport string, bucket models.Bucket, matches []models.MatchSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := key(sport, bucket)

	if len(matches) == 0 && bucket != models.BucketLive {
		prev, ok := s.entries[k]
		if ok && len(prev.matches) > 0 && now.Sub(prev.storedAt) <= FallbackTTL {
			slog.Debug("Empty poll result, keeping previous batch",
				"sport", sport, "bucket", bucket, "age", now.Sub(prev.storedAt))
			return true
		}
	}

	s.entries[k] = entry{matches: matches, storedAt: now}
	return false
}

// Get returns a copy of the latest batch for the stream.
func (s *Store) Get(sport string, bucket models.Bucket) []models.MatchSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key(sport, bucket)]
	if !ok {
		return nil
	}
	out := make([]models.MatchSnapshot, len(e.matches))
	copy(out, e.matches)
	return out
}

// Find returns the snapshot for one match, searched across every stream of
// the given sport. Used by the resolution path when the caller knows the
// match id but not which board it came from.
func (s *Store) Find(sport, matchID string) (models.MatchSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, e := range s.entries {
		if sport != "" && !streamOfSport(k, sport) {
			continue
		}
		for i := range e.matches {
			if e.matches[i].MatchID == matchID || e.matches[i].HalfMatchID == matchID {
				return e.matches[i], true
			}
		}
	}
	return models.MatchSnapshot{}, false
}

// Streams lists the known (sport, bucket) streams, sorted for stable output.
func (s *Store) Streams() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// streamOfSport reports whether the stream key belongs to the sport.
func streamOfSport(streamKey, sport string) bool {
	return len(streamKey) > len(sport) && streamKey[:len(sport)] == sport && streamKey[len(sport)] == '|'
}
