package snapstore

import (
	"testing"
	"time"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

func batch(ids ...string) []models.MatchSnapshot {
	out := make([]models.MatchSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.MatchSnapshot{MatchID: id, Sport: "football"})
	}
	return out
}

func storeAt(t0 time.Time) (*Store, *time.Time) {
	s := NewStore()
	now := t0
	s.now = func() time.Time { return now }
	return s, &now
}

func TestPublishAndGet(t *testing.T) {
	s, _ := storeAt(time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC))
	s.Publish("football", models.BucketToday, batch("1", "2"))

	got := s.Get("football", models.BucketToday)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}

	// Mutating the returned slice must not touch the stored batch.
	got[0].MatchID = "mutated"
	if s.Get("football", models.BucketToday)[0].MatchID != "1" {
		t.Error("Get returned a shared slice")
	}
}

func TestEmptyPollFallback(t *testing.T) {
	s, now := storeAt(time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC))
	s.Publish("football", models.BucketToday, batch("1"))

	*now = now.Add(10 * time.Second)
	substituted := s.Publish("football", models.BucketToday, nil)
	if !substituted {
		t.Error("fresh empty batch within TTL should be substituted")
	}
	if len(s.Get("football", models.BucketToday)) != 1 {
		t.Error("previous batch lost")
	}

	*now = now.Add(FallbackTTL + time.Second)
	substituted = s.Publish("football", models.BucketToday, nil)
	if substituted {
		t.Error("stale fallback must not be substituted past TTL")
	}
	if len(s.Get("football", models.BucketToday)) != 0 {
		t.Error("empty batch not stored after TTL expiry")
	}
}

func TestLiveBucketNeverFallsBack(t *testing.T) {
	s, now := storeAt(time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC))
	s.Publish("football", models.BucketLive, batch("1"))

	*now = now.Add(2 * time.Second)
	if s.Publish("football", models.BucketLive, nil) {
		t.Error("live bucket substituted a stale batch")
	}
	if len(s.Get("football", models.BucketLive)) != 0 {
		t.Error("live bucket kept stale matches")
	}
}

func TestFind(t *testing.T) {
	s, _ := storeAt(time.Now())
	m := models.MatchSnapshot{MatchID: "2301557", HalfMatchID: "2301558", Sport: "football"}
	s.Publish("football", models.BucketLive, []models.MatchSnapshot{m})

	if _, ok := s.Find("football", "2301557"); !ok {
		t.Error("match id not found")
	}
	if _, ok := s.Find("football", "2301558"); !ok {
		t.Error("half variant id not found")
	}
	if _, ok := s.Find("football", "9999"); ok {
		t.Error("unknown id found")
	}
}
