// Package poller drives the board polling loops: one loop per (sport, bucket)
// stream, each fetching the board, enriching shallow matches with their full
// market sets, normalizing and publishing the batch.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Melekhin/betdesk/internal/feed"
	"github.com/Melekhin/betdesk/internal/market"
	"github.com/Melekhin/betdesk/internal/matchstate"
	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/pkg/snapstore"
)

const (
	defaultLiveInterval = 4 * time.Second
	defaultLineInterval = 30 * time.Second

	// Consecutive enrichment-free cycles on a stream before an alert goes out.
	enrichFailureAlertStreak = 5
)

// BoardFetcher is the vendor API surface the poller needs.
type BoardFetcher interface {
	FetchBoard(ctx context.Context, sport, bucket string) (*feed.BoardResponse, error)
	FetchDetail(ctx context.Context, sport, gid string) (*feed.RawMatch, error)
}

// MatchRecorder persists polled matches so orders can reference them later.
type MatchRecorder interface {
	UpsertMatch(ctx context.Context, m *models.MatchSnapshot) error
}

// BatchMirror publishes adapted batches to an external read mirror.
type BatchMirror interface {
	Publish(ctx context.Context, sport string, bucket models.Bucket, matches []models.MatchSnapshot) error
}

// Alerter sends operator notifications. May be nil.
type Alerter interface {
	Alertf(format string, args ...any)
}

// Poller owns the polling loops. Mirror, recorder and alerter are optional;
// a nil value disables that side effect.
type Poller struct {
	client   BoardFetcher
	store    *snapstore.Store
	mirror   BatchMirror
	recorder MatchRecorder
	alerter  Alerter

	sports       []string
	buckets      []models.Bucket
	liveInterval time.Duration
	lineInterval time.Duration

	streakMu       sync.Mutex
	enrichFailures map[string]int
}

// New creates a Poller over the given streams.
func New(client BoardFetcher, store *snapstore.Store, sports []string, buckets []models.Bucket) *Poller {
	return &Poller{
		client:         client,
		store:          store,
		sports:         sports,
		buckets:        buckets,
		liveInterval:   defaultLiveInterval,
		lineInterval:   defaultLineInterval,
		enrichFailures: make(map[string]int),
	}
}

// WithIntervals overrides the per-bucket polling intervals (0 keeps defaults).
func (p *Poller) WithIntervals(live, line time.Duration) *Poller {
	if live > 0 {
		p.liveInterval = live
	}
	if line > 0 {
		p.lineInterval = line
	}
	return p
}

// WithMirror attaches an external batch mirror.
func (p *Poller) WithMirror(m BatchMirror) *Poller {
	p.mirror = m
	return p
}

// WithRecorder attaches a match recorder.
func (p *Poller) WithRecorder(r MatchRecorder) *Poller {
	p.recorder = r
	return p
}

// WithAlerter attaches an operator alerter.
func (p *Poller) WithAlerter(a Alerter) *Poller {
	p.alerter = a
	return p
}

// Run starts one loop per stream and blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sport := range p.sports {
		for _, bucket := range p.buckets {
			wg.Add(1)
			go func(sport string, bucket models.Bucket) {
				defer wg.Done()
				p.runStream(ctx, sport, bucket)
			}(sport, bucket)
		}
	}
	wg.Wait()
}

// runStream polls one stream at its interval. Cycles run strictly one at a
// time per stream; a slow cycle absorbs the ticks it overlaps.
func (p *Poller) runStream(ctx context.Context, sport string, bucket models.Bucket) {
	interval := p.lineInterval
	if bucket == models.BucketLive {
		interval = p.liveInterval
	}
	slog.Info("Starting poll loop", "sport", sport, "bucket", bucket, "interval", interval)

	p.pollOnce(ctx, sport, bucket)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Poll loop stopped", "sport", sport, "bucket", bucket)
			return
		case <-ticker.C:
			p.pollOnce(ctx, sport, bucket)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, sport string, bucket models.Bucket) {
	start := time.Now()

	resp, err := p.client.FetchBoard(ctx, sport, string(bucket))
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Board poll failed", "sport", sport, "bucket", bucket, "error", err)
		}
		return
	}

	batch := feed.AdaptBatch(resp, sport, bucket)

	// Keep only matches that actually belong on this board. The vendor tags
	// rows inconsistently across endpoints, so classification decides.
	now := time.Now()
	kept := batch[:0]
	for i := range batch {
		if matchstate.MatchesBucket(&batch[i], bucket, now) {
			kept = append(kept, batch[i])
		}
	}
	batch = kept

	p.enrich(ctx, sport, bucket, batch)

	for i := range batch {
		market.FilterMarkets(&batch[i])
	}

	substituted := p.store.Publish(sport, bucket, batch)
	if p.mirror != nil && !substituted {
		if err := p.mirror.Publish(ctx, sport, bucket, batch); err != nil {
			slog.Warn("Mirror publish failed", "sport", sport, "bucket", bucket, "error", err)
		}
	}
	if p.recorder != nil {
		for i := range batch {
			if err := p.recorder.UpsertMatch(ctx, &batch[i]); err != nil {
				slog.Warn("Match upsert failed", "match_id", batch[i].MatchID, "error", err)
				break // one failure means storage is down, skip the rest of the batch
			}
		}
	}

	slog.Debug("Poll cycle complete",
		"sport", sport, "bucket", bucket, "matches", len(batch), "took", time.Since(start))
}

// enrich replaces the shallow market sets of flagged matches with their full
// per-match detail. Failures are isolated per match: a failed detail fetch
// leaves the board markets in place.
func (p *Poller) enrich(ctx context.Context, sport string, bucket models.Bucket, batch []models.MatchSnapshot) {
	candidates := market.EnrichCandidates(batch)
	if len(candidates) == 0 {
		return
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	for _, idx := range candidates {
		wg.Add(1)
		go func(snap *models.MatchSnapshot) {
			defer wg.Done()
			raw, err := p.client.FetchDetail(ctx, sport, snap.MatchID)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("Detail fetch failed", "sport", sport, "match_id", snap.MatchID, "error", err)
				}
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}
			mergeDetail(snap, raw, sport, bucket)
		}(&batch[idx])
	}
	wg.Wait()

	p.trackEnrichFailures(sport, bucket, failures, len(candidates))
}

// mergeDetail overlays the detail markets onto the board snapshot. Board data
// wins on conflicts; detail fills what the board did not carry.
func mergeDetail(snap *models.MatchSnapshot, raw *feed.RawMatch, sport string, bucket models.Bucket) {
	detail := feed.Adapt(raw, sport, bucket)

	for _, scope := range []models.Scope{models.ScopeFull, models.ScopeHalf} {
		dst := snap.Markets.At(scope)
		src := detail.Markets.At(scope)

		dst.Handicap.Lines = market.MergeLines(dst.Handicap.Lines, src.Handicap.Lines)
		dst.OverUnder.Lines = market.MergeLines(dst.OverUnder.Lines, src.OverUnder.Lines)
		if dst.Handicap.Expected == 0 {
			dst.Handicap.Expected = src.Handicap.Expected
		}
		if dst.OverUnder.Expected == 0 {
			dst.OverUnder.Expected = src.OverUnder.Expected
		}
		if dst.Moneyline == nil {
			dst.Moneyline = src.Moneyline
		}
	}

	snap.MoreMarkets = false
}

func (p *Poller) trackEnrichFailures(sport string, bucket models.Bucket, failures, attempts int) {
	key := sport + "|" + string(bucket)

	p.streakMu.Lock()
	defer p.streakMu.Unlock()

	if failures == 0 || failures < attempts {
		p.enrichFailures[key] = 0
		return
	}

	p.enrichFailures[key]++
	if p.enrichFailures[key] == enrichFailureAlertStreak && p.alerter != nil {
		p.alerter.Alertf("Enrichment failing on %s/%s: every detail fetch failed for %d consecutive cycles",
			sport, bucket, enrichFailureAlertStreak)
	}
}
