// Package selection decides which wagering accounts may receive the next
// order and in what sequence. It partitions the user's account pool into
// eligible and excluded entries and orders the eligible ones by a
// load-balancing heuristic; exclusions are data, never errors, so the
// console can render why an account was skipped.
package selection

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

// AccountSource provides account rows and prior order records.
type AccountSource interface {
	// AccountsForUser returns every wagering account owned by the user.
	AccountsForUser(ctx context.Context, userID int64) ([]models.WageringAccount, error)

	// InternalMatchID resolves a vendor match id to the internal one.
	// Returns 0 when the match is unknown.
	InternalMatchID(ctx context.Context, externalID string) (int64, error)

	// OrdersForMatch returns the user's non-cancelled orders on a match,
	// joined to the ordering account's username pair.
	OrdersForMatch(ctx context.Context, userID, matchID int64) ([]models.OrderRecord, error)
}

// LedgerSource provides summed usage since a boundary.
type LedgerSource interface {
	// StakesSince returns per-account summed stake of non-cancelled orders
	// created at or after the boundary.
	StakesSince(ctx context.Context, userID int64, accountIDs []int64, since time.Time) (map[int64]float64, error)

	// ProfitSince returns per-account summed settled profit/loss for orders
	// settled at or after the boundary.
	ProfitSince(ctx context.Context, userID int64, accountIDs []int64, since time.Time) (map[int64]float64, error)
}

// Result is one selection response. Excluded is never truncated: it is the
// diagnostic half of the answer.
type Result struct {
	Eligible   []models.AccountSelectionEntry `json:"eligible"`
	Excluded   []models.AccountSelectionEntry `json:"excluded"`
	Total      int                            `json:"total"`
	Boundaries Boundaries                     `json:"boundaries"`
}

// StopProfitNotifier receives an alert when an account hits its daily stop
// profit limit.
type StopProfitNotifier interface {
	StopProfitAlert(account *models.WageringAccount, dailyProfit float64)
}

// stopProfitAlertCooldown suppresses repeat alerts for the same account.
const stopProfitAlertCooldown = time.Hour

// Engine computes account selections. The pure partitioning logic lives in
// Partition; Engine adds boundary computation and the storage fan-out.
type Engine struct {
	accounts AccountSource
	ledger   LedgerSource
	now      func() time.Time

	notifier  StopProfitNotifier
	alertMu   sync.Mutex
	lastAlert map[int64]time.Time
}

// NewEngine creates an Engine over the given collaborators.
func NewEngine(accounts AccountSource, ledger LedgerSource) *Engine {
	return &Engine{
		accounts:  accounts,
		ledger:    ledger,
		now:       time.Now,
		lastAlert: make(map[int64]time.Time),
	}
}

// WithNotifier attaches a stop profit notifier.
func (e *Engine) WithNotifier(n StopProfitNotifier) *Engine {
	e.notifier = n
	return e
}

// Select computes the ranked, partitioned account set for one intended wager.
// matchID may be empty (no line-conflict scan); limit > 0 truncates the
// eligible list after ordering. Storage failures are surfaced as hard errors;
// an empty pool is not an error.
func (e *Engine) Select(ctx context.Context, userID int64, matchID string, limit int) (*Result, error) {
	b := ComputeBoundaries(e.now())

	accounts, err := e.accounts.AccountsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	if len(accounts) == 0 {
		return &Result{Boundaries: b}, nil
	}

	ids := make([]int64, len(accounts))
	for i := range accounts {
		ids[i] = accounts[i].ID
	}

	// The aggregation reads are independent; run them concurrently and join
	// before the pure logic.
	var (
		dailyStakes  map[int64]float64
		dailyProfit  map[int64]float64
		weeklyProfit map[int64]float64
		conflicted   map[string]bool

		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	run := func(name string, f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", name, err)
				}
				mu.Unlock()
			}
		}()
	}

	run("daily stakes", func() error {
		var err error
		dailyStakes, err = e.ledger.StakesSince(ctx, userID, ids, b.Daily)
		return err
	})
	run("daily profit", func() error {
		var err error
		dailyProfit, err = e.ledger.ProfitSince(ctx, userID, ids, b.Daily)
		return err
	})
	run("weekly profit", func() error {
		var err error
		weeklyProfit, err = e.ledger.ProfitSince(ctx, userID, ids, b.Weekly)
		return err
	})
	if matchID != "" {
		run("line conflicts", func() error {
			var err error
			conflicted, err = e.conflictedLineKeys(ctx, userID, matchID)
			return err
		})
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	usage := make(map[int64]models.UsageAggregate, len(accounts))
	for _, id := range ids {
		usage[id] = models.UsageAggregate{
			DailyEffectiveAmount: dailyStakes[id],
			DailyProfit:          dailyProfit[id],
			WeeklyProfit:         weeklyProfit[id],
		}
	}

	result := Partition(accounts, usage, conflicted, matchID != "", limit)
	result.Boundaries = b
	e.alertStopProfits(result.Excluded)
	return result, nil
}

// alertStopProfits notifies about newly capped accounts, at most once per
// account per cooldown window.
func (e *Engine) alertStopProfits(excluded []models.AccountSelectionEntry) {
	if e.notifier == nil {
		return
	}

	now := e.now()
	e.alertMu.Lock()
	defer e.alertMu.Unlock()

	for i := range excluded {
		entry := &excluded[i]
		if !entry.StopProfitReached {
			continue
		}
		if last, ok := e.lastAlert[entry.Account.ID]; ok && now.Sub(last) < stopProfitAlertCooldown {
			continue
		}
		e.lastAlert[entry.Account.ID] = now
		e.notifier.StopProfitAlert(&entry.Account, entry.Usage.DailyProfit)
	}
}

// conflictedLineKeys collects every credential-family key that already has a
// non-cancelled order on the match.
func (e *Engine) conflictedLineKeys(ctx context.Context, userID int64, externalMatchID string) (map[string]bool, error) {
	internalID, err := e.accounts.InternalMatchID(ctx, externalMatchID)
	if err != nil {
		return nil, err
	}
	if internalID == 0 {
		return nil, nil
	}
	orders, err := e.accounts.OrdersForMatch(ctx, userID, internalID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(orders))
	for i := range orders {
		if orders[i].Cancelled {
			continue
		}
		keys[orders[i].LineKey()] = true
	}
	return keys, nil
}

// Partition is the pure half of the engine: flags every account, splits the
// pool into eligible/excluded, orders the eligible accounts and applies the
// limit. When perMatch is set, at most one account per line key stays
// eligible — one wager per credential line per match, enforced before any
// order exists.
func Partition(accounts []models.WageringAccount, usage map[int64]models.UsageAggregate, conflictedKeys map[string]bool, perMatch bool, limit int) *Result {
	entries := make([]models.AccountSelectionEntry, 0, len(accounts))
	for _, a := range accounts {
		u := usage[a.ID]
		entries = append(entries, models.AccountSelectionEntry{
			Account:           a,
			Usage:             u,
			Offline:           !a.Online,
			StopProfitReached: a.StopProfitLimit > 0 && u.DailyProfit >= a.StopProfitLimit,
			LineConflicted:    conflictedKeys[a.LineKey()],
		})
	}

	var eligible, excluded []models.AccountSelectionEntry
	for _, e := range entries {
		if e.Eligible() {
			eligible = append(eligible, e)
		} else {
			excluded = append(excluded, e)
		}
	}

	// Least-used first to spread volume, currently-losing first within a
	// tie, account id as the deterministic anchor.
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := &eligible[i], &eligible[j]
		if a.Usage.DailyEffectiveAmount != b.Usage.DailyEffectiveAmount {
			return a.Usage.DailyEffectiveAmount < b.Usage.DailyEffectiveAmount
		}
		if a.Usage.LossBucket() != b.Usage.LossBucket() {
			return a.Usage.LossBucket() < b.Usage.LossBucket()
		}
		return a.Account.ID < b.Account.ID
	})

	if perMatch {
		seen := make(map[string]bool)
		deduped := eligible[:0]
		for _, e := range eligible {
			k := e.Account.LineKey()
			if seen[k] {
				e.LineConflicted = true
				excluded = append(excluded, e)
				continue
			}
			seen[k] = true
			deduped = append(deduped, e)
		}
		eligible = deduped
	}

	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}

	return &Result{
		Eligible: eligible,
		Excluded: excluded,
		Total:    len(accounts),
	}
}
