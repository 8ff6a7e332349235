// Package events describes the notifications emitted after a ledger write
// commits.
package events

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entities
const (
	EntityCategory = "category"
	EntityExpense  = "expense"
	EntityBudget   = "budget"
	EntityGoal     = "savings_goal"
	EntitySettings = "settings"
)

// Operations
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerChanged announces one committed mutation. Months lists the "YYYY-MM"
// months whose reports may have changed.
type LedgerChanged struct {
	UserID    string    `json:"userId"`
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	EntityID  string    `json:"entityId"`
	Version   int64     `json:"version"`
	Months    []string  `json:"months"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events on a best-effort basis.
type Publisher interface {
	Publish(ctx context.Context, ev LedgerChanged) error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, LedgerChanged) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []LedgerChanged
}

func (r *Recorder) Publish(_ context.Context, ev LedgerChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []LedgerChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LedgerChanged(nil), r.events...)
}

// Months dedupes and sorts month keys, dropping empty ones.
func Months(keys ...string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
