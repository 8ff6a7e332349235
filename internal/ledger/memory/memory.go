// Package memory is an in-process ledger store. Each user's ledger is an
// immutable snapshot replaced wholesale on commit, so readers never observe a
// half-applied write.
package memory

import (
	"context"
	"sync"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
)

type book struct {
	version    int64
	settings   core.Settings
	categories map[string]core.Category
	expenses   map[string]core.Expense
	budgets    map[string]core.Budget
	goals      map[string]core.SavingsGoal
}

func newBook() *book {
	return &book{
		settings:   core.DefaultSettings(),
		categories: map[string]core.Category{},
		expenses:   map[string]core.Expense{},
		budgets:    map[string]core.Budget{},
		goals:      map[string]core.SavingsGoal{},
	}
}

func (b *book) clone() *book {
	c := &book{
		version:    b.version,
		settings:   b.settings,
		categories: make(map[string]core.Category, len(b.categories)),
		expenses:   make(map[string]core.Expense, len(b.expenses)),
		budgets:    make(map[string]core.Budget, len(b.budgets)),
		goals:      make(map[string]core.SavingsGoal, len(b.goals)),
	}
	for k, v := range b.categories {
		c.categories[k] = v
	}
	for k, v := range b.expenses {
		c.expenses[k] = v
	}
	for k, v := range b.budgets {
		c.budgets[k] = v
	}
	for k, v := range b.goals {
		if v.TargetDate != nil {
			d := *v.TargetDate
			v.TargetDate = &d
		}
		c.goals[k] = v
	}
	return c
}

type slot struct {
	mu   sync.RWMutex
	book *book
}

type Store struct {
	mu    sync.Mutex
	users map[string]*slot
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: map[string]*slot{}}
}

func (s *Store) slot(userID string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.users[userID]
	if !ok {
		sl = &slot{book: newBook()}
		s.users[userID] = sl
	}
	return sl
}

func (s *Store) View(ctx context.Context, userID string, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sl := s.slot(userID)
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return fn(&tx{userID: userID, book: sl.book, readOnly: true})
}

func (s *Store) Update(ctx context.Context, userID string, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sl := s.slot(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	draft := sl.book.clone()
	draft.version++
	if err := fn(&tx{userID: userID, book: draft}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sl.book = draft
	return nil
}

func (s *Store) Close() error { return nil }
