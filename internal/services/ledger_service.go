package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/ledger"
	"paypulse/internal/log"
)

// savingsCategoryPattern marks categories that accept goal contributions when
// the client does not say otherwise.
var savingsCategoryPattern = regexp.MustCompile(`(?i)goal|saving`)

// LedgerService is the single entry point for ledger writes. Every operation
// runs in one store transaction, returns the freshly evaluated entity and
// announces the change once committed.
type LedgerService struct {
	store     ledger.Store
	publisher events.Publisher
	logger    *log.Logger
	audit     *log.StructuredLogger
	now       func() time.Time
	newID     func() string
}

type Option func(*LedgerService)

// WithClock overrides the wall clock used for creation times and "today".
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithIDGenerator overrides how new record ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *LedgerService) { s.newID = gen }
}

func NewLedgerService(store ledger.Store, publisher events.Publisher, logger *log.Logger, opts ...Option) *LedgerService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	s := &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		audit:     log.NewStructuredLogger(logger),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) today() core.Date { return core.DateOf(s.now().UTC()) }

// mutation collects what a committed write needs to announce.
type mutation struct {
	entity   string
	op       string
	entityID string
	months   []string
	version  int64
}

// update runs fn in a write transaction, then logs and publishes m.
func (s *LedgerService) update(ctx context.Context, userID string, m *mutation, fn func(tx ledger.Tx) error) error {
	if userID == "" {
		return core.Unauthorized("missing user")
	}
	err := s.store.Update(ctx, userID, func(tx ledger.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		v, err := tx.Version(ctx)
		if err != nil {
			return fmt.Errorf("read ledger version: %w", err)
		}
		m.version = v
		return nil
	})
	if err != nil {
		return err
	}
	s.audit.LogMutation(ctx, m.op, userID, m.entity, m.entityID, m.version)
	s.publish(ctx, userID, m)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, userID string, m *mutation) {
	months := m.months
	if len(months) == 0 {
		months = []string{s.today().MonthKey()}
	}
	ev := events.LedgerChanged{
		UserID:    userID,
		Entity:    m.entity,
		Op:        m.op,
		EntityID:  m.entityID,
		Version:   m.version,
		Months:    events.Months(months...),
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldUserID, userID,
			log.FieldEntity, m.entity,
			log.FieldVersion, m.version,
			log.FieldError, err)
	}
}

func (s *LedgerService) view(ctx context.Context, userID string, fn func(tx ledger.Tx) error) error {
	if userID == "" {
		return core.Unauthorized("missing user")
	}
	return s.store.View(ctx, userID, fn)
}

// CategoryInput is a category as submitted by a client. A nil
// LinksToSavingsGoals keeps the stored flag on update and is inferred from
// the name on create.
type CategoryInput struct {
	Name                string `json:"name"`
	ColorHex            string `json:"colorHex"`
	IconName            string `json:"iconName"`
	LinksToSavingsGoals *bool  `json:"linksToSavingsGoals"`
}

func (s *LedgerService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	var out []core.Category
	err := s.view(ctx, userID, func(tx ledger.Tx) (err error) {
		out, err = tx.Categories(ctx)
		return err
	})
	return out, err
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID string, in CategoryInput) (core.Category, error) {
	c := core.Category{
		ID:        s.newID(),
		Name:      in.Name,
		ColorHex:  in.ColorHex,
		IconName:  in.IconName,
		CreatedAt: s.now().UTC(),
	}
	c.Normalize()
	if in.LinksToSavingsGoals != nil {
		c.LinksToSavingsGoals = *in.LinksToSavingsGoals
	} else {
		c.LinksToSavingsGoals = savingsCategoryPattern.MatchString(c.Name)
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	m := &mutation{entity: events.EntityCategory, op: events.OpCreated, entityID: c.ID}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		return tx.CreateCategory(ctx, c)
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, userID, id string, in CategoryInput) (core.Category, error) {
	var out core.Category
	m := &mutation{entity: events.EntityCategory, op: events.OpUpdated, entityID: id}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		c, err := tx.Category(ctx, id)
		if err != nil {
			return err
		}
		c.Name, c.ColorHex, c.IconName = in.Name, in.ColorHex, in.IconName
		if in.LinksToSavingsGoals != nil {
			c.LinksToSavingsGoals = *in.LinksToSavingsGoals
		}
		c.Normalize()
		if err := c.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateCategory(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// DeleteCategory removes a category. A category still used by expenses or
// budgets is only deleted when reassignTo names another category, in which
// case every reference is repointed first.
func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id, reassignTo string) error {
	m := &mutation{entity: events.EntityCategory, op: events.OpDeleted, entityID: id}
	return s.update(ctx, userID, m, func(tx ledger.Tx) error {
		if _, err := tx.Category(ctx, id); err != nil {
			return err
		}
		if reassignTo != "" {
			if reassignTo == id {
				return core.Validation("cannot reassign a category to itself")
			}
			if _, err := tx.Category(ctx, reassignTo); err != nil {
				return err
			}
		}
		usage, err := tx.CategoryUsage(ctx, id)
		if err != nil {
			return fmt.Errorf("category usage: %w", err)
		}
		if usage.InUse() {
			if reassignTo == "" {
				return core.Conflict("category is used by %d expenses and %d budgets", usage.Expenses, usage.Budgets)
			}
			if err := tx.ReassignCategory(ctx, id, reassignTo); err != nil {
				return fmt.Errorf("reassign category: %w", err)
			}
		}
		return tx.DeleteCategory(ctx, id)
	})
}
