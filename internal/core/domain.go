package core

import (
	"regexp"
	"strings"
	"time"
)

const (
	DefaultColorHex     = "#4F46E5"
	DefaultIconName     = "Receipt"
	DefaultBaseCurrency = "INR"

	maxNameLength = 120
	maxTextLength = 500
)

var (
	colorPattern    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	pinPattern      = regexp.MustCompile(`^[0-9]{4,6}$`)
)

type (
	Category struct {
		ID                  string    `json:"id"`
		Name                string    `json:"name"`
		ColorHex            string    `json:"colorHex"`
		IconName            string    `json:"iconName"`
		LinksToSavingsGoals bool      `json:"linksToSavingsGoals"`
		CreatedAt           time.Time `json:"createdAt"`
	}

	Expense struct {
		ID            string    `json:"id"`
		Amount        Money     `json:"amount"`
		ExpenseDate   Date      `json:"expenseDate"`
		Merchant      string    `json:"merchant,omitempty"`
		Note          string    `json:"note,omitempty"`
		CategoryID    string    `json:"categoryId"`
		SavingsGoalID string    `json:"savingsGoalId,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	Budget struct {
		ID               string    `json:"id"`
		Name             string    `json:"name"`
		TotalAmount      Money     `json:"totalAmount"`
		StartDate        Date      `json:"startDate"`
		EndDate          Date      `json:"endDate"`
		RecurringMonthly bool      `json:"recurringMonthly"`
		CategoryID       string    `json:"categoryId"`
		CreatedAt        time.Time `json:"createdAt"`
	}

	SavingsGoal struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Label        string    `json:"label,omitempty"`
		TargetAmount Money     `json:"targetAmount"`
		SavedAmount  Money     `json:"savedAmount"`
		TargetDate   *Date     `json:"targetDate"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// Settings are the per-user preferences. PinHash is never serialized.
	Settings struct {
		BaseCurrency string `json:"baseCurrency"`
		PinHash      string `json:"-"`
	}
)

// Normalize trims free text and fills the display defaults.
func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.ColorHex = strings.TrimSpace(c.ColorHex)
	c.IconName = strings.TrimSpace(c.IconName)
	if c.ColorHex == "" {
		c.ColorHex = DefaultColorHex
	}
	if c.IconName == "" {
		c.IconName = DefaultIconName
	}
}

func (c Category) Validate() error {
	if c.Name == "" {
		return Validation("category name is required")
	}
	if len(c.Name) > maxNameLength {
		return Validation("category name too long (max %d characters)", maxNameLength)
	}
	if c.ColorHex != "" && !colorPattern.MatchString(c.ColorHex) {
		return Validation("colorHex must look like #RRGGBB")
	}
	return nil
}

func (e *Expense) Normalize() {
	e.Merchant = strings.TrimSpace(e.Merchant)
	e.Note = strings.TrimSpace(e.Note)
	e.CategoryID = strings.TrimSpace(e.CategoryID)
	e.SavingsGoalID = strings.TrimSpace(e.SavingsGoalID)
}

func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return Validation("amount must be positive")
	}
	if e.ExpenseDate.IsZero() {
		return Validation("expenseDate is required")
	}
	if e.CategoryID == "" {
		return Validation("categoryId is required")
	}
	if len(e.Merchant) > maxNameLength {
		return Validation("merchant too long (max %d characters)", maxNameLength)
	}
	if len(e.Note) > maxTextLength {
		return Validation("note too long (max %d characters)", maxTextLength)
	}
	return nil
}

// HasGoal reports whether the expense contributes to a savings goal.
func (e Expense) HasGoal() bool { return e.SavingsGoalID != "" }

func (b *Budget) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.CategoryID = strings.TrimSpace(b.CategoryID)
}

func (b Budget) Validate() error {
	if b.Name == "" {
		return Validation("budget name is required")
	}
	if len(b.Name) > maxNameLength {
		return Validation("budget name too long (max %d characters)", maxNameLength)
	}
	if !b.TotalAmount.IsPositive() {
		return Validation("totalAmount must be positive")
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return Validation("startDate and endDate are required")
	}
	if b.EndDate.IsBefore(b.StartDate) {
		return Validation("endDate must not be before startDate")
	}
	if b.CategoryID == "" {
		return Validation("categoryId is required")
	}
	return nil
}

// Overlaps reports whether the stored windows of two budgets intersect.
func (b Budget) Overlaps(o Budget) bool {
	return !b.EndDate.IsBefore(o.StartDate) && !o.EndDate.IsBefore(b.StartDate)
}

func (g *SavingsGoal) Normalize() {
	g.Name = strings.TrimSpace(g.Name)
	g.Label = strings.TrimSpace(g.Label)
	if g.TargetDate != nil && g.TargetDate.IsZero() {
		g.TargetDate = nil
	}
}

func (g SavingsGoal) Validate() error {
	if g.Name == "" {
		return Validation("goal name is required")
	}
	if len(g.Name) > maxNameLength {
		return Validation("goal name too long (max %d characters)", maxNameLength)
	}
	if !g.TargetAmount.IsPositive() {
		return Validation("targetAmount must be positive")
	}
	if g.SavedAmount.IsNegative() {
		return Validation("savedAmount must not be negative")
	}
	return nil
}

// DefaultSettings are used until a user saves their own.
func DefaultSettings() Settings {
	return Settings{BaseCurrency: DefaultBaseCurrency}
}

func (s Settings) PinSet() bool { return s.PinHash != "" }

// ValidateCurrency checks a three-letter upper-case currency label.
func ValidateCurrency(code string) error {
	if !currencyPattern.MatchString(code) {
		return Validation("baseCurrency must be a three-letter code")
	}
	return nil
}

func ValidatePin(pin string) error {
	if !pinPattern.MatchString(pin) {
		return Validation("PIN must be 4 to 6 digits")
	}
	return nil
}

// SameName compares entity names case-insensitively.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
