package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/ledger"
)

// SettingsInput updates the display currency and optionally sets a new PIN.
type SettingsInput struct {
	BaseCurrency string `json:"baseCurrency"`
	NewPin       string `json:"newPin,omitempty"`
}

func (s *LedgerService) Settings(ctx context.Context, userID string) (core.SettingsView, error) {
	var out core.SettingsView
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		st, err := tx.Settings(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		out = st.View()
		return nil
	})
	return out, err
}

func (s *LedgerService) UpdateSettings(ctx context.Context, userID string, in SettingsInput) (core.SettingsView, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.BaseCurrency))
	if err := core.ValidateCurrency(currency); err != nil {
		return core.SettingsView{}, err
	}
	var pinHash string
	if in.NewPin != "" {
		if err := core.ValidatePin(in.NewPin); err != nil {
			return core.SettingsView{}, err
		}
		h, err := bcrypt.GenerateFromPassword([]byte(in.NewPin), bcrypt.DefaultCost)
		if err != nil {
			return core.SettingsView{}, fmt.Errorf("hash pin: %w", err)
		}
		pinHash = string(h)
	}

	var out core.SettingsView
	m := &mutation{entity: events.EntitySettings, op: events.OpUpdated, entityID: userID}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		st, err := tx.Settings(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		st.BaseCurrency = currency
		if pinHash != "" {
			st.PinHash = pinHash
		}
		if err := tx.SaveSettings(ctx, st); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		out = st.View()
		return nil
	})
	return out, err
}

// VerifyPin reports whether pin matches the stored PIN. A user without a PIN
// never verifies.
func (s *LedgerService) VerifyPin(ctx context.Context, userID, pin string) (bool, error) {
	var hash string
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		st, err := tx.Settings(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		hash = st.PinHash
		return nil
	})
	if err != nil || hash == "" {
		return false, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare pin: %w", err)
	}
}
