package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"paypulse/internal/events"
)

// NewLedgerChangedMessage stamps an event with the current time when it has
// none.
func NewLedgerChangedMessage(ev events.LedgerChanged) events.LedgerChanged {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev
}

// ToJSON converts the message to JSON bytes
func ToJSON(ev events.LedgerChanged) ([]byte, error) {
	return json.Marshal(ev)
}

// LedgerChangedFromJSON decodes a message body. Messages without a user are
// rejected since the worker cannot scope them.
func LedgerChangedFromJSON(data []byte) (events.LedgerChanged, error) {
	var ev events.LedgerChanged
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, err
	}
	if ev.UserID == "" {
		return ev, errors.New("message has no userId")
	}
	return ev, nil
}
