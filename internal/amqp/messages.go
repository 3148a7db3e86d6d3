package amqp

import (
	"encoding/json"
	"time"

	"footprint/internal/core"
)

// RecomputeMessage asks the worker to refresh the trailing-12-month average
// for one household consumption stream. It carries only the identifiers; the
// worker fetches the events itself, so a stale or duplicated message is
// harmless.
type RecomputeMessage struct {
	HouseholdID int64         `json:"household_id"`
	Category    core.Category `json:"category"`
	Timestamp   time.Time     `json:"timestamp"`
}

// NewRecomputeMessage creates a recompute request for one stream.
func NewRecomputeMessage(householdID int64, category core.Category) *RecomputeMessage {
	return &RecomputeMessage{
		HouseholdID: householdID,
		Category:    category,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecomputeMessageFromJSON creates a message from JSON bytes
func RecomputeMessageFromJSON(data []byte) (*RecomputeMessage, error) {
	var msg RecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
