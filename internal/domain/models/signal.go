package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// OpportunitySignal is the immutable unit of data flowing through the
// pipeline. It is created once by a scout, copied by value across the broker
// boundary and never mutated; corrections are new signals with new ids.
type OpportunitySignal struct {
	ID         string                 `json:"id" validate:"required"`
	ScoutName  string                 `json:"scout_name" validate:"required"`
	SignalType string                 `json:"signal_type"`
	Symbol     string                 `json:"symbol" validate:"required"`
	Confidence float64                `json:"confidence"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp" validate:"required"`
	ExpiresAt  *time.Time             `json:"expires_at,omitempty"`
}

// NewSignal stamps id, timestamp and expiry and clamps confidence to [0,1].
// A zero validFor leaves the signal without expiry.
func NewSignal(scoutName, signalType, symbol string, confidence float64, data map[string]interface{}, validFor time.Duration) *OpportunitySignal {
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	now := time.Now().UTC()
	s := &OpportunitySignal{
		ID:         uuid.NewString(),
		ScoutName:  scoutName,
		SignalType: signalType,
		Symbol:     symbol,
		Confidence: confidence,
		Data:       data,
		Timestamp:  now,
	}
	if validFor > 0 {
		expires := now.Add(validFor)
		s.ExpiresAt = &expires
	}
	return s
}

// Expired reports whether the signal is stale at the given instant. Signals
// without expiry never expire.
func (s *OpportunitySignal) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

var validate = validator.New()

// Validate checks the required wire fields (id, scout_name, symbol,
// timestamp). A payload failing this check can never become valid by retrying.
func (s *OpportunitySignal) Validate() error {
	return validate.Struct(s)
}
