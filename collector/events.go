// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"time"

	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// Tier is the ordinal importance classification of an event. Higher
// tiers are retained longer and suppressed less aggressively.
type Tier int

const (
	// TierNoise marks events that carry no information for the
	// downstream consumer. Noise is always suppressed and never
	// stored.
	TierNoise Tier = 0

	// TierLow covers routine high-frequency changes (position churn).
	TierLow Tier = 1

	// TierMedium is the default tier for ordinary state changes.
	TierMedium Tier = 2

	// TierHigh covers conditions that need attention soon (fault
	// recovery, degrading charge in the warning band, blockages).
	TierHigh Tier = 3

	// TierCritical covers conditions that need immediate handling.
	// Critical events bypass rate-limiting entirely.
	TierCritical Tier = 4
)

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierNoise:
		return "noise"
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	}
	return "unknown"
}

// EventType tags the kind of change an event describes.
type EventType string

const (
	// EventInitial is a device's first sighting.
	EventInitial EventType = "initial"

	// EventStatusChange is a change of the device's status label.
	EventStatusChange EventType = "status-change"

	// EventPositionChange is a change of a device's logical location.
	EventPositionChange EventType = "position-change"

	// EventNumericChange is a change of a tracked numeric attribute
	// at or above its configured threshold.
	EventNumericChange EventType = "numeric-change"

	// EventCardinalityChange is a change in the item count of a
	// tracked list attribute.
	EventCardinalityChange EventType = "cardinality-change"
)

// Trend classifies the recent trajectory of a numeric attribute.
type Trend string

const (
	// TrendStable means the attribute is holding roughly level, or
	// there is not enough history to say otherwise.
	TrendStable Trend = "stable"

	// TrendImproving means the attribute is rising faster than the
	// policy slope.
	TrendImproving Trend = "improving"

	// TrendDegrading means the attribute is falling faster than the
	// policy slope.
	TrendDegrading Trend = "degrading"
)

// Payload is the closed set of type-specific event payloads. Exactly
// one variant per event type, plus GenericPayload for unclassified
// extension types.
type Payload interface {
	isPayload()
}

// InitialPayload accompanies EventInitial.
type InitialPayload struct {
	Status   string  `json:"status"`
	Location string  `json:"location,omitempty"`
	Charge   float64 `json:"charge,omitempty"`
}

// StatusChangePayload accompanies EventStatusChange.
type StatusChangePayload struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Location string `json:"location,omitempty"`
}

// PositionChangePayload accompanies EventPositionChange.
type PositionChangePayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Target string `json:"target,omitempty"`
}

// NumericChangePayload accompanies EventNumericChange.
type NumericChangePayload struct {
	Attribute string  `json:"attribute"`
	From      float64 `json:"from"`
	To        float64 `json:"to"`
	Delta     float64 `json:"delta"`
}

// CardinalityChangePayload accompanies EventCardinalityChange.
type CardinalityChangePayload struct {
	Attribute string `json:"attribute"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Delta     int    `json:"delta"`
}

// GenericPayload carries unclassified extension event data.
type GenericPayload map[string]any

func (InitialPayload) isPayload()           {}
func (StatusChangePayload) isPayload()      {}
func (PositionChangePayload) isPayload()    {}
func (NumericChangePayload) isPayload()     {}
func (CardinalityChangePayload) isPayload() {}
func (GenericPayload) isPayload()           {}

// Event is a classified, retained change. Immutable once created;
// destroyed only by tiered eviction.
type Event struct {
	// Type tags the kind of change.
	Type EventType

	// DeviceID is the unqualified device identifier.
	DeviceID string

	// Zone is the device's production zone, if known.
	Zone string

	// Category is the device kind.
	Category fleet.Category

	// Timestamp is the emission time (engine clock, not the device
	// snapshot timestamp).
	Timestamp time.Time

	// Tier is the classified importance.
	Tier Tier

	// Payload carries the type-specific before/after values.
	Payload Payload

	// Description is the deterministic natural-language rendering.
	Description string

	// Tags are context markers: category, device id, zone.
	Tags []string

	// Trend is set for numeric-change events, empty otherwise.
	Trend Trend
}

// candidate is a detected but not-yet-classified change. Candidates
// are ephemeral: produced by the change detector, consumed
// immediately by classification, never stored.
type candidate struct {
	eventType EventType
	payload   Payload

	// numericValue and trend are set for numeric candidates and feed
	// band classification.
	numericValue float64
	trend        Trend

	// statusFrom/statusTo are set for status candidates.
	statusFrom string
	statusTo   string
}
