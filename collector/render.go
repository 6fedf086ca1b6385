// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"math"
	"strings"

	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// categoryLabel returns the human-readable device kind used in event
// descriptions.
func categoryLabel(c fleet.Category) string {
	switch c {
	case fleet.CategoryTransporter:
		return "Transporter"
	case fleet.CategoryStation:
		return "Station"
	case fleet.CategoryConveyor:
		return "Conveyor"
	case fleet.CategoryStorage:
		return "Storage"
	}
	return "Device"
}

// trendPhrase maps a trend to its description fragment.
func trendPhrase(t Trend) string {
	switch t {
	case TrendImproving:
		return "steadily recovering"
	case TrendDegrading:
		return "steadily falling"
	case TrendStable:
		return "holding steady"
	}
	return string(t)
}

// describe renders the deterministic natural-language description for
// a candidate. Urgency is conveyed through explicit phrases (the
// advisory clauses), never through transport-specific formatting.
func (c *Collector) describe(snapshot *fleet.Snapshot, cand candidate) string {
	label := categoryLabel(snapshot.Category)
	subject := fmt.Sprintf("%s %s", label, snapshot.DeviceID)

	switch payload := cand.payload.(type) {
	case InitialPayload:
		var b strings.Builder
		fmt.Fprintf(&b, "%s first report: status %s", subject, payload.Status)
		if payload.Location != "" {
			fmt.Fprintf(&b, ", at %s", payload.Location)
		}
		return b.String()

	case StatusChangePayload:
		var b strings.Builder
		fmt.Fprintf(&b, "%s changed from %s to %s", subject, payload.From, payload.To)
		if payload.Location != "" {
			fmt.Fprintf(&b, " at %s", payload.Location)
		}
		if charge, ok := snapshot.NumericValue(fleet.AttrCharge); ok && charge <= c.policy.Bands.Warning {
			fmt.Fprintf(&b, ", charge %.0f%% (low charge warning)", charge)
		}
		return b.String()

	case PositionChangePayload:
		from := payload.From
		if from == "" {
			from = "unknown"
		}
		description := fmt.Sprintf("%s moved from %s to %s", subject, from, payload.To)
		if payload.Target != "" && payload.Target != payload.To {
			description += fmt.Sprintf(", heading to %s", payload.Target)
		}
		return description

	case NumericChangePayload:
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s changed from %.0f to %.0f",
			subject, attributeLabel(payload.Attribute), payload.From, payload.To)
		if math.Abs(payload.Delta) >= 20 {
			direction := "rise"
			if payload.Delta < 0 {
				direction = "drop"
			}
			fmt.Fprintf(&b, " (sharp %s of %.0f)", direction, math.Abs(payload.Delta))
		}
		if cand.trend != "" {
			fmt.Fprintf(&b, ", %s", trendPhrase(cand.trend))
		}
		if payload.Attribute == fleet.AttrCharge {
			b.WriteString(chargeAdvisory(payload.To))
		}
		return b.String()

	case CardinalityChangePayload:
		switch {
		case payload.Delta > 0:
			return fmt.Sprintf("%s %s gained %d items, %d to %d",
				subject, attributeLabel(payload.Attribute), payload.Delta, payload.From, payload.To)
		default:
			return fmt.Sprintf("%s %s released %d items, %d to %d",
				subject, attributeLabel(payload.Attribute), -payload.Delta, payload.From, payload.To)
		}
	}

	return fmt.Sprintf("%s reported a %s event", subject, cand.eventType)
}

// attributeLabel converts an attribute name to its description form:
// charge_level → "charge level".
func attributeLabel(attribute string) string {
	return strings.ReplaceAll(attribute, "_", " ")
}

// chargeAdvisory appends the recharge advisory for low charge levels
// at the 5, 10, and 20 percent marks.
func chargeAdvisory(level float64) string {
	switch {
	case level <= 5:
		return " — immediate recharge required"
	case level <= 10:
		return " — urgent recharge advised"
	case level <= 20:
		return " — recharge soon"
	}
	return ""
}

// contextTags builds the event's context markers: the category label,
// the device id, and the zone when known.
func contextTags(snapshot *fleet.Snapshot) []string {
	tags := []string{categoryLabel(snapshot.Category), snapshot.DeviceID}
	if snapshot.Zone != "" {
		tags = append(tags, snapshot.Zone)
	}
	return tags
}
