// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import "github.com/floorsense/floorsense/lib/schema/fleet"

// classify maps a candidate to its importance tier. Pure and
// deterministic: the same candidate, category, and policy always
// produce the same tier.
//
// Rule order (first match wins):
//
//  1. Category NOISE override for the event type.
//  2. First sightings are fixed MEDIUM.
//  3. Status enters a fault-like state: CRITICAL. Leaves one: HIGH.
//     Enters a degraded state (blocked): HIGH. Leaves one: MEDIUM.
//  4. Numeric (trend-enabled categories): value at or below the
//     critical band is CRITICAL; warning band while degrading is
//     HIGH; caution band while degrading is MEDIUM; improving above
//     the comfort band is LOW.
//  5. Position changes are LOW (high-frequency, low-value churn).
//  6. Everything else (unmatched status changes, cardinality
//     changes, numeric changes without trend classification, and any
//     rule fallthrough) is MEDIUM.
func (c *Collector) classify(category fleet.Category, cand candidate) Tier {
	table := c.policy.category(category)
	if table.isNoise(cand.eventType) {
		return TierNoise
	}

	switch cand.eventType {
	case EventInitial:
		return TierMedium

	case EventStatusChange:
		switch {
		case c.policy.isFault(cand.statusTo):
			return TierCritical
		case c.policy.isFault(cand.statusFrom):
			return TierHigh
		case c.policy.isDegraded(cand.statusTo):
			return TierHigh
		case c.policy.isDegraded(cand.statusFrom):
			return TierMedium
		}
		return TierMedium

	case EventNumericChange:
		if !table.NumericTrend {
			return TierMedium
		}
		bands := c.policy.Bands
		switch {
		case cand.numericValue <= bands.Critical:
			return TierCritical
		case cand.numericValue <= bands.Warning && cand.trend == TrendDegrading:
			return TierHigh
		case cand.numericValue <= bands.Caution && cand.trend == TrendDegrading:
			return TierMedium
		case cand.trend == TrendImproving && cand.numericValue > bands.Comfort:
			return TierLow
		}
		return TierMedium

	case EventPositionChange:
		return TierLow
	}

	// Cardinality changes and any unclassified extension type.
	return TierMedium
}
