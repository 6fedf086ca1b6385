// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"math"
	"sort"

	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// detectChanges diffs the previous and new snapshots and returns the
// candidate events, in a deterministic order (status, position,
// numerics by attribute name, cardinalities by attribute name).
//
// A nil previous state yields exactly one initial candidate: first
// sightings perform no numeric or positional diff.
func (c *Collector) detectChanges(previous *deviceState, next *fleet.Snapshot) []candidate {
	table := c.policy.category(next.Category)

	if previous == nil {
		return []candidate{{
			eventType: EventInitial,
			payload: InitialPayload{
				Status:   next.Status,
				Location: next.Location,
				Charge:   next.Numeric[fleet.AttrCharge],
			},
			statusTo: next.Status,
		}}
	}

	prior := previous.snapshot
	var candidates []candidate

	if prior.Status != next.Status {
		candidates = append(candidates, candidate{
			eventType: EventStatusChange,
			payload: StatusChangePayload{
				From:     prior.Status,
				To:       next.Status,
				Location: next.Location,
			},
			statusFrom: prior.Status,
			statusTo:   next.Status,
		})
	}

	if table.TrackPosition && prior.Location != next.Location {
		candidates = append(candidates, candidate{
			eventType: EventPositionChange,
			payload: PositionChangePayload{
				From:   prior.Location,
				To:     next.Location,
				Target: next.Target,
			},
		})
	}

	for _, attribute := range sortedKeys(table.NumericThresholds) {
		threshold := table.NumericThresholds[attribute]
		oldValue, hadOld := prior.NumericValue(attribute)
		newValue, hasNew := next.NumericValue(attribute)
		if !hadOld || !hasNew {
			continue
		}
		delta := newValue - oldValue
		// Sub-threshold changes never reach the classifier.
		if math.Abs(delta) < threshold {
			continue
		}
		candidates = append(candidates, candidate{
			eventType: EventNumericChange,
			payload: NumericChangePayload{
				Attribute: attribute,
				From:      oldValue,
				To:        newValue,
				Delta:     delta,
			},
			numericValue: newValue,
		})
	}

	for _, attribute := range table.TrackedLists {
		oldCount, hadOld := prior.ListCount(attribute)
		newCount, hasNew := next.ListCount(attribute)
		if !hadOld && !hasNew {
			continue
		}
		if oldCount == newCount {
			continue
		}
		candidates = append(candidates, candidate{
			eventType: EventCardinalityChange,
			payload: CardinalityChangePayload{
				Attribute: attribute,
				From:      oldCount,
				To:        newCount,
				Delta:     newCount - oldCount,
			},
		})
	}

	return candidates
}

// sortedKeys returns the map's keys in ascending order so detection
// output is deterministic regardless of map iteration order.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
