// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"sort"
	"time"
)

// tieredStore is the bounded event log: one sequence per importance
// tier, each ordered by ascending timestamp, plus a global cap across
// all tiers. Not safe for concurrent use on its own; the Collector's
// lock guards it.
type tieredStore struct {
	caps  RetentionCaps
	tiers map[Tier][]*Event
}

func newTieredStore(caps RetentionCaps) *tieredStore {
	return &tieredStore{
		caps:  caps,
		tiers: make(map[Tier][]*Event, 4),
	}
}

// append inserts the event into its tier sequence. Events arrive in
// clock order (single writer, monotonic clock), so the per-tier
// ascending-timestamp invariant holds without sorting.
func (s *tieredStore) append(event *Event) {
	s.tiers[event.Tier] = append(s.tiers[event.Tier], event)
}

// maintain enforces the retention caps: each tier keeps its most
// recent cap of events, then the chronologically merged store is
// truncated to the global cap, dropping the oldest across tiers.
// Runs inline after every append so worst-case memory is bounded
// regardless of ingestion burst size.
func (s *tieredStore) maintain() {
	truncate := func(tier Tier, cap int) {
		events := s.tiers[tier]
		if len(events) > cap {
			s.tiers[tier] = append([]*Event(nil), events[len(events)-cap:]...)
		}
	}
	truncate(TierCritical, s.caps.Critical)
	truncate(TierHigh, s.caps.High)
	truncate(TierMedium, s.caps.Medium)
	truncate(TierLow, s.caps.Low)

	total := s.size()
	if total <= s.caps.Global {
		return
	}

	merged := s.merged()
	drop := merged[:total-s.caps.Global]
	dropped := make(map[*Event]bool, len(drop))
	for _, event := range drop {
		dropped[event] = true
	}
	for tier, events := range s.tiers {
		kept := events[:0]
		for _, event := range events {
			if !dropped[event] {
				kept = append(kept, event)
			}
		}
		s.tiers[tier] = kept
	}
}

// size returns the total stored event count across tiers.
func (s *tieredStore) size() int {
	total := 0
	for _, events := range s.tiers {
		total += len(events)
	}
	return total
}

// merged returns all stored events sorted by ascending timestamp.
// The sort is stable on the merge order so ties cannot reorder a
// tier's internal sequence.
func (s *tieredStore) merged() []*Event {
	merged := make([]*Event, 0, s.size())
	for _, tier := range []Tier{TierCritical, TierHigh, TierMedium, TierLow} {
		merged = append(merged, s.tiers[tier]...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// recent returns up to count events, most recent last.
func (s *tieredStore) recent(count int) []*Event {
	merged := s.merged()
	if count > 0 && len(merged) > count {
		merged = merged[len(merged)-count:]
	}
	return merged
}

// filtered returns up to count events at or above minTier, most
// recent last.
func (s *tieredStore) filtered(count int, minTier Tier) []*Event {
	merged := s.merged()
	matching := make([]*Event, 0, len(merged))
	for _, event := range merged {
		if event.Tier >= minTier {
			matching = append(matching, event)
		}
	}
	if count > 0 && len(matching) > count {
		matching = matching[len(matching)-count:]
	}
	return matching
}

// inWindow returns the events with timestamps at or after since, most
// recent last.
func (s *tieredStore) inWindow(since time.Time) []*Event {
	merged := s.merged()
	matching := make([]*Event, 0, len(merged))
	for _, event := range merged {
		if !event.Timestamp.Before(since) {
			matching = append(matching, event)
		}
	}
	return matching
}
