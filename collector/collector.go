// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/floorsense/floorsense/lib/clock"
	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// Collector is the engine. One instance owns all mutable state for a
// fleet: the latest snapshot per device, the rolling numeric history,
// the dedupe cache, and the tiered event store.
//
// Concurrency: ingestion is serialized under the write lock; the
// whole component is a single logical owner of its state, so
// concurrent transport callbacks cannot interleave a device's
// before/after diff. Queries take the read lock and may run
// concurrently with each other. No method blocks or performs I/O;
// maintenance runs inline with each append.
type Collector struct {
	clock  clock.Clock
	logger *slog.Logger
	policy Policy
	zones  []string

	mu      sync.RWMutex
	states  map[string]*deviceState
	history map[string][]historySample
	dedupe  map[string]time.Time
	store   *tieredStore

	ingested   uint64
	malformed  uint64
	suppressed uint64
}

// Config holds the parameters for creating a Collector.
type Config struct {
	// Clock provides all timestamps: event emission times and
	// suppression window arithmetic. Required.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger

	// Policy is the full tuning table. The zero value selects
	// DefaultPolicy.
	Policy Policy

	// Zones is the configured registry of production zone IDs. Zones
	// listed here appear in the overview even before any device in
	// them reports; zones observed on snapshots are always included.
	Zones []string
}

// New creates a Collector. Returns an error if the configuration is
// unusable.
func New(cfg Config) (*Collector, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("collector: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("collector: Logger is required")
	}

	policy := cfg.Policy
	if policy.Categories == nil {
		policy = DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Collector{
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		policy:  policy,
		zones:   append([]string(nil), cfg.Zones...),
		states:  make(map[string]*deviceState),
		history: make(map[string][]historySample),
		dedupe:  make(map[string]time.Time),
		store:   newTieredStore(policy.Retention),
	}, nil
}

// UpdateTransporter ingests a transporter snapshot.
func (c *Collector) UpdateTransporter(snapshot fleet.Snapshot) error {
	return c.ingest(snapshot, fleet.CategoryTransporter)
}

// UpdateStation ingests a processing-station snapshot.
func (c *Collector) UpdateStation(snapshot fleet.Snapshot) error {
	return c.ingest(snapshot, fleet.CategoryStation)
}

// UpdateConveyor ingests a conveyor snapshot.
func (c *Collector) UpdateConveyor(snapshot fleet.Snapshot) error {
	return c.ingest(snapshot, fleet.CategoryConveyor)
}

// UpdateStorage ingests a storage-buffer snapshot. Storage devices
// that omit a status report as "active".
func (c *Collector) UpdateStorage(snapshot fleet.Snapshot) error {
	if snapshot.Status == "" {
		snapshot.Status = fleet.StatusActive
	}
	return c.ingest(snapshot, fleet.CategoryStorage)
}

// Ingest routes a snapshot to the entry point for its declared
// category. The transport calls this after decoding a frame.
func (c *Collector) Ingest(snapshot fleet.Snapshot) error {
	switch snapshot.Category {
	case fleet.CategoryTransporter:
		return c.UpdateTransporter(snapshot)
	case fleet.CategoryStation:
		return c.UpdateStation(snapshot)
	case fleet.CategoryConveyor:
		return c.UpdateConveyor(snapshot)
	case fleet.CategoryStorage:
		return c.UpdateStorage(snapshot)
	}
	c.countMalformed()
	return fmt.Errorf("collector: %w: unknown category %q", fleet.ErrMalformedSnapshot, snapshot.Category)
}

// ingest is the single write path. A validation failure leaves all
// state untouched; a valid snapshot always replaces the stored state
// (last-write-wins), independent of whether any candidate survives
// suppression.
func (c *Collector) ingest(snapshot fleet.Snapshot, category fleet.Category) error {
	if snapshot.Category == "" {
		snapshot.Category = category
	}
	if snapshot.Category != category {
		c.countMalformed()
		return fmt.Errorf("collector: %w: category %q on the %s entry point",
			fleet.ErrMalformedSnapshot, snapshot.Category, category)
	}
	if err := snapshot.Validate(); err != nil {
		c.countMalformed()
		return fmt.Errorf("collector: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	key := snapshot.Key()
	previous := c.states[key]

	candidates := c.detectChanges(previous, &snapshot)

	for i := range candidates {
		cand := &candidates[i]

		// Trend is classified before the new sample lands in
		// history, so it reflects the trajectory up to this value.
		if payload, ok := cand.payload.(NumericChangePayload); ok {
			cand.trend = c.classifyTrend(key, payload.Attribute, payload.To)
		}

		tier := c.classify(snapshot.Category, *cand)
		dedupeKey := c.dedupeKey(key, *cand)
		if c.shouldSuppress(dedupeKey, tier, now) {
			c.suppressed++
			c.logger.Debug("event suppressed",
				"device", key,
				"type", cand.eventType,
				"tier", tier.String(),
			)
			continue
		}

		event := &Event{
			Type:        cand.eventType,
			DeviceID:    snapshot.DeviceID,
			Zone:        snapshot.Zone,
			Category:    snapshot.Category,
			Timestamp:   now,
			Tier:        tier,
			Payload:     cand.payload,
			Description: c.describe(&snapshot, *cand),
			Tags:        contextTags(&snapshot),
			Trend:       cand.trend,
		}

		c.dedupe[dedupeKey] = now
		c.store.append(event)
		c.store.maintain()
		c.pruneDedupe(now)
	}

	// Replace the stored snapshot unconditionally, then record
	// history after all trends were classified against the prior
	// window.
	c.states[key] = &deviceState{snapshot: snapshot, updated: now}
	c.recordHistory(key, now, snapshot.Numeric)
	c.ingested++

	return nil
}

// countMalformed bumps the malformed counter under the write lock.
// Validation failures never touch any other state.
func (c *Collector) countMalformed() {
	c.mu.Lock()
	c.malformed++
	c.mu.Unlock()
}

// GetRecentEvents returns up to count stored events, most recent
// last. Pure read.
func (c *Collector) GetRecentEvents(count int) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyEvents(c.store.recent(count))
}

// GetFilteredEvents returns up to count stored events with tier at or
// above minTier, most recent last. Pure read.
func (c *Collector) GetFilteredEvents(count int, minTier Tier) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyEvents(c.store.filtered(count, minTier))
}

// Stats is a snapshot of the engine's operational counters.
type Stats struct {
	Ingested   uint64 `json:"ingested"`
	Malformed  uint64 `json:"malformed"`
	Suppressed uint64 `json:"suppressed"`
	Stored     int    `json:"stored"`
	Devices    int    `json:"devices"`
}

// GetStats returns the operational counters. Pure read.
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Ingested:   c.ingested,
		Malformed:  c.malformed,
		Suppressed: c.suppressed,
		Stored:     c.store.size(),
		Devices:    len(c.states),
	}
}

// copyEvents converts stored event pointers into caller-owned values.
func copyEvents(events []*Event) []Event {
	copied := make([]Event, len(events))
	for i, event := range events {
		copied[i] = *event
		copied[i].Tags = append([]string(nil), event.Tags...)
	}
	return copied
}
