// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// summaryHighlights is the maximum number of event descriptions quoted
// per tier group in a natural-language summary.
const summaryHighlights = 3

// DeviceBrief is the per-device line in a zone summary.
type DeviceBrief struct {
	Status   string  `json:"status"`
	Charge   float64 `json:"charge,omitempty"`
	Location string  `json:"location,omitempty"`
	Payload  int     `json:"payload,omitempty"`
	Buffered int     `json:"buffered,omitempty"`
}

// ZoneSummary describes one production zone: every known device
// grouped by category, the total buffered product count across its
// stations and conveyors, and any conditions needing attention.
type ZoneSummary struct {
	Zone          string                 `json:"zone"`
	Transporters  map[string]DeviceBrief `json:"transporters"`
	Stations      map[string]DeviceBrief `json:"stations"`
	Conveyors     map[string]DeviceBrief `json:"conveyors"`
	TotalBuffered int                    `json:"total_buffered"`
	UrgentIssues  []string               `json:"urgent_issues"`
}

// Overview is the fleet-wide structured summary: device counts per
// category, one ZoneSummary per known zone, and the union of all zone
// urgent issues.
type Overview struct {
	Transporters int                    `json:"transporters"`
	Stations     int                    `json:"stations"`
	Conveyors    int                    `json:"conveyors"`
	Storage      int                    `json:"storage"`
	Zones        map[string]ZoneSummary `json:"zones"`
	UrgentIssues []string               `json:"urgent_issues"`
}

// ContextEvent is the event shape carried inside a Context digest:
// the fields a language-model consumer needs, without the internal
// payload variants.
type ContextEvent struct {
	Type        EventType `json:"type"`
	Description string    `json:"description"`
	Tier        Tier      `json:"tier"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    string    `json:"device_id"`
	Tags        []string  `json:"tags"`
}

// Context is the bounded digest assembled for the downstream
// consumer.
type Context struct {
	Overview     Overview       `json:"overview"`
	RecentEvents []ContextEvent `json:"recent_events"`
	Summary      string         `json:"summary"`
	UrgentIssues []string       `json:"urgent_issues"`
}

// GetSummary returns a natural-language digest of retained events in
// the trailing window. Events are grouped by tier and the most severe
// populated group wins: up to three of the most recent CRITICAL
// descriptions, else up to three HIGH, else up to three MEDIUM. A
// window holding only LOW events, or nothing at all, yields a static
// nominal-operation message. A window <= 0 means the policy's
// SummaryWindow. Pure read.
func (c *Collector) GetSummary(window time.Duration) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if window <= 0 {
		window = c.policy.SummaryWindow
	}
	return c.summarize(window)
}

// summarize is GetSummary without the lock, for reuse inside
// buildContext.
func (c *Collector) summarize(window time.Duration) string {
	recent := c.store.inWindow(c.clock.Now().Add(-window))
	if len(recent) == 0 {
		return "Floor operating normally, no notable events."
	}

	byTier := make(map[Tier][]*Event)
	for _, event := range recent {
		byTier[event.Tier] = append(byTier[event.Tier], event)
	}

	type group struct {
		tier    Tier
		heading string
	}
	for _, g := range []group{
		{TierCritical, "Critical situations"},
		{TierHigh, "Important events"},
		{TierMedium, "Routine events"},
	} {
		events := byTier[g.tier]
		if len(events) == 0 {
			continue
		}
		lines := []string{fmt.Sprintf("%s (%d):", g.heading, len(events))}
		start := len(events) - summaryHighlights
		if start < 0 {
			start = 0
		}
		for _, event := range events[start:] {
			lines = append(lines, "  - "+event.Description)
		}
		return strings.Join(lines, "\n")
	}

	return "Floor operating normally, no notable events."
}

// GetZoneSummary returns the structured summary for one zone. Pure
// read.
func (c *Collector) GetZoneSummary(zone string) ZoneSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.zoneSummary(zone)
}

func (c *Collector) zoneSummary(zone string) ZoneSummary {
	summary := ZoneSummary{
		Zone:         zone,
		Transporters: make(map[string]DeviceBrief),
		Stations:     make(map[string]DeviceBrief),
		Conveyors:    make(map[string]DeviceBrief),
		UrgentIssues: []string{},
	}

	for _, key := range c.sortedStateKeys() {
		state := c.states[key]
		snapshot := &state.snapshot
		if snapshot.Zone != zone {
			continue
		}

		switch snapshot.Category {
		case fleet.CategoryTransporter:
			charge, hasCharge := snapshot.NumericValue(fleet.AttrCharge)
			payload, _ := snapshot.ListCount(fleet.ListPayload)
			summary.Transporters[snapshot.DeviceID] = DeviceBrief{
				Status:   snapshot.Status,
				Charge:   charge,
				Location: snapshot.Location,
				Payload:  payload,
			}
			if hasCharge && charge < c.policy.Bands.Warning {
				summary.UrgentIssues = append(summary.UrgentIssues,
					fmt.Sprintf("%s charge critically low", snapshot.DeviceID))
			}
		case fleet.CategoryStation:
			buffered, _ := snapshot.ListCount(fleet.ListBuffer)
			summary.Stations[snapshot.DeviceID] = DeviceBrief{
				Status:   snapshot.Status,
				Buffered: buffered,
			}
			summary.TotalBuffered += buffered
		case fleet.CategoryConveyor:
			buffered, _ := snapshot.ListCount(fleet.ListBuffer)
			summary.Conveyors[snapshot.DeviceID] = DeviceBrief{
				Status:   snapshot.Status,
				Buffered: buffered,
			}
			summary.TotalBuffered += buffered
		}

		if c.policy.isFault(snapshot.Status) || c.policy.isDegraded(snapshot.Status) {
			summary.UrgentIssues = append(summary.UrgentIssues,
				fmt.Sprintf("%s is %s", snapshot.DeviceID, snapshot.Status))
		}
	}

	return summary
}

// GetOverview returns the fleet-wide structured summary. Zones come
// from the configured registry plus any zone observed on a snapshot.
// Pure read.
func (c *Collector) GetOverview() Overview {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overview()
}

func (c *Collector) overview() Overview {
	overview := Overview{
		Zones:        make(map[string]ZoneSummary),
		UrgentIssues: []string{},
	}

	seen := make(map[string]bool)
	zones := append([]string(nil), c.zones...)
	for _, zone := range zones {
		seen[zone] = true
	}

	for _, state := range c.states {
		switch state.snapshot.Category {
		case fleet.CategoryTransporter:
			overview.Transporters++
		case fleet.CategoryStation:
			overview.Stations++
		case fleet.CategoryConveyor:
			overview.Conveyors++
		case fleet.CategoryStorage:
			overview.Storage++
		}
		if zone := state.snapshot.Zone; zone != "" && !seen[zone] {
			seen[zone] = true
			zones = append(zones, zone)
		}
	}
	sort.Strings(zones)

	for _, zone := range zones {
		summary := c.zoneSummary(zone)
		overview.Zones[zone] = summary
		overview.UrgentIssues = append(overview.UrgentIssues, summary.UrgentIssues...)
	}

	return overview
}

// GetContext assembles the bounded digest for the downstream
// consumer: the fleet overview, up to maxEvents most recent events at
// MEDIUM or above, the default-window summary, and the current urgent
// issues. maxEvents <= 0 selects the policy default. Pure read: calling
// it never changes what a later call returns.
func (c *Collector) GetContext(maxEvents int) Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if maxEvents <= 0 {
		maxEvents = c.policy.ContextMaxEvents
	}

	overview := c.overview()
	events := c.store.filtered(maxEvents, TierMedium)

	digest := Context{
		Overview:     overview,
		RecentEvents: make([]ContextEvent, 0, len(events)),
		Summary:      c.summarize(c.policy.SummaryWindow),
		UrgentIssues: overview.UrgentIssues,
	}
	for _, event := range events {
		digest.RecentEvents = append(digest.RecentEvents, ContextEvent{
			Type:        event.Type,
			Description: event.Description,
			Tier:        event.Tier,
			Timestamp:   event.Timestamp,
			DeviceID:    event.DeviceID,
			Tags:        append([]string(nil), event.Tags...),
		})
	}
	return digest
}

// sortedStateKeys returns the device keys in lexical order so that
// urgent-issue lists render deterministically.
func (c *Collector) sortedStateKeys() []string {
	keys := make([]string, 0, len(c.states))
	for key := range c.states {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
