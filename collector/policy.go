// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"time"

	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// Policy holds every tunable the engine consults: classification
// bands, suppression windows, retention caps, history depth, and the
// per-category attribute tables. A zero Policy is not usable; start
// from DefaultPolicy and override fields, or build one from
// lib/config.
type Policy struct {
	// Bands are the numeric classification thresholds, in attribute
	// units (percent for charge level).
	Bands Bands

	// Windows are the suppression time windows.
	Windows Windows

	// BucketWidth coarsens numeric values for dedupe keying: values
	// in the same bucket share a key.
	BucketWidth float64

	// HistoryLength is the per-device rolling sample window (H).
	HistoryLength int

	// TrendWindow is how many recent samples (plus the incoming
	// value) feed the trend slope.
	TrendWindow int

	// TrendSlope is the mean per-sample delta beyond which a
	// trajectory counts as improving (positive) or degrading
	// (negative).
	TrendSlope float64

	// Retention caps the tier-aware event store.
	Retention RetentionCaps

	// ContextMaxEvents is the default event count for the digest.
	ContextMaxEvents int

	// SummaryWindow is the default trailing window for summaries.
	SummaryWindow time.Duration

	// Categories maps each device category to its attribute tables.
	// Categories absent from the map produce no numeric, position,
	// or cardinality candidates (status changes and first sightings
	// are always detected).
	Categories map[fleet.Category]CategoryPolicy

	// FaultStatuses are the status labels treated as fault-like:
	// entering one is CRITICAL, leaving one is HIGH.
	FaultStatuses []string

	// DegradedStatuses are labels for degraded-but-running states:
	// entering one is HIGH, leaving one is MEDIUM (blockages).
	DegradedStatuses []string
}

// Bands are the numeric classification thresholds. A value at or
// below Critical is CRITICAL regardless of trend; Warning and Caution
// matter only when the trend is degrading; above Comfort an improving
// trend is LOW-tier routine news.
type Bands struct {
	Critical float64
	Warning  float64
	Caution  float64
	Comfort  float64
}

// Windows are the suppression windows. An event whose dedupe key was
// emitted less than window(tier) ago is suppressed. Rate is the base:
// HIGH uses Rate, MEDIUM 2×Rate, LOW 4×Rate. Dedupe is the fallback
// for unlisted tiers and also bounds cache entry lifetime (entries
// older than 2×Dedupe are pruned).
type Windows struct {
	Rate   time.Duration
	Dedupe time.Duration
}

// RetentionCaps bound the tiered event store. Each tier keeps at most
// its cap of most-recent events; the chronologically merged store is
// then truncated to Global.
type RetentionCaps struct {
	Critical int
	High     int
	Medium   int
	Low      int
	Global   int
}

// CategoryPolicy is the per-category attribute table.
type CategoryPolicy struct {
	// NumericThresholds maps tracked numeric attribute names to the
	// minimum absolute delta that produces a candidate. Attributes
	// absent from the map are not tracked.
	NumericThresholds map[string]float64

	// TrackedLists names the list attributes whose cardinality
	// changes produce candidates.
	TrackedLists []string

	// TrackPosition enables position-change candidates.
	TrackPosition bool

	// NumericTrend enables band-and-trend classification for numeric
	// candidates. When false, numeric candidates default to MEDIUM.
	// Only transporters enable this by default; other categories opt
	// in via configuration.
	NumericTrend bool

	// NoiseEvents lists event types that are always NOISE for this
	// category (and therefore always suppressed).
	NoiseEvents []EventType
}

// DefaultPolicy returns the standard policy: the thresholds, bands,
// windows, and caps the factory fleet ships with.
func DefaultPolicy() Policy {
	return Policy{
		Bands: Bands{
			Critical: 5,
			Warning:  15,
			Caution:  30,
			Comfort:  80,
		},
		Windows: Windows{
			Rate:   5 * time.Second,
			Dedupe: 30 * time.Second,
		},
		BucketWidth:      10,
		HistoryLength:    10,
		TrendWindow:      4,
		TrendSlope:       2,
		Retention:        RetentionCaps{Critical: 20, High: 30, Medium: 50, Low: 100, Global: 200},
		ContextMaxEvents: 50,
		SummaryWindow:    300 * time.Second,
		Categories: map[fleet.Category]CategoryPolicy{
			fleet.CategoryTransporter: {
				NumericThresholds: map[string]float64{fleet.AttrCharge: 10},
				TrackedLists:      []string{fleet.ListPayload},
				TrackPosition:     true,
				NumericTrend:      true,
			},
			fleet.CategoryStation: {
				TrackedLists: []string{fleet.ListBuffer},
			},
			fleet.CategoryConveyor: {
				TrackedLists: []string{fleet.ListBuffer},
			},
			fleet.CategoryStorage: {
				TrackedLists: []string{fleet.ListBuffer},
			},
		},
		FaultStatuses:    []string{fleet.StatusFault, fleet.StatusError, fleet.StatusStuck},
		DegradedStatuses: []string{fleet.StatusBlocked},
	}
}

// Validate checks the policy for values the engine cannot operate
// with.
func (p *Policy) Validate() error {
	if p.Bands.Critical > p.Bands.Warning || p.Bands.Warning > p.Bands.Caution {
		return fmt.Errorf("collector: bands must be ordered critical <= warning <= caution, got %+v", p.Bands)
	}
	if p.Windows.Rate <= 0 || p.Windows.Dedupe <= 0 {
		return fmt.Errorf("collector: suppression windows must be positive, got %+v", p.Windows)
	}
	if p.BucketWidth <= 0 {
		return fmt.Errorf("collector: bucket width must be positive, got %v", p.BucketWidth)
	}
	if p.HistoryLength < 2 {
		return fmt.Errorf("collector: history length must be >= 2, got %d", p.HistoryLength)
	}
	if p.TrendWindow < 2 {
		return fmt.Errorf("collector: trend window must be >= 2, got %d", p.TrendWindow)
	}
	caps := p.Retention
	if caps.Critical <= 0 || caps.High <= 0 || caps.Medium <= 0 || caps.Low <= 0 || caps.Global <= 0 {
		return fmt.Errorf("collector: retention caps must be positive, got %+v", caps)
	}
	return nil
}

// category returns the category table, or a zero table for categories
// with no entry.
func (p *Policy) category(c fleet.Category) CategoryPolicy {
	return p.Categories[c]
}

// isFault reports whether a status label is fault-like.
func (p *Policy) isFault(status string) bool {
	for _, s := range p.FaultStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// isDegraded reports whether a status label is degraded-but-running.
func (p *Policy) isDegraded(status string) bool {
	for _, s := range p.DegradedStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// isNoise reports whether the category policy forces an event type to
// NOISE.
func (cp CategoryPolicy) isNoise(t EventType) bool {
	for _, e := range cp.NoiseEvents {
		if e == t {
			return true
		}
	}
	return false
}

// window returns the suppression window for a tier. CRITICAL and
// NOISE never reach here; they are decided before the window lookup.
func (p *Policy) window(tier Tier) time.Duration {
	switch tier {
	case TierHigh:
		return p.Windows.Rate
	case TierMedium:
		return 2 * p.Windows.Rate
	case TierLow:
		return 4 * p.Windows.Rate
	}
	return p.Windows.Dedupe
}
