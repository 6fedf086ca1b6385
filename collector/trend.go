// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import "time"

// historySample is one entry in a device's rolling history window:
// the engine arrival time and the tracked numeric attribute values at
// that point.
type historySample struct {
	at     time.Time
	values map[string]float64
}

// classifyTrend derives the trajectory of one numeric attribute from
// the device's history plus the incoming value. It must be called
// before the incoming sample is appended, so the trend reflects the
// trajectory up to the new value.
//
// With fewer than 2 history samples the trend is stable. Otherwise
// the last min(len, TrendWindow) samples plus the new value are
// reduced to the mean of consecutive deltas; a mean above +TrendSlope
// is improving, below -TrendSlope degrading, anything between stable.
func (c *Collector) classifyTrend(deviceKey, attribute string, newValue float64) Trend {
	history := c.history[deviceKey]

	var recent []float64
	for _, sample := range history {
		if value, ok := sample.values[attribute]; ok {
			recent = append(recent, value)
		}
	}
	if len(recent) < 2 {
		return TrendStable
	}
	if len(recent) > c.policy.TrendWindow {
		recent = recent[len(recent)-c.policy.TrendWindow:]
	}
	recent = append(recent, newValue)

	var sum float64
	for i := 1; i < len(recent); i++ {
		sum += recent[i] - recent[i-1]
	}
	mean := sum / float64(len(recent)-1)

	switch {
	case mean > c.policy.TrendSlope:
		return TrendImproving
	case mean < -c.policy.TrendSlope:
		return TrendDegrading
	}
	return TrendStable
}

// recordHistory appends the snapshot's tracked numeric values to the
// device's rolling window, evicting the oldest sample beyond
// HistoryLength. Snapshots with no tracked numeric attributes record
// nothing.
func (c *Collector) recordHistory(deviceKey string, at time.Time, values map[string]float64) {
	table := c.policy.category(c.states[deviceKey].snapshot.Category)
	if len(table.NumericThresholds) == 0 {
		return
	}

	tracked := make(map[string]float64, len(table.NumericThresholds))
	for attribute := range table.NumericThresholds {
		if value, ok := values[attribute]; ok {
			tracked[attribute] = value
		}
	}
	if len(tracked) == 0 {
		return
	}

	history := append(c.history[deviceKey], historySample{at: at, values: tracked})
	if len(history) > c.policy.HistoryLength {
		history = history[len(history)-c.policy.HistoryLength:]
	}
	c.history[deviceKey] = history
}
