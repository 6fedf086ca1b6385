// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"time"

	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// deviceState is the engine's record of one device: its latest
// snapshot plus the engine-side arrival time. Superseded, never
// mutated, by the next snapshot for the same device key.
type deviceState struct {
	snapshot fleet.Snapshot
	updated  time.Time
}

// DeviceView is the public read-only projection of a device's current
// state. All maps are copies; callers may retain and mutate them
// freely.
type DeviceView struct {
	DeviceID   string              `json:"device_id"`
	Category   fleet.Category      `json:"category"`
	Zone       string              `json:"zone,omitempty"`
	Status     string              `json:"status"`
	Location   string              `json:"location,omitempty"`
	Target     string              `json:"target,omitempty"`
	Numeric    map[string]float64  `json:"numeric,omitempty"`
	ListCounts map[string]int      `json:"list_counts,omitempty"`
	Lists      map[string][]string `json:"lists,omitempty"`
	Updated    time.Time           `json:"updated"`
}

// view projects the stored state into a DeviceView with copied maps.
func (d *deviceState) view() DeviceView {
	s := d.snapshot

	var numeric map[string]float64
	if len(s.Numeric) > 0 {
		numeric = make(map[string]float64, len(s.Numeric))
		for name, value := range s.Numeric {
			numeric[name] = value
		}
	}

	var lists map[string][]string
	var counts map[string]int
	if len(s.Lists) > 0 {
		lists = make(map[string][]string, len(s.Lists))
		counts = make(map[string]int, len(s.Lists))
		for name, items := range s.Lists {
			copied := make([]string, len(items))
			copy(copied, items)
			lists[name] = copied
			counts[name] = len(items)
		}
	}

	return DeviceView{
		DeviceID:   s.DeviceID,
		Category:   s.Category,
		Zone:       s.Zone,
		Status:     s.Status,
		Location:   s.Location,
		Target:     s.Target,
		Numeric:    numeric,
		ListCounts: counts,
		Lists:      lists,
		Updated:    d.updated,
	}
}

// GetDeviceStates returns the current view of every device in the
// given category, keyed by the zone-qualified device key. Pure read.
func (c *Collector) GetDeviceStates(category fleet.Category) map[string]DeviceView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	views := make(map[string]DeviceView)
	for key, state := range c.states {
		if state.snapshot.Category != category {
			continue
		}
		views[key] = state.view()
	}
	return views
}
