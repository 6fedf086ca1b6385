// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// ZoneDefinition describes one production zone in the registry file.
type ZoneDefinition struct {
	// ID is the zone identifier devices report in their snapshots.
	ID string `json:"id"`

	// Name is the human-readable zone name.
	Name string `json:"name,omitempty"`

	// Description explains what the zone produces or handles.
	Description string `json:"description,omitempty"`
}

// ZoneRegistry is the parsed zone registry file.
type ZoneRegistry struct {
	Zones []ZoneDefinition `json:"zones"`
}

// IDs returns the zone identifiers in file order.
func (r *ZoneRegistry) IDs() []string {
	ids := make([]string, len(r.Zones))
	for i, zone := range r.Zones {
		ids[i] = zone.ID
	}
	return ids
}

// ParseZones strips JSONC comments and trailing commas from data,
// then unmarshals the result into a ZoneRegistry. Registry files are
// authored by operators, so the format allows // line comments,
// /* block comments */, and trailing commas.
func ParseZones(data []byte) (*ZoneRegistry, error) {
	stripped := jsonc.ToJSON(data)

	var registry ZoneRegistry
	if err := json.Unmarshal(stripped, &registry); err != nil {
		return nil, fmt.Errorf("parsing zone registry: %w", err)
	}

	seen := make(map[string]bool, len(registry.Zones))
	for i, zone := range registry.Zones {
		if zone.ID == "" {
			return nil, fmt.Errorf("zone registry: entry %d has no id", i)
		}
		if seen[zone.ID] {
			return nil, fmt.Errorf("zone registry: duplicate zone %q", zone.ID)
		}
		seen[zone.ID] = true
	}

	return &registry, nil
}

// ReadZoneFile reads a JSONC zone registry from disk and parses it.
func ReadZoneFile(path string) (*ZoneRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	registry, err := ParseZones(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return registry, nil
}
