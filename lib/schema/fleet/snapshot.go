// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedSnapshot is wrapped by every validation failure so
// callers can branch on the whole taxonomy entry with errors.Is.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Category identifies the kind of device a snapshot describes.
type Category string

const (
	// CategoryTransporter is a mobile transport unit (AGV).
	CategoryTransporter Category = "transporter"

	// CategoryStation is a fixed processing station.
	CategoryStation Category = "station"

	// CategoryConveyor is a conveyor segment between stations.
	CategoryConveyor Category = "conveyor"

	// CategoryStorage is a storage buffer (raw material or finished
	// goods warehouse).
	CategoryStorage Category = "storage"
)

// Categories lists all valid categories in display order.
func Categories() []Category {
	return []Category{CategoryTransporter, CategoryStation, CategoryConveyor, CategoryStorage}
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryTransporter, CategoryStation, CategoryConveyor, CategoryStorage:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler so categories encode
// as plain strings in both JSON map keys and CBOR.
func (c Category) MarshalText() ([]byte, error) { return []byte(c), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(data []byte) error {
	*c = Category(data)
	return nil
}

// Status labels the factory devices report. The set is open (devices
// may report labels outside this list) but classification policy
// refers to these constants.
const (
	StatusIdle        = "idle"
	StatusMoving      = "moving"
	StatusLoading     = "loading"
	StatusUnloading   = "unloading"
	StatusCharging    = "charging"
	StatusWorking     = "working"
	StatusProcessing  = "processing"
	StatusBlocked     = "blocked"
	StatusFault       = "fault"
	StatusError       = "error"
	StatusStuck       = "stuck"
	StatusMaintenance = "maintenance"
	StatusActive      = "active"
)

// AttrCharge is the numeric attribute name for a transporter's charge
// level, in percent. The default change threshold and the
// classification bands in the collector policy refer to this
// attribute.
const AttrCharge = "charge_level"

// Common list attribute names. Cardinality changes on these produce
// events.
const (
	ListPayload = "payload"
	ListBuffer  = "buffer"
)

// Snapshot is a complete point-in-time state report for one device.
// The transport decodes one Snapshot per inbound message; the engine
// treats it as immutable once ingested.
type Snapshot struct {
	// DeviceID identifies the reporting device (e.g. "AGV_1",
	// "Conveyor_AB"). Required.
	DeviceID string `json:"device_id" cbor:"device_id"`

	// Category is the device kind. Required and must be a known
	// value.
	Category Category `json:"category" cbor:"category"`

	// Zone is the logical production zone (line) the device belongs
	// to (e.g. "line1"). Optional — storage devices are typically
	// zone-less.
	Zone string `json:"zone,omitempty" cbor:"zone,omitempty"`

	// Timestamp is the device-reported observation time in Unix
	// nanoseconds. Required. The transport guarantees per-device
	// monotonically non-decreasing timestamps; the engine does not
	// re-check ordering.
	Timestamp int64 `json:"timestamp" cbor:"timestamp"`

	// Status is the device's reported status label. Storage devices
	// may omit it; the engine substitutes StatusActive.
	Status string `json:"status,omitempty" cbor:"status,omitempty"`

	// Location is the device's current logical position (waypoint
	// name). Meaningful for transporters.
	Location string `json:"location,omitempty" cbor:"location,omitempty"`

	// Target is the position the device is moving toward, if any.
	Target string `json:"target,omitempty" cbor:"target,omitempty"`

	// Numeric holds named numeric attributes, e.g. charge_level.
	Numeric map[string]float64 `json:"numeric,omitempty" cbor:"numeric,omitempty"`

	// Lists holds named list attributes, e.g. payload item IDs or
	// buffered product IDs. Only the cardinality is classified; the
	// items themselves pass through to device views untouched.
	Lists map[string][]string `json:"lists,omitempty" cbor:"lists,omitempty"`
}

// Validate checks that the snapshot satisfies the transport contract.
// Every returned error wraps ErrMalformedSnapshot.
func (s *Snapshot) Validate() error {
	if s.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrMalformedSnapshot)
	}
	if !s.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrMalformedSnapshot, s.Category)
	}
	if s.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp is required", ErrMalformedSnapshot)
	}
	return nil
}

// Time returns the snapshot timestamp as a time.Time.
func (s *Snapshot) Time() time.Time {
	return time.Unix(0, s.Timestamp)
}

// Key returns the engine's device key: zone-qualified when a zone is
// set, the bare device ID otherwise. Two devices with the same ID in
// different zones are distinct.
func (s *Snapshot) Key() string {
	if s.Zone == "" {
		return s.DeviceID
	}
	return s.Zone + "/" + s.DeviceID
}

// NumericValue returns the named numeric attribute and whether it was
// present.
func (s *Snapshot) NumericValue(name string) (float64, bool) {
	value, ok := s.Numeric[name]
	return value, ok
}

// ListCount returns the cardinality of the named list attribute and
// whether it was present.
func (s *Snapshot) ListCount(name string) (int, bool) {
	items, ok := s.Lists[name]
	return len(items), ok
}
