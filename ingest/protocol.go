// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/floorsense/floorsense/collector"
	"github.com/floorsense/floorsense/lib/codec"
	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// Request actions.
const (
	// ActionSnapshot ingests a device snapshot.
	ActionSnapshot = "snapshot"
	// ActionContext returns the bounded digest.
	ActionContext = "context"
	// ActionSummary returns the natural-language summary.
	ActionSummary = "summary"
	// ActionEvents returns filtered retained events.
	ActionEvents = "events"
	// ActionStates returns device state views for one category.
	ActionStates = "states"
	// ActionOverview returns the fleet-wide structured summary.
	ActionOverview = "overview"
	// ActionZone returns one zone's structured summary.
	ActionZone = "zone"
	// ActionStatus returns server liveness and engine counters.
	ActionStatus = "status"
)

// maxFrameSize bounds a single frame. Snapshots and digests are
// small; anything larger is a protocol error, not a big message.
const maxFrameSize = 1 << 20

// Request is one CBOR-encoded client request.
type Request struct {
	// Action selects the operation; see the Action constants.
	Action string `cbor:"action"`

	// Snapshot is the device snapshot for ActionSnapshot.
	Snapshot *fleet.Snapshot `cbor:"snapshot,omitempty"`

	// MaxEvents bounds the digest for ActionContext. Zero selects
	// the server's configured default.
	MaxEvents int `cbor:"max_events,omitempty"`

	// WindowSeconds is the trailing window for ActionSummary. Zero
	// selects the server's configured default.
	WindowSeconds int `cbor:"window_seconds,omitempty"`

	// Count bounds the result for ActionEvents. Zero means no bound.
	Count int `cbor:"count,omitempty"`

	// MinTier filters ActionEvents to events at or above this tier.
	MinTier collector.Tier `cbor:"min_tier,omitempty"`

	// Category selects the device category for ActionStates.
	Category fleet.Category `cbor:"category,omitempty"`

	// Zone selects the zone for ActionZone.
	Zone string `cbor:"zone,omitempty"`
}

// EventRecord is the wire shape of a retained event: the payload
// variants collapse into the rendered description plus the tagged
// metadata a consumer filters on.
type EventRecord struct {
	Type        collector.EventType `cbor:"type" json:"type"`
	DeviceID    string              `cbor:"device_id" json:"device_id"`
	Zone        string              `cbor:"zone,omitempty" json:"zone,omitempty"`
	Category    fleet.Category      `cbor:"category" json:"category"`
	Timestamp   int64               `cbor:"timestamp" json:"timestamp"`
	Tier        collector.Tier      `cbor:"tier" json:"tier"`
	Description string              `cbor:"description" json:"description"`
	Tags        []string            `cbor:"tags,omitempty" json:"tags,omitempty"`
	Trend       collector.Trend     `cbor:"trend,omitempty" json:"trend,omitempty"`
}

// Response is one CBOR-encoded server response. Exactly one result
// field is set for a successful request, matching the action.
type Response struct {
	// OK reports whether the request succeeded.
	OK bool `cbor:"ok"`

	// Error describes the failure when OK is false.
	Error string `cbor:"error,omitempty"`

	Context  *collector.Context               `cbor:"context,omitempty"`
	Summary  string                           `cbor:"summary,omitempty"`
	Events   []EventRecord                    `cbor:"events,omitempty"`
	States   map[string]collector.DeviceView  `cbor:"states,omitempty"`
	Overview *collector.Overview              `cbor:"overview,omitempty"`
	Zone     *collector.ZoneSummary           `cbor:"zone,omitempty"`
	Stats    *collector.Stats                 `cbor:"stats,omitempty"`
}

// WriteFrame CBOR-encodes v and writes it as one length-prefixed
// frame.
func WriteFrame(w io.Writer, v any) error {
	body, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("ingest: encoding frame: %w", err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("ingest: frame size %d exceeds limit %d", len(body), maxFrameSize)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("ingest: writing frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("ingest: writing frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and CBOR-decodes it into
// v. Returns io.EOF unwrapped when the peer closed the connection
// cleanly between frames.
func ReadFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("ingest: reading frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return fmt.Errorf("ingest: frame size %d exceeds limit %d", size, maxFrameSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("ingest: reading frame body: %w", err)
	}
	if err := codec.Unmarshal(body, v); err != nil {
		return fmt.Errorf("ingest: decoding frame: %w", err)
	}
	return nil
}
