// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// Package fleet defines the wire-level message shapes exchanged
// between the factory transport and the collector engine.
//
// A Snapshot is a complete point-in-time state report for one device:
// its status label, named numeric attributes (charge level, buffer
// utilization), and named list attributes (carried items, buffered
// items). Snapshots are validated at the transport boundary before
// they reach the engine: a snapshot that fails Validate is the
// malformed-snapshot case of the error taxonomy and must not mutate
// engine state.
//
// All types carry both json and cbor struct tags: JSON for human
// inspection and test fixtures, CBOR (via lib/codec) for the socket
// framing.
package fleet
