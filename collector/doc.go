// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector implements the telemetry event-classification and
// context-compression engine.
//
// The engine consumes per-device state snapshots from a factory
// transport and maintains a compact, bounded picture of the fleet for
// a downstream decision consumer with a small context budget. For
// each inbound snapshot it:
//
//   - diffs the snapshot against the device's previous state and
//     emits candidate events (status, position, numeric, cardinality
//     changes, and first sightings),
//   - classifies each candidate's importance tier using per-category
//     policy (fault transitions, numeric bands, trend direction),
//   - suppresses redundant repetitions with tier-dependent
//     rate-limit windows over semantic dedupe keys,
//   - retains passing events in a bounded, tier-aware store, and
//   - renders deterministic natural-language descriptions.
//
// On demand it assembles a bounded digest (fleet overview, filtered
// events, summary text, urgent issues) without mutating any state.
//
// The engine is a single logical owner of its mutable state: ingest
// takes the write lock, queries take the read lock, and no operation
// blocks or performs I/O. Time comes exclusively from an injected
// clock.Clock.
package collector
