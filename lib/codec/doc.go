// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration for
// Floorsense wire messages.
//
// Every snapshot frame, query request, and digest reply that crosses
// the ingest socket is encoded through this package so that the same
// logical data always produces identical bytes (Core Deterministic
// Encoding, RFC 8949 §4.2). Consumers import only lib/codec, never
// fxamacker/cbor directly.
package codec
