// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest provides the Unix-socket transport in front of the
// collector engine. Feeders stream device snapshots in; consumers
// query the digest, summaries, and device state out.
//
// The wire protocol is length-prefixed CBOR: each frame is a uint32
// big-endian byte length followed by one CBOR-encoded Request or
// Response. Connections are persistent; a client may send any number
// of requests, and a malformed request produces an error response
// without closing the connection.
package ingest
