// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of
// calling time.Now, time.After, time.NewTicker, or time.Sleep
// directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a deterministic clock that
// advances only when Advance is called.
//
// The collector engine reads Now for event timestamps and suppression
// windows; the feed and the ingest server use tickers and After. None
// of them should ever touch the time package directly.
//
//	engine := collector.New(collector.Config{Clock: clock.Real(), ...})
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
//	engine := collector.New(collector.Config{Clock: c, ...})
//	c.Advance(10 * time.Second) // expire a suppression window
package clock
