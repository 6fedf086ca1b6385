// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/floorsense/floorsense/lib/clock"
	"github.com/floorsense/floorsense/lib/schema/fleet"
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestCollector(t *testing.T) (*Collector, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(testEpoch)
	c, err := New(Config{
		Clock:  fake,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Zones:  []string{"zone1", "zone2", "zone3"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, fake
}

func transporterSnapshot(fake *clock.FakeClock, id, status, location string, charge float64) fleet.Snapshot {
	return fleet.Snapshot{
		DeviceID:  id,
		Category:  fleet.CategoryTransporter,
		Zone:      "zone1",
		Timestamp: fake.Now().UnixNano(),
		Status:    status,
		Location:  location,
		Numeric:   map[string]float64{fleet.AttrCharge: charge},
	}
}

func conveyorSnapshot(fake *clock.FakeClock, id, status string, buffer int) fleet.Snapshot {
	items := make([]string, buffer)
	for i := range items {
		items[i] = "product"
	}
	return fleet.Snapshot{
		DeviceID:  id,
		Category:  fleet.CategoryConveyor,
		Zone:      "zone2",
		Timestamp: fake.Now().UnixNano(),
		Status:    status,
		Lists:     map[string][]string{fleet.ListBuffer: items},
	}
}

func mustIngest(t *testing.T, c *Collector, snapshot fleet.Snapshot) {
	t.Helper()
	if err := c.Ingest(snapshot); err != nil {
		t.Fatalf("Ingest %s: %v", snapshot.DeviceID, err)
	}
}

func eventsOfType(events []Event, eventType EventType) []Event {
	var matching []Event
	for _, event := range events {
		if event.Type == eventType {
			matching = append(matching, event)
		}
	}
	return matching
}

func TestNewRequiresClockAndLogger(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}); err == nil {
		t.Error("New without a clock should fail")
	}
	if _, err := New(Config{Clock: clock.Fake(testEpoch)}); err == nil {
		t.Error("New without a logger should fail")
	}
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	policy.Bands.Critical = 50 // above warning
	_, err := New(Config{
		Clock:  clock.Fake(testEpoch),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Policy: policy,
	})
	if err == nil {
		t.Error("New should reject unordered bands")
	}
}

func TestFirstSightingIsMedium(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "dock-a", 95))

	events := c.GetRecentEvents(0)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	event := events[0]
	if event.Type != EventInitial {
		t.Errorf("event type = %s, want %s", event.Type, EventInitial)
	}
	if event.Tier != TierMedium {
		t.Errorf("tier = %s, want medium", event.Tier)
	}
	if event.Description != "Transporter tp-01 first report: status idle, at dock-a" {
		t.Errorf("unexpected description: %q", event.Description)
	}
	if !reflect.DeepEqual(event.Tags, []string{"Transporter", "tp-01", "zone1"}) {
		t.Errorf("unexpected tags: %v", event.Tags)
	}
}

func TestIdenticalSnapshotProducesNoEvents(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "dock-a", 95))
	before := len(c.GetRecentEvents(0))

	for i := 0; i < 5; i++ {
		fake.Advance(time.Second)
		mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "dock-a", 95))
	}

	if after := len(c.GetRecentEvents(0)); after != before {
		t.Errorf("identical snapshots grew the store from %d to %d events", before, after)
	}
}

func TestSubThresholdNumericChangeIsDropped(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 85))
	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 86))

	if numeric := eventsOfType(c.GetRecentEvents(0), EventNumericChange); len(numeric) != 0 {
		t.Errorf("85 -> 86 produced %d numeric events, want 0", len(numeric))
	}

	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 50))

	numeric := eventsOfType(c.GetRecentEvents(0), EventNumericChange)
	if len(numeric) != 1 {
		t.Fatalf("86 -> 50 produced %d numeric events, want 1", len(numeric))
	}
	payload, ok := numeric[0].Payload.(NumericChangePayload)
	if !ok {
		t.Fatalf("payload type %T, want NumericChangePayload", numeric[0].Payload)
	}
	if payload.From != 86 || payload.To != 50 || payload.Delta != -36 {
		t.Errorf("payload = %+v, want from 86 to 50 delta -36", payload)
	}
}

func TestFaultTransitionIsCriticalAndNeverSuppressed(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 80))

	// Fault, recover, fault again. Every fault entry must come
	// through as CRITICAL regardless of windows, so the second fault
	// follows the recovery after only a second. The recoveries are
	// HIGH and share the status dedupe key, so they are spaced past
	// the HIGH rate window to emit.
	for i := 0; i < 2; i++ {
		fake.Advance(time.Second)
		mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "p1", 80))
		fake.Advance(10 * time.Second)
		mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 80))
	}

	var criticals, recoveries int
	for _, event := range eventsOfType(c.GetRecentEvents(0), EventStatusChange) {
		switch event.Tier {
		case TierCritical:
			criticals++
		case TierHigh:
			recoveries++
		}
	}
	if criticals != 2 {
		t.Errorf("got %d CRITICAL status events, want 2 (one per fault entry)", criticals)
	}
	if recoveries != 2 {
		t.Errorf("got %d HIGH recovery events, want 2", recoveries)
	}
}

func TestRepeatedFaultSnapshotsEmitOnce(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 80))
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "p1", 80))

	// The device keeps reporting fault. No status diff, no events.
	for i := 0; i < 10; i++ {
		fake.Advance(time.Second)
		mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "p1", 80))
	}

	statusEvents := eventsOfType(c.GetRecentEvents(0), EventStatusChange)
	if len(statusEvents) != 1 {
		t.Fatalf("got %d status events, want 1", len(statusEvents))
	}
	if statusEvents[0].Tier != TierCritical {
		t.Errorf("tier = %s, want critical", statusEvents[0].Tier)
	}
}

func TestPositionChurnIsRateLimited(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80))

	// Bounce a<->b every second. LOW-tier windows span 20s, so the
	// second a->b and b->a legs inside the window are suppressed.
	locations := []string{"b", "a", "b", "a"}
	for _, location := range locations {
		fake.Advance(time.Second)
		mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, location, 80))
	}

	positions := eventsOfType(c.GetRecentEvents(0), EventPositionChange)
	if len(positions) != 2 {
		t.Fatalf("got %d position events, want 2 (one per direction)", len(positions))
	}

	// After the window expires the same leg emits again.
	fake.Advance(30 * time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "b", 80))
	positions = eventsOfType(c.GetRecentEvents(0), EventPositionChange)
	if len(positions) != 3 {
		t.Errorf("got %d position events after window expiry, want 3", len(positions))
	}
}

func TestBlockedConveyorTransitions(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusActive, 2))

	// Three consecutive blocked reports: one HIGH on entry, then no
	// diff. Unblocking yields exactly one MEDIUM.
	for i := 0; i < 3; i++ {
		fake.Advance(time.Second)
		mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusBlocked, 2))
	}
	fake.Advance(time.Second)
	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusActive, 2))

	statusEvents := eventsOfType(c.GetRecentEvents(0), EventStatusChange)
	if len(statusEvents) != 2 {
		t.Fatalf("got %d status events, want 2", len(statusEvents))
	}
	if statusEvents[0].Tier != TierHigh {
		t.Errorf("blocked entry tier = %s, want high", statusEvents[0].Tier)
	}
	if statusEvents[1].Tier != TierMedium {
		t.Errorf("blocked exit tier = %s, want medium", statusEvents[1].Tier)
	}
}

func TestBufferCardinalityChange(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusActive, 2))
	fake.Advance(time.Minute)
	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusActive, 5))

	cardinality := eventsOfType(c.GetRecentEvents(0), EventCardinalityChange)
	if len(cardinality) != 1 {
		t.Fatalf("got %d cardinality events, want 1", len(cardinality))
	}
	event := cardinality[0]
	if event.Tier != TierMedium {
		t.Errorf("tier = %s, want medium", event.Tier)
	}
	if event.Description != "Conveyor cv-01 buffer gained 3 items, 2 to 5" {
		t.Errorf("unexpected description: %q", event.Description)
	}
}

func TestTrendClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		levels []float64
		want   Trend
	}{
		{"degrading run", []float64{90, 80, 70, 60, 50}, TrendDegrading},
		{"improving run", []float64{50, 60, 70, 80, 90}, TrendImproving},
		{"flat run", []float64{70, 70, 70, 70}, TrendStable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, fake := newTestCollector(t)

			for _, level := range tt.levels[:len(tt.levels)-1] {
				mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", level))
				fake.Advance(time.Minute)
			}
			final := tt.levels[len(tt.levels)-1]
			got := c.classifyTrend("zone1/tp-01", fleet.AttrCharge, final)
			if got != tt.want {
				t.Errorf("trend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDegradingChargeEscalatesThroughBands(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	// Walk charge down in 10% steps. Every step clears the numeric
	// threshold, and each lands in a new dedupe bucket, so each
	// emits. Tier escalates as the value crosses bands with a
	// degrading trend.
	wantTiers := map[float64]Tier{
		30: TierMedium,   // caution band, degrading
		10: TierHigh,     // warning band, degrading
		0:  TierCritical, // critical band, trend irrelevant
	}
	for _, level := range []float64{60, 50, 40, 30, 20, 10, 0} {
		mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", level))
		fake.Advance(time.Minute)

		want, checked := wantTiers[level]
		if !checked {
			continue
		}
		numeric := eventsOfType(c.GetRecentEvents(0), EventNumericChange)
		if len(numeric) == 0 {
			t.Fatalf("no numeric event at charge %v", level)
		}
		latest := numeric[len(numeric)-1]
		if latest.Tier != want {
			t.Errorf("charge %v: tier = %s, want %s", level, latest.Tier, want)
		}
		if latest.Trend != TrendDegrading {
			t.Errorf("charge %v: trend = %s, want degrading", level, latest.Trend)
		}
	}
}

func TestChargeAdvisoryInDescription(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 30))
	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "p1", 8))

	numeric := eventsOfType(c.GetRecentEvents(0), EventNumericChange)
	if len(numeric) != 1 {
		t.Fatalf("got %d numeric events, want 1", len(numeric))
	}
	want := "Transporter tp-01 charge level changed from 30 to 8 (sharp drop of 22), holding steady — urgent recharge advised"
	if numeric[0].Description != want {
		t.Errorf("description = %q, want %q", numeric[0].Description, want)
	}
}

func TestGlobalRetentionCap(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	// Alternate each device between two statuses forever. Every
	// ingest diffs, and MEDIUM windows (10s) are shorter than the
	// 30s stride, so every change emits. 60 devices x 10 rounds
	// overflows every cap in play.
	statuses := []string{fleet.StatusWorking, fleet.StatusIdle}
	for round := 0; round < 10; round++ {
		for device := 0; device < 60; device++ {
			snapshot := conveyorSnapshot(fake, deviceName(device), statuses[round%2], 0)
			mustIngest(t, c, snapshot)
		}
		fake.Advance(30 * time.Second)
	}

	events := c.GetRecentEvents(0)
	if len(events) > 200 {
		t.Errorf("store holds %d events, want <= 200", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Fatalf("events out of order at %d: %v before %v",
				i, events[i].Timestamp, events[i-1].Timestamp)
		}
	}
}

func deviceName(n int) string {
	return "cv-" + string(rune('a'+n/26)) + string(rune('a'+n%26))
}

func TestGetFilteredEventsRespectsMinTier(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80))
	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "b", 80)) // LOW
	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "b", 80)) // CRITICAL

	all := c.GetRecentEvents(0)
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	filtered := c.GetFilteredEvents(0, TierMedium)
	if len(filtered) != 2 {
		t.Fatalf("got %d events at >= medium, want 2", len(filtered))
	}
	for _, event := range filtered {
		if event.Tier < TierMedium {
			t.Errorf("event %s below medium: %s", event.Type, event.Tier)
		}
	}
}

func TestGetSummaryPicksMostSevereGroup(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80)) // MEDIUM initial
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "a", 80)) // CRITICAL

	summary := c.GetSummary(5 * time.Minute)
	if !containsLine(summary, "Critical situations (1):") {
		t.Errorf("summary missing critical heading:\n%s", summary)
	}
	if !containsLine(summary, "  - Transporter tp-01 changed from moving to fault at a") {
		t.Errorf("summary missing critical description:\n%s", summary)
	}
	if containsLine(summary, "Routine events") {
		t.Errorf("summary should not include lower groups:\n%s", summary)
	}
}

func TestGetSummaryLowOnlyWindowIsNominal(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80))

	// Push the MEDIUM initial event out of the window, then emit one
	// LOW position change inside it.
	fake.Advance(10 * time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "b", 80))

	summary := c.GetSummary(5 * time.Minute)
	if summary != "Floor operating normally, no notable events." {
		t.Errorf("LOW-only window summary = %q, want nominal message", summary)
	}
}

func TestGetSummaryZeroWindowUsesPolicyDefault(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80))
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "a", 80))

	// Move past the 300s default window: the zero-window call sees
	// nothing while an explicit wide window still does.
	fake.Advance(10 * time.Minute)
	if summary := c.GetSummary(0); summary != "Floor operating normally, no notable events." {
		t.Errorf("zero-window summary = %q, want nominal message", summary)
	}
	if summary := c.GetSummary(time.Hour); !containsLine(summary, "Critical situations (1):") {
		t.Errorf("wide-window summary missing critical heading:\n%s", summary)
	}
}

func TestGetContextIsPure(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 12))
	fake.Advance(time.Second)
	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusBlocked, 3))

	first := c.GetContext(0)
	second := c.GetContext(0)
	if !reflect.DeepEqual(first, second) {
		t.Error("two consecutive GetContext calls differ")
	}
}

func TestGetContextContents(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 12))
	fake.Advance(time.Second)
	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusBlocked, 3))

	digest := c.GetContext(0)

	if digest.Overview.Transporters != 1 || digest.Overview.Conveyors != 1 {
		t.Errorf("overview counts = %+v", digest.Overview)
	}
	if len(digest.RecentEvents) != 2 {
		t.Fatalf("got %d digest events, want 2 (both MEDIUM initials)", len(digest.RecentEvents))
	}
	for _, event := range digest.RecentEvents {
		if event.Tier < TierMedium {
			t.Errorf("digest includes sub-medium event %s", event.Type)
		}
	}

	wantIssues := []string{
		"tp-01 charge critically low",
		"cv-01 is blocked",
	}
	if !reflect.DeepEqual(digest.UrgentIssues, wantIssues) {
		t.Errorf("urgent issues = %v, want %v", digest.UrgentIssues, wantIssues)
	}
	if digest.Summary == "" {
		t.Error("digest summary is empty")
	}
}

func TestGetZoneSummaryTotals(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusActive, 3))
	mustIngest(t, c, conveyorSnapshot(fake, "cv-02", fleet.StatusActive, 2))
	station := fleet.Snapshot{
		DeviceID:  "st-01",
		Category:  fleet.CategoryStation,
		Zone:      "zone2",
		Timestamp: fake.Now().UnixNano(),
		Status:    fleet.StatusProcessing,
		Lists:     map[string][]string{fleet.ListBuffer: {"p1", "p2", "p3", "p4"}},
	}
	mustIngest(t, c, station)

	summary := c.GetZoneSummary("zone2")
	if summary.TotalBuffered != 9 {
		t.Errorf("total buffered = %d, want 9", summary.TotalBuffered)
	}
	if len(summary.Conveyors) != 2 || len(summary.Stations) != 1 {
		t.Errorf("device counts: %d conveyors, %d stations", len(summary.Conveyors), len(summary.Stations))
	}
	if brief := summary.Stations["st-01"]; brief.Buffered != 4 || brief.Status != fleet.StatusProcessing {
		t.Errorf("station brief = %+v", brief)
	}
}

func TestGetOverviewIncludesConfiguredZones(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "a", 90))

	overview := c.GetOverview()
	if len(overview.Zones) != 3 {
		t.Fatalf("got %d zones, want the 3 configured", len(overview.Zones))
	}
	if _, ok := overview.Zones["zone3"]; !ok {
		t.Error("configured zone3 missing from overview despite no devices")
	}
	if overview.Transporters != 1 {
		t.Errorf("transporter count = %d, want 1", overview.Transporters)
	}
}

func TestStorageDefaultsToActive(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	snapshot := fleet.Snapshot{
		DeviceID:  "wh-01",
		Category:  fleet.CategoryStorage,
		Zone:      "zone1",
		Timestamp: fake.Now().UnixNano(),
		Lists:     map[string][]string{fleet.ListBuffer: {"p1"}},
	}
	if err := c.UpdateStorage(snapshot); err != nil {
		t.Fatalf("UpdateStorage: %v", err)
	}

	states := c.GetDeviceStates(fleet.CategoryStorage)
	view, ok := states["zone1/wh-01"]
	if !ok {
		t.Fatalf("storage state missing, have %v", states)
	}
	if view.Status != fleet.StatusActive {
		t.Errorf("status = %q, want active", view.Status)
	}
}

func TestIngestRejectsMalformedSnapshot(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	bad := transporterSnapshot(fake, "", fleet.StatusIdle, "a", 90)
	if err := c.Ingest(bad); err == nil {
		t.Fatal("Ingest accepted a snapshot with no device ID")
	}

	stats := c.GetStats()
	if stats.Malformed != 1 {
		t.Errorf("malformed count = %d, want 1", stats.Malformed)
	}
	if stats.Ingested != 0 || stats.Stored != 0 || stats.Devices != 0 {
		t.Errorf("rejected snapshot touched state: %+v", stats)
	}
}

func TestIngestRejectsCategoryMismatch(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	snapshot := transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "a", 90)
	if err := c.UpdateConveyor(snapshot); err == nil {
		t.Error("UpdateConveyor accepted a transporter snapshot")
	}
}

func TestTransporterLifecycle(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	count := func() int { return len(c.GetRecentEvents(0)) }

	// First sighting.
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "p1", 85))
	if count() != 1 {
		t.Fatalf("after first sighting: %d events, want 1", count())
	}

	// Sub-threshold charge drift.
	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "p1", 86))
	if count() != 1 {
		t.Fatalf("after 85 -> 86: %d events, want still 1", count())
	}

	// Threshold-clearing drop.
	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "p1", 50))
	if count() != 2 {
		t.Fatalf("after 86 -> 50: %d events, want 2", count())
	}

	// Fault entry, then the same fault state repeated: no further
	// transition, no further candidates.
	fake.Advance(time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "p1", 50))
	if count() != 3 {
		t.Fatalf("after fault entry: %d events, want 3", count())
	}
	for i := 0; i < 2; i++ {
		fake.Advance(500 * time.Millisecond)
		mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "p1", 50))
	}
	if count() != 3 {
		t.Fatalf("after repeated fault reports: %d events, want still 3", count())
	}

	// A genuine re-transition is never window-suppressed: recover
	// and fault again inside what would be any suppression window.
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusIdle, "p1", 50))
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusFault, "p1", 50))
	if count() != 5 {
		t.Fatalf("after recover + refault: %d events, want 5", count())
	}
	events := c.GetRecentEvents(0)
	last := events[len(events)-1]
	if last.Tier != TierCritical {
		t.Errorf("refault tier = %s, want critical", last.Tier)
	}
}

func TestNoiseEventsAreSuppressedAndNeverStored(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	table := c.policy.Categories[fleet.CategoryConveyor]
	table.NoiseEvents = []EventType{EventCardinalityChange}
	c.policy.Categories[fleet.CategoryConveyor] = table

	mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusActive, 2))
	for _, count := range []int{5, 1, 8} {
		fake.Advance(time.Minute)
		mustIngest(t, c, conveyorSnapshot(fake, "cv-01", fleet.StatusActive, count))
	}

	if got := eventsOfType(c.GetRecentEvents(0), EventCardinalityChange); len(got) != 0 {
		t.Errorf("got %d cardinality events for a NOISE-listed type, want 0", len(got))
	}
	stats := c.GetStats()
	if stats.Suppressed != 3 {
		t.Errorf("suppressed count = %d, want 3", stats.Suppressed)
	}
	// The device state itself still tracks the latest snapshot.
	states := c.GetDeviceStates(fleet.CategoryConveyor)
	if counts := states["zone2/cv-01"].ListCounts[fleet.ListBuffer]; counts != 8 {
		t.Errorf("stored buffer count = %d, want 8", counts)
	}
}

func TestDedupeKeyFractionalBucketWidth(t *testing.T) {
	t.Parallel()
	c, _ := newTestCollector(t)
	c.policy.BucketWidth = 0.5

	key := func(to float64) string {
		return c.dedupeKey("zone1/tp-01", candidate{
			eventType: EventNumericChange,
			payload:   NumericChangePayload{Attribute: "charge_level", To: to},
		})
	}

	// Sub-unit widths must still separate values in different buckets.
	if key(75) == key(33) {
		t.Error("charge 75 and 33 share a dedupe key at width 0.5")
	}
	if key(75.1) != key(75.3) {
		t.Error("charge 75.1 and 75.3 fall in the same 0.5 bucket but key differently")
	}
}

func TestDedupeCachePrunesStaleKeys(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80))
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "b", 80))

	c.mu.RLock()
	keys := len(c.dedupe)
	c.mu.RUnlock()
	if keys == 0 {
		t.Fatal("expected dedupe cache entries after emitted events")
	}

	// Past twice the dedupe window the next ingest prunes the stale
	// keys; the new event's own key is all that remains.
	fake.Advance(2 * time.Minute)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "c", 80))

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.dedupe) != 1 {
		t.Errorf("dedupe cache holds %d keys after pruning, want 1", len(c.dedupe))
	}
}

func TestStatsCountSuppressed(t *testing.T) {
	t.Parallel()
	c, fake := newTestCollector(t)

	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80))
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "b", 80))
	fake.Advance(time.Second)
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "a", 80))
	fake.Advance(time.Second)
	// Same a->b leg inside the LOW window: suppressed.
	mustIngest(t, c, transporterSnapshot(fake, "tp-01", fleet.StatusMoving, "b", 80))

	stats := c.GetStats()
	if stats.Suppressed != 1 {
		t.Errorf("suppressed count = %d, want 1", stats.Suppressed)
	}
	if stats.Ingested != 4 {
		t.Errorf("ingested count = %d, want 4", stats.Ingested)
	}
}

func containsLine(text, line string) bool {
	for _, candidate := range strings.Split(text, "\n") {
		if candidate == line {
			return true
		}
	}
	return false
}
