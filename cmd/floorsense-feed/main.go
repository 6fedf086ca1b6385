// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// floorsense-feed is a mock fleet generator for exercising a running
// collector. It simulates a small factory (transporters shuttling
// between waypoints while their charge drains, stations and conveyors
// accumulating and releasing buffered product) and streams the
// resulting snapshots over the collector's ingest socket.
//
// The walk is pseudo-random but seeded, so a given seed replays the
// same fleet history.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/floorsense/floorsense/ingest"
	"github.com/floorsense/floorsense/lib/clock"
	"github.com/floorsense/floorsense/lib/schema/fleet"
	"github.com/floorsense/floorsense/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socketPath  string
		interval    time.Duration
		seed        int64
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("floorsense-feed", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "/run/floorsense/collector.sock", "collector ingest socket")
	flagSet.DurationVar(&interval, "interval", 2*time.Second, "delay between fleet report rounds")
	flagSet.Int64Var(&seed, "seed", 1, "random seed for the fleet walk")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		version.Print("floorsense-feed")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := ingest.Dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	sim := newSimulation(clk, rand.New(rand.NewSource(seed)))
	logger.Info("feed started",
		"socket", socketPath,
		"interval", interval,
		"devices", len(sim.devices),
	)

	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, snapshot := range sim.step() {
			if err := client.SendSnapshot(snapshot); err != nil {
				return fmt.Errorf("sending %s: %w", snapshot.DeviceID, err)
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("feed stopped", "rounds", sim.rounds)
			return nil
		case <-ticker.C:
		}
	}
}

// waypoints is the track transporters walk. Each zone reuses the same
// logical point names.
var waypoints = []string{"P0", "P1", "P2", "P3", "P4", "P5"}

// device is one simulated fleet member.
type device struct {
	id       string
	category fleet.Category
	zone     string

	// transporter state
	charge   float64
	point    int
	payload  int
	charging bool

	// station / conveyor / storage state
	buffer  int
	blocked bool
}

type simulation struct {
	clk     clock.Clock
	rng     *rand.Rand
	devices []*device
	rounds  int
}

// newSimulation builds the standard mock fleet: three production
// zones with two transporters, four stations, and three conveyors
// each, plus two shared storage buffers.
func newSimulation(clk clock.Clock, rng *rand.Rand) *simulation {
	sim := &simulation{clk: clk, rng: rng}

	for z := 1; z <= 3; z++ {
		zone := fmt.Sprintf("zone%d", z)
		for i := 1; i <= 2; i++ {
			sim.devices = append(sim.devices, &device{
				id:       fmt.Sprintf("TPT_%d_%d", z, i),
				category: fleet.CategoryTransporter,
				zone:     zone,
				charge:   60 + rng.Float64()*40,
				point:    rng.Intn(len(waypoints)),
			})
		}
		for i := 1; i <= 4; i++ {
			sim.devices = append(sim.devices, &device{
				id:       fmt.Sprintf("STN_%d_%d", z, i),
				category: fleet.CategoryStation,
				zone:     zone,
				buffer:   rng.Intn(4),
			})
		}
		for i := 1; i <= 3; i++ {
			sim.devices = append(sim.devices, &device{
				id:       fmt.Sprintf("CNV_%d_%d", z, i),
				category: fleet.CategoryConveyor,
				zone:     zone,
				buffer:   rng.Intn(6),
			})
		}
	}
	for i := 1; i <= 2; i++ {
		sim.devices = append(sim.devices, &device{
			id:       fmt.Sprintf("WHS_%d", i),
			category: fleet.CategoryStorage,
			zone:     "zone1",
			buffer:   20 + rng.Intn(30),
		})
	}

	return sim
}

// step advances every device one tick and returns the snapshots to
// send this round.
func (s *simulation) step() []fleet.Snapshot {
	s.rounds++
	snapshots := make([]fleet.Snapshot, 0, len(s.devices))
	now := s.clk.Now().UnixNano()

	for _, d := range s.devices {
		switch d.category {
		case fleet.CategoryTransporter:
			s.stepTransporter(d)
		default:
			s.stepBuffered(d)
		}
		snapshots = append(snapshots, s.snapshot(d, now))
	}
	return snapshots
}

func (s *simulation) stepTransporter(d *device) {
	if d.charging {
		d.charge += 15
		if d.charge >= 95 {
			d.charge = 95
			d.charging = false
		}
		return
	}

	// Movement drains charge; a dead-low transporter heads to the
	// charger instead of working.
	d.charge -= 1 + s.rng.Float64()*3
	if d.charge <= 12 {
		d.charging = true
		d.point = 0
		return
	}

	switch s.rng.Intn(10) {
	case 0, 1, 2, 3:
		d.point = (d.point + 1) % len(waypoints)
	case 4:
		if d.payload < 3 {
			d.payload++
		}
	case 5:
		if d.payload > 0 {
			d.payload--
		}
	}
}

func (s *simulation) stepBuffered(d *device) {
	// Rare blockage, cleared with even odds each round.
	if d.blocked {
		d.blocked = s.rng.Intn(2) == 0
		return
	}
	if d.category == fleet.CategoryConveyor && s.rng.Intn(40) == 0 {
		d.blocked = true
		return
	}

	switch s.rng.Intn(4) {
	case 0:
		d.buffer++
	case 1:
		if d.buffer > 0 {
			d.buffer--
		}
	}
}

func (s *simulation) snapshot(d *device, now int64) fleet.Snapshot {
	snapshot := fleet.Snapshot{
		DeviceID:  d.id,
		Category:  d.category,
		Zone:      d.zone,
		Timestamp: now,
	}

	switch d.category {
	case fleet.CategoryTransporter:
		snapshot.Status = fleet.StatusMoving
		if d.charging {
			snapshot.Status = fleet.StatusCharging
		} else if d.payload == 0 && s.rng.Intn(4) == 0 {
			snapshot.Status = fleet.StatusIdle
		}
		snapshot.Location = waypoints[d.point]
		snapshot.Target = waypoints[(d.point+1)%len(waypoints)]
		snapshot.Numeric = map[string]float64{fleet.AttrCharge: d.charge}
		snapshot.Lists = map[string][]string{fleet.ListPayload: products(d.id, d.payload)}

	case fleet.CategoryStation:
		snapshot.Status = fleet.StatusProcessing
		if d.buffer == 0 {
			snapshot.Status = fleet.StatusIdle
		}
		snapshot.Lists = map[string][]string{fleet.ListBuffer: products(d.id, d.buffer)}

	case fleet.CategoryConveyor:
		snapshot.Status = fleet.StatusActive
		if d.blocked {
			snapshot.Status = fleet.StatusBlocked
		}
		snapshot.Lists = map[string][]string{fleet.ListBuffer: products(d.id, d.buffer)}

	case fleet.CategoryStorage:
		snapshot.Status = fleet.StatusActive
		snapshot.Lists = map[string][]string{fleet.ListBuffer: products(d.id, d.buffer)}
	}

	return snapshot
}

// products synthesizes stable product IDs for a buffer of the given
// size.
func products(owner string, count int) []string {
	items := make([]string, count)
	for i := range items {
		items[i] = fmt.Sprintf("%s-item-%d", owner, i)
	}
	return items
}
