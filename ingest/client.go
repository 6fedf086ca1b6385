// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/floorsense/floorsense/collector"
	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// Client is a connection to an ingest server. Safe for concurrent
// use; requests are serialized over the single connection.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to the ingest server at the given Unix socket path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ingest: dialing %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip sends one request and reads its response. A response with
// OK false becomes an error.
func (c *Client) roundTrip(request Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := WriteFrame(c.conn, request); err != nil {
		return nil, err
	}
	var response Response
	if err := ReadFrame(c.conn, &response); err != nil {
		return nil, err
	}
	if !response.OK {
		return nil, fmt.Errorf("ingest: %s: %s", request.Action, response.Error)
	}
	return &response, nil
}

// SendSnapshot ingests one device snapshot.
func (c *Client) SendSnapshot(snapshot fleet.Snapshot) error {
	_, err := c.roundTrip(Request{Action: ActionSnapshot, Snapshot: &snapshot})
	return err
}

// Context fetches the bounded digest. maxEvents <= 0 selects the
// server default.
func (c *Client) Context(maxEvents int) (*collector.Context, error) {
	response, err := c.roundTrip(Request{Action: ActionContext, MaxEvents: maxEvents})
	if err != nil {
		return nil, err
	}
	if response.Context == nil {
		return nil, fmt.Errorf("ingest: context response has no digest")
	}
	return response.Context, nil
}

// Summary fetches the natural-language summary for the trailing
// window. windowSeconds <= 0 selects the server default.
func (c *Client) Summary(windowSeconds int) (string, error) {
	response, err := c.roundTrip(Request{Action: ActionSummary, WindowSeconds: windowSeconds})
	if err != nil {
		return "", err
	}
	return response.Summary, nil
}

// Events fetches up to count retained events at or above minTier.
func (c *Client) Events(count int, minTier collector.Tier) ([]EventRecord, error) {
	response, err := c.roundTrip(Request{Action: ActionEvents, Count: count, MinTier: minTier})
	if err != nil {
		return nil, err
	}
	return response.Events, nil
}

// States fetches the device state views for one category.
func (c *Client) States(category fleet.Category) (map[string]collector.DeviceView, error) {
	response, err := c.roundTrip(Request{Action: ActionStates, Category: category})
	if err != nil {
		return nil, err
	}
	return response.States, nil
}

// Overview fetches the fleet-wide structured summary.
func (c *Client) Overview() (*collector.Overview, error) {
	response, err := c.roundTrip(Request{Action: ActionOverview})
	if err != nil {
		return nil, err
	}
	if response.Overview == nil {
		return nil, fmt.Errorf("ingest: overview response has no summary")
	}
	return response.Overview, nil
}

// Zone fetches one zone's structured summary.
func (c *Client) Zone(zone string) (*collector.ZoneSummary, error) {
	response, err := c.roundTrip(Request{Action: ActionZone, Zone: zone})
	if err != nil {
		return nil, err
	}
	if response.Zone == nil {
		return nil, fmt.Errorf("ingest: zone response has no summary")
	}
	return response.Zone, nil
}

// Status fetches server liveness and engine counters.
func (c *Client) Status() (*collector.Stats, error) {
	response, err := c.roundTrip(Request{Action: ActionStatus})
	if err != nil {
		return nil, err
	}
	if response.Stats == nil {
		return nil, fmt.Errorf("ingest: status response has no stats")
	}
	return response.Stats, nil
}
