// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/floorsense/floorsense/collector"
)

// Server accepts connections on a Unix socket and dispatches requests
// to the collector engine.
type Server struct {
	collector *collector.Collector
	logger    *slog.Logger
}

// ServerConfig holds the parameters for creating a Server.
type ServerConfig struct {
	// Collector is the engine to dispatch to. Required.
	Collector *collector.Collector

	// Logger receives connection and request logs. Required.
	Logger *slog.Logger
}

// NewServer creates a Server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Collector == nil {
		return nil, fmt.Errorf("ingest: Collector is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("ingest: Logger is required")
	}
	return &Server{
		collector: cfg.Collector,
		logger:    cfg.Logger,
	}, nil
}

// ListenSocket creates a Unix socket listener at path, creating the
// parent directory and removing any stale socket file from a previous
// run.
func ListenSocket(path string) (net.Listener, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ingest: creating socket directory %s: %w", dir, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ingest: removing stale socket %s: %w", path, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ingest: listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0660); err != nil {
		listener.Close()
		return nil, fmt.Errorf("ingest: setting socket permissions: %w", err)
	}
	return listener, nil
}

// Serve accepts connections until the context is cancelled or the
// listener fails. Each connection is handled on its own goroutine.
func (s *Server) Serve(ctx context.Context, listener net.Listener) {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection processes request/response cycles until the peer
// disconnects. Request errors are answered, logged, and survived; the
// connection closes only on transport failure or peer close.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	s.logger.Debug("connection opened", "remote", conn.RemoteAddr())

	for {
		if ctx.Err() != nil {
			return
		}

		var request Request
		if err := ReadFrame(conn, &request); err != nil {
			if err == io.EOF {
				s.logger.Debug("connection closed", "remote", conn.RemoteAddr())
				return
			}
			s.logger.Error("reading request", "error", err)
			// The stream may be desynchronized after a framing
			// error; answer and drop the connection.
			s.writeResponse(conn, Response{OK: false, Error: "invalid frame"})
			return
		}

		response := s.dispatch(&request)
		if !response.OK {
			s.logger.Warn("request failed", "action", request.Action, "error", response.Error)
		}
		if err := s.writeResponse(conn, response); err != nil {
			s.logger.Error("writing response", "error", err)
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, response Response) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetWriteDeadline(time.Time{})
	return WriteFrame(conn, response)
}

// dispatch routes one request to the engine.
func (s *Server) dispatch(request *Request) Response {
	switch request.Action {
	case ActionSnapshot:
		if request.Snapshot == nil {
			return Response{OK: false, Error: "snapshot request has no snapshot"}
		}
		if err := s.collector.Ingest(*request.Snapshot); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}

	case ActionContext:
		digest := s.collector.GetContext(request.MaxEvents)
		return Response{OK: true, Context: &digest}

	case ActionSummary:
		// WindowSeconds <= 0 defers to the engine's configured default.
		window := time.Duration(request.WindowSeconds) * time.Second
		return Response{OK: true, Summary: s.collector.GetSummary(window)}

	case ActionEvents:
		var events []collector.Event
		if request.MinTier > 0 {
			events = s.collector.GetFilteredEvents(request.Count, request.MinTier)
		} else {
			events = s.collector.GetRecentEvents(request.Count)
		}
		return Response{OK: true, Events: eventRecords(events)}

	case ActionStates:
		if !request.Category.Valid() {
			return Response{OK: false, Error: fmt.Sprintf("unknown category %q", request.Category)}
		}
		return Response{OK: true, States: s.collector.GetDeviceStates(request.Category)}

	case ActionOverview:
		overview := s.collector.GetOverview()
		return Response{OK: true, Overview: &overview}

	case ActionZone:
		if request.Zone == "" {
			return Response{OK: false, Error: "zone request has no zone"}
		}
		summary := s.collector.GetZoneSummary(request.Zone)
		return Response{OK: true, Zone: &summary}

	case ActionStatus:
		stats := s.collector.GetStats()
		return Response{OK: true, Stats: &stats}
	}

	return Response{OK: false, Error: fmt.Sprintf("unknown action %q", request.Action)}
}

// eventRecords projects engine events into their wire shape.
func eventRecords(events []collector.Event) []EventRecord {
	records := make([]EventRecord, len(events))
	for i, event := range events {
		records[i] = EventRecord{
			Type:        event.Type,
			DeviceID:    event.DeviceID,
			Zone:        event.Zone,
			Category:    event.Category,
			Timestamp:   event.Timestamp.UnixNano(),
			Tier:        event.Tier,
			Description: event.Description,
			Tags:        event.Tags,
			Trend:       event.Trend,
		}
	}
	return records
}
