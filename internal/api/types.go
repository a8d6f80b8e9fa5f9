package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mattjoyce/mortar/internal/events"
	"github.com/mattjoyce/mortar/internal/storage"
)

// HistoryReader is the read-only slice of the store the API serves
// from. The engine itself never reads the store; this surface exists
// for operators.
type HistoryReader interface {
	ListPebbles(ctx context.Context) ([]storage.Definition, error)
	ListCements(ctx context.Context) ([]storage.Definition, error)
	ListConstructs(ctx context.Context) ([]storage.Definition, error)
	ListPasses(ctx context.Context, limit int) ([]storage.Pass, error)
	ListExecutionLogs(ctx context.Context, passID string, limit int) ([]storage.ExecutionLog, error)
}

// EventSource exposes buffered telemetry events for late clients.
type EventSource interface {
	SnapshotSince(lastID int64) []events.Event
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is the bearer token; empty means the API serves
	// unauthenticated (bind it to loopback).
	APIKey string
}

type definitionResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Steps       int      `json:"steps"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

type passResponse struct {
	ID        string `json:"id"`
	Construct string `json:"construct"`
	Kind      string `json:"kind"`
	Schedule  string `json:"schedule,omitempty"`
	CreatedAt string `json:"created_at"`
}

type executionLogResponse struct {
	ID        string          `json:"id"`
	Pebble    string          `json:"pebble"`
	Construct string          `json:"construct"`
	PassID    string          `json:"pass_id"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time,omitempty"`
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func timeS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
