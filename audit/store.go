// Package audit provides persistent storage for task results and their
// audit trails, the record compliance reviewers depend on.
//
// Supported backends:
// - Memory: for development and testing (default)
// - GORM: for relational deployments (SQLite, PostgreSQL)
// - Redis: for distributed deployments
package audit

import (
	"context"
	"errors"

	"github.com/BaSui01/agentcore/orchestrator"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeSQLite   StoreType = "sqlite"
	StoreTypePostgres StoreType = "postgres"
	StoreTypeRedis    StoreType = "redis"
)

// Store persists completed task results. Implementations must be safe for
// concurrent use.
type Store interface {
	// SaveResult persists one task result keyed by its task id.
	// Saving the same task id twice overwrites the previous record.
	SaveResult(ctx context.Context, result *orchestrator.TaskResult) error

	// GetResult returns the result stored under taskID, or ErrNotFound.
	GetResult(ctx context.Context, taskID string) (*orchestrator.TaskResult, error)

	// ListRecent returns up to limit results, most recent first.
	ListRecent(ctx context.Context, limit int) ([]*orchestrator.TaskResult, error)

	// Ping checks backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
