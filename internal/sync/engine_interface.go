// Package sync reconciles the local mutation queue with the remote service.
package sync

import (
	"context"
	"time"

	"github.com/EMMADEKO10/restaurant-sub000/internal/models"
)

// RemoteService defines the narrow surface the engine needs from the remote
// collection service. The HTTP client implements it; tests substitute fakes.
type RemoteService interface {
	// FetchAll lists all records of a collection.
	FetchAll(ctx context.Context, collection models.Collection) ([]map[string]any, error)

	// Create stores a new record and returns the server's canonical
	// version, including its assigned id.
	Create(ctx context.Context, collection models.Collection, payload map[string]any) (map[string]any, error)

	// Update puts changed fields onto an existing record.
	Update(ctx context.Context, collection models.Collection, id string, payload map[string]any) error

	// Ping probes the service for reachability.
	Ping(ctx context.Context) error
}

// Syncer defines the interface for sync engine operations. It allows mocking
// in tests and alternative implementations.
type Syncer interface {
	// Sync performs one sync pass. Offline and busy triggers return the
	// OFFLINE / SYNC_IN_PROGRESS codes; callers treat those as no-ops.
	Sync(ctx context.Context) (*Result, error)

	// Pending returns the number of unsynced queue items, including ones
	// past the retry cap.
	Pending() (int, error)

	// LastSync returns the time of the last successful pass, or nil if
	// none has completed.
	LastSync() (*time.Time, error)

	// SetOnline updates the engine's connectivity flag.
	SetOnline(online bool)

	// IsOnline reports the engine's connectivity flag.
	IsOnline() bool
}
