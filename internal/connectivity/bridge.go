// Package connectivity tracks online/offline transitions and exposes sync
// status to the embedding application without it touching the engine or the
// store directly.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/EMMADEKO10/restaurant-sub000/internal/errors"
	"github.com/EMMADEKO10/restaurant-sub000/internal/logging"
	syncpkg "github.com/EMMADEKO10/restaurant-sub000/internal/sync"
)

// Probe checks reachability of the remote service. The remote HTTP client's
// Ping implements it.
type Probe interface {
	Ping(ctx context.Context) error
}

// CacheClearer wipes the local cache. The facade implements it.
type CacheClearer interface {
	ClearCache() error
}

// Status is a point-in-time snapshot of connectivity and sync state.
type Status struct {
	Online      bool
	PendingSync int
	LastSync    *time.Time
}

// Config holds bridge tick intervals.
type Config struct {
	SyncInterval   time.Duration // periodic sync while online
	StatusInterval time.Duration // probe + status refresh cadence
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:   30 * time.Second,
		StatusInterval: 5 * time.Second,
	}
}

// Bridge owns the timers of the sync layer: it probes connectivity on the
// status interval, triggers a sync pass on the offline-to-online edge and on
// the sync interval, and keeps a status snapshot fresh for the UI.
type Bridge struct {
	engine syncpkg.Syncer
	probe  Probe
	cache  CacheClearer

	syncInterval   time.Duration
	statusInterval time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	status    Status

	log *logrus.Entry
}

// NewBridge creates a Bridge. A nil config uses the defaults.
func NewBridge(engine syncpkg.Syncer, probe Probe, cache CacheClearer, config *Config) *Bridge {
	if config == nil {
		config = DefaultConfig()
	}
	return &Bridge{
		engine:         engine,
		probe:          probe,
		cache:          cache,
		syncInterval:   config.SyncInterval,
		statusInterval: config.StatusInterval,
		stopCh:         make(chan struct{}),
		log:            logging.Component("connectivity"),
	}
}

// Start begins the probe/status and periodic-sync loops. Calling Start on a
// running bridge is a no-op.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return
	}
	b.isRunning = true
	b.mu.Unlock()

	// Establish initial connectivity before the first tick.
	b.checkConnectivity(ctx)
	b.refreshStatus()

	b.wg.Add(2)
	go b.statusLoop(ctx)
	go b.syncLoop(ctx)

	b.log.Info("connectivity bridge started")
}

// Stop stops the bridge and waits for its loops to finish. The engine's
// in-flight pass, if any, is not interrupted.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.isRunning {
		b.mu.Unlock()
		return
	}
	b.isRunning = false
	b.mu.Unlock()

	close(b.stopCh)
	b.wg.Wait()

	b.log.Info("connectivity bridge stopped")
}

// Status returns the latest snapshot.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// IsOnline reports current connectivity.
func (b *Bridge) IsOnline() bool {
	return b.engine.IsOnline()
}

// ForceSync runs one pass immediately and refreshes the snapshot.
func (b *Bridge) ForceSync(ctx context.Context) (*syncpkg.Result, error) {
	result, err := b.engine.Sync(ctx)
	b.refreshStatus()
	return result, err
}

// ClearCache wipes the local store and resets the exposed counters.
func (b *Bridge) ClearCache() error {
	if err := b.cache.ClearCache(); err != nil {
		return err
	}
	b.refreshStatus()
	return nil
}

func (b *Bridge) statusLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reconnected := b.checkConnectivity(ctx); reconnected {
				b.triggerSync(ctx)
			}
			b.refreshStatus()
		}
	}
}

func (b *Bridge) syncLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.engine.IsOnline() {
				b.triggerSync(ctx)
			}
		}
	}
}

// checkConnectivity probes the remote and updates the engine's flag. Returns
// true on the offline-to-online edge.
func (b *Bridge) checkConnectivity(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, b.statusInterval)
	defer cancel()

	wasOnline := b.engine.IsOnline()
	online := b.probe.Ping(probeCtx) == nil
	b.engine.SetOnline(online)

	if wasOnline != online {
		b.log.WithFields(logrus.Fields{
			"was_online": wasOnline,
			"is_online":  online,
		}).Info("connectivity changed")
	}
	return !wasOnline && online
}

func (b *Bridge) triggerSync(ctx context.Context) {
	if _, err := b.engine.Sync(ctx); err != nil &&
		!apperrors.Is(err, apperrors.ErrSyncInProgress) && !apperrors.Is(err, apperrors.ErrOffline) {
		b.log.WithError(err).Warn("background sync failed")
	}
}

func (b *Bridge) refreshStatus() {
	pending, err := b.engine.Pending()
	if err != nil {
		b.log.WithError(err).Warn("failed to read pending count")
	}
	lastSync, err := b.engine.LastSync()
	if err != nil {
		b.log.WithError(err).Warn("failed to read last sync time")
	}

	b.mu.Lock()
	b.status = Status{
		Online:      b.engine.IsOnline(),
		PendingSync: pending,
		LastSync:    lastSync,
	}
	b.mu.Unlock()
}
