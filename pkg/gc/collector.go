// Package gc removes orphaned content blobs.
//
// A blob is orphaned when no stored document references it. This can occur
// due to:
//   - Crashes between writing a blob and saving the document that owns it
//   - Failed blob deletions when content is replaced or unset
//   - Documents deleted directly in the metadata store
//
// A blob is written before the document referencing it is saved. Blobs
// younger than Config.MinAge are therefore never collected, so a write in
// flight during a run keeps its blob.
//
// The collector works with any repository that can report its referenced
// content ids and any blob store that supports listing and batch deletion.
package gc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/metrics"
	"github.com/marmos91/dittocmis/pkg/store/content"
)

// ReferenceSource reports the content ids referenced by a collection.
// repository.Repository satisfies it.
type ReferenceSource interface {
	ContentIDs(ctx context.Context) ([]string, error)
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether periodic collection is active
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to run garbage collection (default: 24h)
	Interval time.Duration `mapstructure:"interval"`

	// BatchSize is how many orphaned items to delete per batch (default: 1000)
	// S3 supports up to 1000 objects per DeleteObjects call
	BatchSize int `mapstructure:"batch_size" validate:"gte=0"`

	// DryRun logs what would be deleted without deleting anything
	DryRun bool `mapstructure:"dry_run"`

	// RunTimeout bounds each periodic run (default: 10m)
	RunTimeout time.Duration `mapstructure:"run_timeout"`

	// MinAge keeps unreferenced blobs written less than MinAge ago.
	// 0 or negative collects every unreferenced blob.
	MinAge time.Duration `mapstructure:"min_age"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Interval == 0 {
		c.Interval = 24 * time.Hour
	}
	if c.BatchSize == 0 {
		c.BatchSize = 1000
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = 10 * time.Minute
	}
}

// Collector performs periodic garbage collection on a blob store.
//
// Thread Safety: Safe for concurrent use. Runs are serialized.
type Collector struct {
	sources []ReferenceSource
	blobs   content.GarbageCollectableStore
	config  Config
	metrics metrics.GCMetrics
	now     func() time.Time

	runMu    sync.Mutex
	stopOnce sync.Once
	started  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCollector creates a collector that is not yet started.
//
// Every collection whose documents may reference blobs in blobs must be
// listed in sources; blobs referenced by none of them are deleted.
func NewCollector(
	sources []ReferenceSource,
	blobs content.GarbageCollectableStore,
	config Config,
	m metrics.GCMetrics,
) (*Collector, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one reference source is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if m == nil {
		m = metrics.NewNoopGCMetrics()
	}

	config.ApplyDefaults()

	return &Collector{
		sources: sources,
		blobs:   blobs,
		config:  config,
		metrics: m,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins background garbage collection at the configured interval.
// It does nothing when the collector is disabled.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	logger.Info("Starting garbage collector: interval=%s batch_size=%d min_age=%s dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.MinAge, c.config.DryRun)

	c.started = true
	go c.worker()
}

// Stop stops the background worker and waits for an in-progress run.
// Safe to call multiple times.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.started {
		return nil
	}

	c.stopOnce.Do(func() {
		logger.Info("Stopping garbage collector...")
		close(c.stopCh)
	})

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate garbage collection run and blocks until it
// completes or ctx is cancelled.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running garbage collection (manual trigger)...")
	return c.collect(ctx)
}

// worker is the background goroutine that runs periodic garbage collection.
func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.RunTimeout)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single garbage collection run:
//  1. List every blob in the content store
//  2. Collect the content ids referenced by every source
//  3. orphaned = existing - referenced - younger than MinAge
//  4. Batch delete orphaned blobs
//
// Blobs are listed before references are read, so a blob written after the
// listing is never considered. A blob listed before its document is saved
// is protected only by MinAge.
func (c *Collector) collect(ctx context.Context) (stats *Stats, err error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	stats = &Stats{StartTime: time.Now(), DryRun: c.config.DryRun}
	defer func() {
		stats.EndTime = time.Now()
		c.metrics.RecordRun(stats.Duration(), int(stats.ExistingCount),
			int(stats.OrphanedCount), int(stats.DeletedCount), err)
	}()

	// ========================================================================
	// Phase 1: List existing blobs
	// ========================================================================

	existing, err := c.blobs.ListAllContent(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	logger.Debug("GC: Found %d existing content items", stats.ExistingCount)

	// ========================================================================
	// Phase 2: Collect referenced content ids
	// ========================================================================

	referenced := make(map[content.ContentID]struct{})
	for _, source := range c.sources {
		ids, err := source.ContentIDs(ctx)
		if err != nil {
			return stats, fmt.Errorf("failed to get referenced content: %w", err)
		}
		for _, id := range ids {
			referenced[content.ContentID(id)] = struct{}{}
		}
	}
	stats.ReferencedCount = uint64(len(referenced))

	logger.Debug("GC: Found %d referenced content items", stats.ReferencedCount)

	// ========================================================================
	// Phase 3: Compute orphans
	// ========================================================================

	var orphaned []content.ContentID
	for _, id := range existing {
		if _, ok := referenced[id]; ok {
			continue
		}
		young, err := c.tooYoung(ctx, id)
		if err != nil {
			return stats, err
		}
		if young {
			stats.SkippedCount++
			continue
		}
		orphaned = append(orphaned, id)
	}
	if stats.SkippedCount > 0 {
		logger.Debug("GC: Kept %d unreferenced items younger than %s", stats.SkippedCount, c.config.MinAge)
	}
	stats.OrphanedCount = uint64(len(orphaned))
	stats.Orphaned = orphaned

	if len(orphaned) == 0 {
		logger.Info("GC: No orphaned content found")
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - Would delete %d items", stats.OrphanedCount)
		return stats, nil
	}

	// ========================================================================
	// Phase 4: Batch delete
	// ========================================================================

	for i := 0; i < len(orphaned); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		batch := orphaned[i:min(i+c.config.BatchSize, len(orphaned))]

		failures, err := c.blobs.DeleteBatch(ctx, batch)
		if err != nil {
			logger.Warn("GC: Batch delete failed: %v", err)
			stats.FailedCount += uint64(len(batch))
			continue
		}

		stats.DeletedCount += uint64(len(batch) - len(failures))
		stats.FailedCount += uint64(len(failures))

		for id, ferr := range failures {
			logger.Debug("GC: Failed to delete %s: %v", id, ferr)
		}
	}

	logger.Info("GC: Completed - deleted %d items, %d failed, duration=%s",
		stats.DeletedCount, stats.FailedCount, time.Since(stats.StartTime))

	return stats, nil
}

// tooYoung reports whether id was written within the grace period. A blob
// that vanished meanwhile counts as young, so it is not deleted again.
func (c *Collector) tooYoung(ctx context.Context, id content.ContentID) (bool, error) {
	if c.config.MinAge <= 0 {
		return false, nil
	}

	modified, err := c.blobs.GetContentModTime(ctx, id)
	if errors.Is(err, content.ErrContentNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get age of %s: %w", id, err)
	}
	return c.now().Sub(modified) < c.config.MinAge, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime       time.Time           // When collection started
	EndTime         time.Time           // When collection ended
	DryRun          bool                // Whether deletion was skipped
	ReferencedCount uint64              // Distinct content ids referenced by documents
	ExistingCount   uint64              // Blobs in the content store
	OrphanedCount   uint64              // Blobs referenced by no document
	SkippedCount    uint64              // Unreferenced blobs younger than MinAge
	DeletedCount    uint64              // Orphans successfully deleted
	FailedCount     uint64              // Orphans that failed to delete
	Orphaned        []content.ContentID // The orphans found
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d skipped=%d deleted=%d failed=%d dry_run=%v duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount, s.SkippedCount,
		s.DeletedCount, s.FailedCount, s.DryRun, s.Duration())
}
