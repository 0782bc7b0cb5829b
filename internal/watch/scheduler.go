// Package watch re-runs the world scanner on a cron schedule, persisting fresh results to
// the scan index on every tick.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cobaltcrest/anvilctl/internal/worldindex"
	"github.com/cobaltcrest/anvilctl/internal/worldscan"
	"github.com/cobaltcrest/anvilctl/pkg/logger"
)

// Scheduler periodically re-scans a fixed set of world roots and writes the results into
// the Index Store.
type Scheduler struct {
	store   *worldindex.Store
	scanner *worldscan.Scanner
	log     *logger.Logger
	roots   []string

	schedule   cron.Schedule
	cronParser cron.Parser

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastRun time.Time
	nextRun time.Time
}

// New builds a Scheduler that re-scans roots according to spec, a standard 5-field cron
// expression ("minute hour dom month dow").
func New(store *worldindex.Store, scanner *worldscan.Scanner, log *logger.Logger, roots []string, spec string) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("watch: invalid cron spec %q: %w", spec, err)
	}
	return &Scheduler{
		store:      store,
		scanner:    scanner,
		log:        log,
		roots:      roots,
		schedule:   schedule,
		cronParser: parser,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start begins the scheduling loop in a background goroutine.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("watch: scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.nextRun = s.schedule.Next(time.Now())

	s.wg.Add(1)
	go s.runLoop()
	s.log.Info("rescan scheduler started, next run at %s", s.nextRun.Format(time.RFC3339))
	return nil
}

// Stop signals the scheduling loop to exit and waits for it to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("rescan scheduler stopped")
	return nil
}

// IsRunning reports whether the scheduling loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	for {
		s.mu.RLock()
		next := s.nextRun
		s.mu.RUnlock()

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			s.runOnce()
			s.mu.Lock()
			s.lastRun = time.Now()
			s.nextRun = s.schedule.Next(s.lastRun)
			s.mu.Unlock()
		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	for _, root := range s.roots {
		summaries, err := s.scanner.Scan(root)
		if err != nil {
			s.log.Error("rescan of %s failed: %v", root, err)
			continue
		}
		for _, w := range summaries {
			if err := persist(ctx, s.store, w); err != nil {
				s.log.Error("persisting scan of %s failed: %v", w.Path, err)
			}
		}
	}
	if s.scanner.HeaderCache != nil {
		hits, misses := s.scanner.HeaderCache.Stats()
		s.log.Info("header cache: %d entries, %d hits, %d misses", s.scanner.HeaderCache.Len(), hits, misses)
	}
}

// persist writes one WorldSummary into the Index Store, replacing its prior region/chunk
// rows wholesale.
func persist(ctx context.Context, store *worldindex.Store, w worldscan.WorldSummary) error {
	worldID, err := store.UpsertWorld(ctx, w.Path, w.Name)
	if err != nil {
		return err
	}

	regions := make([]worldindex.ScannedRegion, len(w.Regions))
	chunks := make([][]worldindex.ScannedChunk, len(w.Regions))
	for i, r := range w.Regions {
		regions[i] = worldindex.ScannedRegion{
			RX:         r.RX,
			RZ:         r.RZ,
			FileSize:   r.FileSize,
			LastScanAt: time.Now().UTC(),
		}
		rowChunks := make([]worldindex.ScannedChunk, 0, r.PresentChunks)
		for _, c := range r.Chunks {
			if !c.Present {
				continue
			}
			rowChunks = append(rowChunks, worldindex.ScannedChunk{
				LocalX:    c.X,
				LocalZ:    c.Z,
				Present:   true,
				Timestamp: c.Timestamp,
			})
		}
		chunks[i] = rowChunks
	}
	return store.ReplaceRegions(ctx, worldID, regions, chunks)
}
