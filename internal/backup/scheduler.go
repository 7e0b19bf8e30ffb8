// Package backup periodically exports every stored configuration document
// as JSONL and writes it to one or more destinations.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runelite/api.runelite.net/internal/idgen"
)

// Snapshot is one JSONL export.
type Snapshot struct {
	ID    string
	Taken time.Time
	Data  []byte
}

// Destination is the interface for a backup target (S3, git, etc.).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores the snapshot.
	Write(ctx context.Context, snap Snapshot) error
}

// Scheduler runs periodic backups to one or more destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from src to the given
// destinations at the specified interval.
func NewScheduler(src Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       src,
		destinations: destinations,
		interval:     interval,
		logger:       logger.With("component", "backup"),
	}
}

// Start begins periodic backups. It runs one immediately, then on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current backup (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	_ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce exports once and writes to every destination. A failing
// destination does not stop the others; their errors are joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	id, err := idgen.New(idgen.BackupPrefix)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.source, id, &buf); err != nil {
		s.logger.Error("backup export failed", "backup_id", id, "err", err)
		return err
	}
	snap := Snapshot{ID: id, Taken: time.Now().UTC(), Data: buf.Bytes()}

	var errs []error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, snap); err != nil {
			s.logger.Error("backup destination write failed", "backup_id", id, "destination", dest.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", dest.Name(), err))
		}
	}

	s.logger.Info("backup completed",
		"backup_id", id,
		"destinations", len(s.destinations),
		"failed", len(errs),
		"bytes", len(snap.Data),
	)
	return errors.Join(errs...)
}
