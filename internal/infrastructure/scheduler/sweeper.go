// Package scheduler runs background jobs on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSweeperNotRunning is returned when stopping a sweeper that never started
var ErrSweeperNotRunning = errors.New("sweeper is not running")

// InvoiceSweeper rolls undue invoices past their due date into overdue.
// It returns the number of invoices whose status changed.
type InvoiceSweeper interface {
	RefreshInvoiceStatuses(ctx context.Context, now time.Time) (int, error)
}

// OverdueSweeperConfig holds the sweep loop configuration
type OverdueSweeperConfig struct {
	// CheckInterval is how often the sweep runs
	CheckInterval time.Duration

	// SweepTimeout bounds a single sweep pass
	SweepTimeout time.Duration
}

// DefaultOverdueSweeperConfig returns the default sweep configuration
func DefaultOverdueSweeperConfig() OverdueSweeperConfig {
	return OverdueSweeperConfig{
		CheckInterval: time.Minute,
		SweepTimeout:  30 * time.Second,
	}
}

// OverdueSweeper periodically refreshes invoice statuses so that invoices
// whose due date has passed are marked overdue without waiting for a write.
type OverdueSweeper struct {
	config  OverdueSweeperConfig
	sweeper InvoiceSweeper
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOverdueSweeper creates a new overdue sweeper
func NewOverdueSweeper(config OverdueSweeperConfig, sweeper InvoiceSweeper, logger *zap.Logger) *OverdueSweeper {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 30 * time.Second
	}
	return &OverdueSweeper{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start starts the sweep loop. Calling Start on a running sweeper is a no-op.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Overdue sweeper started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("sweep_timeout", s.config.SweepTimeout),
	)

	return nil
}

// Stop stops the sweep loop, waiting for an in-flight sweep to finish
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSweeperNotRunning
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *OverdueSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	// Sweep once at startup so a restart doesn't leave stale statuses
	s.sweep(ctx)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	refreshed, err := s.sweeper.RefreshInvoiceStatuses(sweepCtx, time.Now())
	if err != nil {
		s.logger.Error("Overdue sweep failed", zap.Error(err))
		return
	}

	if refreshed > 0 {
		s.logger.Info("Overdue sweep refreshed invoices", zap.Int("count", refreshed))
	}
}
