package curator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig contains the background curation cadence.
type SchedulerConfig struct {
	// DecayInterval is how often the decay pass runs (default 6h).
	DecayInterval time.Duration

	// IdleThreshold is how long the store must be quiet before a
	// consolidation pass runs (default 30m).
	IdleThreshold time.Duration

	// PollInterval is how often the scheduler wakes to check its timers
	// (default 1m).
	PollInterval time.Duration
}

// DefaultSchedulerConfig returns the default cadence.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DecayInterval: 6 * time.Hour,
		IdleThreshold: 30 * time.Minute,
		PollInterval:  time.Minute,
	}
}

// Scheduler drives the curator in the background: decay on a fixed interval,
// consolidation once per idle period. Callers signal activity through Touch;
// a quiet stretch longer than the idle threshold triggers at most one
// consolidation pass until activity resumes.
type Scheduler struct {
	curator *Curator
	cfg     SchedulerConfig
	logger  *slog.Logger

	mu           sync.Mutex
	lastActivity time.Time
	consolidated bool

	now func() time.Time
}

// NewScheduler creates a scheduler around a curator. Every zero config field
// falls back to its DefaultSchedulerConfig() value; a nil logger falls back
// to slog.Default().
func NewScheduler(curator *Curator, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.DecayInterval == 0 {
		cfg.DecayInterval = def.DecayInterval
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = def.IdleThreshold
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = def.PollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		curator: curator,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
	s.lastActivity = s.now()
	return s
}

// Touch records store activity, deferring consolidation and re-arming it for
// the next idle period.
func (s *Scheduler) Touch() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.consolidated = false
	s.mu.Unlock()
}

// Run blocks, driving curation until the context is canceled. It always
// returns the context's error.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	nextDecay := s.now().Add(s.cfg.DecayInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now := s.now()

		if !now.Before(nextDecay) {
			if _, err := s.curator.Decay(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("scheduled decay pass failed", "error", err)
			}
			nextDecay = now.Add(s.cfg.DecayInterval)
		}

		if s.idleReady(now) {
			if _, err := s.curator.Consolidate(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("scheduled consolidation pass failed", "error", err)
				continue
			}
			s.markConsolidated()
		}
	}
}

// idleReady reports whether the idle period has elapsed without a
// consolidation pass having run yet.
func (s *Scheduler) idleReady(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.consolidated && now.Sub(s.lastActivity) >= s.cfg.IdleThreshold
}

func (s *Scheduler) markConsolidated() {
	s.mu.Lock()
	s.consolidated = true
	s.mu.Unlock()
}
