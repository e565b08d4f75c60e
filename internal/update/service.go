package update

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jxscout/internal/slogutil"
)

// Service runs the release check on start and then periodically until stopped.
// It is created once per process and passed to whoever needs it.
type Service struct {
	checker  *Checker
	interval time.Duration
	notify   func(*UpdateInfo)
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	lastCheck time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewService creates a Service. notify is called for every check that finds an update.
func NewService(checker *Checker, interval time.Duration, notify func(*UpdateInfo), logger *slog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		checker:  checker,
		interval: interval,
		notify:   notify,
		logger:   slogutil.OrDiscard(logger).With(slogutil.ComponentKey, "update"),
		now:      time.Now,
	}
}

// Start checks immediately and then once per interval. Calling Start on a running
// service does nothing.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.CheckNow(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CheckNow(ctx)
			}
		}
	}()
}

// Stop ends the periodic checks and waits for a running one to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// CheckNow runs one check unless another ran within the interval. It reports whether
// an update was found. Failures are logged, never returned.
func (s *Service) CheckNow(ctx context.Context) bool {
	now := s.now()

	s.mu.Lock()
	if !s.lastCheck.IsZero() && now.Sub(s.lastCheck) < s.interval {
		s.mu.Unlock()
		return false
	}
	s.lastCheck = now
	s.mu.Unlock()

	info, err := s.checker.Check(ctx)
	if err != nil {
		s.logger.Warn("Failed to check for updates", "error", err)
		return false
	}
	if info == nil {
		return false
	}

	s.logger.Info("Update available", "current", info.CurrentVersion, "latest", info.LatestVersion)
	if s.notify != nil {
		s.notify(info)
	}
	return true
}
