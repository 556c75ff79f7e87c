package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
)

const sweepTimeout = time.Minute

// HousekeepingService periodically deletes refresh token records that have
// been expired for longer than Retention.
type HousekeepingService struct {
	Tokens    store.RefreshTokens
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(
	tokens store.RefreshTokens,
	logger *slog.Logger,
	interval, retention time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention < 0 {
		retention = 0
	}

	return &HousekeepingService{
		Tokens:    tokens,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs a sweep immediately and then every Interval until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}
}

// RunOnce performs a single sweep.
func (s *HousekeepingService) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.Tokens.DeleteExpiredRefreshTokens(ctx, s.Retention)
	if err != nil {
		return 0, err
	}
	s.Logger.Info("housekeeping sweep completed", "deleted_refresh_tokens", n)
	return n, nil
}
