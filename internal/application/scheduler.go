package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRefreshInterval = 2 * time.Minute
	maxConcurrentRefreshes = 4
)

// Scheduler sweeps all accounts on a fixed interval and refreshes the ones
// already inside the safety margin, so foreground callers rarely pay for a
// cold refresh. Failures are logged and retried on the next tick.
type Scheduler struct {
	registry  *Registry
	lifecycle *Lifecycle
	interval  time.Duration
	logger    zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(registry *Registry, lifecycle *Lifecycle, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	return &Scheduler{registry: registry, lifecycle: lifecycle, interval: interval, logger: logger}
}

// Start launches the sweep loop, including an immediate first sweep.
// Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(runCtx, done)
}

// Stop cancels the loop and waits for the current sweep to drain. Stopping
// a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	accounts, err := s.registry.ListAccounts(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list accounts for refresh sweep")
		return
	}

	var group errgroup.Group
	group.SetLimit(maxConcurrentRefreshes)

	for _, account := range accounts {
		account := account
		group.Go(func() error {
			s.refreshAccount(ctx, account)
			return nil
		})
	}

	_ = group.Wait()
}

func (s *Scheduler) refreshAccount(ctx context.Context, account domain.Account) {
	needed, err := s.lifecycle.NeedsRefresh(ctx, account.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("account", string(account.ID)).Msg("refresh check failed")
		return
	}
	if !needed {
		return
	}

	if _, err := s.lifecycle.GetValidToken(ctx, account.ID); err != nil {
		if errors.Is(err, domain.ErrRefreshUnauthorized) {
			s.logger.Warn().Str("account", string(account.ID)).Msg("refresh token rejected, re-import required")
			return
		}
		s.logger.Error().Err(err).Str("account", string(account.ID)).Msg("refresh failed")
		return
	}

	s.logger.Info().Str("account", string(account.ID)).Msg("credential refreshed")
}
