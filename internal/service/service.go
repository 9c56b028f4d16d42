package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"recycle-watch/internal/alerting"
	"recycle-watch/internal/fetcher"
	"recycle-watch/internal/scheduler"
	"recycle-watch/internal/state"
	"recycle-watch/internal/storage"
	"recycle-watch/internal/tracker"
)

// Options carry the per-process constants of the poll loop.
type Options struct {
	NetUID        string
	Thresholds    tracker.Thresholds
	AlertsEnabled bool
	LockKey       int64
}

// Service runs the extract, evaluate, notify, persist cycle.
type Service struct {
	scheduler *scheduler.Scheduler
	fetcher   fetcher.CostFetcher
	states    state.Store
	notifier  alerting.Notifier
	readings  storage.ReadingStore
	logger    zerolog.Logger

	opts    Options
	locker  storage.AdvisoryLocker
	lockKey int64
}

// New constructs the monitoring service. sched, notifier and readings may be nil.
func New(opts Options, sched *scheduler.Scheduler, costs fetcher.CostFetcher, states state.Store, notifier alerting.Notifier, readings storage.ReadingStore, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := readings.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		fetcher:   costs,
		states:    states,
		notifier:  notifier,
		readings:  readings,
		logger:    logger.With().Str("component", "service").Str("netuid", opts.NetUID).Logger(),
		opts:      opts,
		locker:    locker,
		lockKey:   opts.LockKey,
	}
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, at time.Time) error {
		_, err := s.RunCycle(ctx, at)
		return err
	})
}

// RunCycle fetches the current cost and applies it. A fetch failure leaves
// the persisted flags untouched.
func (s *Service) RunCycle(ctx context.Context, at time.Time) (*tracker.Decision, error) {
	logger := s.logger.With().Str("cycle_id", uuid.NewString()).Logger()

	cost, err := s.fetcher.FetchCost(ctx, s.opts.NetUID)
	if err != nil {
		return nil, fmt.Errorf("fetch recycle cost: %w", err)
	}
	logger.Debug().Str("cost", cost.String()).Msg("recycle cost fetched")

	return s.apply(ctx, logger, cost, at)
}

// Apply evaluates a known cost as if it had just been fetched.
func (s *Service) Apply(ctx context.Context, cost decimal.Decimal, at time.Time) (*tracker.Decision, error) {
	logger := s.logger.With().Str("cycle_id", uuid.NewString()).Logger()
	return s.apply(ctx, logger, cost, at)
}

func (s *Service) apply(ctx context.Context, logger zerolog.Logger, cost decimal.Decimal, at time.Time) (*tracker.Decision, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	if !proceed {
		logger.Debug().Msg("skip cycle because advisory lock held elsewhere")
		return nil, nil
	}
	if unlock != nil {
		defer unlock()
	}

	prev, err := s.states.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	decision := tracker.Evaluate(prev, cost, s.opts.Thresholds)

	sent := make([]string, 0, len(decision.Notices))
	for _, notice := range decision.Notices {
		if s.dispatch(ctx, logger, notice, cost, at) {
			sent = append(sent, string(notice.Kind))
		}
	}

	if err := s.states.Save(ctx, decision.Next); err != nil {
		return &decision, fmt.Errorf("save state: %w", err)
	}

	if s.readings != nil {
		reading := storage.Reading{
			ObservedAt:    at.UTC(),
			NetUID:        s.opts.NetUID,
			Cost:          cost,
			Band:          decision.Band.String(),
			Low:           decision.Next.Low,
			SuperLow:      decision.Next.SuperLow,
			Notifications: sent,
		}
		if _, err := s.readings.InsertReading(ctx, reading); err != nil {
			logger.Error().Err(err).Msg("failed to record reading")
		}
	}

	logger.Info().
		Str("band", decision.Band.String()).
		Str("cost", cost.String()).
		Bool("low", decision.Next.Low).
		Bool("super_low", decision.Next.SuperLow).
		Int("notifications", len(sent)).
		Msg(decision.LogLine)

	return &decision, nil
}

// dispatch reports whether the notice was delivered.
func (s *Service) dispatch(ctx context.Context, logger zerolog.Logger, notice tracker.Notice, cost decimal.Decimal, at time.Time) bool {
	if !s.opts.AlertsEnabled || s.notifier == nil {
		logger.Info().Str("kind", string(notice.Kind)).Str("text", notice.Text).Msg("notification suppressed (alerting disabled)")
		return false
	}

	note := alerting.Notification{
		NetUID: s.opts.NetUID,
		Kind:   string(notice.Kind),
		Text:   notice.Text,
		Cost:   cost,
		At:     at,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		var partial *alerting.PartialError
		if errors.As(err, &partial) {
			logger.Warn().Err(err).Str("kind", string(notice.Kind)).Int("delivered", partial.Delivered).Msg("notification reached some channels")
			return true
		}
		logger.Error().Err(err).Str("kind", string(notice.Kind)).Msg("failed to dispatch notification")
		return false
	}
	return true
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
