package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"recycle-watch/internal/alerting"
	"recycle-watch/internal/config"
	"recycle-watch/internal/fetcher"
	"recycle-watch/internal/scheduler"
	"recycle-watch/internal/service"
	"recycle-watch/internal/state"
	"recycle-watch/internal/storage"
	"recycle-watch/internal/tracker"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newChain() *fetcher.Chain {
	return fetcher.NewChain(fetcher.ChainOptions{
		Endpoint: a.Config.Chain.Endpoint,
		Timeout:  a.Config.Chain.RequestTimeout,
	}, a.Logger)
}

func (a *App) newCLI() *fetcher.CLI {
	cfg := a.Config.BTCLI
	return fetcher.NewCLI(fetcher.CLIOptions{
		Binary:       cfg.Binary,
		Network:      cfg.Network,
		WalletName:   cfg.WalletName,
		WalletHotkey: cfg.WalletHotkey,
		Timeout:      cfg.Timeout,
	}, a.Logger)
}

// newFetcher returns the configured cost source and a release func.
func (a *App) newFetcher() (fetcher.CostFetcher, func()) {
	var closers []func()
	build := func(source string) fetcher.CostFetcher {
		if source == config.SourceCLI {
			return a.newCLI()
		}
		chain := a.newChain()
		closers = append(closers, chain.Close)
		return chain
	}

	var costs fetcher.CostFetcher = build(a.Config.Recycle.Source)
	if fb := a.Config.Recycle.Fallback; fb != "" {
		costs = fetcher.NewFallback(costs, build(fb), a.Logger)
	}

	return costs, func() {
		for _, c := range closers {
			c()
		}
	}
}

func (a *App) newNotifier() alerting.Notifier {
	timeout := a.Config.Alerting.Timeout
	var channels alerting.Multi
	if cfg := a.Config.Alerting.Slack; cfg.Enabled {
		channels = append(channels, alerting.NewSlackNotifier(cfg.Token, cfg.Channel, cfg.APIBase, timeout, a.Logger))
	}
	if cfg := a.Config.Alerting.Telegram; cfg.Enabled {
		channels = append(channels, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, timeout, a.Logger))
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}

func (a *App) newStateStore() (state.Store, func()) {
	if a.Config.State.Backend == config.BackendRedis {
		cfg := a.Config.State.Redis
		store := state.NewRedisStore(state.RedisOptions{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			Key:         cfg.Key,
			DialTimeout: cfg.DialTimeout,
		}, a.Logger)
		return store, func() {
			if err := store.Close(); err != nil {
				a.Logger.Warn().Err(err).Msg("close redis state store")
			}
		}
	}
	return state.NewFileStore(a.Config.State.Path, a.Logger), func() {}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) thresholds() tracker.Thresholds {
	return tracker.Thresholds{
		SuperLow: decimal.NewFromFloat(a.Config.Thresholds.SuperLow),
		Low:      decimal.NewFromFloat(a.Config.Thresholds.Low),
	}
}

// newService wires a service; the returned func releases every resource.
func (a *App) newService(ctx context.Context, sched *scheduler.Scheduler, costs fetcher.CostFetcher) (*service.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	states, closeStates := a.newStateStore()

	var readings storage.ReadingStore
	if store != nil {
		readings = store
	} else {
		a.Logger.Debug().Msg("database.dsn not configured; reading history disabled")
	}

	opts := service.Options{
		NetUID:        a.Config.Subnet.NetUID,
		Thresholds:    a.thresholds(),
		AlertsEnabled: a.Config.Alerting.Enabled,
		LockKey:       a.Config.Scheduler.AdvisoryLockKey,
	}
	svc := service.New(opts, sched, costs, states, a.newNotifier(), readings, a.Logger)

	release := func() {
		closeStates()
		if closeStore != nil {
			closeStore()
		}
	}
	return svc, release, nil
}

// Run executes the long-running polling loop until SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	if err := a.Config.ValidateAlerting(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: a.Config.Scheduler.RunImmediately,
	}, a.Logger)

	costs, closeFetcher := a.newFetcher()
	defer closeFetcher()

	svc, release, err := a.newService(ctx, sched, costs)
	if err != nil {
		return err
	}
	defer release()

	a.Logger.Info().
		Str("netuid", a.Config.Subnet.NetUID).
		Str("source", a.Config.Recycle.Source).
		Str("fallback", a.Config.Recycle.Fallback).
		Dur("interval", a.Config.Scheduler.Interval).
		Msg("starting recycle watch")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("recycle watch stopped")
	return nil
}

// Check runs exactly one cycle against the live source.
func (a *App) Check(ctx context.Context) error {
	if err := a.Config.ValidateAlerting(); err != nil {
		return err
	}

	costs, closeFetcher := a.newFetcher()
	defer closeFetcher()

	svc, release, err := a.newService(ctx, nil, costs)
	if err != nil {
		return err
	}
	defer release()

	if _, err := svc.RunCycle(ctx, time.Now()); err != nil {
		return fmt.Errorf("check cycle: %w", err)
	}
	return nil
}

// Simulate runs one cycle with a given cost instead of a live reading.
func (a *App) Simulate(ctx context.Context, cost decimal.Decimal) error {
	if err := a.Config.ValidateAlerting(); err != nil {
		return err
	}

	svc, release, err := a.newService(ctx, nil, nil)
	if err != nil {
		return err
	}
	defer release()

	if _, err := svc.Apply(ctx, cost, time.Now()); err != nil {
		return fmt.Errorf("simulate cycle: %w", err)
	}
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting reading history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
