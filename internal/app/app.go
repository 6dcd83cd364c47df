package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/flyvpn/flyvpn-tui/internal/api"
	"github.com/flyvpn/flyvpn-tui/internal/badges"
	"github.com/flyvpn/flyvpn-tui/internal/config"
	"github.com/flyvpn/flyvpn-tui/internal/connlog"
	"github.com/flyvpn/flyvpn-tui/internal/intel"
	"github.com/flyvpn/flyvpn-tui/internal/keymap"
	"github.com/flyvpn/flyvpn-tui/internal/logging"
	"github.com/flyvpn/flyvpn-tui/internal/progression"
	"github.com/flyvpn/flyvpn-tui/internal/providers"
	"github.com/flyvpn/flyvpn-tui/internal/routing"
	"github.com/flyvpn/flyvpn-tui/internal/settings"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/storage"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	root "github.com/flyvpn/flyvpn-tui/internal/ui/root"
	"github.com/flyvpn/flyvpn-tui/internal/vpn"
)

const providerTimeout = 10 * time.Second

// Options control how the application is executed.
type Options struct {
	ConfigPath string
	Theme      string
	// ListenAddr overrides intel_listen when set.
	ListenAddr string
	// APIAddr overrides api_listen when set.
	APIAddr string
	// LogWriter replaces the log file, mainly for tests.
	LogWriter io.Writer
}

// App holds the wired core. Build creates it and Close releases it.
type App struct {
	Config     config.Config
	ConfigPath string
	DataDir    string

	Store    *state.Store
	Logger   *slog.Logger
	Catalog  *badges.Catalog
	Gateway  *storage.Gateway
	Session  *vpn.Session
	Configs  *vpn.ConfigService
	Recorder *connlog.Recorder
	Engine   *progression.Engine
	Intel    *intel.Service
	Supplier *providers.Supplier
	Settings *settings.Manager

	// fileConfig is the config as read from disk, without flag overrides.
	fileConfig config.Config
	kv         storage.KV
	logCloser  io.Closer
}

// Build loads configuration, opens storage and seeds the store. It does not
// start any goroutines.
func Build(ctx context.Context, opts Options) (*App, error) {
	configPath, err := config.ResolvePath(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	loaded = config.Normalize(loaded)
	// flag overrides apply to this run only and never reach the saved file
	cfg := loaded
	if opts.ListenAddr != "" {
		cfg.IntelListen = opts.ListenAddr
	}
	if opts.APIAddr != "" {
		cfg.APIListen = opts.APIAddr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dataDir, err := config.ResolveDataDir(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(dataDir, "flyvpn.log")
	}
	logger, logCloser, err := logging.Setup(logging.Options{Path: logPath, Writer: opts.LogWriter, Level: cfg.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	kv, err := storage.Open(cfg.Storage, dataDir)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &App{
		Config:     cfg,
		ConfigPath: configPath,
		DataDir:    dataDir,
		Store:      state.NewStore(),
		Logger:     logger,
		Catalog:    badges.Default(),
		Gateway:    storage.NewGateway(kv, logger),
		fileConfig: loaded,
		kv:         kv,
		logCloser:  logCloser,
	}
	a.wire()
	a.seed(ctx)
	logger.Info("flyvpn started", "config", configPath, "data_dir", dataDir, "storage", cfg.Storage, "servers", len(a.Store.Servers()))
	return a, nil
}

func (a *App) wire() {
	cfg, store, logger := a.Config, a.Store, a.Logger

	a.Configs = vpn.NewConfigService(store, a.Gateway, logger)
	a.Recorder = connlog.New(connlog.Options{
		Persister: a.Gateway,
		Store:     store,
		Enabled:   func() bool { return store.Config().LogManagerEnabled },
		Logger:    logger,
	})
	a.Session = vpn.NewSession(vpn.Options{
		Store:     store,
		Transport: vpn.NewSimulatedTransport(vpn.Timings(cfg.Timings)),
		Recorder:  a.Recorder,
		Config:    a.Configs,
		Logger:    logger,
	})
	a.Engine = progression.New(a.Gateway.LoadProgression(), progression.Options{
		Store:     store,
		Catalog:   a.Catalog,
		Persister: a.Gateway,
		Logger:    logger,
	})
	a.Intel = intel.NewService(store, a.Engine, logger)
	a.Settings = settings.NewManager(a.ConfigPath, a.fileConfig, store, a.Gateway)

	primary := cfg.Servers
	if len(primary) == 0 {
		primary = providers.DefaultPrimary()
	}
	var extra []providers.Provider
	if cfg.PublicNodes.Enabled {
		client := &http.Client{Timeout: providerTimeout}
		extra = append(extra,
			&providers.PublicGateway{URL: cfg.PublicNodes.GatewayURL, Doer: client},
			&providers.AnonymityNetwork{URL: cfg.PublicNodes.RelayURL, Doer: client},
		)
	}
	a.Supplier = providers.NewSupplier(primary, providers.SupplierOptions{
		Providers: extra,
		TTL:       cfg.PublicNodes.CacheTTL,
		Logger:    logger,
	})
}

// seed publishes persisted state and the initial server pool to the store.
func (a *App) seed(ctx context.Context) {
	store := a.Store
	if vpnCfg, ok := a.Gateway.LoadConfig(); ok {
		store.SetConfig(vpnCfg)
	}
	a.Recorder.Load()

	lang := a.Gateway.LoadLanguage()
	if lang == "" {
		lang = a.Config.Language
	}
	store.SetLanguage(config.NormalizeLanguage(lang))

	if loc := a.Config.Location; loc != nil {
		store.UpdateUser(func(u *state.UserStatus) {
			l := *loc
			u.Location = &l
		})
	}

	store.SetServers(a.Supplier.Primary())
	store.SetCurrentServer(state.DefaultServer(store.Servers()))
	if a.Config.PublicNodes.Enabled {
		go func() {
			fetchCtx, cancel := context.WithTimeout(ctx, 2*providerTimeout)
			defer cancel()
			pool := a.Supplier.Refresh(fetchCtx, store)
			a.Logger.Info("server pool refreshed", "servers", len(pool))
		}()
	}
}

// Close releases storage and the log file, reporting every failure.
func (a *App) Close() error {
	var errs *multierror.Error
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	return errs.ErrorOrNil()
}

// Run loads configuration, prepares state, and starts the Bubble Tea program
// together with the background loops.
func Run(ctx context.Context, opts Options) (err error) {
	a, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	runnerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, logger, cfg := a.Store, a.Logger, a.Config
	km := keymap.DefaultGlobal()
	rootModel := root.New(store, root.Options{
		Context:         runnerCtx,
		Theme:           theme.New(theme.Options{Override: opts.Theme, Preferred: cfg.Theme}),
		ThemePreference: cfg.Theme,
		KeyMap:          &km,
		Connection:      a.Session,
		Config:          a.Configs,
		Logs:            a.Recorder,
		Intel:           a.Intel,
		Pool:            a.Supplier,
		Settings:        a.Settings,
		Catalog:         a.Catalog,
		ExportDir:       a.DataDir,
	})
	prog := tea.NewProgram(rootModel, tea.WithAltScreen(), tea.WithContext(runnerCtx))

	group, groupCtx := errgroup.WithContext(runnerCtx)
	background := func(name string, fn func(context.Context) error) {
		group.Go(func() error {
			err := fn(groupCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task failed", "task", name, "err", err)
				prog.Quit()
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	background("lookup", func(ctx context.Context) error {
		// an unknown real address is shown as such, not fatal
		_ = a.Session.Lookup(ctx)
		return nil
	})
	background("routing", routing.New(routing.Options{
		Store:    store,
		Selector: a.Session,
		Interval: cfg.AdaptiveInterval,
		Logger:   logger,
	}).Run)
	background("traffic", vpn.NewTrafficMeter(store, vpn.DefaultTrafficInterval).Run)
	if cfg.IntelListen != "" {
		background("intel", intel.NewServer(a.Intel, intel.Options{ListenAddr: cfg.IntelListen, Logger: logger}).Start)
	}
	if cfg.Simulator.Enabled {
		autoNeutralize := cfg.Simulator.AutoNeutralize
		if autoNeutralize == 0 {
			autoNeutralize = -1
		}
		background("simulator", intel.NewSimulator(store, a.Intel, intel.SimulatorOptions{
			Interval:       cfg.Simulator.Rate,
			AutoNeutralize: autoNeutralize,
			Logger:         logger,
		}).Run)
	}
	if cfg.APIListen != "" {
		background("api", api.New(api.Options{
			ListenAddr: cfg.APIListen,
			Store:      store,
			Connection: a.Session,
			Config:     a.Configs,
			Logs:       a.Recorder,
			Intel:      a.Intel,
			Catalog:    a.Catalog,
			Logger:     logger,
		}).Start)
	}
	group.Go(func() error {
		defer cancel()
		_, err := prog.Run()
		return err
	})

	err = group.Wait()
	// commands started from the TUI run outside the group; let them settle
	// before storage is closed
	a.Session.Drain()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("flyvpn stopped")
	return nil
}
