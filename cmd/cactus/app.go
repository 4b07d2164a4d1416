package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/npratt/cactus/internal/config"
	"github.com/npratt/cactus/internal/controller"
	"github.com/npratt/cactus/internal/daemon"
	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/exec"
	"github.com/npratt/cactus/internal/glyph"
	"github.com/npratt/cactus/internal/model"
	"github.com/npratt/cactus/internal/mqtt"
	"github.com/npratt/cactus/internal/notify"
	"github.com/npratt/cactus/internal/shutdown"
	"github.com/npratt/cactus/internal/sound"
	"github.com/npratt/cactus/internal/store"
	"github.com/npratt/cactus/internal/tray"
)

// shutdownTimeout bounds the final save and socket teardown.
const shutdownTimeout = 10 * time.Second

// namedSink pairs a sink with its subscription for ordered startup.
type namedSink struct {
	name string
	sink events.Sink
	ch   <-chan events.Event
}

// app is the running daemon: one controller, its sinks, and the RPC server.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	headless bool

	pidFile   *daemon.PIDFile
	store     *store.Store
	router    *events.Router
	stateSink *events.StateSink
	player    *sound.Player
	notifier  *notify.Notifier
	presenter *tray.Presenter
	ctrl      *controller.Controller
	daemon    *daemon.Daemon

	// reload re-reads configuration for the watcher. Nil disables watching.
	reload      func() (*config.Config, error)
	configFiles []string

	sinks    []namedSink
	pending  *namedSink // tray presenter, started once the tray is ready
	sinkCtx  context.Context
	stopSink context.CancelFunc

	mu      sync.Mutex
	started []namedSink
}

// trayOptions converts tray config to glyph sizing.
func trayOptions(t config.TrayConfig) glyph.Options {
	return glyph.Options{
		PointHeight: t.PointHeight,
		Scale:       t.Scale,
		HeartSize:   t.HeartSize,
		MinWidth:    t.MinWidth,
	}
}

// newApp acquires the PID lock, loads state, and builds every component.
// Nothing runs until run is called.
func newApp(cfg *config.Config, headless bool, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pidFile := daemon.NewPIDFile(cfg.Paths.PID)
	if err := pidFile.Acquire(); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return nil, fmt.Errorf("cactus already running (pid %d)", pidFile.Read())
		}
		return nil, err
	}
	pidFile.CleanupStale(cfg.Paths.Socket)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		headless: headless || !cfg.Tray.Enabled,
		pidFile:  pidFile,
	}

	storeOpts := store.Options{
		Path:             cfg.Paths.State,
		MaxBackupAgeDays: cfg.Backup.MaxAgeDays,
		Logger:           logger.With("component", "store"),
	}
	if cfg.Backup.Enabled {
		storeOpts.BackupDir = cfg.Paths.Backups
	}
	a.store = store.New(storeOpts)

	initial, err := a.store.Load()
	if err != nil {
		logger.Warn("state load failed, starting from defaults", "path", cfg.Paths.State, "error", err)
		initial = model.DefaultSnapshot()
	}

	a.router = events.NewRouter(events.DefaultBufferSize)
	a.stateSink = events.NewStateSink(a.store, logger.With("component", "state"))
	a.stateSink.SetMinDelay(cfg.Persistence.MinSaveDelay)
	a.stateSink.SetAutosaveInterval(cfg.Persistence.AutosaveInterval)
	a.player = sound.New(cfg.Sound.File, cfg.Sound.Enabled, logger.With("component", "sound"))
	a.notifier = notify.New(cfg.Notify.Enabled, logger.With("component", "notify"))

	a.ctrl = controller.New(initial, controller.Options{
		Router:        a.router,
		Sink:          a.stateSink,
		Sound:         a.player,
		TickInterval:  cfg.Timer.TickInterval,
		EndFlushDelay: cfg.Timer.EndFlushDelay,
		Logger:        logger.With("component", "controller"),
	})
	a.daemon = daemon.New(cfg, a.ctrl, logger.With("component", "daemon"))

	a.addSink("state", a.stateSink, a.router.SubscribeBuffered("state", events.StateBufferSize))
	a.addSink("log", events.NewLogSink(cfg.Paths.Log, logger), a.router.Subscribe("log"))
	a.addSink("notify", a.notifier, a.router.Subscribe("notify"))

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewRealPublisher(mqtt.Options{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID})
		if err != nil {
			logger.Warn("mqtt disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			sink := events.NewMQTTSink(pub, cfg.MQTT.TopicPrefix, logger.With("component", "mqtt"))
			a.addSink("mqtt", sink, a.router.Subscribe("mqtt"))
		}
	}

	if !a.headless {
		a.presenter = tray.NewPresenter(tray.SystemSurface(), trayOptions(cfg.Tray), logger.With("component", "tray"))
		a.pending = &namedSink{name: "tray", sink: a.presenter, ch: a.router.Subscribe("tray")}
	}

	return a, nil
}

func (a *app) addSink(name string, sink events.Sink, ch <-chan events.Event) {
	a.sinks = append(a.sinks, namedSink{name: name, sink: sink, ch: ch})
}

func (a *app) startSink(s namedSink) error {
	if err := s.sink.Start(a.sinkCtx, s.ch); err != nil {
		a.router.Unsubscribe(s.ch)
		return fmt.Errorf("start %s sink: %w", s.name, err)
	}
	a.mu.Lock()
	a.started = append(a.started, s)
	a.mu.Unlock()
	return nil
}

// watchConfig reapplies sound, notification, and tray settings whenever
// a config source file changes.
func (a *app) watchConfig(ctx context.Context) {
	if a.reload == nil || len(a.configFiles) == 0 {
		return
	}
	w, err := config.NewWatcher(a.configFiles, a.reload, a.applyConfig, a.logger.With("component", "config"))
	if err != nil {
		a.logger.Warn("config watching disabled", "error", err)
		return
	}
	go w.Run(ctx)
}

// applyConfig updates the components that can change without a restart.
func (a *app) applyConfig(cfg *config.Config) {
	a.player.Configure(cfg.Sound.File, cfg.Sound.Enabled)
	a.notifier.SetEnabled(cfg.Notify.Enabled)
	a.stateSink.SetMinDelay(cfg.Persistence.MinSaveDelay)
	if a.presenter != nil {
		if err := trayOptions(cfg.Tray).Validate(); err != nil {
			a.logger.Warn("ignoring tray config", "error", err)
		} else {
			a.presenter.SetOptions(trayOptions(cfg.Tray))
			a.presenter.Update(a.ctrl.GetState())
		}
	}
	a.logger.Info("config reloaded",
		"sound_enabled", cfg.Sound.Enabled,
		"sound_file", cfg.Sound.File,
		"notify_enabled", cfg.Notify.Enabled)
}

// run serves until ctx is canceled, a signal arrives, or a client sends
// quit. With a tray it must be called from the main goroutine.
func (a *app) run(ctx context.Context) error {
	a.sinkCtx, a.stopSink = context.WithCancel(context.Background())
	defer a.close()

	for _, s := range a.sinks {
		if err := a.startSink(s); err != nil {
			return err
		}
	}

	info := &daemon.DaemonInfo{
		SocketPath: a.cfg.Paths.Socket,
		PIDPath:    a.cfg.Paths.PID,
		StatePath:  a.cfg.Paths.State,
		LogPath:    a.cfg.Paths.Log,
		StartTime:  time.Now(),
		PID:        os.Getpid(),
	}
	if err := daemon.WriteDaemonInfo(daemon.DaemonInfoPath(a.cfg.Paths.DataDir), info); err != nil {
		a.logger.Warn("failed to write daemon info", "error", err)
	}

	a.router.Emit(&events.DaemonStartEvent{BaseEvent: events.NewDaemonEvent(events.EventDaemonStart), PID: os.Getpid()})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var host *tray.Host
	quit := cancel
	if !a.headless {
		dispatcher := &tray.Dispatcher{
			Commands: a.ctrl,
			Runner:   exec.NewExecRunner(),
			DataDir:  a.cfg.Paths.DataDir,
			Logger:   a.logger.With("component", "menu"),
		}
		host = tray.NewHost(a.presenter, dispatcher, a.ctrl.GetState())
		quit = func() {
			cancel()
			host.Quit()
		}
		dispatcher.Quit = quit
	}
	a.daemon.OnQuit(quit)

	a.watchConfig(runCtx)

	if host == nil {
		return a.serve(runCtx)
	}

	done := make(chan error, 1)
	go func() {
		err := a.serve(runCtx)
		host.Quit()
		done <- err
	}()
	host.Run(runCtx, a.startTray, cancel)
	return <-done
}

// startTray starts the presenter once the OS tray exists.
func (a *app) startTray() {
	if a.pending == nil {
		return
	}
	if err := a.startSink(*a.pending); err != nil {
		a.logger.Error("tray updates disabled", "error", err)
	}
	a.pending = nil
}

// serve runs the RPC server and the timer driver until ctx ends.
func (a *app) serve(ctx context.Context) error {
	daemonCtx, daemonCancel := context.WithCancel(ctx)
	daemonDone := make(chan struct{})
	go func() {
		defer close(daemonDone)
		if err := a.daemon.Start(daemonCtx); err != nil {
			a.logger.Error("daemon server error", "error", err)
		}
	}()
	stopDaemon := sync.OnceFunc(func() {
		daemonCancel()
		<-daemonDone
	})
	defer stopDaemon()

	a.logger.Info("cactus started",
		"version", version,
		"state_file", a.cfg.Paths.State,
		"socket", a.cfg.Paths.Socket,
		"headless", a.headless,
	)

	return shutdown.RunWithGracefulShutdown(
		ctx,
		a.logger,
		shutdownTimeout,
		a.ctrl.Run,
		func(context.Context) error {
			stopDaemon()
			return nil
		},
	)
}

// close flushes state, stops sinks, and releases the PID lock.
func (a *app) close() {
	a.router.Emit(&events.DaemonStopEvent{BaseEvent: events.NewDaemonEvent(events.EventDaemonStop), Reason: "shutdown"})

	// Closing the router drains and ends every sink.
	a.router.Close()

	a.mu.Lock()
	started := a.started
	a.started = nil
	a.mu.Unlock()
	for _, s := range started {
		if err := s.sink.Stop(); err != nil {
			a.logger.Warn("sink stop failed", "sink", s.name, "error", err)
		}
	}
	if a.stopSink != nil {
		a.stopSink()
	}
	a.player.Wait()

	_ = daemon.RemoveDaemonInfo(daemon.DaemonInfoPath(a.cfg.Paths.DataDir))
	if err := a.pidFile.Release(); err != nil {
		a.logger.Warn("pid file release failed", "error", err)
	}
	a.logger.Info("cactus stopped")
}

// configReloader builds a reload function that reads the same sources as
// startup, with the given explicit file.
func configReloader(explicit string) func() (*config.Config, error) {
	return func() (*config.Config, error) {
		return config.LoadConfig(newViper(explicit))
	}
}

// newViper returns a viper instance reading CACTUS_* env overrides.
func newViper(explicit string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	if explicit != "" {
		v.Set(FlagConfig, explicit)
	}
	return v
}
