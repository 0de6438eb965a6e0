package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"autonomous-car/internal/config"
	"autonomous-car/internal/core"
	"autonomous-car/internal/inference"
	"autonomous-car/internal/logger"
	"autonomous-car/internal/messaging"
	"autonomous-car/internal/runstore"
	"autonomous-car/internal/sim"
	"autonomous-car/internal/strategy"
	"autonomous-car/internal/types"
)

type options struct {
	configPath string
	mode       string
	runID      int
	seed       uint64
	redisAddr  string
	dbPath     string
	apiKeyEnv  string
	maxTicks   int
	width      int
	height     int
}

func main() {
	var opts options
	logLevel := flag.String("log", "3", "Log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&opts.configPath, "config", "", "JSON config file")
	flag.StringVar(&opts.mode, "mode", "", "Driving mode (LINE_FOLLOW, CV_LANE_FOLLOW, GEMINI)")
	flag.IntVar(&opts.runID, "run-id", 0, "Run number (overrides TRIAL_NUMBER)")
	flag.Uint64Var(&opts.seed, "seed", 0, "Random seed for the launch command (0 = time based)")
	flag.StringVar(&opts.redisAddr, "redis", "", "Redis address for telemetry and remote stop (empty = disabled)")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite run registry path (empty = disabled)")
	flag.StringVar(&opts.apiKeyEnv, "api-key-env", "GEMINI_API_KEY", "Environment variable holding the vision model API key")
	flag.IntVar(&opts.maxTicks, "max-ticks", 0, "Stop the simulation after this many ticks (0 = unlimited)")
	flag.IntVar(&opts.width, "camera-width", 0, "Camera width in pixels (0 = simulator default)")
	flag.IntVar(&opts.height, "camera-height", 0, "Camera height in pixels (0 = simulator default)")
	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		stdLogger.Fatalf("Invalid -log: %v", err)
	}
	l := logger.NewLogger(stdLogger, level)

	cfg, err := loadConfig(opts)
	if err != nil {
		l.Fatalf("Failed to load configuration: %v", err)
	}

	l.Infof("Starting autonomous car (mode %s, run %d)...", cfg.Mode, cfg.RunID)
	if err := run(cfg, opts, l); err != nil {
		l.Fatalf("Run failed: %v", err)
	}
	l.Infof("Shutdown complete")
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.FromEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if opts.mode != "" {
		mode, err := config.ParseMode(opts.mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if opts.runID > 0 {
		cfg.RunID = opts.runID
	}
	return cfg, cfg.Validate()
}

func run(cfg config.Config, opts options, l *logger.Logger) (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed := opts.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	l.Debugf("Seed %d", seed)
	rng := rand.New(rand.NewPCG(seed, uint64(cfg.RunID)))

	simCfg := sim.DefaultConfig()
	simCfg.Tick = cfg.Tick
	simCfg.MaxTicks = opts.maxTicks
	simCfg.Track.GuideLine = cfg.Mode == types.ModeLineFollow
	if opts.width > 0 {
		simCfg.Width = opts.width
	}
	if opts.height > 0 {
		simCfg.Height = opts.height
	}
	host, err := sim.New(simCfg)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}

	var coreOpts core.Options
	coreOpts.Sinks = append(coreOpts.Sinks, core.NewLogSink(l))

	var mailbox *inference.Mailbox
	if cfg.Mode == types.ModeHybrid {
		mailbox = inference.NewMailbox()
		if w := startWorker(ctx, cfg, opts.apiKeyEnv, mailbox, l); w != nil {
			coreOpts.Workers = append(coreOpts.Workers, w)
			defer func() {
				w.Stop()
				w.Wait()
			}()
		}
	}

	cam := host.Camera()
	strat, err := strategy.New(cfg, cam.Width(), cam.Height(), mailbox, rng)
	if err != nil {
		return fmt.Errorf("failed to create strategy: %w", err)
	}
	if c, ok := strat.(io.Closer); ok {
		defer func() { err = multierr.Append(err, c.Close()) }()
	}

	var controller *core.Controller

	var redisClient *messaging.RedisClient
	if opts.redisAddr != "" {
		rc := messaging.NewRedisClient(opts.redisAddr, l.WithTag("redis"), messaging.Callbacks{
			StopCallback: func() error { return controller.RequestStop() },
		})
		if err := rc.Connect(); err != nil {
			l.Warnf("Redis disabled: %v", err)
			rc.Close()
		} else {
			redisClient = rc
			coreOpts.Sinks = append(coreOpts.Sinks, rc)
			coreOpts.Publisher = rc
			defer func() { err = multierr.Append(err, rc.Close()) }()
		}
	}

	if opts.dbPath != "" {
		store, serr := runstore.Open(opts.dbPath)
		if serr != nil {
			l.Warnf("Run registry disabled: %v", serr)
		} else {
			coreOpts.Registry = store
			defer func() { err = multierr.Append(err, store.Close()) }()
		}
	}

	controller = core.NewController(cfg, host, strat, coreOpts, l)
	if err := controller.Start(ctx); err != nil {
		return err
	}

	if redisClient != nil {
		launch := strat.Launch()
		redisClient.PublishRun(types.RunInfo{
			StartedAt:       time.Now(),
			RunID:           cfg.RunID,
			Mode:            cfg.Mode,
			InitialSpeedKmh: cfg.InitialSpeedKmh,
			LaunchSpeedKmh:  launch.SpeedKmh,
			LaunchSteering:  launch.Steering,
		})
		redisClient.StartListening()
	}

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			l.Infof("Received signal %v, stopping the lap...", sig)
			controller.RequestStop()
		case <-ctx.Done():
			return
		}
		// a second signal skips the final tick
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := controller.Run(ctx)
	closeErr := controller.Close()

	res := controller.Result()
	if res.HasLapTime {
		l.Infof("Lap %s in %.2fs after %d ticks", res.Outcome, res.LapTime, res.Ticks)
	} else {
		l.Infof("Lap %s after %d ticks", lapOutcome(res.Outcome), res.Ticks)
	}
	return multierr.Combine(runErr, closeErr)
}

func lapOutcome(o types.LapOutcome) string {
	if o == types.OutcomeNone {
		return "not finished"
	}
	return string(o)
}

var newVisionModel = func(ctx context.Context, apiKey, model string) (inference.VisionModel, error) {
	g, err := inference.NewGemini(ctx, apiKey, model)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// startWorker connects the vision model. Without an API key the hybrid mode
// runs on lane detection alone.
func startWorker(ctx context.Context, cfg config.Config, apiKeyEnv string, mailbox *inference.Mailbox, l *logger.Logger) *inference.Worker {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		l.Warnf("No API key in $%s, vision model disabled", apiKeyEnv)
		return nil
	}
	model, err := newVisionModel(ctx, apiKey, cfg.Model)
	if err != nil {
		l.Warnf("Vision model disabled: %v", err)
		return nil
	}
	w := inference.NewWorker(model, mailbox, inference.WorkerConfig{
		Interval:     cfg.InferenceInterval,
		FastInterval: cfg.Tick * strategy.HybridHandoverTicks / 2,
		CallTimeout:  cfg.InferenceTimeout,
		MaxSpeedKmh:  cfg.InitialSpeedKmh,
	}, l)
	w.Start()
	return w
}
