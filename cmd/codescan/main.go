package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"github.com/zsiec/codescan/internal/camera"
	"github.com/zsiec/codescan/internal/config"
	"github.com/zsiec/codescan/internal/decoder"
	"github.com/zsiec/codescan/internal/display"
	"github.com/zsiec/codescan/internal/frame"
	"github.com/zsiec/codescan/internal/logger"
	"github.com/zsiec/codescan/internal/scanner"
	"github.com/zsiec/codescan/internal/server"
	"github.com/zsiec/codescan/internal/sink"
	"github.com/zsiec/codescan/pkg/version"
)

func main() {
	var (
		configPath  string
		imagePath   string
		interactive bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&imagePath, "image", "", "Scan a still image instead of the camera")
	flag.BoolVar(&interactive, "tui", false, "Show the interactive dashboard")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if imagePath != "" {
		cfg.Camera.ImagePath = imagePath
	}

	os.Exit(run(cfg, interactive))
}

func run(cfg *config.Config, interactive bool) int {
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	mainLog := logger.WithComponent(log, "main")
	info := version.GetInfo()
	mainLog.WithFields(map[string]interface{}{
		"version": info.Short(),
		"capture": info.Capture,
	}).Info("Starting codescan")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	set, err := decoder.FromConfig(cfg.Decoders, logger.NewLogrusAdapter(logger.Root(log)))
	if err != nil {
		mainLog.WithError(err).Error("Failed to build decoders")
		return 1
	}

	src, err := newSource(cfg.Camera)
	if err != nil {
		mainLog.WithError(err).Error("Failed to configure camera")
		return 1
	}

	var redisClient *redis.Client
	var results *sink.RedisSink
	if cfg.Redis.Enabled {
		redisClient = sink.NewClient(cfg.Redis)
		defer func() {
			if err := redisClient.Close(); err != nil {
				mainLog.WithError(err).Error("Failed to close Redis connection")
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			mainLog.WithError(err).Warn("Redis unreachable, detections will be retried per publish")
		}
		results = sink.NewRedisSink(redisClient, logger.NewLogrusAdapter(logger.Root(log)), cfg.Redis)
	}

	printer := display.NewPrinter(os.Stdout, 48, 5)
	var (
		sched    *scanner.Scheduler
		program  *tea.Program
		exitCode int
	)

	// Callbacks run on the goroutine calling sched.Run. Without a server or
	// dashboard the process ends with the first detection or failure.
	standalone := !interactive && !cfg.Server.Enabled

	opts := scanner.OptionsFromConfig(cfg.Scanner)
	opts.OnCodeDetected = func(payload string, kind decoder.Kind) {
		if cfg.Scanner.Continuous {
			sched.Reset()
			return
		}
		if standalone {
			cancel()
		}
	}
	opts.OnDetection = func(det scanner.Detection) {
		if program != nil {
			program.Send(display.DetectionMsg(det))
		} else {
			printer.Detection(det)
		}
		if results != nil {
			if err := results.Enqueue(det); err != nil {
				mainLog.WithError(err).Warn("Detection not queued for Redis")
			}
		}
	}
	opts.OnError = func(err error) {
		if program == nil {
			printer.Failure(sched.ErrorText())
		}
		if standalone {
			exitCode = 1
			cancel()
		}
	}

	sched, err = scanner.New(opts, src, set, logger.NewLogrusAdapter(logger.Root(log)))
	if err != nil {
		mainLog.WithError(err).Error("Failed to create scanner")
		return 1
	}

	var wg sync.WaitGroup
	start := func(name string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				mainLog.WithError(err).WithField("service", name).Error("Service stopped")
				cancel()
			}
		}()
	}

	if results != nil {
		start("sink", func(ctx context.Context) error {
			results.Run(ctx)
			return nil
		})
	}
	if cfg.Server.Enabled {
		srv := server.New(&cfg.Server, log, sched, redisClient)
		start("http", srv.Start)
	}
	if cfg.Metrics.Enabled {
		start("metrics", server.NewMetricsServer(cfg.Metrics, log).Start)
	}
	if interactive {
		program = tea.NewProgram(display.NewDashboard(sched), tea.WithContext(ctx))
		start("dashboard", func(ctx context.Context) error {
			_, err := program.Run()
			cancel()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	if err := sched.Run(ctx); err != nil {
		mainLog.WithError(err).Error("Scanner stopped")
		exitCode = 1
	}
	cancel()
	wg.Wait()

	mainLog.WithField("session_id", sched.SessionID()).Info("codescan stopped")
	return exitCode
}

func newSource(cfg config.CameraConfig) (camera.Source, error) {
	orientation, err := frame.ParseOrientation(cfg.Orientation)
	if err != nil {
		return nil, err
	}

	var src camera.Source
	if cfg.ImagePath != "" {
		src = camera.NewImageSource(cfg.ImagePath)
	} else {
		src = camera.NewDeviceSource(cfg)
	}
	return camera.Oriented(src, orientation), nil
}
