package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"

	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/failsafe-go/lagmon/lagmonitor"
	"github.com/failsafe-go/lagmon/latency"
	"github.com/failsafe-go/lagmon/latencyhttp"
	"github.com/failsafe-go/lagmon/promlag"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting process", "err", err.Error())
		os.Exit(-1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:    "lagmon",
		Usage:   "Go scheduler lag monitor",
		Version: versioninfo.Short(),
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"LAGMON_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "format",
			Usage:   "output format for lag events (text, json, msgpack)",
			Value:   "text",
			EnvVars: []string{"LAGMON_FORMAT"},
		},
		&cli.DurationFlag{
			Name:    "sample-interval",
			Usage:   "how often the scheduler delay is sampled",
			Value:   lagmonitor.DefaultSampleInterval,
			EnvVars: []string{"LAGMON_SAMPLE_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "publish-interval",
			Usage:   "how often lag percentiles are published",
			Value:   lagmonitor.DefaultPublishInterval,
			EnvVars: []string{"LAGMON_PUBLISH_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "stall-threshold",
			Usage:   "lag at which a sample counts as a stall",
			Value:   lagmonitor.DefaultStallThreshold,
			EnvVars: []string{"LAGMON_STALL_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "address to serve prometheus metrics on, disabled when empty (eg: :9090)",
			EnvVars: []string{"LAGMON_METRICS_LISTEN"},
		},
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:   "watch",
			Usage:  "print scheduler lag until interrupted",
			Action: runWatch,
		},
		&cli.Command{
			Name:   "demo",
			Usage:  "run CPU heavy loops and print the scheduler lag they cause",
			Action: runDemo,
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "warmup",
					Usage: "idle time before the first heavy loop",
					Value: 10 * time.Second,
				},
				&cli.IntFlag{
					Name:  "loops",
					Usage: "number of heavy loops to run",
					Value: 5,
				},
				&cli.DurationFlag{
					Name:  "loop-duration",
					Usage: "how long each heavy loop keeps every processor busy",
					Value: 5 * time.Second,
				},
				&cli.IntFlag{
					Name:  "after-events",
					Usage: "events to print after the last heavy loop before exiting",
					Value: 3,
				},
			},
		},
	}
	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// session wires a monitor to the configured output and metrics.
type session struct {
	logger  *slog.Logger
	monitor lagmonitor.Monitor
	server  *http.Server
}

func newSession(cctx *cli.Context, listener func(lagmonitor.DataEvent)) (*session, error) {
	logger := configLogger(cctx, os.Stderr)
	writer, err := newEventWriter(cctx.String("format"), os.Stdout, cctx.Duration("stall-threshold"))
	if err != nil {
		return nil, err
	}

	var metrics *promlag.LagMetrics
	var server *http.Server
	if addr := cctx.String("metrics-listen"); addr != "" {
		reg := prometheus.NewRegistry()
		metrics = promlag.NewLagMetrics(reg, "lagmon")
		scrapes := latency.NewBuilder().WithLogger(logger).Build()
		reg.MustRegister(promlag.NewRecorderCollector(scrapes, "lagmon_metrics_scrape_seconds",
			"Latency of metrics scrapes", nil))
		mux := http.NewServeMux()
		mux.Handle("/metrics", latencyhttp.NewHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), scrapes))
		server = &http.Server{Addr: addr, Handler: mux}
	}

	monitor := lagmonitor.NewBuilder().
		WithSampleInterval(cctx.Duration("sample-interval")).
		WithPublishInterval(cctx.Duration("publish-interval")).
		WithStallThreshold(cctx.Duration("stall-threshold")).
		WithLogger(logger).
		OnData(func(event lagmonitor.DataEvent) {
			if metrics != nil {
				metrics.Observe(event)
			}
			if err := writer.Write(event); err != nil {
				logger.Warn("failed to write lag event", "err", err)
			}
			if listener != nil {
				listener(event)
			}
		}).
		Build()

	return &session{logger: logger, monitor: monitor, server: server}, nil
}

// run serves metrics if enabled and runs the monitor until the ctx is done or a signal arrives.
func (s *session) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.server != nil {
		go func() {
			s.logger.Info("serving metrics", "addr", s.server.Addr)
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(shutdownCtx)
		}()
	}

	return s.monitor.Run(ctx)
}

func runWatch(cctx *cli.Context) error {
	s, err := newSession(cctx, nil)
	if err != nil {
		return err
	}
	s.logger.Info("watching scheduler lag", "version", versioninfo.Short())
	return s.run(cctx.Context)
}

func runDemo(cctx *cli.Context) error {
	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()

	demo := newDemo(cctx.Int("loops"), cctx.Duration("loop-duration"), cctx.Int("after-events"), cancel)
	s, err := newSession(cctx, demo.observe)
	if err != nil {
		return err
	}
	demo.logger = s.logger

	fmt.Fprintf(os.Stderr, "Waiting %s and starting %d heavy loops\n", cctx.Duration("warmup"), demo.loops)
	go demo.start(ctx, cctx.Duration("warmup"))
	return s.run(ctx)
}
