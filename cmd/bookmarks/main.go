package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/OCAP2/bookmarks/internal/config"
	"github.com/OCAP2/bookmarks/internal/logging"
	"github.com/OCAP2/bookmarks/internal/loop"
	intOtel "github.com/OCAP2/bookmarks/internal/otel"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const AppName = "bookmarks"

var (
	SessionStartTime = time.Now()

	// LogManager owns the process logger
	LogManager *logging.Manager
	Logger     *slog.Logger

	OTelProvider *intOtel.Provider
	LogFile      *os.File
)

// setupLogging loads the config and routes logs to the session log file,
// or to stderr when no logs directory is configured.
func setupLogging(configDir string, l *loop.Loop) {
	LogManager = logging.NewManager()
	Logger = LogManager.Setup(logging.Options{Level: "warn"})

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	opts := logging.Options{
		Level:  viper.GetString("logLevel"),
		Format: logging.Format(viper.GetString("logFormat")),
		Context: func() []slog.Attr {
			return []slog.Attr{slog.Int("pendingTasks", l.Pending())}
		},
	}
	if logsDir := viper.GetString("logsDir"); logsDir != "" {
		f, err := logging.OpenLogFile(logsDir, AppName, SessionStartTime)
		if err != nil {
			Logger.Error("Failed to create/open log file!", "error", err, "dir", logsDir)
		} else {
			LogFile = f
			opts.Output = f
		}
	}

	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		var otelWriter io.Writer
		if LogFile != nil {
			otelWriter = LogFile
		}
		p, err := intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    otelWriter,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			OTelProvider = p
			opts.Provider = p.LoggerProvider()
		}
	}

	Logger = LogManager.Setup(opts)
	Logger.Debug("Logging initialized", "level", opts.Level, "file", LogFile != nil, "otel", OTelProvider != nil)
}

// databaseLogger writes database messages next to the slog output.
func databaseLogger() zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if LogFile != nil {
		w = LogFile
	}
	lvl, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "database").Logger()
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := LogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down OTel provider: %v\n", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

func main() {
	flags := pflag.NewFlagSet(AppName, pflag.ExitOnError)
	configDir := flags.String("config", ".", "directory containing "+config.FileName)
	gpx := flags.Bool("gpx", false, "export as GPX instead of KMZ")
	access := flags.String("access", "Public", "access rules for published categories")
	timeout := flags.Duration("timeout", 2*time.Minute, "maximum time a command may run")
	flags.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	_ = flags.Parse(os.Args[1:])

	l := loop.New()
	setupLogging(*configDir, l)
	os.Exit(execute(l, flags.Args(), options{GPX: *gpx, Access: *access}, *timeout))
}

func execute(l *loop.Loop, args []string, opts options, timeout time.Duration) int {
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	commands, _ := meter().Int64Counter("bookmarks.cli.commands",
		metric.WithDescription("Commands run by the bookmarks CLI"))

	a, err := newApp(ctx, l, appConfigFromViper(), Logger, databaseLogger())
	if err != nil {
		Logger.Error("Failed to start", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	err = run(ctx, a, os.Stdout, opts, args)
	if closeErr := a.Close(); closeErr != nil {
		Logger.Error("Failed to close cleanly", "error", closeErr)
	}
	if commands != nil {
		commands.Add(context.Background(), 1)
	}
	if err != nil {
		Logger.Error("Command failed", "args", args, "error", err)
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func meter() metric.Meter {
	if OTelProvider == nil {
		return noop.Meter{}
	}
	return OTelProvider.Meter(AppName)
}
