package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sdejongh/metadiff/internal/platform"
	"github.com/sdejongh/metadiff/pkg/config"
	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/output"
	"github.com/sdejongh/metadiff/pkg/ratelimit"
	"github.com/sdejongh/metadiff/pkg/session"
	"github.com/sdejongh/metadiff/pkg/store"
)

// app holds everything a command needs, built from the configuration and
// the global flags
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	gw      gateway.Gateway
	out     output.Formatter
	outOpts output.Options
	stdout  io.Writer
	stderr  io.Writer
	db      *store.DB
}

// newApp loads the configuration and builds the logger, the gateway and
// the formatter. The caller must close the app.
func newApp(cmd *cobra.Command, opts output.Options) (*app, error) {
	if err := validateGlobalFlags(); err != nil {
		return nil, err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	applyFlagsToConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	logger, err := createLogger(cfg, stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	opts.Color = output.ColorEnabled(cfg.Output.Color, stdout)
	opts.Style = cfg.Output.Style
	out, err := output.New(cfg.Output.Format, stdout, opts)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		gw:      createGateway(cfg, logger),
		out:     out,
		outOpts: opts,
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

// Close releases the store and the logger
func (a *app) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return a.logger.Close()
}

// store opens the local state database on first use. Failures are logged
// and yield nil: the store only saves round trips.
func (a *app) store() *store.DB {
	if a.db != nil {
		return a.db
	}
	path, err := a.cfg.StorePath()
	if err == nil {
		a.db, err = store.Open(path)
	}
	if err != nil {
		a.logger.Warn(context.Background(), "local store unavailable", logging.Fields{"error": err.Error()})
		return nil
	}
	return a.db
}

// queue builds the prefetch queue from the configuration
func (a *app) queue() *ratelimit.Queue {
	return ratelimit.NewQueue(ratelimit.Options{
		MaxConcurrent: a.cfg.Prefetch.MaxConcurrent,
		BatchSize:     a.cfg.Prefetch.BatchSize,
		BatchDelay:    a.cfg.Prefetch.BatchDelay,
		Limiter:       ratelimit.NewLimiter(a.cfg.Prefetch.MaxPerSecond),
	})
}

// openSession resolves the environment pair and starts a session on it
func (a *app) openSession(ctx context.Context, flags PairFlags) (*session.Session, error) {
	pair, err := resolvePair(ctx, flags, a.store())
	if err != nil {
		return nil, err
	}
	return session.New(a.gw, pair.A, pair.B, session.Options{
		Logger: a.logger,
		Queue:  a.queue(),
	})
}

// fail reports err through the formatter and returns it for the exit status
func (a *app) fail(err error) error {
	if a.cfg.Output.Format == "json" {
		a.out.Error(err)
	} else {
		output.NewHumanFormatter(a.stderr, output.Options{Color: output.ColorEnabled(a.cfg.Output.Color, a.stderr)}).Error(err)
	}
	return errReported{err}
}

// errReported marks an error already shown to the user
type errReported struct{ error }

func (e errReported) Unwrap() error { return e.error }

// IsReported reports whether err was already displayed by a command
func IsReported(err error) bool {
	var reported errReported
	return errors.As(err, &reported)
}

// createGateway builds the gateway selected by the configuration
func createGateway(cfg *config.Config, logger logging.Logger) gateway.Gateway {
	if cfg.Gateway.Kind == "snapshot" {
		return gateway.NewSnapshot(platform.NormalizePath(cfg.Gateway.SnapshotDir))
	}

	classifier := gateway.DefaultClassifier()
	classifier.Unsupported = append(classifier.Unsupported, cfg.Gateway.UnsupportedMarkers...)

	fingerprints := make(map[string]gateway.FingerprintSource, len(cfg.Gateway.Fingerprints))
	for category, fp := range cfg.Gateway.Fingerprints {
		fingerprints[models.NormalizeName(category)] = gateway.FingerprintSource{Object: fp.Object, Field: fp.Field}
	}

	return gateway.NewCLI(gateway.CLIConfig{
		Command:             cfg.Gateway.Command,
		Timeout:             cfg.Gateway.Timeout,
		MaxOutputBytes:      cfg.Gateway.MaxOutputBytes,
		CompositeCategories: cfg.Gateway.CompositeCategories,
		Fingerprints:        fingerprints,
		Classifier:          classifier,
		TempDir:             platform.TempDir(cfg.Gateway.TempDir),
		Logger:              logger,
	})
}

// createLogger creates a logger based on configuration. Verbose mode logs
// debug output to stderr when no log file is configured.
func createLogger(cfg *config.Config, stderr io.Writer) (logging.Logger, error) {
	format := logging.ParseFormat(cfg.Logging.Format)

	if cfg.Logging.Enabled && cfg.Logging.File != "" {
		return logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       platform.NormalizePath(cfg.Logging.File),
			Format:     format,
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSize:    10 * 1024 * 1024, // 10 MB
			MaxBackups: 5,
		})
	}

	if globalFlags.Verbose {
		return logging.NewWriterLogger(stderr, format, logging.DebugLevel), nil
	}
	if cfg.Logging.Enabled {
		return logging.NewWriterLogger(stderr, format, logging.ParseLevel(cfg.Logging.Level)), nil
	}

	// If logging is disabled, return null logger
	return logging.NewNullLogger(), nil
}

// commandContext returns the command's context or a background one
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
