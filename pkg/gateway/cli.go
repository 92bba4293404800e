package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sdejongh/metadiff/internal/platform"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/viant/afs"
)

// FingerprintSource names the tooling object and numeric field queried to
// obtain fingerprints for one category
type FingerprintSource struct {
	Object string
	Field  string
}

// CLIConfig configures the external CLI gateway
type CLIConfig struct {
	// Command is the executable name or path, "sf" by default
	Command string

	// Timeout bounds every external call; zero disables it
	Timeout time.Duration

	// MaxOutputBytes bounds the captured output and fetched content
	MaxOutputBytes int64

	// CompositeCategories lists categories whose entries are file bundles
	CompositeCategories []string

	// Fingerprints maps a category to the query supplying its fingerprints
	Fingerprints map[string]FingerprintSource

	// Classifier maps external error texts to error kinds
	Classifier Classifier

	// TempDir is the root for materialization directories, os.TempDir() when empty
	TempDir string

	// Runner executes commands, ExecRunner(MaxOutputBytes) when nil
	Runner Runner

	Logger logging.Logger
}

// DefaultFingerprints returns the categories known to expose a
// content-derived size through the tooling API
func DefaultFingerprints() map[string]FingerprintSource {
	return map[string]FingerprintSource{
		"ApexClass":   {Object: "ApexClass", Field: "LengthWithoutComments"},
		"ApexTrigger": {Object: "ApexTrigger", Field: "LengthWithoutComments"},
	}
}

// DefaultCompositeCategories returns the bundle-like categories
func DefaultCompositeCategories() []string {
	return []string{
		"AuraDefinitionBundle",
		"ExperienceBundle",
		"LightningComponentBundle",
		"WaveTemplateBundle",
	}
}

// CLI implements Gateway by running the external CLI with JSON output
type CLI struct {
	cfg       CLIConfig
	composite map[string]bool
	run       Runner
	fs        afs.Service
	logger    logging.Logger
}

// NewCLI creates a CLI gateway
func NewCLI(cfg CLIConfig) *CLI {
	if cfg.Command == "" {
		cfg.Command = "sf"
	}
	if cfg.Classifier.Unsupported == nil && cfg.Classifier.NotFound == nil && cfg.Classifier.Connectivity == nil {
		cfg.Classifier = DefaultClassifier()
	}
	run := cfg.Runner
	if run == nil {
		run = ExecRunner(cfg.MaxOutputBytes)
	}
	composite := make(map[string]bool, len(cfg.CompositeCategories))
	for _, name := range cfg.CompositeCategories {
		composite[models.NormalizeName(name)] = true
	}
	return &CLI{
		cfg:       cfg,
		composite: composite,
		run:       run,
		fs:        afs.New(),
		logger:    logging.OrNull(cfg.Logger),
	}
}

// ListEnvironments lists every environment known to the CLI
func (c *CLI) ListEnvironments(ctx context.Context) ([]models.Environment, error) {
	const op = "list environments"
	raw, err := c.call(ctx, op, "", "org", "list")
	if err != nil {
		return nil, err
	}
	envs, err := normalizeEnvironments(raw)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Message: "unexpected environment list", Err: err}
	}
	return envs, nil
}

// ValidateEnvironment displays alias and checks its connection status
func (c *CLI) ValidateEnvironment(ctx context.Context, alias string) (*models.Descriptor, error) {
	const op = "validate environment"
	raw, err := c.call(ctx, op, alias, "org", "display", "--target-org", alias)
	if err != nil {
		return nil, err
	}
	desc, err := normalizeDescriptor(alias, raw)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Env: alias, Message: "unexpected environment descriptor", Err: err}
	}
	if desc.Status != "" && c.cfg.Classifier.Classify("", desc.Status) == KindConnectivity {
		return nil, &Error{Kind: KindConnectivity, Op: op, Env: alias, Message: "environment status is " + desc.Status}
	}
	return desc, nil
}

// ListCategories lists the metadata types available in alias
func (c *CLI) ListCategories(ctx context.Context, alias string) ([]models.Category, error) {
	const op = "list categories"
	raw, err := c.call(ctx, op, alias, "org", "list", "metadata-types", "--target-org", alias)
	if err != nil {
		return nil, err
	}
	cats, err := normalizeCategories(raw, c.composite)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Env: alias, Message: "unexpected category list", Err: err}
	}
	return cats, nil
}

// ListEntries lists the entries of category in alias, with fingerprints
// for categories configured to have them
func (c *CLI) ListEntries(ctx context.Context, category, alias string) ([]models.Entry, error) {
	const op = "list entries"
	category = models.NormalizeName(category)
	raw, err := c.call(ctx, op, alias, "org", "list", "metadata", "--metadata-type", category, "--target-org", alias)
	if err != nil {
		return nil, err
	}
	entries, err := normalizeEntries(raw)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Env: alias, Message: "unexpected entry list for " + category, Err: err}
	}

	src, ok := c.cfg.Fingerprints[category]
	if !ok || len(entries) == 0 {
		return entries, nil
	}
	prints, err := c.fingerprints(ctx, src, alias)
	if err != nil {
		// Fingerprints are advisory; a failed query leaves them absent
		c.logger.Warn(ctx, "fingerprint query failed", logging.Fields{
			"category": category,
			"env":      alias,
			"error":    err.Error(),
		})
		return entries, nil
	}
	for i := range entries {
		entries[i].Fingerprint = prints[entries[i].Name]
	}
	return entries, nil
}

func (c *CLI) fingerprints(ctx context.Context, src FingerprintSource, alias string) (map[string]string, error) {
	const op = "query fingerprints"
	query := fmt.Sprintf("SELECT Name, NamespacePrefix, %s FROM %s", src.Field, src.Object)
	raw, err := c.call(ctx, op, alias, "data", "query", "--query", query, "--use-tooling-api", "--target-org", alias)
	if err != nil {
		return nil, err
	}
	prints, err := normalizeFingerprints(raw, src.Field)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Env: alias, Message: "unexpected query result", Err: err}
	}
	return prints, nil
}

// FetchContent retrieves one entry into a temporary directory and returns
// the content of its primary file, or of filePath within it
func (c *CLI) FetchContent(ctx context.Context, category, entry, alias, filePath string) (string, error) {
	const op = "fetch content"
	var content string
	err := c.materialize(ctx, op, category, entry, alias, func(m *materialized) error {
		file, err := m.pick(filePath)
		if err != nil {
			return err
		}
		data, err := c.fs.DownloadWithURL(ctx, file.URL)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file.Member, err)
		}
		if c.cfg.MaxOutputBytes > 0 && int64(len(data)) > c.cfg.MaxOutputBytes {
			return &Error{Kind: KindOversized, Message: fmt.Sprintf("%s is %d bytes", file.Member, len(data))}
		}
		content = string(data)
		return nil
	})
	if err != nil {
		return "", c.scope(err, op, alias)
	}
	return content, nil
}

// ListMemberFiles retrieves one entry and lists its member file paths
func (c *CLI) ListMemberFiles(ctx context.Context, category, entry, alias string) ([]string, error) {
	const op = "list member files"
	var paths []string
	err := c.materialize(ctx, op, category, entry, alias, func(m *materialized) error {
		paths = m.members()
		return nil
	})
	if err != nil {
		return nil, c.scope(err, op, alias)
	}
	return paths, nil
}

// scope fills in Op and Env of errors raised below the call layer
func (c *CLI) scope(err error, op, alias string) error {
	var ge *Error
	if errors.As(err, &ge) {
		if ge.Op == "" {
			ge.Op = op
		}
		if ge.Env == "" {
			ge.Env = alias
		}
		return ge
	}
	return &Error{Kind: KindCommand, Op: op, Env: alias, Message: err.Error(), Err: err}
}

// call runs one CLI command with --json and returns the result payload
func (c *CLI) call(ctx context.Context, op, alias string, args ...string) (json.RawMessage, error) {
	runCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	argv := append(append([]string{}, args...), "--json")
	start := time.Now()
	stdout, stderr, runErr := c.run(runCtx, c.cfg.Command, argv)
	fields := logging.Fields{
		"command":     platform.CommandLine(c.cfg.Command, argv),
		"duration_ms": time.Since(start).Milliseconds(),
		"bytes":       len(stdout),
	}
	if runErr != nil {
		fields["error"] = runErr.Error()
	}
	c.logger.Debug(ctx, "external command finished", fields)

	switch {
	case errors.Is(runErr, errOutputLimit),
		c.cfg.MaxOutputBytes > 0 && int64(len(stdout)) > c.cfg.MaxOutputBytes:
		return nil, &Error{Kind: KindOversized, Op: op, Env: alias,
			Message: fmt.Sprintf("output exceeds %d bytes", c.cfg.MaxOutputBytes)}
	case ctx.Err() != nil:
		return nil, &Error{Kind: KindCommand, Op: op, Env: alias, Message: "cancelled", Err: ctx.Err()}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, &Error{Kind: KindTimeout, Op: op, Env: alias,
			Message: fmt.Sprintf("no response within %s", c.cfg.Timeout), Err: runCtx.Err()}
	}

	env, decodeErr := decodeEnvelope(stdout)
	if decodeErr != nil {
		if runErr != nil {
			msg := strings.TrimSpace(string(stderr))
			if msg == "" {
				msg = runErr.Error()
			}
			return nil, &Error{Kind: c.cfg.Classifier.Classify("", msg), Op: op, Env: alias, Message: msg, Err: runErr}
		}
		return nil, &Error{Kind: KindParse, Op: op, Env: alias, Message: "unparseable output", Err: decodeErr}
	}
	if env.Status != 0 || runErr != nil {
		msg := env.Message
		if msg == "" {
			msg = env.Name
		}
		if msg == "" && runErr != nil {
			msg = runErr.Error()
		}
		return nil, &Error{Kind: c.cfg.Classifier.Classify(env.Name, env.Message), Op: op, Env: alias, Message: msg, Err: runErr}
	}
	for _, w := range env.Warnings {
		c.logger.Debug(ctx, "external command warning", logging.Fields{"op": op, "env": alias, "warning": w})
	}
	return env.Result, nil
}

var _ Gateway = (*CLI)(nil)
