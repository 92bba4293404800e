package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/sdejongh/metadiff/internal/platform"
	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/output"
	"github.com/sdejongh/metadiff/pkg/ratelimit"
)

// NewSnapshotCommand creates the snapshot command
func NewSnapshotCommand() *cobra.Command {
	var (
		dir        string
		categories []string
	)

	cmd := &cobra.Command{
		Use:   "snapshot ALIAS",
		Short: "Save the listings of an environment for offline use",
		Long: `Record the categories and entries of one environment into
<dir>/<alias>.jsonc. Snapshot directories can be compared offline with
--snapshot. Entry contents are not recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := newApp(cmd, output.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if dir == "" {
				dir = a.cfg.Gateway.SnapshotDir
			}
			if dir == "" {
				return fmt.Errorf("no snapshot directory (use --dir or set gateway.snapshot_dir)")
			}
			return runSnapshot(ctx, a, args[0], dir, categories)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "snapshot directory (default: gateway.snapshot_dir)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "record only these categories")

	return cmd
}

func runSnapshot(ctx context.Context, a *app, alias, dir string, only []string) error {
	if _, err := a.gw.ValidateEnvironment(ctx, alias); err != nil {
		return a.fail(err)
	}
	env := models.Environment{Alias: alias, DisplayName: alias}
	if envs, err := a.gw.ListEnvironments(ctx); err == nil {
		for _, e := range envs {
			if e.Alias == alias {
				env = e
				break
			}
		}
	}

	cats, err := a.gw.ListCategories(ctx, alias)
	if err != nil {
		return a.fail(err)
	}
	if len(only) > 0 {
		wanted := make(map[string]bool, len(only))
		for _, name := range only {
			wanted[models.NormalizeName(name)] = true
		}
		kept := cats[:0]
		for _, c := range cats {
			if wanted[c.Name] {
				kept = append(kept, c)
			}
		}
		cats = kept
	}

	var (
		mu          sync.Mutex
		entries     = make(map[string][]models.Entry, len(cats))
		unsupported []string
	)
	progress := output.NewProgress(a.stderr, "recording", len(cats), a.cfg.Output.Progress)
	tasks := make([]ratelimit.Task, len(cats))
	for i, c := range cats {
		tasks[i] = func(ctx context.Context) error {
			list, err := a.gw.ListEntries(ctx, c.Name, alias)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case gateway.IsUnsupported(err):
				unsupported = append(unsupported, c.Name)
				err = nil
			case err == nil:
				entries[c.Name] = list
			}
			progress.Advance(c.Name, err)
			return err
		}
	}
	errs := a.queue().Run(ctx, tasks)
	progress.Finish()
	for i, err := range errs {
		if err != nil {
			return a.fail(fmt.Errorf("failed to list %s: %w", cats[i].Name, err))
		}
	}

	data, err := gateway.EncodeSnapshot(env, cats, unsupported, entries)
	if err != nil {
		return err
	}
	location, err := writeSnapshot(ctx, dir, alias, data)
	if err != nil {
		return err
	}
	a.logger.Info(ctx, "snapshot written", logging.Fields{
		"alias":       alias,
		"location":    location,
		"categories":  len(cats),
		"unsupported": len(unsupported),
	})
	fmt.Fprintf(a.stderr, "Snapshot of %s written to %s\n", alias, location)
	return nil
}

// writeSnapshot stores data as <dir>/<alias>.jsonc. dir may be a local
// path or a storage URL.
func writeSnapshot(ctx context.Context, dir, alias string, data []byte) (string, error) {
	name := alias + gateway.SnapshotExt
	var location string
	if strings.Contains(dir, "://") {
		location = url.Join(dir, name)
	} else {
		dir = platform.NormalizePath(dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		location = filepath.Join(dir, name)
	}

	fs := afs.New()
	if err := fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return location, nil
}
