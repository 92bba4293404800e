package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/output"
	"github.com/sdejongh/metadiff/pkg/session"
)

// NewEnvsCommand creates the envs command
func NewEnvsCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "envs",
		Short: "List known environments",
		Long: `List the environments the external CLI is authenticated against.
The list is cached locally and reused until it is older than store.max_age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, output.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			return runEnvs(commandContext(cmd), a, refresh)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached environment list")

	return cmd
}

func runEnvs(ctx context.Context, a *app, refresh bool) error {
	// Snapshots are local files, caching their listing buys nothing
	db := a.store()
	if a.cfg.Gateway.Kind == "snapshot" {
		db = nil
	}

	if db != nil && !refresh {
		cached, err := db.LoadEnvironments(ctx)
		if err != nil {
			a.logger.Warn(ctx, "failed to read cached environments", logging.Fields{"error": err.Error()})
		} else if cached.Fresh(db.Now(), a.cfg.Store.MaxAge) {
			a.logger.Debug(ctx, "environments served from store", logging.Fields{"count": len(cached.Environments)})
			return a.out.Environments(cached.Environments, cached.FetchedAt)
		}
	}

	envs, err := a.gw.ListEnvironments(ctx)
	if err != nil {
		return a.fail(err)
	}
	if db != nil {
		if err := db.SaveEnvironments(ctx, envs); err != nil {
			a.logger.Warn(ctx, "failed to cache environments", logging.Fields{"error": err.Error()})
		}
	}
	return a.out.Environments(envs, time.Time{})
}

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	var pair PairFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an environment pair",
		Long: `Check that both environments are reachable and authenticated, then
remember the pair as the default for the other commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, output.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			return runValidate(commandContext(cmd), a, pair)
		},
	}

	cmd.Flags().AddFlagSet(pairFlagSet(&pair))

	return cmd
}

func runValidate(ctx context.Context, a *app, flags PairFlags) error {
	db := a.store()
	pair, err := resolvePair(ctx, flags, db)
	if err != nil {
		return err
	}

	descriptors := make([]*models.Descriptor, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, alias := range []string{pair.A, pair.B} {
		g.Go(func() error {
			d, err := a.gw.ValidateEnvironment(gctx, alias)
			if err != nil {
				return &session.Failure{Op: "validate " + alias, Message: err.Error(), Hint: gateway.HintFor(err), Err: err}
			}
			descriptors[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return a.fail(err)
	}

	for _, d := range descriptors {
		if err := a.out.Descriptor(d); err != nil {
			return err
		}
	}

	if db != nil {
		if err := db.SaveLastPair(ctx, pair); err != nil {
			a.logger.Warn(ctx, "failed to remember environment pair", logging.Fields{"error": err.Error()})
		}
	}
	return nil
}
