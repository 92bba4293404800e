// Package gatewaytest provides an in-memory Gateway for tests.
package gatewaytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/models"
)

// Env is the in-memory content of one environment
type Env struct {
	Categories  []models.Category
	Unsupported map[string]bool
	Entries     map[string][]models.Entry

	// Contents is keyed by "Category:Name" or "Category:Name/member"
	Contents map[string]string

	// Members is keyed by "Category:Name"
	Members map[string][]string
}

// Fake is a Gateway whose environments and failures are set by the test
type Fake struct {
	mu   sync.Mutex
	envs map[string]*Env
	errs map[string]error

	// Hook, when set, runs at the start of every call with the operation
	// name and alias. It may block to orchestrate interleavings.
	Hook func(ctx context.Context, op, alias string)

	calls atomic.Int64
	byOp  sync.Map
}

// New creates an empty Fake
func New() *Fake {
	return &Fake{
		envs: make(map[string]*Env),
		errs: make(map[string]error),
	}
}

// SetEnv installs or replaces the content of alias
func (f *Fake) SetEnv(alias string, env *Env) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs[alias] = env
}

// Fail makes every op call against alias return err. An empty op matches
// all operations; a nil err clears the failure.
func (f *Fake) Fail(op, alias string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + "|" + alias
	if err == nil {
		delete(f.errs, key)
		return
	}
	f.errs[key] = err
}

// Calls returns the total number of calls made
func (f *Fake) Calls() int {
	return int(f.calls.Load())
}

// CallsOf returns the number of calls made to one operation
func (f *Fake) CallsOf(op string) int {
	v, ok := f.byOp.Load(op)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int64).Load())
}

func (f *Fake) enter(ctx context.Context, op, alias string) (*Env, error) {
	f.calls.Add(1)
	counter, _ := f.byOp.LoadOrStore(op, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)
	if f.Hook != nil {
		f.Hook(ctx, op, alias)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[op+"|"+alias]; ok {
		return nil, err
	}
	if err, ok := f.errs["|"+alias]; ok {
		return nil, err
	}
	env, ok := f.envs[alias]
	if !ok {
		return nil, &gateway.Error{Kind: gateway.KindConnectivity, Op: op, Env: alias, Message: "unknown environment"}
	}
	return env, nil
}

// ListEnvironments returns every installed environment
func (f *Fake) ListEnvironments(ctx context.Context) ([]models.Environment, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	envs := make([]models.Environment, 0, len(f.envs))
	for alias := range f.envs {
		envs = append(envs, models.Environment{Alias: alias, DisplayName: alias})
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Alias < envs[j].Alias })
	return envs, nil
}

// ValidateEnvironment succeeds for installed environments
func (f *Fake) ValidateEnvironment(ctx context.Context, alias string) (*models.Descriptor, error) {
	if _, err := f.enter(ctx, "ValidateEnvironment", alias); err != nil {
		return nil, err
	}
	return &models.Descriptor{Alias: alias, Status: "Connected"}, nil
}

// ListCategories returns the installed categories
func (f *Fake) ListCategories(ctx context.Context, alias string) ([]models.Category, error) {
	env, err := f.enter(ctx, "ListCategories", alias)
	if err != nil {
		return nil, err
	}
	return append([]models.Category(nil), env.Categories...), nil
}

// ListEntries returns the installed entries, failing with KindUnsupported
// for categories flagged unsupported
func (f *Fake) ListEntries(ctx context.Context, category, alias string) ([]models.Entry, error) {
	env, err := f.enter(ctx, "ListEntries", alias)
	if err != nil {
		return nil, err
	}
	if env.Unsupported[category] {
		return nil, &gateway.Error{Kind: gateway.KindUnsupported, Op: "ListEntries", Env: alias, Message: category + " unsupported"}
	}
	return append([]models.Entry(nil), env.Entries[category]...), nil
}

// FetchContent returns installed content, or a not-found error
func (f *Fake) FetchContent(ctx context.Context, category, entry, alias, filePath string) (string, error) {
	env, err := f.enter(ctx, "FetchContent", alias)
	if err != nil {
		return "", err
	}
	key := models.ComponentRef(category, entry)
	if filePath != "" {
		key += "/" + models.NormalizePath(filePath)
	}
	content, ok := env.Contents[key]
	if !ok {
		return "", &gateway.Error{Kind: gateway.KindNotFound, Op: "FetchContent", Env: alias, Message: key + " not found"}
	}
	return content, nil
}

// ListMemberFiles returns installed members, derived from Contents when
// Members has no record
func (f *Fake) ListMemberFiles(ctx context.Context, category, entry, alias string) ([]string, error) {
	env, err := f.enter(ctx, "ListMemberFiles", alias)
	if err != nil {
		return nil, err
	}
	ref := models.ComponentRef(category, entry)
	if members, ok := env.Members[ref]; ok {
		return append([]string(nil), members...), nil
	}
	var out []string
	for key := range env.Contents {
		if rest, ok := strings.CutPrefix(key, ref+"/"); ok {
			out = append(out, rest)
		}
	}
	if len(out) == 0 {
		return nil, &gateway.Error{Kind: gateway.KindNotFound, Op: "ListMemberFiles", Env: alias, Message: ref + " not found"}
	}
	sort.Strings(out)
	return out, nil
}

var _ gateway.Gateway = (*Fake)(nil)
