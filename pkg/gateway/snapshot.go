package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/tidwall/jsonc"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// SnapshotExt is the file extension of environment snapshots
const SnapshotExt = ".jsonc"

// snapshotDoc is the on-disk layout of one environment snapshot. Comments
// and trailing commas are allowed.
type snapshotDoc struct {
	Environment models.Environment        `json:"environment"`
	Descriptor  *models.Descriptor        `json:"descriptor,omitempty"`
	Categories  []models.Category         `json:"categories"`
	Unsupported []string                  `json:"unsupported,omitempty"`
	Entries     map[string][]models.Entry `json:"entries"`

	// Contents is keyed by "Category:Name" or "Category:Name/member/path"
	Contents map[string]string `json:"contents"`

	// Members is keyed by "Category:Name"; derived from Contents when absent
	Members map[string][]string `json:"members,omitempty"`
}

// Snapshot implements Gateway over a directory of <alias>.jsonc documents.
// Documents are loaded once per instance.
type Snapshot struct {
	dir  string
	fs   afs.Service
	mu   sync.Mutex
	docs map[string]*snapshotDoc
}

// NewSnapshot creates a snapshot gateway reading from dir
func NewSnapshot(dir string) *Snapshot {
	return &Snapshot{
		dir:  dir,
		fs:   afs.New(),
		docs: make(map[string]*snapshotDoc),
	}
}

// ListEnvironments lists every snapshot in the directory
func (s *Snapshot) ListEnvironments(ctx context.Context) ([]models.Environment, error) {
	const op = "list environments"
	objects, err := s.fs.List(ctx, s.dir)
	if err != nil {
		return nil, &Error{Kind: KindConnectivity, Op: op, Message: "snapshot directory unreadable", Err: err}
	}
	var envs []models.Environment
	for _, obj := range objects {
		if obj.IsDir() || !strings.HasSuffix(obj.Name(), SnapshotExt) {
			continue
		}
		alias := strings.TrimSuffix(obj.Name(), SnapshotExt)
		doc, err := s.load(ctx, op, alias)
		if err != nil {
			return nil, err
		}
		env := doc.Environment
		env.Alias = alias
		if env.DisplayName == "" {
			env.DisplayName = alias
		}
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Alias < envs[j].Alias })
	return envs, nil
}

// ValidateEnvironment succeeds when a parseable snapshot exists for alias
func (s *Snapshot) ValidateEnvironment(ctx context.Context, alias string) (*models.Descriptor, error) {
	doc, err := s.load(ctx, "validate environment", alias)
	if err != nil {
		return nil, err
	}
	if doc.Descriptor != nil {
		d := *doc.Descriptor
		d.Alias = alias
		return &d, nil
	}
	return &models.Descriptor{
		Alias:    alias,
		ID:       doc.Environment.ID,
		Username: doc.Environment.Username,
		Status:   "Snapshot",
	}, nil
}

// ListCategories returns the snapshot's categories
func (s *Snapshot) ListCategories(ctx context.Context, alias string) ([]models.Category, error) {
	doc, err := s.load(ctx, "list categories", alias)
	if err != nil {
		return nil, err
	}
	return append([]models.Category(nil), doc.Categories...), nil
}

// ListEntries returns the snapshot's entries of category. Categories that
// are marked unsupported or not listed at all fail with KindUnsupported.
func (s *Snapshot) ListEntries(ctx context.Context, category, alias string) ([]models.Entry, error) {
	const op = "list entries"
	doc, err := s.load(ctx, op, alias)
	if err != nil {
		return nil, err
	}
	category = models.NormalizeName(category)
	for _, u := range doc.Unsupported {
		if u == category {
			return nil, &Error{Kind: KindUnsupported, Op: op, Env: alias, Message: category + " is not supported"}
		}
	}
	entries, listed := doc.Entries[category]
	if !listed && !doc.hasCategory(category) {
		return nil, &Error{Kind: KindUnsupported, Op: op, Env: alias, Message: category + " is not available"}
	}
	return append([]models.Entry(nil), entries...), nil
}

// FetchContent returns the stored content of an entry or member file
func (s *Snapshot) FetchContent(ctx context.Context, category, entry, alias, filePath string) (string, error) {
	const op = "fetch content"
	doc, err := s.load(ctx, op, alias)
	if err != nil {
		return "", err
	}
	key := models.ComponentRef(category, entry)
	if filePath != "" {
		key += "/" + models.NormalizePath(filePath)
	}
	content, ok := doc.Contents[key]
	if !ok {
		return "", &Error{Kind: KindNotFound, Op: op, Env: alias, Message: key + " not found"}
	}
	return content, nil
}

// ListMemberFiles returns the member paths of a composite entry
func (s *Snapshot) ListMemberFiles(ctx context.Context, category, entry, alias string) ([]string, error) {
	const op = "list member files"
	doc, err := s.load(ctx, op, alias)
	if err != nil {
		return nil, err
	}
	ref := models.ComponentRef(category, entry)
	if members, ok := doc.Members[ref]; ok {
		out := make([]string, len(members))
		for i, m := range members {
			out[i] = models.NormalizePath(m)
		}
		return out, nil
	}
	var out []string
	prefix := ref + "/"
	for key := range doc.Contents {
		if strings.HasPrefix(key, prefix) {
			out = append(out, models.NormalizePath(strings.TrimPrefix(key, prefix)))
		}
	}
	if len(out) == 0 {
		if _, ok := doc.Contents[ref]; !ok {
			return nil, &Error{Kind: KindNotFound, Op: op, Env: alias, Message: ref + " not found"}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Snapshot) load(ctx context.Context, op, alias string) (*snapshotDoc, error) {
	s.mu.Lock()
	doc, ok := s.docs[alias]
	s.mu.Unlock()
	if ok {
		return doc, nil
	}

	location := filepath.Join(s.dir, alias+SnapshotExt)
	if strings.Contains(s.dir, "://") {
		location = url.Join(s.dir, alias+SnapshotExt)
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, &Error{Kind: KindConnectivity, Op: op, Env: alias, Message: "no snapshot for environment", Err: err}
	}
	doc = &snapshotDoc{}
	if err := json.Unmarshal(jsonc.ToJSON(data), doc); err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Env: alias, Message: "invalid snapshot", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent load of the same alias may have finished first
	if loaded, ok := s.docs[alias]; ok {
		return loaded, nil
	}
	s.docs[alias] = doc
	return doc, nil
}

func (d *snapshotDoc) hasCategory(name string) bool {
	for _, c := range d.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// EncodeSnapshot renders the listings of one environment as a snapshot
// document. Contents are left empty: snapshots capture inventories, and
// entries whose content is needed offline are added by hand.
func EncodeSnapshot(env models.Environment, categories []models.Category, unsupported []string, entries map[string][]models.Entry) ([]byte, error) {
	doc := snapshotDoc{
		Environment: env,
		Categories:  categories,
		Unsupported: unsupported,
		Entries:     entries,
		Contents:    map[string]string{},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return append([]byte("// metadiff environment snapshot\n"), data...), nil
}

var _ Gateway = (*Snapshot)(nil)
