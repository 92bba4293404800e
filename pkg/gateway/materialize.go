package gateway

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sdejongh/metadiff/internal/platform"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
)

const metaSuffix = "-meta.xml"

// materializedFile is one retrieved file of the requested entry
type materializedFile struct {
	// Member is the path relative to the entry: the bundle-relative path
	// for composite entries, the file name otherwise
	Member string
	URL    string
}

// materialized holds the retrieved files of one entry
type materialized struct {
	entry string
	files []materializedFile
}

// materialize retrieves category:entry from alias into a fresh directory,
// hands the located files to use, and removes the directory on every path
func (c *CLI) materialize(ctx context.Context, op, category, entry, alias string, use func(*materialized) error) error {
	category = models.NormalizeName(category)
	entry = models.NormalizeName(entry)

	dir := filepath.Join(platform.TempDir(c.cfg.TempDir), "metadiff-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create materialization directory: %w", err)
	}
	defer c.release(ctx, dir)

	_, err := c.call(ctx, op, alias,
		"project", "retrieve", "start",
		"--metadata", models.ComponentRef(category, entry),
		"--target-org", alias,
		"--target-metadata-dir", dir,
		"--unzip",
	)
	if err != nil {
		return err
	}

	all, err := c.walk(ctx, dir)
	if err != nil {
		return err
	}
	var files []materializedFile
	if c.composite[category] {
		files = bundleFiles(all, entry)
	}
	if len(files) == 0 {
		files = entryFiles(all, entry)
	}
	if len(files) == 0 && !c.composite[category] {
		files = bundleFiles(all, entry)
	}
	if len(files) == 0 {
		return &Error{Kind: KindNotFound, Op: op, Env: alias,
			Message: fmt.Sprintf("%s not retrieved", models.ComponentRef(category, entry))}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Member < files[j].Member })
	return use(&materialized{entry: entry, files: files})
}

// release deletes a materialization directory. It runs detached from ctx
// so a cancelled call still cleans up.
func (c *CLI) release(ctx context.Context, dir string) {
	if err := c.fs.Delete(context.Background(), dir); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			c.logger.Warn(ctx, "failed to remove materialization directory", logging.Fields{
				"dir":   dir,
				"error": rmErr.Error(),
			})
		}
	}
}

// walkedFile is a retrieved file with its path relative to the directory root
type walkedFile struct {
	rel string
	url string
}

func (c *CLI) walk(ctx context.Context, dir string) ([]walkedFile, error) {
	objects, err := c.fs.List(ctx, dir, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list retrieved files: %w", err)
	}
	root := filepath.Clean(dir)
	var files []walkedFile
	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}
		rel, err := filepath.Rel(root, filepath.FromSlash(url.Path(obj.URL())))
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		base := path.Base(rel)
		if base == "package.xml" || strings.HasSuffix(base, ".zip") {
			continue
		}
		files = append(files, walkedFile{rel: rel, url: obj.URL()})
	}
	return files, nil
}

// bundleFiles returns the files below the deepest directory named entry
func bundleFiles(all []walkedFile, entry string) []materializedFile {
	name := path.Base(entry)
	var files []materializedFile
	for _, f := range all {
		segments := strings.Split(f.rel, "/")
		for i := len(segments) - 2; i >= 0; i-- {
			if segments[i] == name {
				files = append(files, materializedFile{
					Member: models.NormalizePath(strings.Join(segments[i+1:], "/")),
					URL:    f.url,
				})
				break
			}
		}
	}
	return files
}

// entryFiles returns the files named after entry, including its
// companion metadata file
func entryFiles(all []walkedFile, entry string) []materializedFile {
	name := path.Base(entry)
	var files []materializedFile
	for _, f := range all {
		base := path.Base(f.rel)
		if base == name || strings.HasPrefix(base, name+".") || base == name+metaSuffix {
			files = append(files, materializedFile{Member: base, URL: f.url})
		}
	}
	return files
}

// pick selects the requested member, or the primary file when member is
// empty: the non-metadata file named after the entry, else the first
// non-metadata file, else the first file
func (m *materialized) pick(member string) (*materializedFile, error) {
	if member != "" {
		want := models.NormalizePath(member)
		for i := range m.files {
			if m.files[i].Member == want {
				return &m.files[i], nil
			}
		}
		return nil, &Error{Kind: KindNotFound, Message: fmt.Sprintf("member file %s not found", want)}
	}

	name := path.Base(m.entry)
	var firstContent *materializedFile
	for i := range m.files {
		f := &m.files[i]
		if strings.HasSuffix(f.Member, metaSuffix) {
			continue
		}
		if firstContent == nil {
			firstContent = f
		}
		base := path.Base(f.Member)
		if base == name || strings.HasPrefix(base, name+".") {
			return f, nil
		}
	}
	if firstContent != nil {
		return firstContent, nil
	}
	return &m.files[0], nil
}

func (m *materialized) members() []string {
	paths := make([]string, 0, len(m.files))
	for _, f := range m.files {
		paths = append(paths, f.Member)
	}
	return paths
}
