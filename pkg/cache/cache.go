// Package cache memoizes reconciled views and composite file lists for the
// current session so repeated expansions do not reach the gateway again.
//
// There is no eviction: Clear drops everything, since remote state may
// have changed in ways that cannot be observed locally. Concurrent fills
// of the same key are allowed; the last committed result wins.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/sdejongh/metadiff/pkg/models"
)

// Stats reports cache usage counters
type Stats struct {
	Views     int   `json:"views"`
	FileLists int   `json:"file_lists"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Stale     int64 `json:"stale"`
}

// Cache holds reconciled views keyed by (envA, envB, category) and
// composite file lists keyed by (envA, envB, category, entry)
type Cache struct {
	mu      sync.RWMutex
	views   map[models.ViewKey]*models.ReconciledView
	files   map[models.FileListKey]*models.UnionedFileList
	tracker *Tracker

	hits   atomic.Int64
	misses atomic.Int64
	stale  atomic.Int64
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		views:   make(map[models.ViewKey]*models.ReconciledView),
		files:   make(map[models.FileListKey]*models.UnionedFileList),
		tracker: NewTracker(),
	}
}

// GetView returns the cached view for key, if any
func (c *Cache) GetView(key models.ViewKey) (*models.ReconciledView, bool) {
	c.mu.RLock()
	view, ok := c.views[key]
	c.mu.RUnlock()
	c.count(ok)
	return view, ok
}

// PutView stores view under key, replacing any previous view wholesale
func (c *Cache) PutView(key models.ViewKey, view *models.ReconciledView) {
	if view == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[key] = view
}

// BeginView issues a staleness ticket for a fill of key
func (c *Cache) BeginView(key models.ViewKey) Ticket {
	return c.tracker.Begin("view:" + key.String())
}

// CommitView stores view only if the ticket is still current. It reports
// false when the result is stale and was discarded.
func (c *Cache) CommitView(tk Ticket, key models.ViewKey, view *models.ReconciledView) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if view == nil {
		c.tracker.Release(tk)
		return false
	}
	if !c.tracker.Complete(tk) {
		c.stale.Add(1)
		return false
	}
	c.views[key] = view
	return true
}

// GetFiles returns the cached file list for key, if any
func (c *Cache) GetFiles(key models.FileListKey) (*models.UnionedFileList, bool) {
	c.mu.RLock()
	files, ok := c.files[key]
	c.mu.RUnlock()
	c.count(ok)
	return files, ok
}

// PutFiles stores files under key, replacing any previous list wholesale
func (c *Cache) PutFiles(key models.FileListKey, files *models.UnionedFileList) {
	if files == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[key] = files
}

// BeginFiles issues a staleness ticket for a fill of key
func (c *Cache) BeginFiles(key models.FileListKey) Ticket {
	return c.tracker.Begin("files:" + key.String())
}

// CommitFiles stores files only if the ticket is still current
func (c *Cache) CommitFiles(tk Ticket, key models.FileListKey, files *models.UnionedFileList) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if files == nil {
		c.tracker.Release(tk)
		return false
	}
	if !c.tracker.Complete(tk) {
		c.stale.Add(1)
		return false
	}
	c.files[key] = files
	return true
}

// Clear drops every view and file list and invalidates in-flight tickets
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views = make(map[models.ViewKey]*models.ReconciledView)
	c.files = make(map[models.FileListKey]*models.UnionedFileList)
	c.tracker.Reset()
}

// Tracker exposes the staleness tracker for requests that are not cached,
// such as content comparisons
func (c *Cache) Tracker() *Tracker {
	return c.tracker
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Views:     len(c.views),
		FileLists: len(c.files),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Stale:     c.stale.Load(),
	}
}

func (c *Cache) count(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}
