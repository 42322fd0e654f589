// Package thumbs caches image bytes for the result set currently on screen.
//
// The cache is reconciled against a desired id set: new ids are downloaded,
// ids that left the set have their handle released and their download
// cancelled. Handles are created on the update loop only when a download
// result is applied, so a download that is no longer wanted never allocates
// one.
package thumbs

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
)

// Downloader fetches raw image bytes by id.
type Downloader interface {
	DownloadImage(ctx context.Context, id string) (imgapi.Blob, error)
}

// Entry is the observable state of one cached image.
type Entry struct {
	ImageID string
	Handle  *Handle
	Loading bool
	Failed  bool
}

type entry struct {
	Entry
	gen      uint64
	cancel   context.CancelFunc
	inFlight bool
}

type resultMsg struct {
	owner *Cache
	id    string
	gen   uint64
	blob  imgapi.Blob
	err   error
}

// LoadedMsg is emitted after a download result was applied to the cache.
type LoadedMsg struct {
	ImageID string
	Failed  bool
}

// Option customizes a Cache.
type Option func(*Cache)

// WithMaxInFlight caps concurrent downloads. Zero means no cap.
func WithMaxInFlight(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxInFlight = n
		}
	}
}

// Cache tracks one entry per desired image id. It is not safe for concurrent
// use; call it only from the program's Update.
type Cache struct {
	ctx     context.Context
	dl      Downloader
	store   *BlobStore
	entries map[string]*entry
	desired []string
	gen     uint64

	maxInFlight int
	inFlight    int
	queue       []string
}

// New returns an empty cache that stores handles in store.
func New(ctx context.Context, dl Downloader, store *BlobStore, opts ...Option) *Cache {
	c := &Cache{
		ctx:     ctx,
		dl:      dl,
		store:   store,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reconcile makes the tracked set equal ids. Ids already tracked are left
// alone, including failed ones, so repeated calls issue no new downloads.
func (c *Cache) Reconcile(ids []string) tea.Cmd {
	want := make(map[string]struct{}, len(ids))
	desired := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := want[id]; dup {
			continue
		}
		want[id] = struct{}{}
		desired = append(desired, id)
	}
	c.desired = desired

	for id, e := range c.entries {
		if _, ok := want[id]; !ok {
			c.evict(e)
		}
	}
	if len(c.queue) > 0 {
		kept := c.queue[:0]
		for _, id := range c.queue {
			if _, ok := c.entries[id]; ok {
				kept = append(kept, id)
			}
		}
		c.queue = kept
	}

	var cmds []tea.Cmd
	for _, id := range desired {
		if _, ok := c.entries[id]; ok {
			continue
		}
		c.gen++
		e := &entry{Entry: Entry{ImageID: id, Loading: true}, gen: c.gen}
		c.entries[id] = e
		if c.maxInFlight > 0 && c.inFlight >= c.maxInFlight {
			c.queue = append(c.queue, id)
			continue
		}
		cmds = append(cmds, c.download(e))
	}
	return tea.Batch(cmds...)
}

// Update applies download results.
func (c *Cache) Update(msg tea.Msg) tea.Cmd {
	res, ok := msg.(resultMsg)
	if !ok || res.owner != c {
		return nil
	}
	c.inFlight--
	next := c.drainQueue()

	e, ok := c.entries[res.id]
	if !ok || e.gen != res.gen {
		return next
	}
	e.inFlight = false
	e.cancel = nil
	e.Loading = false
	if res.err != nil {
		if !imgapi.IsCanceled(res.err) {
			log.Printf("thumbnail %s: %v", res.id, res.err)
		}
		e.Failed = true
	} else {
		h := c.store.Acquire(res.blob)
		e.Handle = &h
	}
	loaded := LoadedMsg{ImageID: res.id, Failed: e.Failed}
	return tea.Batch(next, func() tea.Msg { return loaded })
}

// Entry returns the state for id.
func (c *Cache) Entry(id string) (Entry, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Tracked returns the tracked ids in desired order.
func (c *Cache) Tracked() []string {
	out := make([]string, 0, len(c.entries))
	for _, id := range c.desired {
		if _, ok := c.entries[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// IsLoading reports whether any desired image is still loading.
func (c *Cache) IsLoading() bool {
	for _, e := range c.entries {
		if e.Loading {
			return true
		}
	}
	return false
}

// Pending returns the number of desired images still loading.
func (c *Cache) Pending() int {
	n := 0
	for _, e := range c.entries {
		if e.Loading {
			n++
		}
	}
	return n
}

// Close releases every handle and cancels every download.
func (c *Cache) Close() {
	for _, e := range c.entries {
		c.evict(e)
	}
	c.queue = nil
	c.desired = nil
}

func (c *Cache) evict(e *entry) {
	if e.cancel != nil {
		e.cancel()
	}
	if e.Handle != nil {
		c.store.Release(e.Handle.URL)
		e.Handle = nil
	}
	delete(c.entries, e.ImageID)
}

func (c *Cache) download(e *entry) tea.Cmd {
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel
	e.inFlight = true
	c.inFlight++

	owner, dl, id, gen := c, c.dl, e.ImageID, e.gen
	return func() tea.Msg {
		defer cancel()
		blob, err := dl.DownloadImage(ctx, id)
		return resultMsg{owner: owner, id: id, gen: gen, blob: blob, err: err}
	}
}

func (c *Cache) drainQueue() tea.Cmd {
	var cmds []tea.Cmd
	for len(c.queue) > 0 && (c.maxInFlight == 0 || c.inFlight < c.maxInFlight) {
		id := c.queue[0]
		c.queue = c.queue[1:]
		if e, ok := c.entries[id]; ok && !e.inFlight {
			cmds = append(cmds, c.download(e))
		}
	}
	return tea.Batch(cmds...)
}
