// Package catalog provides the process-wide additive catalog: a lazily loaded,
// single-flight cache over a live Source with last-known-good and bundled
// offline fallbacks.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/additivelens/additivelens/internal/cache"
	"github.com/additivelens/additivelens/internal/model"
)

// ErrEmptyCatalog is returned by a load that produced no usable entries
var ErrEmptyCatalog = errors.New("catalog is empty")

// State is the lifecycle of the cached catalog
type State int32

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "empty"
	}
}

// Origin tells where a served snapshot came from
type Origin string

const (
	OriginLive          Origin = "live"
	OriginLastKnownGood Origin = "last_known_good"
	OriginFallback      Origin = "fallback"
)

// Policy controls when a loaded catalog is considered stale
type Policy string

const (
	PolicyNever Policy = "never" // load once per process
	PolicyTTL   Policy = "ttl"   // reload after Options.TTL
	PolicyWatch Policy = "watch" // reload after a Watcher reports a change
)

// ParsePolicy parses a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyNever, PolicyTTL, PolicyWatch:
		return p, nil
	case "":
		return PolicyNever, nil
	default:
		return "", fmt.Errorf("unknown catalog policy: %s (supported: never, ttl, watch)", s)
	}
}

// Snapshot is an immutable view of the catalog. Version changes whenever the
// entries may have changed, so derived indexes can be keyed on it.
type Snapshot struct {
	Entries  []model.AdditiveEntry
	Version  uint64
	Origin   Origin
	Source   string
	LoadedAt time.Time
}

// Stats describes the cache for diagnostics
type Stats struct {
	State    string    `json:"state"`
	Policy   string    `json:"policy"`
	Source   string    `json:"source"`
	Origin   string    `json:"origin,omitempty"`
	Version  uint64    `json:"version"`
	Entries  int       `json:"entries"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Loads    int64     `json:"loads"`
	Failures int64     `json:"failures"`
}

// Options configures a Cache
type Options struct {
	Policy      Policy
	TTL         time.Duration
	LoadTimeout time.Duration
	// RetryInterval spaces background retries of a failing source while a
	// fallback is served; zero retries on every call
	RetryInterval time.Duration
	Snapshots     cache.Cache // last-known-good store; nil disables
	SnapshotKey   string
	Fallback      Source // bundled catalog when nil
	Logger        *slog.Logger
}

// Cache loads the catalog at most once per staleness period, however many
// callers ask for it concurrently
type Cache struct {
	source Source
	opts   Options
	logger *slog.Logger
	group  singleflight.Group

	mu       sync.RWMutex
	current  *Snapshot // last successful live load
	stale    bool      // current must be reloaded before being served as fresh
	degraded *Snapshot // memoized fallback served while the live source fails
	last     *Snapshot // last snapshot handed out

	loading  atomic.Bool
	failedAt atomic.Int64 // unix nanos of the last failed load
	version  atomic.Uint64
	loads    atomic.Int64
	failures atomic.Int64
}

// NewCache creates an empty cache over source
func NewCache(source Source, opts Options) *Cache {
	if opts.Policy == "" {
		opts.Policy = PolicyNever
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 3 * time.Second
	}
	if opts.Fallback == nil {
		opts.Fallback = NewFallbackSource()
	}
	if opts.SnapshotKey == "" && source != nil {
		opts.SnapshotKey = cache.Key("catalog", source.Name())
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		source: source,
		opts:   opts,
		logger: logger.With("component", "catalog"),
	}
}

// Get returns the current catalog, loading it on first use or when stale.
// Concurrent callers share one load. Get only fails when ctx ends first; a
// failing live source degrades to the last-known-good or bundled catalog.
// Once degraded, callers get the fallback at once while the live source is
// retried in the background.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	return c.get(ctx, true)
}

func (c *Cache) get(ctx context.Context, allowDegraded bool) (*Snapshot, error) {
	if snap := c.fresh(); snap != nil {
		return snap, nil
	}

	if allowDegraded {
		if snap := c.standby(); snap != nil {
			c.retry()
			return snap, nil
		}
	}

	// The load runs detached from ctx so one caller giving up does not fail
	// the others waiting on it.
	ch := c.group.DoChan("catalog", func() (any, error) {
		return c.load(), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		snap := res.Val.(*Snapshot)
		c.setLast(snap)
		return snap, nil
	}
}

// standby returns the memoized fallback when no live catalog was ever loaded
func (c *Cache) standby() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil || c.degraded == nil {
		return nil
	}
	c.last = c.degraded
	return c.degraded
}

// retry starts a background load unless the last failure is too recent
func (c *Cache) retry() {
	if c.opts.RetryInterval > 0 {
		if failed := c.failedAt.Load(); failed > 0 && time.Since(time.Unix(0, failed)) < c.opts.RetryInterval {
			return
		}
	}

	ch := c.group.DoChan("catalog", func() (any, error) {
		return c.load(), nil
	})
	go func() {
		res := <-ch
		c.setLast(res.Val.(*Snapshot))
	}()
}

func (c *Cache) setLast(snap *Snapshot) {
	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
}

// Entries returns the catalog entries, the plain fetch-all view of Get
func (c *Cache) Entries(ctx context.Context) ([]model.AdditiveEntry, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Entries, nil
}

// Invalidate marks the loaded catalog stale; the next Get reloads it. Until
// the reload succeeds the stale catalog keeps being served.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
	c.logger.Info("catalog invalidated")
}

// Reload invalidates and loads the catalog now, waiting for the live source
func (c *Cache) Reload(ctx context.Context) (*Snapshot, error) {
	c.Invalidate()
	return c.get(ctx, false)
}

// State returns the lifecycle state
func (c *Cache) State() State {
	if c.loading.Load() {
		return StateLoading
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current != nil {
		return StateLoaded
	}
	return StateEmpty
}

// Stats returns diagnostics about the cache
func (c *Cache) Stats() Stats {
	st := Stats{
		State:    c.State().String(),
		Policy:   string(c.opts.Policy),
		Loads:    c.loads.Load(),
		Failures: c.failures.Load(),
	}
	if c.source != nil {
		st.Source = c.source.Name()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last != nil {
		st.Origin = string(c.last.Origin)
		st.Version = c.last.Version
		st.Entries = len(c.last.Entries)
		st.LoadedAt = c.last.LoadedAt
	}
	return st
}

// fresh returns the live snapshot if it may be served without reloading
func (c *Cache) fresh() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil || c.stale {
		return nil
	}
	if c.opts.Policy == PolicyTTL && c.opts.TTL > 0 && time.Since(c.current.LoadedAt) >= c.opts.TTL {
		return nil
	}
	return c.current
}

func (c *Cache) load() *Snapshot {
	// a caller that queued behind a finished load may find it fresh now
	if snap := c.fresh(); snap != nil {
		return snap
	}

	c.loading.Store(true)
	defer c.loading.Store(false)
	c.loads.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.LoadTimeout)
	defer cancel()

	start := time.Now()
	entries, err := c.fetch(ctx)
	if err == nil {
		entries = Sanitize(entries, c.logger)
		if len(entries) == 0 {
			err = ErrEmptyCatalog
		}
	}

	if err != nil {
		c.failures.Add(1)
		c.failedAt.Store(time.Now().UnixNano())
		c.logger.Warn("catalog load failed, serving fallback",
			"source", c.sourceName(), "error", err, "duration", time.Since(start))
		return c.fallback()
	}

	snap := &Snapshot{
		Entries:  entries,
		Version:  c.version.Add(1),
		Origin:   OriginLive,
		Source:   c.sourceName(),
		LoadedAt: time.Now(),
	}

	c.mu.Lock()
	c.current = snap
	c.stale = false
	c.degraded = nil
	c.mu.Unlock()

	c.logger.Info("catalog loaded",
		"source", snap.Source, "entries", len(entries), "version", snap.Version, "duration", time.Since(start))
	c.persist(snap)

	return snap
}

// fetch calls the live source, converting a panic into an error
func (c *Cache) fetch(ctx context.Context) (entries []model.AdditiveEntry, err error) {
	if c.source == nil {
		return nil, errors.New("no catalog source configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("catalog source panicked: %v", r)
		}
	}()
	return c.source.FetchAll(ctx)
}

// fallback picks what to serve after a failed load: the stale live catalog,
// then the last-known-good snapshot, then the bundled catalog. The result is
// not marked loaded, so the next Get retries the live source.
func (c *Cache) fallback() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current
	}
	if c.degraded != nil {
		return c.degraded
	}

	if snap := c.restore(); snap != nil {
		c.degraded = snap
		return snap
	}

	entries, err := c.opts.Fallback.FetchAll(context.Background())
	if err != nil {
		c.logger.Error("fallback catalog unavailable", "error", err)
	}
	c.degraded = &Snapshot{
		Entries:  Sanitize(entries, c.logger),
		Version:  c.version.Add(1),
		Origin:   OriginFallback,
		Source:   c.opts.Fallback.Name(),
		LoadedAt: time.Now(),
	}
	return c.degraded
}

func (c *Cache) persist(snap *Snapshot) {
	if c.opts.Snapshots == nil {
		return
	}
	data, err := json.Marshal(snap.Entries)
	if err != nil {
		c.logger.Warn("encode catalog snapshot", "error", err)
		return
	}
	if err := c.opts.Snapshots.Set(c.opts.SnapshotKey, data, 0); err != nil {
		c.logger.Warn("store catalog snapshot", "error", err)
	}
}

func (c *Cache) restore() *Snapshot {
	if c.opts.Snapshots == nil {
		return nil
	}
	data, ok := c.opts.Snapshots.Get(c.opts.SnapshotKey)
	if !ok {
		return nil
	}

	var entries []model.AdditiveEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("decode catalog snapshot", "error", err)
		return nil
	}
	entries = Sanitize(entries, c.logger)
	if len(entries) == 0 {
		return nil
	}

	c.logger.Info("serving last-known-good catalog", "entries", len(entries))
	return &Snapshot{
		Entries:  entries,
		Version:  c.version.Add(1),
		Origin:   OriginLastKnownGood,
		Source:   c.sourceName(),
		LoadedAt: time.Now(),
	}
}

func (c *Cache) sourceName() string {
	if c.source == nil {
		return ""
	}
	return c.source.Name()
}
