package directory

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mailist/mailist/internal/logger"
	"github.com/mailist/mailist/internal/telemetry"
)

// DefaultTTL is how long a snapshot is considered fresh.
const DefaultTTL = 5 * time.Minute

// GroupEntry is a group's display name and its role names keyed by group type role id.
type GroupEntry struct {
	Name  string
	Roles map[int64]string
}

// Snapshot is an immutable view of the directory taken at FetchedAt.
type Snapshot struct {
	FetchedAt time.Time
	Groups    map[int64]GroupEntry
	Persons   map[int64]string
	Statuses  map[int64]string
}

var emptySnapshot = &Snapshot{
	Groups:   map[int64]GroupEntry{},
	Persons:  map[int64]string{},
	Statuses: map[int64]string{},
}

func (s *Snapshot) GroupName(id int64) (string, bool) {
	g, ok := s.Groups[id]
	return g.Name, ok
}

// RoleName looks up a role within a group. It reports false when either the
// group or the role is unknown.
func (s *Snapshot) RoleName(groupID, roleID int64) (string, bool) {
	g, ok := s.Groups[groupID]
	if !ok {
		return "", false
	}
	name, ok := g.Roles[roleID]
	return name, ok
}

func (s *Snapshot) PersonName(id int64) (string, bool) {
	name, ok := s.Persons[id]
	return name, ok
}

func (s *Snapshot) StatusName(id int64) (string, bool) {
	name, ok := s.Statuses[id]
	return name, ok
}

// Cache holds the current directory snapshot and refreshes it from a Source
// once it is older than the TTL. Concurrent refreshes are collapsed into one.
type Cache struct {
	source  Source
	ttl     time.Duration
	now     func() time.Time
	log     logger.Logger
	current atomic.Pointer[Snapshot]
	flight  singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

func WithTTL(ttl time.Duration) Option { return func(c *Cache) { c.ttl = ttl } }

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func WithLogger(l logger.Logger) Option { return func(c *Cache) { c.log = l } }

// NewCache returns an empty cache. Nothing is fetched until the first refresh.
func NewCache(src Source, opts ...Option) *Cache {
	c := &Cache{
		source: src,
		ttl:    DefaultTTL,
		now:    time.Now,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current snapshot. Before the first successful refresh
// it is empty, never nil.
func (c *Cache) Snapshot() *Snapshot {
	if s := c.current.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// Get refreshes the cache if needed and returns the current snapshot.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if err := c.RefreshIfInvalid(ctx); err != nil {
		return nil, err
	}
	return c.Snapshot(), nil
}

// RefreshIfInvalid fetches groups, persons and statuses concurrently when the
// snapshot has expired, and publishes them together only if all three fetches
// succeed. On failure the previous snapshot stays in place.
//
// Callers arriving while a refresh is running wait for it instead of starting
// another. The fetch itself is not cancelled when a waiting caller's context
// ends; that caller just stops waiting.
func (c *Cache) RefreshIfInvalid(ctx context.Context) error {
	if c.fresh() {
		return nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan("refresh", func() (any, error) {
		if c.fresh() {
			return nil, nil
		}
		return nil, c.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *Cache) fresh() bool {
	s := c.current.Load()
	return s != nil && c.now().Sub(s.FetchedAt) <= c.ttl
}

func (c *Cache) refresh(ctx context.Context) error {
	start := time.Now()
	c.log.Debugw("refreshing directory")

	var (
		groups   []Group
		persons  []Person
		statuses []Status
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if groups, err = c.source.ListGroups(gctx); err != nil {
			return fmt.Errorf("list groups: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if persons, err = c.source.ListPersons(gctx); err != nil {
			return fmt.Errorf("list persons: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if statuses, err = c.source.ListStatuses(gctx); err != nil {
			return fmt.Errorf("list statuses: %w", err)
		}
		return nil
	})

	err := g.Wait()
	telemetry.DirectoryRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.DirectoryRefreshes.WithLabelValues("error").Inc()
		c.log.Warnw("directory refresh failed", "error", err)
		return err
	}

	snap := newSnapshot(groups, persons, statuses, c.now())
	c.current.Store(snap)

	telemetry.DirectoryRefreshes.WithLabelValues("ok").Inc()
	telemetry.DirectoryEntries.WithLabelValues("groups").Set(float64(len(snap.Groups)))
	telemetry.DirectoryEntries.WithLabelValues("persons").Set(float64(len(snap.Persons)))
	telemetry.DirectoryEntries.WithLabelValues("statuses").Set(float64(len(snap.Statuses)))
	c.log.Infow("directory refreshed",
		"groups", len(snap.Groups),
		"persons", len(snap.Persons),
		"statuses", len(snap.Statuses),
		"duration", time.Since(start),
	)
	return nil
}

func newSnapshot(groups []Group, persons []Person, statuses []Status, at time.Time) *Snapshot {
	s := &Snapshot{
		FetchedAt: at,
		Groups:    make(map[int64]GroupEntry, len(groups)),
		Persons:   make(map[int64]string, len(persons)),
		Statuses:  make(map[int64]string, len(statuses)),
	}
	for _, g := range groups {
		roles := make(map[int64]string, len(g.Roles))
		for _, r := range g.Roles {
			roles[r.GroupTypeRoleID] = r.Name
		}
		s.Groups[g.ID] = GroupEntry{Name: g.Name, Roles: roles}
	}
	for _, p := range persons {
		s.Persons[p.ID] = p.DisplayName()
	}
	for _, st := range statuses {
		s.Statuses[st.ID] = st.Name
	}
	return s
}
