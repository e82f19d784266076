package crate

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cratewatch/pkg/errors"
)

// Loader fetches the records of a crate aggregate from the registry.
//
// Loaders must distinguish failure from emptiness: a crate without owners
// returns an empty slice and a nil error.
type Loader interface {
	LoadCrate(ctx context.Context, name string) (*Crate, error)
	// LoadVersions fetches every version. With reload set the loader must
	// bypass any response cache.
	LoadVersions(ctx context.Context, name string, reload bool) ([]*Version, error)
	LoadOwnerTeams(ctx context.Context, name string) ([]*Owner, error)
	LoadOwnerUsers(ctx context.Context, name string) ([]*Owner, error)
}

// WriteRequest is a write against a crate sub-resource. Path is relative to
// the registry API root, e.g. "crates/serde/follow".
type WriteRequest struct {
	Method string
	Path   string
	Body   any
}

// WriteResponse is the registry's answer to a write.
type WriteResponse struct {
	OK      bool   `json:"ok"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// Writer performs registry writes. Transport failures are returned as
// errors; a response that arrived is returned even when it is not OK.
type Writer interface {
	Write(ctx context.Context, req WriteRequest) (*WriteResponse, error)
}

// LoadOptions configures [Aggregate.LoadVersions].
type LoadOptions struct {
	// Reload forces a fresh fetch that replaces the materialized set.
	Reload bool
}

// Option configures an [Aggregate] or a [Store].
type Option func(*options)

type options struct {
	writer   Writer
	reporter Reporter
	logger   *log.Logger
}

// WithWriter sets the client used by the mutation actions.
func WithWriter(w Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithReporter sets the contract violation reporter. The default is
// [StrictReporter].
func WithReporter(r Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{reporter: StrictReporter{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}

// Task names.
const (
	TaskLoadOwnerUser  = "loadOwnerUser"
	TaskLoadOwners     = "loadOwners"
	TaskLoadVersions   = "loadVersions"
	TaskReloadVersions = "reloadVersions"
)

// Aggregate is the client-side view of one crate: its record, the
// materialized versions and owners, and the views derived from them.
//
// All methods are safe for concurrent use.
type Aggregate struct {
	crate  *Crate
	loader Loader
	opts   options
	logger *log.Logger

	versions  *Relation[*Version]
	teams     *Relation[*Owner]
	users     *Relation[*Owner]
	snapshots *SnapshotCache
	views     *Views

	loadOwnerUser  *Task[[]*Owner]
	loadOwners     *Task[[]*Owner]
	loadVersions   *Task[[]*Version]
	reloadVersions *Task[[]*Version]
}

// New creates an aggregate for a crate record. No relation is loaded.
func New(c *Crate, loader Loader, opts ...Option) *Aggregate {
	o := buildOptions(opts)
	a := &Aggregate{
		crate:    c,
		loader:   loader,
		opts:     o,
		logger:   o.logger.With("crate", c.Name),
		versions: NewRelation[*Version](RelVersions),
		teams:    NewRelation[*Owner](RelOwnerTeam),
		users:    NewRelation[*Owner](RelOwnerUser),
	}
	a.snapshots = NewSnapshotCache(a.versions)
	a.views = NewViews(a.snapshots)

	taskName := func(task string) string { return c.Name + "/" + task }
	a.loadOwnerUser = NewStagedTask(taskName(TaskLoadOwnerUser), a.stageOwnerUser)
	a.loadOwners = NewStagedTask(taskName(TaskLoadOwners), a.stageOwners)
	a.loadVersions = NewStagedTask(taskName(TaskLoadVersions), func() TaskFunc[[]*Version] {
		return a.stageVersions(false)
	})
	a.reloadVersions = NewStagedTask(taskName(TaskReloadVersions), func() TaskFunc[[]*Version] {
		return a.stageVersions(true)
	})
	return a
}

// Name returns the crate name.
func (a *Aggregate) Name() string { return a.crate.Name }

// Crate returns the crate record.
func (a *Aggregate) Crate() *Crate { return a.crate }

// LoadOwnerUser fetches the user owners and installs them.
func (a *Aggregate) LoadOwnerUser(ctx context.Context) ([]*Owner, error) {
	owners, err := a.loadOwnerUser.Perform(ctx)
	return slices.Clone(owners), err
}

// LoadOwners fetches team and user owners concurrently and installs both
// once both succeeded. The result lists teams first, then users.
func (a *Aggregate) LoadOwners(ctx context.Context) ([]*Owner, error) {
	owners, err := a.loadOwners.Perform(ctx)
	return slices.Clone(owners), err
}

// LoadVersions returns the materialized versions.
//
// Without Reload it returns the installed set if there is one. Otherwise it
// waits for an in-flight reload, or for the single in-flight load. With
// Reload it always fetches again, joining an in-flight reload if there is
// one.
func (a *Aggregate) LoadVersions(ctx context.Context, opts LoadOptions) ([]*Version, error) {
	if opts.Reload {
		versions, err := a.reloadVersions.Perform(ctx)
		return slices.Clone(versions), err
	}
	if items, _, ok := a.versions.Materialized(); ok {
		return slices.Clone(items), nil
	}
	// Never start a plain load while a reload runs: its newer ticket would
	// outrank the reload's set.
	if run, ok := a.reloadVersions.Join(ctx); ok {
		versions, err := run.Wait(ctx)
		return slices.Clone(versions), err
	}
	versions, err := a.loadVersions.Perform(ctx)
	return slices.Clone(versions), err
}

func (a *Aggregate) stageOwnerUser() TaskFunc[[]*Owner] {
	ticket := a.users.Begin()
	return func(ctx context.Context) ([]*Owner, error) {
		users, err := a.loader.LoadOwnerUsers(ctx, a.crate.Name)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "load %s of %s", RelOwnerUser, a.crate.Name)
		}
		install(a.logger, a.users, ticket, users)
		items, _, _ := a.users.Materialized()
		return items, nil
	}
}

func (a *Aggregate) stageOwners() TaskFunc[[]*Owner] {
	teamTicket, userTicket := a.teams.Begin(), a.users.Begin()
	return func(ctx context.Context) ([]*Owner, error) {
		var teams, users []*Owner
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			if teams, err = a.loader.LoadOwnerTeams(gctx, a.crate.Name); err != nil {
				return errors.Wrap(errors.ErrCodeFetchFailed, err, "load %s of %s", RelOwnerTeam, a.crate.Name)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			if users, err = a.loader.LoadOwnerUsers(gctx, a.crate.Name); err != nil {
				return errors.Wrap(errors.ErrCodeFetchFailed, err, "load %s of %s", RelOwnerUser, a.crate.Name)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		install(a.logger, a.teams, teamTicket, teams)
		install(a.logger, a.users, userTicket, users)
		teams, _, _ = a.teams.Materialized()
		users, _, _ = a.users.Materialized()
		return append(slices.Clone(teams), users...), nil
	}
}

func (a *Aggregate) stageVersions(reload bool) TaskFunc[[]*Version] {
	ticket := a.versions.Begin()
	return func(ctx context.Context) ([]*Version, error) {
		versions, err := a.loader.LoadVersions(ctx, a.crate.Name, reload)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "load %s of %s", RelVersions, a.crate.Name)
		}
		install(a.logger, a.versions, ticket, versions)
		items, _, _ := a.versions.Materialized()
		return items, nil
	}
}

func install[T any](logger *log.Logger, rel *Relation[T], ticket uint64, items []T) {
	if rel.Install(ticket, items) {
		logger.Debug("relation installed", "relation", rel.Name(), "count", len(items), "generation", rel.Generation())
		return
	}
	logger.Debug("stale load discarded", "relation", rel.Name(), "ticket", ticket)
}

// HasOwnerUser reports whether the user with the given id owns the crate.
// It requires a completed user owner load.
func (a *Aggregate) HasOwnerUser(id int64) (bool, error) {
	users, _, loaded := a.users.Materialized()
	if !loaded {
		return false, a.violation(RelOwnerUser, TaskLoadOwnerUser)
	}
	return slices.ContainsFunc(users, func(o *Owner) bool { return o.ID == id }), nil
}

// Owners returns team owners followed by user owners. It requires both
// owner relations to have been loaded.
func (a *Aggregate) Owners() ([]*Owner, error) {
	teams, _, teamsLoaded := a.teams.Materialized()
	users, _, usersLoaded := a.users.Materialized()
	if !teamsLoaded || !usersLoaded {
		return []*Owner{}, a.violation("owners", TaskLoadOwners)
	}
	return append(slices.Clone(teams), users...), nil
}

func (a *Aggregate) violation(what, task string) error {
	err := errors.New(errors.ErrCodePrecondition, "%s of %s read before %s completed", what, a.crate.Name, task)
	return a.opts.reporter.Violation(err)
}

// IDsBySemver returns the known version ids, highest version first.
func (a *Aggregate) IDsBySemver() []int64 { return a.views.IDsBySemver() }

// IDsByDate returns the known version ids, newest first.
func (a *Aggregate) IDsByDate() []int64 { return a.views.IDsByDate() }

// ReleaseTrackSet returns the ids of the release-track representatives.
func (a *Aggregate) ReleaseTrackSet() IDSet { return a.views.ReleaseTrackSet() }

// ReleaseTracks returns the release-track representatives, highest first.
func (a *Aggregate) ReleaseTracks() []Track { return a.views.ReleaseTracks() }

// HighestOfReleaseTrack reports whether the version represents its track.
func (a *Aggregate) HighestOfReleaseTrack(id int64) bool { return a.views.HighestOfReleaseTrack(id) }

// FirstVersionID returns the id of the oldest known version.
func (a *Aggregate) FirstVersionID() (int64, bool) { return a.views.FirstVersionID() }

// VersionByID looks up a materialized version.
func (a *Aggregate) VersionByID(id int64) (*Version, bool) { return a.snapshots.Current().ByID(id) }

// VersionByNum looks up a materialized version by number.
func (a *Aggregate) VersionByNum(num string) (*Version, bool) {
	return a.snapshots.Current().ByNum(num)
}

// Order selects a version ordering.
type Order string

const (
	OrderSemver Order = "semver"
	OrderDate   Order = "date"
)

// ParseOrder parses an order name. The empty string means [OrderSemver].
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderSemver:
		return OrderSemver, nil
	case OrderDate:
		return OrderDate, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown sort order %q", s)
	}
}

// SortedVersions returns the materialized versions in the given order.
func (a *Aggregate) SortedVersions(order Order) []*Version {
	snap := a.snapshots.Current()
	ids := a.views.IDsBySemver()
	if order == OrderDate {
		ids = a.views.IDsByDate()
	}
	out := make([]*Version, 0, len(ids))
	for _, id := range ids {
		if v, ok := snap.ByID(id); ok {
			out = append(out, v)
		}
	}
	return out
}

// Status summarizes what is loaded and which tasks run.
type Status struct {
	Crate             string               `json:"crate"`
	VersionsLoaded    bool                 `json:"versions_loaded"`
	VersionGeneration uint64               `json:"version_generation"`
	OwnerTeamLoaded   bool                 `json:"owner_team_loaded"`
	OwnerUserLoaded   bool                 `json:"owner_user_loaded"`
	Tasks             map[string]TaskState `json:"tasks"`
}

// Status returns a summary of the aggregate.
func (a *Aggregate) Status() Status {
	return Status{
		Crate:             a.crate.Name,
		VersionsLoaded:    a.versions.Loaded(),
		VersionGeneration: a.versions.Generation(),
		OwnerTeamLoaded:   a.teams.Loaded(),
		OwnerUserLoaded:   a.users.Loaded(),
		Tasks: map[string]TaskState{
			TaskLoadOwnerUser:  a.loadOwnerUser.State(),
			TaskLoadOwners:     a.loadOwners.State(),
			TaskLoadVersions:   a.loadVersions.State(),
			TaskReloadVersions: a.reloadVersions.State(),
		},
	}
}
