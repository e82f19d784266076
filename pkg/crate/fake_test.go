package crate

import (
	"context"
	"sync"
	"sync/atomic"
)

// fakeLoader serves canned records. Hooks, when set, replace the canned
// answer and may block.
type fakeLoader struct {
	crate    *Crate
	versions []*Version
	teams    []*Owner
	users    []*Owner

	crateFn    func(ctx context.Context, name string) (*Crate, error)
	versionsFn func(ctx context.Context, reload bool) ([]*Version, error)
	teamsFn    func(ctx context.Context) ([]*Owner, error)
	usersFn    func(ctx context.Context) ([]*Owner, error)

	crateCalls  atomic.Int32
	loadCalls   atomic.Int32
	reloadCalls atomic.Int32
	teamCalls   atomic.Int32
	userCalls   atomic.Int32
}

func (f *fakeLoader) LoadCrate(ctx context.Context, name string) (*Crate, error) {
	f.crateCalls.Add(1)
	if f.crateFn != nil {
		return f.crateFn(ctx, name)
	}
	if f.crate != nil {
		return f.crate, nil
	}
	return &Crate{Name: name}, nil
}

func (f *fakeLoader) LoadVersions(ctx context.Context, name string, reload bool) ([]*Version, error) {
	if reload {
		f.reloadCalls.Add(1)
	} else {
		f.loadCalls.Add(1)
	}
	if f.versionsFn != nil {
		return f.versionsFn(ctx, reload)
	}
	return f.versions, nil
}

func (f *fakeLoader) LoadOwnerTeams(ctx context.Context, name string) ([]*Owner, error) {
	f.teamCalls.Add(1)
	if f.teamsFn != nil {
		return f.teamsFn(ctx)
	}
	return f.teams, nil
}

func (f *fakeLoader) LoadOwnerUsers(ctx context.Context, name string) ([]*Owner, error) {
	f.userCalls.Add(1)
	if f.usersFn != nil {
		return f.usersFn(ctx)
	}
	return f.users, nil
}

// fakeWriter records requests and answers with res or err.
type fakeWriter struct {
	res *WriteResponse
	err error

	mu   sync.Mutex
	reqs []WriteRequest
}

func (w *fakeWriter) Write(ctx context.Context, req WriteRequest) (*WriteResponse, error) {
	w.mu.Lock()
	w.reqs = append(w.reqs, req)
	w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	return w.res, nil
}

func (w *fakeWriter) last() WriteRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reqs[len(w.reqs)-1]
}

func team(id int64, login string) *Owner { return &Owner{ID: id, Kind: OwnerTeam, Login: login} }
func user(id int64, login string) *Owner { return &Owner{ID: id, Kind: OwnerUser, Login: login} }

func ids(versions []*Version) []int64 {
	out := make([]int64, len(versions))
	for i, v := range versions {
		out[i] = v.ID
	}
	return out
}
