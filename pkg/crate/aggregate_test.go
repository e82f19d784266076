package crate

import (
	"context"
	stderrors "errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cratewatch/pkg/errors"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newAggregate(loader Loader, opts ...Option) *Aggregate {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(&Crate{Name: "demo"}, loader, opts...)
}

func wait(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestLoadVersionsConcurrentCallsShareOneFetch(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	loader := &fakeLoader{
		versionsFn: func(ctx context.Context, reload bool) ([]*Version, error) {
			close(entered)
			<-release
			return []*Version{ver(1, "1.0.0", at(1)), ver(2, "2.0.0", at(2))}, nil
		},
	}
	agg := newAggregate(loader)

	var wg sync.WaitGroup
	results := make([][]*Version, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := agg.LoadVersions(context.Background(), LoadOptions{})
			if err != nil {
				t.Errorf("LoadVersions: %v", err)
			}
			results[i] = v
		}()
		if i == 0 {
			wait(t, entered)
		}
	}
	close(release)
	wg.Wait()

	if n := loader.loadCalls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	if !slices.Equal(ids(results[0]), ids(results[1])) || len(results[0]) != 2 {
		t.Errorf("callers got %v and %v", ids(results[0]), ids(results[1]))
	}

	if _, err := agg.LoadVersions(context.Background(), LoadOptions{}); err != nil {
		t.Fatal(err)
	}
	if n := loader.loadCalls.Load(); n != 1 {
		t.Errorf("load-if-absent refetched: fetches = %d", n)
	}
}

func TestLoadVersionsReloadReplacesSet(t *testing.T) {
	loader := &fakeLoader{
		versionsFn: func(ctx context.Context, reload bool) ([]*Version, error) {
			if reload {
				return []*Version{ver(1, "1.0.0", at(1)), ver(3, "1.1.0", at(3))}, nil
			}
			return []*Version{ver(1, "1.0.0", at(1))}, nil
		},
	}
	agg := newAggregate(loader)
	ctx := context.Background()

	if _, err := agg.LoadVersions(ctx, LoadOptions{}); err != nil {
		t.Fatal(err)
	}
	gen := agg.Status().VersionGeneration

	for i := 1; i <= 2; i++ {
		got, err := agg.LoadVersions(ctx, LoadOptions{Reload: true})
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ids(got), []int64{1, 3}) {
			t.Errorf("reload %d returned %v", i, ids(got))
		}
	}
	if n := loader.reloadCalls.Load(); n != 2 {
		t.Errorf("reload fetches = %d, want 2", n)
	}
	if g := agg.Status().VersionGeneration; g != gen+2 {
		t.Errorf("generation = %d, want %d", g, gen+2)
	}
	if got := agg.IDsBySemver(); !slices.Equal(got, []int64{3, 1}) {
		t.Errorf("IDsBySemver() = %v, want [3 1]", got)
	}
}

func TestLoadVersionsLaterStartedRunWins(t *testing.T) {
	loadEntered, reloadEntered := make(chan struct{}), make(chan struct{})
	releaseLoad, releaseReload := make(chan struct{}), make(chan struct{})
	loader := &fakeLoader{
		versionsFn: func(ctx context.Context, reload bool) ([]*Version, error) {
			if reload {
				close(reloadEntered)
				<-releaseReload
				return []*Version{ver(2, "2.0.0", at(2))}, nil
			}
			close(loadEntered)
			<-releaseLoad
			return []*Version{ver(1, "1.0.0", at(1))}, nil
		},
	}
	agg := newAggregate(loader)
	ctx := context.Background()

	loadDone := make(chan []*Version, 1)
	go func() {
		v, _ := agg.LoadVersions(ctx, LoadOptions{})
		loadDone <- v
	}()
	wait(t, loadEntered)

	reloadDone := make(chan []*Version, 1)
	go func() {
		v, _ := agg.LoadVersions(ctx, LoadOptions{Reload: true})
		reloadDone <- v
	}()
	wait(t, reloadEntered)

	close(releaseReload)
	if got := ids(<-reloadDone); !slices.Equal(got, []int64{2}) {
		t.Fatalf("reload returned %v", got)
	}
	close(releaseLoad)
	if got := ids(<-loadDone); !slices.Equal(got, []int64{2}) {
		t.Errorf("earlier-started load returned %v, want the later set [2]", got)
	}
	if got := agg.IDsByDate(); !slices.Equal(got, []int64{2}) {
		t.Errorf("materialized ids = %v, want [2]", got)
	}
}

func TestLoadVersionsJoinsRunningReloadBeforeFirstLoad(t *testing.T) {
	reloadEntered, releaseReload := make(chan struct{}), make(chan struct{})
	loader := &fakeLoader{
		versionsFn: func(ctx context.Context, reload bool) ([]*Version, error) {
			if reload {
				close(reloadEntered)
				<-releaseReload
				return []*Version{ver(2, "2.0.0", at(2))}, nil
			}
			return []*Version{ver(1, "1.0.0", at(1))}, nil
		},
	}
	agg := newAggregate(loader)
	ctx := context.Background()

	reloadDone := make(chan []*Version, 1)
	go func() {
		v, _ := agg.LoadVersions(ctx, LoadOptions{Reload: true})
		reloadDone <- v
	}()
	wait(t, reloadEntered)

	loadDone := make(chan []*Version, 1)
	go func() {
		v, _ := agg.LoadVersions(ctx, LoadOptions{})
		loadDone <- v
	}()

	close(releaseReload)
	if got := ids(<-reloadDone); !slices.Equal(got, []int64{2}) {
		t.Errorf("reload returned %v, want [2]", got)
	}
	if got := ids(<-loadDone); !slices.Equal(got, []int64{2}) {
		t.Errorf("load returned %v, want the reloaded set [2]", got)
	}
	if got := agg.IDsBySemver(); !slices.Equal(got, []int64{2}) {
		t.Errorf("materialized ids = %v, want [2]", got)
	}
	if n := loader.loadCalls.Load(); n != 0 {
		t.Errorf("non-reload fetches = %d, want 0", n)
	}
}

func TestLoadVersionsFailureInstallsNothing(t *testing.T) {
	boom := stderrors.New("connection reset")
	fail := true
	loader := &fakeLoader{
		versionsFn: func(ctx context.Context, reload bool) ([]*Version, error) {
			if fail {
				return nil, boom
			}
			return []*Version{ver(1, "1.0.0", at(1))}, nil
		},
	}
	agg := newAggregate(loader)
	ctx := context.Background()

	_, err := agg.LoadVersions(ctx, LoadOptions{})
	if !errors.Is(err, errors.ErrCodeFetchFailed) || !stderrors.Is(err, boom) {
		t.Fatalf("err = %v, want FETCH_FAILED wrapping the cause", err)
	}
	if agg.Status().VersionsLoaded || len(agg.IDsBySemver()) != 0 {
		t.Error("failed load installed versions")
	}

	fail = false
	got, err := agg.LoadVersions(ctx, LoadOptions{})
	if err != nil || len(got) != 1 {
		t.Fatalf("retry = %v, %v", ids(got), err)
	}
	if n := loader.loadCalls.Load(); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestLoadOwners(t *testing.T) {
	loader := &fakeLoader{
		teams: []*Owner{team(10, "github:org:core")},
		users: []*Owner{user(1, "alice"), user(2, "bob")},
	}
	agg := newAggregate(loader)

	got, err := agg.LoadOwners(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	logins := make([]string, len(got))
	for i, o := range got {
		logins[i] = o.Login
	}
	if want := []string{"github:org:core", "alice", "bob"}; !slices.Equal(logins, want) {
		t.Errorf("owners = %v, want %v", logins, want)
	}

	owners, err := agg.Owners()
	if err != nil || len(owners) != 3 {
		t.Errorf("Owners() = %d owners, %v", len(owners), err)
	}
	if ok, err := agg.HasOwnerUser(2); err != nil || !ok {
		t.Errorf("HasOwnerUser(2) = %v, %v", ok, err)
	}
	if ok, _ := agg.HasOwnerUser(10); ok {
		t.Error("team id matched as user owner")
	}
}

func TestLoadOwnersEmptySide(t *testing.T) {
	agg := newAggregate(&fakeLoader{users: []*Owner{user(1, "alice")}})
	got, err := agg.LoadOwners(context.Background())
	if err != nil || len(got) != 1 || got[0].Login != "alice" {
		t.Fatalf("LoadOwners = %v, %v", got, err)
	}
}

func TestLoadOwnersPartialFailureInstallsNothing(t *testing.T) {
	boom := stderrors.New("teams down")
	loader := &fakeLoader{
		users:   []*Owner{user(1, "alice")},
		teamsFn: func(ctx context.Context) ([]*Owner, error) { return nil, boom },
	}
	agg := newAggregate(loader)

	if _, err := agg.LoadOwners(context.Background()); !stderrors.Is(err, boom) {
		t.Fatalf("err = %v, want teams failure", err)
	}
	st := agg.Status()
	if st.OwnerTeamLoaded || st.OwnerUserLoaded {
		t.Errorf("partial owner load installed a relation: %+v", st)
	}
}

func TestOwnerReadsBeforeLoad(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		agg := newAggregate(&fakeLoader{})
		if _, err := agg.HasOwnerUser(1); !errors.Is(err, errors.ErrCodePrecondition) {
			t.Errorf("HasOwnerUser err = %v, want PRECONDITION_FAILED", err)
		}
		if _, err := agg.Owners(); !errors.Is(err, errors.ErrCodePrecondition) {
			t.Errorf("Owners err = %v, want PRECONDITION_FAILED", err)
		}
	})

	t.Run("owner user loaded only", func(t *testing.T) {
		agg := newAggregate(&fakeLoader{users: []*Owner{user(1, "alice")}})
		if _, err := agg.LoadOwnerUser(context.Background()); err != nil {
			t.Fatal(err)
		}
		if ok, err := agg.HasOwnerUser(1); err != nil || !ok {
			t.Errorf("HasOwnerUser = %v, %v", ok, err)
		}
		if _, err := agg.Owners(); !errors.Is(err, errors.ErrCodePrecondition) {
			t.Errorf("Owners err = %v, want PRECONDITION_FAILED", err)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		agg := newAggregate(&fakeLoader{}, WithReporter(NewReporter(false, quietLogger())))
		ok, err := agg.HasOwnerUser(1)
		if err != nil || ok {
			t.Errorf("HasOwnerUser = %v, %v; want false, nil", ok, err)
		}
		owners, err := agg.Owners()
		if err != nil || owners == nil || len(owners) != 0 {
			t.Errorf("Owners = %v, %v; want empty, nil", owners, err)
		}
	})
}

func TestOwnerReloadObservesChange(t *testing.T) {
	loader := &fakeLoader{users: []*Owner{user(1, "alice")}}
	agg := newAggregate(loader)
	ctx := context.Background()

	if _, err := agg.LoadOwnerUser(ctx); err != nil {
		t.Fatal(err)
	}
	loader.users = []*Owner{user(1, "alice"), user(2, "bob")}
	if ok, _ := agg.HasOwnerUser(2); ok {
		t.Fatal("owners changed without a load")
	}
	if _, err := agg.LoadOwnerUser(ctx); err != nil {
		t.Fatal(err)
	}
	if ok, _ := agg.HasOwnerUser(2); !ok {
		t.Error("second load did not install the new owner")
	}
	if n := loader.userCalls.Load(); n != 2 {
		t.Errorf("user fetches = %d, want 2", n)
	}
}

func TestAggregateLookupsAndOrder(t *testing.T) {
	agg := newAggregate(&fakeLoader{versions: []*Version{
		ver(1, "1.0.0", at(1)),
		ver(2, "2.0.0", at(2)),
		ver(3, "bogus", at(3)),
	}})
	if _, err := agg.LoadVersions(context.Background(), LoadOptions{}); err != nil {
		t.Fatal(err)
	}

	if v, ok := agg.VersionByNum("2.0.0"); !ok || v.ID != 2 {
		t.Errorf("VersionByNum = %v, %v", v, ok)
	}
	if v, ok := agg.VersionByID(3); !ok || v.Num != "bogus" {
		t.Errorf("VersionByID = %v, %v", v, ok)
	}
	if got := ids(agg.SortedVersions(OrderSemver)); !slices.Equal(got, []int64{2, 1, 3}) {
		t.Errorf("semver = %v", got)
	}
	if got := ids(agg.SortedVersions(OrderDate)); !slices.Equal(got, []int64{3, 2, 1}) {
		t.Errorf("date = %v", got)
	}
	if first, ok := agg.FirstVersionID(); !ok || first != 1 {
		t.Errorf("FirstVersionID = %d, %v", first, ok)
	}
	if got := agg.ReleaseTrackSet().Sorted(); !slices.Equal(got, []int64{1, 2}) {
		t.Errorf("ReleaseTrackSet = %v", got)
	}
}

func TestParseOrder(t *testing.T) {
	for in, want := range map[string]Order{"": OrderSemver, "semver": OrderSemver, "date": OrderDate} {
		if got, err := ParseOrder(in); err != nil || got != want {
			t.Errorf("ParseOrder(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOrder("size"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ParseOrder(size) err = %v", err)
	}
}

func TestStatus(t *testing.T) {
	agg := newAggregate(&fakeLoader{})
	st := agg.Status()
	if st.Crate != "demo" || st.VersionsLoaded || st.Tasks[TaskLoadVersions] != TaskIdle {
		t.Errorf("initial status = %+v", st)
	}
	if _, err := agg.LoadOwners(context.Background()); err != nil {
		t.Fatal(err)
	}
	st = agg.Status()
	if !st.OwnerTeamLoaded || !st.OwnerUserLoaded || st.Tasks[TaskLoadOwners] != TaskCompleted {
		t.Errorf("status after owners = %+v", st)
	}
}
