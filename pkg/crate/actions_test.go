package crate

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/matzehuels/cratewatch/pkg/errors"
)

func TestFollowUnfollow(t *testing.T) {
	w := &fakeWriter{res: &WriteResponse{OK: true, Status: 200}}
	agg := newAggregate(&fakeLoader{}, WithWriter(w))
	ctx := context.Background()

	if _, err := agg.Follow(ctx); err != nil {
		t.Fatal(err)
	}
	if req := w.last(); req.Method != http.MethodPut || req.Path != "crates/demo/follow" || req.Body != nil {
		t.Errorf("follow request = %+v", req)
	}

	if _, err := agg.Unfollow(ctx); err != nil {
		t.Fatal(err)
	}
	if req := w.last(); req.Method != http.MethodDelete || req.Path != "crates/demo/follow" {
		t.Errorf("unfollow request = %+v", req)
	}
}

func TestFollowReturnsResponseUnchanged(t *testing.T) {
	w := &fakeWriter{res: &WriteResponse{OK: false, Status: 403, Message: "must be logged in"}}
	agg := newAggregate(&fakeLoader{}, WithWriter(w))

	res, err := agg.Follow(context.Background())
	if err != nil {
		t.Fatalf("Follow err = %v", err)
	}
	if res.OK || res.Status != 403 {
		t.Errorf("Follow res = %+v", res)
	}
}

func TestInviteOwnerRejected(t *testing.T) {
	w := &fakeWriter{res: &WriteResponse{OK: false, Status: 200, Message: "could not find user with login `alice`"}}
	agg := newAggregate(&fakeLoader{}, WithWriter(w))

	res, err := agg.InviteOwner(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected failure outcome")
	}
	if !errors.Is(err, errors.ErrCodeWriteRejected) {
		t.Errorf("err = %v, want WRITE_REJECTED", err)
	}
	var rejected *RejectedError
	if !stderrors.As(err, &rejected) || rejected.Response != res {
		t.Errorf("err does not carry the response: %v", err)
	}

	req := w.last()
	body, ok := req.Body.(ownersBody)
	if req.Method != http.MethodPut || req.Path != "crates/demo/owners" || !ok || len(body.Owners) != 1 || body.Owners[0] != "alice" {
		t.Errorf("invite request = %+v", req)
	}
}

func TestRemoveOwner(t *testing.T) {
	w := &fakeWriter{res: &WriteResponse{OK: true, Status: 200, Message: "owners successfully removed"}}
	loader := &fakeLoader{users: []*Owner{user(1, "alice")}}
	agg := newAggregate(loader, WithWriter(w))
	ctx := context.Background()
	if _, err := agg.LoadOwnerUser(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := agg.RemoveOwner(ctx, "alice")
	if err != nil || !res.OK {
		t.Fatalf("RemoveOwner = %+v, %v", res, err)
	}
	if req := w.last(); req.Method != http.MethodDelete || req.Path != "crates/demo/owners" {
		t.Errorf("remove request = %+v", req)
	}
	if ok, _ := agg.HasOwnerUser(1); !ok {
		t.Error("successful write changed local owners")
	}
}

func TestOwnerWriteTransportError(t *testing.T) {
	boom := stderrors.New("dial tcp: refused")
	agg := newAggregate(&fakeLoader{}, WithWriter(&fakeWriter{err: boom}))

	for name, op := range map[string]func(context.Context, string) (*WriteResponse, error){
		"invite": agg.InviteOwner,
		"remove": agg.RemoveOwner,
	} {
		if _, err := op(context.Background(), "alice"); err != boom {
			t.Errorf("%s err = %v, want transport error unchanged", name, err)
		}
	}
	if _, err := agg.Follow(context.Background()); err != boom {
		t.Errorf("follow err = %v, want transport error unchanged", err)
	}
}

func TestOwnerWriteValidatesUsername(t *testing.T) {
	w := &fakeWriter{res: &WriteResponse{OK: true}}
	agg := newAggregate(&fakeLoader{}, WithWriter(w))

	for _, name := range []string{"", "has space", "a/b"} {
		if _, err := agg.InviteOwner(context.Background(), name); !errors.Is(err, errors.ErrCodeInvalidUsername) {
			t.Errorf("InviteOwner(%q) err = %v", name, err)
		}
	}
	if len(w.reqs) != 0 {
		t.Errorf("invalid usernames reached the writer: %v", w.reqs)
	}
}

func TestWriteWithoutWriter(t *testing.T) {
	agg := newAggregate(&fakeLoader{})
	if _, err := agg.Follow(context.Background()); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}
