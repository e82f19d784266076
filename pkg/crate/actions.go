package crate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/matzehuels/cratewatch/pkg/errors"
)

// RejectedError is returned by owner mutations the registry answered
// without success.
type RejectedError struct {
	Op       string
	Response *WriteResponse
}

func (e *RejectedError) Error() string {
	if e.Response.Message != "" {
		return fmt.Sprintf("%s rejected (status %d): %s", e.Op, e.Response.Status, e.Response.Message)
	}
	return fmt.Sprintf("%s rejected (status %d)", e.Op, e.Response.Status)
}

// Unwrap exposes the error code so errors.Is(err, ErrCodeWriteRejected)
// matches.
func (e *RejectedError) Unwrap() error {
	return errors.New(errors.ErrCodeWriteRejected, "%s", e.Op)
}

type ownersBody struct {
	Owners []string `json:"owners"`
}

// Follow follows the crate as the authenticated user.
func (a *Aggregate) Follow(ctx context.Context) (*WriteResponse, error) {
	return a.write(ctx, http.MethodPut, "follow", nil)
}

// Unfollow stops following the crate.
func (a *Aggregate) Unfollow(ctx context.Context) (*WriteResponse, error) {
	return a.write(ctx, http.MethodDelete, "follow", nil)
}

// InviteOwner invites a user or team to own the crate. A response without
// success is returned as a [*RejectedError].
//
// Owners are not updated locally; call LoadOwners to observe the change.
func (a *Aggregate) InviteOwner(ctx context.Context, username string) (*WriteResponse, error) {
	return a.writeOwners(ctx, http.MethodPut, "invite owner", username)
}

// RemoveOwner removes an owner from the crate.
func (a *Aggregate) RemoveOwner(ctx context.Context, username string) (*WriteResponse, error) {
	return a.writeOwners(ctx, http.MethodDelete, "remove owner", username)
}

func (a *Aggregate) writeOwners(ctx context.Context, method, op, username string) (*WriteResponse, error) {
	if err := errors.ValidateUsername(username); err != nil {
		return nil, err
	}
	res, err := a.write(ctx, method, "owners", ownersBody{Owners: []string{username}})
	if err != nil {
		return nil, err
	}
	if !res.OK {
		a.logger.Debug("write rejected", "op", op, "user", username, "status", res.Status)
		return res, &RejectedError{Op: op, Response: res}
	}
	return res, nil
}

func (a *Aggregate) write(ctx context.Context, method, sub string, body any) (*WriteResponse, error) {
	if a.opts.writer == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no writer configured for %s", a.crate.Name)
	}
	req := WriteRequest{
		Method: method,
		Path:   "crates/" + url.PathEscape(a.crate.Name) + "/" + sub,
		Body:   body,
	}
	res, err := a.opts.writer.Write(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &WriteResponse{}
	}
	return res, nil
}
