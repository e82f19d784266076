// Package remote connects the crate aggregate to the crates.io API.
//
// [Registry] implements [crate.Loader] and [crate.Writer] on top of a
// [crates.Client] and translates transport sentinels into coded errors.
package remote

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/cratewatch/pkg/crate"
	"github.com/matzehuels/cratewatch/pkg/errors"
	"github.com/matzehuels/cratewatch/pkg/httputil"
	"github.com/matzehuels/cratewatch/pkg/integrations"
	"github.com/matzehuels/cratewatch/pkg/integrations/crates"
)

// Registry loads and writes crate aggregates through a crates.io client.
type Registry struct {
	client *crates.Client
}

var (
	_ crate.Loader = (*Registry)(nil)
	_ crate.Writer = (*Registry)(nil)
)

// New creates a registry adapter.
func New(client *crates.Client) *Registry {
	return &Registry{client: client}
}

// LoadCrate fetches the crate record, from the response cache if fresh.
func (r *Registry) LoadCrate(ctx context.Context, name string) (*crate.Crate, error) {
	info, err := r.client.FetchCrate(ctx, name, false)
	if err != nil {
		return nil, classify(err, "fetch crate %s", name)
	}
	return toCrate(info), nil
}

// LoadVersions fetches every version. reload bypasses the response cache.
func (r *Registry) LoadVersions(ctx context.Context, name string, reload bool) ([]*crate.Version, error) {
	infos, err := r.client.FetchVersions(ctx, name, reload)
	if err != nil {
		return nil, classify(err, "fetch versions of %s", name)
	}
	out := make([]*crate.Version, len(infos))
	for i := range infos {
		out[i] = toVersion(name, &infos[i])
	}
	return out, nil
}

// LoadOwnerTeams fetches the team owners.
func (r *Registry) LoadOwnerTeams(ctx context.Context, name string) ([]*crate.Owner, error) {
	infos, err := r.client.FetchOwnerTeams(ctx, name)
	if err != nil {
		return nil, classify(err, "fetch team owners of %s", name)
	}
	return toOwners(infos, crate.OwnerTeam), nil
}

// LoadOwnerUsers fetches the user owners.
func (r *Registry) LoadOwnerUsers(ctx context.Context, name string) ([]*crate.Owner, error) {
	infos, err := r.client.FetchOwnerUsers(ctx, name)
	if err != nil {
		return nil, classify(err, "fetch user owners of %s", name)
	}
	return toOwners(infos, crate.OwnerUser), nil
}

// Write sends a write to the registry.
func (r *Registry) Write(ctx context.Context, req crate.WriteRequest) (*crate.WriteResponse, error) {
	res, err := r.client.Write(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		return nil, classify(err, "%s %s", req.Method, req.Path)
	}
	return &crate.WriteResponse{OK: res.OK, Status: res.Status, Message: res.Message}, nil
}

func classify(err error, format string, args ...any) error {
	switch {
	case stderrors.Is(err, integrations.ErrNotFound):
		return errors.Wrap(errors.ErrCodeNotFound, err, format, args...)
	case stderrors.Is(err, integrations.ErrRateLimited):
		limited := &errors.RateLimitedError{Message: err.Error()}
		var re *httputil.RetryableError
		if stderrors.As(err, &re) {
			limited.RetryAfter = int(re.After.Seconds())
		}
		return errors.Wrap(errors.ErrCodeRateLimited, limited, format, args...)
	case stderrors.Is(err, integrations.ErrUnauthorized):
		return errors.Wrap(errors.ErrCodeUnauthorized, err, format, args...)
	case stderrors.Is(err, integrations.ErrNetwork):
		return errors.Wrap(errors.ErrCodeNetwork, err, format, args...)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errors.Wrap(errors.ErrCodeInternal, err, format, args...)
	}
}

func toCrate(info *crates.CrateInfo) *crate.Crate {
	return &crate.Crate{
		Name:             info.Name,
		Description:      info.Description,
		Homepage:         info.Homepage,
		Repository:       info.Repository,
		Documentation:    info.Documentation,
		Downloads:        info.Downloads,
		RecentDownloads:  info.RecentDownloads,
		CreatedAt:        info.CreatedAt,
		UpdatedAt:        info.UpdatedAt,
		DefaultVersion:   info.DefaultVersion,
		NumVersions:      info.NumVersions,
		Yanked:           info.Yanked,
		MaxVersion:       info.MaxVersion,
		MaxStableVersion: info.MaxStableVersion,
		NewestVersion:    info.NewestVersion,
		Keywords:         info.Keywords,
		Categories:       info.Categories,
	}
}

func toVersion(name string, info *crates.VersionInfo) *crate.Version {
	v := &crate.Version{
		ID:          info.ID,
		Crate:       info.Crate,
		Num:         info.Num,
		CreatedAt:   info.CreatedAt,
		UpdatedAt:   info.UpdatedAt,
		Yanked:      info.Yanked,
		Downloads:   info.Downloads,
		License:     info.License,
		CrateSize:   info.CrateSize,
		RustVersion: info.RustVersion,
		Edition:     info.Edition,
	}
	if v.Crate == "" {
		v.Crate = name
	}
	if info.PublishedBy != nil {
		v.PublishedBy = toOwner(info.PublishedBy, crate.OwnerUser)
	}
	return v
}

func toOwners(infos []crates.OwnerInfo, kind crate.OwnerKind) []*crate.Owner {
	out := make([]*crate.Owner, len(infos))
	for i := range infos {
		out[i] = toOwner(&infos[i], kind)
	}
	return out
}

func toOwner(info *crates.OwnerInfo, kind crate.OwnerKind) *crate.Owner {
	if info.Kind != "" {
		kind = crate.OwnerKind(info.Kind)
	}
	return &crate.Owner{
		ID:     info.ID,
		Kind:   kind,
		Login:  info.Login,
		Name:   info.Name,
		Avatar: info.Avatar,
		URL:    info.URL,
	}
}
