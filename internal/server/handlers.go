package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/cratewatch/pkg/crate"
	"github.com/matzehuels/cratewatch/pkg/errors"
)

type crateResponse struct {
	Crate          *crate.Crate `json:"crate"`
	DefaultVersion string       `json:"default_version_num"`
	Status         crate.Status `json:"status"`
}

type versionView struct {
	ID         int64     `json:"id"`
	Num        string    `json:"num"`
	CreatedAt  time.Time `json:"created_at"`
	Yanked     bool      `json:"yanked"`
	Prerelease bool      `json:"prerelease"`
	Track      string    `json:"release_track,omitempty"`
	Highest    bool      `json:"highest_of_track"`
	New        bool      `json:"new"`
	Downloads  int64     `json:"downloads"`
}

type versionsResponse struct {
	Crate    string        `json:"crate"`
	Sort     crate.Order   `json:"sort"`
	Versions []versionView `json:"versions"`
}

type tracksResponse struct {
	Crate  string        `json:"crate"`
	Tracks []crate.Track `json:"release_tracks"`
}

type ownersResponse struct {
	Crate  string         `json:"crate"`
	Owners []*crate.Owner `json:"owners"`
}

type errorResponse struct {
	Error     string               `json:"error"`
	Code      errors.Code          `json:"code,omitempty"`
	RequestID string               `json:"request_id,omitempty"`
	Response  *crate.WriteResponse `json:"response,omitempty"`
}

func (s *Server) aggregate(w http.ResponseWriter, r *http.Request) (*crate.Aggregate, bool) {
	agg, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return agg, true
}

func (s *Server) getCrate(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, crateResponse{
		Crate:          agg.Crate(),
		DefaultVersion: agg.Crate().DefaultVersionNum(),
		Status:         agg.Status(),
	})
}

func (s *Server) getVersions(w http.ResponseWriter, r *http.Request) {
	order, err := crate.ParseOrder(r.URL.Query().Get("sort"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	reload, err := parseReload(r.URL.Query().Get("reload"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	if _, err := agg.LoadVersions(r.Context(), crate.LoadOptions{Reload: reload}); err != nil {
		s.fail(w, r, err)
		return
	}

	now := s.now()
	versions := agg.SortedVersions(order)
	views := make([]versionView, len(versions))
	for i, v := range versions {
		views[i] = versionView{
			ID:         v.ID,
			Num:        v.Num,
			CreatedAt:  v.CreatedAt,
			Yanked:     v.Yanked,
			Prerelease: v.IsPrerelease(),
			Track:      v.ReleaseTrack(),
			Highest:    agg.HighestOfReleaseTrack(v.ID),
			New:        v.IsNew(now),
			Downloads:  v.Downloads,
		}
	}
	writeJSON(w, http.StatusOK, versionsResponse{Crate: agg.Name(), Sort: order, Versions: views})
}

func (s *Server) getReleaseTracks(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	if _, err := agg.LoadVersions(r.Context(), crate.LoadOptions{}); err != nil {
		s.fail(w, r, err)
		return
	}
	tracks := agg.ReleaseTracks()
	if tracks == nil {
		tracks = []crate.Track{}
	}
	writeJSON(w, http.StatusOK, tracksResponse{Crate: agg.Name(), Tracks: tracks})
}

func (s *Server) getOwners(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	if _, err := agg.LoadOwners(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	owners, err := agg.Owners()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ownersResponse{Crate: agg.Name(), Owners: owners})
}

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	res, err := agg.Follow(r.Context())
	s.writeResult(w, r, res, err)
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	res, err := agg.Unfollow(r.Context())
	s.writeResult(w, r, res, err)
}

func (s *Server) inviteOwner(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	res, err := agg.InviteOwner(r.Context(), chi.URLParam(r, "user"))
	s.writeResult(w, r, res, err)
}

func (s *Server) removeOwner(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	res, err := agg.RemoveOwner(r.Context(), chi.URLParam(r, "user"))
	s.writeResult(w, r, res, err)
}

// writeResult relays a write. Follow results that are not OK keep the
// registry's status; rejected owner writes map to 422.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res *crate.WriteResponse, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if !res.OK && res.Status >= 400 {
		status = res.Status
	}
	writeJSON(w, status, res)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{
		Error:     errors.UserMessage(err),
		Code:      errors.GetCode(err),
		RequestID: RequestID(r.Context()),
	}
	var rejected *crate.RejectedError
	if stderrors.As(err, &rejected) {
		body.Error = rejected.Error()
		body.Code = errors.ErrCodeWriteRejected
		body.Response = rejected.Response
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", body.RequestID)
	}
	writeJSON(w, status, body)
}

// parseReload reads the reload query flag. An empty value means false.
func parseReload(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	reload, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid reload %q (want true or false)", s)
	}
	return reload, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCodeUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrCodeInvalidInput),
		errors.Is(err, errors.ErrCodeInvalidCrate),
		errors.Is(err, errors.ErrCodeInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeWriteRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrCodePrecondition):
		return http.StatusConflict
	case errors.Is(err, errors.ErrCodeInvalidConfig):
		return http.StatusNotImplemented
	case errors.Is(err, errors.ErrCodeRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errors.ErrCodeNetwork), errors.Is(err, errors.ErrCodeFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
