package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flocknet/flockd/internal/errs"
)

type flockEntry struct {
	ID string `json:"id"`
}

type flockListResponse struct {
	Flocks []flockEntry `json:"flocks"`
}

func (r *Router) handleFlockCreate(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	id, err := r.flocks.Create(req.Context(), auth.AccountID, auth.FlocksMax)
	if err != nil {
		// Quota is an acknowledged outcome, not a failure status.
		if errors.Is(err, errs.ErrQuotaExceeded) {
			writeText(w, http.StatusOK, "reached max flocks per account")
			return
		}
		r.fail(w, err)
		return
	}
	writeText(w, http.StatusOK, id)
}

func (r *Router) handleFlockList(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	flocks, err := r.flocks.List(req.Context(), auth.AccountID)
	if err != nil {
		r.fail(w, err)
		return
	}
	entries := make([]flockEntry, 0, len(flocks))
	for _, f := range flocks {
		entries = append(entries, flockEntry{ID: f.ID})
	}
	writeJSON(w, http.StatusOK, flockListResponse{Flocks: entries})
}

func (r *Router) handleFlockDelete(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	flock := chi.URLParam(req, "flock")
	if err := r.flocks.Delete(req.Context(), auth.AccountID, flock); err != nil {
		if errors.Is(err, errs.ErrNotFoundOrForbidden) {
			writeText(w, http.StatusOK, "no such flock")
			return
		}
		r.fail(w, err)
		return
	}
	writeText(w, http.StatusOK, "deleted")
}
