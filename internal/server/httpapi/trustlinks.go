package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/model"
)

type linkEntry struct {
	FlockA string `json:"flock_a"`
	FlockB string `json:"flock_b"`
}

type linkListResponse struct {
	Links []linkEntry `json:"links"`
}

func (r *Router) handleLinkCreate(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	src := chi.URLParam(req, "src")
	dst := chi.URLParam(req, "dst")
	if src == dst {
		writeText(w, http.StatusBadRequest, "bad request")
		return
	}
	res, err := r.links.Create(req.Context(), auth.AccountID, src, dst)
	if err != nil {
		r.writeOwnershipErr(w, err)
		return
	}
	writeText(w, http.StatusOK, res.Message)
}

func (r *Router) handleLinkDelete(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	src := chi.URLParam(req, "src")
	dst := chi.URLParam(req, "dst")
	if err := r.links.Delete(req.Context(), auth.AccountID, src, dst); err != nil {
		if errors.Is(err, errs.ErrNotFoundOrForbidden) {
			writeText(w, http.StatusOK, "no such trust link")
			return
		}
		r.fail(w, err)
		return
	}
	writeText(w, http.StatusOK, "deleted")
}

func (r *Router) handleLinkList(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	links, err := r.links.ListForOwner(req.Context(), auth.AccountID)
	if err != nil {
		r.fail(w, err)
		return
	}
	r.writeLinks(w, links)
}

func (r *Router) handleLinkListForFlock(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	links, err := r.links.ListForFlock(req.Context(), auth.AccountID, chi.URLParam(req, "flock"))
	if err != nil {
		r.writeOwnershipErr(w, err)
		return
	}
	r.writeLinks(w, links)
}

func (r *Router) writeLinks(w http.ResponseWriter, links []model.TrustLink) {
	entries := make([]linkEntry, 0, len(links))
	for _, l := range links {
		entries = append(entries, linkEntry{FlockA: l.Src, FlockB: l.Dst})
	}
	writeJSON(w, http.StatusOK, linkListResponse{Links: entries})
}
