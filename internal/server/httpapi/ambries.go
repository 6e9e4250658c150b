package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flocknet/flockd/internal/errs"
)

// handleAmbryUpload publishes a flock's own ambry. Uniform "bad request"
// denials keep ownership, trust state and size failures indistinguishable
// from outside.
func (r *Router) handleAmbryUpload(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	blob, err := r.readBlob(w, req)
	if err != nil {
		return
	}
	err = r.ambries.PublishSingle(req.Context(), auth.AccountID, chi.URLParam(req, "flock"), blob)
	r.writeAmbryResult(w, err)
}

func (r *Router) handleAmbryUploadBilateral(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	a := chi.URLParam(req, "a")
	b := chi.URLParam(req, "b")
	if a == b {
		writeText(w, http.StatusForbidden, "bad request")
		return
	}
	blob, err := r.readBlob(w, req)
	if err != nil {
		return
	}
	err = r.ambries.PublishBilateral(req.Context(), auth.AccountID, a, b, blob)
	r.writeAmbryResult(w, err)
}

// readBlob reads the ambry body under the global cap. A response has already
// been written when it returns an error.
func (r *Router) readBlob(w http.ResponseWriter, req *http.Request) ([]byte, error) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusForbidden, "bad request, invalid length")
			return nil, err
		}
		r.fail(w, err)
		return nil, err
	}
	return blob, nil
}

func (r *Router) writeAmbryResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeText(w, http.StatusOK, "ambry uploaded")
	case errors.Is(err, errs.ErrSizeInvalid):
		writeText(w, http.StatusForbidden, "bad request, invalid length")
	case errors.Is(err, errs.ErrNotFoundOrForbidden), errors.Is(err, errs.ErrNotEstablished):
		writeText(w, http.StatusForbidden, "bad request")
	default:
		r.fail(w, err)
	}
}
