package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flocknet/flockd/internal/errs"
)

type deviceEntry struct {
	ID       string `json:"device_cathedral_id"`
	Slot     int    `json:"device_kek"`
	Approved bool   `json:"device_approved"`
	Created  int64  `json:"device_created"`
}

type deviceListResponse struct {
	Devices []deviceEntry `json:"devices"`
}

// handleDeviceEnroll is the unauthenticated pre-trust enrollment endpoint.
// The body is the device's raw 32-byte cosigning key. Real and decoy
// responses share one field set.
func (r *Router) handleDeviceEnroll(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, 64))
	if err != nil {
		r.fail(w, err)
		return
	}
	enr, err := r.devices.Enroll(req.Context(), chi.URLParam(req, "flock"), body)
	if err != nil {
		if errors.Is(err, errs.ErrSizeInvalid) {
			writeText(w, http.StatusBadRequest, "invalid cosk")
			return
		}
		r.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enr)
}

func (r *Router) handleDeviceList(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	devices, err := r.devices.List(req.Context(), auth.AccountID, chi.URLParam(req, "flock"))
	if err != nil {
		r.writeOwnershipErr(w, err)
		return
	}
	if len(devices) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"error": "no devices"})
		return
	}
	entries := make([]deviceEntry, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, deviceEntry{
			ID:       d.ID,
			Slot:     d.Slot,
			Approved: d.Approved,
			Created:  d.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, deviceListResponse{Devices: entries})
}

func (r *Router) handleDeviceDelete(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	msg, err := r.devices.Delete(req.Context(), auth.AccountID,
		chi.URLParam(req, "flock"), chi.URLParam(req, "device"))
	if err != nil {
		r.writeOwnershipErr(w, err)
		return
	}
	writeText(w, http.StatusOK, msg)
}

func (r *Router) handleDeviceApprove(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	res, err := r.devices.Approve(req.Context(), auth.AccountID,
		chi.URLParam(req, "flock"), chi.URLParam(req, "device"))
	if err != nil {
		if errors.Is(err, errs.ErrResourceExhausted) {
			writeText(w, http.StatusBadRequest, "no available KEK ids left")
			return
		}
		r.writeOwnershipErr(w, err)
		return
	}
	writeText(w, http.StatusOK, res.Message)
}

// writeOwnershipErr maps a failed ownership gate to a bare 403; absent and
// not-owned stay indistinguishable.
func (r *Router) writeOwnershipErr(w http.ResponseWriter, err error) {
	if errors.Is(err, errs.ErrNotFoundOrForbidden) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	r.fail(w, err)
}
