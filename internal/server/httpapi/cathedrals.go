package httpapi

import (
	"fmt"
	"net/http"
	"strings"
)

// handleCathedralList renders the known relays as plain text lines, one per
// cathedral.
func (r *Router) handleCathedralList(w http.ResponseWriter, req *http.Request) {
	cathedrals, err := r.cathedrals.List(req.Context())
	if err != nil {
		r.fail(w, err)
		return
	}
	var b strings.Builder
	for _, c := range cathedrals {
		if c.Descr != "" {
			fmt.Fprintf(&b, "%s - %s:%d\n", c.Descr, c.IP, c.Port)
		} else {
			fmt.Fprintf(&b, "%s:%d\n", c.IP, c.Port)
		}
	}
	writeText(w, http.StatusOK, b.String())
}
