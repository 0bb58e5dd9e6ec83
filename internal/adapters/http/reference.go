package httpadapter

import "net/http"

func (rt *Router) refreshReference(w http.ResponseWriter, r *http.Request) {
	if err := rt.catalog.Refresh(r.Context()); err != nil {
		rt.writeError(w, r, "refresh_reference", err)
		return
	}
	rt.referenceStats(w, r)
}

func (rt *Router) referenceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.catalog.Stats(r.Context())
	if err != nil {
		rt.writeError(w, r, "reference_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
