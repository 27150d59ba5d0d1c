package handlers

import "net/http"

// DegradedReporter reports whether storage is running on its fallback.
type DegradedReporter interface {
	Degraded() bool
}

// Health answers liveness probes. The service stays available while storage
// is degraded, so the status code is always 200.
func Health(store DegradedReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]string{"status": "ok", "storage": "durable"}
		if store != nil && store.Degraded() {
			resp["storage"] = "memory"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
