package proxy

import "net/http"

// healthHandler handles liveness probe requests. Returns the fixed ok payload
// once the application is ready to serve traffic, 503 before that.
func healthHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if !checker.IsReady() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(r.Context(), w, map[string]bool{"ok": true}, http.StatusOK)
	}
}
