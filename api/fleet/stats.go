package fleet

import (
	"net/http"

	"github.com/kilianp07/taxigrad/core/stats"
)

// NewStatsHandler exposes the run summary via GET /api/stats. With
// ?raw=customers or ?raw=taxis it returns the underlying records instead.
func NewStatsHandler(rec *stats.Recorder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Query().Get("raw") {
		case "":
			writeJSON(w, rec.Summary())
		case "customers":
			writeJSON(w, rec.Customers())
		case "taxis":
			writeJSON(w, rec.Taxis())
		default:
			http.Error(w, "unknown raw view", http.StatusBadRequest)
		}
	})
}
