package fleet

import (
	"net/http"
	"time"

	"github.com/kilianp07/taxigrad/core/triplog"
)

// NewTripsHandler returns an HTTP handler exposing trip records via GET /api/trips.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewTripsHandler(store triplog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := triplog.Query{
			RunID:  r.URL.Query().Get("run_id"),
			TaxiID: r.URL.Query().Get("taxi_id"),
		}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []triplog.Record{}
		}
		writeJSON(w, records)
	})
}
