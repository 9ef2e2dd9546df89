package fleet

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/taxistatus"
)

// NewTaxisHandler exposes taxi status via GET /api/taxis and
// GET /api/taxis/{id}. The list accepts state and carrying filters.
func NewTaxisHandler(store taxistatus.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/taxis"), "/"); id != "" {
			st, ok := store.Get(id)
			if !ok {
				http.NotFound(w, r)
				return
			}
			writeJSON(w, st)
			return
		}
		var f taxistatus.Filter
		if s := r.URL.Query().Get("state"); s != "" {
			var st model.State
			_ = st.UnmarshalText([]byte(strings.ToUpper(s)))
			f.State = &st
		}
		if s := r.URL.Query().Get("carrying"); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				http.Error(w, "invalid carrying filter", http.StatusBadRequest)
				return
			}
			f.Carrying = &b
		}
		writeJSON(w, store.List(f))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
