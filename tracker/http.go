package tracker

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler exposes the tracker's read-only snapshot data as two
// plain JSON endpoints. This is the whole of the external observability
// surface: no templated HTML, no dashboard — an outside visualizer is
// free to poll these and render whatever it likes, but rendering it is
// not this package's job.
func (t *Tracker) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", t.handleLogs)
	mux.HandleFunc("/chains", t.handleChains)
	return mux
}

func (t *Tracker) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(t.Logs()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (t *Tracker) handleChains(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(t.Chains()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
