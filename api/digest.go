package api

import "net/http"

// runDigest triggers one digest sweep over the trailing window ending now.
// The scheduler that would normally drive this (cron, cloud scheduler) calls
// it; exposing it also makes manual reruns possible.
func (h *Handler) runDigest(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.RunDigest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
