package api

import (
	"errors"
	"net/http"

	fanout "github.com/feedbacksdev/fanout"
)

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	stats, err := h.engine.Stats(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, fanout.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
