package api

import (
	"encoding/json"
	"errors"
	"net/http"

	fanout "github.com/feedbacksdev/fanout"
	"github.com/feedbacksdev/fanout/project"
)

func (h *Handler) getWebhooks(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Projects().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, fanout.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	webhooks := p.Webhooks
	if len(webhooks) == 0 {
		webhooks = json.RawMessage("{}")
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"webhooks": webhooks})
}

func (h *Handler) updateWebhooks(w http.ResponseWriter, r *http.Request) {
	var webhooks json.RawMessage
	if err := decodeJSON(r, &webhooks); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.engine.UpdateWebhooks(r.Context(), r.PathValue("id"), webhooks)
	if err != nil {
		var cfgErr *project.ConfigError
		if errors.As(err, &cfgErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "invalid webhooks configuration",
				"fields": cfgErr.Fields,
			})
			return
		}
		if errors.Is(err, fanout.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	secret, err := h.engine.Projects().RotateSecret(r.Context(), r.PathValue("id"), r.PathValue("endpointID"))
	if err != nil {
		if errors.Is(err, fanout.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		if errors.Is(err, project.ErrNoGenericEndpoint) {
			writeError(w, http.StatusNotFound, "no generic endpoint configured")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}
