package api

import (
	"errors"
	"net/http"
	"time"

	fanout "github.com/feedbacksdev/fanout"
	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/endpoint"
)

type testDeliverRequest struct {
	Kind       string `json:"kind"`
	EndpointID string `json:"endpoint_id,omitempty"`
}

func (h *Handler) testDeliver(w http.ResponseWriter, r *http.Request) {
	var req testDeliverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := endpoint.Kind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown endpoint kind")
		return
	}

	result, err := h.engine.TestDeliver(r.Context(), r.PathValue("id"), kind, req.EndpointID)
	if err != nil {
		if errors.Is(err, fanout.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		if errors.Is(err, fanout.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, "endpoint not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      result.OK(),
		"status":  result.StatusCode,
		"body":    result.Body,
		"error":   result.Error,
		"latency": result.LatencyMs,
	})
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	opts := delivery.ListOpts{
		Offset:     queryInt(r, "offset", 0),
		Limit:      queryInt(r, "limit", 50),
		EndpointID: queryParam(r, "endpoint_id"),
		Event:      queryParam(r, "event"),
	}

	if v := queryParam(r, "from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' time format (use RFC3339)")
			return
		}
		opts.From = &from
	}
	if v := queryParam(r, "to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' time format (use RFC3339)")
			return
		}
		opts.To = &to
	}

	records, err := h.engine.Store().ListRecords(r.Context(), r.PathValue("id"), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) resendDelivery(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.engine.Resend(r.Context(), r.PathValue("id"), r.PathValue("recordID"))
	if err != nil {
		if errors.Is(err, fanout.ErrDeliveryNotFound) {
			writeError(w, http.StatusNotFound, "delivery record not found")
			return
		}
		if errors.Is(err, fanout.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"delivered": outcome.Delivered,
		"record":    outcome.Record,
	})
}
