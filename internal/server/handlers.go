package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"derrclan.com/bible-passage/internal/passage"
	"derrclan.com/bible-passage/internal/reference"
)

const maxRequestBody = 64 << 10

// Handler serves the REST endpoints.
type Handler struct {
	svc    *passage.Service
	logger *zap.Logger
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc *passage.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type passageRequest struct {
	Passage string `json:"passage"`
	Version string `json:"version,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": Version,
	})
}

// Info describes the API and the translations it accepts.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"title":              "Bible Passage API",
		"description":        "Retrieve cleaned Bible passage text by reference",
		"version":            Version,
		"supported_versions": h.svc.Translations().Codes(),
	})
}

// Passage looks up the references in the request body. Per-passage failures
// still answer 200 with success false; only malformed requests get a 400.
func (h *Handler) Passage(w http.ResponseWriter, r *http.Request) {
	var req passageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Validation Error", "request body must be a JSON object")
		return
	}
	if strings.TrimSpace(req.Passage) == "" {
		h.writeError(w, http.StatusBadRequest, "Validation Error", "passage is required")
		return
	}

	resp, err := h.svc.Lookup(r.Context(), req.Passage, req.Version)
	var perr *reference.ParseError
	switch {
	case errors.As(err, &perr):
		h.writeError(w, http.StatusBadRequest, "Validation Error", perr.Error())
		return
	case err != nil:
		h.logger.Error("passage lookup failed", zap.String("passage", req.Passage), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal Server Error", "passage retrieval failed")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, title, detail string) {
	h.writeJSON(w, status, errorResponse{Error: title, Detail: detail})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
