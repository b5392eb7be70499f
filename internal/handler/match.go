package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/givehub/internal/service"
)

// MatchHandler serves the admin matching routes.
type MatchHandler struct {
	svc    *service.MatchService
	logger *slog.Logger
}

func NewMatchHandler(svc *service.MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{svc: svc, logger: logger}
}

type createMatchBody struct {
	DonationID string `json:"donationId"`
	RequestID  string `json:"requestId"`
}

// HandleCreate pairs an approved donation with an approved request.
//
// HTTP: POST /api/admin/match
// REQUEST BODY: {"donationId": "...", "requestId": "..."}
func (h *MatchHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var body createMatchBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	m, err := h.svc.Create(r.Context(), actor, body.DonationID, body.RequestID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Donation and request matched successfully!", payload{"match": m})
}

// HTTP: GET /api/admin/matches
func (h *MatchHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	matches, err := h.svc.List(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"matches": matches})
}

// HTTP: PUT /api/admin/matches/{id}/complete
func (h *MatchHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	m, err := h.svc.Complete(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Match completed successfully.", payload{"match": m})
}

// HandleCancel ends an active match; both sides go back to approved.
//
// HTTP: PUT /api/admin/matches/{id}/cancel
func (h *MatchHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	m, err := h.svc.Cancel(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK,
		"Match cancelled successfully. Donation and request are now available for new matches.",
		payload{"match": m})
}
