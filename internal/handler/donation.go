package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/service"
	"github.com/sakif/givehub/internal/workflow"
)

// DonationHandler serves the donor routes and the admin donation routes.
type DonationHandler struct {
	svc    *service.DonationService
	logger *slog.Logger
}

func NewDonationHandler(svc *service.DonationService, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{svc: svc, logger: logger}
}

// donationBody is the JSON form for create and update.
type donationBody struct {
	ItemName    string         `json:"itemName"`
	Category    model.Category `json:"category"`
	Description string         `json:"description"`
	Quantity    int            `json:"quantity"`
	PhotoURL    string         `json:"photoUrl"`
}

func (b donationBody) input() service.DonationInput {
	return service.DonationInput{
		ItemName:    b.ItemName,
		Category:    b.Category,
		Description: b.Description,
		Quantity:    b.Quantity,
		PhotoURL:    b.PhotoURL,
	}
}

// decisionBody is {"action": "approve"|"reject"}.
type decisionBody struct {
	Action workflow.Decision `json:"action"`
}

// HandleCreate adds a pending donation.
//
// HTTP: POST /api/donations
func (h *DonationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var body donationBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.svc.Create(r.Context(), actor, body.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Donation added successfully! It's pending admin approval.", payload{"donation": d})
}

// HandleListMine returns every donation the caller owns.
//
// HTTP: GET /api/donations/my
func (h *DonationHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	donations, err := h.svc.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"donations": donations})
}

// HandleGet returns one donation to its owner (or an admin).
//
// HTTP: GET /api/donations/{id}
func (h *DonationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	d, err := h.svc.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"donation": d})
}

// HandleUpdate edits a pending donation.
//
// HTTP: PUT /api/donations/{id}
func (h *DonationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var body donationBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.svc.Update(r.Context(), actor, r.PathValue("id"), body.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Donation updated successfully.", payload{"donation": d})
}

// HandleDelete removes a pending donation.
//
// HTTP: DELETE /api/donations/{id}
func (h *DonationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Donation deleted successfully.", nil)
}

// HandleListAll is the admin view of every donation with donor contact details.
//
// HTTP: GET /api/admin/donations
func (h *DonationHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	donations, err := h.svc.ListAll(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"donations": donations})
}

// HandleDecide approves or rejects a pending donation.
//
// HTTP: PUT /api/admin/donations/{id}/approve
// REQUEST BODY: {"action": "approve"} or {"action": "reject"}
func (h *DonationHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var body decisionBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.svc.Decide(r.Context(), actor, r.PathValue("id"), body.Action)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Donation "+body.Action.PastTense()+" successfully.", payload{"donation": d})
}
