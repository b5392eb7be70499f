package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/service"
)

// RequestHandler serves the receiver routes and the admin request routes.
type RequestHandler struct {
	svc    *service.RequestService
	logger *slog.Logger
}

func NewRequestHandler(svc *service.RequestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, logger: logger}
}

// requestBody is the JSON form for create and update.
type requestBody struct {
	ItemNeeded  string         `json:"itemNeeded"`
	Category    model.Category `json:"category"`
	Description string         `json:"description"`
	Quantity    int            `json:"quantity"`
	Urgency     model.Urgency  `json:"urgency"`
}

func (b requestBody) input() service.RequestInput {
	return service.RequestInput{
		ItemNeeded:  b.ItemNeeded,
		Category:    b.Category,
		Description: b.Description,
		Quantity:    b.Quantity,
		Urgency:     b.Urgency,
	}
}

// HandleCreate posts a pending request.
//
// HTTP: POST /api/requests
func (h *RequestHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var body requestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rq, err := h.svc.Create(r.Context(), actor, body.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Request posted successfully! It's pending admin approval.", payload{"request": rq})
}

// HTTP: GET /api/requests/my
func (h *RequestHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	requests, err := h.svc.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"requests": requests})
}

// HandleGet returns one request to its owner (or an admin).
//
// HTTP: GET /api/requests/{id}
func (h *RequestHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	rq, err := h.svc.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"request": rq})
}

// HandleUpdate edits a pending request.
//
// HTTP: PUT /api/requests/{id}
func (h *RequestHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var body requestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rq, err := h.svc.Update(r.Context(), actor, r.PathValue("id"), body.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Request updated successfully.", payload{"request": rq})
}

// HandleDelete removes a pending request.
//
// HTTP: DELETE /api/requests/{id}
func (h *RequestHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Request deleted successfully.", nil)
}

// HandleListAll is the admin view of every request with receiver contact details.
//
// HTTP: GET /api/admin/requests
func (h *RequestHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	requests, err := h.svc.ListAll(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"requests": requests})
}

// HandleDecide approves or rejects a pending request.
//
// HTTP: PUT /api/admin/requests/{id}/approve
// REQUEST BODY: {"action": "approve"} or {"action": "reject"}
func (h *RequestHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var body decisionBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rq, err := h.svc.Decide(r.Context(), actor, r.PathValue("id"), body.Action)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Request "+body.Action.PastTense()+" successfully.", payload{"request": rq})
}
