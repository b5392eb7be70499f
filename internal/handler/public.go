package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/givehub/internal/service"
)

// PublicHandler serves the anonymous, read-only routes.
type PublicHandler struct {
	svc    *service.PublicService
	logger *slog.Logger
}

func NewPublicHandler(svc *service.PublicService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, logger: logger}
}

// HTTP: GET /api/public/donations
func (h *PublicHandler) HandleDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.svc.ListDonations(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"donations": donations})
}

// HTTP: GET /api/public/requests
func (h *PublicHandler) HandleRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.ListRequests(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"requests": requests})
}

// HandleSearch filters approved listings.
//
// HTTP: GET /api/public/search?itemName=&category=&minQuantity=&maxQuantity=&urgency=&type=
//
// Quantities that do not parse fall back to the defaults instead of failing
// the request; an unknown type, category or urgency is a 400.
func (h *PublicHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.SearchFilter{
		ItemName:    q.Get("itemName"),
		Category:    q.Get("category"),
		MinQuantity: intParam(q.Get("minQuantity")),
		MaxQuantity: intParam(q.Get("maxQuantity")),
		Urgency:     q.Get("urgency"),
		Type:        service.SearchType(q.Get("type")),
	}

	result, err := h.svc.Search(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{
		"donations": result.Donations,
		"requests":  result.Requests,
	})
}

// HTTP: GET /api/public/activities?limit=15
func (h *PublicHandler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.svc.ActivityFeed(r.Context(), intParam(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"activities": activities})
}

// intParam returns 0 (meaning "use the default") for anything that is not a
// positive integer.
func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
