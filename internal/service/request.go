package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
	"github.com/sakif/givehub/internal/workflow"
)

// RequestInput is the receiver-editable part of a request. An empty
// Urgency means normal.
type RequestInput struct {
	ItemNeeded  string
	Category    model.Category
	Description string
	Quantity    int
	Urgency     model.Urgency
}

func (in RequestInput) normalize() (RequestInput, error) {
	in.ItemNeeded = strings.TrimSpace(in.ItemNeeded)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = model.Category(strings.TrimSpace(string(in.Category)))
	in.Urgency = model.Urgency(strings.TrimSpace(string(in.Urgency)))

	if in.ItemNeeded == "" || in.Category == "" || in.Description == "" {
		return in, apperror.ValidationFailed("itemNeeded", "Item needed, category, and description are required.")
	}
	if !in.Category.Valid() {
		return in, apperror.ValidationFailed("category", "Invalid category specified.")
	}
	if in.Quantity < 1 {
		return in, apperror.ValidationFailed("quantity", "Quantity must be at least 1.")
	}
	if in.Urgency == "" {
		in.Urgency = model.UrgencyNormal
	}
	if !in.Urgency.Valid() {
		return in, apperror.ValidationFailed("urgency", "Urgency must be either 'normal' or 'urgent'.")
	}
	return in, nil
}

// RequestService is the receiver-side twin of DonationService.
type RequestService struct {
	store  repository.Store
	names  *NameResolver
	rec    Recorder
	logger *slog.Logger
}

func NewRequestService(store repository.Store, names *NameResolver, rec Recorder, logger *slog.Logger) *RequestService {
	return &RequestService{
		store:  store,
		names:  names,
		rec:    orNop(rec),
		logger: logger,
	}
}

func (s *RequestService) Create(ctx context.Context, actor model.Actor, in RequestInput) (*model.Request, error) {
	if actor.Role != model.RoleReceiver {
		return nil, apperror.Forbidden(insufficientPerms)
	}

	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	r := &model.Request{
		ReceiverID:  actor.ID,
		ItemNeeded:  in.ItemNeeded,
		Category:    in.Category,
		Description: in.Description,
		Quantity:    in.Quantity,
		Urgency:     in.Urgency,
		Status:      model.StatusPending,
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		s.logger.Error("failed to create request",
			slog.String("receiverID", actor.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating request: %w", err)
	}

	s.logger.Info("request created",
		slog.String("id", r.ID),
		slog.String("receiverID", r.ReceiverID),
		slog.String("urgency", string(r.Urgency)),
	)
	return r, nil
}

func (s *RequestService) Get(ctx context.Context, actor model.Actor, id string) (*model.Request, error) {
	r, err := s.find(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && r.ReceiverID != actor.ID {
		return nil, apperror.Forbidden("You can only view your own requests.")
	}
	return r, nil
}

func (s *RequestService) ListMine(ctx context.Context, actor model.Actor) ([]model.Request, error) {
	requests, err := s.store.ListRequestsByReceiver(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("listing requests for %s: %w", actor.ID, err)
	}
	return requests, nil
}

func (s *RequestService) ListAll(ctx context.Context, actor model.Actor) ([]model.AdminRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	requests, err := s.store.ListRequests(ctx, repository.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}

	out := make([]model.AdminRequest, 0, len(requests))
	for _, r := range requests {
		name, email := s.names.Contact(ctx, r.ReceiverID)
		out = append(out, model.AdminRequest{Request: r, ReceiverName: name, ReceiverEmail: email})
	}
	return out, nil
}

func (s *RequestService) Update(ctx context.Context, actor model.Actor, id string, in RequestInput) (*model.Request, error) {
	var updated *model.Request
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		r, err := s.ownedPending(ctx, tx, actor, id,
			"You can only edit your own requests.",
			"You can only edit requests that are still pending approval.")
		if err != nil {
			return err
		}

		in, err := in.normalize()
		if err != nil {
			return err
		}

		r.ItemNeeded = in.ItemNeeded
		r.Category = in.Category
		r.Description = in.Description
		r.Quantity = in.Quantity
		r.Urgency = in.Urgency
		if err := tx.UpdateRequest(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request updated", slog.String("id", id))
	return updated, nil
}

func (s *RequestService) Delete(ctx context.Context, actor model.Actor, id string) error {
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := s.ownedPending(ctx, tx, actor, id,
			"You can only delete your own requests.",
			"You can only delete requests that are still pending approval."); err != nil {
			return err
		}
		return tx.DeleteRequest(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("request deleted", slog.String("id", id))
	return nil
}

func (s *RequestService) Decide(ctx context.Context, actor model.Actor, id string, decision workflow.Decision) (*model.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, apperror.ValidationFailed("action", "Action must be either 'approve' or 'reject'.")
	}

	r, err := s.find(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanDecide(r.Status) {
		return nil, apperror.InvalidState("Only pending requests can be approved or rejected.")
	}

	target := decision.Target()
	if err := legalEdge("request", model.StatusPending, target); err != nil {
		return nil, err
	}
	r, err = s.store.TransitionRequest(ctx, id, model.StatusPending, target)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidState) {
			return nil, apperror.InvalidState("Only pending requests can be approved or rejected.")
		}
		return nil, err
	}
	s.rec.RecordTransition("request", string(model.StatusPending), string(target))

	s.logger.Info("request "+decision.PastTense(),
		slog.String("id", id),
		slog.String("adminID", actor.ID),
	)
	return r, nil
}

func (s *RequestService) find(ctx context.Context, repo repository.RequestRepository, id string) (*model.Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.NotFoundMsg("Request not found.")
	}
	r, err := repo.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMsg("Request not found.")
		}
		return nil, fmt.Errorf("getting request %s: %w", id, err)
	}
	return r, nil
}

func (s *RequestService) ownedPending(ctx context.Context, repo repository.RequestRepository, actor model.Actor, id, notOwner, notPending string) (*model.Request, error) {
	r, err := s.find(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if r.ReceiverID != actor.ID {
		return nil, apperror.Forbidden(notOwner)
	}
	if !workflow.CanOwnerModify(r.Status) {
		return nil, apperror.InvalidState(notPending)
	}
	return r, nil
}
