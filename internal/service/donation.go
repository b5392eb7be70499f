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

// DonationInput is the donor-editable part of a donation.
type DonationInput struct {
	ItemName    string
	Category    model.Category
	Description string
	Quantity    int
	PhotoURL    string
}

// normalize trims the text fields and checks them in the order the user
// sees the messages: required fields, then category, then quantity.
func (in DonationInput) normalize() (DonationInput, error) {
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.Description = strings.TrimSpace(in.Description)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	in.Category = model.Category(strings.TrimSpace(string(in.Category)))

	if in.ItemName == "" || in.Category == "" || in.Description == "" {
		return in, apperror.ValidationFailed("itemName", "Item name, category, and description are required.")
	}
	if !in.Category.Valid() {
		return in, apperror.ValidationFailed("category", "Invalid category specified.")
	}
	if in.Quantity < 1 {
		return in, apperror.ValidationFailed("quantity", "Quantity must be at least 1.")
	}
	return in, nil
}

// DonationService handles the donor side of the workflow and the admin
// approval of donations.
type DonationService struct {
	store  repository.Store
	names  *NameResolver
	rec    Recorder
	logger *slog.Logger
}

func NewDonationService(store repository.Store, names *NameResolver, rec Recorder, logger *slog.Logger) *DonationService {
	return &DonationService{
		store:  store,
		names:  names,
		rec:    orNop(rec),
		logger: logger,
	}
}

// Create validates and saves a new donation owned by actor. It always
// starts pending.
func (s *DonationService) Create(ctx context.Context, actor model.Actor, in DonationInput) (*model.Donation, error) {
	if actor.Role != model.RoleDonor {
		return nil, apperror.Forbidden(insufficientPerms)
	}

	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	d := &model.Donation{
		DonorID:     actor.ID,
		ItemName:    in.ItemName,
		Category:    in.Category,
		Description: in.Description,
		Quantity:    in.Quantity,
		PhotoURL:    in.PhotoURL,
		Status:      model.StatusPending,
	}
	if err := s.store.CreateDonation(ctx, d); err != nil {
		s.logger.Error("failed to create donation",
			slog.String("donorID", actor.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating donation: %w", err)
	}

	s.logger.Info("donation created",
		slog.String("id", d.ID),
		slog.String("donorID", d.DonorID),
		slog.String("category", string(d.Category)),
	)
	return d, nil
}

// Get returns one donation to its owner or an admin.
func (s *DonationService) Get(ctx context.Context, actor model.Actor, id string) (*model.Donation, error) {
	d, err := s.find(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && d.DonorID != actor.ID {
		return nil, apperror.Forbidden("You can only view your own donations.")
	}
	return d, nil
}

// ListMine returns the actor's own donations in every status, oldest first.
func (s *DonationService) ListMine(ctx context.Context, actor model.Actor) ([]model.Donation, error) {
	donations, err := s.store.ListDonationsByDonor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("listing donations for %s: %w", actor.ID, err)
	}
	return donations, nil
}

// ListAll is the admin view: every donation with the donor's name and email.
func (s *DonationService) ListAll(ctx context.Context, actor model.Actor) ([]model.AdminDonation, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	donations, err := s.store.ListDonations(ctx, repository.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing donations: %w", err)
	}

	out := make([]model.AdminDonation, 0, len(donations))
	for _, d := range donations {
		name, email := s.names.Contact(ctx, d.DonorID)
		out = append(out, model.AdminDonation{Donation: d, DonorName: name, DonorEmail: email})
	}
	return out, nil
}

// Update replaces the editable fields of a pending donation the actor owns.
//
// The check and the write run in one Atomic block so an admin approval
// cannot slip in between "is it still pending?" and the UPDATE.
func (s *DonationService) Update(ctx context.Context, actor model.Actor, id string, in DonationInput) (*model.Donation, error) {
	var updated *model.Donation
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		d, err := s.ownedPending(ctx, tx, actor, id,
			"You can only edit your own donations.",
			"You can only edit donations that are still pending approval.")
		if err != nil {
			return err
		}

		in, err := in.normalize()
		if err != nil {
			return err
		}

		d.ItemName = in.ItemName
		d.Category = in.Category
		d.Description = in.Description
		d.Quantity = in.Quantity
		d.PhotoURL = in.PhotoURL
		if err := tx.UpdateDonation(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("donation updated", slog.String("id", id))
	return updated, nil
}

// Delete permanently removes a pending donation the actor owns.
func (s *DonationService) Delete(ctx context.Context, actor model.Actor, id string) error {
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := s.ownedPending(ctx, tx, actor, id,
			"You can only delete your own donations.",
			"You can only delete donations that are still pending approval."); err != nil {
			return err
		}
		return tx.DeleteDonation(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("donation deleted", slog.String("id", id))
	return nil
}

// Decide applies an admin's approve/reject verdict to a pending donation.
//
// The status change is a compare-and-set from pending, so of two admins
// deciding the same donation at once exactly one succeeds; the other gets
// the same InvalidState a late caller would.
func (s *DonationService) Decide(ctx context.Context, actor model.Actor, id string, decision workflow.Decision) (*model.Donation, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, apperror.ValidationFailed("action", "Action must be either 'approve' or 'reject'.")
	}

	d, err := s.find(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanDecide(d.Status) {
		return nil, apperror.InvalidState("Only pending donations can be approved or rejected.")
	}

	target := decision.Target()
	if err := legalEdge("donation", model.StatusPending, target); err != nil {
		return nil, err
	}
	d, err = s.store.TransitionDonation(ctx, id, model.StatusPending, target)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidState) {
			return nil, apperror.InvalidState("Only pending donations can be approved or rejected.")
		}
		return nil, err
	}
	s.rec.RecordTransition("donation", string(model.StatusPending), string(target))

	s.logger.Info("donation "+decision.PastTense(),
		slog.String("id", id),
		slog.String("adminID", actor.ID),
	)
	return d, nil
}

// find maps the store's NotFound to the fixed user-facing message.
func (s *DonationService) find(ctx context.Context, repo repository.DonationRepository, id string) (*model.Donation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.NotFoundMsg("Donation not found.")
	}
	d, err := repo.GetDonation(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMsg("Donation not found.")
		}
		return nil, fmt.Errorf("getting donation %s: %w", id, err)
	}
	return d, nil
}

// ownedPending runs the owner guards in order: exists, owner, pending.
func (s *DonationService) ownedPending(ctx context.Context, repo repository.DonationRepository, actor model.Actor, id, notOwner, notPending string) (*model.Donation, error) {
	d, err := s.find(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if d.DonorID != actor.ID {
		return nil, apperror.Forbidden(notOwner)
	}
	if !workflow.CanOwnerModify(d.Status) {
		return nil, apperror.InvalidState(notPending)
	}
	return d, nil
}
