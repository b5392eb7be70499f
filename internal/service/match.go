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

// Match outcomes reported to the Recorder.
const (
	OutcomeCreated   = "created"
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
)

// MatchService pairs approved donations with approved requests.
//
// ATOMICITY:
// Creating a match is three writes: donation approved→matched, request
// approved→matched, insert the match. They run in one store.Atomic block.
// The pre-checks below read outside the block and give the precise error
// message; the compare-and-set transitions inside the block are what
// actually guarantee correctness if something changed in between.
type MatchService struct {
	store  repository.Store
	names  *NameResolver
	rec    Recorder
	logger *slog.Logger
}

func NewMatchService(store repository.Store, names *NameResolver, rec Recorder, logger *slog.Logger) *MatchService {
	return &MatchService{
		store:  store,
		names:  names,
		rec:    orNop(rec),
		logger: logger,
	}
}

// Create matches donationID with requestID. Checks run in a fixed order and
// the first failure is returned.
func (s *MatchService) Create(ctx context.Context, actor model.Actor, donationID, requestID string) (*model.Match, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	donationID = strings.TrimSpace(donationID)
	requestID = strings.TrimSpace(requestID)
	if donationID == "" || requestID == "" {
		return nil, apperror.ValidationFailed("donationId", "Both donation ID and request ID are required.")
	}

	donation, err := s.store.GetDonation(ctx, donationID)
	if err != nil {
		return nil, notFoundAs(err, "Donation not found.")
	}
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, notFoundAs(err, "Request not found.")
	}

	if !workflow.CanMatch(donation.Status) {
		return nil, apperror.InvalidState("Only approved donations can be matched.")
	}
	if !workflow.CanMatch(request.Status) {
		return nil, apperror.InvalidState("Only approved requests can be matched.")
	}

	if err := s.checkNoActiveMatch(ctx, donationID, requestID); err != nil {
		return nil, err
	}

	if donation.Category != request.Category {
		s.logger.Warn("matching across categories",
			slog.String("donationID", donationID),
			slog.String("donationCategory", string(donation.Category)),
			slog.String("requestID", requestID),
			slog.String("requestCategory", string(request.Category)),
		)
	}

	if err := legalEdge("donation", donation.Status, model.StatusMatched); err != nil {
		return nil, err
	}
	if err := legalEdge("request", request.Status, model.StatusMatched); err != nil {
		return nil, err
	}

	match := &model.Match{
		DonationID: donationID,
		RequestID:  requestID,
		Status:     model.MatchActive,
	}
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.TransitionDonation(ctx, donationID, model.StatusApproved, model.StatusMatched); err != nil {
			return stateAs(err, "Only approved donations can be matched.")
		}
		if _, err := tx.TransitionRequest(ctx, requestID, model.StatusApproved, model.StatusMatched); err != nil {
			return stateAs(err, "Only approved requests can be matched.")
		}
		return tx.CreateMatch(ctx, match)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("failed to create match",
				slog.String("donationID", donationID),
				slog.String("requestID", requestID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.rec.RecordTransition("donation", string(model.StatusApproved), string(model.StatusMatched))
	s.rec.RecordTransition("request", string(model.StatusApproved), string(model.StatusMatched))
	s.rec.RecordMatch(OutcomeCreated)

	s.logger.Info("match created",
		slog.String("id", match.ID),
		slog.String("donationID", donationID),
		slog.String("requestID", requestID),
	)
	return match, nil
}

// checkNoActiveMatch re-checks the one-active-match rule. With consistent data
// the status checks already cover it.
func (s *MatchService) checkNoActiveMatch(ctx context.Context, donationID, requestID string) error {
	matches, err := s.store.ListActiveMatches(ctx, donationID, requestID)
	if err != nil {
		return fmt.Errorf("listing active matches: %w", err)
	}
	for _, m := range matches {
		if m.DonationID == donationID {
			return apperror.InvalidState("This donation has already been matched.")
		}
		if m.RequestID == requestID {
			return apperror.InvalidState("This request has already been matched.")
		}
	}
	return nil
}

// Complete marks an active match as done. The donation and request stay
// matched for good.
func (s *MatchService) Complete(ctx context.Context, actor model.Actor, matchID string) (*model.Match, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	m, err := s.getActive(ctx, matchID, "Only active matches can be completed.")
	if err != nil {
		return nil, err
	}

	if err := legalMatchEdge(m.Status, model.MatchCompleted); err != nil {
		return nil, err
	}
	m, err = s.store.TransitionMatch(ctx, m.ID, model.MatchActive, model.MatchCompleted)
	if err != nil {
		return nil, stateAs(err, "Only active matches can be completed.")
	}
	s.rec.RecordMatch(OutcomeCompleted)

	s.logger.Info("match completed", slog.String("id", m.ID))
	return m, nil
}

// Cancel ends an active match and puts both sides back to approved so they
// can be matched with someone else. All three writes commit together.
func (s *MatchService) Cancel(ctx context.Context, actor model.Actor, matchID string) (*model.Match, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	m, err := s.getActive(ctx, matchID, "Only active matches can be cancelled.")
	if err != nil {
		return nil, err
	}

	if err := legalMatchEdge(m.Status, model.MatchCancelled); err != nil {
		return nil, err
	}
	if err := legalEdge("donation", model.StatusMatched, model.StatusApproved); err != nil {
		return nil, err
	}

	var cancelled *model.Match
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		var err error
		cancelled, err = tx.TransitionMatch(ctx, m.ID, model.MatchActive, model.MatchCancelled)
		if err != nil {
			return stateAs(err, "Only active matches can be cancelled.")
		}
		if _, err := tx.TransitionDonation(ctx, m.DonationID, model.StatusMatched, model.StatusApproved); err != nil {
			return fmt.Errorf("reverting donation %s: %w", m.DonationID, err)
		}
		if _, err := tx.TransitionRequest(ctx, m.RequestID, model.StatusMatched, model.StatusApproved); err != nil {
			return fmt.Errorf("reverting request %s: %w", m.RequestID, err)
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("failed to cancel match",
				slog.String("id", m.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.rec.RecordTransition("donation", string(model.StatusMatched), string(model.StatusApproved))
	s.rec.RecordTransition("request", string(model.StatusMatched), string(model.StatusApproved))
	s.rec.RecordMatch(OutcomeCancelled)

	s.logger.Info("match cancelled",
		slog.String("id", m.ID),
		slog.String("donationID", m.DonationID),
		slog.String("requestID", m.RequestID),
	)
	return cancelled, nil
}

// List is the admin view of every match with a short summary of each side.
// A side that no longer resolves is left nil.
func (s *MatchService) List(ctx context.Context, actor model.Actor) ([]model.MatchDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	matches, err := s.store.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}

	donors := s.names.cache(UnknownName)
	receivers := s.names.cache(UnknownName)

	out := make([]model.MatchDetail, 0, len(matches))
	for _, m := range matches {
		detail := model.MatchDetail{Match: m}

		if d, err := s.store.GetDonation(ctx, m.DonationID); err == nil {
			detail.Donation = &model.MatchedDonation{
				ItemName:  d.ItemName,
				Category:  d.Category,
				DonorName: donors.get(ctx, d.DonorID),
			}
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("getting donation %s: %w", m.DonationID, err)
		}

		if r, err := s.store.GetRequest(ctx, m.RequestID); err == nil {
			detail.Request = &model.MatchedRequest{
				ItemNeeded:   r.ItemNeeded,
				Category:     r.Category,
				ReceiverName: receivers.get(ctx, r.ReceiverID),
			}
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("getting request %s: %w", m.RequestID, err)
		}

		out = append(out, detail)
	}
	return out, nil
}

func (s *MatchService) getActive(ctx context.Context, matchID, notActive string) (*model.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, apperror.NotFoundMsg("Match not found.")
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, notFoundAs(err, "Match not found.")
	}
	if m.Status != model.MatchActive {
		return nil, apperror.InvalidState(notActive)
	}
	return m, nil
}

// notFoundAs swaps a repository NotFound for a fixed user-facing message and
// wraps anything else.
func notFoundAs(err error, message string) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFoundMsg(message)
	}
	return fmt.Errorf("service: %w", err)
}

// stateAs does the same for InvalidState.
func stateAs(err error, message string) error {
	if errors.Is(err, apperror.ErrInvalidState) {
		return apperror.InvalidState(message)
	}
	return err
}

func isDomainError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
