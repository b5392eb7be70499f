// Package repository declares the storage contracts the service layer uses.
//
// Implementations live in subpackages (sqlite for the server, memory for
// tests). The service layer only ever sees these interfaces.
package repository

import (
	"context"

	"github.com/sakif/givehub/internal/model"
)

// ListFilter narrows a full listing. A nil/empty Statuses slice means "any status".
// Results are always in insertion order.
type ListFilter struct {
	Statuses []model.Status
}

// Includes reports whether s passes the filter.
func (f ListFilter) Includes(s model.Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, want := range f.Statuses {
		if s == want {
			return true
		}
	}
	return false
}

// DonationRepository stores donations.
//
// CreateDonation assigns ID and timestamps (a non-zero CreatedAt is kept, so
// seed data can be back-dated). UpdateDonation persists the editable fields
// and bumps UpdatedAt; it does not touch Status. Status only changes through
// TransitionDonation, which is a compare-and-set: it fails with
// apperror.ErrInvalidState if the current status is not `from`.
type DonationRepository interface {
	CreateDonation(ctx context.Context, d *model.Donation) error
	GetDonation(ctx context.Context, id string) (*model.Donation, error)
	ListDonations(ctx context.Context, filter ListFilter) ([]model.Donation, error)
	ListDonationsByDonor(ctx context.Context, donorID string) ([]model.Donation, error)
	UpdateDonation(ctx context.Context, d *model.Donation) error
	DeleteDonation(ctx context.Context, id string) error
	TransitionDonation(ctx context.Context, id string, from, to model.Status) (*model.Donation, error)
}

// RequestRepository stores requests. Same contract as DonationRepository.
type RequestRepository interface {
	CreateRequest(ctx context.Context, r *model.Request) error
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListRequests(ctx context.Context, filter ListFilter) ([]model.Request, error)
	ListRequestsByReceiver(ctx context.Context, receiverID string) ([]model.Request, error)
	UpdateRequest(ctx context.Context, r *model.Request) error
	DeleteRequest(ctx context.Context, id string) error
	TransitionRequest(ctx context.Context, id string, from, to model.Status) (*model.Request, error)
}

// MatchRepository stores matches. Matches are never deleted.
type MatchRepository interface {
	CreateMatch(ctx context.Context, m *model.Match) error
	GetMatch(ctx context.Context, id string) (*model.Match, error)
	ListMatches(ctx context.Context) ([]model.Match, error)
	// ListActiveMatches returns the active matches that involve donationID
	// or requestID, oldest first.
	ListActiveMatches(ctx context.Context, donationID, requestID string) ([]model.Match, error)
	TransitionMatch(ctx context.Context, id string, from, to model.MatchStatus) (*model.Match, error)
}

// UserRepository stores accounts. Emails are compared case-insensitively;
// CreateUser fails with apperror.ErrConflict on a duplicate email.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	LinkGitHub(ctx context.Context, userID string, githubID int64) error
}

// Store is the whole persistence collaborator.
//
// ATOMIC:
// Atomic runs fn with a Store whose writes all commit together or not at
// all. If fn returns an error every write made through tx is rolled back and
// the error is returned unchanged. Readers never observe a half-applied
// Atomic block. Calling Atomic on the tx inside fn just runs the nested fn
// in the same transaction.
type Store interface {
	DonationRepository
	RequestRepository
	MatchRepository
	UserRepository

	Atomic(ctx context.Context, fn func(tx Store) error) error
}
