package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
	"github.com/sakif/givehub/internal/repository/memory"
	"github.com/sakif/givehub/internal/workflow"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRecorder remembers every event it is given.
type fakeRecorder struct {
	mu          sync.Mutex
	transitions []string
	matches     []string
}

func (r *fakeRecorder) RecordTransition(entity, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, entity+":"+from+"->"+to)
}

func (r *fakeRecorder) RecordMatch(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, outcome)
}

// failingStore wraps a Store and makes CreateMatch fail, including on the
// tx view handed to Atomic callbacks.
type failingStore struct {
	repository.Store
	createMatchErr error
}

func (f *failingStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(&failingStore{Store: tx, createMatchErr: f.createMatchErr})
	})
}

func (f *failingStore) CreateMatch(ctx context.Context, m *model.Match) error {
	if f.createMatchErr != nil {
		return f.createMatchErr
	}
	return f.Store.CreateMatch(ctx, m)
}

// fixture wires every service over one memory store with three real users.
type fixture struct {
	store     *memory.Store
	rec       *fakeRecorder
	donations *DonationService
	requests  *RequestService
	matches   *MatchService
	public    *PublicService

	admin, donor, receiver model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New(), nil)
}

// newFixtureWithStore seeds users into base and, if wrap is non-nil, builds
// the services over wrap(base) instead.
func newFixtureWithStore(t *testing.T, base *memory.Store, wrap func(repository.Store) repository.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()

	mkUser := func(name, email string, role model.Role) model.Actor {
		u := &model.User{Name: name, Email: email, Role: role}
		require.NoError(t, base.CreateUser(ctx, u))
		return model.Actor{ID: u.ID, Role: role}
	}

	f := &fixture{
		store:    base,
		rec:      &fakeRecorder{},
		admin:    mkUser("Admin User", "admin@example.com", model.RoleAdmin),
		donor:    mkUser("Donor User", "donor@example.com", model.RoleDonor),
		receiver: mkUser("Receiver User", "receiver@example.com", model.RoleReceiver),
	}

	var store repository.Store = base
	if wrap != nil {
		store = wrap(base)
	}
	names := NewNameResolver(base, logger)
	f.donations = NewDonationService(store, names, f.rec, logger)
	f.requests = NewRequestService(store, names, f.rec, logger)
	f.matches = NewMatchService(store, names, f.rec, logger)
	f.public = NewPublicService(store, names, logger)
	return f
}

func (f *fixture) donation(t *testing.T, item string, category model.Category, qty int) *model.Donation {
	t.Helper()
	d, err := f.donations.Create(context.Background(), f.donor, DonationInput{
		ItemName: item, Category: category, Description: item + " to give away", Quantity: qty,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) approvedDonation(t *testing.T, item string, category model.Category, qty int) *model.Donation {
	t.Helper()
	d := f.donation(t, item, category, qty)
	d, err := f.donations.Decide(context.Background(), f.admin, d.ID, workflow.Approve)
	require.NoError(t, err)
	return d
}

func (f *fixture) request(t *testing.T, item string, category model.Category, qty int, urgency model.Urgency) *model.Request {
	t.Helper()
	r, err := f.requests.Create(context.Background(), f.receiver, RequestInput{
		ItemNeeded: item, Category: category, Description: "we need " + item, Quantity: qty, Urgency: urgency,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) approvedRequest(t *testing.T, item string, category model.Category, qty int, urgency model.Urgency) *model.Request {
	t.Helper()
	r := f.request(t, item, category, qty, urgency)
	r, err := f.requests.Decide(context.Background(), f.admin, r.ID, workflow.Approve)
	require.NoError(t, err)
	return r
}
