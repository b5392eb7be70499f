package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
)

func newDonation(t *testing.T, s *Store, status model.Status) *model.Donation {
	t.Helper()
	d := &model.Donation{DonorID: "donor-1", ItemName: "Rice", Category: model.CategoryFood, Quantity: 1, Status: status}
	require.NoError(t, s.CreateDonation(context.Background(), d))
	return d
}

func TestDonationLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	d := newDonation(t, s, model.StatusPending)
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())

	d.ItemName = "Brown Rice"
	d.Status = model.StatusApproved
	require.NoError(t, s.UpdateDonation(ctx, d))

	got, err := s.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brown Rice", got.ItemName)
	assert.Equal(t, model.StatusPending, got.Status, "UpdateDonation must not change status")

	require.NoError(t, s.DeleteDonation(ctx, d.ID))
	_, err = s.GetDonation(ctx, d.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDonation(t, s, model.StatusPending)

	got, err := s.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	got.Status = model.StatusMatched

	again, err := s.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, again.Status)
}

func TestListDonations_OrderAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newDonation(t, s, model.StatusPending)
	b := newDonation(t, s, model.StatusApproved)

	all, err := s.ListDonations(ctx, repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	approved, err := s.ListDonations(ctx, repository.ListFilter{Statuses: []model.Status{model.StatusApproved}})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, b.ID, approved[0].ID)

	empty, err := New().ListDonations(ctx, repository.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestTransition_CompareAndSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDonation(t, s, model.StatusPending)

	_, err := s.TransitionDonation(ctx, d.ID, model.StatusPending, model.StatusApproved)
	require.NoError(t, err)

	_, err = s.TransitionDonation(ctx, d.ID, model.StatusPending, model.StatusRejected)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = s.TransitionDonation(ctx, "ghost", model.StatusPending, model.StatusRejected)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTransition_ConcurrentOnlyOneWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDonation(t, s, model.StatusPending)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.TransitionDonation(ctx, d.ID, model.StatusPending, model.StatusApproved); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestAtomic_RollsBackEverything(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDonation(t, s, model.StatusApproved)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.TransitionDonation(ctx, d.ID, model.StatusApproved, model.StatusMatched); err != nil {
			return err
		}
		if err := tx.CreateMatch(ctx, &model.Match{DonationID: d.ID, RequestID: "r1", Status: model.MatchActive}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	matches, err := s.ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestAtomic_NestedAndCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDonation(t, s, model.StatusPending)

	err := s.Atomic(ctx, func(tx repository.Store) error {
		return tx.Atomic(ctx, func(inner repository.Store) error {
			_, err := inner.TransitionDonation(ctx, d.ID, model.StatusPending, model.StatusApproved)
			return err
		})
	})
	require.NoError(t, err)

	got, err := s.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestCreateMatch_OneActivePerSide(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &model.Match{DonationID: "d1", RequestID: "r1", Status: model.MatchActive}
	require.NoError(t, s.CreateMatch(ctx, first))

	err := s.CreateMatch(ctx, &model.Match{DonationID: "d1", RequestID: "r2", Status: model.MatchActive})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	err = s.CreateMatch(ctx, &model.Match{DonationID: "d2", RequestID: "r1", Status: model.MatchActive})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = s.TransitionMatch(ctx, first.ID, model.MatchActive, model.MatchCancelled)
	require.NoError(t, err)
	assert.NoError(t, s.CreateMatch(ctx, &model.Match{DonationID: "d1", RequestID: "r2", Status: model.MatchActive}))
}

func TestListActiveMatches(t *testing.T) {
	s := New()
	ctx := context.Background()

	old := &model.Match{DonationID: "d1", RequestID: "r1", Status: model.MatchActive}
	require.NoError(t, s.CreateMatch(ctx, old))
	_, err := s.TransitionMatch(ctx, old.ID, model.MatchActive, model.MatchCancelled)
	require.NoError(t, err)

	byDonation := &model.Match{DonationID: "d1", RequestID: "r2", Status: model.MatchActive}
	require.NoError(t, s.CreateMatch(ctx, byDonation))
	byRequest := &model.Match{DonationID: "d3", RequestID: "r3", Status: model.MatchActive}
	require.NoError(t, s.CreateMatch(ctx, byRequest))
	require.NoError(t, s.CreateMatch(ctx, &model.Match{DonationID: "d9", RequestID: "r9", Status: model.MatchActive}))

	got, err := s.ListActiveMatches(ctx, "d1", "r3")
	require.NoError(t, err)
	require.Len(t, got, 2, "the cancelled match and the unrelated one are left out")
	assert.Equal(t, byDonation.ID, got[0].ID)
	assert.Equal(t, byRequest.ID, got[1].ID)

	got, err = s.ListActiveMatches(ctx, "none", "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &model.User{Name: "Donor", Email: " Donor@Example.com", Role: model.RoleDonor}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, "donor@example.com", u.Email)

	err := s.CreateUser(ctx, &model.User{Name: "Other", Email: "DONOR@example.com", Role: model.RoleReceiver})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	got, err := s.GetUserByEmail(ctx, "donor@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUserByGitHubID(ctx, 0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, s.LinkGitHub(ctx, u.ID, 99))
	got, err = s.GetUserByGitHubID(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	other := &model.User{Name: "Other", Email: "other@example.com", Role: model.RoleDonor}
	require.NoError(t, s.CreateUser(ctx, other))
	assert.ErrorIs(t, s.LinkGitHub(ctx, other.ID, 99), apperror.ErrConflict)
}
