package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/givehub/internal/model"
)

func TestCanTransition(t *testing.T) {
	statuses := []model.Status{
		model.StatusPending, model.StatusApproved, model.StatusMatched, model.StatusRejected,
	}
	allowed := map[[2]model.Status]bool{
		{model.StatusPending, model.StatusApproved}: true,
		{model.StatusPending, model.StatusRejected}: true,
		{model.StatusApproved, model.StatusMatched}: true,
		{model.StatusMatched, model.StatusApproved}: true,
	}

	// Every pair not listed above must be refused.
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]model.Status{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestRejectedIsFrozen(t *testing.T) {
	assert.False(t, CanOwnerModify(model.StatusRejected))
	assert.False(t, CanDecide(model.StatusRejected))
	assert.False(t, CanMatch(model.StatusRejected))
	for _, to := range model.Statuses {
		assert.False(t, CanTransition(model.StatusRejected, to), "rejected -> %s", to)
	}
}

func TestCanDecide(t *testing.T) {
	for _, s := range model.Statuses {
		assert.Equal(t, s == model.StatusPending, CanDecide(s), string(s))
	}
}

func TestCanMatch(t *testing.T) {
	for _, s := range model.Statuses {
		assert.Equal(t, s == model.StatusApproved, CanMatch(s), string(s))
	}
}

func TestCanOwnerModify(t *testing.T) {
	assert.True(t, CanOwnerModify(model.StatusPending))
	assert.False(t, CanOwnerModify(model.StatusApproved))
	assert.False(t, CanOwnerModify(model.StatusMatched))
}

func TestDecision(t *testing.T) {
	assert.True(t, Approve.Valid())
	assert.True(t, Reject.Valid())
	assert.False(t, Decision("maybe").Valid())

	assert.Equal(t, model.StatusApproved, Approve.Target())
	assert.Equal(t, model.StatusRejected, Reject.Target())
	assert.Equal(t, "rejected", Reject.PastTense())
}

func TestCanTransitionMatch(t *testing.T) {
	assert.True(t, CanTransitionMatch(model.MatchActive, model.MatchCompleted))
	assert.True(t, CanTransitionMatch(model.MatchActive, model.MatchCancelled))
	assert.False(t, CanTransitionMatch(model.MatchCompleted, model.MatchCancelled))
	assert.False(t, CanTransitionMatch(model.MatchCancelled, model.MatchActive))
	assert.False(t, CanTransitionMatch(model.MatchActive, model.MatchActive))
}

func TestVisibility(t *testing.T) {
	assert.True(t, IsPublic(model.StatusApproved))
	assert.False(t, IsPublic(model.StatusMatched))
	assert.False(t, IsPublic(model.StatusPending))

	assert.True(t, InActivityFeed(model.StatusMatched))
	assert.False(t, InActivityFeed(model.StatusRejected))
}

func TestStatusesWhere(t *testing.T) {
	assert.Equal(t, []model.Status{model.StatusApproved}, StatusesWhere(IsPublic))
	assert.Equal(t, []model.Status{model.StatusApproved, model.StatusMatched}, StatusesWhere(InActivityFeed))
	assert.Empty(t, StatusesWhere(func(model.Status) bool { return false }))
}
