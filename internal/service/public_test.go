package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// putDonation stores a donation directly so tests control status and age.
func (f *fixture) putDonation(t *testing.T, donorID, item string, cat model.Category, qty int, status model.Status, created time.Time) *model.Donation {
	t.Helper()
	d := &model.Donation{
		DonorID: donorID, ItemName: item, Category: cat, Description: item,
		Quantity: qty, Status: status, CreatedAt: created,
	}
	require.NoError(t, f.store.CreateDonation(context.Background(), d))
	return d
}

func (f *fixture) putRequest(t *testing.T, receiverID, item string, cat model.Category, qty int, urgency model.Urgency, status model.Status, created time.Time) *model.Request {
	t.Helper()
	r := &model.Request{
		ReceiverID: receiverID, ItemNeeded: item, Category: cat, Description: item,
		Quantity: qty, Urgency: urgency, Status: status, CreatedAt: created,
	}
	require.NoError(t, f.store.CreateRequest(context.Background(), r))
	return r
}

func TestPublicListDonations_ApprovedOnlyNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.putDonation(t, f.donor.ID, "Old Coat", model.CategoryClothes, 1, model.StatusApproved, baseTime)
	f.putDonation(t, f.donor.ID, "Pending Coat", model.CategoryClothes, 1, model.StatusPending, baseTime.Add(time.Hour))
	f.putDonation(t, f.donor.ID, "Matched Coat", model.CategoryClothes, 1, model.StatusMatched, baseTime.Add(2*time.Hour))
	f.putDonation(t, f.donor.ID, "New Coat", model.CategoryClothes, 1, model.StatusApproved, baseTime.Add(3*time.Hour))
	f.putDonation(t, "deleted-user", "Orphan Coat", model.CategoryClothes, 1, model.StatusApproved, baseTime.Add(-time.Hour))

	list, err := f.public.ListDonations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "New Coat", list[0].ItemName)
	assert.Equal(t, "Old Coat", list[1].ItemName)
	assert.Equal(t, "Orphan Coat", list[2].ItemName)
	assert.Equal(t, "Donor User", list[0].DonorName)
	assert.Equal(t, AnonymousDonor, list[2].DonorName)

	raw, err := json.Marshal(list[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "donorId")
	assert.NotContains(t, string(raw), f.donor.ID)
}

func TestPublicListRequests_UrgentFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.putRequest(t, f.receiver.ID, "normal-old", model.CategoryFood, 1, model.UrgencyNormal, model.StatusApproved, baseTime)
	f.putRequest(t, f.receiver.ID, "urgent-old", model.CategoryFood, 1, model.UrgencyUrgent, model.StatusApproved, baseTime.Add(time.Hour))
	f.putRequest(t, f.receiver.ID, "normal-new", model.CategoryFood, 1, model.UrgencyNormal, model.StatusApproved, baseTime.Add(2*time.Hour))
	f.putRequest(t, f.receiver.ID, "urgent-new", model.CategoryFood, 1, model.UrgencyUrgent, model.StatusApproved, baseTime.Add(3*time.Hour))
	f.putRequest(t, "gone", "rejected", model.CategoryFood, 1, model.UrgencyUrgent, model.StatusRejected, baseTime.Add(4*time.Hour))

	list, err := f.public.ListRequests(ctx)
	require.NoError(t, err)

	var got []string
	for _, r := range list {
		got = append(got, r.ItemNeeded)
	}
	assert.Equal(t, []string{"urgent-new", "urgent-old", "normal-new", "normal-old"}, got)
	assert.Equal(t, "Receiver User", list[0].ReceiverName)
}

func TestPublicRequestNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.putRequest(t, "deleted-user", "Blankets", model.CategoryClothes, 2, model.UrgencyNormal, model.StatusApproved, baseTime)

	list, err := f.public.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Anonymous", list[0].ReceiverName)

	res, err := f.public.Search(ctx, SearchFilter{Type: SearchRequests})
	require.NoError(t, err)
	require.Len(t, res.Requests, 1)
	assert.Equal(t, "Anonymous", res.Requests[0].ReceiverName)

	// the feed keeps its own wording
	feed, err := f.public.ActivityFeed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, CommunityMember, feed[0].ActorName)
}

func TestPublicSearch_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.public.now = func() time.Time { return baseTime }

	f.putDonation(t, f.donor.ID, "Rice", model.CategoryFood, 50, model.StatusApproved, baseTime)
	f.putDonation(t, f.donor.ID, "Brown Rice", model.CategoryFood, 500, model.StatusApproved, baseTime)
	f.putDonation(t, f.donor.ID, "Rice cooker", model.CategoryElectronics, 1, model.StatusApproved, baseTime)
	f.putDonation(t, f.donor.ID, "Rice", model.CategoryFood, 5, model.StatusPending, baseTime)
	f.putRequest(t, f.receiver.ID, "Rice", model.CategoryFood, 10, model.UrgencyUrgent, model.StatusApproved, baseTime)
	f.putRequest(t, f.receiver.ID, "Rice", model.CategoryFood, 10, model.UrgencyNormal, model.StatusApproved, baseTime)

	res, err := f.public.Search(ctx, SearchFilter{ItemName: "rice", Category: "food", MinQuantity: 1, MaxQuantity: 100})
	require.NoError(t, err)
	require.Len(t, res.Donations, 1, "brown rice is over the quantity limit, the cooker is the wrong category")
	assert.Equal(t, 50, res.Donations[0].Quantity)
	require.Len(t, res.Requests, 2)
	assert.Equal(t, model.UrgencyUrgent, res.Requests[0].Urgency)

	res, err = f.public.Search(ctx, SearchFilter{ItemName: "rice", Urgency: "normal", Type: SearchRequests})
	require.NoError(t, err)
	assert.Empty(t, res.Donations)
	require.Len(t, res.Requests, 1)
	assert.Equal(t, model.UrgencyNormal, res.Requests[0].Urgency)

	res, err = f.public.Search(ctx, SearchFilter{Type: SearchDonations, MaxQuantity: 1000})
	require.NoError(t, err)
	assert.Len(t, res.Donations, 3)
	assert.NotNil(t, res.Requests)
	assert.Empty(t, res.Requests)
}

func TestPublicSearch_Relevance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.public.now = func() time.Time { return baseTime }

	// The partial match is newer but an exact name still outranks it.
	f.putDonation(t, f.donor.ID, "Winter Coat", model.CategoryClothes, 1, model.StatusApproved, baseTime)
	f.putDonation(t, f.donor.ID, "coat", model.CategoryClothes, 1, model.StatusApproved, baseTime.Add(-10*24*time.Hour))

	res, err := f.public.Search(ctx, SearchFilter{ItemName: "Coat"})
	require.NoError(t, err)
	require.Len(t, res.Donations, 2)
	assert.Equal(t, "coat", res.Donations[0].ItemName)
	assert.Equal(t, "Winter Coat", res.Donations[1].ItemName)
}

func TestRelevance(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		term    string
		urgent  bool
		ageDays int
		want    float64
	}{
		{"exact and fresh", "Rice", "rice", false, 0, 170},
		{"contains", "Brown Rice", "rice", false, 0, 70},
		{"urgent partial", "Brown Rice", "rice", true, 5, 95},
		{"old exact", "rice", "rice", false, 40, 150},
		{"no match", "Beans", "rice", false, 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := baseTime.Add(-time.Duration(tt.ageDays) * 24 * time.Hour)
			assert.InDelta(t, tt.want, relevance(tt.item, tt.term, tt.urgent, created, baseTime), 0.001)
		})
	}
}

func TestPublicSearch_InvalidFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, filter := range []SearchFilter{
		{Type: "everything"},
		{Category: "pets"},
		{Urgency: "critical"},
	} {
		t.Run(fmt.Sprintf("%+v", filter), func(t *testing.T) {
			_, err := f.public.Search(ctx, filter)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestPublicActivityFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := range 30 {
		at := baseTime.Add(time.Duration(i) * time.Minute)
		f.putDonation(t, f.donor.ID, fmt.Sprintf("d%02d", i), model.CategoryOther, 1, model.StatusApproved, at)
		f.putRequest(t, f.receiver.ID, fmt.Sprintf("r%02d", i), model.CategoryOther, 1, model.UrgencyNormal, model.StatusMatched, at.Add(30*time.Second))
	}
	f.putDonation(t, f.donor.ID, "pending", model.CategoryOther, 1, model.StatusPending, baseTime.Add(time.Hour))
	orphan := f.putRequest(t, "gone", "orphan", model.CategoryOther, 1, model.UrgencyNormal, model.StatusApproved, baseTime.Add(2*time.Hour))

	feed, err := f.public.ActivityFeed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, feed, DefaultActivityLimit)
	assert.Equal(t, "request-"+orphan.ID, feed[0].ID)
	assert.Equal(t, model.ActivityRequest, feed[0].Type)
	assert.Equal(t, CommunityMember, feed[0].ActorName)
	assert.Equal(t, "r29", feed[1].ItemName)
	assert.Equal(t, "d29", feed[2].ItemName)
	assert.Equal(t, "Donor User", feed[2].ActorName)
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].Timestamp.After(feed[i-1].Timestamp), "feed must be newest first")
	}

	feed, err = f.public.ActivityFeed(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, feed, 5)

	feed, err = f.public.ActivityFeed(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, feed, MaxActivityLimit)
}
