package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
)

func TestRequestCRUDLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// CREATE
	r := createTestRequest(t, db, "receiver-1", "Blankets", model.StatusPending)
	if r.ID == "" {
		t.Fatal("CreateRequest() did not set ID")
	}

	// READ
	found, err := db.GetRequest(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if found.ItemNeeded != "Blankets" || found.Urgency != model.UrgencyNormal {
		t.Errorf("GetRequest() = %+v", found)
	}

	// UPDATE
	r.Urgency = model.UrgencyUrgent
	r.Quantity = 12
	if err := db.UpdateRequest(ctx, r); err != nil {
		t.Fatalf("UpdateRequest() error = %v", err)
	}
	found, _ = db.GetRequest(ctx, r.ID)
	if found.Urgency != model.UrgencyUrgent || found.Quantity != 12 {
		t.Errorf("update not persisted: %+v", found)
	}

	// LIST
	mine, err := db.ListRequestsByReceiver(ctx, "receiver-1")
	if err != nil {
		t.Fatalf("ListRequestsByReceiver() error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("len(mine) = %d, want 1", len(mine))
	}

	// DELETE
	if err := db.DeleteRequest(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRequest() error = %v", err)
	}
	if _, err := db.GetRequest(ctx, r.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetRequest() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCreateRequest_InvalidUrgencyRejected(t *testing.T) {
	db := newTestDB(t)

	r := &model.Request{
		ReceiverID: "receiver-1",
		ItemNeeded: "Water",
		Category:   model.CategoryFood,
		Quantity:   1,
		Urgency:    model.Urgency("critical"),
		Status:     model.StatusPending,
	}
	if err := db.CreateRequest(context.Background(), r); err == nil {
		t.Fatal("CreateRequest() should fail the urgency CHECK constraint")
	}
}

func TestListRequests_Filter(t *testing.T) {
	db := newTestDB(t)
	createTestRequest(t, db, "receiver-1", "A", model.StatusPending)
	b := createTestRequest(t, db, "receiver-1", "B", model.StatusApproved)

	got, err := db.ListRequests(context.Background(), repository.ListFilter{Statuses: []model.Status{model.StatusApproved}})
	if err != nil {
		t.Fatalf("ListRequests() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("ListRequests(approved) = %+v, want [B]", got)
	}
}

func TestTransitionRequest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := createTestRequest(t, db, "receiver-1", "A", model.StatusApproved)

	got, err := db.TransitionRequest(ctx, r.ID, model.StatusApproved, model.StatusMatched)
	if err != nil {
		t.Fatalf("TransitionRequest() error = %v", err)
	}
	if got.Status != model.StatusMatched {
		t.Errorf("Status = %s, want matched", got.Status)
	}

	_, err = db.TransitionRequest(ctx, r.ID, model.StatusApproved, model.StatusMatched)
	if !errors.Is(err, apperror.ErrInvalidState) {
		t.Errorf("second TransitionRequest() error = %v, want ErrInvalidState", err)
	}
}
