package flatfile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

func newComplaint(id, userID string) *domain.Complaint {
	now := time.Now().UTC()
	return &domain.Complaint{
		ID: id, UserID: userID, UserName: "Owner", Title: "t-" + id,
		Description: "d", Category: "billing", Status: domain.StatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestComplaintRepository_CreateListGet(t *testing.T) {
	r := openTestStore(t).Complaints()
	ctx := context.Background()

	for _, c := range []*domain.Complaint{newComplaint("c1", "u1"), newComplaint("c2", "u2"), newComplaint("c3", "u1")} {
		if err := r.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if c.Version != 1 || c.Responses == nil {
			t.Fatalf("defaults not applied: %+v", c)
		}
	}

	all, err := r.GetAll(ctx)
	if err != nil || len(all) != 3 || all[0].ID != "c1" || all[2].ID != "c3" {
		t.Fatalf("GetAll: %+v, %v", all, err)
	}
	mine, err := r.GetByUser(ctx, "u1")
	if err != nil || len(mine) != 2 || mine[0].ID != "c1" || mine[1].ID != "c3" {
		t.Fatalf("GetByUser: %+v, %v", mine, err)
	}
	got, err := r.GetByID(ctx, "c2")
	if err != nil || got.UserID != "u2" || got.Responses == nil {
		t.Fatalf("GetByID: %+v, %v", got, err)
	}
	if _, err := r.GetByID(ctx, "zz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestComplaintRepository_UpdateAndStale(t *testing.T) {
	r := openTestStore(t).Complaints()
	ctx := context.Background()
	if err := r.Create(ctx, newComplaint("c1", "u1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	st := domain.StatusInProgress
	thread := []domain.Response{{ID: "r1", Message: "any news?"}}
	got, err := r.Update(ctx, "c1", domain.ComplaintPatch{Status: &st, Responses: thread, ExpectedVersion: 1})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Version != 2 || got.Status != st || len(got.Responses) != 1 || got.Title != "t-c1" {
		t.Fatalf("unexpected merge: %+v", got)
	}

	closed := domain.StatusClosed
	if _, err := r.Update(ctx, "c1", domain.ComplaintPatch{Status: &closed, ExpectedVersion: 1}); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if _, err := r.Update(ctx, "zz", domain.ComplaintPatch{Status: &closed}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	reloaded, _ := r.GetByID(ctx, "c1")
	if reloaded.Status != st || reloaded.Version != 2 {
		t.Fatalf("unexpected persisted state: %+v", reloaded)
	}
}

func TestComplaintRepository_ConcurrentCreatesAllPersist(t *testing.T) {
	r := openTestStore(t).Complaints()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Create(ctx, newComplaint(fmt.Sprintf("c%02d", i), "u1")); err != nil {
				t.Errorf("Create: %v", err)
			}
		}(i)
	}
	wg.Wait()
	all, err := r.GetAll(ctx)
	if err != nil || len(all) != 20 {
		t.Fatalf("expected 20 complaints, got %d (%v)", len(all), err)
	}
}
