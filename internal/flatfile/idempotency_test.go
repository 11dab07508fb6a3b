package flatfile

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotencyLog_CreateGetExpire(t *testing.T) {
	l := openTestStore(t).Idempotency()
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := l.Create(ctx, "u1", "complaints.create", "k1", "c1", 201, now, time.Hour)
	if err != nil || rec.ID == "" || rec.ResourceID != "c1" {
		t.Fatalf("Create: %+v, %v", rec, err)
	}
	got, err := l.Get(ctx, "u1", "complaints.create", "k1", now)
	if err != nil || got.ResourceID != "c1" {
		t.Fatalf("Get: %+v, %v", got, err)
	}
	if _, err := l.Get(ctx, "u2", "complaints.create", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user must not see the key, got %v", err)
	}
	if _, err := l.Create(ctx, "u1", "complaints.create", "k1", "c2", 201, now, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	later := now.Add(2 * time.Hour)
	if _, err := l.Get(ctx, "u1", "complaints.create", "k1", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record should not be returned, got %v", err)
	}
	if _, err := l.Create(ctx, "u1", "complaints.create", "k1", "c3", 201, later, time.Hour); err != nil {
		t.Fatalf("reuse after expiry: %v", err)
	}
	got, _ = l.Get(ctx, "u1", "complaints.create", "k1", later)
	if got.ResourceID != "c3" {
		t.Fatalf("expected replaced record, got %+v", got)
	}
}
