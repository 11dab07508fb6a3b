package flatfile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// IdempotencyLog stores idempotency records in idempotency.json. Expired
// records are pruned whenever a new one is written.
type IdempotencyLog struct{ s *Store }

// Get returns the live record for (userID, scope, key), or ErrNotFound.
func (l *IdempotencyLog) Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer l.s.lock(CollectionIdempotency)()
	all, err := readAll[domain.Idempotency](l.s, CollectionIdempotency)
	if err != nil {
		return nil, err
	}
	for i := range all {
		r := all[i]
		if r.UserID == userID && r.Scope == scope && r.Key == key && r.ExpiresAt.After(now) {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

// Create stores a new record, returning ErrDuplicate when a live record for
// the same tuple exists.
func (l *IdempotencyLog) Create(ctx context.Context, userID, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer l.s.lock(CollectionIdempotency)()
	all, err := readAll[domain.Idempotency](l.s, CollectionIdempotency)
	if err != nil {
		return nil, err
	}
	live := all[:0]
	for _, r := range all {
		if !r.ExpiresAt.After(now) {
			continue
		}
		if r.UserID == userID && r.Scope == scope && r.Key == key {
			return nil, ErrDuplicate
		}
		live = append(live, r)
	}
	rec := domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := writeAll(l.s, CollectionIdempotency, append(live, rec)); err != nil {
		return nil, err
	}
	return &rec, nil
}
