package services

import (
	"context"
	"time"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// UserRepo is the storage contract of the user directory. Both the GORM and
// the flat-file backends satisfy it.
type UserRepo interface {
	GetAll(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create fails with a duplicate error when the username is taken.
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
}

// ComplaintRepo is the storage contract of the complaint repository.
type ComplaintRepo interface {
	// GetAll and GetByUser return complaints in creation order.
	GetAll(ctx context.Context) ([]domain.Complaint, error)
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByUser(ctx context.Context, userID string) ([]domain.Complaint, error)
	Create(ctx context.Context, c *domain.Complaint) error
	// Update fails with a stale error when patch.ExpectedVersion is set and
	// no longer matches.
	Update(ctx context.Context, id string, patch domain.ComplaintPatch) (*domain.Complaint, error)
}

// IdempotencyRepo stores the outcome of retried POSTs.
type IdempotencyRepo interface {
	Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error)
	Create(ctx context.Context, userID, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error)
}
