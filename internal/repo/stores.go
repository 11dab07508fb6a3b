package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// UserStore adapts the user free functions to a method set bound to one
// *gorm.DB, so services can depend on an interface instead of this package.
type UserStore struct{ DB *gorm.DB }

// GetAll proxies ListUsers.
func (s UserStore) GetAll(ctx context.Context) ([]domain.User, error) {
	return ListUsers(ctx, s.DB)
}

// GetByID proxies GetUser.
func (s UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return GetUser(ctx, s.DB, id)
}

// GetByUsername proxies GetUserByUsername.
func (s UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return GetUserByUsername(ctx, s.DB, username)
}

// Create proxies CreateUser.
func (s UserStore) Create(ctx context.Context, u *domain.User) error {
	return CreateUser(ctx, s.DB, u)
}

// Update proxies UpdateUser.
func (s UserStore) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	return UpdateUser(ctx, s.DB, id, patch)
}

// ComplaintStore adapts the complaint free functions to a method set.
type ComplaintStore struct{ DB *gorm.DB }

// GetAll proxies ListComplaints.
func (s ComplaintStore) GetAll(ctx context.Context) ([]domain.Complaint, error) {
	return ListComplaints(ctx, s.DB)
}

// GetByID proxies GetComplaint.
func (s ComplaintStore) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	return GetComplaint(ctx, s.DB, id)
}

// GetByUser proxies ListComplaintsByUser.
func (s ComplaintStore) GetByUser(ctx context.Context, userID string) ([]domain.Complaint, error) {
	return ListComplaintsByUser(ctx, s.DB, userID)
}

// Create proxies CreateComplaint.
func (s ComplaintStore) Create(ctx context.Context, c *domain.Complaint) error {
	return CreateComplaint(ctx, s.DB, c)
}

// Update proxies UpdateComplaint.
func (s ComplaintStore) Update(ctx context.Context, id string, patch domain.ComplaintPatch) (*domain.Complaint, error) {
	return UpdateComplaint(ctx, s.DB, id, patch)
}

// IdempotencyStore adapts the idempotency helpers to a method set.
type IdempotencyStore struct{ DB *gorm.DB }

// Get proxies GetIdempotency.
func (s IdempotencyStore) Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, userID, scope, key, now)
}

// Create proxies CreateIdempotency.
func (s IdempotencyStore) Create(ctx context.Context, userID, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	return CreateIdempotency(ctx, s.DB, userID, scope, key, resourceID, status, now, ttl)
}
