// Package repo: repository functions for the Complaint model.
//
// A complaint and its response thread are one row; responses live in a JSON
// column so reads and writes always see the whole aggregate. Updates are
// guarded by the version column: a write whose expected version no longer
// matches fails with ErrStale instead of overwriting a concurrent change.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// ErrStale indicates that the complaint changed since the caller read it.
var ErrStale = errors.New("stale complaint version")

// CreateComplaint inserts c. The caller assigns the ID and timestamps.
func CreateComplaint(ctx context.Context, db *gorm.DB, c *domain.Complaint) error {
	if c.Responses == nil {
		c.Responses = []domain.Response{}
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return db.WithContext(ctx).Create(c).Error
}

// ListComplaints returns every complaint in creation order.
func ListComplaints(ctx context.Context, db *gorm.DB) ([]domain.Complaint, error) {
	out := []domain.Complaint{}
	if err := db.WithContext(ctx).Order("created_at asc, id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		normalizeThread(&out[i])
	}
	return out, nil
}

// ListComplaintsByUser returns the complaints owned by userID in creation order.
func ListComplaintsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Complaint, error) {
	out := []domain.Complaint{}
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		normalizeThread(&out[i])
	}
	return out, nil
}

// GetComplaint fetches a complaint by ID, or ErrNotFound.
func GetComplaint(ctx context.Context, db *gorm.DB, id string) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	normalizeThread(&c)
	return &c, nil
}

// UpdateComplaint merges patch into the stored complaint and bumps its
// version. It returns ErrNotFound when id is absent and ErrStale when
// patch.ExpectedVersion is set and differs from the stored version, or when
// another writer commits between the read and the conditional update.
func UpdateComplaint(ctx context.Context, db *gorm.DB, id string, patch domain.ComplaintPatch) (*domain.Complaint, error) {
	var out *domain.Complaint
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := GetComplaint(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.ExpectedVersion != 0 && c.Version != patch.ExpectedVersion {
			return ErrStale
		}
		prev := c.Version
		patch.Apply(c)

		res := tx.Model(c).
			Where("version = ?", prev).
			Select("Status", "Responses", "Rating", "UpdatedAt", "Version").
			Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStale
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func normalizeThread(c *domain.Complaint) {
	if c.Responses == nil {
		c.Responses = []domain.Response{}
	}
}
