package flatfile

import (
	"context"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// ComplaintRepository stores complaints, threads included, in complaints.json.
type ComplaintRepository struct{ s *Store }

func (r *ComplaintRepository) load(ctx context.Context) ([]domain.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := readAll[domain.Complaint](r.s, CollectionComplaints)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Responses == nil {
			all[i].Responses = []domain.Response{}
		}
	}
	return all, nil
}

// GetAll returns every complaint in creation order.
func (r *ComplaintRepository) GetAll(ctx context.Context) ([]domain.Complaint, error) {
	defer r.s.lock(CollectionComplaints)()
	return r.load(ctx)
}

// GetByID returns the complaint with id, or ErrNotFound.
func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			c := all[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// GetByUser returns the complaints owned by userID in creation order.
func (r *ComplaintRepository) GetByUser(ctx context.Context, userID string) ([]domain.Complaint, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Complaint, 0, len(all))
	for _, c := range all {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Create appends c.
func (r *ComplaintRepository) Create(ctx context.Context, c *domain.Complaint) error {
	if c.Responses == nil {
		c.Responses = []domain.Response{}
	}
	if c.Version == 0 {
		c.Version = 1
	}
	defer r.s.lock(CollectionComplaints)()
	all, err := r.load(ctx)
	if err != nil {
		return err
	}
	return writeAll(r.s, CollectionComplaints, append(all, *c))
}

// Update merges patch into the stored complaint and bumps its version. It
// fails with ErrStale when patch.ExpectedVersion is set and differs from the
// stored version.
func (r *ComplaintRepository) Update(ctx context.Context, id string, patch domain.ComplaintPatch) (*domain.Complaint, error) {
	defer r.s.lock(CollectionComplaints)()
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if patch.ExpectedVersion != 0 && all[i].Version != patch.ExpectedVersion {
			return nil, ErrStale
		}
		patch.Apply(&all[i])
		if err := writeAll(r.s, CollectionComplaints, all); err != nil {
			return nil, err
		}
		c := all[i]
		return &c, nil
	}
	return nil, ErrNotFound
}
