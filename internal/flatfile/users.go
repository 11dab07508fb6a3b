package flatfile

import (
	"context"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// UserDirectory stores users in users.json.
type UserDirectory struct{ s *Store }

// GetAll returns every user in registration order.
func (d *UserDirectory) GetAll(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer d.s.lock(CollectionUsers)()
	return readAll[domain.User](d.s, CollectionUsers)
}

// GetByID returns the user with id, or ErrNotFound.
func (d *UserDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return d.find(ctx, func(u *domain.User) bool { return u.ID == id })
}

// GetByUsername returns the user with the exact username, or ErrNotFound.
func (d *UserDirectory) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.find(ctx, func(u *domain.User) bool { return u.Username == username })
}

func (d *UserDirectory) find(ctx context.Context, match func(*domain.User) bool) (*domain.User, error) {
	all, err := d.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if match(&all[i]) {
			u := all[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// Create appends u. The username check and the append happen under the
// collection lock, so two concurrent registrations cannot both succeed.
func (d *UserDirectory) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer d.s.lock(CollectionUsers)()
	all, err := readAll[domain.User](d.s, CollectionUsers)
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	return writeAll(d.s, CollectionUsers, append(all, *u))
}

// Update merges patch into the stored user and returns the result.
func (d *UserDirectory) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer d.s.lock(CollectionUsers)()
	all, err := readAll[domain.User](d.s, CollectionUsers)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		patch.Apply(&all[i])
		if err := writeAll(d.s, CollectionUsers, all); err != nil {
			return nil, err
		}
		u := all[i]
		return &u, nil
	}
	return nil, ErrNotFound
}
