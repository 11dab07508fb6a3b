package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-complaints-backend/internal/auth"
	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/events"
	"github.com/tbourn/go-complaints-backend/internal/flatfile"
	"github.com/tbourn/go-complaints-backend/internal/repo"
)

// backend bundles the stores of one persistence implementation.
type backend struct {
	name        string
	users       UserRepo
	complaints  ComplaintRepo
	idempotency IdempotencyRepo
}

// forEachBackend runs fn once against an in-memory SQLite database and once
// against a flat-file store in a temp dir.
func forEachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
		fn(t, backend{
			name:        "sqlite",
			users:       repo.UserStore{DB: db},
			complaints:  repo.ComplaintStore{DB: db},
			idempotency: repo.IdempotencyStore{DB: db},
		})
	})
	t.Run("flatfile", func(t *testing.T) {
		s, err := flatfile.Open(t.TempDir())
		if err != nil {
			t.Fatalf("open flatfile: %v", err)
		}
		fn(t, backend{
			name:        "flatfile",
			users:       s.Users(),
			complaints:  s.Complaints(),
			idempotency: s.Idempotency(),
		})
	})
}

// fixture wires the services over one backend with a controllable clock.
type fixture struct {
	b          backend
	auth       *AuthService
	complaints *ComplaintService
	homepage   *HomepageService
	clock      time.Time
	published  *recordingDispatcher
}

func newFixture(t *testing.T, b backend) *fixture {
	t.Helper()
	f := &fixture{b: b, clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), published: &recordingDispatcher{}}
	now := func() time.Time { return f.clock }

	f.auth = NewAuthService(b.users, auth.NewTokenManager("test-secret", time.Hour), bcrypt.MinCost, "admin-secret")
	f.auth.Now = now

	f.complaints = NewComplaintService(b.complaints, b.users)
	f.complaints.Idempotency = b.idempotency
	f.complaints.Events = f.published
	f.complaints.Now = now

	f.homepage = NewHomepageService(b.complaints)
	return f
}

func (f *fixture) tick(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) customer(t *testing.T, username string) Caller {
	t.Helper()
	sess, err := f.auth.Register(context.Background(), RegisterInput{
		Username: username, Password: "pw-" + username, Name: "Name " + username, Email: username + "@example.com",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return CallerOf(sess.User)
}

func (f *fixture) admin(t *testing.T, username string) Caller {
	t.Helper()
	u, err := f.auth.CreateAdmin(context.Background(), RegisterInput{
		Username: username, Password: "pw-" + username, Name: "Admin " + username, Email: username + "@example.com",
	}, "admin-secret")
	if err != nil {
		t.Fatalf("create admin %s: %v", username, err)
	}
	return CallerOf(u)
}

func (f *fixture) complaint(t *testing.T, owner Caller, title string) *domain.Complaint {
	t.Helper()
	c, err := f.complaints.Create(context.Background(), owner, CreateInput{Title: title, Description: "details of " + title, Category: "billing"})
	if err != nil {
		t.Fatalf("create complaint: %v", err)
	}
	return c
}

func strptr(s string) *string { return &s }

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	types []string
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.types = append(d.types, string(e.Type))
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}
