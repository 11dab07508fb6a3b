package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-complaints-backend/internal/auth"
	"github.com/tbourn/go-complaints-backend/internal/domain"
)

func TestAuth_RegisterLoginRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()

		sess, err := f.auth.Register(ctx, RegisterInput{Username: "  alice ", Password: "s3cret", Name: "Alice", Email: "alice@example.com"})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if sess.User.Username != "alice" || sess.User.Role != domain.RoleCustomer || sess.Token == "" {
			t.Fatalf("unexpected session: %+v", sess)
		}
		if sess.User.Password == "s3cret" || auth.ComparePassword(sess.User.Password, "s3cret") != nil {
			t.Fatalf("password must be stored as a bcrypt hash")
		}

		login, err := f.auth.Login(ctx, "alice", "s3cret")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		claims, err := f.auth.Tokens.ParseToken(login.Token)
		if err != nil {
			t.Fatalf("ParseToken: %v", err)
		}
		regClaims, _ := f.auth.Tokens.ParseToken(sess.Token)
		if claims.ID != sess.User.ID || regClaims.ID != sess.User.ID || claims.Role != domain.RoleCustomer || claims.Username != "alice" {
			t.Fatalf("tokens should carry the same identity: %+v vs %+v", claims, regClaims)
		}

		u, err := f.auth.Verify(ctx, login.Token)
		if err != nil || u.ID != sess.User.ID {
			t.Fatalf("Verify: %+v, %v", u, err)
		}
	})
}

func TestAuth_RegisterValidationAndDuplicate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()

		for _, in := range []RegisterInput{
			{Password: "p", Name: "n", Email: "e"},
			{Username: "u", Name: "n", Email: "e"},
			{Username: "u", Password: "p", Email: "e"},
			{Username: "u", Password: "p", Name: "   ", Email: "e"},
		} {
			if _, err := f.auth.Register(ctx, in); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation for %+v, got %v", in, err)
			}
		}
		if _, err := f.auth.Register(ctx, RegisterInput{Username: "u", Password: strings.Repeat("x", 80), Name: "n", Email: "e"}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for overlong password, got %v", err)
		}

		f.customer(t, "bob")
		_, err := f.auth.Register(ctx, RegisterInput{Username: "bob", Password: "other", Name: "B2", Email: "b2@x"})
		if !errors.Is(err, ErrDuplicateUsername) {
			t.Fatalf("expected ErrDuplicateUsername, got %v", err)
		}
		// Admin provisioning shares the namespace.
		_, err = f.auth.CreateAdmin(ctx, RegisterInput{Username: "bob", Password: "x", Name: "x", Email: "x"}, "admin-secret")
		if !errors.Is(err, ErrDuplicateUsername) {
			t.Fatalf("expected ErrDuplicateUsername for admin, got %v", err)
		}
	})
}

func TestAuth_LoginFailuresAreUniform(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()
		f.customer(t, "carol")

		if _, err := f.auth.Login(ctx, "", "x"); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		_, errUnknown := f.auth.Login(ctx, "nobody", "pw")
		_, errWrong := f.auth.Login(ctx, "carol", "wrong")
		if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errUnknown, errWrong)
		}
		if errUnknown.Error() != errWrong.Error() {
			t.Fatalf("messages must not reveal which part failed")
		}
	})
}

func TestAuth_CreateAdmin_SecretCheckedFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()

		// Invalid payload with a wrong secret still reports Forbidden.
		if _, err := f.auth.CreateAdmin(ctx, RegisterInput{}, "nope"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if _, err := f.auth.CreateAdmin(ctx, RegisterInput{}, "admin-secret"); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation with the right secret, got %v", err)
		}

		adm := f.admin(t, "root")
		if adm.Role != domain.RoleAdmin {
			t.Fatalf("expected admin role, got %q", adm.Role)
		}
		sess, err := f.auth.Login(ctx, "root", "pw-root")
		if err != nil {
			t.Fatalf("admin login: %v", err)
		}
		claims, _ := f.auth.Tokens.ParseToken(sess.Token)
		if claims.Role != domain.RoleAdmin {
			t.Fatalf("admin token should carry the admin role, got %q", claims.Role)
		}

		f.auth.AdminSecret = ""
		if _, err := f.auth.CreateAdmin(ctx, RegisterInput{Username: "x", Password: "x", Name: "x", Email: "x"}, ""); !errors.Is(err, ErrForbidden) {
			t.Fatalf("an unset server secret must never match, got %v", err)
		}
	})
}

func TestAuth_VerifyFailures(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()

		if _, err := f.auth.Verify(ctx, ""); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
		}
		if _, err := f.auth.Verify(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
		ghost := &domain.User{ID: "ghost", Username: "ghost", Role: domain.RoleCustomer}
		tok, _, err := f.auth.Tokens.GenerateToken(ghost)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if _, err := f.auth.Verify(ctx, tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for vanished user, got %v", err)
		}

		// A stored record whose role is outside the known set never
		// authenticates. The SQL role check may refuse to store it at all.
		rogue := &domain.User{ID: "rogue", Username: "rogue", Password: "x", Name: "R", Email: "r@x", Role: domain.Role("root"), CreatedAt: f.clock}
		if err := b.users.Create(ctx, rogue); err != nil {
			if b.name == "sqlite" {
				return
			}
			t.Fatalf("seed rogue: %v", err)
		}
		tok, _, err = f.auth.Tokens.GenerateToken(rogue)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if _, err := f.auth.Verify(ctx, tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for unknown role, got %v", err)
		}
	})
}

func TestAuth_UpdateProfile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()
		me := f.customer(t, "dave")

		if _, err := f.auth.UpdateProfile(ctx, me.ID, ProfileInput{Name: "", Email: "x"}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if _, err := f.auth.UpdateProfile(ctx, me.ID, ProfileInput{Name: "D", Email: "d@x", NewPassword: "new"}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation without current password, got %v", err)
		}
		if _, err := f.auth.UpdateProfile(ctx, me.ID, ProfileInput{Name: "D", Email: "d@x", CurrentPassword: "bad", NewPassword: "new"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}

		u, err := f.auth.UpdateProfile(ctx, me.ID, ProfileInput{Name: "Dave D.", Email: "dave@new.example"})
		if err != nil || u.Name != "Dave D." || u.Email != "dave@new.example" || u.Username != "dave" {
			t.Fatalf("UpdateProfile: %+v, %v", u, err)
		}
		if _, err := f.auth.Login(ctx, "dave", "pw-dave"); err != nil {
			t.Fatalf("password must be unchanged: %v", err)
		}

		if _, err := f.auth.UpdateProfile(ctx, me.ID, ProfileInput{Name: "Dave", Email: "d@x", CurrentPassword: "pw-dave", NewPassword: "rotated"}); err != nil {
			t.Fatalf("password rotation: %v", err)
		}
		if _, err := f.auth.Login(ctx, "dave", "pw-dave"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("old password must stop working, got %v", err)
		}
		if _, err := f.auth.Login(ctx, "dave", "rotated"); err != nil {
			t.Fatalf("new password must work: %v", err)
		}

		if _, err := f.auth.UpdateProfile(ctx, "missing", ProfileInput{Name: "x", Email: "y"}); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if _, err := f.auth.Profile(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestValidationMessage(t *testing.T) {
	err := validationf("title is required")
	if ValidationMessage(err) != "title is required" {
		t.Fatalf("got %q", ValidationMessage(err))
	}
	if ValidationMessage(ErrForbidden) != "forbidden" {
		t.Fatalf("non-validation errors should pass through")
	}
}
