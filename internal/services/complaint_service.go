// Package services – ComplaintService
//
// This file implements the complaint lifecycle: submission, listing and
// retrieval with role-based visibility, the admin/customer conversation
// thread, status changes and the one-time satisfaction rating.
//
// Every mutation is a read-modify-write that passes the version it read; if
// another writer got there first the store reports a stale version and the
// call fails with ErrStale instead of silently dropping the other update.
// Successful mutations publish a domain event.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/events"
)

// ScopeCreateComplaint namespaces idempotency keys for complaint submission.
const ScopeCreateComplaint = "complaints.create"

// ComplaintService implements the complaint use-cases.
type ComplaintService struct {
	Complaints  ComplaintRepo
	Users       UserRepo
	Idempotency IdempotencyRepo // optional
	Events      events.Dispatcher

	// MaxConsecutiveReplies caps customer replies in a row without an admin
	// response. Values <= 0 default to 3.
	MaxConsecutiveReplies int
	// IdempotencyTTL is how long a replayable create is remembered.
	IdempotencyTTL time.Duration

	// Now is the clock used for timestamps; defaults to time.Now.
	Now func() time.Time
}

// NewComplaintService constructs a ComplaintService with defaults.
func NewComplaintService(complaints ComplaintRepo, users UserRepo) *ComplaintService {
	return &ComplaintService{
		Complaints:            complaints,
		Users:                 users,
		Events:                events.Nop{},
		MaxConsecutiveReplies: 3,
		IdempotencyTTL:        24 * time.Hour,
		Now:                   time.Now,
	}
}

// Caller is the authenticated principal of a request.
type Caller struct {
	ID   string
	Name string
	Role domain.Role
}

// CallerOf builds a Caller from a user record.
func CallerOf(u *domain.User) Caller {
	return Caller{ID: u.ID, Name: u.Name, Role: u.Role}
}

// CreateInput carries a new complaint's content.
type CreateInput struct {
	Title       string
	Description string
	Category    string
}

// Create submits a complaint owned by the caller. The owner's name is
// snapshotted into the record.
func (s *ComplaintService) Create(ctx context.Context, caller Caller, in CreateInput) (*domain.Complaint, error) {
	ctx, span := s.tracer().Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", caller.ID)),
	)
	defer span.End()

	title, desc, category := clean(in.Title), clean(in.Description), clean(in.Category)
	if title == "" || desc == "" || category == "" {
		return nil, validationf("title, description and category are required")
	}
	owner, err := s.Users.GetByID(ctx, caller.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	now := s.now()
	c := &domain.Complaint{
		ID:          uuid.NewString(),
		UserID:      owner.ID,
		UserName:    owner.Name,
		Title:       title,
		Description: desc,
		Category:    category,
		Status:      domain.StatusPending,
		Responses:   []domain.Response{},
		Rating:      0,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Complaints.Create(ctx, c); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("complaint.id", c.ID))

	s.publish(ctx, events.EventComplaintCreated, c.ID, caller, events.ComplaintCreatedPayload{
		Category: c.Category,
		Title:    c.Title,
	})
	return c, nil
}

// CreateIdempotent behaves like Create but remembers the result under key.
// A retry with the same key returns the stored complaint and replayed=true.
// An empty key or a service without an idempotency store falls back to Create.
func (s *ComplaintService) CreateIdempotent(ctx context.Context, caller Caller, in CreateInput, key string) (c *domain.Complaint, replayed bool, err error) {
	if key == "" || s.Idempotency == nil {
		c, err = s.Create(ctx, caller, in)
		return c, false, err
	}

	if rec, gerr := s.Idempotency.Get(ctx, caller.ID, ScopeCreateComplaint, key, s.now()); gerr == nil && rec != nil {
		if prev, perr := s.Complaints.GetByID(ctx, rec.ResourceID); perr == nil {
			return prev, true, nil
		}
	}

	c, err = s.Create(ctx, caller, in)
	if err != nil {
		return nil, false, err
	}
	if _, ierr := s.Idempotency.Create(ctx, caller.ID, ScopeCreateComplaint, key, c.ID, 201, s.now(), s.ttl()); ierr != nil && !isDuplicate(ierr) {
		log.Ctx(ctx).Warn().Err(ierr).Str("complaint_id", c.ID).Msg("idempotency record not stored")
	}
	return c, false, nil
}

// List returns every complaint for an admin and the caller's own complaints
// for a customer, in creation order.
func (s *ComplaintService) List(ctx context.Context, caller Caller) ([]domain.Complaint, error) {
	ctx, span := s.tracer().Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", caller.ID),
			attribute.String("user.role", string(caller.Role)),
		),
	)
	defer span.End()

	switch caller.Role {
	case domain.RoleAdmin:
		return s.Complaints.GetAll(ctx)
	case domain.RoleCustomer:
		return s.Complaints.GetByUser(ctx, caller.ID)
	default:
		return nil, ErrForbidden
	}
}

// Get returns one complaint if the caller owns it or is an admin.
func (s *ComplaintService) Get(ctx context.Context, caller Caller, id string) (*domain.Complaint, error) {
	ctx, span := s.tracer().Start(ctx, "Get",
		trace.WithAttributes(attribute.String("complaint.id", id)),
	)
	defer span.End()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, c) {
		return nil, ErrForbidden
	}
	return c, nil
}

// Respond is the single entry point for adding to a thread: admins respond
// (optionally changing the status), customers reply to their own complaint.
// A customer may not change the status this way.
func (s *ComplaintService) Respond(ctx context.Context, caller Caller, id, message string, status *string) (*domain.Complaint, error) {
	switch caller.Role {
	case domain.RoleAdmin:
		return s.RespondAsAdmin(ctx, caller, id, message, status)
	case domain.RoleCustomer:
		if status != nil && *status != "" {
			return nil, ErrForbidden
		}
		return s.ReplyAsCustomer(ctx, caller, id, message)
	default:
		return nil, ErrForbidden
	}
}

// RespondAsAdmin appends an admin response and, when newStatus is given,
// moves the complaint to that status and records the change on the response.
func (s *ComplaintService) RespondAsAdmin(ctx context.Context, admin Caller, id, message string, newStatus *string) (*domain.Complaint, error) {
	ctx, span := s.tracer().Start(ctx, "RespondAsAdmin",
		trace.WithAttributes(
			attribute.String("complaint.id", id),
			attribute.String("user.id", admin.ID),
		),
	)
	defer span.End()

	message = clean(message)
	if message == "" {
		return nil, validationf("response message is required")
	}
	var target *domain.Status
	if newStatus != nil && *newStatus != "" {
		st, ok := domain.ParseStatus(*newStatus)
		if !ok {
			return nil, validationf("invalid status %q", *newStatus)
		}
		target = &st
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := domain.Response{
		ID:        uuid.NewString(),
		AdminID:   admin.ID,
		AdminName: admin.Name,
		Message:   message,
		CreatedAt: now,
	}
	patch := domain.ComplaintPatch{UpdatedAt: &now, ExpectedVersion: c.Version}
	if target != nil {
		resp.StatusChange = *target
		patch.Status = target
	}
	patch.Responses = appendResponse(c.Responses, resp)

	old := c.Status
	updated, err := s.update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventResponseAdded, id, admin, events.ResponseAddedPayload{
		ResponseID:  resp.ID,
		FromAdmin:   true,
		BodyPreview: preview(message, 80),
	})
	if target != nil && *target != old {
		s.publish(ctx, events.EventStatusChanged, id, admin, events.StatusChangedPayload{OldStatus: old, NewStatus: *target})
	}
	return updated, nil
}

// ReplyAsCustomer appends a customer reply to the caller's own complaint.
// Replies are refused once the complaint is resolved or closed, and after
// MaxConsecutiveReplies customer replies in a row.
func (s *ComplaintService) ReplyAsCustomer(ctx context.Context, caller Caller, id, message string) (*domain.Complaint, error) {
	ctx, span := s.tracer().Start(ctx, "ReplyAsCustomer",
		trace.WithAttributes(
			attribute.String("complaint.id", id),
			attribute.String("user.id", caller.ID),
		),
	)
	defer span.End()

	message = clean(message)
	if message == "" {
		return nil, validationf("response message is required")
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != caller.ID {
		return nil, ErrForbidden
	}
	if !c.Status.AcceptsReplies() {
		return nil, ErrInvalidState
	}
	if c.TrailingCustomerReplies() >= s.replyCap() {
		return nil, ErrReplyLimit
	}

	now := s.now()
	resp := domain.Response{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: now,
	}
	updated, err := s.update(ctx, id, domain.ComplaintPatch{
		Responses:       appendResponse(c.Responses, resp),
		UpdatedAt:       &now,
		ExpectedVersion: c.Version,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventResponseAdded, id, caller, events.ResponseAddedPayload{
		ResponseID:  resp.ID,
		FromAdmin:   false,
		BodyPreview: preview(message, 80),
	})
	return updated, nil
}

// SetStatus moves a complaint to status without adding to the thread.
// Route-level authorization restricts it to admins.
func (s *ComplaintService) SetStatus(ctx context.Context, caller Caller, id, status string) (*domain.Complaint, error) {
	ctx, span := s.tracer().Start(ctx, "SetStatus",
		trace.WithAttributes(
			attribute.String("complaint.id", id),
			attribute.String("status", status),
		),
	)
	defer span.End()

	st, ok := domain.ParseStatus(status)
	if !ok {
		return nil, validationf("invalid status %q", status)
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	old := c.Status
	updated, err := s.update(ctx, id, domain.ComplaintPatch{
		Status:          &st,
		UpdatedAt:       &now,
		ExpectedVersion: c.Version,
	})
	if err != nil {
		return nil, err
	}
	if old != st {
		s.publish(ctx, events.EventStatusChanged, id, caller, events.StatusChangedPayload{OldStatus: old, NewStatus: st})
	}
	return updated, nil
}

// Rate records the owner's satisfaction rating (1..5) on a resolved
// complaint. A complaint can be rated once.
func (s *ComplaintService) Rate(ctx context.Context, caller Caller, id string, rating int) (*domain.Complaint, error) {
	ctx, span := s.tracer().Start(ctx, "Rate",
		trace.WithAttributes(
			attribute.String("complaint.id", id),
			attribute.Int("rating", rating),
		),
	)
	defer span.End()

	if rating < 1 || rating > 5 {
		return nil, validationf("rating must be an integer between 1 and 5")
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != caller.ID {
		return nil, ErrForbidden
	}
	if c.Status != domain.StatusResolved {
		return nil, ErrInvalidState
	}
	if c.Rating != 0 {
		return nil, ErrAlreadyRated
	}

	now := s.now()
	updated, err := s.update(ctx, id, domain.ComplaintPatch{
		Rating:          &rating,
		UpdatedAt:       &now,
		ExpectedVersion: c.Version,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventComplaintRated, id, caller, events.ComplaintRatedPayload{Rating: rating})
	return updated, nil
}

func (s *ComplaintService) load(ctx context.Context, id string) (*domain.Complaint, error) {
	c, err := s.Complaints.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrComplaintNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ComplaintService) update(ctx context.Context, id string, patch domain.ComplaintPatch) (*domain.Complaint, error) {
	c, err := s.Complaints.Update(ctx, id, patch)
	if err != nil {
		switch {
		case isStale(err):
			return nil, ErrStale
		case isNotFound(err):
			return nil, ErrComplaintNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ComplaintService) publish(ctx context.Context, typ events.EventType, complaintID string, actor Caller, payload any) {
	if s.Events == nil {
		return
	}
	_ = s.Events.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        typ,
		ComplaintID: complaintID,
		Actor:       events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp:   s.now(),
		Payload:     payload,
	})
}

func (s *ComplaintService) tracer() trace.Tracer {
	return otel.Tracer("services/ComplaintService")
}

func (s *ComplaintService) replyCap() int {
	if s.MaxConsecutiveReplies <= 0 {
		return 3
	}
	return s.MaxConsecutiveReplies
}

func (s *ComplaintService) ttl() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return s.IdempotencyTTL
}

func (s *ComplaintService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// canView reports whether caller may read c. Unknown roles see nothing.
func canView(caller Caller, c *domain.Complaint) bool {
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleCustomer:
		return c.UserID == caller.ID
	default:
		return false
	}
}

// appendResponse returns a new slice so the caller's copy of the thread is
// never aliased by the patch.
func appendResponse(thread []domain.Response, r domain.Response) []domain.Response {
	out := make([]domain.Response, 0, len(thread)+1)
	out = append(out, thread...)
	return append(out, r)
}
