package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
	"github.com/tbourn/go-complaints-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService is the account API consumed by the auth endpoints.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Session, error)
	Login(ctx context.Context, username, password string) (*services.Session, error)
	// CreateAdmin provisions an administrator when adminSecret matches.
	CreateAdmin(ctx context.Context, in services.RegisterInput, adminSecret string) (*domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileInput) (*domain.User, error)
}

// ComplaintService is the complaint lifecycle consumed by the complaint
// endpoints. Authorization by role and ownership happens inside.
type ComplaintService interface {
	List(ctx context.Context, caller services.Caller) ([]domain.Complaint, error)
	Get(ctx context.Context, caller services.Caller, id string) (*domain.Complaint, error)
	// CreateIdempotent returns replayed=true when key already produced a complaint.
	CreateIdempotent(ctx context.Context, caller services.Caller, in services.CreateInput, key string) (*domain.Complaint, bool, error)
	Respond(ctx context.Context, caller services.Caller, id, message string, status *string) (*domain.Complaint, error)
	SetStatus(ctx context.Context, caller services.Caller, id, status string) (*domain.Complaint, error)
	Rate(ctx context.Context, caller services.Caller, id string, rating int) (*domain.Complaint, error)
}

// HomepageService computes the public landing-page payload.
type HomepageService interface {
	Data(ctx context.Context) (*services.HomepageData, error)
}

//
// Handler wiring
//

// Handlers groups every endpoint of the API.
type Handlers struct {
	auth       AuthService
	complaints ComplaintService
	homepage   HomepageService
}

// New constructs Handlers bound to the given services.
func New(auth AuthService, complaints ComplaintService, homepage HomepageService) *Handlers {
	return &Handlers{auth: auth, complaints: complaints, homepage: homepage}
}

// caller returns the principal loaded by middleware.Authenticate. It writes
// a 401 and returns false when the route was mounted without it.
func caller(c *gin.Context) (services.Caller, bool) {
	u, ok := middleware.UserFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized: No token provided")
		return services.Caller{}, false
	}
	return services.CallerOf(u), true
}

//
// Shared DTOs
//

// UserResponse is the public view of an account; the password hash never
// leaves the server.
type UserResponse struct {
	ID        string      `json:"id" example:"5f0c7f0e-8a53-4b43-9a3c-0c8c1a8f0b11"`
	Username  string      `json:"username" example:"alice"`
	Name      string      `json:"name" example:"Alice Doe"`
	Email     string      `json:"email" example:"alice@example.com"`
	Role      domain.Role `json:"role" example:"customer"`
	CreatedAt time.Time   `json:"createdAt"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
