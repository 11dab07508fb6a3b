// Auth HTTP handlers.
//
//   - POST /auth/register      (public)
//   - POST /auth/login         (public)
//   - POST /auth/admin/create  (public, gated by the admin secret)
//   - GET  /auth/profile
//   - PUT  /auth/profile
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/services"
)

// RegisterRequest is the JSON payload for registration.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"s3cret-pass"`
	Name     string `json:"name" example:"Alice Doe"`
	Email    string `json:"email" example:"alice@example.com"`
}

// LoginRequest is the JSON payload for login.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"s3cret-pass"`
}

// CreateAdminRequest is the JSON payload for provisioning an administrator.
type CreateAdminRequest struct {
	RegisterRequest
	AdminSecret string `json:"adminSecret" example:"admin_setup_secret"`
}

// UpdateProfileRequest is the JSON payload for a profile update. Both
// password fields are needed to rotate the password.
type UpdateProfileRequest struct {
	Name            string `json:"name" example:"Alice Doe"`
	Email           string `json:"email" example:"alice@example.com"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
}

// AuthResponse is returned on register and login.
type AuthResponse struct {
	Message string       `json:"message" example:"Login successful"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// ProfileResponse wraps the caller's account.
type ProfileResponse struct {
	User UserResponse `json:"user"`
}

// UpdateProfileResponse acknowledges a profile update.
type UpdateProfileResponse struct {
	Message string       `json:"message" example:"Profile updated successfully"`
	User    UserResponse `json:"user"`
}

func (r RegisterRequest) input() services.RegisterInput {
	return services.RegisterInput{Username: r.Username, Password: r.Password, Name: r.Name, Email: r.Email}
}

// Register godoc
// @ID          register
// @Summary     Register a customer account
// @Description Creates a customer and returns a session token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account"
// @Success     201   {object}  handlers.AuthResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     409   {object}  handlers.ErrorResponse  "Username already exists"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sess, err := h.auth.Register(c.Request.Context(), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, AuthResponse{
		Message: "User registered successfully",
		User:    toUserResponse(sess.User),
		Token:   sess.Token,
	})
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Exchanges username and password for a session token. Unknown users and wrong passwords get the same answer.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.AuthResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AuthResponse{
		Message: "Login successful",
		User:    toUserResponse(sess.User),
		Token:   sess.Token,
	})
}

// CreateAdmin godoc
// @ID          createAdmin
// @Summary     Provision an administrator
// @Description Creates an admin account when adminSecret matches the server secret. No token is issued.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateAdminRequest  true  "Admin account and setup secret"
// @Success     201   {object}  handlers.MessageResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     403   {object}  handlers.ErrorResponse  "Invalid admin secret"
// @Failure     409   {object}  handlers.ErrorResponse  "Username already exists"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/admin/create [post]
func (h *Handlers) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if _, err := h.auth.CreateAdmin(c.Request.Context(), req.input(), req.AdminSecret); err != nil {
		failErrMsg(c, err, services.ErrForbidden, "Invalid admin secret")
		return
	}
	ok(c, http.StatusCreated, MessageResponse{Message: "Admin user created successfully"})
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Current account
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ProfileResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	u, err := h.auth.Profile(c.Request.Context(), who.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ProfileResponse{User: toUserResponse(u)})
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the current account
// @Description Changes name and email; rotates the password when currentPassword and newPassword are given.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.UpdateProfileRequest  true  "Profile"
// @Success     200   {object}  handlers.UpdateProfileResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized or wrong current password"
// @Failure     404   {object}  handlers.ErrorResponse  "User not found"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/profile [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.auth.UpdateProfile(c.Request.Context(), who.ID, services.ProfileInput{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		failErrMsg(c, err, services.ErrInvalidCredentials, "Current password is incorrect")
		return
	}
	ok(c, http.StatusOK, UpdateProfileResponse{Message: "Profile updated successfully", User: toUserResponse(u)})
}
