// Package domain defines the persistence models for users, complaints and
// their conversation threads. The same types are mapped with GORM for the
// relational store and serialized as whole JSON records by the flat-file store.
package domain

import "time"

// Role is the access class of a user. The set is closed: customer or admin.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}

// Status is the handling stage of a complaint. Any status may move to any
// other; no ordering is enforced.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every allowed status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusClosed}

// ParseStatus returns the Status named by s, or false when s is not allowed.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// AcceptsReplies reports whether a customer may still add to the thread.
func (s Status) AcceptsReplies() bool {
	return s != StatusResolved && s != StatusClosed
}

// User is an account in the directory. Username is unique and immutable;
// Password always holds a bcrypt hash.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username: login name, unique across the directory.
//   - Password: bcrypt hash; stripped before the record leaves the API.
//   - Name / Email: profile fields, editable by the owner.
//   - Role: customer or admin.
//   - CreatedAt: set once at registration.
type User struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Username  string    `json:"username"  gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	Password  string    `json:"password"  gorm:"type:varchar(100);not null"`
	Name      string    `json:"name"      gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"     gorm:"type:varchar(255);not null"`
	Role      Role      `json:"role"      gorm:"type:varchar(16);not null;check:role IN ('customer','admin')"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserPatch carries the mutable user fields. Nil fields are left untouched.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
}

// Apply merges the non-nil fields of p into u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
}

// Response is a single message in a complaint thread. A response is
// admin-authored iff AdminName is set.
type Response struct {
	ID           string    `json:"id"`
	AdminID      string    `json:"adminId,omitempty"`
	AdminName    string    `json:"adminName,omitempty"`
	Message      string    `json:"message"`
	StatusChange Status    `json:"statusChange,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FromAdmin reports whether the response was written by an administrator.
func (r Response) FromAdmin() bool { return r.AdminName != "" }

// Complaint is a customer ticket with its append-only conversation thread.
// Responses are stored inline (a JSON column in SQL, a nested array on disk)
// so a complaint is always read and written as one record.
//
// Version is bumped on every update and lets writers detect that someone else
// modified the record between their read and their write.
type Complaint struct {
	ID          string     `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string     `json:"userId"      gorm:"type:char(36);not null;index:idx_complaints_user"`
	UserName    string     `json:"userName"    gorm:"type:varchar(255);not null"`
	Title       string     `json:"title"       gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text;not null"`
	Category    string     `json:"category"    gorm:"type:varchar(128);not null;index"`
	Status      Status     `json:"status"      gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','in-progress','resolved','closed')"`
	Responses   []Response `json:"responses"   gorm:"type:text;serializer:json"`
	Rating      int        `json:"rating"      gorm:"not null;default:0;check:rating BETWEEN 0 AND 5"`
	Version     int        `json:"version"     gorm:"not null;default:1"`
	CreatedAt   time.Time  `json:"createdAt"   gorm:"autoCreateTime:false;index:idx_complaints_user,priority:2"`
	UpdatedAt   time.Time  `json:"updatedAt"   gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for Complaint.
func (Complaint) TableName() string { return "complaints" }

// TrailingCustomerReplies counts the customer-authored responses at the end
// of the thread, stopping at the most recent admin response.
func (c *Complaint) TrailingCustomerReplies() int {
	n := 0
	for i := len(c.Responses) - 1; i >= 0; i-- {
		if c.Responses[i].FromAdmin() {
			break
		}
		n++
	}
	return n
}

// ComplaintPatch carries the mutable complaint fields. Nil fields are left
// untouched. A non-zero ExpectedVersion makes the update conditional on the
// stored version.
type ComplaintPatch struct {
	Status          *Status
	Responses       []Response
	Rating          *int
	UpdatedAt       *time.Time
	ExpectedVersion int
}

// Apply merges the non-nil fields of p into c and bumps the version.
func (p ComplaintPatch) Apply(c *Complaint) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Responses != nil {
		c.Responses = p.Responses
	}
	if p.Rating != nil {
		c.Rating = *p.Rating
	}
	if p.UpdatedAt != nil {
		c.UpdatedAt = *p.UpdatedAt
	}
	c.Version++
}
