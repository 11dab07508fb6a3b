package domain

import "time"

// Idempotency records the result of a previously processed request, keyed by
// (user_id, scope, key). A retry carrying the same key is answered with the
// stored resource instead of repeating the side effect.
type Idempotency struct {
	ID         string    `json:"id"         gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string    `json:"userId"     gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope      string    `json:"scope"      gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key        string    `json:"key"        gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	ResourceID string    `json:"resourceId" gorm:"type:TEXT NOT NULL"`
	Status     int       `json:"status"     gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `json:"createdAt"  gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `json:"expiresAt"  gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
