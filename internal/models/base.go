package models

import (
	"time"

	"finora/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records. Temporary ids from
// optimistic creates are replaced as well.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" || uuid.IsTemp(b.ID) {
		b.ID = uuid.New()
	}
	return nil
}

// GetID returns the record id.
func (b *Base) GetID() string { return b.ID }

// SetID replaces the record id.
func (b *Base) SetID(id string) { b.ID = id }

// Owned marks a record that belongs to exactly one user.
type Owned struct {
	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
}

// GetOwnerID returns the owning user id.
func (o *Owned) GetOwnerID() string { return o.OwnerID }

// SetOwnerID assigns the owning user id.
func (o *Owned) SetOwnerID(id string) { o.OwnerID = id }
