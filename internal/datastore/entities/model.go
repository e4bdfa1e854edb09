package entities

import (
	"time"

	"gorm.io/gorm"
)

// Record is implemented by every persisted model.
type Record interface {
	TableName() string
	GetID() uint
	GetVersion() uint
}

// Model is the common base of all records.
// Version starts at 1 and is bumped by every repository update.
type Model struct {
	ID        uint      `gorm:"primaryKey" json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
	Version   uint      `gorm:"not null" json:"version" yaml:"-"`
}

// GetID returns the primary key.
func (m Model) GetID() uint {
	return m.ID
}

// GetVersion returns the optimistic-lock counter.
func (m Model) GetVersion() uint {
	return m.Version
}

// BeforeCreate initializes the version counter.
func (m *Model) BeforeCreate(_ *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
