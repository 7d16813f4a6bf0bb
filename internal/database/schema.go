package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	DisplayName  string
	PasswordHash []byte `gorm:"not null"`

	Confirmed        bool `gorm:"default:false"`
	ConfirmToken     sql.NullString
	CreationTime     time.Time
	ConfirmationTime sql.NullTime

	Sessions []Session     `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Queries  []QueryRecord `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
}

type Session struct {
	Token  string    `gorm:"primaryKey;size:64"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	CreationTime time.Time
	ExpiryTime   time.Time `gorm:"index;not null"`
}

// QueryRecord is append-only: rows are created on successful generation and
// never updated or deleted.
type QueryRecord struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	Prompt   string `gorm:"not null"`
	Response string `gorm:"not null"`

	CreationTime time.Time `gorm:"index"`

	// Metadata holds generation details (model name, finish reason).
	Metadata datatypes.JSON `gorm:"type:jsonb"`
}
