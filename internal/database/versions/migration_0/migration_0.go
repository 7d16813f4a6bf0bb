package migration_0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Copies of the schema structs as they existed at this migration. The live
// schema in the database package may drift; these must stay frozen.

type User struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	DisplayName  string
	PasswordHash []byte `gorm:"not null"`

	Confirmed        bool `gorm:"default:false"`
	ConfirmToken     sql.NullString
	CreationTime     time.Time
	ConfirmationTime sql.NullTime
}

type Session struct {
	Token  string    `gorm:"primaryKey;size:64"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	CreationTime time.Time
	ExpiryTime   time.Time `gorm:"index;not null"`
}

type QueryRecord struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	Prompt   string `gorm:"not null"`
	Response string `gorm:"not null"`

	CreationTime time.Time `gorm:"index"`

	Metadata datatypes.JSON `gorm:"type:jsonb"`
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Session{}, &QueryRecord{}); err != nil {
		return fmt.Errorf("migration 0 failed: %w", err)
	}
	return nil
}
