package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListQueries returns every history record owned by userId, newest first.
// Records belonging to other users are never visible: all reads are scoped by
// the owner id.
func ListQueries(ctx context.Context, db *gorm.DB, userId uuid.UUID) ([]QueryRecord, error) {
	var records []QueryRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("creation_time DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("error listing query history: %w", err)
	}
	return records, nil
}

// AppendQuery creates one history record. History is append-only; there is no
// update or delete counterpart.
func AppendQuery(ctx context.Context, db *gorm.DB, userId uuid.UUID, prompt, response string, metadata map[string]string) (*QueryRecord, error) {
	var metadataJSON datatypes.JSON
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("error marshalling query metadata: %w", err)
		}
		metadataJSON = datatypes.JSON(b)
	}

	record := QueryRecord{
		Id:           uuid.New(),
		UserId:       userId,
		Prompt:       prompt,
		Response:     response,
		CreationTime: time.Now().UTC(),
		Metadata:     metadataJSON,
	}

	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("error appending query record: %w", err)
	}
	return &record, nil
}
