package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/querygenie/querygenie/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB) database.User {
	user := database.User{
		Id:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: []byte("x"),
		Confirmed:    true,
		CreationTime: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestListQueriesNewestFirst(t *testing.T) {
	db := createDB(t)
	user := createUser(t, db)

	now := time.Now().UTC()
	for i, prompt := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, db.Create(&database.QueryRecord{
			Id:           uuid.New(),
			UserId:       user.Id,
			Prompt:       prompt,
			Response:     "SELECT 1;",
			CreationTime: now.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	records, err := database.ListQueries(context.Background(), db, user.Id)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "newest", records[0].Prompt)
	assert.Equal(t, "middle", records[1].Prompt)
	assert.Equal(t, "oldest", records[2].Prompt)
}

func TestListQueriesEmpty(t *testing.T) {
	db := createDB(t)
	user := createUser(t, db)

	records, err := database.ListQueries(context.Background(), db, user.Id)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListQueriesScopedToOwner(t *testing.T) {
	db := createDB(t)
	alice := createUser(t, db)
	bob := createUser(t, db)

	_, err := database.AppendQuery(context.Background(), db, alice.Id, "alice prompt", "SELECT 'a';", nil)
	require.NoError(t, err)
	_, err = database.AppendQuery(context.Background(), db, bob.Id, "bob prompt", "SELECT 'b';", nil)
	require.NoError(t, err)

	records, err := database.ListQueries(context.Background(), db, alice.Id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice prompt", records[0].Prompt)

	records, err = database.ListQueries(context.Background(), db, bob.Id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bob prompt", records[0].Prompt)
}

func TestAppendQuery(t *testing.T) {
	db := createDB(t)
	user := createUser(t, db)

	record, err := database.AppendQuery(context.Background(), db, user.Id, "Blog with authors, posts, comments", "CREATE TABLE authors (...);", map[string]string{"model": "gemini-1.5-flash-latest"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.Id)
	assert.Equal(t, user.Id, record.UserId)
	assert.False(t, record.CreationTime.IsZero())

	var stored database.QueryRecord
	require.NoError(t, db.First(&stored, "id = ?", record.Id).Error)
	assert.Equal(t, "Blog with authors, posts, comments", stored.Prompt)
	assert.Equal(t, "CREATE TABLE authors (...);", stored.Response)
	assert.JSONEq(t, `{"model":"gemini-1.5-flash-latest"}`, string(stored.Metadata))
}
