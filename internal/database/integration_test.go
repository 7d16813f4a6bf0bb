//go:build integration
// +build integration

// The build tag 'integration' separates tests that need Docker from unit
// tests. Run them with: go test -tags=integration ./...

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/querygenie/querygenie/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	dbName, dbUser, dbPassword := "test_db", "test_user", "test_password"

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	t.Cleanup(func() {
		err := postgresContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate PostgreSQL container")
	})

	connStr, err := postgresContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get PostgreSQL connection string")

	return connStr
}

func createPostgresDB(t *testing.T) *gorm.DB {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}

	db, err := database.NewDatabase(setupPostgresContainer(t, context.Background()))
	require.NoError(t, err)
	return db
}

func TestPostgresMigrationsAndHistory(t *testing.T) {
	db := createPostgresDB(t)
	ctx := context.Background()

	user := database.User{
		Id:           uuid.New(),
		Email:        "pg@example.com",
		PasswordHash: []byte("hash"),
		Confirmed:    true,
		CreationTime: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&user).Error)

	record, err := database.AppendQuery(ctx, db, user.Id, "Blog schema", "CREATE TABLE posts ();", map[string]string{"model": "m"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.Id)

	records, err := database.ListQueries(ctx, db, user.Id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Blog schema", records[0].Prompt)
	assert.JSONEq(t, `{"model": "m"}`, string(records[0].Metadata))
}

func TestPostgresDeletingUserCascadesSessionsAndQueries(t *testing.T) {
	db := createPostgresDB(t)
	ctx := context.Background()

	user := database.User{
		Id:           uuid.New(),
		Email:        "cascade@example.com",
		PasswordHash: []byte("hash"),
		Confirmed:    true,
		CreationTime: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&user).Error)

	session := database.Session{
		Token:        "token-for-cascade-test",
		UserId:       user.Id,
		CreationTime: time.Now().UTC(),
		ExpiryTime:   time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, db.Create(&session).Error)

	_, err := database.AppendQuery(ctx, db, user.Id, "prompt", "SELECT 1;", nil)
	require.NoError(t, err)

	require.NoError(t, db.Delete(&user).Error)

	var sessions, queries int64
	require.NoError(t, db.Model(&database.Session{}).Where("user_id = ?", user.Id).Count(&sessions).Error)
	require.NoError(t, db.Model(&database.QueryRecord{}).Where("user_id = ?", user.Id).Count(&queries).Error)
	assert.EqualValues(t, 0, sessions)
	assert.EqualValues(t, 0, queries)
}
