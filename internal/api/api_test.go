package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	backend "github.com/querygenie/querygenie/internal/api"
	"github.com/querygenie/querygenie/internal/auth"
	"github.com/querygenie/querygenie/internal/database"
	"github.com/querygenie/querygenie/internal/gateway"
	"github.com/querygenie/querygenie/internal/generation"
	"github.com/querygenie/querygenie/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	result gateway.Result
	err    error
	calls  int
}

func (f *fakeGenerator) GenerateSQL(ctx context.Context, description string) (gateway.Result, error) {
	f.calls++
	if f.err != nil {
		return gateway.Result{}, f.err
	}
	return f.result, nil
}

func createDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

func createRouter(t *testing.T, db *gorm.DB, generator gateway.SQLGenerator) chi.Router {
	authService := auth.NewService(db, time.Hour, "/auth")
	flow := generation.NewFlow(db, generator)
	service := backend.NewBackendService(db, authService, flow)

	router := chi.NewRouter()
	router.Use(authService.Authenticator)
	service.AddRoutes(router)
	return router
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// signIn walks a user through signup, confirmation, and signin, returning a
// usable session token.
func signIn(t *testing.T, router chi.Router, db *gorm.DB, email string) string {
	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", api.SignUpRequest{Email: email, Password: "hunter22", DisplayName: "Test"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user database.User
	require.NoError(t, db.First(&user, "email = ?", email).Error)

	rec = doJSON(t, router, http.MethodGet, "/auth/confirm?token="+user.ConfirmToken.String, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/auth/signin", "", api.SignInRequest{Email: email, Password: "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.SignInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSignInRequiresConfirmation(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, &fakeGenerator{})

	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", api.SignUpRequest{Email: "a@b.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/signin", "", api.SignInRequest{Email: "a@b.com", Password: "pw"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignInWrongPassword(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, &fakeGenerator{})
	signIn(t, router, db, "a@b.com")

	rec := doJSON(t, router, http.MethodPost, "/auth/signin", "", api.SignInRequest{Email: "a@b.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, &fakeGenerator{})
	token := signIn(t, router, db, "a@b.com")

	rec := doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me api.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "a@b.com", me.Email)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignOut(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, &fakeGenerator{})
	token := signIn(t, router, db, "a@b.com")

	rec := doJSON(t, router, http.MethodPost, "/auth/signout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateRequiresSession(t *testing.T) {
	db := createDB(t)
	generator := &fakeGenerator{result: gateway.Result{SQL: "SELECT 1;"}}
	router := createRouter(t, db, generator)

	rec := doJSON(t, router, http.MethodPost, "/queries", "", api.GenerateRequest{Prompt: "Blog"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, generator.calls, "gateway must not be invoked without a session")
}

func TestGenerateAndListHistory(t *testing.T) {
	db := createDB(t)
	generator := &fakeGenerator{result: gateway.Result{SQL: "CREATE TABLE authors (...);", Model: "m", FinishReason: "STOP"}}
	router := createRouter(t, db, generator)
	token := signIn(t, router, db, "a@b.com")

	rec := doJSON(t, router, http.MethodPost, "/queries", token, api.GenerateRequest{Prompt: "Blog with authors, posts, comments"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var genResp api.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &genResp))
	assert.Equal(t, "CREATE TABLE authors (...);", genResp.GeneratedSql)
	assert.Empty(t, genResp.Notice)

	rec = doJSON(t, router, http.MethodGet, "/queries", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp api.ListQueriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Queries, 1)
	assert.Equal(t, "Blog with authors, posts, comments", listResp.Queries[0].Prompt)
	assert.Equal(t, "CREATE TABLE authors (...);", listResp.Queries[0].Response)
}

func TestGenerateBlankPrompt(t *testing.T) {
	db := createDB(t)
	generator := &fakeGenerator{result: gateway.Result{SQL: "SELECT 1;"}}
	router := createRouter(t, db, generator)
	token := signIn(t, router, db, "a@b.com")

	rec := doJSON(t, router, http.MethodPost, "/queries", token, api.GenerateRequest{Prompt: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, generator.calls)
}

func TestGenerateGatewayFailure(t *testing.T) {
	db := createDB(t)
	generator := &fakeGenerator{err: gateway.Errorf("gemini request failed: boom")}
	router := createRouter(t, db, generator)
	token := signIn(t, router, db, "a@b.com")

	rec := doJSON(t, router, http.MethodPost, "/queries", token, api.GenerateRequest{Prompt: "Blog"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var count int64
	require.NoError(t, db.Model(&database.QueryRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "no history record on gateway failure")
}

func TestListHistorySearchFilter(t *testing.T) {
	db := createDB(t)
	generator := &fakeGenerator{result: gateway.Result{SQL: "SELECT 1;"}}
	router := createRouter(t, db, generator)
	token := signIn(t, router, db, "a@b.com")

	for _, prompt := range []string{"Blog with authors", "E-commerce with products", "Social media platform"} {
		rec := doJSON(t, router, http.MethodPost, "/queries", token, api.GenerateRequest{Prompt: prompt})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/queries?search=BLOG", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp api.ListQueriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Queries, 1)
	assert.Equal(t, "Blog with authors", listResp.Queries[0].Prompt)
}

func TestListHistoryScopedToOwner(t *testing.T) {
	db := createDB(t)
	generator := &fakeGenerator{result: gateway.Result{SQL: "SELECT 1;"}}
	router := createRouter(t, db, generator)

	aliceToken := signIn(t, router, db, "alice@example.com")
	bobToken := signIn(t, router, db, "bob@example.com")

	rec := doJSON(t, router, http.MethodPost, "/queries", aliceToken, api.GenerateRequest{Prompt: "alice schema"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/queries", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp api.ListQueriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Empty(t, listResp.Queries, "bob must never see alice's records")
}
