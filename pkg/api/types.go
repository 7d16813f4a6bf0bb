package api

import (
	"time"

	"github.com/google/uuid"
)

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type SignUpResponse struct {
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type User struct {
	Id          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateResponse struct {
	Prompt       string `json:"prompt"`
	GeneratedSql string `json:"generated_sql"`
	// Notice carries a non-fatal warning, e.g. when the result could not be
	// saved to history. The generated SQL is still valid when set.
	Notice string `json:"notice,omitempty"`
}

type QueryRecord struct {
	Id        uuid.UUID `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

type ListQueriesRequest struct {
	Search string `schema:"search"`
}

type ListQueriesResponse struct {
	Queries []QueryRecord `json:"queries"`
}
