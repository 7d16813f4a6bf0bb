package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querygenie/querygenie/internal/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrNotConfirmed       = errors.New("email address has not been confirmed")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Service owns user accounts and sessions. All other components receive the
// resolved identity explicitly; there is no ambient session state.
type Service struct {
	db         *gorm.DB
	sessionTTL time.Duration

	// ConfirmRedirectURL is where the confirmation link sends the user once
	// their address is verified.
	confirmRedirectURL string
}

func NewService(db *gorm.DB, sessionTTL time.Duration, confirmRedirectURL string) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Service{db: db, sessionTTL: sessionTTL, confirmRedirectURL: confirmRedirectURL}
}

type SignUpResult struct {
	User         database.User
	ConfirmToken string
	RedirectURL  string
}

// SignUp creates an account in pending-confirmation state. Sign-in is refused
// until the confirmation token is redeemed.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (SignUpResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return SignUpResult{}, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return SignUpResult{}, fmt.Errorf("error hashing password: %w", err)
	}

	confirmToken, err := newToken()
	if err != nil {
		return SignUpResult{}, err
	}

	user := database.User{
		Id:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Confirmed:    false,
		ConfirmToken: sql.NullString{String: confirmToken, Valid: true},
		CreationTime: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return SignUpResult{}, ErrEmailTaken
		}
		var existing database.User
		if s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error == nil {
			return SignUpResult{}, ErrEmailTaken
		}
		return SignUpResult{}, fmt.Errorf("error creating user: %w", err)
	}

	// There is no mailer; the confirmation link is logged so an operator (or
	// a local developer) can complete the flow.
	slog.Info("user signed up, confirmation pending", "email", email, "confirm_token", confirmToken)

	return SignUpResult{User: user, ConfirmToken: confirmToken, RedirectURL: s.confirmRedirectURL}, nil
}

// Confirm redeems an email-confirmation token.
func (s *Service) Confirm(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	var user database.User
	err := s.db.WithContext(ctx).Where("confirm_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("error looking up confirmation token: %w", err)
	}

	updates := map[string]any{
		"confirmed":         true,
		"confirm_token":     sql.NullString{},
		"confirmation_time": sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return fmt.Errorf("error confirming user: %w", err)
	}

	slog.Info("user confirmed", "user_id", user.Id)
	return nil
}

// SignIn verifies credentials and creates a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (database.Session, database.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user database.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.Session{}, database.User{}, ErrInvalidCredentials
		}
		return database.Session{}, database.User{}, fmt.Errorf("error looking up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return database.Session{}, database.User{}, ErrInvalidCredentials
	}

	if !user.Confirmed {
		return database.Session{}, database.User{}, ErrNotConfirmed
	}

	token, err := newToken()
	if err != nil {
		return database.Session{}, database.User{}, err
	}

	now := time.Now().UTC()
	session := database.Session{
		Token:        token,
		UserId:       user.Id,
		CreationTime: now,
		ExpiryTime:   now.Add(s.sessionTTL),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return database.Session{}, database.User{}, fmt.Errorf("error creating session: %w", err)
	}

	return session, user, nil
}

// SignOut invalidates the session for the given token. Unknown tokens are not
// an error; sign-out is idempotent.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&database.Session{}, "token = ?", token).Error; err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// ResolveToken maps a session token to its user. Expired sessions are treated
// as absent.
func (s *Service) ResolveToken(ctx context.Context, token string) (database.User, error) {
	if token == "" {
		return database.User{}, ErrInvalidToken
	}

	var session database.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.User{}, ErrInvalidToken
		}
		return database.User{}, fmt.Errorf("error looking up session: %w", err)
	}

	if time.Now().After(session.ExpiryTime) {
		return database.User{}, ErrInvalidToken
	}

	var user database.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", session.UserId).Error; err != nil {
		return database.User{}, fmt.Errorf("error looking up session user: %w", err)
	}
	return user, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
