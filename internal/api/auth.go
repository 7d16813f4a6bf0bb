package api

import (
	"errors"
	"net/http"

	"github.com/querygenie/querygenie/internal/auth"
	"github.com/querygenie/querygenie/pkg/api"

	"github.com/go-chi/chi/v5"
)

func (s *BackendService) addAuthRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", RestHandler(s.SignUp))
		r.Post("/signin", RestHandler(s.SignIn))
		r.Post("/signout", RestHandler(s.SignOut))
		r.Get("/confirm", RestHandler(s.Confirm))
		r.With(auth.RequireSession("")).Get("/me", RestHandler(s.Me))
	})
}

func (s *BackendService) SignUp(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SignUpRequest](r)
	if err != nil {
		return nil, err
	}

	result, err := s.auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return nil, CodedError(http.StatusConflict, err)
		}
		return nil, CodedErrorf(http.StatusBadRequest, "signup failed: %v", err)
	}

	return api.SignUpResponse{
		Message:     "check your email to confirm your account",
		RedirectURL: result.RedirectURL,
	}, nil
}

func (s *BackendService) SignIn(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SignInRequest](r)
	if err != nil {
		return nil, err
	}

	session, user, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNotConfirmed):
			return nil, CodedError(http.StatusUnauthorized, err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "signin failed")
	}

	return api.SignInResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiryTime,
		User: api.User{
			Id:          user.Id,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
	}, nil
}

func (s *BackendService) SignOut(r *http.Request) (any, error) {
	token := r.Header.Get("Authorization")
	if len(token) > 7 {
		token = token[7:] // strip "Bearer "
	}
	if err := s.auth.SignOut(r.Context(), token); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "signout failed")
	}
	return nil, nil
}

func (s *BackendService) Confirm(r *http.Request) (any, error) {
	token := r.URL.Query().Get("token")

	if err := s.auth.Confirm(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, CodedError(http.StatusBadRequest, err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "confirmation failed")
	}

	return map[string]string{"message": "email confirmed, you can now sign in"}, nil
}

func (s *BackendService) Me(r *http.Request) (any, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, CodedErrorf(http.StatusUnauthorized, "authentication required")
	}
	return api.User{Id: user.Id, Email: user.Email, DisplayName: user.DisplayName}, nil
}
