package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/querygenie/querygenie/pkg/api"

	"github.com/go-resty/resty/v2"
)

// client talks to the QueryGenie HTTP API, caching the session token in the
// user config dir between invocations.
type client struct {
	http *resty.Client
}

func newClient(serverURL string) *client {
	c := resty.New().SetBaseURL(strings.TrimRight(serverURL, "/"))
	if token, err := readToken(); err == nil && token != "" {
		c.SetAuthToken(token)
	}
	return &client{http: c}
}

func tokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config dir: %w", err)
	}
	return filepath.Join(dir, "querygenie", "token"), nil
}

func readToken() (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func removeToken() error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func apiError(resp *resty.Response) error {
	return fmt.Errorf("%s: %s", resp.Status(), strings.TrimSpace(string(resp.Body())))
}

func (c *client) SignUp(email, password, name string) (api.SignUpResponse, error) {
	var out api.SignUpResponse
	resp, err := c.http.R().
		SetBody(api.SignUpRequest{Email: email, Password: password, DisplayName: name}).
		SetResult(&out).
		Post("/auth/signup")
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, apiError(resp)
	}
	return out, nil
}

func (c *client) SignIn(email, password string) (api.SignInResponse, error) {
	var out api.SignInResponse
	resp, err := c.http.R().
		SetBody(api.SignInRequest{Email: email, Password: password}).
		SetResult(&out).
		Post("/auth/signin")
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, apiError(resp)
	}
	return out, nil
}

func (c *client) SignOut() error {
	resp, err := c.http.R().Post("/auth/signout")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

func (c *client) Generate(prompt string) (api.GenerateResponse, error) {
	var out api.GenerateResponse
	resp, err := c.http.R().
		SetBody(api.GenerateRequest{Prompt: prompt}).
		SetResult(&out).
		Post("/queries")
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, apiError(resp)
	}
	return out, nil
}

func (c *client) History(search string) (api.ListQueriesResponse, error) {
	var out api.ListQueriesResponse
	req := c.http.R().SetResult(&out)
	if search != "" {
		req.SetQueryParam("search", search)
	}
	resp, err := req.Get("/queries")
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, apiError(resp)
	}
	return out, nil
}
