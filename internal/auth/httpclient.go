package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/common"
)

// HTTPTokenClient implements TokenClient against the hosted auth endpoint's
// REST surface: /token (password and refresh grants), /signup and /logout.
type HTTPTokenClient struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewHTTPTokenClient(baseURL, anonKey string) *HTTPTokenClient {
	return &HTTPTokenClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *HTTPTokenClient) PasswordGrant(ctx context.Context, email, password string) (*Token, error) {
	body := map[string]string{"email": email, "password": password}
	return c.tokenRequest(ctx, "/token?grant_type=password", body)
}

func (c *HTTPTokenClient) SignUp(ctx context.Context, email, password string) (*Token, error) {
	body := map[string]string{"email": email, "password": password}
	return c.tokenRequest(ctx, "/signup", body)
}

func (c *HTTPTokenClient) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.tokenRequest(ctx, "/token?grant_type=refresh_token", body)
}

func (c *HTTPTokenClient) SignOut(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(ctx, "/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrBackendOffline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("logout failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPTokenClient) tokenRequest(ctx context.Context, path string, body map[string]string) (*Token, error) {
	req, err := c.newRequest(ctx, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBackendOffline, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized:
		return nil, common.ErrUnauthorized
	case resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusConflict:
		return nil, common.ErrAlreadyExists
	default:
		return nil, fmt.Errorf("auth endpoint returned status %d", resp.StatusCode)
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("auth endpoint returned no access token")
	}
	return &tok, nil
}

func (c *HTTPTokenClient) newRequest(ctx context.Context, path string, body map[string]string) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	return req, nil
}
