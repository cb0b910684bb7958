package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTokenClient_PasswordGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])

		_ = json.NewEncoder(w).Encode(Token{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600})
	}))
	defer srv.Close()

	c := NewHTTPTokenClient(srv.URL, "anon-key")
	tok, err := c.PasswordGrant(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
}

func TestHTTPTokenClient_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewHTTPTokenClient(srv.URL, "")
	_, err := c.PasswordGrant(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestHTTPTokenClient_SignUpConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"user exists"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewHTTPTokenClient(srv.URL, "")
	_, err := c.SignUp(context.Background(), "alice@example.com", "pw")
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestHTTPTokenClient_SignOut(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPTokenClient(srv.URL, "")
	require.NoError(t, c.SignOut(context.Background(), "at"))
	assert.Equal(t, "Bearer at", gotAuth)
}

func TestHTTPTokenClient_Unreachable(t *testing.T) {
	c := NewHTTPTokenClient("http://127.0.0.1:1", "")
	_, err := c.PasswordGrant(context.Background(), "a@example.com", "pw")
	require.ErrorIs(t, err, common.ErrBackendOffline)
}
