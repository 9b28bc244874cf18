package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esencia-retail/backoffice-cli/internal/domain/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL))
}

func TestLoginSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "laura@example.com", creds["email"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"token": "tok-1",
				"user": map[string]any{
					"id": "u-1", "name": "Laura", "role": "admin", "status": true,
				},
			},
		})
	})

	payload, err := client.Login(context.Background(), "laura@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", payload.Token)
	assert.Equal(t, "u-1", payload.User.ID)
	assert.Equal(t, session.RoleAdmin, payload.User.Role)
}

func TestLoginErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        any
		wantKind    string
		wantIs      error
		wantTitle   string
		wantMessage string
	}{
		{
			name:        "403 with USER_INACTIVE code",
			status:      http.StatusForbidden,
			body:        map[string]string{"code": "USER_INACTIVE", "message": "Cuenta deshabilitada por el administrador."},
			wantKind:    KindUserInactive,
			wantIs:      ErrUserInactive,
			wantTitle:   "Cuenta Inactiva",
			wantMessage: "Cuenta deshabilitada por el administrador.",
		},
		{
			name:        "plain 403",
			status:      http.StatusForbidden,
			body:        map[string]string{"error": "forbidden"},
			wantKind:    KindUserInactive,
			wantIs:      ErrUserInactive,
			wantTitle:   "Cuenta Inactiva",
			wantMessage: "Tu cuenta está inactiva. Contacta al administrador.",
		},
		{
			name:     "401",
			status:   http.StatusUnauthorized,
			body:     map[string]string{"message": "bad credentials"},
			wantKind: KindInvalidCredentials,
			wantIs:   ErrInvalidCredentials,
		},
		{
			name:     "500",
			status:   http.StatusInternalServerError,
			body:     map[string]string{"message": "boom"},
			wantKind: KindServerError,
			wantIs:   ErrServer,
		},
		{
			name:     "503",
			status:   http.StatusServiceUnavailable,
			body:     nil,
			wantKind: KindServerError,
			wantIs:   ErrServer,
		},
		{
			name:        "422 carries server message",
			status:      http.StatusUnprocessableEntity,
			body:        map[string]string{"message": "email malformed"},
			wantKind:    KindUnknown,
			wantIs:      ErrUnknown,
			wantMessage: "email malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != nil {
					_ = json.NewEncoder(w).Encode(tt.body)
				}
			})

			_, err := client.Login(context.Background(), "a@b.com", "pw")
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.True(t, errors.Is(err, tt.wantIs))
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, apiErr.Title)
			}
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, apiErr.Message)
			}
		})
	}
}

func TestLoginNoResponse(t *testing.T) {
	// Point at a closed port: no response received at all.
	client := NewClient(WithBaseURL("http://127.0.0.1:1"))

	_, err := client.Login(context.Background(), "a@b.com", "pw")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindUnknown, apiErr.Kind)
	assert.True(t, errors.Is(err, ErrUnknown))
	assert.NotEmpty(t, apiErr.Message, "most specific message available is carried")
}

func TestLoginInvalidServerResponse(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{name: "missing token", data: map[string]any{"user": map[string]any{"id": "u-1"}}},
		{name: "missing user", data: map[string]any{"token": "tok-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"data": tt.data})
			})

			_, err := client.Login(context.Background(), "a@b.com", "pw")
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, KindUnknown, apiErr.Kind)
			assert.Equal(t, "invalid server response", apiErr.Message)
		})
	}
}

func TestLogout(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/logout", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Logout(context.Background(), "tok-1"))
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestVerify(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/me", r.URL.Path)
			require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "u-1"}})
		})
		assert.NoError(t, client.Verify(context.Background(), "tok-1"))
	})

	t.Run("rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		assert.Error(t, client.Verify(context.Background(), "tok-1"))
	})

	t.Run("unreachable", func(t *testing.T) {
		client := NewClient(WithBaseURL("http://127.0.0.1:1"))
		assert.Error(t, client.Verify(context.Background(), "tok-1"))
	})
}

func TestClientLogsTransportFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := NewClient(WithBaseURL("http://127.0.0.1:1"), WithLogger(logger))
	_, err := client.Login(context.Background(), "a@b.com", "pw")
	require.Error(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "api request")
	assert.Contains(t, logs, "api request failed")
	assert.Contains(t, logs, "path=/auth/login")
	assert.NotContains(t, logs, "pw", "credentials never reach the log")
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError([]string{"email is required", "password is required"})
	assert.Equal(t, "VALIDATION_ERROR: email is required; password is required", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))
}
