// Package api is the HTTP client for the back-office REST API. It
// covers the three auth endpoints the session core consumes and maps
// transport failures onto the closed error taxonomy in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/esencia-retail/backoffice-cli/internal/domain/session"
)

const tracerName = "backoffice-cli/api"

// Server-supplied error codes this client understands.
const codeUserInactive = "USER_INACTIVE"

const msgAccountInactive = "Tu cuenta está inactiva. Contacta al administrador."

// AuthPayload is the server response to a successful login.
type AuthPayload struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// envelope is the server's `{ data }` response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// serverError is the structured body of a non-2xx response.
type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client talks to the back-office API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates a back-office API client. It reads defaults from
// BACKOFFICE_* environment variables; options override them.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: os.Getenv("BACKOFFICE_API_URL"),
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	c.tracer = otel.Tracer(tracerName)

	return c
}

// Login authenticates the credentials and returns the raw server
// payload. Input validation happens in the session manager; this method
// only maps transport outcomes:
//
//   - 403 with code USER_INACTIVE -> USER_INACTIVE, title "Cuenta Inactiva"
//   - any other 403               -> USER_INACTIVE, generic message
//   - 401                         -> INVALID_CREDENTIALS
//   - >= 500                      -> SERVER_ERROR
//   - anything else               -> UNKNOWN_ERROR, most specific message
//
// A 2xx response missing the token or user is an UNKNOWN_ERROR with
// message "invalid server response".
func (c *Client) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	ctx, span := c.tracer.Start(ctx, "auth.login")
	defer span.End()

	body := map[string]string{"email": email, "password": password}

	var payload AuthPayload
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", body, &payload); err != nil {
		mapped := mapLoginError(err)
		span.RecordError(mapped)
		span.SetStatus(codes.Error, mapped.Kind)
		return nil, mapped
	}

	if payload.Token == "" || payload.User.ID == "" {
		err := &Error{Kind: KindUnknown, Message: "invalid server response"}
		span.SetStatus(codes.Error, err.Kind)
		return nil, err
	}

	span.SetAttributes(attribute.String("user.role", string(payload.User.Role)))
	return &payload, nil
}

// Logout notifies the server that the session ended. The caller treats
// any outcome as success; the error is returned only for logging.
func (c *Client) Logout(ctx context.Context, token string) error {
	ctx, span := c.tracer.Start(ctx, "auth.logout")
	defer span.End()

	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "logout notify failed")
		return err
	}
	return nil
}

// Verify checks that the server still accepts the token. Any failure,
// transport or HTTP, means the session must be treated as dead
// (fail-closed).
func (c *Client) Verify(ctx context.Context, token string) error {
	ctx, span := c.tracer.Start(ctx, "auth.verify")
	defer span.End()

	if err := c.doRequest(ctx, http.MethodGet, "/auth/me", token, nil, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify failed")
		return err
	}
	return nil
}

// httpError carries a non-2xx response for the mapping layer.
type httpError struct {
	Status  int
	Code    string
	Message string
}

func (e *httpError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// doRequest performs one HTTP round trip. Responses are unwrapped from
// the `{ data }` envelope before decoding into result.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	url := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	c.logger.Debug("api request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &httpError{Status: resp.StatusCode}
		var se serverError
		if json.Unmarshal(respBody, &se) == nil {
			herr.Code = se.Code
			herr.Message = se.Message
		}
		return herr
	}

	if result != nil {
		var env envelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		data := env.Data
		if data == nil {
			// Some endpoints respond without the envelope.
			data = respBody
		}
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}

// mapLoginError converts a transport-level failure into the taxonomy.
func mapLoginError(err error) *Error {
	var herr *httpError
	if !errors.As(err, &herr) {
		// No response received: connection refused, DNS, timeout.
		return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}

	switch {
	case herr.Status == http.StatusForbidden && herr.Code == codeUserInactive:
		msg := herr.Message
		if msg == "" {
			msg = msgAccountInactive
		}
		return &Error{Kind: KindUserInactive, Title: "Cuenta Inactiva", Message: msg, Err: err}

	case herr.Status == http.StatusForbidden:
		return &Error{Kind: KindUserInactive, Title: "Cuenta Inactiva", Message: msgAccountInactive, Err: err}

	case herr.Status == http.StatusUnauthorized:
		return &Error{Kind: KindInvalidCredentials, Message: "invalid email or password", Err: err}

	case herr.Status >= http.StatusInternalServerError:
		return &Error{Kind: KindServerError, Message: "server error, try again later", Err: err}

	default:
		msg := herr.Message
		if msg == "" {
			msg = herr.Error()
		}
		return &Error{Kind: KindUnknown, Message: msg, Err: err}
	}
}
