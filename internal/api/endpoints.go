package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jask/scandraw/internal/feature"
)

// HealthResponse is the liveness payload. Engine is absent on older backends.
type HealthResponse struct {
	Engine  string `json:"engine"`
	Message string `json:"message"`
}

// Health probes GET /. Any non-2xx status is a failure.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return HealthResponse{}, err
	}
	body, err := c.do(req)
	if err != nil {
		return HealthResponse{}, err
	}
	var out HealthResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		// Alive but not JSON; the engine stays unknown.
		c.logger.Debug("api: health body not json", "error", err)
		return HealthResponse{}, nil
	}
	out.Engine = strings.TrimSpace(out.Engine)
	return out, nil
}

// Upload posts the file as the single multipart field "file" and returns the
// parsed results. The part carries contentType so the backend can validate it.
func (c *Client) Upload(ctx context.Context, name, contentType string, r io.Reader) ([]feature.Feature, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("api: create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("api: read upload %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("api: close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload/", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	res, err := feature.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("api: upload response: %w", err)
	}
	if res.Dropped > 0 {
		c.logger.WarnContext(ctx, "api: dropped results with unknown type", "count", res.Dropped, "file", name)
	}
	return res.Features, nil
}

// Login exchanges credentials for an access token. The backend expects the
// OAuth2 password form, so the email travels as "username".
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		var se *ServerError
		if errors.As(err, &se) && se.Status == http.StatusForbidden {
			return "", ErrAuthPending
		}
		c.logger.Debug("api: login failed", "error", err)
		return "", ErrAuthInvalid
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || strings.TrimSpace(out.AccessToken) == "" {
		return "", ErrAuthInvalid
	}
	return out.AccessToken, nil
}

const registerCopy = "Registration failed. Try again."

// Register requests a new account. Accounts start pending approval.
func (c *Client) Register(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password})
	if err != nil {
		return fmt.Errorf("api: encode register: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/register", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		var se *ServerError
		if errors.As(err, &se) {
			return &ServerError{Status: se.Status, Detail: se.Detail, Fallback: registerCopy}
		}
		return &ServerError{Fallback: registerCopy}
	}
	return nil
}
