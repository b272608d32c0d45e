package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/camera-management/internal/model"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Client calls the HTTP API.  When Token is set it is sent as a bearer
// token with every request.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a client for baseURL with a 15s request timeout.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthResponse is returned by Login and Signup.
type AuthResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

// CameraInput carries camera fields for create and update.  Empty fields are
// omitted, which leaves them unchanged on update.
type CameraInput struct {
	Name      string `json:"name,omitempty"`
	StreamURL string `json:"streamURL,omitempty"`
	Location  string `json:"location,omitempty"`
	Status    string `json:"status,omitempty"`
}

type cameraEnvelope struct {
	Message string       `json:"message"`
	Camera  model.Camera `json:"camera"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup creates a user.  The client's token must belong to an admin.
func (c *Client) Signup(ctx context.Context, username, password, role string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"username": username, "password": password}
	if role != "" {
		body["role"] = role
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context) (model.PublicUser, error) {
	var out struct {
		User model.PublicUser `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out.User, err
}

func (c *Client) ListCameras(ctx context.Context) ([]model.Camera, error) {
	var out []model.Camera
	if err := c.do(ctx, http.MethodGet, "/api/cameras", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCamera(ctx context.Context, id string) (*model.Camera, error) {
	var out model.Camera
	if err := c.do(ctx, http.MethodGet, "/api/cameras/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCamera(ctx context.Context, in CameraInput) (*model.Camera, error) {
	var out cameraEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/cameras", in, &out); err != nil {
		return nil, err
	}
	return &out.Camera, nil
}

func (c *Client) UpdateCamera(ctx context.Context, id string, in CameraInput) (*model.Camera, error) {
	var out cameraEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/cameras/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out.Camera, nil
}

func (c *Client) DeleteCamera(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/cameras/"+url.PathEscape(id), nil, nil)
}

// do sends a JSON request and decodes a 2xx body into out (when non-nil).
// Other statuses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
