// Package client is a small Go client for the radix-server HTTP API. It
// covers the upload/poll workflow an integrating service needs: authenticate,
// upload an X-ray, and wait for the analysis verdict.
package client

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
	"strings"
	"time"
)

// ErrPollTimeout is returned by WaitForAnalysis when the report is still
// pending after the polling window closes.
var ErrPollTimeout = errors.New("analysis polling timed out")

const (
	defaultPollInterval = 2 * time.Second
	defaultPollWindow   = 5 * time.Minute
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	pollInterval time.Duration
	pollWindow   time.Duration
}

type Options struct {
	// Token is the bearer token for authenticated endpoints. Login and
	// Register fill it in automatically on success.
	Token      string
	HTTPClient *http.Client
	// PollWindow bounds WaitForAnalysis; zero means 5 minutes.
	PollWindow time.Duration
}

func New(baseURL string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	window := options.PollWindow
	if window <= 0 {
		window = defaultPollWindow
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        options.Token,
		httpClient:   httpClient,
		pollInterval: defaultPollInterval,
		pollWindow:   window,
	}
}

// APIError carries the server's status code and message body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type authResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type UploadResult struct {
	Message  string `json:"message"`
	ReportID string `json:"reportId"`
	ImageURL string `json:"imageUrl"`
}

type AnalysisStatus struct {
	Status     string   `json:"status"`
	ClassLabel string   `json:"class"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags"`
	ReportText string   `json:"reportText"`
	Image      string   `json:"image"`
}

// Terminal reports whether the analysis has finished, successfully or not.
func (s AnalysisStatus) Terminal() bool {
	return s.Status == "completed" || s.Status == "error"
}

func (c *Client) Register(ctx context.Context, creds Credentials) (*User, error) {
	var out authResult
	if err := c.postJSON(ctx, "/api/auth/register", creds, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var out authResult
	err := c.postJSON(ctx, "/api/auth/login", Credentials{Username: username, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return out.User, nil
}

// Upload sends one image and returns the pending report's identifiers.
// Analysis continues server-side; use WaitForAnalysis for the verdict.
func (c *Client) Upload(ctx context.Context, filename, mimeType string, image io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("copy image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/images/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, reportID string) (*AnalysisStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/images/status/"+reportID, nil)
	if err != nil {
		return nil, err
	}
	var out AnalysisStatus
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForAnalysis polls the status endpoint at a fixed interval until the
// report reaches a terminal state, the context is done, or the polling window
// closes (ErrPollTimeout).
func (c *Client) WaitForAnalysis(ctx context.Context, reportID string) (*AnalysisStatus, error) {
	deadline := time.Now().Add(c.pollWindow)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, reportID)
		if err != nil {
			return nil, err
		}
		if status.Terminal() {
			return status, nil
		}
		if time.Now().After(deadline) {
			return status, ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
