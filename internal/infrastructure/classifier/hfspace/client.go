// Package hfspace calls the remote chest X-ray analysis endpoint, an HTTP
// service accepting a multipart image and a mode flag. The response is
// treated as untrusted: status, shape and caption are all validated here.
package hfspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saivathsal/radix-server/internal/core/domain"
	"github.com/saivathsal/radix-server/internal/infrastructure/resilience"
)

type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	// Timeout bounds each outbound call. The upstream has no SLA; leaving
	// this unset would make the pending state unbounded.
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(endpoint, token string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type analyseResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result struct {
		Caption string   `json:"caption"`
		Tags    []string `json:"tags"`
	} `json:"result"`
}

func (c *Client) Analyze(ctx context.Context, image io.Reader, filename string, role domain.Role) (domain.AnalysisResult, error) {
	// Buffer the image so retries can resend it.
	payload, err := io.ReadAll(image)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("read image payload: %w", err)
	}

	var result domain.AnalysisResult
	call := func(callCtx context.Context) error {
		var callErr error
		result, callErr = c.analyseOnce(callCtx, payload, filename, modeFor(role))
		return callErr
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "hfspace.analyse", call, classifyAnalyseError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.AnalysisResult{}, wrapTemporaryIfNeeded("analyse image", err)
	}
	return result, nil
}

func (c *Client) analyseOnce(ctx context.Context, payload []byte, filename, mode string) (domain.AnalysisResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("images", filename)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("write multipart payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"?mode="+url.QueryEscape(mode), &body)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("create analyse request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.AnalysisResult{}, newHTTPStatusError(resp)
	}

	var parsed analyseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode analyse response: %w", err)
	}
	if parsed.Status != "success" {
		reason := parsed.Error
		if reason == "" {
			reason = "unknown error"
		}
		return domain.AnalysisResult{}, fmt.Errorf("analysis failed: %s", reason)
	}
	caption := strings.TrimSpace(parsed.Result.Caption)
	if caption == "" {
		return domain.AnalysisResult{}, fmt.Errorf("analyse response missing caption")
	}

	return domain.AnalysisResult{Caption: caption, Tags: parsed.Result.Tags}, nil
}

func modeFor(role domain.Role) string {
	if role == domain.RoleDoctor {
		return "doctor"
	}
	return "user"
}
