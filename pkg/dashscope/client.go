package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/musebox/musebox-backend/pkg/config"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://dashscope.aliyuncs.com/api/v1"
	imageSynthesisPath         = "services/aigc/text2image/image-synthesis"
	textGenerationPath         = "services/aigc/text-generation/generation"
	videoSynthesisPath         = "services/aigc/video-generation/video-synthesis"
	taskPathPrefix             = "tasks"
	requestBodyReadLimit int64 = 1024

	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 300 * time.Second

	maxImagesPerRequest = 3
)

var errAPIKeyRequired = errors.New("dashscope api key is required")

// Task statuses reported by the async video endpoint.
const (
	taskStatusSucceeded = "SUCCEEDED"
	taskStatusFailed    = "FAILED"
)

// Client wraps the DashScope generative endpoints used by the pipeline.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	imageModel   string
	textModel    string
	videoModel   string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithPollInterval overrides the async task poll cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithPollTimeout overrides the async task poll budget.
func WithPollTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.pollTimeout = timeout
		}
	}
}

// NewClient builds the DashScope client from service configuration.
func NewClient(cfg config.DashScopeConfig, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(cfg.APIKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	httpTimeout := cfg.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}

	client := &Client{
		apiKey:       trimmedKey,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: httpTimeout},
		imageModel:   cfg.ImageModel,
		textModel:    cfg.TextModel,
		videoModel:   cfg.VideoModel,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimSpace(cfg.BaseURL)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.pollInterval <= 0 {
		client.pollInterval = defaultPollInterval
	}
	if client.pollTimeout <= 0 {
		client.pollTimeout = defaultPollTimeout
	}

	return client, nil
}

// ImageRequest describes one text-to-image synthesis call.
type ImageRequest struct {
	Prompt     string
	Count      int
	Resolution string
}

// GenerateImages synthesizes Count images and returns their provider URLs.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) ([]string, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dashscope client not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image prompt is required")
	}

	count := req.Count
	if count < 1 {
		count = 1
	}
	if count > maxImagesPerRequest {
		count = maxImagesPerRequest
	}

	payload := map[string]any{
		"model": c.imageModel,
		"input": map[string]any{
			"prompt": req.Prompt,
		},
		"parameters": map[string]any{
			"n":    count,
			"size": ImageSize(req.Resolution),
		},
	}

	var apiResp struct {
		Output struct {
			Results []struct {
				URL string `json:"url"`
			} `json:"results"`
		} `json:"output"`
	}
	if err := c.post(ctx, imageSynthesisPath, payload, false, &apiResp); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(apiResp.Output.Results))
	for _, result := range apiResp.Output.Results {
		if result.URL != "" {
			urls = append(urls, result.URL)
		}
	}
	if len(urls) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "image synthesis returned no results")
	}
	return urls, nil
}

// TextRequest describes one text generation call.
type TextRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// GenerateText produces a completion for the prompt.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "dashscope client not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "text prompt is required")
	}

	parameters := map[string]any{}
	if req.MaxTokens > 0 {
		parameters["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		parameters["temperature"] = req.Temperature
	}

	payload := map[string]any{
		"model": c.textModel,
		"input": map[string]any{
			"prompt": req.Prompt,
		},
		"parameters": parameters,
	}

	var apiResp struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
	}
	if err := c.post(ctx, textGenerationPath, payload, false, &apiResp); err != nil {
		return "", err
	}
	if strings.TrimSpace(apiResp.Output.Text) == "" {
		return "", pkgerrors.New(pkgerrors.CodeProvider, "text generation returned empty output")
	}
	return apiResp.Output.Text, nil
}

// VideoRequest describes one video synthesis call. ImageURL, when set, runs
// image-to-video with that first frame.
type VideoRequest struct {
	Prompt     string
	ImageURL   string
	Duration   int
	Resolution string
}

// GenerateVideo submits an async video job and polls until it resolves.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "dashscope client not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "video prompt is required")
	}

	input := map[string]any{
		"prompt": req.Prompt,
	}
	if req.ImageURL != "" {
		input["img_url"] = req.ImageURL
	}
	parameters := map[string]any{
		"resolution": VideoResolution(req.Resolution),
	}
	if req.Duration > 0 {
		parameters["duration"] = req.Duration
	}

	payload := map[string]any{
		"model":      c.videoModel,
		"input":      input,
		"parameters": parameters,
	}

	var apiResp struct {
		Output struct {
			TaskID   string `json:"task_id"`
			VideoURL string `json:"video_url"`
		} `json:"output"`
	}
	if err := c.post(ctx, videoSynthesisPath, payload, true, &apiResp); err != nil {
		return "", err
	}

	if apiResp.Output.VideoURL != "" {
		return apiResp.Output.VideoURL, nil
	}
	if apiResp.Output.TaskID == "" {
		return "", pkgerrors.New(pkgerrors.CodeProvider, "video synthesis returned neither url nor task id")
	}
	return c.pollVideoTask(ctx, apiResp.Output.TaskID)
}

func (c *Client) pollVideoTask(ctx context.Context, taskID string) (string, error) {
	deadline := time.Now().Add(c.pollTimeout)
	for {
		status, videoURL, message, err := c.fetchTask(ctx, taskID)
		if err != nil {
			return "", err
		}

		switch status {
		case taskStatusSucceeded:
			if videoURL == "" {
				return "", pkgerrors.New(pkgerrors.CodeProvider, "video task succeeded without a video url")
			}
			return videoURL, nil
		case taskStatusFailed:
			if message == "" {
				message = "video task failed"
			}
			return "", pkgerrors.New(pkgerrors.CodeProvider, message)
		}

		if time.Now().After(deadline) {
			return "", pkgerrors.New(pkgerrors.CodeProviderTimeout, fmt.Sprintf("video task %s did not finish within %s", taskID, c.pollTimeout))
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", pkgerrors.Wrap(pkgerrors.CodeProviderTimeout, ctx.Err(), "video task poll canceled")
		case <-timer.C:
		}
	}
}

func (c *Client) fetchTask(ctx context.Context, taskID string) (status, videoURL, message string, err error) {
	u := c.buildURL(fmt.Sprintf("%s/%s", taskPathPrefix, taskID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", "", "", pkgerrors.Wrap(pkgerrors.CodeProvider, err, "build task status request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", "", pkgerrors.Wrap(pkgerrors.CodeProvider, err, "execute task status request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", "", "", pkgerrors.Wrap(pkgerrors.CodeProvider, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "task status request failed")
	}

	var apiResp struct {
		Output struct {
			TaskStatus string `json:"task_status"`
			VideoURL   string `json:"video_url"`
			Message    string `json:"message"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", "", "", pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode task status response")
	}
	return apiResp.Output.TaskStatus, apiResp.Output.VideoURL, apiResp.Output.Message, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, async bool, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if async {
		httpReq.Header.Set("X-DashScope-Async", "enable")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeProvider, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "dashscope request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
