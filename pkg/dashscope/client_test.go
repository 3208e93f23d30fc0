package dashscope

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/musebox/musebox-backend/pkg/config"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
)

func testConfig(baseURL string) config.DashScopeConfig {
	return config.DashScopeConfig{
		APIKey:       "sk-test",
		BaseURL:      baseURL,
		ImageModel:   "image-model",
		TextModel:    "text-model",
		VideoModel:   "video-model",
		HTTPTimeout:  5 * time.Second,
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
	}
}

func TestGenerateImagesClampsCount(t *testing.T) {
	t.Parallel()

	var gotN int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var payload struct {
			Parameters struct {
				N    int    `json:"n"`
				Size string `json:"size"`
			} `json:"parameters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		gotN = payload.Parameters.N
		if payload.Parameters.Size != "1024*1024" {
			t.Errorf("expected default size, got %q", payload.Parameters.Size)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]any{
				"results": []map[string]string{
					{"url": "https://cdn.example.com/a.jpg"},
					{"url": "https://cdn.example.com/b.jpg"},
				},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	urls, err := client.GenerateImages(context.Background(), ImageRequest{Prompt: "sunset", Count: 9})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if gotN != maxImagesPerRequest {
		t.Fatalf("expected count clamped to %d, got %d", maxImagesPerRequest, gotN)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(urls))
	}
}

func TestGenerateTextEmptyOutput(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"text": "  "}})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GenerateText(context.Background(), TextRequest{Prompt: "summarize"})
	if err == nil {
		t.Fatal("expected error for empty output")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestGenerateVideoPollsUntilSucceeded(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if r.Header.Get("X-DashScope-Async") != "enable" {
				t.Errorf("expected async header on create")
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"task_id": "task-9"}})
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/tasks/task-9") {
			t.Errorf("unexpected poll path %s", r.URL.Path)
		}
		n := polls.Add(1)
		if n <= 3 {
			_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"task_status": "RUNNING"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{
			"task_status": "SUCCEEDED",
			"video_url":   "https://cdn.example.com/v.mp4",
		}})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	url, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "city lights", Duration: 5, Resolution: "720p"})
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if url != "https://cdn.example.com/v.mp4" {
		t.Fatalf("unexpected video url %s", url)
	}
	if got := polls.Load(); got != 4 {
		t.Fatalf("expected 3 running polls then success, got %d polls", got)
	}
}

func TestGenerateVideoSucceededWithoutURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"task_id": "task-1"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"task_status": "SUCCEEDED"}})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GenerateVideo(context.Background(), VideoRequest{Prompt: "x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestGenerateVideoFailedCarriesMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"task_id": "task-2"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{
			"task_status": "FAILED",
			"message":     "content policy violation",
		}})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GenerateVideo(context.Background(), VideoRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "content policy violation") {
		t.Fatalf("expected provider message, got %v", err)
	}
}

func TestGenerateVideoTimeoutIsDistinct(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"task_id": "task-3"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"task_status": "RUNNING"}})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.PollTimeout = 5 * time.Millisecond
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GenerateVideo(context.Background(), VideoRequest{Prompt: "x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeProviderTimeout {
		t.Fatalf("expected provider timeout error, got %v", err)
	}
}

func TestGenerateVideoImmediateURLSkipsPolling(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("no polling expected, got %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"output": map[string]any{"video_url": "https://cdn.example.com/now.mp4"}})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	url, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if url != "https://cdn.example.com/now.mp4" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestResolutionMapsStayIndependent(t *testing.T) {
	t.Parallel()

	if got := ImageSize("720p"); got != "720*720" {
		t.Fatalf("unexpected image size %q", got)
	}
	if got := VideoResolution("720p"); got != "720P" {
		t.Fatalf("unexpected video resolution %q", got)
	}
	if got := ImageSize("4k"); got != defaultImageSize {
		t.Fatalf("unknown resolution should fall back to default size, got %q", got)
	}
	for res := range imageSizeByResolution {
		if imageSizeByResolution[res] == videoResolutionParam[res] {
			t.Fatalf("image size and video tier collide for %s", res)
		}
	}
}
