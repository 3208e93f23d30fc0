package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	return &Client{
		defaultBucket: "bucket",
		tokenSource: &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
			return "token", time.Now().Add(time.Hour), nil
		}},
		httpClient: &http.Client{Transport: rt},
	}
}

func TestUploadSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(req *http.Request) *http.Response {
		if req.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", req.Method)
		}
		if req.Header.Get("Authorization") != "Bearer token" {
			t.Fatalf("unexpected auth %s", req.Header.Get("Authorization"))
		}
		if req.Header.Get("Content-Type") != "image/jpeg" {
			t.Fatalf("unexpected content type %s", req.Header.Get("Content-Type"))
		}
		if !strings.Contains(req.URL.RawQuery, "uploadType=media") {
			t.Fatalf("expected media upload, got %s", req.URL.RawQuery)
		}
		body, _ := io.ReadAll(req.Body)
		if string(body) != "payload" {
			t.Fatalf("unexpected body %q", body)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("{}")),
			Header:     http.Header{},
		}
	})

	err := client.Upload(context.Background(), "bucket", "aigc/images/s/t_1.jpg", strings.NewReader("payload"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestUploadFailureIncludesBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(req *http.Request) *http.Response {
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Status:     "403 Forbidden",
			Body:       io.NopCloser(strings.NewReader("denied")),
			Header:     http.Header{},
		}
	})

	err := client.Upload(context.Background(), "", "key", strings.NewReader("x"), "image/jpeg")
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestDownloadSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(req *http.Request) *http.Response {
		if req.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", req.Method)
		}
		if !strings.Contains(req.URL.RawQuery, "alt=media") {
			t.Fatalf("expected alt=media, got %s", req.URL.RawQuery)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("bytes")),
			Header:     http.Header{},
		}
	})

	rc, err := client.Download(context.Background(), "bucket", "aigc/videos/s/t.mp4")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "bytes" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestDeleteNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(req *http.Request) *http.Response {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}
	})

	if err := client.Delete(context.Background(), "bucket", "gone.jpg"); err != nil {
		t.Fatalf("Delete not found should succeed: %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	client := &Client{defaultBucket: "bucket"}
	got := client.PublicURL("", "aigc/images/s/t_1.jpg")
	want := "https://storage.googleapis.com/bucket/aigc/images/s/t_1.jpg"
	if got != want {
		t.Fatalf("unexpected public url %s", got)
	}
}

func TestUploadRequiresKey(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(req *http.Request) *http.Response {
		t.Fatal("no request expected")
		return nil
	})
	if err := client.Upload(context.Background(), "bucket", "", strings.NewReader("x"), ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
