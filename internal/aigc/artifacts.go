package aigc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
)

const (
	imageKeyPattern = "aigc/images/%s/%s_%d.jpg"
	videoKeyPattern = "aigc/videos/%s/%s.mp4"

	fetchTimeout = 2 * time.Minute
)

type artifactStore interface {
	Upload(ctx context.Context, bucket, key string, payload io.Reader, contentType string) error
	PublicURL(bucket, key string) string
}

type artifactFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

type httpFetcher struct {
	httpClient *http.Client
}

func newHTTPFetcher() *httpFetcher {
	return &httpFetcher{httpClient: &http.Client{Timeout: fetchTimeout}}
}

// Fetch streams the artifact bytes from a provider-hosted URL. The caller
// owns the returned reader.
func (f *httpFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch artifact: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return resp.Body, nil
}

// storeArtifact copies a provider-hosted artifact into our bucket and returns
// the durable public URL. Provider URLs expire, so a failure here is
// surfaced for the caller to decide whether the short-lived URL is an
// acceptable fallback.
func (o *Orchestrator) storeArtifact(ctx context.Context, providerURL, key, contentType string) (string, error) {
	body, err := o.fetcher.Fetch(ctx, providerURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "fetch provider artifact")
	}
	defer func() { _ = body.Close() }()

	if err := o.store.Upload(ctx, "", key, body, contentType); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upload artifact")
	}
	return o.store.PublicURL("", key), nil
}

func imageObjectKey(songID, taskID string, index int) string {
	return fmt.Sprintf(imageKeyPattern, songID, taskID, index)
}

func videoObjectKey(songID, taskID string) string {
	return fmt.Sprintf(videoKeyPattern, songID, taskID)
}
