package background

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// HTTPFetcher downloads background videos over plain HTTP into the
// shared asset directory.
type HTTPFetcher struct {
	client   *http.Client
	cacheDir string
}

func NewHTTPFetcher(cacheDir string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: 10 * time.Minute, // background clips can be large
		},
		cacheDir: cacheDir,
	}
}

// Fetch downloads the URL to a uniquely named file and returns its
// path. The raw download is an intermediate artifact; the resolver
// derives the canvas-sized asset from it.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download background: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(f.cacheDir, "raw_"+uuid.New().String()+".mp4")
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save background: %w", err)
	}
	return path, out.Close()
}
