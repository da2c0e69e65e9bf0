package delivery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// HTTPFetcher downloads files over HTTP
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// DirSaver writes files into a local directory
type DirSaver struct {
	dir string
}

func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{dir: dir}
}

// Save writes r to dir/name. Only the base of name is used.
func (s *DirSaver) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.Base(name))
	file, err := os.Create(target)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(target)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return target, nil
}
