// Package results loads previously computed retrieval runs, either from a
// local file or from a remote URL cached on disk.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// Loader resolves result-set sources. Remote files are fetched once into a
// deterministic cache path derived from the URL and reused afterwards.
type Loader struct {
	cacheDir string
	client   *http.Client
	logger   *zap.Logger
}

// New creates a loader caching downloads under cacheDir.
func New(cacheDir string, logger *zap.Logger) *Loader {
	return &Loader{
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 10 * time.Minute},
		logger:   logger,
	}
}

// Load reads a result set from a local path or an https URL. The decoded
// content must be a mapping of query id to document-score mappings; anything
// else fails with ErrMalformedCachedResults.
func (l *Loader) Load(ctx context.Context, source string) (domain.ResultSet, error) {
	path := source
	if strings.HasPrefix(source, "https://") {
		var err error
		if path, err = l.fetch(ctx, source); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}

	var results domain.ResultSet
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedCachedResults, path, err)
	}
	return results, nil
}

// CachePath returns the deterministic local path for a remote source.
func (l *Loader) CachePath(url string) string {
	descriptor := strings.ReplaceAll(strings.TrimPrefix(url, "https://"), "/", "--")
	return filepath.Join(l.cacheDir, "cached_predictions--"+descriptor)
}

// fetch downloads the source into the cache path unless already present.
// The download lands in a temp file first so a failed transfer never leaves
// a truncated cache entry behind.
func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	dest := l.CachePath(url)
	if _, err := os.Stat(dest); err == nil {
		l.logger.Debug("Using cached results file", zap.String("path", dest))
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("mkdir cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download results: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("download results: HTTP %d: %s", resp.StatusCode, string(body))
	}

	tmp := dest + ".tmp"
	f, err := os.OpenFile(filepath.Clean(tmp), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open tmp: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write tmp: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("finalize cache file: %w", err)
	}

	l.logger.Info("Downloaded previous results",
		zap.String("url", url),
		zap.String("path", dest),
	)
	return dest, nil
}
