package ingest

import (
	"compress/gzip"
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Fetcher resolves a vocabulary source to a local file. Remote sources are
// downloaded once into CacheDir.
type Fetcher struct {
	Client   *http.Client
	CacheDir string
	Logger   *log.Logger
}

func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: 30 * time.Second},
		CacheDir: cacheDir,
	}
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CachePath is where a remote source is stored. The name is stable per URL.
func (f *Fetcher) CachePath(src string) string {
	return filepath.Join(f.CacheDir, uuid.NewSHA1(uuid.NameSpaceURL, []byte(src)).String()+".csv")
}

// Ensure returns a readable path for src. Local paths are returned as is.
// A cached download is reused unless refresh is set.
func (f *Fetcher) Ensure(ctx context.Context, src string, refresh bool) (string, error) {
	if !IsRemote(src) {
		return src, nil
	}
	path := f.CachePath(src)
	if !refresh {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	if f.Logger != nil {
		f.Logger.Printf("downloading %s", src)
	}
	if err := f.download(ctx, src, path); err != nil {
		return "", errors.Wrapf(err, "fetch %s", src)
	}
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "kogo-cli")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download failed: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if isGzip(src, resp) {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return errors.Wrap(err, "gzip reader")
		}
		defer gz.Close()
		body = gz
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".vocab-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write download")
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func isGzip(src string, resp *http.Response) bool {
	if resp.Header.Get("Content-Encoding") == "gzip" && !resp.Uncompressed {
		return true
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "application/gzip" || ct == "application/x-gzip" {
		return true
	}
	u, err := url.Parse(src)
	return err == nil && strings.HasSuffix(u.Path, ".gz")
}
