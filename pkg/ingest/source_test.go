package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

const csvBody = "id,word,reading,meanings,nuance,part,hint\n1,いと,いと,とても,,副詞,\n"

func TestFetcherLocalPathPassesThrough(t *testing.T) {
	f := NewFetcher(t.TempDir())
	got, err := f.Ensure(context.Background(), "testdata/vocab.csv", false)
	if err != nil || got != "testdata/vocab.csv" {
		t.Fatalf("expected local path unchanged, got %q, %v", got, err)
	}
}

func TestFetcherDownloadsOnceAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") != "kogo-cli" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := srv.URL + "/vocab.csv"
	path, err := f.Ensure(context.Background(), src, false)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != csvBody {
		t.Fatalf("unexpected cached body %q, %v", b, err)
	}
	if _, err := f.Ensure(context.Background(), src, false); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one download, got %d", hits)
	}
	if _, err := f.Ensure(context.Background(), src, true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected refresh to download again, got %d", hits)
	}
}

func TestFetcherDecompressesGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(csvBody))
	gz.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	path, err := NewFetcher(t.TempDir()).Ensure(context.Background(), srv.URL+"/vocab.csv.gz", false)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != csvBody {
		t.Fatalf("expected decompressed body, got %q", b)
	}
}

func TestFetcherRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	if _, err := f.Ensure(context.Background(), srv.URL+"/missing.csv", false); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := os.Stat(f.CachePath(srv.URL + "/missing.csv")); !os.IsNotExist(err) {
		t.Fatalf("failed download left a cache file: %v", err)
	}
}

func TestIsRemote(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/v.csv": true,
		"http://example.com/v.csv":  true,
		"vocab.csv":                 false,
		"/tmp/vocab.csv":            false,
		"file:///tmp/vocab.csv":     false,
	}
	for src, want := range cases {
		if got := IsRemote(src); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", src, got, want)
		}
	}
}
