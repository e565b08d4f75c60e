package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected [3]int
	}{
		{"0.3.0", [3]int{0, 3, 0}},
		{"1.0.0", [3]int{1, 0, 0}},
		{"10.20.30", [3]int{10, 20, 30}},
		{"v0.4.1", [3]int{0, 4, 1}},
		{"1.0.0-rc1", [3]int{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseVersion(tt.input)
			if result != tt.expected {
				t.Errorf("parseVersion(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"0.4.0", "0.3.0", true},
		{"0.3.1", "0.3.0", true},
		{"1.0.0", "0.9.9", true},
		{"0.3.0", "0.3.0", false},
		{"0.2.0", "0.3.0", false},
		{"0.3.0", "0.4.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			result := isNewerVersion(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("isNewerVersion(%q, %q) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

// releaseServer serves a fixed tag and counts requests.
func releaseServer(t *testing.T, tag string, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "jxscout-client/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestChecker(t *testing.T, url, current string) *Checker {
	t.Helper()
	return NewChecker(CheckerOptions{
		URL:            url,
		CurrentVersion: current,
		Cache:          NewCacheAt(filepath.Join(t.TempDir(), cacheFileName), time.Hour),
	})
}

func TestChecker_Check(t *testing.T) {
	srv, hits := releaseServer(t, "v0.4.0", http.StatusOK)
	c := newTestChecker(t, srv.URL, "0.3.0")

	info, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if info == nil || info.LatestVersion != "0.4.0" || info.CurrentVersion != "0.3.0" {
		t.Fatalf("Check() = %+v", info)
	}
	if info.ReleasesURL != ReleasesPage {
		t.Errorf("ReleasesURL = %q", info.ReleasesURL)
	}
	want := "A new version of jxscout (0.4.0) is available. You are currently using version 0.3.0."
	if info.Message() != want {
		t.Errorf("Message() = %q", info.Message())
	}

	// Second check is answered by the cache.
	if _, err := c.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if cached := c.CheckCached(); cached == nil || cached.LatestVersion != "0.4.0" {
		t.Errorf("CheckCached() = %+v", cached)
	}
}

func TestChecker_Check_UpToDate(t *testing.T) {
	srv, _ := releaseServer(t, "0.3.0", http.StatusOK)
	c := newTestChecker(t, srv.URL, "0.3.0")

	info, err := c.Check(context.Background())
	if err != nil || info != nil {
		t.Errorf("Check() = %+v, %v; want nil, nil", info, err)
	}
}

func TestChecker_Check_HTTPError(t *testing.T) {
	srv, _ := releaseServer(t, "", http.StatusForbidden)
	c := newTestChecker(t, srv.URL, "0.3.0")

	if _, err := c.Check(context.Background()); err == nil {
		t.Error("Check() should fail on HTTP 403")
	}
}

func TestChecker_Check_DisabledByEnv(t *testing.T) {
	srv, hits := releaseServer(t, "9.9.9", http.StatusOK)
	t.Setenv(DisableEnv, "1")
	c := newTestChecker(t, srv.URL, "0.3.0")

	info, err := c.Check(context.Background())
	if info != nil || err != nil {
		t.Errorf("Check() = %+v, %v; want nil, nil", info, err)
	}
	if c.CheckCached() != nil {
		t.Error("CheckCached() should be nil when disabled")
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Error("no request expected when disabled")
	}
}

func TestCache_GetSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", cacheFileName)
	cache := NewCacheAt(path, time.Hour)

	if entry, stale := cache.Get(); entry != nil || !stale {
		t.Errorf("empty cache Get() = %+v, %v", entry, stale)
	}

	cache.Set("0.4.0")
	entry, stale := cache.Get()
	if entry == nil || entry.LatestVersion != "0.4.0" || stale {
		t.Errorf("Get() = %+v, %v", entry, stale)
	}

	expired := NewCacheAt(path, time.Nanosecond)
	time.Sleep(time.Millisecond)
	if _, stale := expired.Get(); !stale {
		t.Error("entry older than ttl should be stale")
	}

	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if entry, stale := cache.Get(); entry != nil || !stale {
		t.Errorf("corrupt cache Get() = %+v, %v", entry, stale)
	}

	NewCacheAt("", time.Hour).Set("1.0.0")
}
