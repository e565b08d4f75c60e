package update

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestService_CheckNowGuard(t *testing.T) {
	srv, hits := releaseServer(t, "0.4.0", http.StatusOK)
	checker := newTestChecker(t, srv.URL, "0.3.0")
	checker.cache = NewCacheAt("", time.Hour)

	var notified []*UpdateInfo
	s := NewService(checker, time.Hour, func(u *UpdateInfo) { notified = append(notified, u) }, nil)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	if !s.CheckNow(context.Background()) {
		t.Fatal("first CheckNow() should find the update")
	}
	clock = clock.Add(30 * time.Minute)
	if s.CheckNow(context.Background()) {
		t.Error("CheckNow() within the interval should be skipped")
	}
	clock = clock.Add(31 * time.Minute)
	if !s.CheckNow(context.Background()) {
		t.Error("CheckNow() after the interval should run")
	}

	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if len(notified) != 2 || notified[0].LatestVersion != "0.4.0" {
		t.Errorf("notified = %+v", notified)
	}
}

func TestService_FailureIsSilent(t *testing.T) {
	srv, _ := releaseServer(t, "", http.StatusInternalServerError)
	checker := newTestChecker(t, srv.URL, "0.3.0")

	called := false
	s := NewService(checker, time.Hour, func(*UpdateInfo) { called = true }, nil)
	if s.CheckNow(context.Background()) || called {
		t.Error("failed check must not notify")
	}
}

func TestService_StartStop(t *testing.T) {
	srv, hits := releaseServer(t, "0.4.0", http.StatusOK)
	checker := newTestChecker(t, srv.URL, "0.3.0")

	found := make(chan *UpdateInfo, 4)
	s := NewService(checker, time.Hour, func(u *UpdateInfo) { found <- u }, nil)

	s.Start(context.Background())
	s.Start(context.Background())

	select {
	case u := <-found:
		if u.LatestVersion != "0.4.0" {
			t.Errorf("LatestVersion = %q", u.LatestVersion)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no update reported after Start")
	}

	s.Stop()
	s.Stop()
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}
