package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntrospectorEmptyTokenSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	v := NewIntrospector(srv.URL, time.Second, NewCache(30*time.Second, 100))

	verdict, err := v.Verify(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Valid {
		t.Fatal("empty token must not be valid")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("empty token must not hit the verification endpoint")
	}
}

func TestIntrospectorBearerHeaderAndVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("verification call method = %s, want POST", r.Method)
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer header, got %q", auth)
		}
		if strings.TrimPrefix(auth, "Bearer ") == "good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewIntrospector(srv.URL, time.Second, NewCache(30*time.Second, 100))

	verdict, err := v.Verify(context.Background(), "good", nil)
	if err != nil || !verdict.Valid {
		t.Fatalf("expected valid verdict, got %+v err=%v", verdict, err)
	}

	verdict, err = v.Verify(context.Background(), "bad", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Valid {
		t.Fatal("401 from the verification endpoint must mean invalid")
	}
}

func TestIntrospectorCachesWithinTTL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cache := NewCache(30*time.Second, 100)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return base }

	v := NewIntrospector(srv.URL, time.Second, cache)

	for i := 0; i < 5; i++ {
		verdict, err := v.Verify(context.Background(), "hot-token", nil)
		if err != nil || !verdict.Valid {
			t.Fatalf("call %d: verdict=%+v err=%v", i, verdict, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one endpoint call inside the TTL window, got %d", got)
	}

	// Past the TTL the verdict is recomputed once.
	cache.clock = func() time.Time { return base.Add(31 * time.Second) }
	if _, err := v.Verify(context.Background(), "hot-token", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected a second endpoint call after the TTL, got %d", got)
	}
}

func TestIntrospectorCachesInvalidVerdicts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewIntrospector(srv.URL, time.Second, NewCache(30*time.Second, 100))

	for i := 0; i < 3; i++ {
		verdict, err := v.Verify(context.Background(), "bad-token", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if verdict.Valid {
			t.Fatal("expected invalid verdict")
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("invalid verdicts must be cached, got %d endpoint calls", got)
	}
}

func TestIntrospectorUnreachableEndpointFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	v := NewIntrospector(srv.URL, 500*time.Millisecond, NewCache(30*time.Second, 100))

	verdict, err := v.Verify(context.Background(), "tok", nil)
	if err != nil {
		t.Fatalf("network failure should yield an invalid verdict, not an error: %v", err)
	}
	if verdict.Valid {
		t.Fatal("unreachable endpoint must never grant access")
	}
}
