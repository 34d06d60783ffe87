package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MattiaPrimavera/yass/internal/fingerprint"
	"github.com/MattiaPrimavera/yass/pkg/useragent"
)

func newTestFetcher(t *testing.T, cfg Config) *Fetcher {
	t.Helper()
	cfg.Fingerprint = fingerprint.ProfileGo
	fetcher, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return fetcher
}

func TestFetch_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected User-Agent header")
		}
		if r.Header.Get("Accept") == "" {
			t.Errorf("expected Accept header")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>results</html>"))
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, Config{
		Timeout: 5 * time.Second,
		UAPool:  useragent.NewPool([]string{"TestBrowser/1.0"}),
	})

	page, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if string(page.Body) != "<html>results</html>" {
		t.Errorf("unexpected body %q", page.Body)
	}
	if page.ID == "" {
		t.Errorf("expected non-empty page ID")
	}
	if page.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, Config{})

	_, err := fetcher.Fetch(context.Background(), ts.URL)
	if err == nil {
		t.Fatalf("expected error for 404")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404 in error, got %d", fetchErr.StatusCode)
	}
}

func TestFetch_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, Config{Timeout: 10 * time.Millisecond})

	_, err := fetcher.Fetch(context.Background(), ts.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Err == nil {
		t.Errorf("expected wrapped network error")
	}
}

func TestFetch_ChallengeDetected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="g-recaptcha"></div>`))
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, Config{})

	_, err := fetcher.Fetch(context.Background(), ts.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Challenge != "captcha" {
		t.Errorf("expected captcha challenge, got %q", fetchErr.Challenge)
	}
}

func TestFetch_ContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fetcher.Fetch(ctx, ts.URL); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}

func TestFetch_UARotation(t *testing.T) {
	var agents []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, Config{
		UAPool: useragent.NewPool([]string{"A/1.0", "B/2.0"}),
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := fetcher.Fetch(ctx, ts.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(agents) != 2 || agents[0] == agents[1] {
		t.Errorf("expected rotating User-Agents, got %v", agents)
	}
}
