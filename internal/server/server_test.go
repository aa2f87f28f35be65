package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	shakerr "github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/manifest"
	"github.com/matzehuels/shakify/pkg/result"
)

type fakeService struct {
	calls    atomic.Int32
	refresh  atomic.Int32
	cleared  atomic.Bool
	gate     chan struct{}
	mu       sync.Mutex
	packages []string
}

func (f *fakeService) Analyze(ctx context.Context, pkg string, refresh bool) (*result.Result, error) {
	f.calls.Add(1)
	if refresh {
		f.refresh.Add(1)
	}
	f.mu.Lock()
	f.packages = append(f.packages, pkg)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	switch pkg {
	case "missing":
		return nil, shakerr.New(shakerr.ErrCodePackageNotFound, "Package %q not found", pkg)
	case "flaky":
		return nil, shakerr.New(shakerr.ErrCodeNetwork, "registry unavailable")
	case "Bad Name":
		return nil, shakerr.New(shakerr.ErrCodeInvalidPackage, "invalid package name")
	case "boom":
		return nil, shakerr.New(shakerr.ErrCodeMaterialize, "disk full")
	case "throttled":
		return nil, shakerr.Wrap(shakerr.ErrCodeNetwork,
			&shakerr.RateLimitedError{RetryAfter: 30 * time.Second}, "fetch metadata for throttled")
	}
	return &result.Result{
		Analysis: manifest.Fields{SideEffects: json.RawMessage("false"), TreeShakeable: true, ESMSupport: true},
		ExportSizes: []result.ExportMeasurement{
			{ExportName: ".", Size: 120, GzippedSize: 90, BrotliSize: 80},
		},
		Version: "1.0.0",
	}, nil
}

func (f *fakeService) Clear(ctx context.Context) (bool, error) {
	return !f.cleared.Swap(true), nil
}

func newTestServer(t *testing.T, svc Service, opts Options) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(svc, opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestAnalyze(t *testing.T) {
	svc := &fakeService{}
	ts := newTestServer(t, svc, Options{})

	resp, body := do(t, http.MethodGet, ts.URL+"/v1/packages/demo")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got result.Result
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != "1.0.0" || len(got.ExportSizes) != 1 || got.ExportSizes[0].Size != 120 {
		t.Errorf("result = %+v", got)
	}
	if got.Cached {
		t.Error("first response should not be cached")
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing request id")
	}
}

func TestAnalyzeScopedName(t *testing.T) {
	for _, path := range []string{"/v1/packages/@scope/pkg", "/v1/packages/@scope%2fpkg"} {
		t.Run(path, func(t *testing.T) {
			svc := &fakeService{}
			ts := newTestServer(t, svc, Options{FrontCacheSize: -1})
			resp, body := do(t, http.MethodGet, ts.URL+path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
			}
			svc.mu.Lock()
			defer svc.mu.Unlock()
			if len(svc.packages) != 1 || svc.packages[0] != "@scope/pkg" {
				t.Errorf("packages = %v", svc.packages)
			}
		})
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		pkg    string
		status int
		code   shakerr.Code
	}{
		{"missing", http.StatusNotFound, shakerr.ErrCodePackageNotFound},
		{"flaky", http.StatusBadGateway, shakerr.ErrCodeNetwork},
		{"Bad%20Name", http.StatusBadRequest, shakerr.ErrCodeInvalidPackage},
		{"boom", http.StatusInternalServerError, shakerr.ErrCodeMaterialize},
		{"throttled", http.StatusTooManyRequests, shakerr.ErrCodeRateLimited},
	}
	ts := newTestServer(t, &fakeService{}, Options{})
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, ts.URL+"/v1/packages/"+tt.pkg)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var e errorBody
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatalf("decode: %v (%s)", err, body)
			}
			if e.Code != tt.code || e.Message == "" {
				t.Errorf("error = %+v, want code %s", e, tt.code)
			}
		})
	}
}

func TestAnalyzeBadRefresh(t *testing.T) {
	ts := newTestServer(t, &fakeService{}, Options{})
	resp, _ := do(t, http.MethodGet, ts.URL+"/v1/packages/demo?refresh=maybe")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestFrontCache(t *testing.T) {
	svc := &fakeService{}
	ts := newTestServer(t, svc, Options{FrontCacheTTL: time.Minute})

	do(t, http.MethodGet, ts.URL+"/v1/packages/demo")
	resp, body := do(t, http.MethodGet, ts.URL+"/v1/packages/demo")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if n := svc.calls.Load(); n != 1 {
		t.Errorf("service calls = %d, want 1", n)
	}
	var got result.Result
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Cached {
		t.Error("second response should be cached")
	}

	do(t, http.MethodGet, ts.URL+"/v1/packages/demo?refresh=true")
	if n := svc.refresh.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
}

func TestFrontCacheDisabled(t *testing.T) {
	svc := &fakeService{}
	ts := newTestServer(t, svc, Options{FrontCacheSize: -1})
	do(t, http.MethodGet, ts.URL+"/v1/packages/demo")
	do(t, http.MethodGet, ts.URL+"/v1/packages/demo")
	if n := svc.calls.Load(); n != 2 {
		t.Errorf("service calls = %d, want 2", n)
	}
}

func TestConcurrentRequestsCollapse(t *testing.T) {
	svc := &fakeService{gate: make(chan struct{})}
	ts := newTestServer(t, svc, Options{FrontCacheSize: -1})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/v1/packages/demo")
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(svc.gate)
	wg.Wait()

	if n := svc.calls.Load(); n < 1 || n > 5 {
		t.Errorf("service calls = %d", n)
	}
}

func TestClear(t *testing.T) {
	svc := &fakeService{}
	ts := newTestServer(t, svc, Options{})

	do(t, http.MethodGet, ts.URL+"/v1/packages/demo")
	resp, body := do(t, http.MethodDelete, ts.URL+"/v1/cache")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]bool
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if !got["cleared"] {
		t.Errorf("body = %s", body)
	}

	do(t, http.MethodGet, ts.URL+"/v1/packages/demo")
	if n := svc.calls.Load(); n != 2 {
		t.Errorf("service calls after clear = %d, want 2", n)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newTestServer(t, &fakeService{}, Options{Registry: reg})

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "shakify_http_requests_total") {
		t.Error("metrics missing shakify_http_requests_total")
	}
}

func TestRequestIDReused(t *testing.T) {
	ts := newTestServer(t, &fakeService{}, Options{})
	const id = "3f1c2d8e-9a4b-4c5d-8e6f-7a8b9c0d1e2f"
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}

func TestRateLimitedRetryAfter(t *testing.T) {
	ts := newTestServer(t, &fakeService{}, Options{})
	resp, _ := do(t, http.MethodGet, ts.URL+"/v1/packages/throttled")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{shakerr.New(shakerr.ErrCodeNotFound, "x"), http.StatusNotFound},
		{shakerr.New(shakerr.ErrCodeInvalidManifest, "x"), http.StatusBadRequest},
		{shakerr.New(shakerr.ErrCodeIntegrityMismatch, "x"), http.StatusBadGateway},
		{shakerr.New(shakerr.ErrCodeBundle, "x"), http.StatusInternalServerError},
		{shakerr.Wrap(shakerr.ErrCodeNetwork, &shakerr.RateLimitedError{}, "x"), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
