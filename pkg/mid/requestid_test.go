package mid

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("no request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response header %q, context %q", got, seen)
	}
}

func TestRequestIDHonoursCallerHeader(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "caller-supplied" {
		t.Fatalf("context id = %q", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Fatalf("response header = %q", got)
	}
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := RequestIDFrom(req.Context()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

type observation struct {
	method string
	route  string
	status int
}

type fakeObserver struct {
	obs []observation
}

func (f *fakeObserver) ObserveHTTP(method, route string, status int, start time.Time) {
	f.obs = append(f.obs, observation{method, route, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/graph/{section}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	obs := &fakeObserver{}
	h := Metrics(obs, mux)(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/graph/story_1_sec_2", nil))

	if len(obs.obs) != 1 {
		t.Fatalf("observations = %+v", obs.obs)
	}
	got := obs.obs[0]
	if got.route != "GET /api/graph/{section}" {
		t.Fatalf("route label = %q, want the mux pattern", got.route)
	}
	if got.method != "GET" || got.status != http.StatusOK {
		t.Fatalf("observation = %+v", got)
	}
}

func TestMetricsLabelsUnmatchedRoutes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /known", func(w http.ResponseWriter, r *http.Request) {})
	obs := &fakeObserver{}
	h := Metrics(obs, mux)(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/no/such/path/12345", nil))

	if len(obs.obs) != 1 || obs.obs[0].route != "unmatched" {
		t.Fatalf("observations = %+v, want one with route \"unmatched\"", obs.obs)
	}
}
