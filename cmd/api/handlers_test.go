package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storygraph/storygraph/engine/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("section: %w", domain.ErrNotFound), http.StatusNotFound},
		{"no resolution match", &domain.ResolutionError{Identifier: "x"}, http.StatusNotFound},
		{"ambiguous resolution", &domain.ResolutionError{Identifier: "x", Matches: 3}, http.StatusBadRequest},
		{"invalid argument", domain.NewArgumentError("query", "required"), http.StatusBadRequest},
		{"transient upstream", fmt.Errorf("store: %w", domain.ErrUpstreamTransient), http.StatusServiceUnavailable},
		{"fatal upstream", fmt.Errorf("store: %w", domain.ErrUpstreamFatal), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, discardLogger(), tt.err)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] == "" {
				t.Fatal("missing error message")
			}
		})
	}
}

func TestHandleGraphByPathRequiresParam(t *testing.T) {
	h := handleGraphByPath(nil, discardLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/graph", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCypherExecuteRejectsBadBody(t *testing.T) {
	h := handleCypherExecute(nil, discardLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/cypher/execute", io.NopCloser(badReader{}))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type badReader struct{}

func (badReader) Read([]byte) (int, error) { return 0, errors.New("broken body") }
