package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/explore"
	"github.com/storygraph/storygraph/pkg/repo"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var resErr *domain.ResolutionError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &resErr) && resErr.Ambiguous():
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamTransient):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func handleHealth(exec *repo.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		store := "up"
		if err := exec.Ping(ctx); err != nil {
			store = "down"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": store})
	}
}

func handleStories(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stories, err := svc.Stories(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stories)
	}
}

func handleStoryStatistics(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.StoryStatistics(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleGraph(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		graph, err := svc.Subgraph(r.Context(), r.PathValue("section"), "")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, graph)
	}
}

func handleGraphByCountry(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		graph, err := svc.Subgraph(r.Context(), r.PathValue("section"), r.PathValue("name"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, graph)
	}
}

// handleGraphByPath serves the legacy ?graph_path= form, where the value is
// the composite membership key itself.
func handleGraphByPath(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("graph_path")
		if path == "" {
			writeError(w, logger, domain.NewArgumentError("graph_path", "required"))
			return
		}
		graph, err := svc.Subgraph(r.Context(), path, "")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, graph)
	}
}

func handleCalendar(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		identifier := firstNonEmpty(
			q.Get("section"), q.Get("section_gid"),
			q.Get("section_query"), q.Get("section_title"))
		if identifier == "" {
			writeError(w, logger, domain.NewArgumentError("section", "required"))
			return
		}
		payload, err := svc.Timeline(r.Context(), identifier)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func handleCluster(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := domain.ClusterRequest{
			NodeType:     q.Get("node_type"),
			PropertyKey:  q.Get("property_key"),
			SectionScope: q.Get("section_query"),
			ClusterLimit: intParam(q.Get("cluster_limit")),
			SampleLimit:  intParam(q.Get("node_limit")),
		}
		clusters, err := svc.Cluster(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
	}
}

func handleNodeTypes(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.NodeTypes(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, types)
	}
}

// CypherRequest is the JSON body for POST /api/cypher/execute.
type CypherRequest struct {
	Query string `json:"query"`
}

func handleCypherExecute(svc *explore.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CypherRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, domain.NewArgumentError("body", "invalid json"))
			return
		}
		result, err := svc.RunQuery(r.Context(), req.Query)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func intParam(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
