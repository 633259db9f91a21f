// Package explore serves the engine's read operations: section subgraphs,
// country-scoped views, property clustering, timelines, the story catalog,
// and verbatim query execution. It resolves identifiers through the active
// schema adapter, runs queries through the store executor, and projects raw
// rows into the canonical wire model.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/storygraph/storygraph/engine/activity"
	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/projection"
	"github.com/storygraph/storygraph/engine/schema"
	"github.com/storygraph/storygraph/pkg/metrics"
)

// Service is the explore orchestration service.
type Service struct {
	exec    schema.Executor
	adapter schema.Adapter
	events  activity.Recorder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Service. events and m may be nil.
func New(exec schema.Executor, adapter schema.Adapter, events activity.Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	if events == nil {
		events = activity.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{exec: exec, adapter: adapter, events: events, metrics: m, logger: logger}
}

// finish records metrics and an activity event for one operation.
func (s *Service) finish(ctx context.Context, op, target string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOp(op, start, err)
	}
	s.events.Record(ctx, activity.New(op, target, err))
}

// Subgraph returns the render-ready graph for one section, optionally
// narrowed to nodes within two hops of the named country. The identifier may
// be a stable id, a display title, or a legacy composite key.
func (s *Service) Subgraph(ctx context.Context, identifier, countryFilter string) (domain.GraphData, error) {
	start := time.Now()
	var err error
	defer func() { s.finish(ctx, "subgraph", identifier, start, err) }()

	key, err := s.adapter.ResolveSection(ctx, s.exec, identifier)
	if err != nil {
		return domain.GraphData{}, err
	}

	cypher, params := s.adapter.SubgraphQuery(key, countryFilter)
	rows, err := s.exec.Query(ctx, cypher, params)
	if err != nil {
		return domain.GraphData{}, err
	}

	var nodes []domain.Node
	var links []domain.Link
	for _, row := range rows {
		n, l := projection.Envelope(row.Get("graphData"))
		nodes = append(nodes, n...)
		links = append(links, l...)
	}
	graph := projection.Merge(nodes, links)
	s.logger.Info("subgraph served",
		"section", key.Value, "country", countryFilter,
		"nodes", len(graph.Nodes), "links", len(graph.Links))
	return graph, nil
}

// Cluster groups nodes of one type by a property value, optionally scoped to
// a section. Limits are clamped to the documented bounds before querying.
func (s *Service) Cluster(ctx context.Context, req domain.ClusterRequest) ([]domain.ClusterResult, error) {
	start := time.Now()
	var err error
	defer func() { s.finish(ctx, "cluster", req.NodeType, start, err) }()

	if err = domain.ValidateClusterRequest(&req); err != nil {
		return nil, err
	}
	if req.SectionScope != "" {
		var key schema.SectionKey
		key, err = s.adapter.ResolveSection(ctx, s.exec, req.SectionScope)
		if err != nil {
			return nil, err
		}
		req.SectionScope = key.Value
	}

	cypher, params := s.adapter.ClusterQuery(req)
	rows, qerr := s.exec.Query(ctx, cypher, params)
	if qerr != nil {
		err = qerr
		return nil, err
	}
	return projection.ShapeClusters(rows, req.ClusterLimit, req.SampleLimit), nil
}

// Timeline returns the calendar view of a section: dated items in display
// order, undated items, and the relationships anchoring them. A resolved but
// empty section yields empty collections, not an error.
func (s *Service) Timeline(ctx context.Context, identifier string) (domain.TimelinePayload, error) {
	start := time.Now()
	var err error
	defer func() { s.finish(ctx, "timeline", identifier, start, err) }()

	key, err := s.adapter.ResolveSection(ctx, s.exec, identifier)
	if err != nil {
		return domain.TimelinePayload{}, err
	}

	cypher, params := s.adapter.TimelineQuery(key)
	rows, qerr := s.exec.Query(ctx, cypher, params)
	if qerr != nil {
		err = qerr
		return domain.TimelinePayload{}, err
	}
	return projection.ShapeTimeline(rows, key.Value, key.Title), nil
}

// RunQuery executes a caller-supplied read query verbatim, after repairing
// legacy spaced property keys, and classifies the result into graph data or
// raw rows. Mutating queries are rejected before touching the store.
func (s *Service) RunQuery(ctx context.Context, query string) (domain.QueryResult, error) {
	start := time.Now()
	var err error
	defer func() { s.finish(ctx, "run_query", "", start, err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		err = domain.NewArgumentError("query", "required")
		return domain.QueryResult{}, err
	}
	if !LooksLikeCypher(query) {
		err = domain.NewArgumentError("query", "does not look like a cypher query")
		return domain.QueryResult{}, err
	}
	if mutatesGraph(query) {
		err = domain.NewArgumentError("query", "write clauses are not allowed")
		return domain.QueryResult{}, err
	}

	repaired := RepairQuery(query)
	rows, qerr := s.exec.Query(ctx, repaired, nil)
	if qerr != nil {
		if errors.Is(qerr, domain.ErrUpstreamTransient) {
			err = qerr
			return domain.QueryResult{}, err
		}
		// Bad query text, not a bad store.
		err = domain.NewArgumentError("query", fmt.Sprintf("execution failed: %v", qerr))
		return domain.QueryResult{}, err
	}

	res := projection.Classify(rows)
	res.ExecutedQuery = repaired
	return res, nil
}

// Stories lists the full story/chapter/section catalog in reading order.
func (s *Service) Stories(ctx context.Context) ([]domain.Story, error) {
	start := time.Now()
	var err error
	defer func() { s.finish(ctx, "stories", "", start, err) }()

	cypher, params := s.adapter.StoriesQuery()
	rows, qerr := s.exec.Query(ctx, cypher, params)
	if qerr != nil {
		err = qerr
		return nil, err
	}

	stories := make([]domain.Story, 0, len(rows))
	for _, row := range rows {
		sv := row.Get("story")
		if sv.Get("story_gid").IsNull() {
			continue
		}
		story := domain.Story{
			ID:       sv.Get("story_gid").AsString(),
			Title:    sv.Get("story_title").AsString(),
			Brief:    sv.Get("story_brief").AsString(),
			Chapters: []domain.Chapter{},
		}
		for _, cv := range sv.Get("chapters").AsList() {
			ch := domain.Chapter{
				ID:       cv.Get("gid").AsString(),
				Title:    cv.Get("chapter_title").AsString(),
				Sections: []domain.Section{},
			}
			if n, ok := cv.Get("chapter_number").Scalar().(int64); ok {
				ch.Number = n
			}
			for _, secv := range cv.Get("sections").AsList() {
				sec := domain.Section{
					ID:    secv.Get("gid").AsString(),
					Title: secv.Get("section_title").AsString(),
					Brief: secv.Get("brief").AsString(),
					Query: secv.Get("section_query").AsString(),
				}
				if n, ok := secv.Get("section_num").Scalar().(int64); ok {
					sec.Num = n
				}
				ch.Sections = append(ch.Sections, sec)
			}
			story.Chapters = append(story.Chapters, ch)
		}
		stories = append(stories, story)
	}
	return stories, nil
}

// StoryStatistics summarises one story's graph content.
func (s *Service) StoryStatistics(ctx context.Context, storyID string) (domain.StoryStats, error) {
	start := time.Now()
	var err error
	defer func() { s.finish(ctx, "story_statistics", storyID, start, err) }()

	if err = domain.ValidateIdentifier("story", storyID); err != nil {
		return domain.StoryStats{}, err
	}

	cypher, params := s.adapter.StoryStatsQuery(storyID)
	rows, qerr := s.exec.Query(ctx, cypher, params)
	if qerr != nil {
		err = qerr
		return domain.StoryStats{}, err
	}
	if len(rows) == 0 {
		err = fmt.Errorf("story %q: %w", storyID, domain.ErrNotFound)
		return domain.StoryStats{}, err
	}

	sv := rows[0].Get("statistics")
	if sv.Get("story_gid").IsNull() {
		err = fmt.Errorf("story %q: %w", storyID, domain.ErrNotFound)
		return domain.StoryStats{}, err
	}
	stats := domain.StoryStats{
		StoryID:     sv.Get("story_gid").AsString(),
		UpdatedDate: sv.Get("updated_date").AsString(),
	}
	if n, ok := sv.Get("total_nodes").Scalar().(int64); ok {
		stats.TotalNodes = n
	}
	if n, ok := sv.Get("entity_count").Scalar().(int64); ok {
		stats.EntityCount = n
	}
	if n, ok := sv.Get("highlighted_nodes").Scalar().(int64); ok {
		stats.HighlightedNodes = n
	}
	return stats, nil
}

// fallbackNodeTypes is served when the store cannot enumerate labels.
var fallbackNodeTypes = []string{
	"entity", "entity_gen", "relationship",
	"action", "process", "result", "event_attend",
	"funding", "amount", "disb_or_trans",
	"agency", "recipient", "dba",
	"country", "location", "place_of_performance", "region", "usaid_program_region",
	"description", "purpose", "transaction", "sub_agency",
}

// NodeTypes enumerates the distinct displayable node types, normalized. Falls
// back to a static list when the store query fails or returns nothing.
func (s *Service) NodeTypes(ctx context.Context) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { s.finish(ctx, "node_types", "", start, err) }()

	cypher, params := s.adapter.NodeTypesQuery()
	rows, qerr := s.exec.Query(ctx, cypher, params)
	if qerr != nil {
		s.logger.Warn("node type enumeration failed, serving fallback list", "error", qerr)
		return fallbackNodeTypes, nil
	}

	var types []string
	seen := make(map[string]bool)
	for _, row := range rows {
		t := domain.NormalizeLabel(row.Get("node_type").AsString())
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	if len(types) == 0 {
		return fallbackNodeTypes, nil
	}
	return types, nil
}
