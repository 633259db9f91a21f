// Package schema isolates everything that differs between the graph store's
// label/property generations. Three incompatible conventions coexist in
// production databases; exactly one Adapter is active per deployment,
// selected from configuration at startup and never re-detected per call.
package schema

import (
	"context"
	"fmt"

	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/record"
)

// Executor runs one parameterized read query and returns its rows.
type Executor interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]record.Record, error)
}

// KeyKind discriminates how a SectionKey selects membership.
type KeyKind int

const (
	// KeyQuery: content nodes carry the key as a shared property value
	// (gen v1: n.section = key).
	KeyQuery KeyKind = iota
	// KeyGID: content nodes cross-reference the section's stable id
	// (gen v2: n.section_id = key).
	KeyGID
	// KeyLinked: membership is a relationship to the section node
	// (gen v3: (n)-[:IN_SECTION]->(section {id: key})).
	KeyLinked
)

// SectionKey is the resolved, generation-specific membership key for one
// section. Exactly one key resolves per caller-supplied identifier or
// resolution fails explicitly.
type SectionKey struct {
	Kind  KeyKind
	Value string
	Title string
}

// Adapter builds the read queries for one schema generation. Builders are
// pure: identical input yields identical output.
type Adapter interface {
	Generation() string

	// ResolveSection turns a caller-supplied identifier (stable id, display
	// title, or legacy composite string) into the membership key.
	ResolveSection(ctx context.Context, exec Executor, identifier string) (SectionKey, error)

	// SubgraphQuery selects a section's content nodes and the relationships
	// between them; countryFilter narrows to entities within two hops of the
	// named country. Empty countryFilter means the whole section.
	SubgraphQuery(key SectionKey, countryFilter string) (string, map[string]any)

	// ClusterQuery groups nodes of one normalized type by a property value.
	ClusterQuery(req domain.ClusterRequest) (string, map[string]any)

	// TimelineQuery selects a section's content nodes with their dates and
	// all intra-section relationships for calendar classification.
	TimelineQuery(key SectionKey) (string, map[string]any)

	// StoriesQuery lists the story/chapter/section catalog.
	StoriesQuery() (string, map[string]any)

	// StoryStatsQuery summarises one story's content nodes.
	StoryStatsQuery(storyID string) (string, map[string]any)

	// NodeTypesQuery lists the distinct content labels present in the store.
	NodeTypesQuery() (string, map[string]any)
}

// Select returns the adapter for the named generation.
func Select(generation string) (Adapter, error) {
	switch generation {
	case "v1", "":
		return TitleCase{}, nil
	case "v2":
		return SnakeCase{}, nil
	case "v3":
		return Linked{}, nil
	default:
		return nil, fmt.Errorf("unknown schema generation %q", generation)
	}
}

// resolveStrategy is one attempt at matching a caller identifier to a section
// row. The query must return columns "key" and "title" for each candidate.
type resolveStrategy struct {
	cypher string
	// unique marks strategies matching a unique key field; those cannot be
	// ambiguous, so extra rows are a data defect handled as first-row-wins.
	unique bool
}

// resolve runs strategies in order. The first strategy returning exactly one
// row wins. More than one row from a non-unique strategy is surfaced as an
// explicit ambiguity instead of silently taking the first candidate.
func resolve(ctx context.Context, exec Executor, identifier string, kind KeyKind, strategies []resolveStrategy) (SectionKey, error) {
	if err := domain.ValidateIdentifier("section", identifier); err != nil {
		return SectionKey{}, err
	}
	params := map[string]any{"identifier": identifier}
	for _, st := range strategies {
		rows, err := exec.Query(ctx, st.cypher, params)
		if err != nil {
			return SectionKey{}, fmt.Errorf("resolve section %q: %w", identifier, err)
		}
		switch {
		case len(rows) == 0:
			continue
		case len(rows) == 1 || st.unique:
			row := rows[0]
			key := row.Get("key").AsString()
			if key == "" {
				continue
			}
			return SectionKey{
				Kind:  kind,
				Value: key,
				Title: row.Get("title").AsString(),
			}, nil
		default:
			return SectionKey{}, &domain.ResolutionError{Identifier: identifier, Matches: len(rows)}
		}
	}
	return SectionKey{}, &domain.ResolutionError{Identifier: identifier}
}
