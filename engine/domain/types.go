// Package domain defines the canonical wire types and error taxonomy for the
// graph projection engine. Everything here is shaped for the browser client:
// flat node/link objects with stable ids and normalized type names.
package domain

import "encoding/json"

// Node is the canonical displayable graph entity. Extra holds type-specific
// properties passed through from the store under their original keys; they are
// folded into the top-level JSON object on marshal.
type Node struct {
	ID      string `json:"id"`
	Type    string `json:"node_type"`
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`

	Extra map[string]any `json:"-"`
}

// Link is the canonical relationship between two nodes. SourceID and TargetID
// reference Node.ID values; the engine does not prune links whose endpoints
// are missing from the accompanying node set (truncated multi-hop fetches).
type Link struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Label    string `json:"label,omitempty"`

	Extra map[string]any `json:"-"`
}

// GraphData is the render-ready node/link model returned to the client.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// NodeRef is a minimal node reference used in cluster samples.
type NodeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClusterResult groups nodes sharing one value of the clustered property.
type ClusterResult struct {
	Value       string    `json:"value"`
	Count       int64     `json:"count"`
	SampleNodes []NodeRef `json:"nodes"`
}

// TimelineItem is a dated, sequence-ordered entity. Priority is the fixed
// type-priority used as the tie-break after date (lower sorts earlier).
type TimelineItem struct {
	ID          string         `json:"id"`
	Type        string         `json:"node_type"`
	Date        string         `json:"date"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Priority    int            `json:"type_priority"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// FloatingItem is an undated entity; the client positions it from its
// connections to timeline items.
type FloatingItem struct {
	ID         string         `json:"id"`
	Type       string         `json:"node_type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// TimelinePayload is the calendar view of a section.
type TimelinePayload struct {
	SectionKey    string         `json:"section_key"`
	SectionTitle  string         `json:"section_title,omitempty"`
	TimelineItems []TimelineItem `json:"timeline_items"`
	FloatingItems []FloatingItem `json:"floating_items"`
	Relationships []Link         `json:"relationships"`
}

// Section is one caller-addressable subdivision of a story.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Num   int64  `json:"section_num,omitempty"`
	Brief string `json:"brief,omitempty"`
	Query string `json:"section_query,omitempty"`
}

// Chapter groups sections within a story.
type Chapter struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Number     int64     `json:"chapter_number,omitempty"`
	Sections   []Section `json:"sections"`
	TotalNodes int64     `json:"total_nodes"`
}

// Story is the top of the catalog hierarchy.
type Story struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Brief    string    `json:"brief,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// StoryStats summarises one story's graph content.
type StoryStats struct {
	StoryID          string `json:"story_id"`
	TotalNodes       int64  `json:"total_nodes"`
	EntityCount      int64  `json:"entity_count"`
	HighlightedNodes int64  `json:"highlighted_nodes"`
	UpdatedDate      string `json:"updated_date,omitempty"`
}

// RawRows is the passthrough shape for query results that do not encode graph
// data (schema introspection, tabular aggregates).
type RawRows []map[string]any

// QueryResult is the shared response shape for verbatim query execution:
// either graph data or raw rows, never both populated.
type QueryResult struct {
	Graph         GraphData `json:"graphData"`
	Rows          RawRows   `json:"rawResults"`
	ExecutedQuery string    `json:"executedQuery"`
}

// ClusterRequest selects nodes for property-based clustering.
type ClusterRequest struct {
	NodeType     string
	PropertyKey  string
	SectionScope string // resolved membership key, empty = all sections
	ClusterLimit int
	SampleLimit  int
}

// MarshalJSON folds Extra into the top-level object. Canonical keys win over
// extras on collision.
func (n Node) MarshalJSON() ([]byte, error) {
	return marshalFlat(n.Extra, map[string]any{
		"id":        n.ID,
		"node_type": n.Type,
		"name":      n.Name,
		"section":   omitEmpty(n.Section),
	})
}

// MarshalJSON folds Extra into the top-level object.
func (l Link) MarshalJSON() ([]byte, error) {
	return marshalFlat(l.Extra, map[string]any{
		"id":       l.ID,
		"sourceId": l.SourceID,
		"targetId": l.TargetID,
		"type":     l.Type,
		"title":    omitEmpty(l.Title),
		"label":    omitEmpty(l.Label),
	})
}

func marshalFlat(extra map[string]any, canonical map[string]any) ([]byte, error) {
	out := make(map[string]any, len(extra)+len(canonical))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range canonical {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

func omitEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
