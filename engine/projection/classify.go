package projection

import (
	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/record"
)

// schemaRowKeys mark introspection output (db.schema.nodeTypeProperties and
// friends). Rows carrying any of them without a gid are tabular, not graph.
var schemaRowKeys = []string{"nodeType", "properties", "propertyName", "mandatory"}

// nodeLikeKeys identify an entity column worth treating as a displayable node
// when a hand-written query returns bare nodes instead of an envelope.
var nodeLikeKeys = []string{"gid", "entity_name", "Entity Name", "properties"}

// Classify decides whether arbitrary read-query results encode graph data and
// shapes them accordingly. Exactly one of Graph and Rows is populated:
// schema-introspection rows and rows from which no node or link can be
// extracted pass through unchanged, anything else is normalized and
// deduplicated. Classification never fails.
func Classify(records []record.Record) domain.QueryResult {
	res := domain.QueryResult{
		Graph: domain.GraphData{Nodes: []domain.Node{}, Links: []domain.Link{}},
		Rows:  domain.RawRows{},
	}
	if len(records) == 0 {
		return res
	}

	if isSchemaRow(records[0]) {
		res.Rows = toRawRows(records)
		return res
	}

	var nodes []domain.Node
	var links []domain.Link
	for _, rec := range records {
		n, l := extractGraph(rec)
		nodes = append(nodes, n...)
		links = append(links, l...)
	}

	graph := Merge(nodes, links)
	if len(graph.Nodes) == 0 && len(graph.Links) == 0 {
		res.Rows = toRawRows(records)
		return res
	}
	res.Graph = graph
	return res
}

func isSchemaRow(rec record.Record) bool {
	if rec.Has("gid") {
		return false
	}
	for _, k := range schemaRowKeys {
		if rec.Has(k) {
			return true
		}
	}
	return false
}

// extractGraph pulls nodes and links out of one row, recognising the known
// envelopes first and falling back to scanning columns for node-like
// entities.
func extractGraph(rec record.Record) ([]domain.Node, []domain.Link) {
	if gd := rec.Get("graphData"); !gd.IsNull() {
		return Envelope(gd)
	}
	if rec.Has("nodes") && rec.Has("links") {
		return normalizeLists(rec.Get("nodes"), rec.Get("links"))
	}
	if r := rec.Get("result"); !r.IsNull() {
		return Envelope(r)
	}

	var nodes []domain.Node
	for _, key := range rec.Keys {
		v := rec.Get(key)
		if v.AsEntity() == nil {
			continue
		}
		for _, k := range nodeLikeKeys {
			if !v.Get(k).IsNull() {
				nodes = append(nodes, NormalizeNode(v))
				break
			}
		}
	}
	return nodes, nil
}

// Envelope normalizes a {nodes, links} map value as returned by the section
// queries.
func Envelope(v record.Value) ([]domain.Node, []domain.Link) {
	if v.AsEntity() == nil {
		return nil, nil
	}
	return normalizeLists(v.Get("nodes"), v.Get("links"))
}

func normalizeLists(nodeList, linkList record.Value) ([]domain.Node, []domain.Link) {
	var nodes []domain.Node
	for _, nv := range nodeList.AsList() {
		if nv.AsEntity() != nil {
			nodes = append(nodes, NormalizeNode(nv))
		}
	}
	var links []domain.Link
	for _, lv := range linkList.AsList() {
		if lv.AsEntity() != nil {
			links = append(links, NormalizeLink(lv))
		}
	}
	return nodes, links
}

func toRawRows(records []record.Record) domain.RawRows {
	rows := make(domain.RawRows, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.ToMap())
	}
	return rows
}
