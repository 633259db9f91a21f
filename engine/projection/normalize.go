// Package projection reshapes raw store records into the canonical wire
// model. Every function here is pure and total: malformed input degrades to
// empty fields, never to an error, so one bad row cannot sink a whole result.
package projection

import (
	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/record"
)

// nodeNameKeys is the display-name fallback chain across all schema
// generations, generic keys first, then type-specific pairs in both casings.
var nodeNameKeys = []string{
	"name", "title",
	"entity_name", "Entity Name",
	"relationship_name", "Relationship NAME",
	"country_name", "Country Name",
	"action_text", "Action Text",
	"result_name", "Result Name",
	"process_name", "Process Name",
	"recipient_name", "Recipient Name",
	"summary", "Summary",
}

// nodeCanonicalKeys are properties that land in a canonical output slot and
// must not be duplicated by the passthrough copy.
var nodeCanonicalKeys = map[string]bool{
	"id":        true,
	"gid":       true,
	"elementId": true,
	"node_type": true,
	"name":      true,
	"section":   true,
	"category":  true,
	"color":     true,
	"highlight": true,
}

// NormalizeNode maps one raw node value onto the canonical Node. The id is
// the first present of gid, id, elementId/element_id, then the store-internal
// element id; the type is node_type/type or the first label, normalized; the
// name walks the fallback chain and lands on the id when nothing matches.
// Non-null properties outside the canonical slots pass through under their
// original keys. Idempotent: feeding a normalized node back in is a no-op.
func NormalizeNode(v record.Value) domain.Node {
	e := v.AsEntity()
	if e == nil {
		return domain.Node{}
	}

	id := firstString(v, "gid", "id", "elementId", "element_id")
	if id == "" {
		id = e.ElementID
	}

	typ := firstString(v, "node_type", "type")
	if typ == "" && len(e.Labels) > 0 {
		typ = e.Labels[0]
	}
	typ = domain.NormalizeLabel(typ)

	name := firstString(v, nodeNameKeys...)
	if name == "" {
		name = id
	}

	section := firstString(v, "section", "section_id")

	extra := make(map[string]any, len(e.Props))
	for k, pv := range e.Props {
		if pv.IsNull() || nodeCanonicalKeys[k] {
			continue
		}
		extra[k] = pv.ToAny()
	}
	if gid := v.Get("gid"); !gid.IsNull() {
		extra["gid"] = gid.ToAny()
	}
	if eid := firstString(v, "elementId", "element_id"); eid != "" {
		extra["elementId"] = eid
	} else if e.ElementID != "" {
		extra["elementId"] = e.ElementID
	}
	highlight := false
	if b, ok := v.Get("highlight").Scalar().(bool); ok {
		highlight = b
	}
	extra["highlight"] = highlight

	return domain.Node{ID: id, Type: typ, Name: name, Section: section, Extra: extra}
}

var linkCanonicalKeys = map[string]bool{
	"id":       true,
	"gid":      true,
	"sourceId": true,
	"targetId": true,
	"from_gid": true,
	"to_gid":   true,
	"title":    true,
	"label":    true,
	"category": true,
	"type":     true,
}

// NormalizeLink maps one raw relationship value onto the canonical Link. Two
// shapes are accepted: the section-query envelope {rel, from, to, rel_type}
// carrying raw endpoint entities, and a flat map keyed gid/from_gid/to_gid
// (or source_id/target_id) as produced by hand-written queries.
func NormalizeLink(v record.Value) domain.Link {
	if rel := v.Get("rel"); !rel.IsNull() {
		l := flatLink(rel)
		if l.ID == "" {
			if e := rel.AsEntity(); e != nil {
				l.ID = e.ElementID
			}
		}
		l.SourceID = entityRefID(v.Get("from"))
		l.TargetID = entityRefID(v.Get("to"))
		if t := v.Get("rel_type").AsString(); t != "" {
			l.Type = t
		} else if e := rel.AsEntity(); e != nil && len(e.Labels) > 0 {
			l.Type = e.Labels[0]
		}
		if l.Type == "" {
			l.Type = "Entity_Relationship"
		}
		return l
	}
	l := flatLink(v)
	if l.SourceID == "" {
		l.SourceID = firstString(v, "source_id", "sourceId")
	}
	if l.TargetID == "" {
		l.TargetID = firstString(v, "target_id", "targetId")
	}
	return l
}

func flatLink(v record.Value) domain.Link {
	e := v.AsEntity()
	if e == nil {
		return domain.Link{Type: "Entity_Relationship"}
	}
	l := domain.Link{
		ID:       firstString(v, "gid", "id"),
		SourceID: v.Get("from_gid").AsString(),
		TargetID: v.Get("to_gid").AsString(),
		Title:    firstString(v, "article_title", "Article Title"),
		Label:    firstString(v, "relationship_summary", "Relationship Summary"),
		Type:     v.Get("type").AsString(),
	}
	if l.Type == "" {
		l.Type = "Entity_Relationship"
	}
	l.Extra = make(map[string]any, len(e.Props))
	for k, pv := range e.Props {
		if pv.IsNull() || linkCanonicalKeys[k] {
			continue
		}
		l.Extra[k] = pv.ToAny()
	}
	return l
}

// entityRefID extracts a stable node reference from an endpoint entity.
func entityRefID(v record.Value) string {
	if id := firstString(v, "gid", "id"); id != "" {
		return id
	}
	if e := v.AsEntity(); e != nil {
		return e.ElementID
	}
	return ""
}

// firstString walks a property fallback chain and returns the first non-empty
// stringification.
func firstString(v record.Value, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k).AsString(); s != "" {
			return s
		}
	}
	return ""
}
