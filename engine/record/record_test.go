package record

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

func TestFromAnyNode(t *testing.T) {
	v := FromAny(dbtype.Node{
		ElementId: "4:abc:17",
		Labels:    []string{"Entity"},
		Props:     map[string]any{"gid": int64(42), "Entity Name": "Acme Corp"},
	})

	e := v.AsEntity()
	if e == nil {
		t.Fatal("expected entity")
	}
	if e.ElementID != "4:abc:17" {
		t.Fatalf("elementID = %q", e.ElementID)
	}
	if len(e.Labels) != 1 || e.Labels[0] != "Entity" {
		t.Fatalf("labels = %v", e.Labels)
	}
	if got := v.Get("gid").AsString(); got != "42" {
		t.Fatalf("gid = %q, want 42", got)
	}
	if got := v.Get("Entity Name").AsString(); got != "Acme Corp" {
		t.Fatalf("name = %q", got)
	}
}

func TestFromAnyRelationship(t *testing.T) {
	v := FromAny(dbtype.Relationship{
		ElementId: "5:abc:9",
		Type:      "Entity_Relationship",
		Props:     map[string]any{"Relationship Summary": "funds"},
	})

	e := v.AsEntity()
	if e == nil {
		t.Fatal("expected entity")
	}
	if len(e.Labels) != 1 || e.Labels[0] != "Entity_Relationship" {
		t.Fatalf("labels = %v", e.Labels)
	}
}

func TestFromAnyNested(t *testing.T) {
	v := FromAny(map[string]any{
		"nodes": []any{
			map[string]any{"gid": int64(1)},
			map[string]any{"gid": int64(2)},
		},
	})

	list := v.Get("nodes").AsList()
	if len(list) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(list))
	}
	if got := list[1].Get("gid").AsString(); got != "2" {
		t.Fatalf("second gid = %q", got)
	}
}

func TestAsStringScalars(t *testing.T) {
	ts := time.Date(2021, 6, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", "hello"},
		{"int64", int64(7), "7"},
		{"float", 2.5, "2.5"},
		{"bool", true, "true"},
		{"time", ts, "2021-06-30T12:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromAny(tt.in).AsString(); got != tt.want {
				t.Fatalf("AsString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if got := Null.AsString(); got != "" {
		t.Fatalf("null AsString = %q", got)
	}
	if got := FromAny(map[string]any{}).AsString(); got != "" {
		t.Fatalf("entity AsString = %q", got)
	}
}

func TestFirstOf(t *testing.T) {
	v := FromAny(map[string]any{
		"title":       "Fallback Title",
		"entity_name": nil,
	})

	if got := v.FirstOf("name", "title").AsString(); got != "Fallback Title" {
		t.Fatalf("FirstOf = %q", got)
	}
	if !v.FirstOf("name", "entity_name").IsNull() {
		t.Fatal("expected null for all-missing chain")
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord([]string{"a", "b", "c"}, []any{int64(1), "x"})

	if got := rec.Get("a").AsString(); got != "1" {
		t.Fatalf("a = %q", got)
	}
	if !rec.Get("c").IsNull() {
		t.Fatal("missing value should be null")
	}
	if rec.Has("d") {
		t.Fatal("d should not exist")
	}
}

func TestToMapRoundsTrips(t *testing.T) {
	rec := NewRecord([]string{"n", "count"}, []any{
		map[string]any{"gid": int64(3), "tags": []any{"a", "b"}},
		int64(5),
	})

	m := rec.ToMap()
	if m["count"] != int64(5) {
		t.Fatalf("count = %v", m["count"])
	}
	inner, ok := m["n"].(map[string]any)
	if !ok {
		t.Fatalf("n = %T", m["n"])
	}
	if inner["gid"] != int64(3) {
		t.Fatalf("gid = %v", inner["gid"])
	}
	tags, ok := inner["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("tags = %v", inner["tags"])
	}
}
