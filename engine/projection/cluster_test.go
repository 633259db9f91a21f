package projection

import (
	"testing"

	"github.com/storygraph/storygraph/engine/record"
)

func clusterRow(value string, count int64, samples ...string) record.Record {
	nodes := make([]any, 0, len(samples))
	for _, name := range samples {
		nodes = append(nodes, map[string]any{"id": name + "-id", "name": name})
	}
	return record.NewRecord([]string{"value", "count", "nodes"}, []any{value, count, nodes})
}

func TestShapeClustersOrdering(t *testing.T) {
	rows := []record.Record{
		clusterRow("beta", 3, "b1"),
		clusterRow("alpha", 7, "a1", "a2"),
		clusterRow("delta", 3, "d1"),
	}

	out := ShapeClusters(rows, 5, 10)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
	// count desc, then value asc for ties
	if out[0].Value != "alpha" || out[1].Value != "beta" || out[2].Value != "delta" {
		t.Fatalf("order = %q, %q, %q", out[0].Value, out[1].Value, out[2].Value)
	}
	if out[0].Count != 7 {
		t.Fatalf("count = %d", out[0].Count)
	}
	if len(out[0].SampleNodes) != 2 || out[0].SampleNodes[0].ID != "a1-id" {
		t.Fatalf("samples = %+v", out[0].SampleNodes)
	}
}

func TestShapeClustersBounds(t *testing.T) {
	rows := []record.Record{
		clusterRow("a", 5, "n1", "n2", "n3"),
		clusterRow("b", 4, "n1"),
		clusterRow("c", 3, "n1"),
	}

	out := ShapeClusters(rows, 2, 1)
	if len(out) != 2 {
		t.Fatalf("cluster limit not enforced: %d", len(out))
	}
	if len(out[0].SampleNodes) != 1 {
		t.Fatalf("sample limit not enforced: %d", len(out[0].SampleNodes))
	}
}

func TestShapeClustersDropsEmptyValues(t *testing.T) {
	rows := []record.Record{
		clusterRow("", 9, "x"),
		clusterRow("kept", 1, "y"),
	}
	out := ShapeClusters(rows, 5, 10)
	if len(out) != 1 || out[0].Value != "kept" {
		t.Fatalf("out = %+v", out)
	}
}

func TestShapeClustersEmptyInput(t *testing.T) {
	out := ShapeClusters(nil, 5, 10)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", out)
	}
}
