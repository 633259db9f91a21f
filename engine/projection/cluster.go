package projection

import (
	"sort"

	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/record"
)

// ShapeClusters converts cluster rows (columns value, count, nodes) into
// ClusterResults, re-enforcing the limits and the count-desc, value-asc
// ordering regardless of what the store returned. Rows with an empty value
// are dropped.
func ShapeClusters(records []record.Record, clusterLimit, sampleLimit int) []domain.ClusterResult {
	out := make([]domain.ClusterResult, 0, len(records))
	for _, rec := range records {
		value := rec.Get("value").AsString()
		if value == "" {
			continue
		}
		cr := domain.ClusterResult{
			Value:       value,
			SampleNodes: []domain.NodeRef{},
		}
		if c, ok := rec.Get("count").Scalar().(int64); ok {
			cr.Count = c
		}
		for _, nv := range rec.Get("nodes").AsList() {
			if len(cr.SampleNodes) >= sampleLimit {
				break
			}
			id := nv.Get("id").AsString()
			if id == "" {
				continue
			}
			cr.SampleNodes = append(cr.SampleNodes, domain.NodeRef{
				ID:   id,
				Name: nv.StringOr("name", id),
			})
		}
		out = append(out, cr)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > clusterLimit {
		out = out[:clusterLimit]
	}
	return out
}
