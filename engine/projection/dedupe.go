package projection

import "github.com/storygraph/storygraph/engine/domain"

// Merge deduplicates nodes and links by id, first occurrence wins. Items with
// an empty id are dropped: they cannot be addressed by the client and usually
// come from partially-null optional matches. Output slices are never nil.
func Merge(nodes []domain.Node, links []domain.Link) domain.GraphData {
	out := domain.GraphData{
		Nodes: make([]domain.Node, 0, len(nodes)),
		Links: make([]domain.Link, 0, len(links)),
	}

	seenNodes := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ID == "" || seenNodes[n.ID] {
			continue
		}
		seenNodes[n.ID] = true
		out.Nodes = append(out.Nodes, n)
	}

	seenLinks := make(map[string]bool, len(links))
	for _, l := range links {
		if l.ID == "" || seenLinks[l.ID] {
			continue
		}
		seenLinks[l.ID] = true
		out.Links = append(out.Links, l)
	}

	return out
}
