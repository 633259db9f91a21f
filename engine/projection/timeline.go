package projection

import (
	"sort"

	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/record"
)

// nodeDateKeys is the date fallback chain across generations and node types.
var nodeDateKeys = []string{
	"Date", "date",
	"Process Date", "process_date",
	"Action Date", "action_date",
	"Relationship Date", "relationship_date",
	"Result Date", "result_date",
	"event_date",
}

var nodeDescriptionKeys = []string{
	"Process Summary", "process_summary",
	"Action Summary", "action_summary",
	"description", "brief",
}

// typePriority orders same-date items: milestones first, then results and
// incidents, then actions, then everything else.
func typePriority(normalizedType string) int {
	switch normalizedType {
	case "milestone":
		return 1
	case "result", "incident":
		return 2
	case "action":
		return 3
	default:
		return 4
	}
}

// ShapeTimeline partitions a section's content into dated timeline items and
// undated floating items. A node is dated when any key in the date fallback
// chain resolves. Timeline items sort by date descending, then by type
// priority ascending, then by id for a stable order. Relationships pass
// through normalized so the client can anchor floating items. All collections
// are non-nil even for an empty section.
func ShapeTimeline(records []record.Record, sectionKey, sectionTitle string) domain.TimelinePayload {
	payload := domain.TimelinePayload{
		SectionKey:    sectionKey,
		SectionTitle:  sectionTitle,
		TimelineItems: []domain.TimelineItem{},
		FloatingItems: []domain.FloatingItem{},
		Relationships: []domain.Link{},
	}

	var links []domain.Link
	seen := make(map[string]bool)
	for _, rec := range records {
		env := rec.Get("graphData")
		if env.IsNull() {
			continue
		}
		for _, nv := range env.Get("nodes").AsList() {
			norm := NormalizeNode(nv)
			if norm.ID == "" || seen[norm.ID] {
				continue
			}
			seen[norm.ID] = true

			if date := firstString(nv, nodeDateKeys...); date != "" {
				payload.TimelineItems = append(payload.TimelineItems, domain.TimelineItem{
					ID:          norm.ID,
					Type:        norm.Type,
					Date:        date,
					Name:        norm.Name,
					Description: firstString(nv, nodeDescriptionKeys...),
					Priority:    typePriority(norm.Type),
					Properties:  norm.Extra,
				})
				continue
			}
			payload.FloatingItems = append(payload.FloatingItems, domain.FloatingItem{
				ID:         norm.ID,
				Type:       norm.Type,
				Name:       norm.Name,
				Properties: norm.Extra,
			})
		}
		for _, lv := range env.Get("links").AsList() {
			links = append(links, NormalizeLink(lv))
		}
	}

	sort.SliceStable(payload.TimelineItems, func(i, j int) bool {
		a, b := payload.TimelineItems[i], payload.TimelineItems[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	payload.Relationships = Merge(nil, links).Links
	return payload
}
