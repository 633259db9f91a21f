package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/storygraph/storygraph/engine/domain"
)

// Linked is the newest generation: snake_case labels like v2, but membership
// is an explicit relationship, (n)-[:IN_SECTION]->(section). Structural nodes
// are lowercase (story/chapter/section) and carry id/title/slug.
type Linked struct{}

func (Linked) Generation() string { return "v3" }

func (Linked) ResolveSection(ctx context.Context, exec Executor, identifier string) (SectionKey, error) {
	return resolve(ctx, exec, identifier, KeyLinked, []resolveStrategy{
		{
			cypher: `MATCH (section:section)
WHERE toString(section.id) = $identifier
RETURN toString(section.id) AS key, section.title AS title`,
			unique: true,
		},
		{
			cypher: `MATCH (section:section {slug: $identifier})
RETURN toString(section.id) AS key, section.title AS title`,
			unique: true,
		},
		{
			cypher: `MATCH (section:section {title: $identifier})
RETURN toString(section.id) AS key, section.title AS title`,
		},
	})
}

func (Linked) SubgraphQuery(key SectionKey, countryFilter string) (string, map[string]any) {
	n := labelDisjunction("n", v2ContentLabels)
	m := labelDisjunction("m", v2ContentLabels)
	node := labelDisjunction("node", v2ContentLabels)

	if countryFilter != "" {
		mid := labelDisjunction("mid", v2ContentLabels)
		n2 := labelDisjunction("n2", v2ContentLabels)
		query := fmt.Sprintf(`
MATCH (sec:section)
WHERE toString(sec.id) = $section_key
MATCH (country:country)-[:IN_SECTION]->(sec)
WHERE country.name = $country
MATCH (country)-[r1]-(n)
WHERE %s AND (n)-[:IN_SECTION]->(sec)
WITH sec, country, COLLECT(DISTINCT n.gid) AS direct_gids
OPTIONAL MATCH (country)-[r2]-(mid)-[r3]-(n2)
WHERE %s AND %s
  AND (mid)-[:IN_SECTION]->(sec) AND (n2)-[:IN_SECTION]->(sec)
WITH sec, country, direct_gids + COLLECT(DISTINCT n2.gid) + [country.gid] AS gid_list
WITH sec, [gid IN gid_list WHERE gid IS NOT NULL] AS all_gids
OPTIONAL MATCH (node)-[:IN_SECTION]->(sec)
WHERE %s AND node.gid IN all_gids
WITH sec, all_gids, [x IN COLLECT(DISTINCT node) WHERE x IS NOT NULL] AS all_nodes
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND %s
  AND (n)-[:IN_SECTION]->(sec) AND (m)-[:IN_SECTION]->(sec)
  AND n.gid IN all_gids AND m.gid IN all_gids
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: r, from: n, to: m, rel_type: type(r)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, mid, n2, node, n, m)
		return query, map[string]any{"section_key": key.Value, "country": countryFilter}
	}

	query := fmt.Sprintf(`
MATCH (sec:section)
WHERE toString(sec.id) = $section_key
MATCH (n)-[:IN_SECTION]->(sec)
WHERE %s
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND type(r) <> 'IN_SECTION'
WITH sec, COLLECT(DISTINCT n.gid) + COLLECT(DISTINCT m.gid) AS gid_list
WITH sec, [gid IN gid_list WHERE gid IS NOT NULL] AS all_gids
MATCH (node)
WHERE %s AND node.gid IN all_gids
WITH sec, all_gids, COLLECT(DISTINCT node) AS all_nodes
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND %s AND type(r) <> 'IN_SECTION'
  AND n.gid IN all_gids AND m.gid IN all_gids
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: r, from: n, to: m, rel_type: type(r)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, m, node, n, m)
	return query, map[string]any{"section_key": key.Value}
}

func (Linked) ClusterQuery(req domain.ClusterRequest) (string, map[string]any) {
	query := `
MATCH (n)
WHERE ANY(l IN labels(n) WHERE toLower(l) = $node_type)
  AND ($section_key IS NULL OR EXISTS {
        MATCH (n)-[:IN_SECTION]->(sec:section) WHERE toString(sec.id) = $section_key
      })
  AND n[$property_key] IS NOT NULL
WITH n, toString(n[$property_key]) AS propVal
WITH propVal,
     collect(DISTINCT {
        id: coalesce(toString(n.gid), toString(n.id), elementId(n)),
        name: coalesce(n.name, n.entity_name, n.action_text, n.result_name,
                       n.process_name, n.relationship_name,
                       toString(n.gid), elementId(n))
     }) AS nodes,
     count(DISTINCT n) AS cnt
ORDER BY cnt DESC, propVal ASC
RETURN propVal AS value, cnt AS count, nodes[0..$sample_limit] AS nodes
LIMIT $cluster_limit`

	var scope any
	if req.SectionScope != "" {
		scope = req.SectionScope
	}
	return query, map[string]any{
		"node_type":     domain.NormalizeLabel(req.NodeType),
		"property_key":  req.PropertyKey,
		"section_key":   scope,
		"cluster_limit": req.ClusterLimit,
		"sample_limit":  req.SampleLimit,
	}
}

func (Linked) TimelineQuery(key SectionKey) (string, map[string]any) {
	n := labelDisjunction("n", v2ContentLabels)
	src := labelDisjunction("source", v2ContentLabels)
	tgt := labelDisjunction("target", v2ContentLabels)
	query := fmt.Sprintf(`
MATCH (sec:section)
WHERE toString(sec.id) = $section_key
MATCH (n)-[:IN_SECTION]->(sec)
WHERE %s
WITH sec, COLLECT(DISTINCT n) AS all_nodes
OPTIONAL MATCH (source)-[rel]->(target)
WHERE %s AND %s AND type(rel) <> 'IN_SECTION'
  AND (source)-[:IN_SECTION]->(sec) AND (target)-[:IN_SECTION]->(sec)
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: rel, from: source, to: target, rel_type: type(rel)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, src, tgt)
	return query, map[string]any{"section_key": key.Value}
}

func (Linked) StoriesQuery() (string, map[string]any) {
	return `
MATCH (story:story)
OPTIONAL MATCH (story)-[:HAS_CHAPTER]->(chapter:chapter)
OPTIONAL MATCH (chapter)-[:HAS_SECTION]->(section:section)
WITH story, chapter, section
ORDER BY chapter.number, section.number
WITH story, chapter,
     COLLECT(DISTINCT {
         gid: section.id,
         section_title: section.title,
         section_num: section.number,
         section_query: toString(section.id),
         brief: section.brief
     }) AS sections
WITH story,
     COLLECT(DISTINCT {
         gid: chapter.id,
         chapter_number: chapter.number,
         chapter_title: chapter.title,
         sections: [s IN sections WHERE s.gid IS NOT NULL]
     }) AS chapters
RETURN {
    story_title: story.title,
    story_gid: story.id,
    story_brief: story.brief,
    chapters: [c IN chapters WHERE c.gid IS NOT NULL]
} AS story
ORDER BY story.story_title`, map[string]any{}
}

func (Linked) StoryStatsQuery(storyID string) (string, map[string]any) {
	n := labelDisjunction("n", v2ContentLabels)
	query := fmt.Sprintf(`
MATCH (story:story)
WHERE toString(story.id) = $story_id OR story.title = $story_id OR story.slug = $story_id
OPTIONAL MATCH (story)-[:HAS_CHAPTER]->(chapter:chapter)
OPTIONAL MATCH (chapter)-[:HAS_SECTION]->(section:section)
OPTIONAL MATCH (n)-[:IN_SECTION]->(section)
WHERE %s
WITH story,
     COUNT(DISTINCT n) AS total_nodes,
     COUNT(DISTINCT CASE WHEN n:entity OR n:entity_gen THEN n.gid END) AS entity_count,
     COUNT(DISTINCT CASE WHEN n.highlight = true THEN n.gid END) AS highlighted_nodes
RETURN {
    story_gid: story.id,
    story_title: story.title,
    total_nodes: total_nodes,
    entity_count: entity_count,
    highlighted_nodes: highlighted_nodes,
    updated_date: COALESCE(story.updated_date, story.created_date, story.date)
} AS statistics`, n)
	return query, map[string]any{"story_id": storyID}
}

func (Linked) NodeTypesQuery() (string, map[string]any) {
	n := labelDisjunction("n", v2ContentLabels)
	quoted := make([]string, 0, len(v2ContentLabels))
	for _, l := range v2ContentLabels {
		quoted = append(quoted, fmt.Sprintf("'%s'", l))
	}
	query := fmt.Sprintf(`
MATCH (n)
WHERE %s
UNWIND labels(n) AS label
WITH label
WHERE label IN [%s]
RETURN DISTINCT label AS node_type
ORDER BY node_type`, n, strings.Join(quoted, ", "))
	return query, map[string]any{}
}
