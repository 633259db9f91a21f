package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/storygraph/storygraph/engine/domain"
)

// SnakeCase is the middle generation: labels and properties were normalized
// to lowercase snake_case and a few new content labels were added, but
// membership is still a property cross-reference: n.section_id = section.gid.
type SnakeCase struct{}

var v2ContentLabels = []string{
	"entity", "relationship", "amount", "agency", "action", "country",
	"dba", "description", "location", "place_of_performance", "process",
	"recipient", "region", "result", "purpose", "transaction",
	"sub_agency", "usaid_program_region",
	"entity_gen", "funding", "disb_or_trans", "event_attend",
}

func (SnakeCase) Generation() string { return "v2" }

func (SnakeCase) ResolveSection(ctx context.Context, exec Executor, identifier string) (SectionKey, error) {
	return resolve(ctx, exec, identifier, KeyGID, []resolveStrategy{
		{
			cypher: `MATCH (section:Section)
WHERE toString(section.gid) = $identifier
RETURN toString(section.gid) AS key, section.title AS title`,
			unique: true,
		},
		{
			cypher: `MATCH (section:Section {title: $identifier})
RETURN toString(section.gid) AS key, section.title AS title`,
		},
		{
			cypher: `MATCH (section:Section {name: $identifier})
RETURN toString(section.gid) AS key, section.title AS title`,
		},
	})
}

func (SnakeCase) SubgraphQuery(key SectionKey, countryFilter string) (string, map[string]any) {
	n := labelDisjunction("n", v2ContentLabels)
	m := labelDisjunction("m", v2ContentLabels)
	node := labelDisjunction("node", v2ContentLabels)

	if countryFilter != "" {
		mid := labelDisjunction("mid", v2ContentLabels)
		n2 := labelDisjunction("n2", v2ContentLabels)
		query := fmt.Sprintf(`
MATCH (country:country)
WHERE country.name = $country AND toString(country.section_id) = $section_key
MATCH (country)-[r1]-(n)
WHERE %s AND toString(n.section_id) = $section_key
WITH country, COLLECT(DISTINCT n.gid) AS direct_gids
OPTIONAL MATCH (country)-[r2]-(mid)-[r3]-(n2)
WHERE %s AND %s
  AND toString(mid.section_id) = $section_key AND toString(n2.section_id) = $section_key
WITH country, direct_gids + COLLECT(DISTINCT n2.gid) + [country.gid] AS gid_list
WITH [gid IN gid_list WHERE gid IS NOT NULL] AS all_gids
OPTIONAL MATCH (node)
WHERE %s AND node.gid IN all_gids AND toString(node.section_id) = $section_key
WITH all_gids, [x IN COLLECT(DISTINCT node) WHERE x IS NOT NULL] AS all_nodes
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND %s
  AND toString(n.section_id) = $section_key AND toString(m.section_id) = $section_key
  AND n.gid IN all_gids AND m.gid IN all_gids
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: r, from: n, to: m, rel_type: type(r)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, mid, n2, node, n, m)
		return query, map[string]any{"section_key": key.Value, "country": countryFilter}
	}

	query := fmt.Sprintf(`
MATCH (n)
WHERE %s AND toString(n.section_id) = $section_key
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND (toString(m.section_id) = $section_key OR toString(n.section_id) = $section_key)
WITH COLLECT(DISTINCT n.gid) + COLLECT(DISTINCT m.gid) AS gid_list
WITH [gid IN gid_list WHERE gid IS NOT NULL] AS all_gids
MATCH (node)
WHERE %s AND node.gid IN all_gids
WITH all_gids, COLLECT(DISTINCT node) AS all_nodes
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND %s
  AND n.gid IN all_gids AND m.gid IN all_gids
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: r, from: n, to: m, rel_type: type(r)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, m, node, n, m)
	return query, map[string]any{"section_key": key.Value}
}

func (SnakeCase) ClusterQuery(req domain.ClusterRequest) (string, map[string]any) {
	query := `
MATCH (n)
WHERE ANY(l IN labels(n) WHERE toLower(l) = $node_type)
  AND ($section_key IS NULL OR toString(n.section_id) = $section_key)
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

func (SnakeCase) TimelineQuery(key SectionKey) (string, map[string]any) {
	n := labelDisjunction("n", v2ContentLabels)
	src := labelDisjunction("source", v2ContentLabels)
	tgt := labelDisjunction("target", v2ContentLabels)
	query := fmt.Sprintf(`
MATCH (n)
WHERE %s AND toString(n.section_id) = $section_key
WITH COLLECT(DISTINCT n) AS all_nodes
OPTIONAL MATCH (source)-[rel]->(target)
WHERE %s AND %s
  AND toString(source.section_id) = $section_key AND toString(target.section_id) = $section_key
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: rel, from: source, to: target, rel_type: type(rel)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, src, tgt)
	return query, map[string]any{"section_key": key.Value}
}

func (SnakeCase) StoriesQuery() (string, map[string]any) {
	return `
MATCH (story:Story)
OPTIONAL MATCH (story)-[:HAS_CHAPTER]->(chapter:Chapter)
OPTIONAL MATCH (chapter)-[:HAS_SECTION]->(section:Section)
WITH story, chapter, section
ORDER BY chapter.number, section.number
WITH story, chapter,
     COLLECT(DISTINCT {
         gid: section.gid,
         section_title: section.title,
         section_num: section.number,
         section_query: toString(section.gid),
         brief: section.brief
     }) AS sections
WITH story,
     COLLECT(DISTINCT {
         gid: chapter.gid,
         chapter_number: chapter.number,
         chapter_title: chapter.title,
         sections: [s IN sections WHERE s.gid IS NOT NULL]
     }) AS chapters
RETURN {
    story_title: story.title,
    story_gid: story.gid,
    story_brief: story.brief,
    chapters: [c IN chapters WHERE c.gid IS NOT NULL]
} AS story
ORDER BY story.story_title`, map[string]any{}
}

func (SnakeCase) StoryStatsQuery(storyID string) (string, map[string]any) {
	n := labelDisjunction("n", v2ContentLabels)
	query := fmt.Sprintf(`
MATCH (story:Story)
WHERE toString(story.gid) = $story_id OR story.title = $story_id
OPTIONAL MATCH (story)-[:HAS_CHAPTER]->(chapter:Chapter)
OPTIONAL MATCH (chapter)-[:HAS_SECTION]->(section:Section)
WITH story, COLLECT(DISTINCT section.gid) AS section_ids
OPTIONAL MATCH (n)
WHERE %s AND n.section_id IN section_ids
WITH story,
     COUNT(DISTINCT n) AS total_nodes,
     COUNT(DISTINCT CASE WHEN n:entity OR n:entity_gen THEN n.gid END) AS entity_count,
     COUNT(DISTINCT CASE WHEN n.highlight = true THEN n.gid END) AS highlighted_nodes
RETURN {
    story_gid: story.gid,
    story_title: story.title,
    total_nodes: total_nodes,
    entity_count: entity_count,
    highlighted_nodes: highlighted_nodes,
    updated_date: COALESCE(story.updated_date, story.created_date, story.date)
} AS statistics`, n)
	return query, map[string]any{"story_id": storyID}
}

func (SnakeCase) NodeTypesQuery() (string, map[string]any) {
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
