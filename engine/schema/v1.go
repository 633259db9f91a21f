package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/storygraph/storygraph/engine/domain"
)

// TitleCase is the oldest generation: content labels and key properties are
// Title Case with embedded spaces (`Entity Name`, `Place Of Performance`),
// structural nodes are Story/Chapter/Section, and membership is a shared
// property value: n.section = section.section_query.
type TitleCase struct{}

// v1ContentLabels are the displayable node labels. Story/Chapter/Section are
// structural and must never be treated as content.
var v1ContentLabels = []string{
	"Entity", "Relationship", "Amount", "Agency", "Action", "Country",
	"DBA", "Description", "Location", "Place Of Performance", "Process",
	"Recipient", "Region", "Result", "Purpose", "Transaction",
	"Sub Agency", "USAID Program Region",
}

// labelDisjunction renders "(v:A OR v:`B C` OR ...)" for a node variable.
func labelDisjunction(v string, labels []string) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if strings.ContainsAny(l, " -") {
			parts = append(parts, fmt.Sprintf("%s:`%s`", v, l))
		} else {
			parts = append(parts, fmt.Sprintf("%s:%s", v, l))
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (TitleCase) Generation() string { return "v1" }

func (TitleCase) ResolveSection(ctx context.Context, exec Executor, identifier string) (SectionKey, error) {
	return resolve(ctx, exec, identifier, KeyQuery, []resolveStrategy{
		{
			// Stable id. gid is unique; stringified so numeric identifiers
			// from URLs match integer-typed properties.
			cypher: `MATCH (section:Section)
WHERE toString(section.gid) = $identifier
RETURN section.section_query AS key, section.Section_Title AS title`,
			unique: true,
		},
		{
			// Human-readable title. Duplicate titles exist across old
			// imports, so ambiguity is surfaced rather than guessed.
			cypher: `MATCH (section:Section {Section_Title: $identifier})
RETURN section.section_query AS key, section.Section_Title AS title`,
		},
		{
			// Legacy composite string: callers that predate gid routing pass
			// the membership value itself.
			cypher: `MATCH (section:Section {section_query: $identifier})
RETURN section.section_query AS key, section.Section_Title AS title`,
		},
	})
}

func (TitleCase) SubgraphQuery(key SectionKey, countryFilter string) (string, map[string]any) {
	n := labelDisjunction("n", v1ContentLabels)
	m := labelDisjunction("m", v1ContentLabels)
	node := labelDisjunction("node", v1ContentLabels)

	if countryFilter != "" {
		mid := labelDisjunction("mid", v1ContentLabels)
		n2 := labelDisjunction("n2", v1ContentLabels)
		// Country view: the country node, everything within one hop, and
		// everything within two hops through a content node, all confined to
		// the section. Over-fetches; the deduplicator collapses overlapping
		// paths.
		query := fmt.Sprintf(`
MATCH (country:Country)
WHERE country.`+"`Country Name`"+` = $country AND country.section = $section_key
MATCH (country)-[r1]-(n)
WHERE %s AND n.section = $section_key
WITH country, COLLECT(DISTINCT n.gid) AS direct_gids
OPTIONAL MATCH (country)-[r2]-(mid)-[r3]-(n2)
WHERE %s AND %s AND mid.section = $section_key AND n2.section = $section_key
WITH country, direct_gids + COLLECT(DISTINCT n2.gid) + [country.gid] AS gid_list
WITH [gid IN gid_list WHERE gid IS NOT NULL] AS all_gids
OPTIONAL MATCH (node)
WHERE %s AND node.gid IN all_gids AND node.section = $section_key
WITH all_gids, [x IN COLLECT(DISTINCT node) WHERE x IS NOT NULL] AS all_nodes
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND %s
  AND n.section = $section_key AND m.section = $section_key
  AND n.gid IN all_gids AND m.gid IN all_gids
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: r, from: n, to: m, rel_type: type(r)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, mid, n2, node, n, m)
		return query, map[string]any{"section_key": key.Value, "country": countryFilter}
	}

	// Whole-section view: members plus everything one relationship away from
	// a member, refetched by gid so both endpoints of every collected
	// relationship are materialised.
	query := fmt.Sprintf(`
MATCH (n)
WHERE %s AND n.section = $section_key
OPTIONAL MATCH (n)-[r]->(m)
WHERE %s AND (m.section = $section_key OR n.section = $section_key)
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

func (TitleCase) ClusterQuery(req domain.ClusterRequest) (string, map[string]any) {
	// Label matching is normalization-insensitive so the frontend can send
	// either "Place Of Performance" or "place_of_performance".
	query := `
MATCH (n)
WHERE ANY(l IN labels(n) WHERE replace(toLower(l), ' ', '_') = $node_type OR toLower(l) = $node_type)
  AND ($section_key IS NULL OR n.section = $section_key)
  AND n[$property_key] IS NOT NULL
WITH n, toString(n[$property_key]) AS propVal
WITH propVal,
     collect(DISTINCT {
        id: coalesce(toString(n.gid), toString(n.id), elementId(n)),
        name: coalesce(n.name, n.` + "`Entity Name`" + `, n.` + "`Action Text`" + `,
                       n.` + "`Result Name`" + `, n.` + "`Process Name`" + `,
                       n.` + "`Relationship NAME`" + `, n.` + "`Country Name`" + `,
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

func (TitleCase) TimelineQuery(key SectionKey) (string, map[string]any) {
	n := labelDisjunction("n", v1ContentLabels)
	src := labelDisjunction("source", v1ContentLabels)
	tgt := labelDisjunction("target", v1ContentLabels)
	// The engine partitions dated vs floating in memory; the query only
	// confines content and relationships to the section.
	query := fmt.Sprintf(`
MATCH (n)
WHERE %s AND n.section = $section_key
WITH COLLECT(DISTINCT n) AS all_nodes
OPTIONAL MATCH (source)-[rel]->(target)
WHERE %s AND %s
  AND source.section = $section_key AND target.section = $section_key
RETURN {
    nodes: all_nodes,
    links: [x IN COLLECT(DISTINCT {rel: rel, from: source, to: target, rel_type: type(rel)})
            WHERE x.rel IS NOT NULL | x]
} AS graphData`, n, src, tgt)
	return query, map[string]any{"section_key": key.Value}
}

func (TitleCase) StoriesQuery() (string, map[string]any) {
	return `
MATCH (story:Story)
OPTIONAL MATCH (story)-[:Story_Chapter]->(chapter:Chapter)
OPTIONAL MATCH (chapter)-[:Chapter_Section]->(section:Section)
WITH story, chapter, section
ORDER BY chapter.` + "`Chapter Number`" + `, section.Section_Num
WITH story, chapter,
     COLLECT(DISTINCT {
         gid: section.gid,
         section_title: section.Section_Title,
         section_num: section.Section_Num,
         section_query: section.section_query,
         brief: section.brief
     }) AS sections
WITH story,
     COLLECT(DISTINCT {
         gid: chapter.gid,
         chapter_number: chapter.` + "`Chapter Number`" + `,
         chapter_title: chapter.` + "`Chapter Title`" + `,
         sections: [s IN sections WHERE s.gid IS NOT NULL]
     }) AS chapters
RETURN {
    story_title: story.Story_Title,
    story_gid: story.gid,
    story_brief: story.brief,
    chapters: [c IN chapters WHERE c.gid IS NOT NULL]
} AS story
ORDER BY story.story_title`, map[string]any{}
}

func (TitleCase) StoryStatsQuery(storyID string) (string, map[string]any) {
	n := labelDisjunction("n", v1ContentLabels)
	query := fmt.Sprintf(`
MATCH (story:Story)
WHERE toString(story.gid) = $story_id OR story.Story_Title = $story_id
OPTIONAL MATCH (story)-[:Story_Chapter]->(chapter:Chapter)
OPTIONAL MATCH (chapter)-[:Chapter_Section]->(section:Section)
WITH story, COLLECT(DISTINCT section.section_query) AS section_keys
OPTIONAL MATCH (n)
WHERE %s AND n.section IN section_keys
WITH story,
     COUNT(DISTINCT n) AS total_nodes,
     COUNT(DISTINCT CASE WHEN n:Entity THEN n.gid END) AS entity_count,
     COUNT(DISTINCT CASE WHEN n.highlight = true THEN n.gid END) AS highlighted_nodes
RETURN {
    story_gid: story.gid,
    story_title: story.Story_Title,
    total_nodes: total_nodes,
    entity_count: entity_count,
    highlighted_nodes: highlighted_nodes,
    updated_date: COALESCE(story.updated_date, story.created_date, story.date)
} AS statistics`, n)
	return query, map[string]any{"story_id": storyID}
}

func (TitleCase) NodeTypesQuery() (string, map[string]any) {
	n := labelDisjunction("n", v1ContentLabels)
	quoted := make([]string, 0, len(v1ContentLabels))
	for _, l := range v1ContentLabels {
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
