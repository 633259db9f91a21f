package explore

import (
	"regexp"
	"strings"
)

// cypherKeywords open or commonly appear in Cypher statements.
var cypherKeywords = []string{
	"MATCH", "CREATE", "MERGE", "SET", "DELETE", "DETACH", "REMOVE",
	"RETURN", "WITH", "WHERE", "UNWIND", "CALL", "USING", "UNION",
	"FOREACH", "OPTIONAL",
}

// LooksLikeCypher reports whether the text plausibly is a Cypher query: it
// starts with a clause keyword, or contains at least two of them. Free-text
// search phrases fail both checks.
func LooksLikeCypher(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	count := 0
	for _, kw := range cypherKeywords {
		if strings.HasPrefix(q, kw) {
			return true
		}
		if strings.Contains(q, kw) {
			count++
		}
	}
	return count >= 2
}

var writeClauseRe = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH)\b`)

// mutatesGraph reports whether the query contains a write clause. The engine
// only executes reads.
func mutatesGraph(query string) bool {
	return writeClauseRe.MatchString(query)
}

// mapKeyRe matches a Title Case map key with embedded spaces at the start of
// a line, the shape generated models produce for legacy properties
// ("  Entity Name: value" inside a map literal).
var mapKeyRe = regexp.MustCompile(`(?m)^(\s+)([A-Z][a-zA-Z\s-]+?):(\s+)(.+)`)

var spacedSeparatorRe = regexp.MustCompile(`[\s-]+`)

// propertyFixes rewrites well-known spaced property keys anywhere in the
// query text.
var propertyFixes = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bEntity Name:\s*`), "entity_name: "},
	{regexp.MustCompile(`\bEntity Acronym:\s*`), "entity_acronym: "},
	{regexp.MustCompile(`\bArticle Title:\s*`), "article_title: "},
	{regexp.MustCompile(`\barticle URL:\s*`), "article_url: "},
	{regexp.MustCompile(`\bRelationship Summary:\s*`), "relationship_summary: "},
	{regexp.MustCompile(`\bRelationship Date:\s*`), "relationship_date: "},
	{regexp.MustCompile(`\bRelationship Quality:\s*`), "relationship_quality: "},
	{regexp.MustCompile(`\bReceiver Name:\s*`), "receiver_name: "},
}

// RepairQuery fixes the syntactic damage generated queries tend to carry:
// spaced Title Case property keys written without backticks. Keys are
// rewritten to their snake_case equivalents; everything else passes through
// untouched. Purely textual, no parsing.
func RepairQuery(query string) string {
	if query == "" {
		return query
	}
	query = mapKeyRe.ReplaceAllStringFunc(query, func(match string) string {
		sub := mapKeyRe.FindStringSubmatch(match)
		key := strings.ToLower(spacedSeparatorRe.ReplaceAllString(sub[2], "_"))
		return sub[1] + key + ":" + sub[3] + sub[4]
	})
	for _, fix := range propertyFixes {
		query = fix.re.ReplaceAllString(query, fix.replacement)
	}
	return query
}
