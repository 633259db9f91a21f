package domain

import "strings"

// Cluster request bounds. The store is asked for at most these many groups
// and samples regardless of what the caller passes.
const (
	DefaultClusterLimit = 5
	DefaultSampleLimit  = 10
	MaxClusterLimit     = 50
	MaxSampleLimit      = 100
)

// ValidateClusterRequest rejects caller mistakes before any query is built.
// Empty node type or property key is an error, never "match everything".
func ValidateClusterRequest(req *ClusterRequest) error {
	if strings.TrimSpace(req.NodeType) == "" {
		return NewArgumentError("node_type", "must not be empty")
	}
	if strings.TrimSpace(req.PropertyKey) == "" {
		return NewArgumentError("property_key", "must not be empty")
	}
	if req.ClusterLimit <= 0 {
		req.ClusterLimit = DefaultClusterLimit
	}
	if req.SampleLimit <= 0 {
		req.SampleLimit = DefaultSampleLimit
	}
	if req.ClusterLimit > MaxClusterLimit {
		req.ClusterLimit = MaxClusterLimit
	}
	if req.SampleLimit > MaxSampleLimit {
		req.SampleLimit = MaxSampleLimit
	}
	return nil
}

// ValidateIdentifier rejects empty caller-supplied identifiers.
func ValidateIdentifier(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return NewArgumentError(field, "must not be empty")
	}
	return nil
}

// NormalizeLabel converts a raw entity label to the canonical lower-case,
// underscore-separated form used for client-side filtering and grouping,
// e.g. "Place Of Performance" -> "place_of_performance".
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}
