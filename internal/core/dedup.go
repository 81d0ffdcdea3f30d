package core

import "strings"

// ComputeNewTopics returns the ids in latest that are non-empty, not in
// handled, and not seen earlier in latest. Received order is preserved.
func ComputeNewTopics(latest []TopicCandidate, handled map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(latest))
	var out []string
	for _, c := range latest {
		id := c.ID()
		if id == "" {
			continue
		}
		if _, ok := handled[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// TopicIDFromEntry extracts an id from a loosely typed JSON entry: a plain
// string, or an object carrying slug or topic_id.
func TopicIDFromEntry(entry interface{}) string {
	switch v := entry.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		for _, key := range []string{"slug", "topic_id"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	default:
		return ""
	}
}
