package inbox

import (
	"strings"

	"github.com/skportal/feedback-inbox/internal/model"
)

// FilterAll is the sentinel value that bypasses the status or category filter.
const FilterAll = "all"

// Filter selects the visible subset of a conversation partition.
type Filter struct {
	Query    string
	Status   string // a model.Status value, FilterAll, or empty (same as all)
	Category string // a model.Category value, FilterAll, or empty
}

// Project returns the conversations matching the filter, preserving input
// order. It is a pure function: no side effects, and the same inputs always
// yield the same output.
func Project(convs []model.Conversation, f Filter) []model.Conversation {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]model.Conversation, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		if !bypassed(f.Status) && string(c.Status) != f.Status {
			continue
		}
		if !bypassed(f.Category) && string(c.Category) != f.Category {
			continue
		}
		if query != "" && !matchesQuery(c, query) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func bypassed(value string) bool {
	return value == "" || value == FilterAll
}

// matchesQuery matches case-insensitively against the subject, the
// latest-message preview and the user display name. A missing field is a
// non-match, not an error.
func matchesQuery(c *model.Conversation, query string) bool {
	for _, field := range [...]string{c.Subject, c.LatestMessage, c.UserInfo.Name} {
		if field == "" {
			continue
		}
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
