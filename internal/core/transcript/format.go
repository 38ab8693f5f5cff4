package transcript

import (
	"strings"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

// Format renders turns as "speaker: text" lines. The result is used both as
// the search query and as generation context.
func Format(turns []domain.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Speaker+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}
