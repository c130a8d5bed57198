package portal

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// suggest ranks course labels by Jaro-Winkler similarity to name, it is only
// used to make "course not found" errors actionable.
func suggest(name string, courses []CourseRef, n int) []string {
	type scored struct {
		label string
		score float64
	}

	needle := strings.ToLower(name)
	var ranked []scored
	for _, course := range courses {
		if course.Label == "" {
			continue
		}
		hay := strings.ToLower(course.Label)
		score := matchr.JaroWinkler(needle, hay, true)
		// course entries usually carry the commission and year after the
		// name, so also compare against a prefix of the same length.
		if runes := []rune(hay); len(runes) > len([]rune(needle)) {
			prefix := matchr.JaroWinkler(needle, string(runes[:len([]rune(needle))]), false)
			if prefix > score {
				score = prefix
			}
		}
		ranked = append(ranked, scored{label: course.Label, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.label
	}
	return out
}
