package strategy

import (
	"strings"

	"github.com/Wad-Law/ingestor/internal/index"
)

// HardFilter prunes retrieval candidates that contradict the news item's
// extracted constraints. A candidate passes when every required canonical
// entity label appears in its indexed text AND, if both a time window and a
// market end time exist, the end time falls inside the window. Missing
// metadata is unknown, and unknown passes — sparse records must not starve
// the pipeline. Order-preserving.
func HardFilter(candidates []index.Candidate, requiredEntities []string, window *TimeWindow) []index.Candidate {
	if len(requiredEntities) == 0 && window == nil {
		return candidates
	}

	out := make([]index.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !entitiesPresent(c, requiredEntities) {
			continue
		}
		if window != nil && !c.EndTime.IsZero() && !window.Contains(c.EndTime) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func entitiesPresent(c index.Candidate, required []string) bool {
	if len(required) == 0 {
		return true
	}
	text := strings.ToLower(c.Question + " " + c.Description + " " + c.Category)
	for _, label := range required {
		if !strings.Contains(text, strings.ToLower(label)) {
			return false
		}
	}
	return true
}
