package standardize

import (
	"strings"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
)

// score weighs p by the size bucket of its country and its level, plus the
// primary match bonus when its own name contains the matched token.
func (s *Standardizer) score(nameToken string, p *gazetteer.Place) float64 {
	weights := s.weights[s.buckets[p.Country]]
	i := min(s.maxLevels, p.Level) - 1
	if i < 0 {
		i = 0
	}
	score := weights[i]
	if nameToken != "" && strings.Contains(s.norm.Normalize(p.Name), nameToken) {
		score += s.primaryMatchWeight
	}
	return score
}
