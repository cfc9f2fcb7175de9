// Package ranker orders candidate strategies by combining the generator's
// confidence with what the preference store knows about the user's past
// picks. The ranking never drops a strategy, only reorders it.
package ranker

import (
	"sort"

	"github.com/sortd-ai/sortd/pkg/config"
	"github.com/sortd-ai/sortd/pkg/types/organizer"
)

// neutralBoost is the preference boost when no history exists yet.
const neutralBoost = 0.5

// PreferenceSource is the slice of the preference store the ranker reads.
type PreferenceSource interface {
	TypeCount(t organizer.StrategyType) int
	FolderCount(name string) int
	TotalDecisions() int
}

// Ranker scores and orders strategies.
type Ranker struct {
	prefs   PreferenceSource
	weights config.RankingConfig
}

// New builds a Ranker. prefs may be nil, in which case every strategy gets
// the neutral boost and ranking reduces to confidence order.
func New(prefs PreferenceSource, weights config.RankingConfig) *Ranker {
	return &Ranker{prefs: prefs, weights: weights}
}

// Rank sets each strategy's Score and returns the strategies ordered by
// score, highest first. The sort is stable: ties keep generation order.
func (r *Ranker) Rank(strategies []organizer.Strategy) []organizer.Strategy {
	ranked := make([]organizer.Strategy, len(strategies))
	copy(ranked, strategies)

	for i := range ranked {
		ranked[i].Score = r.score(ranked[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	return ranked
}

func (r *Ranker) score(s organizer.Strategy) float64 {
	return r.weights.ConfidenceWeight*s.Confidence + r.weights.PreferenceWeight*r.boost(s)
}

// boost measures how often this strategy's type and its proposed folder
// names were picked before, normalized by the total decision count. With no
// history at all the boost is a flat neutral value.
func (r *Ranker) boost(s organizer.Strategy) float64 {
	if r.prefs == nil {
		return neutralBoost
	}
	total := r.prefs.TotalDecisions()
	if total == 0 {
		return neutralBoost
	}

	typeFrac := float64(r.prefs.TypeCount(s.Type)) / float64(total)

	folders := s.FolderNames()
	if len(folders) == 0 {
		return typeFrac
	}
	var folderFrac float64
	for _, name := range folders {
		frac := float64(r.prefs.FolderCount(name)) / float64(total)
		if frac > 1 {
			frac = 1
		}
		folderFrac += frac
	}
	folderFrac /= float64(len(folders))

	return (typeFrac + folderFrac) / 2
}
