package application

import (
	"math/rand/v2"

	"github.com/paulmach/orb/geojson"
)

// NewSeededSource returns a fresh deterministic random source. Sources are
// stateful, so each sampling run needs its own.
func NewSeededSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, 0)
}

// Sample returns at most maxCount features drawn without replacement.
// When features already fit the budget the input slice is returned as is.
// Otherwise a partial Fisher-Yates shuffle driven by src picks the subset,
// so equal inputs and equally seeded sources give identical output.
// The input slice is never reordered.
func Sample(features []*geojson.Feature, maxCount int, src rand.Source) []*geojson.Feature {
	if maxCount <= 0 {
		return []*geojson.Feature{}
	}
	if len(features) <= maxCount {
		return features
	}

	r := rand.New(src)
	pool := make([]*geojson.Feature, len(features))
	copy(pool, features)

	for i := 0; i < maxCount; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:maxCount:maxCount]
}
