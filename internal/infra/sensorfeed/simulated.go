package sensorfeed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"

	"github.com/yanqian/rockwatch/internal/domain/monitor"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

type profile struct {
	sensor string
	base   float64
	spread float64
	min    float64
}

// Profiles sit around each sensor's normal baseline with an occasional spike.
var profiles = []profile{
	{sensor: risk.SensorVibration, base: 1.5, spread: 1.2, min: 0},
	{sensor: risk.SensorAcoustic, base: 50, spread: 12, min: 20},
	{sensor: risk.SensorSlopeStability, base: 0.08, spread: 0.06, min: 0},
	{sensor: risk.SensorTemperature, base: 27, spread: 5, min: -10},
	{sensor: risk.SensorHumidity, base: 55, spread: 15, min: 0},
	{sensor: risk.SensorPressure, base: 1013.25, spread: 6, min: 900},
	{sensor: risk.SensorDisplacement, base: 2, spread: 2, min: 0},
	{sensor: risk.SensorCrackDensity, base: 0.2, spread: 0.2, min: 0},
}

// Simulated produces deterministic pseudo-random readings per site. Each call
// advances that site's sequence.
type Simulated struct {
	seed int64

	mu   sync.Mutex
	rngs map[string]*rand.Rand
}

// NewSimulated builds a feed seeded with seed.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{seed: seed, rngs: make(map[string]*rand.Rand)}
}

// Latest returns the next set of readings for s.
func (f *Simulated) Latest(ctx context.Context, s site.Site) (risk.Readings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rng, ok := f.rngs[s.ID]
	if !ok {
		h := fnv.New64a()
		_, _ = h.Write([]byte(s.ID))
		rng = rand.New(rand.NewSource(f.seed ^ int64(h.Sum64())))
		f.rngs[s.ID] = rng
	}
	spike := rng.Float64() < 0.1
	out := make(risk.Readings, len(profiles))
	for _, p := range profiles {
		v := p.base + rng.NormFloat64()*p.spread
		if spike {
			v += p.spread * 4
		}
		out[p.sensor] = math.Round(math.Max(p.min, v)*1000) / 1000
	}
	return out, nil
}

var _ monitor.Feed = (*Simulated)(nil)
