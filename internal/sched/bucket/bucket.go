package bucket

import (
	"math/rand"

	"worksched/internal/sched/model"
)

// Buckets partitions targets into concentric squared-distance bands around an
// origin and yields them band by band, nearest band first. Order within a
// band is randomized so ties on band membership do not always resolve to the
// same entity. There is no full distance sort; the partition is a single
// linear pass and selection only needs nearest-band ordering.
type Buckets struct {
	bands [][]model.Target
	rng   *rand.Rand
	band  int
	idx   int
}

// Partition places each target into the first band whose squared threshold
// contains it; targets beyond the last threshold land in an overflow band.
// thresholdsSq must be ascending. The input slice is not modified.
func Partition(origin model.Vec3i, targets []model.Target, pos func(model.Target) model.Vec3i, thresholdsSq []int, rng *rand.Rand) *Buckets {
	bands := make([][]model.Target, len(thresholdsSq)+1)
	for _, t := range targets {
		d := origin.DistSqTo(pos(t))
		i := len(thresholdsSq)
		for k, th := range thresholdsSq {
			if d <= th {
				i = k
				break
			}
		}
		bands[i] = append(bands[i], t)
	}
	return &Buckets{bands: bands, rng: rng}
}

// Next yields the next candidate. Each band is shuffled lazily when first
// entered, so far bands that are never reached cost nothing.
func (b *Buckets) Next() (model.Target, bool) {
	for b.band < len(b.bands) {
		cur := b.bands[b.band]
		if b.idx == 0 && len(cur) > 1 && b.rng != nil {
			b.rng.Shuffle(len(cur), func(i, j int) { cur[i], cur[j] = cur[j], cur[i] })
		}
		if b.idx < len(cur) {
			t := cur[b.idx]
			b.idx++
			return t, true
		}
		b.band++
		b.idx = 0
	}
	return model.Target{}, false
}

// Len reports the total number of partitioned targets.
func (b *Buckets) Len() int {
	n := 0
	for _, band := range b.bands {
		n += len(band)
	}
	return n
}

// Band exposes one band's contents (used by tests and debug output).
func (b *Buckets) Band(i int) []model.Target {
	if i < 0 || i >= len(b.bands) {
		return nil
	}
	return b.bands[i]
}

// BandCount reports thresholds+1.
func (b *Buckets) BandCount() int { return len(b.bands) }
