// Package loot decides how many new items appear on a map per tick.
package loot

import "math"

// Generator produces loot counts for one game session. It accumulates
// the time elapsed since it last spawned anything, so sessions keep
// their own instance.
//
// For elapsed time dt the expected number of spawns approaches
// probability x looters - items, and never exceeds looters - items.
type Generator struct {
	period      float64
	probability float64

	timeWithoutLoot float64
	random          func() float64
}

// NewGenerator creates a generator with the given base period (seconds)
// and per-period probability. Spawn counts are deterministic for a
// given call sequence; use NewGeneratorWithRandom to dither them.
func NewGenerator(period, probability float64) *Generator {
	return NewGeneratorWithRandom(period, probability, func() float64 { return 1 })
}

// NewGeneratorWithRandom creates a generator whose spawn probability is
// scaled by random(), which must return values in [0,1].
func NewGeneratorWithRandom(period, probability float64, random func() float64) *Generator {
	return &Generator{
		period:      period,
		probability: probability,
		random:      random,
	}
}

// Generate returns how many items to spawn after dt seconds, given the
// current number of items on the ground and of dogs in the session.
func (g *Generator) Generate(dt float64, itemCount, looterCount int) int {
	g.timeWithoutLoot += dt

	shortage := 0
	if looterCount > itemCount {
		shortage = looterCount - itemCount
	}

	ratio := g.timeWithoutLoot / g.period
	p := (1 - math.Pow(1-g.probability, ratio)) * g.random()
	p = math.Min(math.Max(p, 0), 1)

	n := int(math.Round(float64(shortage) * p))
	if n > 0 {
		g.timeWithoutLoot = 0
	}
	return n
}
