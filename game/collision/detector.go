// Package collision finds pickup events for movers sweeping over point
// items during one tick. Each mover is modeled as a segment from its
// start to its end position with a gather radius; items are points.
package collision

import "sort"

// Vec2 is a 2-D point in world coordinates.
type Vec2 struct {
	X float64
	Y float64
}

// Item is a collectible point with an optional own radius.
type Item struct {
	Position Vec2
	Width    float64
}

// Gatherer is a mover swept from StartPos to EndPos with radius Width.
type Gatherer struct {
	StartPos Vec2
	EndPos   Vec2
	Width    float64
}

// Provider enumerates the items and gatherers of one detection pass.
// Any adapter may implement it; the session exposes one for a single
// moving dog over its lost objects.
type Provider interface {
	ItemsCount() int
	Item(idx int) Item
	GatherersCount() int
	Gatherer(idx int) Gatherer
}

// Event is one pickup: gatherer GathererID touches item ItemID at the
// parametric Time in [0,1] of the gatherer's sweep.
type Event struct {
	ItemID     int
	GathererID int
	SqDistance float64
	Time       float64
}

// CollectionResult describes the closest approach of a swept segment to
// a point.
type CollectionResult struct {
	// SqDistance is the squared perpendicular distance to the line.
	SqDistance float64
	// ProjRatio is the parametric projection of the point onto the
	// segment; values outside [0,1] fall beyond its ends.
	ProjRatio float64
}

// IsCollected reports whether the point lies within collectRadius of
// the segment itself, not its extension.
func (r CollectionResult) IsCollected(collectRadius float64) bool {
	return r.ProjRatio >= 0 && r.ProjRatio <= 1 &&
		r.SqDistance <= collectRadius*collectRadius
}

// TryCollectPoint projects c onto the line a->b. The segment must not
// be degenerate; callers skip stationary gatherers.
func TryCollectPoint(a, b, c Vec2) CollectionResult {
	if a == b {
		panic("collision: zero-length gatherer segment")
	}

	ux := c.X - a.X
	uy := c.Y - a.Y
	vx := b.X - a.X
	vy := b.Y - a.Y

	uDotV := ux*vx + uy*vy
	uLen2 := ux*ux + uy*uy
	vLen2 := vx*vx + vy*vy

	return CollectionResult{
		SqDistance: uLen2 - uDotV*uDotV/vLen2,
		ProjRatio:  uDotV / vLen2,
	}
}

// FindGatherEvents returns every pickup the provider's gatherers make
// over its items, ordered by event time. Stationary gatherers collect
// nothing. The sort is stable, so simultaneous events keep the
// provider's iteration order.
func FindGatherEvents(provider Provider) []Event {
	var events []Event

	for g := 0; g < provider.GatherersCount(); g++ {
		gatherer := provider.Gatherer(g)
		if gatherer.StartPos == gatherer.EndPos {
			continue
		}
		for i := 0; i < provider.ItemsCount(); i++ {
			item := provider.Item(i)
			result := TryCollectPoint(gatherer.StartPos, gatherer.EndPos, item.Position)
			if result.IsCollected(gatherer.Width + item.Width) {
				events = append(events, Event{
					ItemID:     i,
					GathererID: g,
					SqDistance: result.SqDistance,
					Time:       result.ProjRatio,
				})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}
