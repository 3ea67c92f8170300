package model

import (
	"encoding/json"
	"math"
	"math/rand/v2"
)

// RoadWidth is the full width of the walkable corridor around a road
// centerline. Dogs may drift half of it to each side.
const RoadWidth = 0.8

// Road is an oriented axis-aligned segment between two integer points.
type Road struct {
	Start Point
	End   Point
}

// NewHorizontalRoad builds a road running along the X axis.
func NewHorizontalRoad(start Point, endX int) Road {
	return Road{Start: start, End: Point{X: endX, Y: start.Y}}
}

// NewVerticalRoad builds a road running along the Y axis.
func NewVerticalRoad(start Point, endY int) Road {
	return Road{Start: start, End: Point{X: start.X, Y: endY}}
}

// IsHorizontal reports whether the road runs along the X axis.
func (r Road) IsHorizontal() bool {
	return r.Start.Y == r.End.Y
}

// IsVertical reports whether the road runs along the Y axis.
func (r Road) IsVertical() bool {
	return r.Start.X == r.End.X
}

// Length is the number of unit steps between the road's endpoints.
func (r Road) Length() int {
	dx := r.End.X - r.Start.X
	dy := r.End.Y - r.Start.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Office is a loot delivery point. A dog within DropOffRadius of it
// empties its bag.
type Office struct {
	ID       OfficeID
	Position Point
	Offset   Offset
}

// DropOffRadius is the distance within which an office accepts a bag.
const DropOffRadius = 0.5

// LootType describes one kind of collectible item. Value is the score
// credited on pickup; Raw keeps the full config object so the map JSON
// endpoint can echo client-side fields (sprite, rotation, ...) verbatim.
type LootType struct {
	Name  string
	Value int
	Raw   json.RawMessage
}

// Map is an immutable world definition. It is assembled by the config
// loader via the Add/Set methods and must not change afterwards.
type Map struct {
	id             MapID
	name           string
	roads          []Road
	buildings      []Building
	offices        []Office
	lootTypes      []LootType
	dogSpeed       float64
	bagCapacity    int
	retirementTime float64

	index roadIndex
}

// NewMap creates an empty map with default per-map settings.
func NewMap(id MapID, name string) *Map {
	return &Map{
		id:             id,
		name:           name,
		dogSpeed:       1,
		bagCapacity:    3,
		retirementTime: 60,
		index:          newRoadIndex(),
	}
}

func (m *Map) ID() MapID { return m.id }
func (m *Map) Name() string { return m.name }
func (m *Map) Roads() []Road { return m.roads }
func (m *Map) Buildings() []Building { return m.buildings }
func (m *Map) Offices() []Office { return m.offices }
func (m *Map) LootTypes() []LootType { return m.lootTypes }
func (m *Map) DogSpeed() float64 { return m.dogSpeed }
func (m *Map) BagCapacity() int { return m.bagCapacity }
func (m *Map) RetirementTime() float64 { return m.retirementTime }

// AddRoad appends a road and indexes every integer point of its
// centerline for constant-time lookup.
func (m *Map) AddRoad(r Road) {
	m.roads = append(m.roads, r)
	m.index.add(r, len(m.roads)-1)
}

// AddBuilding appends a decorative building.
func (m *Map) AddBuilding(b Building) {
	m.buildings = append(m.buildings, b)
}

// AddOffice appends a delivery office.
func (m *Map) AddOffice(o Office) {
	m.offices = append(m.offices, o)
}

// SetLootTypes installs the ordered loot catalog for this map.
func (m *Map) SetLootTypes(types []LootType) {
	m.lootTypes = types
}

// SetDogSpeed overrides the per-map dog speed in units per second.
func (m *Map) SetDogSpeed(speed float64) {
	m.dogSpeed = speed
}

// SetBagCapacity overrides the per-map bag capacity.
func (m *Map) SetBagCapacity(capacity int) {
	m.bagCapacity = capacity
}

// SetRetirementTime overrides the idle timeout, in seconds, after which
// a dog retires.
func (m *Map) SetRetirementTime(seconds float64) {
	m.retirementTime = seconds
}

// RoadAt returns the road whose centerline passes through the integer
// point nearest to pos with the given orientation.
func (m *Map) RoadAt(pos Position, orientation Orientation) (Road, bool) {
	i := m.index.find(pos, orientation)
	if i < 0 {
		return Road{}, false
	}
	return m.roads[i], true
}

// FitPositionToRoad clamps an attempted move into the corridor of the
// road under current. The road is looked up by the dominant movement
// axis first, so at junctions travel continues along the direction of
// motion; clamping at a dead end halts the dog at the road's edge.
func (m *Map) FitPositionToRoad(current, attempted Position) Position {
	dx := attempted.X - current.X
	dy := attempted.Y - current.Y

	orientation := Vertical
	if math.Abs(dx) > math.Abs(dy) {
		orientation = Horizontal
	}

	road, ok := m.RoadAt(current, orientation)
	if !ok {
		road, ok = m.RoadAt(current, orientation.other())
		if !ok {
			return current
		}
	}

	half := RoadWidth / 2

	var minX, maxX, minY, maxY float64
	if road.IsHorizontal() {
		minX = float64(min(road.Start.X, road.End.X)) - half
		maxX = float64(max(road.Start.X, road.End.X)) + half
		minY = float64(road.Start.Y) - half
		maxY = float64(road.Start.Y) + half
	} else {
		minX = float64(road.Start.X) - half
		maxX = float64(road.Start.X) + half
		minY = float64(min(road.Start.Y, road.End.Y)) - half
		maxY = float64(max(road.Start.Y, road.End.Y)) + half
	}

	result := attempted
	result.X = math.Min(math.Max(result.X, minX), maxX)
	result.Y = math.Min(math.Max(result.Y, minY), maxY)
	return result
}

// RandomPositionOnRoad samples a uniform road, then a uniform integer
// step along it. Spawn points and loot drops share this sampler.
func RandomPositionOnRoad(m *Map, rnd *rand.Rand) Position {
	road := m.roads[rnd.IntN(len(m.roads))]
	step := rnd.IntN(road.Length() + 1)

	dx := road.End.X - road.Start.X
	dy := road.End.Y - road.Start.Y
	switch {
	case dx > 0:
		return Position{X: float64(road.Start.X + step), Y: float64(road.Start.Y)}
	case dx < 0:
		return Position{X: float64(road.Start.X - step), Y: float64(road.Start.Y)}
	case dy > 0:
		return Position{X: float64(road.Start.X), Y: float64(road.Start.Y + step)}
	default:
		return Position{X: float64(road.Start.X), Y: float64(road.Start.Y - step)}
	}
}

func (o Orientation) other() Orientation {
	if o == Horizontal {
		return Vertical
	}
	return Horizontal
}

// roadIndex maps every integer centerline point to the road covering it,
// split by orientation.
type roadIndex struct {
	horizontal map[Point]int
	vertical   map[Point]int
}

func newRoadIndex() roadIndex {
	return roadIndex{
		horizontal: make(map[Point]int),
		vertical:   make(map[Point]int),
	}
}

func (idx *roadIndex) add(r Road, i int) {
	if r.IsHorizontal() {
		x1, x2 := r.Start.X, r.End.X
		step := 1
		if x2 < x1 {
			step = -1
		}
		for x := x1; x != x2+step; x += step {
			idx.horizontal[Point{X: x, Y: r.Start.Y}] = i
		}
		return
	}
	y1, y2 := r.Start.Y, r.End.Y
	step := 1
	if y2 < y1 {
		step = -1
	}
	for y := y1; y != y2+step; y += step {
		idx.vertical[Point{X: r.Start.X, Y: y}] = i
	}
}

func (idx *roadIndex) find(pos Position, orientation Orientation) int {
	key := Point{X: int(math.Round(pos.X)), Y: int(math.Round(pos.Y))}
	var m map[Point]int
	if orientation == Horizontal {
		m = idx.horizontal
	} else {
		m = idx.vertical
	}
	if i, ok := m[key]; ok {
		return i
	}
	return -1
}
