package session

import (
	"math"

	"github.com/vkozyrev/dogwalk/game/collision"
	"github.com/vkozyrev/dogwalk/game/model"
)

// DogID identifies a dog within its session. It doubles as the player
// id that clients see.
type DogID int

// Direction is the facing of a dog.
type Direction uint8

const (
	North Direction = iota
	South
	West
	East
)

// directionLetters maps Direction to the wire letters used by the API.
var directionLetters = [...]string{North: "U", South: "D", West: "L", East: "R"}

// Letter returns the single-letter wire form of the direction.
func (d Direction) Letter() string {
	return directionLetters[d]
}

// DirectionFromLetter parses a wire direction letter.
func DirectionFromLetter(s string) (Direction, bool) {
	switch s {
	case "U":
		return North, true
	case "D":
		return South, true
	case "L":
		return West, true
	case "R":
		return East, true
	}
	return North, false
}

// GatherRadius is the pickup radius of a moving dog.
const GatherRadius = 0.6

// BagItem is one collected item carried by a dog.
type BagItem struct {
	ID   int
	Type int
}

// Dog is a player avatar. Its session owns it; the session is passed
// into UpdatePosition explicitly rather than kept as a back-reference.
type Dog struct {
	id          DogID
	name        string
	pos         model.Position
	speed       model.Position
	dir         Direction
	bagCapacity int
	bag         []BagItem
	score       int

	retirementTime float64
	idleTime       float64
	lifeTime       float64
	retired        bool
	recorded       bool
}

// NewDog creates a stationary dog facing north at pos.
func NewDog(id DogID, name string, pos model.Position) *Dog {
	return &Dog{id: id, name: name, pos: pos, dir: North}
}

func (d *Dog) ID() DogID { return d.id }
func (d *Dog) Name() string { return d.name }
func (d *Dog) Position() model.Position { return d.pos }
func (d *Dog) Speed() model.Position { return d.speed }
func (d *Dog) Direction() Direction { return d.dir }
func (d *Dog) BagCapacity() int { return d.bagCapacity }
func (d *Dog) Score() int { return d.score }
func (d *Dog) LifeTime() float64 { return d.lifeTime }
func (d *Dog) IdleTime() float64 { return d.idleTime }
func (d *Dog) Retired() bool { return d.retired }

// Bag returns the carried items in pickup order.
func (d *Dog) Bag() []BagItem {
	return d.bag
}

// SetDirection turns the dog without changing its scalar speed.
func (d *Dog) SetDirection(dir Direction) {
	d.dir = dir
}

// SetSpeed sets the velocity to value units per second along the
// current facing. Zero stops the dog in place.
func (d *Dog) SetSpeed(value float64) {
	switch d.dir {
	case North:
		d.speed = model.Position{X: 0, Y: -value}
	case South:
		d.speed = model.Position{X: 0, Y: value}
	case West:
		d.speed = model.Position{X: -value, Y: 0}
	case East:
		d.speed = model.Position{X: value, Y: 0}
	}
}

// SetBagCapacity sets how many items the dog can carry.
func (d *Dog) SetBagCapacity(capacity int) {
	d.bagCapacity = capacity
}

// SetRetirementTime sets the idle timeout in seconds.
func (d *Dog) SetRetirementTime(seconds float64) {
	d.retirementTime = seconds
}

// RetirementTime returns the idle timeout in seconds.
func (d *Dog) RetirementTime() float64 {
	return d.retirementTime
}

// CanPickUp reports whether there is room in the bag.
func (d *Dog) CanPickUp() bool {
	return len(d.bag) < d.bagCapacity
}

// PickUp puts an item into the bag and credits its value immediately.
// A full bag drops the call.
func (d *Dog) PickUp(itemID, itemType, value int) {
	if !d.CanPickUp() {
		return
	}
	d.bag = append(d.bag, BagItem{ID: itemID, Type: itemType})
	d.score += value
}

// ClearBag empties the bag at an office. Score was credited at pickup,
// so delivery changes nothing else.
func (d *Dog) ClearBag() {
	d.bag = nil
}

// RestoreBag replaces the bag contents. Used when restoring snapshots.
func (d *Dog) RestoreBag(items []BagItem) {
	d.bag = items
}

// Recorded reports whether the dog's retirement record was written.
func (d *Dog) Recorded() bool {
	return d.recorded
}

// MarkRecorded guards the leaderboard append; a retired dog is recorded
// at most once.
func (d *Dog) MarkRecorded() {
	d.recorded = true
}

// UpdatePosition advances the dog by dt seconds within s: movement
// clamped to roads, loot pickup along the swept path, bag drop-off at
// offices, idle accounting and retirement.
func (d *Dog) UpdatePosition(dt float64, s *Session) {
	if d.retired {
		return
	}
	d.lifeTime += dt

	if d.speed.X == 0 && d.speed.Y == 0 {
		d.idleTime += dt
		d.retireIfIdle()
		return
	}

	start := d.pos
	attempted := model.Position{X: start.X + d.speed.X*dt, Y: start.Y + d.speed.Y*dt}
	newPos := s.Map().FitPositionToRoad(start, attempted)

	dx := newPos.X - start.X
	dy := newPos.Y - start.Y
	distance := math.Hypot(dx, dy)
	speedMagnitude := math.Hypot(d.speed.X, d.speed.Y)

	activeTime := distance / speedMagnitude
	d.idleTime += math.Max(0, dt-activeTime)
	if newPos == attempted {
		d.idleTime = 0
	}

	provider := s.gatherProvider(start, newPos)
	var picked []int
	for _, event := range collision.FindGatherEvents(provider) {
		if !d.CanPickUp() {
			continue
		}
		obj := provider.items[event.ItemID]
		d.PickUp(obj.ID, obj.Type, obj.Value)
		picked = append(picked, obj.ID)
	}
	for _, id := range picked {
		s.removeLostObject(id)
	}

	for _, office := range s.Map().Offices() {
		ox := float64(office.Position.X) - newPos.X
		oy := float64(office.Position.Y) - newPos.Y
		if ox*ox+oy*oy <= model.DropOffRadius*model.DropOffRadius {
			d.ClearBag()
			break
		}
	}

	d.pos = newPos
	d.retireIfIdle()
}

func (d *Dog) retireIfIdle() {
	if d.idleTime >= d.retirementTime {
		d.retired = true
		d.speed = model.Position{}
	}
}

// RestoreDog rebuilds a dog from snapshot data. Idle and life time
// restart from zero; the caller assigns the retirement timeout from the
// map the dog returns to.
func RestoreDog(id DogID, name string, pos model.Position, capacity int,
	speed model.Position, dir Direction, score int, bag []BagItem) *Dog {
	return &Dog{
		id:          id,
		name:        name,
		pos:         pos,
		speed:       speed,
		dir:         dir,
		bagCapacity: capacity,
		bag:         bag,
		score:       score,
	}
}
