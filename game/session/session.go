package session

import (
	"math/rand/v2"
	"sort"

	"github.com/vkozyrev/dogwalk/game/collision"
	"github.com/vkozyrev/dogwalk/game/model"
)

// LostObject is one loot item lying on a road of the session's map.
type LostObject struct {
	ID    int
	Type  int
	Value int
	Pos   model.Position
}

// Session is one running instance of a map: its live dogs and the loot
// scattered on the ground. All mutation happens on the app executor, so
// the session itself carries no locks.
type Session struct {
	m          *model.Map
	dogs       []*Dog
	nextDogID  DogID
	nextLootID int
	lost       map[int]LostObject
}

// NewSession creates an empty session over m.
func NewSession(m *model.Map) *Session {
	return &Session{
		m:    m,
		lost: make(map[int]LostObject),
	}
}

// RestoreSession rebuilds a session from snapshot data.
func RestoreSession(m *model.Map, dogs []*Dog, nextDogID DogID, nextLootID int, lost map[int]LostObject) *Session {
	if lost == nil {
		lost = make(map[int]LostObject)
	}
	return &Session{
		m:          m,
		dogs:       dogs,
		nextDogID:  nextDogID,
		nextLootID: nextLootID,
		lost:       lost,
	}
}

// Map returns the session's immutable map.
func (s *Session) Map() *model.Map {
	return s.m
}

// Dogs returns the live dogs in join order.
func (s *Session) Dogs() []*Dog {
	return s.dogs
}

// NextDogID and NextLootID expose the id counters for snapshots.
func (s *Session) NextDogID() DogID { return s.nextDogID }
func (s *Session) NextLootID() int { return s.nextLootID }

// LostObjects returns the loot on the ground keyed by id.
func (s *Session) LostObjects() map[int]LostObject {
	return s.lost
}

// AddDog spawns a dog named name. With randomize it lands on a uniform
// point of a uniform road; otherwise on the first road's start. The dog
// inherits the map's bag capacity and retirement timeout.
func (s *Session) AddDog(name string, randomize bool, rnd *rand.Rand) *Dog {
	var pos model.Position
	if randomize {
		pos = model.RandomPositionOnRoad(s.m, rnd)
	} else {
		start := s.m.Roads()[0].Start
		pos = model.Position{X: float64(start.X), Y: float64(start.Y)}
	}

	dog := NewDog(s.nextDogID, name, pos)
	s.nextDogID++
	dog.SetBagCapacity(s.m.BagCapacity())
	dog.SetRetirementTime(s.m.RetirementTime())
	s.dogs = append(s.dogs, dog)
	return dog
}

// RemoveDog deletes the dog with the given id, keeping join order.
func (s *Session) RemoveDog(id DogID) {
	for i, dog := range s.dogs {
		if dog.ID() == id {
			s.dogs = append(s.dogs[:i], s.dogs[i+1:]...)
			return
		}
	}
}

// FindDog returns the dog with the given id, or nil.
func (s *Session) FindDog(id DogID) *Dog {
	for _, dog := range s.dogs {
		if dog.ID() == id {
			return dog
		}
	}
	return nil
}

// AddRandomLoot drops count fresh items on random road points, each of
// a uniform type from the map's loot catalog.
func (s *Session) AddRandomLoot(count int, rnd *rand.Rand) {
	types := s.m.LootTypes()
	for i := 0; i < count; i++ {
		obj := LostObject{
			ID:   s.nextLootID,
			Type: rnd.IntN(len(types)),
			Pos:  model.RandomPositionOnRoad(s.m, rnd),
		}
		obj.Value = types[obj.Type].Value
		s.nextLootID++
		s.lost[obj.ID] = obj
	}
}

func (s *Session) removeLostObject(id int) {
	delete(s.lost, id)
}

// gatherProvider snapshots the lost objects in ascending id order, so
// simultaneous pickup events resolve deterministically.
func (s *Session) gatherProvider(start, end model.Position) *sweepProvider {
	items := make([]LostObject, 0, len(s.lost))
	for _, obj := range s.lost {
		items = append(items, obj)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &sweepProvider{items: items, start: start, end: end}
}

// sweepProvider adapts one moving dog and the session's loot to the
// collision detector.
type sweepProvider struct {
	items []LostObject
	start model.Position
	end   model.Position
}

func (p *sweepProvider) ItemsCount() int {
	return len(p.items)
}

func (p *sweepProvider) Item(idx int) collision.Item {
	obj := p.items[idx]
	return collision.Item{Position: collision.Vec2{X: obj.Pos.X, Y: obj.Pos.Y}}
}

func (p *sweepProvider) GatherersCount() int {
	return 1
}

func (p *sweepProvider) Gatherer(int) collision.Gatherer {
	return collision.Gatherer{
		StartPos: collision.Vec2{X: p.start.X, Y: p.start.Y},
		EndPos:   collision.Vec2{X: p.end.X, Y: p.end.Y},
		Width:    GatherRadius,
	}
}
