package session

import (
	"math"
	"testing"

	"github.com/vkozyrev/dogwalk/game/model"
)

func createTestMap() *model.Map {
	m := model.NewMap("town", "Town")
	m.AddRoad(model.NewHorizontalRoad(model.Point{X: 0, Y: 0}, 10))
	m.AddOffice(model.Office{ID: "o0", Position: model.Point{X: 10, Y: 0}})
	m.SetLootTypes([]model.LootType{
		{Name: "bone", Value: 5},
		{Name: "key", Value: 10},
	})
	return m
}

func placeLoot(s *Session, obj LostObject) {
	s.lost[obj.ID] = obj
	if obj.ID >= s.nextLootID {
		s.nextLootID = obj.ID + 1
	}
}

func TestDirectionLetters(t *testing.T) {
	letters := map[Direction]string{North: "U", South: "D", West: "L", East: "R"}
	for dir, letter := range letters {
		if got := dir.Letter(); got != letter {
			t.Errorf("%v.Letter() = %q, want %q", dir, got, letter)
		}
		parsed, ok := DirectionFromLetter(letter)
		if !ok || parsed != dir {
			t.Errorf("DirectionFromLetter(%q) = %v, %v", letter, parsed, ok)
		}
	}
	if _, ok := DirectionFromLetter("X"); ok {
		t.Error("DirectionFromLetter(X) must fail")
	}
}

func TestSetSpeedFollowsFacing(t *testing.T) {
	tests := []struct {
		dir  Direction
		want model.Position
	}{
		{North, model.Position{X: 0, Y: -3}},
		{South, model.Position{X: 0, Y: 3}},
		{West, model.Position{X: -3, Y: 0}},
		{East, model.Position{X: 3, Y: 0}},
	}
	for _, tt := range tests {
		d := NewDog(0, "Rex", model.Position{})
		d.SetDirection(tt.dir)
		d.SetSpeed(3)
		if d.Speed() != tt.want {
			t.Errorf("dir %v: Speed = %v, want %v", tt.dir, d.Speed(), tt.want)
		}
	}
}

func TestDogMovesAlongRoad(t *testing.T) {
	sess := NewSession(createTestMap())
	dog := sess.AddDog("Rex", false, nil)

	dog.SetDirection(East)
	dog.SetSpeed(2)
	dog.UpdatePosition(1.0, sess)

	if dog.Position() != (model.Position{X: 2, Y: 0}) {
		t.Errorf("Position = %v, want (2, 0)", dog.Position())
	}
	if dog.IdleTime() != 0 {
		t.Errorf("IdleTime = %v, want 0 after an unobstructed move", dog.IdleTime())
	}
	if dog.LifeTime() != 1.0 {
		t.Errorf("LifeTime = %v, want 1.0", dog.LifeTime())
	}
}

func TestDogClampedAtRoadEnd(t *testing.T) {
	sess := NewSession(createTestMap())
	dog := sess.AddDog("Rex", false, nil)

	dog.SetDirection(East)
	dog.SetSpeed(4)
	dog.UpdatePosition(5.0, sess)

	want := model.Position{X: 10.4, Y: 0}
	if math.Abs(dog.Position().X-want.X) > 1e-9 || dog.Position().Y != 0 {
		t.Errorf("Position = %v, want %v", dog.Position(), want)
	}
	// Only 10.4 of the attempted 20 units were walkable, so 2.6 of the
	// 5 seconds count as active and 2.4 as idle.
	if math.Abs(dog.IdleTime()-2.4) > 1e-9 {
		t.Errorf("IdleTime = %v, want 2.4", dog.IdleTime())
	}
}

func TestDogIdleRetirement(t *testing.T) {
	m := createTestMap()
	m.SetRetirementTime(1.0)
	sess := NewSession(m)
	dog := sess.AddDog("Rex", false, nil)

	dog.UpdatePosition(0.5, sess)
	if dog.Retired() {
		t.Fatal("retired too early")
	}
	dog.UpdatePosition(0.5, sess)
	if !dog.Retired() {
		t.Fatal("dog should retire after 1.0s idle")
	}
	if dog.Speed() != (model.Position{}) {
		t.Errorf("retired dog keeps speed %v", dog.Speed())
	}
	if dog.LifeTime() != 1.0 {
		t.Errorf("LifeTime = %v, want 1.0", dog.LifeTime())
	}

	// Time stops for a retired dog.
	dog.UpdatePosition(10, sess)
	if dog.LifeTime() != 1.0 {
		t.Errorf("retired dog accrued life time: %v", dog.LifeTime())
	}
}

func TestDogIdleResetOnMove(t *testing.T) {
	m := createTestMap()
	m.SetRetirementTime(1.0)
	sess := NewSession(m)
	dog := sess.AddDog("Rex", false, nil)

	dog.UpdatePosition(0.9, sess)
	dog.SetDirection(East)
	dog.SetSpeed(1)
	dog.UpdatePosition(0.2, sess)

	if dog.Retired() {
		t.Fatal("moving dog must not retire")
	}
	if dog.IdleTime() != 0 {
		t.Errorf("IdleTime = %v, want 0", dog.IdleTime())
	}
	if dog.LifeTime() != 1.1 {
		t.Errorf("LifeTime = %v, want 1.1", dog.LifeTime())
	}
}

func TestDogBlockedDogStillRetires(t *testing.T) {
	m := createTestMap()
	m.SetRetirementTime(1.0)
	sess := NewSession(m)
	dog := sess.AddDog("Rex", false, nil)

	// Pressing west at the road start makes no progress, so the whole
	// tick counts as idle despite the nonzero velocity.
	dog.SetDirection(West)
	dog.SetSpeed(1)
	dog.UpdatePosition(0.4, sess) // walks to the corridor edge at -0.4
	dog.UpdatePosition(0.7, sess)
	dog.UpdatePosition(0.7, sess)

	if !dog.Retired() {
		t.Errorf("blocked dog should retire; idle = %v", dog.IdleTime())
	}
}

func TestDogPickupAlongPath(t *testing.T) {
	sess := NewSession(createTestMap())
	dog := sess.AddDog("Rex", false, nil)

	placeLoot(sess, LostObject{ID: 0, Type: 1, Value: 10, Pos: model.Position{X: 3, Y: 0}})
	placeLoot(sess, LostObject{ID: 1, Type: 0, Value: 5, Pos: model.Position{X: 1, Y: 0.3}})
	placeLoot(sess, LostObject{ID: 2, Type: 0, Value: 5, Pos: model.Position{X: 8, Y: 0}})

	dog.SetDirection(East)
	dog.SetSpeed(5)
	dog.UpdatePosition(1.0, sess)

	bag := dog.Bag()
	if len(bag) != 2 {
		t.Fatalf("bag has %d items, want 2", len(bag))
	}
	// Pickup order follows the sweep: the item at x=1 first.
	if bag[0].ID != 1 || bag[1].ID != 0 {
		t.Errorf("bag order = %+v", bag)
	}
	if dog.Score() != 15 {
		t.Errorf("Score = %d, want 15", dog.Score())
	}
	if len(sess.LostObjects()) != 1 {
		t.Errorf("%d items left on the ground, want 1", len(sess.LostObjects()))
	}
	if _, left := sess.LostObjects()[2]; !left {
		t.Error("the unreached item at x=8 must stay")
	}
}

func TestDogPickupRespectsBagCapacity(t *testing.T) {
	m := createTestMap()
	m.SetBagCapacity(1)
	sess := NewSession(m)
	dog := sess.AddDog("Rex", false, nil)

	placeLoot(sess, LostObject{ID: 0, Type: 0, Value: 5, Pos: model.Position{X: 2, Y: 0}})
	placeLoot(sess, LostObject{ID: 1, Type: 0, Value: 5, Pos: model.Position{X: 4, Y: 0}})

	dog.SetDirection(East)
	dog.SetSpeed(5)
	dog.UpdatePosition(1.0, sess)

	if len(dog.Bag()) != 1 {
		t.Fatalf("bag has %d items, want 1", len(dog.Bag()))
	}
	if dog.Bag()[0].ID != 0 {
		t.Errorf("picked item %d, want the earlier one", dog.Bag()[0].ID)
	}
	if _, left := sess.LostObjects()[1]; !left {
		t.Error("item beyond capacity must stay on the ground")
	}
}

func TestDogScoreCreditedAtPickup(t *testing.T) {
	// A map with no office: the value must be on the score as soon as
	// the item is swept, not deferred to a delivery.
	m := model.NewMap("plain", "Plain")
	m.AddRoad(model.NewHorizontalRoad(model.Point{X: 0, Y: 0}, 10))
	m.SetLootTypes([]model.LootType{{Name: "coin", Value: 7}})
	sess := NewSession(m)
	dog := sess.AddDog("Rex", false, nil)

	placeLoot(sess, LostObject{ID: 0, Type: 0, Value: 7, Pos: model.Position{X: 2, Y: 0}})

	dog.SetDirection(East)
	dog.SetSpeed(5)
	dog.UpdatePosition(1.0, sess) // ends mid-road at x=5

	if len(dog.Bag()) != 1 {
		t.Fatalf("bag has %d items, want 1", len(dog.Bag()))
	}
	if dog.Score() != 7 {
		t.Errorf("Score = %d, want 7 right after pickup", dog.Score())
	}
}

func TestDogMissesLootOffPath(t *testing.T) {
	sess := NewSession(createTestMap())
	dog := sess.AddDog("Rex", false, nil)

	// Farther from the centerline than the gather radius.
	placeLoot(sess, LostObject{ID: 0, Type: 0, Value: 5, Pos: model.Position{X: 3, Y: 0.7}})

	dog.SetDirection(East)
	dog.SetSpeed(5)
	dog.UpdatePosition(1.0, sess)

	if len(dog.Bag()) != 0 {
		t.Errorf("bag has %d items, want 0", len(dog.Bag()))
	}
}

func TestDogDropsBagAtOffice(t *testing.T) {
	sess := NewSession(createTestMap())
	dog := sess.AddDog("Rex", false, nil)

	placeLoot(sess, LostObject{ID: 0, Type: 1, Value: 10, Pos: model.Position{X: 5, Y: 0}})

	dog.SetDirection(East)
	dog.SetSpeed(10)
	dog.UpdatePosition(1.0, sess) // sweeps the loot and ends at the office

	if len(dog.Bag()) != 0 {
		t.Fatalf("bag has %d items after the office, want 0", len(dog.Bag()))
	}
	// The score was credited at pickup; the office only takes the bag.
	if dog.Score() != 10 {
		t.Errorf("Score = %d, want 10", dog.Score())
	}
}

func TestRestoreDogStartsFresh(t *testing.T) {
	bag := []BagItem{{ID: 7, Type: 1}}
	dog := RestoreDog(3, "Rex", model.Position{X: 2, Y: 0}, 3,
		model.Position{X: 1, Y: 0}, East, 25, bag)

	if dog.ID() != 3 || dog.Name() != "Rex" || dog.Score() != 25 {
		t.Errorf("restored dog = %+v", dog)
	}
	if dog.IdleTime() != 0 || dog.LifeTime() != 0 {
		t.Error("restored dog must start with zero timers")
	}
	if dog.Retired() || dog.Recorded() {
		t.Error("restored dog must not be retired")
	}
	if len(dog.Bag()) != 1 || dog.Bag()[0].ID != 7 {
		t.Errorf("Bag = %+v", dog.Bag())
	}
}
