// Package state serializes the server's entire mutable state, every
// session with its dogs and loot and every player token, to a single
// binary blob, and restores it on startup.
//
// The blob starts with a magic and a format version so future layouts
// can migrate; everything after is little-endian and length-prefixed.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/vkozyrev/dogwalk/game/model"
	"github.com/vkozyrev/dogwalk/game/session"
)

var magic = [4]byte{'D', 'W', 'L', 'K'}

// Version is the snapshot format version this build reads and writes.
const Version uint16 = 1

var (
	ErrBadMagic     = errors.New("state: not a snapshot file")
	ErrBadVersion   = errors.New("state: unsupported snapshot version")
	ErrBadDirection = errors.New("state: dog direction out of range")
)

// Snapshot is the decoded form of a state blob.
type Snapshot struct {
	Sessions []SessionState
	Players  []PlayerState
}

// SessionState captures one session.
type SessionState struct {
	MapID      string
	NextDogID  int32
	NextLootID int32
	Lost       []LostObjectState
	Dogs       []DogState
}

// LostObjectState captures one item on the ground.
type LostObjectState struct {
	ID    int32
	Type  int32
	Value int32
	X     float64
	Y     float64
}

// DogState captures one dog.
type DogState struct {
	ID          int32
	Name        string
	X           float64
	Y           float64
	BagCapacity int32
	SpeedX      float64
	SpeedY      float64
	Direction   uint8
	Score       int32
	Bag         []BagItemState
}

// BagItemState captures one carried item.
type BagItemState struct {
	ID   int32
	Type int32
}

// PlayerState captures one player's binding of token to dog and map.
type PlayerState struct {
	Token string
	DogID int32
	MapID string
}

// CaptureSession converts a live session. Lost objects are emitted in
// ascending id order so identical states encode to identical bytes.
func CaptureSession(s *session.Session) SessionState {
	ss := SessionState{
		MapID:      string(s.Map().ID()),
		NextDogID:  int32(s.NextDogID()),
		NextLootID: int32(s.NextLootID()),
	}

	ids := make([]int, 0, len(s.LostObjects()))
	for id := range s.LostObjects() {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		obj := s.LostObjects()[id]
		ss.Lost = append(ss.Lost, LostObjectState{
			ID:    int32(obj.ID),
			Type:  int32(obj.Type),
			Value: int32(obj.Value),
			X:     obj.Pos.X,
			Y:     obj.Pos.Y,
		})
	}

	for _, dog := range s.Dogs() {
		ds := DogState{
			ID:          int32(dog.ID()),
			Name:        dog.Name(),
			X:           dog.Position().X,
			Y:           dog.Position().Y,
			BagCapacity: int32(dog.BagCapacity()),
			SpeedX:      dog.Speed().X,
			SpeedY:      dog.Speed().Y,
			Direction:   uint8(dog.Direction()),
			Score:       int32(dog.Score()),
		}
		for _, item := range dog.Bag() {
			ds.Bag = append(ds.Bag, BagItemState{ID: int32(item.ID), Type: int32(item.Type)})
		}
		ss.Dogs = append(ss.Dogs, ds)
	}
	return ss
}

// Restore rebuilds a live session on m from the captured state.
func (ss SessionState) Restore(m *model.Map) *session.Session {
	lost := make(map[int]session.LostObject, len(ss.Lost))
	for _, obj := range ss.Lost {
		lost[int(obj.ID)] = session.LostObject{
			ID:    int(obj.ID),
			Type:  int(obj.Type),
			Value: int(obj.Value),
			Pos:   model.Position{X: obj.X, Y: obj.Y},
		}
	}

	dogs := make([]*session.Dog, 0, len(ss.Dogs))
	for _, ds := range ss.Dogs {
		var bag []session.BagItem
		for _, item := range ds.Bag {
			bag = append(bag, session.BagItem{ID: int(item.ID), Type: int(item.Type)})
		}
		dog := session.RestoreDog(
			session.DogID(ds.ID),
			ds.Name,
			model.Position{X: ds.X, Y: ds.Y},
			int(ds.BagCapacity),
			model.Position{X: ds.SpeedX, Y: ds.SpeedY},
			session.Direction(ds.Direction),
			int(ds.Score),
			bag,
		)
		dog.SetRetirementTime(m.RetirementTime())
		dogs = append(dogs, dog)
	}

	return session.RestoreSession(m, dogs, session.DogID(ss.NextDogID), int(ss.NextLootID), lost)
}

// CapturePlayer converts a live player.
func CapturePlayer(p *session.Player) PlayerState {
	return PlayerState{
		Token: string(p.Token()),
		DogID: int32(p.Dog().ID()),
		MapID: string(p.Session().Map().ID()),
	}
}

// Encode writes the snapshot to w.
func (s *Snapshot) Encode(w io.Writer) error {
	e := encoder{w: w}
	e.bytes(magic[:])
	e.u16(Version)

	e.u32(uint32(len(s.Sessions)))
	for _, ss := range s.Sessions {
		e.str(ss.MapID)
		e.i32(ss.NextDogID)
		e.i32(ss.NextLootID)
		e.u32(uint32(len(ss.Lost)))
		for _, obj := range ss.Lost {
			e.i32(obj.ID)
			e.i32(obj.Type)
			e.i32(obj.Value)
			e.f64(obj.X)
			e.f64(obj.Y)
		}
		e.u32(uint32(len(ss.Dogs)))
		for _, dog := range ss.Dogs {
			e.i32(dog.ID)
			e.str(dog.Name)
			e.f64(dog.X)
			e.f64(dog.Y)
			e.i32(dog.BagCapacity)
			e.f64(dog.SpeedX)
			e.f64(dog.SpeedY)
			e.u8(dog.Direction)
			e.i32(dog.Score)
			e.u32(uint32(len(dog.Bag)))
			for _, item := range dog.Bag {
				e.i32(item.ID)
				e.i32(item.Type)
			}
		}
	}

	e.u32(uint32(len(s.Players)))
	for _, p := range s.Players {
		e.str(p.Token)
		e.i32(p.DogID)
		e.str(p.MapID)
	}
	return e.err
}

// Decode reads a snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	d := decoder{r: r}

	var m [4]byte
	d.bytes(m[:])
	if d.err != nil {
		return nil, fmt.Errorf("state: read header: %w", d.err)
	}
	if m != magic {
		return nil, ErrBadMagic
	}
	if v := d.u16(); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	var snap Snapshot
	for i := d.u32(); i > 0 && d.err == nil; i-- {
		ss := SessionState{
			MapID:      d.str(),
			NextDogID:  d.i32(),
			NextLootID: d.i32(),
		}
		for j := d.u32(); j > 0 && d.err == nil; j-- {
			ss.Lost = append(ss.Lost, LostObjectState{
				ID:    d.i32(),
				Type:  d.i32(),
				Value: d.i32(),
				X:     d.f64(),
				Y:     d.f64(),
			})
		}
		for j := d.u32(); j > 0 && d.err == nil; j-- {
			ds := DogState{
				ID:          d.i32(),
				Name:        d.str(),
				X:           d.f64(),
				Y:           d.f64(),
				BagCapacity: d.i32(),
				SpeedX:      d.f64(),
				SpeedY:      d.f64(),
				Direction:   d.u8(),
				Score:       d.i32(),
			}
			if d.err == nil && ds.Direction > uint8(session.East) {
				return nil, fmt.Errorf("%w: %d", ErrBadDirection, ds.Direction)
			}
			for k := d.u32(); k > 0 && d.err == nil; k-- {
				ds.Bag = append(ds.Bag, BagItemState{ID: d.i32(), Type: d.i32()})
			}
			ss.Dogs = append(ss.Dogs, ds)
		}
		snap.Sessions = append(snap.Sessions, ss)
	}

	for i := d.u32(); i > 0 && d.err == nil; i-- {
		snap.Players = append(snap.Players, PlayerState{
			Token: d.str(),
			DogID: d.i32(),
			MapID: d.str(),
		})
	}

	if d.err != nil {
		return nil, fmt.Errorf("state: decode: %w", d.err)
	}
	return &snap, nil
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) bytes(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) u8(v uint8) { e.bytes([]byte{v}) }
func (e *encoder) u16(v uint16) { e.bytes(binary.LittleEndian.AppendUint16(nil, v)) }
func (e *encoder) u32(v uint32) { e.bytes(binary.LittleEndian.AppendUint32(nil, v)) }
func (e *encoder) i32(v int32) { e.u32(uint32(v)) }
func (e *encoder) f64(v float64) {
	e.bytes(binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)))
}

func (e *encoder) str(s string) {
	e.u16(uint16(len(s)))
	e.bytes([]byte(s))
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) bytes(b []byte) {
	if d.err == nil {
		_, d.err = io.ReadFull(d.r, b)
	}
}

func (d *decoder) u8() uint8 {
	var b [1]byte
	d.bytes(b[:])
	return b[0]
}

func (d *decoder) u16() uint16 {
	var b [2]byte
	d.bytes(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (d *decoder) u32() uint32 {
	var b [4]byte
	d.bytes(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) f64() float64 {
	var b [8]byte
	d.bytes(b[:])
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

func (d *decoder) str() string {
	n := d.u16()
	if d.err != nil {
		return ""
	}
	b := make([]byte, n)
	d.bytes(b)
	return string(b)
}
