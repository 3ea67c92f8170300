package state

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vkozyrev/dogwalk/game/model"
	"github.com/vkozyrev/dogwalk/game/session"
)

func createTestMap() *model.Map {
	m := model.NewMap("town", "Town")
	m.AddRoad(model.NewHorizontalRoad(model.Point{X: 0, Y: 0}, 10))
	m.SetLootTypes([]model.LootType{
		{Name: "bone", Value: 5},
		{Name: "key", Value: 10},
	})
	m.SetRetirementTime(30)
	return m
}

func createTestSnapshot() *Snapshot {
	return &Snapshot{
		Sessions: []SessionState{
			{
				MapID:      "town",
				NextDogID:  2,
				NextLootID: 3,
				Lost: []LostObjectState{
					{ID: 0, Type: 1, Value: 10, X: 3, Y: 0},
					{ID: 2, Type: 0, Value: 5, X: 7.5, Y: 0},
				},
				Dogs: []DogState{
					{
						ID: 0, Name: "Rex", X: 1.5, Y: 0,
						BagCapacity: 3, SpeedX: 2, SpeedY: 0,
						Direction: 3, Score: 15,
						Bag: []BagItemState{{ID: 1, Type: 0}},
					},
					{
						ID: 1, Name: "Max", X: 0, Y: 0,
						BagCapacity: 3, Direction: 0, Score: 0,
					},
				},
			},
		},
		Players: []PlayerState{
			{Token: "0123456789abcdef0123456789abcdef", DogID: 0, MapID: "town"},
			{Token: "fedcba9876543210fedcba9876543210", DogID: 1, MapID: "town"},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	snap := createTestSnapshot()

	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(snap, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, snap)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	snap := createTestSnapshot()

	var a, b bytes.Buffer
	if err := snap.Encode(&a); err != nil {
		t.Fatal(err)
	}
	if err := snap.Encode(&b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two encodings of the same snapshot differ")
	}
}

func TestDecodeRejectsForeignData(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not a snapshot at all"))); !errors.Is(err, ErrBadMagic) {
		t.Errorf("error = %v, want ErrBadMagic", err)
	}

	// Right magic, wrong version.
	data := append([]byte{}, magic[:]...)
	data = append(data, 0xff, 0xff)
	if _, err := Decode(bytes.NewReader(data)); !errors.Is(err, ErrBadVersion) {
		t.Errorf("error = %v, want ErrBadVersion", err)
	}

	// Truncated payload.
	var buf bytes.Buffer
	if err := createTestSnapshot().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(bytes.NewReader(buf.Bytes()[:buf.Len()-4])); err == nil {
		t.Error("truncated snapshot decoded without error")
	}
}

func TestDecodeRejectsBadDirection(t *testing.T) {
	snap := createTestSnapshot()
	snap.Sessions[0].Dogs[0].Direction = 7

	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(&buf); !errors.Is(err, ErrBadDirection) {
		t.Errorf("error = %v, want ErrBadDirection", err)
	}
}

func TestCaptureAndRestoreSession(t *testing.T) {
	m := createTestMap()
	sess := session.NewSession(m)

	dog := sess.AddDog("Rex", false, nil)
	dog.SetDirection(session.East)
	dog.SetSpeed(2)
	dog.PickUp(5, 1, 10)
	sess.AddDog("Max", false, nil)

	captured := CaptureSession(sess)
	restored := captured.Restore(m)

	if restored.Map() != m {
		t.Error("restored session lost its map")
	}
	if restored.NextDogID() != sess.NextDogID() {
		t.Errorf("NextDogID = %d, want %d", restored.NextDogID(), sess.NextDogID())
	}
	if len(restored.Dogs()) != 2 {
		t.Fatalf("restored %d dogs, want 2", len(restored.Dogs()))
	}

	rex := restored.FindDog(dog.ID())
	if rex == nil {
		t.Fatal("Rex missing after restore")
	}
	if rex.Name() != "Rex" || rex.Score() != 10 {
		t.Errorf("restored dog: name %q, score %d", rex.Name(), rex.Score())
	}
	if rex.Speed() != dog.Speed() || rex.Direction() != dog.Direction() {
		t.Errorf("restored motion: speed %v, dir %v", rex.Speed(), rex.Direction())
	}
	if len(rex.Bag()) != 1 || rex.Bag()[0].ID != 5 {
		t.Errorf("restored bag = %+v", rex.Bag())
	}
	if rex.RetirementTime() != m.RetirementTime() {
		t.Errorf("RetirementTime = %v, want the map's %v", rex.RetirementTime(), m.RetirementTime())
	}
}

func TestCaptureSessionSortsLoot(t *testing.T) {
	m := createTestMap()
	lost := map[int]session.LostObject{
		9: {ID: 9, Type: 0, Value: 5, Pos: model.Position{X: 1, Y: 0}},
		2: {ID: 2, Type: 1, Value: 10, Pos: model.Position{X: 4, Y: 0}},
		5: {ID: 5, Type: 0, Value: 5, Pos: model.Position{X: 8, Y: 0}},
	}
	sess := session.RestoreSession(m, nil, 0, 10, lost)

	captured := CaptureSession(sess)
	if len(captured.Lost) != 3 {
		t.Fatalf("captured %d lost objects, want 3", len(captured.Lost))
	}
	for i, want := range []int32{2, 5, 9} {
		if captured.Lost[i].ID != want {
			t.Errorf("Lost[%d].ID = %d, want %d", i, captured.Lost[i].ID, want)
		}
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")
	snap := createTestSnapshot()

	if err := WriteFile(path, snap); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !reflect.DeepEqual(snap, loaded) {
		t.Error("file round trip mismatch")
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file was not cleaned up")
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")

	first := createTestSnapshot()
	if err := WriteFile(path, first); err != nil {
		t.Fatal(err)
	}

	second := createTestSnapshot()
	second.Sessions[0].NextLootID = 99
	if err := WriteFile(path, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Sessions[0].NextLootID != 99 {
		t.Errorf("NextLootID = %d, want the rewritten 99", loaded.Sessions[0].NextLootID)
	}
}

func TestReadFileMissing(t *testing.T) {
	snap, err := ReadFile(filepath.Join(t.TempDir(), "absent.bin"))
	if err != nil {
		t.Fatalf("ReadFile of a missing file errored: %v", err)
	}
	if snap != nil {
		t.Error("missing file must yield a nil snapshot")
	}
}
