package app

import (
	"sort"

	"github.com/vkozyrev/dogwalk/game/session"
)

// PlayerState is one dog's view in the state document.
type PlayerState struct {
	ID    int
	Pos   [2]float64
	Speed [2]float64
	Dir   string
	Bag   []session.BagItem
	Score int
}

// LootState is one ground item in the state document.
type LootState struct {
	ID   int
	Type int
	Pos  [2]float64
}

// StateDocument is the observable state of one session: everything the
// game state endpoint reports and the websocket hub pushes.
type StateDocument struct {
	Players []PlayerState
	Loot    []LootState
}

// State returns the state document of the session the token's player
// is in.
func (a *App) State(token session.Token) (StateDocument, error) {
	var (
		doc StateDocument
		err error
	)
	a.exec.do(func() {
		player := a.players.FindByToken(token)
		if player == nil {
			err = ErrUnknownToken
			return
		}
		doc = a.stateOf(player.Session())
	})
	return doc, err
}

// stateOf builds a state document. Executor only; the result holds no
// references into live state.
func (a *App) stateOf(sess *session.Session) StateDocument {
	var doc StateDocument

	for _, dog := range sess.Dogs() {
		ps := PlayerState{
			ID:    int(dog.ID()),
			Pos:   [2]float64{dog.Position().X, dog.Position().Y},
			Speed: [2]float64{dog.Speed().X, dog.Speed().Y},
			Dir:   dog.Direction().Letter(),
			Score: dog.Score(),
		}
		ps.Bag = append(ps.Bag, dog.Bag()...)
		doc.Players = append(doc.Players, ps)
	}

	ids := make([]int, 0, len(sess.LostObjects()))
	for id := range sess.LostObjects() {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		obj := sess.LostObjects()[id]
		doc.Loot = append(doc.Loot, LootState{
			ID:   obj.ID,
			Type: obj.Type,
			Pos:  [2]float64{obj.Pos.X, obj.Pos.Y},
		})
	}
	return doc
}
