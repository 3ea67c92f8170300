package session

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/vkozyrev/dogwalk/game/model"
)

// Token is the opaque 32-hex-character credential identifying a player.
type Token string

// ErrDuplicateToken is returned when a restored player carries a token
// that is already registered.
var ErrDuplicateToken = errors.New("duplicate player token")

// GenerateToken builds a token from two pseudorandom 64-bit halves.
func GenerateToken(rnd *rand.Rand) Token {
	return Token(fmt.Sprintf("%016x%016x", rnd.Uint64(), rnd.Uint64()))
}

// IsValidToken reports whether s is exactly 32 lowercase hex characters.
func IsValidToken(s string) bool {
	if len(s) != 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Player binds a token to a dog inside a session.
type Player struct {
	token   Token
	session *Session
	dog     *Dog
}

func (p *Player) Token() Token { return p.token }
func (p *Player) Session() *Session { return p.session }
func (p *Player) Dog() *Dog { return p.dog }

type dogMapKey struct {
	dogID DogID
	mapID model.MapID
}

// Players is the registry of live players, indexed by token and by
// (dog id, map id). Iteration order is join order.
type Players struct {
	ordered  []*Player
	byToken  map[Token]*Player
	byDogMap map[dogMapKey]*Player
}

// NewPlayers creates an empty registry.
func NewPlayers() *Players {
	return &Players{
		byToken:  make(map[Token]*Player),
		byDogMap: make(map[dogMapKey]*Player),
	}
}

// Add registers a new player for dog in sess under a freshly generated
// unique token.
func (ps *Players) Add(sess *Session, dog *Dog, rnd *rand.Rand) *Player {
	token := GenerateToken(rnd)
	for {
		if _, taken := ps.byToken[token]; !taken {
			break
		}
		token = GenerateToken(rnd)
	}

	player := &Player{token: token, session: sess, dog: dog}
	ps.insert(player)
	return player
}

// AddRestored registers a player under its snapshot token.
func (ps *Players) AddRestored(token Token, sess *Session, dog *Dog) (*Player, error) {
	if _, taken := ps.byToken[token]; taken {
		return nil, ErrDuplicateToken
	}
	player := &Player{token: token, session: sess, dog: dog}
	ps.insert(player)
	return player, nil
}

func (ps *Players) insert(p *Player) {
	ps.ordered = append(ps.ordered, p)
	ps.byToken[p.token] = p
	ps.byDogMap[dogMapKey{dogID: p.dog.ID(), mapID: p.session.Map().ID()}] = p
}

// FindByToken returns the player holding token, or nil.
func (ps *Players) FindByToken(token Token) *Player {
	return ps.byToken[token]
}

// FindByDogAndMap returns the player whose dog has the given id on the
// given map, or nil.
func (ps *Players) FindByDogAndMap(dogID DogID, mapID model.MapID) *Player {
	return ps.byDogMap[dogMapKey{dogID: dogID, mapID: mapID}]
}

// Remove drops the player with the given token from the registry and
// removes its dog from the session.
func (ps *Players) Remove(token Token) {
	player, ok := ps.byToken[token]
	if !ok {
		return
	}
	delete(ps.byToken, token)
	delete(ps.byDogMap, dogMapKey{dogID: player.dog.ID(), mapID: player.session.Map().ID()})
	for i, p := range ps.ordered {
		if p == player {
			ps.ordered = append(ps.ordered[:i], ps.ordered[i+1:]...)
			break
		}
	}
	player.session.RemoveDog(player.dog.ID())
}

// All returns the players in join order.
func (ps *Players) All() []*Player {
	return ps.ordered
}

// Count returns the number of registered players.
func (ps *Players) Count() int {
	return len(ps.ordered)
}
