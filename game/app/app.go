// Package app drives the game: it owns the sessions and the player
// registry, serializes all mutation through a single-writer executor,
// runs the simulation tick, and persists snapshots.
package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/vkozyrev/dogwalk/game/loot"
	"github.com/vkozyrev/dogwalk/game/model"
	"github.com/vkozyrev/dogwalk/game/session"
	"github.com/vkozyrev/dogwalk/storage/records"
)

var (
	ErrInvalidName  = errors.New("app: user name must not be empty")
	ErrMapNotFound  = errors.New("app: map not found")
	ErrUnknownToken = errors.New("app: unknown token")
)

// RecordRepository is the slice of the leaderboard store the app needs.
type RecordRepository interface {
	SaveRecord(ctx context.Context, name string, score int, playTime float64) error
	GetRecords(ctx context.Context, start, maxItems int) ([]records.Record, error)
}

// Options tune a new App.
type Options struct {
	// RandomizeSpawn drops joining dogs on random road points instead
	// of the first road's start.
	RandomizeSpawn bool
	// StateFile enables snapshotting when non-empty.
	StateFile string
	// SavePeriod is the minimum wall-clock interval between periodic
	// snapshots. Zero means save only on shutdown.
	SavePeriod time.Duration
	// Rand overrides the randomness source (tests). Defaults to a
	// time-seeded generator.
	Rand *rand.Rand
	// LootRandom dithers the loot generator probability, in [0,1].
	// Defaults to the deterministic 1.
	LootRandom func() float64
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// StateListener receives the state document of one map after each tick.
type StateListener func(mapID model.MapID, doc StateDocument)

// App is the game facade. Every method is safe for concurrent use;
// state-touching calls run on the internal executor.
type App struct {
	game *model.Game
	repo RecordRepository
	opts Options
	log  *zap.Logger

	exec *executor
	rnd  *rand.Rand

	// Everything below is touched only on the executor.
	order      []model.MapID
	sessions   map[model.MapID]*session.Session
	generators map[model.MapID]*loot.Generator
	players    *session.Players
	lastSave   time.Time
	listener   StateListener
}

// New creates an App over the loaded game world. If a state file is
// configured and present, the previous state is restored before the
// app accepts work.
func New(game *model.Game, repo RecordRepository, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	rnd := opts.Rand
	if rnd == nil {
		now := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(now, now>>32))
	}

	a := &App{
		game:       game,
		repo:       repo,
		opts:       opts,
		log:        opts.Logger,
		rnd:        rnd,
		sessions:   make(map[model.MapID]*session.Session),
		generators: make(map[model.MapID]*loot.Generator),
		players:    session.NewPlayers(),
		lastSave:   time.Now(),
	}
	a.exec = newExecutor()
	return a
}

// SetStateListener installs the post-tick state push hook.
func (a *App) SetStateListener(l StateListener) {
	a.exec.do(func() { a.listener = l })
}

// Game returns the immutable world.
func (a *App) Game() *model.Game {
	return a.game
}

// JoinResult is what a successful join returns to the client.
type JoinResult struct {
	Token    session.Token
	PlayerID int
}

// Join adds userName to the map's session, creating the session on
// first join, and returns the player's token and id.
func (a *App) Join(mapID model.MapID, userName string) (JoinResult, error) {
	if userName == "" {
		return JoinResult{}, ErrInvalidName
	}
	m := a.game.FindMap(mapID)
	if m == nil {
		return JoinResult{}, ErrMapNotFound
	}

	var result JoinResult
	a.exec.do(func() {
		sess := a.sessionFor(m)
		dog := sess.AddDog(userName, a.opts.RandomizeSpawn, a.rnd)
		player := a.players.Add(sess, dog, a.rnd)
		result = JoinResult{Token: player.Token(), PlayerID: int(dog.ID())}
	})

	a.log.Info("player joined",
		zap.String("map", string(mapID)),
		zap.String("name", userName),
		zap.Int("playerId", result.PlayerID))
	return result, nil
}

// sessionFor returns the session of m, creating it lazily together
// with its loot generator. Executor only.
func (a *App) sessionFor(m *model.Map) *session.Session {
	if sess, ok := a.sessions[m.ID()]; ok {
		return sess
	}
	sess := session.NewSession(m)
	a.installSession(sess)
	return sess
}

func (a *App) installSession(sess *session.Session) {
	id := sess.Map().ID()
	a.sessions[id] = sess
	a.order = append(a.order, id)

	cfg := a.game.LootConfig()
	random := a.opts.LootRandom
	if random == nil {
		a.generators[id] = loot.NewGenerator(cfg.Period, cfg.Probability)
	} else {
		a.generators[id] = loot.NewGeneratorWithRandom(cfg.Period, cfg.Probability, random)
	}
}

// PlayerInfo is one row of the players listing.
type PlayerInfo struct {
	ID   int
	Name string
}

// ListPlayers returns the dogs sharing a session with the token's
// player, in join order.
func (a *App) ListPlayers(token session.Token) ([]PlayerInfo, error) {
	var (
		result []PlayerInfo
		err    error
	)
	a.exec.do(func() {
		player := a.players.FindByToken(token)
		if player == nil {
			err = ErrUnknownToken
			return
		}
		for _, dog := range player.Session().Dogs() {
			result = append(result, PlayerInfo{ID: int(dog.ID()), Name: dog.Name()})
		}
	})
	return result, err
}

// Move points the token's dog in the direction given by the wire
// letter and sets its speed to the map's dog speed; the empty letter
// stops the dog.
func (a *App) Move(token session.Token, letter string) error {
	var err error
	a.exec.do(func() {
		player := a.players.FindByToken(token)
		if player == nil {
			err = ErrUnknownToken
			return
		}
		dog := player.Dog()
		if letter == "" {
			dog.SetSpeed(0)
			return
		}
		dir, ok := session.DirectionFromLetter(letter)
		if !ok {
			// The API validates the letter; treat as a stop.
			dog.SetSpeed(0)
			return
		}
		dog.SetDirection(dir)
		dog.SetSpeed(player.Session().Map().DogSpeed())
	})
	return err
}

// Records returns a leaderboard page. It reads the repository directly,
// off the executor.
func (a *App) Records(ctx context.Context, start, maxItems int) ([]records.Record, error) {
	return a.repo.GetRecords(ctx, start, maxItems)
}

// AddLoot drops count random items into the map's session. Used by
// tests and debug tooling to arrange deterministic pickups.
func (a *App) AddLoot(mapID model.MapID, count int) error {
	m := a.game.FindMap(mapID)
	if m == nil {
		return ErrMapNotFound
	}
	a.exec.do(func() {
		a.sessionFor(m).AddRandomLoot(count, a.rnd)
	})
	return nil
}

// Shutdown drains the executor and writes a final snapshot.
func (a *App) Shutdown() {
	a.exec.do(func() { a.saveSnapshot() })
	a.exec.stop()
}
