package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vkozyrev/dogwalk/game/session"
)

// saveRecordTimeout bounds the leaderboard insert during the sweep so a
// wedged database cannot stall the simulation forever.
const saveRecordTimeout = 5 * time.Second

// Tick advances the whole world by dt: loot spawning, dog movement with
// pickups and drop-offs, the retirement sweep, and the snapshot policy.
// The tick runs as one unit on the executor; no join or move can
// interleave with it.
func (a *App) Tick(dt time.Duration) {
	a.exec.do(func() { a.tick(dt) })
}

func (a *App) tick(dt time.Duration) {
	seconds := dt.Seconds()

	for _, mapID := range a.order {
		sess := a.sessions[mapID]
		gen := a.generators[mapID]
		n := gen.Generate(seconds, len(sess.LostObjects()), len(sess.Dogs()))
		if n > 0 {
			sess.AddRandomLoot(n, a.rnd)
		}
	}

	for _, mapID := range a.order {
		sess := a.sessions[mapID]
		for _, dog := range sess.Dogs() {
			dog.UpdatePosition(seconds, sess)
		}
	}

	a.sweepRetired()

	if a.opts.StateFile != "" && a.opts.SavePeriod > 0 &&
		time.Since(a.lastSave) >= a.opts.SavePeriod {
		a.saveSnapshot()
	}

	if a.listener != nil {
		for _, mapID := range a.order {
			a.listener(mapID, a.stateOf(a.sessions[mapID]))
		}
	}
}

// sweepRetired appends a leaderboard record for every retired dog,
// exactly once per dog, then removes the player and its dog.
func (a *App) sweepRetired() {
	var retired []*session.Player
	for _, player := range a.players.All() {
		if player.Dog().Retired() {
			retired = append(retired, player)
		}
	}

	for _, player := range retired {
		dog := player.Dog()
		if !dog.Recorded() {
			dog.MarkRecorded()
			ctx, cancel := context.WithTimeout(context.Background(), saveRecordTimeout)
			err := a.repo.SaveRecord(ctx, dog.Name(), dog.Score(), dog.LifeTime())
			cancel()
			if err != nil {
				a.log.Error("save retirement record", zap.String("name", dog.Name()), zap.Error(err))
			}
		}
		a.log.Info("dog retired",
			zap.String("name", dog.Name()),
			zap.Int("score", dog.Score()),
			zap.Float64("playTime", dog.LifeTime()))
		a.players.Remove(player.Token())
	}
}

// Ticker posts Tick(period) to the app at a fixed period. It is only
// started in real-time mode; debug mode drives ticks over HTTP.
type Ticker struct {
	app    *App
	period time.Duration
	stop   chan struct{}
	done   chan struct{}
}

// NewTicker creates a stopped ticker.
func NewTicker(app *App, period time.Duration) *Ticker {
	return &Ticker{
		app:    app,
		period: period,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the tick loop.
func (t *Ticker) Start() {
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.app.Tick(t.period)
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (t *Ticker) Stop() {
	close(t.stop)
	<-t.done
}
