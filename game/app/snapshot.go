package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/vkozyrev/dogwalk/game/model"
	"github.com/vkozyrev/dogwalk/game/session"
	"github.com/vkozyrev/dogwalk/game/state"
)

// saveSnapshot writes the current state to the configured state file.
// Failures are logged and never fail the tick. Executor only.
func (a *App) saveSnapshot() {
	if a.opts.StateFile == "" {
		return
	}

	snap := &state.Snapshot{}
	for _, mapID := range a.order {
		snap.Sessions = append(snap.Sessions, state.CaptureSession(a.sessions[mapID]))
	}
	for _, player := range a.players.All() {
		snap.Players = append(snap.Players, state.CapturePlayer(player))
	}

	if err := state.WriteFile(a.opts.StateFile, snap); err != nil {
		a.log.Error("write snapshot", zap.String("file", a.opts.StateFile), zap.Error(err))
		return
	}
	a.lastSave = time.Now()
	a.log.Debug("snapshot saved",
		zap.Int("sessions", len(snap.Sessions)),
		zap.Int("players", len(snap.Players)))
}

// Restore loads the state file, if any, and rebuilds sessions and
// players. A missing or corrupt snapshot leaves the app empty; only
// I/O on an existing readable file is fatal to the caller.
func (a *App) Restore() error {
	if a.opts.StateFile == "" {
		return nil
	}

	snap, err := state.ReadFile(a.opts.StateFile)
	if err != nil {
		a.log.Warn("snapshot unreadable, starting empty",
			zap.String("file", a.opts.StateFile), zap.Error(err))
		return nil
	}
	if snap == nil {
		return nil
	}

	a.exec.do(func() { a.restore(snap) })
	return nil
}

func (a *App) restore(snap *state.Snapshot) {
	for _, ss := range snap.Sessions {
		m := a.game.FindMap(model.MapID(ss.MapID))
		if m == nil {
			a.log.Warn("snapshot references unknown map, skipping session",
				zap.String("map", ss.MapID))
			continue
		}
		a.installSession(ss.Restore(m))
	}

	for _, ps := range snap.Players {
		sess, ok := a.sessions[model.MapID(ps.MapID)]
		if !ok {
			continue
		}
		dog := sess.FindDog(session.DogID(ps.DogID))
		if dog == nil {
			a.log.Warn("snapshot player has no dog, skipping",
				zap.String("map", ps.MapID), zap.Int32("dogId", ps.DogID))
			continue
		}
		if _, err := a.players.AddRestored(session.Token(ps.Token), sess, dog); err != nil {
			a.log.Warn("snapshot player skipped", zap.Error(err))
		}
	}

	a.log.Info("state restored",
		zap.Int("sessions", len(snap.Sessions)),
		zap.Int("players", a.players.Count()))
}
