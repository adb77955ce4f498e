package game

import (
	"time"

	"github.com/ironrailgames/railserver/protocol"
)

// runTickDriver is the goroutine started once the room fills up (spec.md
// §4.4 "Turn barrier"): it waits up to TickTime on the "start tick" signal,
// whether that fires early or times out it runs one tick(), then clears
// every player's turn_called flag and rolls g.turnDone to a fresh
// generation so any TURN call blocked on the old one wakes up. Mirrors the
// teacher's per-room goroutine-per-tick shape (game/game_actor.go's
// select-driven loop) without the actor mailbox, since this package drives
// state directly under g.mu instead of message passing.
func (g *Instance) runTickDriver() {
	for {
		select {
		case <-g.startTick:
		case <-time.After(g.cfg.TickTime):
		case <-g.stopCh:
			return
		}

		g.mu.Lock()
		if g.state != StateRun {
			g.mu.Unlock()
			return
		}
		g.tick()
		if g.NumTurns > 0 && g.currentTick >= g.NumTurns {
			g.state = StateFinished
		}
		g.clearStartTickLocked()
		for _, p := range g.players {
			p.TurnCalled = false
		}
		finished := g.state == StateFinished
		close(g.turnDone)
		g.turnDone = make(chan struct{})
		g.mu.Unlock()

		if finished {
			return
		}
	}
}

// clearStartTickLocked drains a pending-but-unconsumed start signal so the
// next loop iteration doesn't immediately re-fire. Caller holds g.mu.
func (g *Instance) clearStartTickLocked() {
	select {
	case <-g.startTick:
	default:
	}
}

// Turn implements the TURN action (spec.md §4.4): the caller marks
// themselves as having called turn for this tick, forces an early tick if
// every in_game player now agrees, then blocks until a tick actually runs
// or TurnTimeout elapses. The wait is expressed as a channel generation
// (g.turnDone, closed and replaced every completed tick) rather than a
// sync.Cond, since the wait must happen with the lock released and a
// plain channel makes that safe without a second goroutine touching g.mu.
func (g *Instance) Turn(playerID string) error {
	g.mu.Lock()

	if g.state == StateFinished {
		g.mu.Unlock()
		return protocol.ErrAccessDenied("game %q has already finished", g.Name)
	}
	player, ok := g.players[playerID]
	if !ok {
		g.mu.Unlock()
		return protocol.ErrAccessDenied("player not in this game")
	}
	if g.state != StateRun {
		g.mu.Unlock()
		return protocol.ErrInappropriate("game %q has not started yet", g.Name)
	}

	player.TurnCalled = true
	if g.allPlayersCalledLocked() {
		g.signalStartTickLocked()
	}

	startTick := g.currentTick
	deadline := time.Now().Add(g.cfg.TurnTimeout)

	for g.currentTick == startTick && g.state == StateRun {
		done := g.turnDone
		g.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return protocol.ErrTimeout("turn %d did not complete in time", startTick)
		}
		select {
		case <-done:
		case <-time.After(remaining):
			return protocol.ErrTimeout("turn %d did not complete in time", startTick)
		}

		g.mu.Lock()
	}
	g.mu.Unlock()
	return nil
}

func (g *Instance) allPlayersCalledLocked() bool {
	any := false
	for _, pid := range g.playerOrder {
		p := g.players[pid]
		if p == nil || !p.InGame {
			continue
		}
		any = true
		if !p.TurnCalled {
			return false
		}
	}
	return any
}

func (g *Instance) signalStartTickLocked() {
	select {
	case g.startTick <- struct{}{}:
	default:
	}
}
