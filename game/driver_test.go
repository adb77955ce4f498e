package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnForcesEarlyTickWhenAllPlayersCall(t *testing.T) {
	g := newTestInstance(t, 1)
	p := loginPlayer(t, g, "p1", "Alice") // fills the roster, driver starts
	defer g.Stop()

	before := g.CurrentTick()

	done := make(chan error, 1)
	go func() { done <- g.Turn(p.ID) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("TURN did not return; barrier never forced a tick")
	}

	assert.Greater(t, g.CurrentTick(), before)
}

func TestTurnWaitsForWallClockTickIfNotEveryPlayerCalls(t *testing.T) {
	g := newTestInstance(t, 2)
	p1 := loginPlayer(t, g, "p1", "Alice")
	loginPlayer(t, g, "p2", "Bob") // fills the roster, driver starts
	defer g.Stop()

	// Only p1 calls TURN, so the barrier never forces an early tick — but
	// the wall-clock tick (TickTime=20ms) still fires within TurnTimeout
	// (70ms), so the call resolves OKEY instead of hanging.
	err := g.Turn(p1.ID)
	assert.NoError(t, err)
}

func TestTurnRejectsPlayerNotInGame(t *testing.T) {
	g := newTestInstance(t, 2)
	loginPlayer(t, g, "p1", "Alice")
	defer g.Stop()

	err := g.Turn("nobody")
	assert.Error(t, err)
}
