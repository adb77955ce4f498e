package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironrailgames/railserver/protocol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertPlayerCreatesThenReattaches(t *testing.T) {
	s := newTestStore(t)

	p1, err := s.UpsertPlayer("alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, p1.ID)

	p2, err := s.UpsertPlayer("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID, "reattaching by name must return the same player row")
}

func TestUpsertPlayerRejectsWrongPassword(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertPlayer("alice", "hunter2")
	require.NoError(t, err)

	_, err = s.UpsertPlayer("alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, protocol.ResultAccessDenied, err.(*protocol.Error).Result)
}

func TestCreateGameAndGameByName(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateGame("g1", "game-one", "test-map", 2, 0))

	g, err := s.GameByName("game-one")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, 2, g.NumPlayers)
	assert.Equal(t, 0, g.NumTurns)
}

func TestFinishGameWritesDataColumn(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateGame("g1", "game-one", "test-map", 2, 0))

	require.NoError(t, s.FinishGame("g1", map[string]int{"alice": 42}))

	g, err := s.GameByName("game-one")
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":42}`, string(g.Data))
}

func TestListGamesReturnsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateGame("g1", "first", "test-map", 2, 0))
	require.NoError(t, s.CreateGame("g2", "second", "test-map", 2, 0))

	games, err := s.ListGames()
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "second", games[0].Name)
	assert.Equal(t, "first", games[1].Name)
}

func TestAppendActionAssignsSequentialSeqPerGame(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateGame("g1", "game-one", "test-map", 2, 0))

	pid := "p1"
	require.NoError(t, s.AppendAction("g1", protocol.ActionLogin, map[string]string{"name": "alice"}, &pid))
	require.NoError(t, s.AppendAction("g1", protocol.ActionTurn, nil, &pid))
	require.NoError(t, s.AppendAction("g1", protocol.ActionTurn, nil, &pid))

	actions, err := s.ActionsForGame("g1")
	require.NoError(t, err)
	require.Len(t, actions, 3)
	for i, a := range actions {
		assert.Equal(t, i, a.Seq)
	}
	assert.Equal(t, protocol.ActionLogin, actions[0].Code)
	assert.Equal(t, "p1", *actions[0].PlayerID)
}

func TestAppendActionSeqSurvivesReopenViaPrimeSeq(t *testing.T) {
	uri := t.TempDir() + "/test.db"
	s1, err := Open(uri)
	require.NoError(t, err)
	require.NoError(t, s1.CreateGame("g1", "game-one", "test-map", 2, 0))
	require.NoError(t, s1.AppendAction("g1", protocol.ActionLogin, nil, nil))
	require.NoError(t, s1.Close())

	s2, err := Open(uri)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.AppendAction("g1", protocol.ActionTurn, nil, nil))

	actions, err := s2.ActionsForGame("g1")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, 1, actions[1].Seq, "a fresh Store must pick up from the persisted max seq, not restart at 0")
}
