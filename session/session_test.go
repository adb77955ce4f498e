package session

import (
	"encoding/binary"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironrailgames/railserver/config"
	"github.com/ironrailgames/railserver/game"
	"github.com/ironrailgames/railserver/mapdata"
	"github.com/ironrailgames/railserver/protocol"
	"github.com/ironrailgames/railserver/store"
)

func newTestHandler(t *testing.T) (client net.Conn, done <-chan struct{}) {
	t.Helper()
	maps := mapdata.NewStore()
	require.NoError(t, maps.Load("../maps/*.yaml", "map02"))

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	games := game.NewRegistry(maps, config.Fast(), st, st, nil)

	clientConn, serverConn := net.Pipe()
	h := NewHandler(serverConn, config.Fast(), games, st, maps, nil)

	finished := make(chan struct{})
	go func() {
		h.Serve()
		close(finished)
	}()
	t.Cleanup(func() { clientConn.Close() })
	return clientConn, finished
}

func writeFrame(t *testing.T, conn net.Conn, action protocol.Action, payload interface{}) {
	t.Helper()
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	require.NoError(t, protocol.WriteRequest(conn, protocol.Request{Action: action, Payload: raw}))
}

func readFrame(t *testing.T, conn net.Conn) (protocol.Result, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hdr [8]byte
	_, err := readFull(conn, hdr[:])
	require.NoError(t, err)
	code := binary.LittleEndian.Uint32(hdr[0:4])
	length := binary.LittleEndian.Uint32(hdr[4:8])
	payload := make([]byte, length)
	if length > 0 {
		_, err := readFull(conn, payload)
		require.NoError(t, err)
	}
	return protocol.Result(code), payload
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestLoginThenLogout(t *testing.T) {
	client, done := newTestHandler(t)

	writeFrame(t, client, protocol.ActionLogin, protocol.LoginPayload{Name: "alice", Game: "room-a", NumPlayers: 1})
	result, payload := readFrame(t, client)
	require.Equal(t, protocol.ResultOkey, result)

	var view struct {
		ID       string `json:"idx"`
		Name     string `json:"name"`
		TrainIDs []int  `json:"train_idxs"`
	}
	require.NoError(t, json.Unmarshal(payload, &view))
	assert.Equal(t, "alice", view.Name)
	assert.NotEmpty(t, view.ID)
	assert.NotEmpty(t, view.TrainIDs)

	writeFrame(t, client, protocol.ActionLogout, nil)
	result, _ = readFrame(t, client)
	assert.Equal(t, protocol.ResultOkey, result)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after LOGOUT")
	}
}

func TestLoginMissingNameIsBadCommand(t *testing.T) {
	client, _ := newTestHandler(t)

	writeFrame(t, client, protocol.ActionLogin, map[string]int{"num_players": 1})
	result, payload := readFrame(t, client)
	require.Equal(t, protocol.ResultBadCommand, result)

	var errPayload protocol.ErrorPayload
	require.NoError(t, json.Unmarshal(payload, &errPayload))
	assert.Contains(t, errPayload.Error, "following keys are expected: ['name']")
}

func TestMoveBeforeLoginIsRejected(t *testing.T) {
	client, _ := newTestHandler(t)

	writeFrame(t, client, protocol.ActionMove, protocol.MovePayload{TrainIdx: 1, LineIdx: 1, Speed: 1})
	result, _ := readFrame(t, client)
	assert.Equal(t, protocol.ResultBadCommand, result)
}

func TestGamesListableBeforeLogin(t *testing.T) {
	client, _ := newTestHandler(t)

	writeFrame(t, client, protocol.ActionGames, nil)
	result, payload := readFrame(t, client)
	require.Equal(t, protocol.ResultOkey, result)

	var list protocol.GamesListPayload
	require.NoError(t, json.Unmarshal(payload, &list))
	assert.Empty(t, list.Games)
}
