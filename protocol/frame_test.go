package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodeFrame(t *testing.T, code uint32, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	assert.NoError(t, WriteRequest(&buf, Request{Action: Action(code), Payload: payload}))
	return buf.Bytes()
}

func TestDecoderWholeFrame(t *testing.T) {
	raw := encodeFrame(t, uint32(ActionLogin), []byte(`{"name":"P1"}`))
	d := NewDecoder()
	frames, err := d.Feed(raw, 4096)
	assert.NoError(t, err)
	assert.Len(t, frames, 1)
	assert.Equal(t, ActionLogin, frames[0].ActionCode())
	assert.Equal(t, []byte(`{"name":"P1"}`), frames[0].Payload)
}

func TestDecoderEmptyPayload(t *testing.T) {
	raw := encodeFrame(t, uint32(ActionLogout), nil)
	d := NewDecoder()
	frames, err := d.Feed(raw, 4096)
	assert.NoError(t, err)
	assert.Len(t, frames, 1)
	assert.Equal(t, ActionLogout, frames[0].ActionCode())
	assert.Empty(t, frames[0].Payload)
}

func TestDecoderArbitraryChunking(t *testing.T) {
	raw := encodeFrame(t, uint32(ActionMove), []byte(`{"line_idx":1,"train_idx":2,"speed":1}`))

	for split := 0; split <= len(raw); split++ {
		d := NewDecoder()
		var got []CodedFrame

		first, err := d.Feed(raw[:split], 4096)
		assert.NoError(t, err)
		got = append(got, first...)

		second, err := d.Feed(raw[split:], 4096)
		assert.NoError(t, err)
		got = append(got, second...)

		assert.Lenf(t, got, 1, "split at byte %d produced %d frames", split, len(got))
		assert.Equal(t, ActionMove, got[0].ActionCode())
		assert.Equal(t, raw[headerLen*2:], got[0].Payload)
	}
}

func TestDecoderMultipleFramesInOneChunk(t *testing.T) {
	raw := append(encodeFrame(t, uint32(ActionTurn), nil), encodeFrame(t, uint32(ActionLogout), nil)...)
	d := NewDecoder()
	frames, err := d.Feed(raw, 4096)
	assert.NoError(t, err)
	assert.Len(t, frames, 2)
	assert.Equal(t, ActionTurn, frames[0].ActionCode())
	assert.Equal(t, ActionLogout, frames[1].ActionCode())
}

func TestDecoderRejectsOversizedPayload(t *testing.T) {
	raw := encodeFrame(t, uint32(ActionMap), make([]byte, 100))
	d := NewDecoder()
	_, err := d.Feed(raw, 10)
	assert.Error(t, err)
}

func TestResultAndActionStrings(t *testing.T) {
	assert.Equal(t, "OKEY", ResultOkey.String())
	assert.Equal(t, "BAD_COMMAND", ResultBadCommand.String())
	assert.Equal(t, "LOGIN", ActionLogin.String())
	assert.Contains(t, Result(999).String(), "999")
}

func TestErrorHelpers(t *testing.T) {
	err := ErrBadCommand("following keys are expected: %s", "name")
	assert.Equal(t, ResultBadCommand, err.Result)
	assert.Contains(t, err.Error(), "following keys are expected")
}
