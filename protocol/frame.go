package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const headerLen = 4 // one u32 field: action/result, or length

// Request is one decoded client frame: action code plus raw JSON payload
// (nil/empty when the action takes no arguments).
type Request struct {
	Action  Action
	Payload []byte
}

// Response is one encoded server frame.
type Response struct {
	Result  Result
	Payload []byte
}

// WriteRequest encodes req onto w as action:u32 | payload_len:u32 | payload,
// little-endian (spec.md §4.1).
func WriteRequest(w io.Writer, req Request) error {
	return writeFrame(w, uint32(req.Action), req.Payload)
}

// WriteResponse encodes resp onto w as result:u32 | payload_len:u32 | payload.
func WriteResponse(w io.Writer, resp Response) error {
	return writeFrame(w, uint32(resp.Result), resp.Payload)
}

func writeFrame(w io.Writer, code uint32, payload []byte) error {
	buf := make([]byte, headerLen*2+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], code)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	_, err := w.Write(buf)
	return err
}

// stage identifies which accumulator the Decoder is currently filling.
type stage int

const (
	stageCode stage = iota
	stageLength
	stagePayload
)

// Decoder is a byte-level state machine that reassembles frames from a
// stream that may be split across reads at arbitrary byte boundaries
// (spec.md §4.1: "must tolerate arbitrary chunking by the OS"),
// generalizing the chunked-read loop the teacher uses for its websocket
// reader (server/websocket.go) to a raw length-prefixed TCP stream.
type Decoder struct {
	stage   stage
	hdr     [headerLen]byte
	hdrFill int

	code       uint32
	payloadLen uint32
	payload    []byte
	fill       int
}

// NewDecoder returns a Decoder ready to accumulate the first frame.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the decoder's accumulators and returns every frame
// fully reassembled as a result of this call, each as (code, payload). The
// decoder retains any partial frame for the next Feed call. Frames with a
// payload_len exceeding maxPayload are rejected to bound memory use against
// a misbehaving peer.
func (d *Decoder) Feed(chunk []byte, maxPayload uint32) ([]CodedFrame, error) {
	var out []CodedFrame
	for len(chunk) > 0 {
		switch d.stage {
		case stageCode:
			n := copy(d.hdr[d.hdrFill:], chunk)
			d.hdrFill += n
			chunk = chunk[n:]
			if d.hdrFill == headerLen {
				d.code = binary.LittleEndian.Uint32(d.hdr[:])
				d.hdrFill = 0
				d.stage = stageLength
			}
		case stageLength:
			n := copy(d.hdr[d.hdrFill:], chunk)
			d.hdrFill += n
			chunk = chunk[n:]
			if d.hdrFill == headerLen {
				d.payloadLen = binary.LittleEndian.Uint32(d.hdr[:])
				d.hdrFill = 0
				if d.payloadLen > maxPayload {
					return out, fmt.Errorf("protocol: frame payload_len %d exceeds limit %d", d.payloadLen, maxPayload)
				}
				if d.payloadLen == 0 {
					out = append(out, CodedFrame{Code: d.code})
					d.stage = stageCode
				} else {
					d.payload = make([]byte, d.payloadLen)
					d.fill = 0
					d.stage = stagePayload
				}
			}
		case stagePayload:
			n := copy(d.payload[d.fill:], chunk)
			d.fill += n
			chunk = chunk[n:]
			if d.fill == int(d.payloadLen) {
				out = append(out, CodedFrame{Code: d.code, Payload: d.payload})
				d.payload = nil
				d.stage = stageCode
			}
		}
	}
	return out, nil
}

// CodedFrame is a fully reassembled frame before its code is interpreted
// as an Action (client side) or Result (would-be client decoding a
// response); the session handler only ever decodes Actions, so this is
// the single concrete type Feed returns.
type CodedFrame struct {
	Code    uint32
	Payload []byte
}

// ActionCode views the frame's code as a client Action.
func (f CodedFrame) ActionCode() Action { return Action(f.Code) }
