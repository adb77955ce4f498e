// Package protocol implements the wire format shared by every client
// connection: action/result code vocabularies, the length-prefixed frame
// codec, and the JSON payload envelopes exchanged over it (spec.md §4.1).
package protocol

import "fmt"

// Action identifies the operation requested by a client frame.
type Action uint32

const (
	ActionLogin    Action = 1
	ActionLogout   Action = 2
	ActionMove     Action = 3
	ActionUpgrade  Action = 4
	ActionTurn     Action = 5
	ActionPlayer   Action = 6
	ActionGames    Action = 7
	ActionMap      Action = 10
	ActionObserver Action = 100
	ActionGame     Action = 101
	// ActionEvent is never accepted from a client frame; it only appears as
	// an internal replay-applier tag inside the recorded action log.
	ActionEvent Action = 102
)

func (a Action) String() string {
	switch a {
	case ActionLogin:
		return "LOGIN"
	case ActionLogout:
		return "LOGOUT"
	case ActionMove:
		return "MOVE"
	case ActionUpgrade:
		return "UPGRADE"
	case ActionTurn:
		return "TURN"
	case ActionPlayer:
		return "PLAYER"
	case ActionGames:
		return "GAMES"
	case ActionMap:
		return "MAP"
	case ActionObserver:
		return "OBSERVER"
	case ActionGame:
		return "GAME"
	case ActionEvent:
		return "EVENT"
	default:
		return fmt.Sprintf("Action(%d)", uint32(a))
	}
}

// Result identifies the outcome carried by a server response frame. This
// is the "newer" vocabulary from the two the source mixed together
// (spec.md §9 Open Question), chosen for internal consistency: it's the
// only set where none of the codes collide with each other.
type Result uint32

const (
	ResultOkey                   Result = 0
	ResultBadCommand             Result = 1
	ResultResourceNotFound       Result = 2
	ResultAccessDenied           Result = 3
	ResultInappropriateGameState Result = 4
	ResultTimeout                Result = 5
	ResultInternalServerError    Result = 500
)

func (r Result) String() string {
	switch r {
	case ResultOkey:
		return "OKEY"
	case ResultBadCommand:
		return "BAD_COMMAND"
	case ResultResourceNotFound:
		return "RESOURCE_NOT_FOUND"
	case ResultAccessDenied:
		return "ACCESS_DENIED"
	case ResultInappropriateGameState:
		return "INAPPROPRIATE_GAME_STATE"
	case ResultTimeout:
		return "TIMEOUT"
	case ResultInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	default:
		return fmt.Sprintf("Result(%d)", uint32(r))
	}
}

// Error pairs a Result with a human-readable message, the payload of every
// non-OKEY response frame: {"error": "<message>"}.
type Error struct {
	Result  Result
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an *Error, matching fmt.Errorf's formatting convention.
func NewError(result Result, format string, args ...interface{}) *Error {
	return &Error{Result: result, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrBadCommand       = func(msg string, args ...interface{}) *Error { return NewError(ResultBadCommand, msg, args...) }
	ErrResourceNotFound = func(msg string, args ...interface{}) *Error { return NewError(ResultResourceNotFound, msg, args...) }
	ErrAccessDenied     = func(msg string, args ...interface{}) *Error { return NewError(ResultAccessDenied, msg, args...) }
	ErrInappropriate    = func(msg string, args ...interface{}) *Error { return NewError(ResultInappropriateGameState, msg, args...) }
	ErrTimeout          = func(msg string, args ...interface{}) *Error { return NewError(ResultTimeout, msg, args...) }
	ErrInternal         = func(msg string, args ...interface{}) *Error { return NewError(ResultInternalServerError, msg, args...) }
)
