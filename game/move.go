package game

import (
	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/protocol"
)

// MoveTrain implements move_train (spec.md §4.3), the command with the
// most edge cases: it either sets a train's speed directly, reroutes a
// parked train onto a connecting line, or queues a pending reroute for
// when an in-motion train reaches its next junction.
func (g *Instance) MoveTrain(playerID string, trainID, lineID, speed int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	train, ok := g.trains[trainID]
	if !ok {
		return protocol.ErrResourceNotFound("train %d not found", trainID)
	}
	targetLine, ok := g.lines[lineID]
	if !ok {
		return protocol.ErrResourceNotFound("line %d not found", lineID)
	}
	if train.PlayerID != playerID {
		return protocol.ErrAccessDenied("train %d does not belong to you", trainID)
	}
	if train.Cooldown != 0 {
		return protocol.ErrBadCommand("train %d is on cooldown", trainID)
	}

	delete(g.pendingMoves, trainID)

	currentLine := g.lines[train.LineID]

	// Case A: stopping, or re-issuing a command for the line the train is
	// already on — speed changes take effect immediately.
	if speed == 0 || lineID == train.LineID {
		train.Speed = speed
		g.record(protocol.ActionMove, protocol.MovePayload{TrainIdx: trainID, LineIdx: lineID, Speed: speed}, &playerID)
		return nil
	}

	// Case B: the train is parked (speed == 0) and asked to move onto a
	// different line — it can only leave from whichever endpoint it sits on.
	if train.Speed == 0 {
		if !train.IsAtEndpoint(*currentLine) {
			return protocol.ErrBadCommand("train %d is standing on the line", trainID)
		}
		entering := train.EndpointPoint(*currentLine)
		if !targetLine.HasEndpoint(entering) {
			return protocol.ErrBadCommand("train %d's line is not connected to the next line", trainID)
		}
		train.LineID = lineID
		train.Speed = speed
		if entering == targetLine.P0 {
			train.Position = 0
		} else {
			train.Position = targetLine.Length
		}
		g.record(protocol.ActionMove, protocol.MovePayload{TrainIdx: trainID, LineIdx: lineID, Speed: speed}, &playerID)
		return nil
	}

	// Case C: the train is in motion and being steered onto the next
	// segment ahead of reaching the junction. Whether this is legal depends
	// on which endpoints the current and requested direction imply must
	// coincide (spec.md §4.3's 4-row table).
	curEnd, nextEntry, ok := junctionEndpoints(*currentLine, train.Speed, *targetLine, speed)
	if !ok || curEnd != nextEntry {
		return protocol.ErrBadCommand("train %d's next line is not connected", trainID)
	}
	g.pendingMoves[trainID] = pendingMove{lineID: lineID, speed: speed}
	g.record(protocol.ActionMove, protocol.MovePayload{TrainIdx: trainID, LineIdx: lineID, Speed: speed}, &playerID)
	return nil
}

// junctionEndpoints resolves the (current-direction far endpoint,
// requested-direction entry endpoint) pair from spec.md §4.3's table:
//
//	current  new   required
//	  +       +    L.points[1] == L'.points[0]
//	  +       -    L.points[1] == L'.points[1]
//	  -       +    L.points[0] == L'.points[0]
//	  -       -    L.points[0] == L'.points[1]
//
// where L.points[0]=P0, L.points[1]=P1. ok is false for a zero current
// speed, which move_train never calls this with (that's Cases A/B).
func junctionEndpoints(cur entity.Line, curSpeed int, next entity.Line, newSpeed int) (curEnd, nextEntry int, ok bool) {
	switch {
	case curSpeed > 0 && newSpeed > 0:
		return cur.P1, next.P0, true
	case curSpeed > 0 && newSpeed < 0:
		return cur.P1, next.P1, true
	case curSpeed < 0 && newSpeed > 0:
		return cur.P0, next.P0, true
	case curSpeed < 0 && newSpeed < 0:
		return cur.P0, next.P1, true
	default:
		return 0, 0, false
	}
}
