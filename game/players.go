package game

import (
	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/protocol"
)

// AddPlayer admits player to the game, or re-attaches them if they were
// already admitted (spec.md §4.3 "add_player").
func (g *Instance) AddPlayer(player *entity.Player) (*entity.Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateFinished {
		return nil, protocol.ErrAccessDenied("game %q has already finished", g.Name)
	}

	if existing, ok := g.players[player.ID]; ok {
		existing.InGame = true
		g.record(protocol.ActionLogin, protocol.LoginActionPayload{Name: existing.Name}, &player.ID)
		return existing, nil
	}

	if len(g.players) >= g.NumPlayers {
		return nil, protocol.ErrAccessDenied("game %q is full", g.Name)
	}

	if len(g.townPoints) == 0 {
		return nil, protocol.ErrAccessDenied("no unassigned town left on map %q", g.MapName)
	}
	homePoint := g.townPoints[0]
	g.townPoints = g.townPoints[1:]

	town := g.posts[*g.points[homePoint].PostID]
	town.Town.PlayerID = player.ID

	player.HomePointID = homePoint
	player.HomeTownID = town.ID
	player.InGame = true
	player.TrainIDs = nil

	for i := 0; i < g.cfg.TrainsCount; i++ {
		g.nextTrainID++
		train := g.newHomeTrain(g.nextTrainID, player.ID, homePoint)
		g.trains[train.ID] = train
		player.TrainIDs = append(player.TrainIDs, train.ID)
	}

	g.players[player.ID] = player
	g.playerOrder = append(g.playerOrder, player.ID)
	g.recalculateRatings()
	g.record(protocol.ActionLogin, protocol.LoginActionPayload{Name: player.Name}, &player.ID)

	if len(g.players) == g.NumPlayers {
		g.state = StateRun
		if !g.observed {
			go g.runTickDriver()
		}
	}

	return player, nil
}

// newHomeTrain builds a fresh level-1 train parked at homePoint, along the
// first line incident to it (spec.md §4.3: "set line_idx to any line
// incident to the home point, position 0 or length accordingly").
func (g *Instance) newHomeTrain(id int, playerID string, homePoint int) *entity.Train {
	line, ok := g.incidentLine(homePoint)
	train := &entity.Train{
		ID:        id,
		PlayerID:  playerID,
		Level:     1,
		GoodsType: entity.GoodsNone,
	}
	if g.cfg.FuelEnabled {
		train.Fuel = g.cfg.TrainLevels[1].FuelCapacity
	}
	if !ok {
		return train
	}
	train.LineID = line.ID
	if homePoint == line.P0 {
		train.Position = 0
	} else {
		train.Position = line.Length
	}
	return train
}

// RemovePlayer marks player out of the game, finishing it if nobody
// in_game remains (spec.md §4.3 "remove_player"). This is the
// session-initiated path (explicit LOGOUT or disconnect), so it appends a
// LOGOUT action record; the game-over "kick" path
// (Instance.kickPlayer/updateTowns) calls removePlayerLocked directly and
// records nothing, matching spec.md §4.2's "append a LOGOUT ... if not
// observing" describing only the client-driven disconnect flow.
func (g *Instance) RemovePlayer(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.players[playerID]; !ok {
		return
	}
	g.removePlayerLocked(playerID)
	g.record(protocol.ActionLogout, nil, &playerID)
}

func (g *Instance) removePlayerLocked(playerID string) {
	p, ok := g.players[playerID]
	if !ok {
		return
	}
	p.InGame = false

	anyLeft := false
	for _, id := range g.playerOrder {
		if pl, ok := g.players[id]; ok && pl.InGame {
			anyLeft = true
			break
		}
	}
	if !anyLeft && g.state != StateFinished {
		g.state = StateFinished
		close(g.turnDone)
		g.turnDone = make(chan struct{})
	}
}
