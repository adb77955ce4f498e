package game

import (
	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/protocol"
)

// MakeUpgrade implements make_upgrade (spec.md §7 "no enough armor to
// upgrade, train not in own town for upgrade, no next level"): it levels
// up the given towns and trains, paid for out of the player's town armor.
// Validation happens entirely before any mutation, so a rejected request
// leaves every entity untouched.
func (g *Instance) MakeUpgrade(playerID string, postIDs, trainIDs []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	player, ok := g.players[playerID]
	if !ok {
		return protocol.ErrAccessDenied("player not in this game")
	}
	town := g.posts[player.HomeTownID]

	posts := make([]*entity.Post, 0, len(postIDs))
	for _, id := range postIDs {
		post, ok := g.posts[id]
		if !ok {
			return protocol.ErrResourceNotFound("post %d not found", id)
		}
		if post.Kind != entity.PostTown {
			return protocol.ErrBadCommand("post %d is not a Town", id)
		}
		if post.Town.PlayerID != playerID {
			return protocol.ErrAccessDenied("town %d's owner mismatch", id)
		}
		posts = append(posts, post)
	}

	trains := make([]*entity.Train, 0, len(trainIDs))
	for _, id := range trainIDs {
		train, ok := g.trains[id]
		if !ok {
			return protocol.ErrResourceNotFound("train %d not found", id)
		}
		if train.PlayerID != playerID {
			return protocol.ErrAccessDenied("train %d's owner mismatch", id)
		}
		trains = append(trains, train)
	}

	for _, p := range posts {
		if _, ok := g.cfg.TownLevels[p.Town.Level+1]; !ok {
			return protocol.ErrBadCommand("not all entities requested for upgrade have next levels")
		}
	}
	for _, t := range trains {
		if _, ok := g.cfg.TrainLevels[t.Level+1]; !ok {
			return protocol.ErrBadCommand("not all entities requested for upgrade have next levels")
		}
	}

	armorNeeded := 0
	for _, p := range posts {
		armorNeeded += g.cfg.TownLevels[p.Town.Level].NextLevelPrice
	}
	for _, t := range trains {
		armorNeeded += g.cfg.TrainLevels[t.Level].NextLevelPrice
	}
	if town.Town.Armor < armorNeeded {
		return protocol.ErrBadCommand(
			"Not enough armor resource for upgrade, player's armor: %d, armor needed to upgrade: %d",
			town.Town.Armor, armorNeeded)
	}

	for _, t := range trains {
		line := g.lines[t.LineID]
		if line == nil || !t.IsAtEndpoint(*line) || t.EndpointPoint(*line) != player.HomePointID {
			return protocol.ErrBadCommand("train %d is not in Town now", t.ID)
		}
	}

	for _, p := range posts {
		town.Town.Armor -= g.cfg.TownLevels[p.Town.Level].NextLevelPrice
		p.Town.Level++
	}
	for _, t := range trains {
		town.Town.Armor -= g.cfg.TrainLevels[t.Level].NextLevelPrice
		t.Level++
	}
	g.recalculateRatings()
	g.record(protocol.ActionUpgrade, protocol.UpgradePayload{Trains: trainIDs, Posts: postIDs}, &playerID)
	return nil
}
