package entity

// Player is one participant in a Game. ID is a UUID assigned at login
// (spec.md §4.2), Name is the login handle used to re-attach a
// disconnected session to its existing player record.
type Player struct {
	ID   string `json:"idx"`
	Name string `json:"name"`

	Rating int `json:"rating"`

	HomePointID int `json:"home_point_idx"`
	HomeTownID  int `json:"home_town_idx"`

	TrainIDs []int `json:"train_idxs"`

	// InGame is false once the player has been kicked (GAME_OVER) or has
	// logged out; their home town and trains remain in the simulation
	// until the game finishes, per spec.md §9's resolved Open Question.
	InGame bool `json:"in_game"`

	// TurnCalled marks that this player has submitted a TURN action for
	// the current tick; the tick barrier (game.Instance) waits for every
	// InGame player to set this before advancing.
	TurnCalled bool `json:"-"`
}

// HasTrain reports whether trainID belongs to this player.
func (p *Player) HasTrain(trainID int) bool {
	for _, id := range p.TrainIDs {
		if id == trainID {
			return true
		}
	}
	return false
}
