package protocol

// LoginPayload is the request payload for ActionLogin (spec.md §4.2).
type LoginPayload struct {
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	Game       string `json:"game,omitempty"`
	NumPlayers int    `json:"num_players,omitempty"`
	NumTurns   int    `json:"num_turns,omitempty"`
}

// MovePayload is the request payload for ActionMove (spec.md §4.3).
type MovePayload struct {
	TrainIdx int `json:"train_idx"`
	LineIdx  int `json:"line_idx"`
	Speed    int `json:"speed"`
}

// UpgradePayload is the request payload for ActionUpgrade. Trains and
// Posts list the idxs to level up; either may be empty.
type UpgradePayload struct {
	Trains []int `json:"trains,omitempty"`
	Posts  []int `json:"posts,omitempty"`
}

// MapPayload is the request payload for ActionMap.
type MapPayload struct {
	Layer int `json:"layer"`
}

// ObserverSelectPayload is the request payload for the GAME action in
// Observing state, selecting a game by its index in the most recent
// OBSERVER listing.
type ObserverSelectPayload struct {
	Idx int `json:"idx"`
}

// GameTurnPayload is the request payload for the observer's TURN action:
// seek to an absolute tick.
type GameTurnPayload struct {
	Idx int `json:"idx"`
}

// LoginActionPayload is the action-log payload recorded for ActionLogin:
// just the player's display name. Password, game name and num_players
// parameterize game/player creation, not an individual login, so they are
// never persisted into the replay log.
type LoginActionPayload struct {
	Name string `json:"name"`
}

// ErrorPayload is the JSON body of any non-OKEY response frame.
type ErrorPayload struct {
	Error string `json:"error"`
}

// GameSummaryPayload is one row of the GAMES action's response listing
// (spec.md §4.2 LoggedIn's GAMES): live games known to the registry.
type GameSummaryPayload struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	NumPlayers int    `json:"num_players"`
	Joined     int    `json:"joined"`
}

// GamesListPayload is the response body of the GAMES action.
type GamesListPayload struct {
	Games []GameSummaryPayload `json:"games"`
}
