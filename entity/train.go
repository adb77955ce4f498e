package entity

// Train is a player-owned vehicle running along the Lines of the map
// graph. Position is an integer offset along LineID: 0 means sitting at
// Line.P0, Line.Length means sitting at Line.P1.
type Train struct {
	ID       int    `json:"idx"`
	PlayerID string `json:"player_idx"`

	LineID   int `json:"line_idx"`
	Position int `json:"position"`
	Speed    int `json:"speed"` // signed: positive moves toward P1, negative toward P0

	Level int `json:"level"`

	GoodsType GoodsType `json:"goods_type"`
	Goods     int       `json:"goods"`

	Fuel int `json:"fuel"`

	Cooldown int `json:"cooldown"` // ticks remaining before this train can move again

	// PendingDestination is not written by the game package: move_train
	// queues a reroute in game.Instance's own pending-move table, which the
	// tick consumes at the junction, so this field stays nil.
	PendingDestination *int `json:"pending_destination_idx,omitempty"`

	Events []Event `json:"events"`
}

// IsAtEndpoint reports whether the train currently sits exactly on one of
// its line's two endpoints (as opposed to mid-transit).
func (t *Train) IsAtEndpoint(line Line) bool {
	return t.Position == 0 || t.Position == line.Length
}

// EndpointPoint returns the point ID the train currently sits on. Only
// valid when IsAtEndpoint is true.
func (t *Train) EndpointPoint(line Line) int {
	if t.Position == 0 {
		return line.P0
	}
	return line.P1
}

// IsLoaded reports whether the train is carrying goods.
func (t *Train) IsLoaded() bool {
	return t.GoodsType != GoodsNone && t.Goods > 0
}

// IsOutOfFuel reports whether a fuel-enabled train has run dry.
func (t *Train) IsOutOfFuel(fuelEnabled bool) bool {
	return fuelEnabled && t.Fuel <= 0
}
