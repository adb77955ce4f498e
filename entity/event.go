package entity

// EventKind enumerates the kinds of events that can be appended to a
// Train's or Post's event log (spec.md §4.5).
type EventKind string

const (
	EventTrainCollision   EventKind = "TRAIN_COLLISION"
	EventHijackersAssault EventKind = "HIJACKERS_ASSAULT"
	EventParasitesAssault EventKind = "PARASITES_ASSAULT"
	EventRefugeesArrival  EventKind = "REFUGEES_ARRIVAL"
	EventResourceOverflow EventKind = "RESOURCE_OVERFLOW"
	EventResourceLack     EventKind = "RESOURCE_LACK"
	EventGameOver         EventKind = "GAME_OVER"
)

// Event is a single notification attached to a train or town. Only the
// fields relevant to Kind are populated; the rest are left at their zero
// value and omitted on the wire.
type Event struct {
	Kind EventKind `json:"type"`
	Tick int       `json:"tick"`

	OtherTrainID *int `json:"other_train_idx,omitempty"` // TRAIN_COLLISION
	Power        *int `json:"power,omitempty"`           // HIJACKERS_ASSAULT, PARASITES_ASSAULT, REFUGEES_ARRIVAL
	Resource     string `json:"resource,omitempty"`       // RESOURCE_OVERFLOW, RESOURCE_LACK: "population"|"product"|"armor"|"goods"|"fuel"
}

// NewCollisionEvent builds a TRAIN_COLLISION event against otherTrainID.
func NewCollisionEvent(tick, otherTrainID int) Event {
	return Event{Kind: EventTrainCollision, Tick: tick, OtherTrainID: &otherTrainID}
}

// NewAssaultEvent builds a HIJACKERS_ASSAULT/PARASITES_ASSAULT/
// REFUGEES_ARRIVAL event, all of which share the same {tick, power} shape.
func NewAssaultEvent(kind EventKind, tick, power int) Event {
	return Event{Kind: kind, Tick: tick, Power: &power}
}

// NewResourceEvent builds a RESOURCE_OVERFLOW/RESOURCE_LACK event for the
// named resource.
func NewResourceEvent(kind EventKind, tick int, resource string) Event {
	return Event{Kind: kind, Tick: tick, Resource: resource}
}

// NewGameOverEvent builds the GAME_OVER event appended to a player's home
// town when they're kicked from the game (spec.md §9 Open Question
// resolution: game-over kicks the player, the game itself continues).
func NewGameOverEvent(tick int) Event {
	return Event{Kind: EventGameOver, Tick: tick}
}

// TrimEvents keeps only the most recent max events, matching the original
// server's MAX_EVENT_MESSAGES truncation (spec.md §4.3 "retire events").
func TrimEvents(events []Event, max int) []Event {
	if len(events) <= max {
		return events
	}
	return events[len(events)-max:]
}
