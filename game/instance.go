// Package game implements the authoritative simulation: one Instance per
// room, its tick-driven state machine, and the process-wide Registry of
// live instances. The concurrency shape — one lock guarding all state,
// handler operations and the tick loop sharing it, a generation channel
// coordinating the turn barrier — follows spec.md §4.4/§5 directly; the
// registry itself keeps the teacher's RoomManagerActor's map+mutex+cap
// shape (game/room_manager.go) without its actor dispatch machinery,
// which the barrier semantics this module must implement don't fit.
package game

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ironrailgames/railserver/config"
	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/mapdata"
	"github.com/ironrailgames/railserver/protocol"
)

// State is a Game's lifecycle stage (spec.md §3 "Lifecycles").
type State int

const (
	StateInit State = iota
	StateRun
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRun:
		return "RUN"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// ActionRecorder is the append-only action log collaborator (spec.md §2
// "Action Log"). Instance depends on this interface rather than a
// concrete store so the observer package can drive an Instance without
// ever touching persistence.
type ActionRecorder interface {
	AppendAction(gameID string, code protocol.Action, payload interface{}, playerID *string) error
}

type pendingMove struct {
	lineID int
	speed  int
}

// Instance is one running (or finished) game room.
type Instance struct {
	mu sync.Mutex

	// turnDone is closed and replaced every time a tick completes, waking
	// every TURN call blocked on the current generation (spec.md §4.4's
	// "completion condition" expressed as a channel generation instead of
	// a sync.Cond, so a timed wait never needs a second goroutine sharing
	// the lock).
	turnDone chan struct{}

	cfg config.Config
	log *slog.Logger

	ID         string
	Name       string
	MapName    string
	NumPlayers int
	NumTurns   int // 0 = unlimited

	size [2]int // map layer-10 geometry bounds, from the map definition

	state       State
	currentTick int
	observed    bool // true for observer-driven replicas: tick() records nothing

	recorder ActionRecorder

	points map[int]*entity.Point
	lines  map[int]*entity.Line
	posts  map[int]*entity.Post
	trains map[int]*entity.Train

	players     map[string]*entity.Player
	playerOrder []string // login order, for deterministic town assignment
	townPoints  []int    // point ids holding an unassigned Town, in map order

	pendingMoves   map[int]pendingMove
	eventCooldowns map[string]int

	nextTrainID int

	startTick chan struct{} // buffered 1: force the driver to tick now
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// New materializes a fresh Instance from a map Definition. id/name are the
// persisted game identity; recorder may be nil for a throwaway instance
// that is never observed (e.g. a dry-run in tests).
func New(id, name string, def *mapdata.Definition, numPlayers, numTurns int, cfg config.Config, recorder ActionRecorder, log *slog.Logger) (*Instance, error) {
	if numPlayers > def.TownCount() {
		return nil, fmt.Errorf("game: num_players %d exceeds %d towns on map %q", numPlayers, def.TownCount(), def.Name)
	}
	if log == nil {
		log = slog.Default()
	}

	inst := &Instance{
		cfg:            cfg,
		log:            log.With("game", name),
		ID:             id,
		Name:           name,
		MapName:        def.Name,
		size:           def.Size,
		NumPlayers:     numPlayers,
		NumTurns:       numTurns,
		state:          StateInit,
		recorder:       recorder,
		points:         make(map[int]*entity.Point),
		lines:          make(map[int]*entity.Line),
		posts:          make(map[int]*entity.Post),
		trains:         make(map[int]*entity.Train),
		players:        make(map[string]*entity.Player),
		pendingMoves:   make(map[int]pendingMove),
		eventCooldowns: cfg.EventCooldownOnStart(),
		startTick:      make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
		turnDone:       make(chan struct{}),
	}
	inst.loadMap(def)
	return inst, nil
}

// NewObserved builds a replica Instance for the observer (spec.md §4.5
// "GAME{idx}": "build a fresh non-observed Game instance with the same
// map and num_players"): identical map/graph setup to New, but every
// tick is driven explicitly via ReplayTick instead of a wall-clock
// driver, and nothing it does is appended to the action log, since it is
// itself being driven *from* that log.
func NewObserved(id, name string, def *mapdata.Definition, numPlayers int, cfg config.Config, log *slog.Logger) (*Instance, error) {
	inst, err := New(id, name, def, numPlayers, 0, cfg, nil, log)
	if err != nil {
		return nil, err
	}
	inst.observed = true
	return inst, nil
}

func (g *Instance) loadMap(def *mapdata.Definition) {
	for i, p := range def.Points {
		id := i + 1
		g.points[id] = &entity.Point{ID: id, X: p.X, Y: p.Y}
	}
	for i, l := range def.Lines {
		id := i + 1
		g.lines[id] = &entity.Line{ID: id, Length: l.Length, P0: l.P0, P1: l.P1}
	}
	for i, p := range def.Posts {
		id := i + 1
		post := &entity.Post{ID: id, PointID: p.Point, Name: p.Name}
		switch p.Type {
		case mapdata.PostTown:
			post.Kind = entity.PostTown
			post.Town = &entity.TownData{Population: p.Population, Product: p.Product, Armor: p.Armor, Level: 1}
			g.townPoints = append(g.townPoints, p.Point)
		case mapdata.PostMarket:
			post.Kind = entity.PostMarket
			post.Market = &entity.MarketData{Product: p.Product, Capacity: p.Product, Replenishment: p.Replenishment}
		case mapdata.PostStorage:
			post.Kind = entity.PostStorage
			post.Storage = &entity.StorageData{Armor: p.Armor, Capacity: p.Armor, Replenishment: p.Replenishment}
		}
		g.posts[id] = post
		g.points[p.Point].PostID = &id
	}
}

// State returns the game's current lifecycle stage.
func (g *Instance) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// CurrentTick returns the number of ticks this game has completed.
func (g *Instance) CurrentTick() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTick
}

// JoinedCount returns how many players are currently admitted (regardless
// of InGame), for the GAMES listing.
func (g *Instance) JoinedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// incidentLine returns the first line (in id order) touching point and
// true, or nil and false if none does. Map files are expected to give every town exactly one incident
// line so home placement is deterministic.
func (g *Instance) incidentLine(point int) (*entity.Line, bool) {
	for id := 1; id <= len(g.lines); id++ {
		l, ok := g.lines[id]
		if ok && l.HasEndpoint(point) {
			return l, true
		}
	}
	return nil, false
}

func (g *Instance) record(code protocol.Action, payload interface{}, playerID *string) {
	if g.observed || g.recorder == nil {
		return
	}
	if err := g.recorder.AppendAction(g.ID, code, payload, playerID); err != nil {
		g.log.Error("failed to append action", "code", code, "err", err)
	}
}

// Stop tears down the tick driver without transitioning state, used by
// Registry/Server shutdown.
func (g *Instance) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}
