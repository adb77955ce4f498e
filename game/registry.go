package game

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ironrailgames/railserver/config"
	"github.com/ironrailgames/railserver/mapdata"
)

// GameCreator persists the identity of a freshly created game (spec.md §6:
// "On game creation, insert a row into games"). Store implements this
// alongside ActionRecorder; Registry depends on the narrower interface so
// a recorder-only fake still works in tests that never list games.
type GameCreator interface {
	CreateGame(id, name, mapID string, numPlayers, numTurns int) error
}

// Registry is the process-wide name→Instance table (spec.md §4.3
// "Creation"/"Lifecycles" and §5 "Game registry"). It keeps the teacher's
// RoomManagerActor's map+mutex shape (game/room_manager.go) without the
// actor-mailbox dispatch: callers invoke Registry's methods directly
// under its own short lock, handing back the Instance for its own
// independent, longer-lived lock to guard simulation state.
type Registry struct {
	mu      sync.Mutex
	games   map[string]*Instance
	maps    *mapdata.Store
	cfg     config.Config
	log     *slog.Logger
	stores  ActionRecorder
	creator GameCreator
}

// NewRegistry builds an empty Registry bound to the given map store,
// config and action recorder; every Instance it creates shares these.
// creator may be nil, in which case created games are never persisted to
// the games table (used by tests that only exercise live simulation).
func NewRegistry(maps *mapdata.Store, cfg config.Config, recorder ActionRecorder, creator GameCreator, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		games:   make(map[string]*Instance),
		maps:    maps,
		cfg:     cfg,
		log:     log,
		stores:  recorder,
		creator: creator,
	}
}

// LookupOrCreate implements spec.md §4.2 LOGIN's "lookup-or-create the
// game by name": an existing live game with this name is returned as-is;
// otherwise a new one is created against mapName (empty = the store's
// active map). Reattaching to a game previously created with a different
// numPlayers is rejected, matching LOGIN's "reject BAD_COMMAND" clause.
func (r *Registry) LookupOrCreate(name, mapName string, numPlayers, numTurns int) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.games[name]; ok {
		if g.NumPlayers != numPlayers {
			return nil, fmt.Errorf("game: %q already exists with num_players=%d, requested %d", name, g.NumPlayers, numPlayers)
		}
		return g, nil
	}

	var def *mapdata.Definition
	var ok bool
	if mapName != "" {
		def, ok = r.maps.ByName(mapName)
	} else {
		def, ok = r.maps.Active()
	}
	if !ok {
		return nil, fmt.Errorf("game: no map named %q available", mapName)
	}

	id := uuid.NewString()
	inst, err := New(id, name, def, numPlayers, numTurns, r.cfg, r.stores, r.log)
	if err != nil {
		return nil, err
	}
	if r.creator != nil {
		if err := r.creator.CreateGame(id, name, def.Name, numPlayers, numTurns); err != nil {
			return nil, fmt.Errorf("game: persist new game %q: %w", name, err)
		}
	}
	r.games[name] = inst
	return inst, nil
}

// Get returns the live game named name, if any.
func (r *Registry) Get(name string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[name]
	return g, ok
}

// Reap drops every FINISHED game from the registry, matching spec.md
// §3's "once FINISHED it is removed from the registry and never
// reopened". Called periodically by the server, not by Instance itself,
// so an Instance never needs a handle back to its Registry.
func (r *Registry) Reap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, g := range r.games {
		if g.State() == StateFinished {
			delete(r.games, name)
		}
	}
}

// Summary is one row of the GAMES action's listing (spec.md §4.2
// LoggedIn's GAMES): enough to show a client which rooms exist and
// whether they can still be joined, without exposing internal state.
type Summary struct {
	Name       string
	State      string
	NumPlayers int
	Joined     int
}

// List returns a Summary of every currently registered game, in no
// particular order.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Summary, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, Summary{
			Name:       g.Name,
			State:      g.State().String(),
			NumPlayers: g.NumPlayers,
			Joined:     g.JoinedCount(),
		})
	}
	return out
}

// StopAll tears down the tick driver of every live game, used at server
// shutdown (spec.md §5 "Cancellation: ... set every Game's stop flag").
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.games {
		g.Stop()
	}
}
