// Package observer implements the replay subsystem (spec.md §4.5): a
// Session binds to one historical game, loads its recorded action log from
// the store, and can seek a fresh game.Instance replica to any tick by
// replaying that log forward from scratch, deterministically, without
// ever re-sampling random events. Grounded on game/test_utils.go's
// ApplyUpdatesToLocalState (replay a flat list of tagged updates into a
// local struct by switching on a discriminator), adapted from the
// teacher's test-only JSON-tag switch to protocol.Action dispatch over
// the real game.Instance operations.
package observer

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ironrailgames/railserver/config"
	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/game"
	"github.com/ironrailgames/railserver/mapdata"
	"github.com/ironrailgames/railserver/protocol"
	"github.com/ironrailgames/railserver/serialize"
	"github.com/ironrailgames/railserver/store"
)

// Store is the persistence surface the observer reads from. Narrowed to
// just what replay needs so tests can fake it without a real database.
type Store interface {
	ListGames() ([]store.GameSummary, error)
	ActionsForGame(gameID string) ([]store.ActionRecord, error)
}

// GameListEntry is one row of the OBSERVER action's listing (spec.md
// §4.5): "the list of games (id, name, created_at, map_idx,
// length-in-turns, num_players, ratings) from the action log".
type GameListEntry struct {
	ID         string                `json:"idx"`
	Name       string                `json:"name"`
	CreatedAt  string                `json:"created_at"`
	MapID      string                `json:"map_idx"`
	NumPlayers int                   `json:"num_players"`
	Turns      int                   `json:"turns"`
	Ratings    []serialize.RatingView `json:"ratings"`
}

// Session is one observer connection's replay state: the selected game,
// its cached action list, and a live replica Instance driven entirely by
// replaying that list (spec.md §4.5's "selected_game_idx,
// replayed_game_instance, ..., cached action list").
type Session struct {
	store Store
	maps  *mapdata.Store
	cfg   config.Config
	log   *slog.Logger

	gamesCache []store.GameSummary

	gameID      string
	gameName    string
	def         *mapdata.Definition
	numPlayers  int
	inst        *game.Instance
	actions     []store.ActionRecord
	actionIdx   int
	currentTurn int
	maxTurn     int
}

// NewSession builds an observer Session with no game selected yet.
func NewSession(st Store, maps *mapdata.Store, cfg config.Config, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{store: st, maps: maps, cfg: cfg, log: log}
}

// ListGames implements the OBSERVER action: every recorded game, most
// recent first, with its turn count and final ratings computed by
// replaying its full action log once.
func (s *Session) ListGames() ([]GameListEntry, error) {
	summaries, err := s.store.ListGames()
	if err != nil {
		return nil, fmt.Errorf("observer: list games: %w", err)
	}
	s.gamesCache = summaries

	entries := make([]GameListEntry, 0, len(summaries))
	for _, sm := range summaries {
		actions, err := s.store.ActionsForGame(sm.ID)
		if err != nil {
			return nil, fmt.Errorf("observer: load actions for game %q: %w", sm.ID, err)
		}
		ratings, err := s.finalRatings(sm, actions)
		if err != nil {
			s.log.Warn("observer: failed to compute final ratings", "game", sm.ID, "err", err)
		}
		entries = append(entries, GameListEntry{
			ID:         sm.ID,
			Name:       sm.Name,
			CreatedAt:  sm.CreatedAt.Format(s.cfg.TimeFormat),
			MapID:      sm.MapID,
			NumPlayers: sm.NumPlayers,
			Turns:      countTurns(actions),
			Ratings:    ratings,
		})
	}
	return entries, nil
}

// finalRatings replays gs's full action log on a throwaway replica to
// read off the ratings it ended with.
func (s *Session) finalRatings(gs store.GameSummary, actions []store.ActionRecord) ([]serialize.RatingView, error) {
	def, ok := s.maps.ByName(gs.MapID)
	if !ok {
		return nil, fmt.Errorf("map %q not found", gs.MapID)
	}
	inst, err := game.NewObserved(gs.ID, gs.Name, def, gs.NumPlayers, s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	if _, err := replayForward(inst, actions, 0, countTurns(actions)); err != nil {
		return nil, err
	}
	view, err := inst.Map(1, "")
	if err != nil {
		return nil, err
	}
	layer1, ok := view.(serialize.Layer1)
	if !ok {
		return nil, fmt.Errorf("observer: unexpected layer-1 view type %T", view)
	}
	return layer1.Ratings, nil
}

// SelectGame implements the GAME{idx} action (spec.md §4.5): idx indexes
// into the array most recently returned by ListGames. Idempotent: calling
// it again (even for the same idx) rebuilds the replica from tick 0.
func (s *Session) SelectGame(idx int) error {
	if idx < 0 || idx >= len(s.gamesCache) {
		return protocol.ErrResourceNotFound("no game at index %d", idx)
	}
	gs := s.gamesCache[idx]

	def, ok := s.maps.ByName(gs.MapID)
	if !ok {
		return protocol.ErrResourceNotFound("map %q not found", gs.MapID)
	}
	actions, err := s.store.ActionsForGame(gs.ID)
	if err != nil {
		return fmt.Errorf("observer: load actions for game %q: %w", gs.ID, err)
	}

	s.gameID = gs.ID
	s.gameName = gs.Name
	s.def = def
	s.numPlayers = gs.NumPlayers
	s.actions = actions
	s.maxTurn = countTurns(actions)
	return s.resetReplica()
}

// resetReplica rebuilds the replica Instance from scratch and rewinds the
// action cursor, without touching s.actions/s.maxTurn.
func (s *Session) resetReplica() error {
	inst, err := game.NewObserved(s.gameID, s.gameName, s.def, s.numPlayers, s.cfg, s.log)
	if err != nil {
		return err
	}
	s.inst = inst
	s.actionIdx = 0
	s.currentTurn = 0
	return nil
}

// SeekTurn implements the observer's TURN{idx} action (spec.md §4.5):
// seek to absolute tick idx, clamped to [0, max_turn]. A forward seek
// replays from the current cursor; a backward seek resets the replica and
// replays from tick 0.
func (s *Session) SeekTurn(idx int) error {
	if s.inst == nil {
		return protocol.ErrInappropriate("no game selected")
	}
	target := idx
	if target < 0 {
		target = 0
	}
	if target > s.maxTurn {
		target = s.maxTurn
	}

	if target < s.currentTurn {
		if err := s.resetReplica(); err != nil {
			return err
		}
	}

	consumed, err := replayForward(s.inst, s.actions[s.actionIdx:], s.currentTurn, target)
	if err != nil {
		return err
	}
	s.actionIdx += consumed
	s.currentTurn = target
	return nil
}

// Map implements the observer's MAP{layer} action (spec.md §4.5: "as
// §4.2"). The observer owns no entities of its own, so nothing is ever
// cleared as a side effect of reading layer 1.
func (s *Session) Map(layer int) (interface{}, error) {
	if s.inst == nil {
		return nil, protocol.ErrInappropriate("no game selected")
	}
	return s.inst.Map(layer, "")
}

func countTurns(actions []store.ActionRecord) int {
	n := 0
	for _, a := range actions {
		if a.Code == protocol.ActionTurn {
			n++
		}
	}
	return n
}

// replayForward consumes actions from the front of the slice, applying
// each to inst, until either the slice is exhausted or target-startTurn
// TURN actions have been consumed. It returns how many actions were
// consumed so the caller can advance its own cursor. EVENT actions are
// buffered and applied in the same spot tick()'s live random-event
// sampling runs, inside ReplayTick, so replay reaches the same state a
// live game did (spec.md §4.5 determinism requirement).
func replayForward(inst *game.Instance, actions []store.ActionRecord, startTurn, target int) (int, error) {
	turn := startTurn
	var pending []entity.Event

	consumed := 0
	for _, rec := range actions {
		if turn >= target {
			break
		}
		consumed++
		switch rec.Code {
		case protocol.ActionLogin:
			var p protocol.LoginActionPayload
			if err := json.Unmarshal(rec.Payload, &p); err != nil {
				return consumed, fmt.Errorf("observer: decode LOGIN action: %w", err)
			}
			if rec.PlayerID == nil {
				return consumed, fmt.Errorf("observer: LOGIN action missing player id")
			}
			if _, err := inst.AddPlayer(&entity.Player{ID: *rec.PlayerID, Name: p.Name}); err != nil {
				return consumed, err
			}

		case protocol.ActionLogout:
			if rec.PlayerID != nil {
				inst.RemovePlayer(*rec.PlayerID)
			}

		case protocol.ActionMove:
			var p protocol.MovePayload
			if err := json.Unmarshal(rec.Payload, &p); err != nil {
				return consumed, fmt.Errorf("observer: decode MOVE action: %w", err)
			}
			if rec.PlayerID == nil {
				return consumed, fmt.Errorf("observer: MOVE action missing player id")
			}
			if err := inst.MoveTrain(*rec.PlayerID, p.TrainIdx, p.LineIdx, p.Speed); err != nil {
				return consumed, err
			}

		case protocol.ActionUpgrade:
			var p protocol.UpgradePayload
			if err := json.Unmarshal(rec.Payload, &p); err != nil {
				return consumed, fmt.Errorf("observer: decode UPGRADE action: %w", err)
			}
			if rec.PlayerID == nil {
				return consumed, fmt.Errorf("observer: UPGRADE action missing player id")
			}
			if err := inst.MakeUpgrade(*rec.PlayerID, p.Posts, p.Trains); err != nil {
				return consumed, err
			}

		case protocol.ActionEvent:
			var ev entity.Event
			if err := json.Unmarshal(rec.Payload, &ev); err != nil {
				return consumed, fmt.Errorf("observer: decode EVENT action: %w", err)
			}
			pending = append(pending, ev)

		case protocol.ActionTurn:
			if err := inst.ReplayTick(pending); err != nil {
				return consumed, err
			}
			pending = nil
			turn++
		}
	}
	return consumed, nil
}
