// Package store is the persistence layer (spec.md §6): three SQLite tables
// — players, games, actions — accessed through database/sql and the
// mattn/go-sqlite3 driver. Store implements game.ActionRecorder so an
// Instance can append to the action log without depending on this package
// directly.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ironrailgames/railserver/protocol"
)

func newID() string  { return uuid.NewString() }
func nowUTC() time.Time { return time.Now().UTC() }

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	created_at  DATETIME NOT NULL,
	map_id      TEXT NOT NULL,
	num_players INTEGER NOT NULL,
	num_turns   INTEGER,
	data        TEXT
);

CREATE TABLE IF NOT EXISTS actions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id    TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	code       INTEGER NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	player_id  TEXT
);
CREATE INDEX IF NOT EXISTS idx_actions_game_seq ON actions(game_id, seq);
`

// Player is a row of the players table. Password is the one "protected"
// field in this package's sense: store callers outside of auth never read
// it back out by way of a public accessor other than PlayerByName/
// UpsertPlayer, which exist precisely to check it.
type Player struct {
	ID        string
	Name      string
	Password  string
	CreatedAt time.Time
}

// GameSummary is one row of the OBSERVER listing (spec.md §4.5): enough to
// populate the "list games" response without loading the full action log.
type GameSummary struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	MapID      string
	NumPlayers int
	NumTurns   int
	Data       json.RawMessage
}

// ActionRecord is one row of the actions table, as replayed by the
// observer.
type ActionRecord struct {
	Seq       int
	Code      protocol.Action
	Payload   json.RawMessage
	CreatedAt time.Time
	PlayerID  *string
}

// Store is the sqlite-backed persistence layer. seqMu serializes sequence
// number assignment so ordering within a game matches insertion order
// (spec.md §5), independent of whatever transaction isolation sqlite gives
// concurrent writers.
type Store struct {
	db    *sql.DB
	seqMu sync.Mutex
	seq   map[string]int
}

// Open creates (or reuses) the sqlite database at uri and ensures the
// schema exists. uri may be a file path or ":memory:" (used by tests and
// config.Fast()).
func Open(uri string) (*Store, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", uri, err)
	}
	db.SetMaxOpenConns(1) // sqlite serializes writers anyway; avoid "database is locked"
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db, seq: make(map[string]int)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertPlayer creates a player row if name doesn't exist yet, or returns
// the existing row after checking password matches (spec.md §4.2 LOGIN:
// name+password auth, reattach to an existing player by name).
func (s *Store) UpsertPlayer(name, password string) (Player, error) {
	existing, err := s.PlayerByName(name)
	if err == nil {
		if existing.Password != password {
			return Player{}, protocol.ErrAccessDenied("password mismatch for player %q", name)
		}
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return Player{}, fmt.Errorf("store: lookup player %q: %w", name, err)
	}

	p := Player{ID: newID(), Name: name, Password: password, CreatedAt: nowUTC()}
	_, execErr := s.db.Exec(
		`INSERT INTO players (id, name, password, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Password, p.CreatedAt,
	)
	if execErr != nil {
		return Player{}, fmt.Errorf("store: insert player %q: %w", name, execErr)
	}
	return p, nil
}

// PlayerByName returns sql.ErrNoRows if no such player exists.
func (s *Store) PlayerByName(name string) (Player, error) {
	var p Player
	row := s.db.QueryRow(`SELECT id, name, password, created_at FROM players WHERE name = ?`, name)
	if err := row.Scan(&p.ID, &p.Name, &p.Password, &p.CreatedAt); err != nil {
		return Player{}, err
	}
	return p, nil
}

// CreateGame inserts a new games row, defaulting num_turns to NULL when 0
// ("unlimited", per game.Instance.NumTurns).
func (s *Store) CreateGame(id, name, mapID string, numPlayers, numTurns int) error {
	var numTurnsArg interface{}
	if numTurns > 0 {
		numTurnsArg = numTurns
	}
	_, err := s.db.Exec(
		`INSERT INTO games (id, name, created_at, map_id, num_players, num_turns) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, nowUTC(), mapID, numPlayers, numTurnsArg,
	)
	if err != nil {
		return fmt.Errorf("store: insert game %q: %w", name, err)
	}
	return nil
}

// GameByName returns sql.ErrNoRows if no such game exists.
func (s *Store) GameByName(name string) (GameSummary, error) {
	var g GameSummary
	var numTurns sql.NullInt64
	var data sql.NullString
	row := s.db.QueryRow(
		`SELECT id, name, created_at, map_id, num_players, num_turns, data FROM games WHERE name = ?`, name,
	)
	if err := row.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.MapID, &g.NumPlayers, &numTurns, &data); err != nil {
		return GameSummary{}, err
	}
	g.NumTurns = int(numTurns.Int64)
	if data.Valid {
		g.Data = json.RawMessage(data.String)
	}
	return g, nil
}

// FinishGame writes a per-player summary object into games.data (spec.md
// §6: "On game finish, write a per-player summary object into
// games.data").
func (s *Store) FinishGame(id string, summary interface{}) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("store: marshal finish summary for game %q: %w", id, err)
	}
	_, execErr := s.db.Exec(`UPDATE games SET data = ? WHERE id = ?`, string(raw), id)
	if execErr != nil {
		return fmt.Errorf("store: finish game %q: %w", id, execErr)
	}
	return nil
}

// ListGames returns every game row, most recent first, for the OBSERVER
// listing operation.
func (s *Store) ListGames() ([]GameSummary, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at, map_id, num_players, num_turns, data FROM games ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list games: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		var numTurns sql.NullInt64
		var data sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.MapID, &g.NumPlayers, &numTurns, &data); err != nil {
			return nil, fmt.Errorf("store: scan game row: %w", err)
		}
		g.NumTurns = int(numTurns.Int64)
		if data.Valid {
			g.Data = json.RawMessage(data.String)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AppendAction implements game.ActionRecorder. Sequence numbers are
// assigned here, under seqMu, rather than left to the database's
// autoincrement id, because replay ordering (spec.md §4.5) must be
// reconstructible as "the Nth action of this game" independent of
// whatever other games are being written to concurrently.
func (s *Store) AppendAction(gameID string, code protocol.Action, payload interface{}, playerID *string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("store: marshal action payload for game %q: %w", gameID, err)
	}

	s.seqMu.Lock()
	seq, seeded := s.seq[gameID]
	if !seeded {
		primed, primeErr := s.primeSeq(gameID)
		if primeErr != nil {
			s.seqMu.Unlock()
			return fmt.Errorf("store: prime sequence for game %q: %w", gameID, primeErr)
		}
		seq = primed
	}
	s.seq[gameID] = seq + 1
	s.seqMu.Unlock()

	_, execErr := s.db.Exec(
		`INSERT INTO actions (game_id, seq, code, message, created_at, player_id) VALUES (?, ?, ?, ?, ?, ?)`,
		gameID, seq, uint32(code), string(raw), nowUTC(), playerID,
	)
	if execErr != nil {
		return fmt.Errorf("store: append action for game %q: %w", gameID, execErr)
	}
	return nil
}

// ActionsForGame returns every recorded action for gameID in insertion
// (seq) order, the replay log the observer package drives an Instance
// from.
func (s *Store) ActionsForGame(gameID string) ([]ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT seq, code, message, created_at, player_id FROM actions WHERE game_id = ? ORDER BY seq ASC`, gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list actions for game %q: %w", gameID, err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var code uint32
		var message string
		var playerID sql.NullString
		if err := rows.Scan(&rec.Seq, &code, &message, &rec.CreatedAt, &playerID); err != nil {
			return nil, fmt.Errorf("store: scan action row: %w", err)
		}
		rec.Code = protocol.Action(code)
		rec.Payload = json.RawMessage(message)
		if playerID.Valid {
			id := playerID.String
			rec.PlayerID = &id
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// seqMu also guards per-game sequence bootstrapping on process restart: the
// in-memory counter starts at 0 for an unseen game, which is correct for a
// brand new game but would collide if a process restarted mid-game without
// reloading the existing max(seq). Loading it lazily on first append keeps
// AppendAction cheap for the common (new game) case.
func (s *Store) primeSeq(gameID string) (int, error) {
	var max sql.NullInt64
	row := s.db.QueryRow(`SELECT MAX(seq) FROM actions WHERE game_id = ?`, gameID)
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}
