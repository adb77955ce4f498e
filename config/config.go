// Package config enumerates every process-wide knob of the server as a
// single typed struct, fixed at process start, in the style of the
// teacher's utils.Config (utils/config.go): one struct, one Default()
// constructor, one Fast() constructor for tests.
package config

import "time"

// LevelConfig is the set of level-derived caps for one town level, mirroring
// the original server's TOWN_LEVELS table (server/settings.py).
type LevelConfig struct {
	PopulationCapacity int
	ProductCapacity    int
	ArmorCapacity      int
	TrainCooldown      int // ticks a train stays cooled down after colliding, at this town level
	NextLevelPrice     int // 0 means "no next level"
}

// TrainLevelConfig is the set of level-derived caps for one train level.
type TrainLevelConfig struct {
	GoodsCapacity  int
	FuelCapacity   int
	FuelConsumption int
	NextLevelPrice int // 0 means "no next level"
}

// EventConfig bundles the probability/power/cooldown knobs shared by the
// three random event kinds (hijackers, parasites, refugees).
type EventConfig struct {
	Probability         int // percent, 0-100
	PowerMin, PowerMax  int
	CooldownCoefficient int
}

// Config is the full set of recognized server options (spec.md §9).
// All fields are fixed once at process start; nothing here is mutated at
// runtime.
type Config struct {
	ServerAddr string
	ServerPort int

	TickTime               time.Duration
	MaxTickCalculationTime time.Duration
	TurnTimeout            time.Duration // derived: TickTime + MaxTickCalculationTime

	TrainsCount          int
	FuelEnabled          bool
	TrainAlwaysDevastated bool
	CollisionsEnabled    bool

	Hijackers EventConfig
	Parasites EventConfig
	Refugees  EventConfig

	TownLevels  map[int]LevelConfig
	TrainLevels map[int]TrainLevelConfig

	MaxEventMessages int

	ReceiveChunkSize int
	MaxPayloadSize   int // largest payload_len a frame may declare (protocol.Decoder.Feed)

	MapName        string
	MapsDiscovery  string
	DBURI          string

	DefaultNumPlayers int
	DefaultNumTurns   int

	TimeFormat string
}

// EventCooldownOnStart returns the cooldown applied to every random event
// kind at game creation, so no event can fire in the first few ticks
// (spec.md §4.3 "Creation"): power_max * coefficient, per kind.
func (c Config) EventCooldownOnStart() map[string]int {
	return map[string]int{
		"hijackers_assault": c.Hijackers.PowerMax * c.Hijackers.CooldownCoefficient,
		"parasites_assault": c.Parasites.PowerMax * c.Parasites.CooldownCoefficient,
		"refugees_arrival":  c.Refugees.PowerMax * c.Refugees.CooldownCoefficient,
	}
}

// Default returns production-grade defaults, transcribed from the original
// server's BaseConfig/ProductionConfig (server/settings.py,
// server/game_config.py in _examples/original_source).
func Default() Config {
	tick := 10 * time.Second
	maxCalc := 3 * time.Second
	return Config{
		ServerAddr: "127.0.0.1",
		ServerPort: 2000,

		TickTime:               tick,
		MaxTickCalculationTime: maxCalc,
		TurnTimeout:            tick + maxCalc,

		TrainsCount:           8,
		FuelEnabled:           false,
		TrainAlwaysDevastated: true,
		CollisionsEnabled:     true,

		Hijackers: EventConfig{Probability: 20, PowerMin: 1, PowerMax: 3, CooldownCoefficient: 5},
		Parasites: EventConfig{Probability: 20, PowerMin: 1, PowerMax: 3, CooldownCoefficient: 5},
		Refugees:  EventConfig{Probability: 10, PowerMin: 1, PowerMax: 3, CooldownCoefficient: 5},

		TownLevels: map[int]LevelConfig{
			1: {PopulationCapacity: 10, ProductCapacity: 200, ArmorCapacity: 200, TrainCooldown: 2, NextLevelPrice: 100},
			2: {PopulationCapacity: 20, ProductCapacity: 500, ArmorCapacity: 500, TrainCooldown: 1, NextLevelPrice: 200},
			3: {PopulationCapacity: 40, ProductCapacity: 10000, ArmorCapacity: 10000, TrainCooldown: 0, NextLevelPrice: 0},
		},
		TrainLevels: map[int]TrainLevelConfig{
			1: {GoodsCapacity: 40, FuelCapacity: 400, FuelConsumption: 1, NextLevelPrice: 40},
			2: {GoodsCapacity: 80, FuelCapacity: 800, FuelConsumption: 1, NextLevelPrice: 80},
			3: {GoodsCapacity: 160, FuelCapacity: 1600, FuelConsumption: 1, NextLevelPrice: 0},
		},

		MaxEventMessages: 5,
		ReceiveChunkSize: 1024,
		MaxPayloadSize:   1 << 20, // 1 MiB, generous for a JSON object describing one action

		MapName:       "map04",
		MapsDiscovery: "maps/*.yaml",
		DBURI:         "railserver.db",

		DefaultNumPlayers: 1,
		DefaultNumTurns:   0,

		TimeFormat: time.RFC3339Nano,
	}
}

// Fast returns a configuration tuned for quick, deterministic tests: a short
// tick period and random events disabled, mirroring the original's
// TestingConfig (server/game_config.py) and the teacher's FastGameConfig
// (utils/config.go).
func Fast() Config {
	cfg := Default()
	cfg.TickTime = 20 * time.Millisecond
	cfg.MaxTickCalculationTime = 50 * time.Millisecond
	cfg.TurnTimeout = cfg.TickTime + cfg.MaxTickCalculationTime
	cfg.Hijackers.Probability = 0
	cfg.Parasites.Probability = 0
	cfg.Refugees.Probability = 0
	cfg.DBURI = ":memory:"
	return cfg
}
