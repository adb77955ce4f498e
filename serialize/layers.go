// Package serialize defines the wire-facing JSON projections of map state
// (spec.md §4.6): one struct per layer, each an explicit field whitelist
// rather than a reflective dump of the domain entity. Dictionary-valued
// collections that are semantically lists (trains, posts, lines, points)
// are emitted as JSON arrays, never as maps keyed by id — callers pass
// already-ordered slices in.
package serialize

import (
	"github.com/ironrailgames/railserver/entity"
)

// PointView is the layer-0/10 projection of entity.Point.
type PointView struct {
	ID     int  `json:"idx"`
	PostID *int `json:"post_idx,omitempty"`
	X      int  `json:"x"`
	Y      int  `json:"y"`
}

// LineView is the layer-0 projection of entity.Line.
type LineView struct {
	ID     int `json:"idx"`
	Length int `json:"length"`
	P0     int `json:"p0"`
	P1     int `json:"p1"`
}

// Layer0 is the static-graph view: {idx, name, points, lines}.
type Layer0 struct {
	ID    string      `json:"idx"`
	Name  string      `json:"name"`
	Points []PointView `json:"points"`
	Lines  []LineView  `json:"lines"`
}

func BuildLayer0(gameID, name string, points []*entity.Point, lines []*entity.Line) Layer0 {
	l := Layer0{ID: gameID, Name: name}
	for _, p := range points {
		l.Points = append(l.Points, PointView{ID: p.ID, PostID: p.PostID, X: p.X, Y: p.Y})
	}
	for _, ln := range lines {
		l.Lines = append(l.Lines, LineView{ID: ln.ID, Length: ln.Length, P0: ln.P0, P1: ln.P1})
	}
	return l
}

// EventView is the wire projection of entity.Event: every optional field
// is left absent (via `omitempty`) unless Kind calls for it, matching
// entity.Event's own tags.
type EventView = entity.Event

// TownView, MarketView, StorageView whitelist the per-kind Post payload.
// None of these ever carry a "protected" field — there isn't one on Post's
// sub-structs — but the type boundary keeps the wire shape explicit and
// independent of whatever internal bookkeeping entity.TownData,
// MarketData or StorageData grow later.
type TownView struct {
	PlayerID   string `json:"player_idx"`
	Population int    `json:"population"`
	Product    int    `json:"product"`
	Armor      int    `json:"armor"`
	Level      int    `json:"level"`
}

type MarketView struct {
	Product       int `json:"product"`
	Capacity      int `json:"capacity"`
	Replenishment int `json:"replenishment"`
}

type StorageView struct {
	Armor         int `json:"armor"`
	Capacity      int `json:"capacity"`
	Replenishment int `json:"replenishment"`
}

// PostView is the layer-1 projection of entity.Post: a tagged union
// wire-encoded with a single "type" discriminator, one of Town/Market/
// Storage populated per Kind.
type PostView struct {
	ID      int          `json:"idx"`
	PointID int          `json:"point_idx"`
	Name    string       `json:"name"`
	Kind    string       `json:"type"`
	Town    *TownView    `json:"town,omitempty"`
	Market  *MarketView  `json:"market,omitempty"`
	Storage *StorageView `json:"storage,omitempty"`
	Events  []EventView  `json:"events"`
}

func BuildPostView(p *entity.Post) PostView {
	v := PostView{ID: p.ID, PointID: p.PointID, Name: p.Name, Kind: string(p.Kind), Events: p.Events}
	switch p.Kind {
	case entity.PostTown:
		v.Town = &TownView{PlayerID: p.Town.PlayerID, Population: p.Town.Population, Product: p.Town.Product, Armor: p.Town.Armor, Level: p.Town.Level}
	case entity.PostMarket:
		v.Market = &MarketView{Product: p.Market.Product, Capacity: p.Market.Capacity, Replenishment: p.Market.Replenishment}
	case entity.PostStorage:
		v.Storage = &StorageView{Armor: p.Storage.Armor, Capacity: p.Storage.Capacity, Replenishment: p.Storage.Replenishment}
	}
	return v
}

// TrainView is the layer-1 projection of entity.Train. PlayerID (the
// owner) is deliberately whitelisted in, unlike a "password"-style
// protected field on Player — see PlayerView below.
type TrainView struct {
	ID       int         `json:"idx"`
	PlayerID string      `json:"player_idx"`
	LineID   int         `json:"line_idx"`
	Position int         `json:"position"`
	Speed    int         `json:"speed"`
	Level    int         `json:"level"`
	Goods    int         `json:"goods"`
	GoodsType string     `json:"goods_type"`
	Fuel     int         `json:"fuel"`
	Cooldown int         `json:"cooldown"`
	Events   []EventView `json:"events"`
}

func BuildTrainView(t *entity.Train) TrainView {
	return TrainView{
		ID: t.ID, PlayerID: t.PlayerID, LineID: t.LineID, Position: t.Position,
		Speed: t.Speed, Level: t.Level, Goods: t.Goods, GoodsType: string(t.GoodsType),
		Fuel: t.Fuel, Cooldown: t.Cooldown, Events: t.Events,
	}
}

// RatingView is the layer-1 {player_idx, rating} pair.
type RatingView struct {
	PlayerID string `json:"player_idx"`
	Rating   int    `json:"rating"`
}

// Layer1 is the dynamic-entities view: {idx, posts, trains, ratings}.
type Layer1 struct {
	ID      string       `json:"idx"`
	Posts   []PostView   `json:"posts"`
	Trains  []TrainView  `json:"trains"`
	Ratings []RatingView `json:"ratings"`
}

func BuildLayer1(gameID string, posts []*entity.Post, trains []*entity.Train, ratings []RatingView) Layer1 {
	l := Layer1{ID: gameID, Ratings: ratings}
	for _, p := range posts {
		l.Posts = append(l.Posts, BuildPostView(p))
	}
	for _, t := range trains {
		l.Trains = append(l.Trains, BuildTrainView(t))
	}
	return l
}

// Layer10 is the geometry view: {idx, size, coordinates}.
type Layer10 struct {
	ID          string  `json:"idx"`
	Size        [2]int  `json:"size"`
	Coordinates [][2]int `json:"coordinates"`
}

func BuildLayer10(gameID string, size [2]int, points []*entity.Point) Layer10 {
	l := Layer10{ID: gameID, Size: size}
	for _, p := range points {
		l.Coordinates = append(l.Coordinates, [2]int{p.X, p.Y})
	}
	return l
}

// PlayerView is the LOGIN/PLAYER response projection. Player's password is
// stored only in store.Player, never on entity.Player, so there is no
// protected field to withhold here.
type PlayerView struct {
	ID          string `json:"idx"`
	Name        string `json:"name"`
	Rating      int    `json:"rating"`
	HomePointID int    `json:"home_point_idx"`
	HomeTownID  int    `json:"home_town_idx"`
	TrainIDs    []int  `json:"train_idxs"`
}

func BuildPlayerView(p *entity.Player) PlayerView {
	return PlayerView{
		ID: p.ID, Name: p.Name, Rating: p.Rating,
		HomePointID: p.HomePointID, HomeTownID: p.HomeTownID, TrainIDs: p.TrainIDs,
	}
}
