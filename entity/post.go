package entity

import "github.com/ironrailgames/railserver/config"

// PostKind discriminates the tagged union Post is over. The wire
// serialization emits this as the single "type" field per spec.md §4.6/§9.
type PostKind string

const (
	PostTown    PostKind = "Town"
	PostMarket  PostKind = "Market"
	PostStorage PostKind = "Storage"
)

// GoodsType tags the origin of a train's cargo.
type GoodsType string

const (
	GoodsNone    GoodsType = "None"
	GoodsMarket  GoodsType = "Market"
	GoodsStorage GoodsType = "Storage"
)

// TownData is the Town-specific payload of a Post.
type TownData struct {
	PlayerID   string `json:"player_idx"`
	Population int    `json:"population"`
	Product    int    `json:"product"`
	Armor      int    `json:"armor"`
	Level      int    `json:"level"`
}

// MarketData is the Market-specific payload of a Post. Markets don't level
// up, so Capacity is fixed at construction from the map definition instead
// of being derived from a level table.
type MarketData struct {
	Product       int `json:"product"`
	Capacity      int `json:"capacity"`
	Replenishment int `json:"replenishment"`
}

// StorageData is the Storage-specific payload of a Post. Like Market,
// Storage never levels up.
type StorageData struct {
	Armor         int `json:"armor"`
	Capacity      int `json:"capacity"`
	Replenishment int `json:"replenishment"`
}

// Post is a dynamic object at a Point: a tagged union over
// {Town, Market, Storage}. Exactly one of Town/Market/Storage is non-nil,
// selected by Kind.
type Post struct {
	ID      int    `json:"idx"`
	PointID int    `json:"point_idx"`
	Name    string `json:"name"`

	Kind    PostKind     `json:"type"`
	Town    *TownData    `json:"town,omitempty"`
	Market  *MarketData  `json:"market,omitempty"`
	Storage *StorageData `json:"storage,omitempty"`

	Events []Event `json:"events"`
}

// PopulationCapacity returns the town's population cap for its current
// level. Zero if this post is not a Town or its level is unrecognized.
func (p *Post) PopulationCapacity(cfg config.Config) int {
	if p.Town == nil {
		return 0
	}
	return cfg.TownLevels[p.Town.Level].PopulationCapacity
}

// ProductCapacity returns the product cap for a Town or Market post at its
// current level.
func (p *Post) ProductCapacity(cfg config.Config) int {
	switch p.Kind {
	case PostTown:
		return cfg.TownLevels[p.Town.Level].ProductCapacity
	case PostMarket:
		return p.Market.Capacity
	}
	return 0
}

// ArmorCapacity returns the armor cap for a Town or Storage post.
func (p *Post) ArmorCapacity(cfg config.Config) int {
	switch p.Kind {
	case PostTown:
		return cfg.TownLevels[p.Town.Level].ArmorCapacity
	case PostStorage:
		return p.Storage.Capacity
	}
	return 0
}

// TrainCooldown returns the train_cooldown applied to a train collision
// that sends the train home to this town.
func (p *Post) TrainCooldown(cfg config.Config) int {
	if p.Town == nil {
		return 0
	}
	return cfg.TownLevels[p.Town.Level].TrainCooldown
}

// NextLevelPrice returns the armor cost to level this town up, or 0 if it
// is already at the max level.
func (p *Post) NextLevelPrice(cfg config.Config) int {
	if p.Town == nil {
		return 0
	}
	return cfg.TownLevels[p.Town.Level].NextLevelPrice
}

