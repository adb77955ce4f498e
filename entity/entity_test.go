package entity

import (
	"testing"

	"github.com/ironrailgames/railserver/config"
	"github.com/stretchr/testify/assert"
)

func TestLineOtherEnd(t *testing.T) {
	l := Line{ID: 1, Length: 3, P0: 10, P1: 20}
	assert.Equal(t, 20, l.OtherEnd(10))
	assert.Equal(t, 10, l.OtherEnd(20))
	assert.Panics(t, func() { l.OtherEnd(99) })
}

func TestLineHasEndpoint(t *testing.T) {
	l := Line{ID: 1, Length: 3, P0: 10, P1: 20}
	assert.True(t, l.HasEndpoint(10))
	assert.True(t, l.HasEndpoint(20))
	assert.False(t, l.HasEndpoint(15))
}

func TestPostCapacitiesByKind(t *testing.T) {
	cfg := config.Default()

	town := &Post{Kind: PostTown, Town: &TownData{Level: 1}}
	assert.Equal(t, cfg.TownLevels[1].PopulationCapacity, town.PopulationCapacity(cfg))
	assert.Equal(t, cfg.TownLevels[1].ProductCapacity, town.ProductCapacity(cfg))
	assert.Equal(t, cfg.TownLevels[1].ArmorCapacity, town.ArmorCapacity(cfg))
	assert.Equal(t, cfg.TownLevels[1].TrainCooldown, town.TrainCooldown(cfg))
	assert.Equal(t, cfg.TownLevels[1].NextLevelPrice, town.NextLevelPrice(cfg))

	market := &Post{Kind: PostMarket, Market: &MarketData{Capacity: 50}}
	assert.Equal(t, 50, market.ProductCapacity(cfg))
	assert.Equal(t, 0, market.PopulationCapacity(cfg))

	storage := &Post{Kind: PostStorage, Storage: &StorageData{Capacity: 75}}
	assert.Equal(t, 75, storage.ArmorCapacity(cfg))
	assert.Equal(t, 0, storage.TrainCooldown(cfg))
}

func TestTrainIsAtEndpoint(t *testing.T) {
	line := Line{ID: 1, Length: 5, P0: 1, P1: 2}
	atStart := &Train{Position: 0}
	atEnd := &Train{Position: 5}
	mid := &Train{Position: 2}

	assert.True(t, atStart.IsAtEndpoint(line))
	assert.Equal(t, line.P0, atStart.EndpointPoint(line))
	assert.True(t, atEnd.IsAtEndpoint(line))
	assert.Equal(t, line.P1, atEnd.EndpointPoint(line))
	assert.False(t, mid.IsAtEndpoint(line))
}

func TestPlayerHasTrain(t *testing.T) {
	p := &Player{TrainIDs: []int{1, 2, 3}}
	assert.True(t, p.HasTrain(2))
	assert.False(t, p.HasTrain(4))
}

func TestTrimEvents(t *testing.T) {
	events := []Event{{Tick: 1}, {Tick: 2}, {Tick: 3}, {Tick: 4}}
	trimmed := TrimEvents(events, 2)
	assert.Len(t, trimmed, 2)
	assert.Equal(t, 3, trimmed[0].Tick)
	assert.Equal(t, 4, trimmed[1].Tick)

	assert.Equal(t, events, TrimEvents(events, 10))
}
