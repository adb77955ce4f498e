package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeUpgradeTrainSuccess(t *testing.T) {
	g := newTestInstance(t, 2)
	p := loginPlayer(t, g, "p1", "Alice")
	trainID := p.TrainIDs[0]
	town := g.posts[p.HomeTownID]
	town.Town.Armor = 100

	err := g.MakeUpgrade(p.ID, nil, []int{trainID})
	require.NoError(t, err)
	assert.Equal(t, 2, g.trains[trainID].Level)
	assert.Equal(t, 60, town.Town.Armor) // 100 - level-1 price (40)
}

func TestMakeUpgradeTownSuccess(t *testing.T) {
	g := newTestInstance(t, 2)
	p := loginPlayer(t, g, "p1", "Alice")
	town := g.posts[p.HomeTownID]
	town.Town.Armor = 200

	err := g.MakeUpgrade(p.ID, []int{p.HomeTownID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, town.Town.Level)
	assert.Equal(t, 100, town.Town.Armor) // 200 - level-1 price (100)
}

func TestMakeUpgradeRejectsInsufficientArmor(t *testing.T) {
	g := newTestInstance(t, 2)
	p := loginPlayer(t, g, "p1", "Alice")
	town := g.posts[p.HomeTownID]
	town.Town.Armor = 10

	err := g.MakeUpgrade(p.ID, nil, []int{p.TrainIDs[0]})
	assert.Error(t, err)
	assert.Equal(t, 1, g.trains[p.TrainIDs[0]].Level, "failed upgrade must not mutate anything")
	assert.Equal(t, 10, town.Town.Armor)
}

func TestMakeUpgradeRejectsTrainNotInTown(t *testing.T) {
	g := newTestInstance(t, 2)
	p := loginPlayer(t, g, "p1", "Alice")
	town := g.posts[p.HomeTownID]
	town.Town.Armor = 100
	g.trains[p.TrainIDs[0]].Position = 1 // away from home

	err := g.MakeUpgrade(p.ID, nil, []int{p.TrainIDs[0]})
	assert.Error(t, err)
}

func TestMakeUpgradeRejectsWrongTownOwner(t *testing.T) {
	g := newTestInstance(t, 2)
	p1 := loginPlayer(t, g, "p1", "Alice")
	loginPlayer(t, g, "p2", "Bob")

	err := g.MakeUpgrade("p2", []int{p1.HomeTownID}, nil)
	assert.Error(t, err)
}

func TestMakeUpgradeRejectsNoNextLevel(t *testing.T) {
	g := newTestInstance(t, 2)
	p := loginPlayer(t, g, "p1", "Alice")
	town := g.posts[p.HomeTownID]
	town.Town.Armor = 10000
	town.Town.Level = 3 // max level per config.Fast's TownLevels table

	err := g.MakeUpgrade(p.ID, []int{p.HomeTownID}, nil)
	assert.Error(t, err)
}
