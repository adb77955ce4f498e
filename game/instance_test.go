package game

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironrailgames/railserver/config"
	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/mapdata"
)

// testDef builds a 4-point, 3-line, 2-town test map:
//
//	Town(1) --L1(len 3)-- (2) --L2(len 2)-- Market(3) --L3(len 1)-- Town(4)
func testDef() *mapdata.Definition {
	return &mapdata.Definition{
		Name: "test",
		Size: [2]int{10, 10},
		Points: []mapdata.PointDef{
			{X: 0, Y: 0},
			{X: 1, Y: 0},
			{X: 2, Y: 0},
			{X: 3, Y: 0},
		},
		Lines: []mapdata.LineDef{
			{Length: 3, P0: 1, P1: 2},
			{Length: 2, P0: 2, P1: 3},
			{Length: 1, P0: 3, P1: 4},
		},
		Posts: []mapdata.PostDef{
			{Point: 1, Name: "Alpha", Type: mapdata.PostTown, Population: 5, Product: 50, Armor: 50},
			{Point: 3, Name: "Market1", Type: mapdata.PostMarket, Product: 100, Replenishment: 5},
			{Point: 4, Name: "Beta", Type: mapdata.PostTown, Population: 5, Product: 50, Armor: 50},
		},
	}
}

func newTestInstance(t *testing.T, numPlayers int) *Instance {
	t.Helper()
	cfg := config.Fast()
	inst, err := New("g1", "game-one", testDef(), numPlayers, 0, cfg, nil, slog.Default())
	require.NoError(t, err)
	return inst
}

func loginPlayer(t *testing.T, g *Instance, id, name string) *entity.Player {
	t.Helper()
	p, err := g.AddPlayer(&entity.Player{ID: id, Name: name})
	require.NoError(t, err)
	return p
}
