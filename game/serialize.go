package game

import (
	"sort"

	"github.com/ironrailgames/railserver/entity"
	"github.com/ironrailgames/railserver/protocol"
	"github.com/ironrailgames/railserver/serialize"
)

// Layer0 returns the static-graph view (spec.md §4.6): {idx, name, points,
// lines}.
func (g *Instance) Layer0() serialize.Layer0 {
	g.mu.Lock()
	defer g.mu.Unlock()

	points := make([]*entity.Point, 0, len(g.points))
	for _, id := range sortedIntKeys(g.points) {
		points = append(points, g.points[id])
	}
	lines := make([]*entity.Line, 0, len(g.lines))
	for _, id := range sortedLineKeys(g.lines) {
		lines = append(lines, g.lines[id])
	}
	return serialize.BuildLayer0(g.ID, g.Name, points, lines)
}

// Layer1 returns the dynamic-entities view (spec.md §4.6): {idx, posts,
// trains, ratings}. Reading it clears playerID's own trains' and home
// town's event queues (spec.md §8 property 6: "reading layer 1 exactly
// once clears that player's event queues"); an empty playerID (the
// OBSERVER session, which owns no entities) clears nothing.
func (g *Instance) Layer1(playerID string) (serialize.Layer1, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	posts := make([]*entity.Post, 0, len(g.posts))
	for _, id := range sortedPostKeys(g.posts) {
		posts = append(posts, g.posts[id])
	}
	trains := make([]*entity.Train, 0, len(g.trains))
	for _, id := range sortedTrainIDs(g.trains) {
		trains = append(trains, g.trains[id])
	}
	var ratings []serialize.RatingView
	for _, pid := range g.playerOrder {
		p := g.players[pid]
		if p == nil {
			continue
		}
		ratings = append(ratings, serialize.RatingView{PlayerID: p.ID, Rating: p.Rating})
	}

	view := serialize.BuildLayer1(g.ID, posts, trains, ratings)

	if player, ok := g.players[playerID]; ok {
		for _, tid := range player.TrainIDs {
			if tr := g.trains[tid]; tr != nil {
				tr.Events = nil
			}
		}
		if town := g.posts[player.HomeTownID]; town != nil {
			town.Events = nil
		}
	}
	return view, nil
}

// Layer10 returns the geometry view (spec.md §4.6): {idx, size,
// coordinates}.
func (g *Instance) Layer10() serialize.Layer10 {
	g.mu.Lock()
	defer g.mu.Unlock()

	points := make([]*entity.Point, 0, len(g.points))
	for _, id := range sortedIntKeys(g.points) {
		points = append(points, g.points[id])
	}
	return serialize.BuildLayer10(g.ID, g.size, points)
}

// Map dispatches MAP{layer} (spec.md §4.2): layer must be 0, 1 or 10,
// anything else is RESOURCE_NOT_FOUND.
func (g *Instance) Map(layer int, playerID string) (interface{}, error) {
	switch layer {
	case 0:
		return g.Layer0(), nil
	case 1:
		return g.Layer1(playerID)
	case 10:
		return g.Layer10(), nil
	default:
		return nil, protocol.ErrResourceNotFound("unknown map layer %d", layer)
	}
}

func sortedIntKeys(m map[int]*entity.Point) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedLineKeys(m map[int]*entity.Line) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedPostKeys(m map[int]*entity.Post) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
