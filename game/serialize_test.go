package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironrailgames/railserver/entity"
)

func TestLayer1ReadOnceClearsCallingPlayersEventQueues(t *testing.T) {
	g := newTestInstance(t, 2)
	p := loginPlayer(t, g, "p1", "Alice")
	g.Stop()

	train := g.trains[p.TrainIDs[0]]
	train.Events = append(train.Events, entity.NewCollisionEvent(1, 999))
	town := g.posts[p.HomeTownID]
	town.Events = append(town.Events, entity.NewGameOverEvent(1))

	first, err := g.Layer1(p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Trains[0].Events, "the read that triggers the clear still sees the events")

	second, err := g.Layer1(p.ID)
	require.NoError(t, err)
	for _, tr := range second.Trains {
		if tr.ID == train.ID {
			assert.Empty(t, tr.Events, "a second immediate read must return empty event lists")
		}
	}
}

func TestLayer1DoesNotClearOtherPlayersEvents(t *testing.T) {
	g := newTestInstance(t, 2)
	p1 := loginPlayer(t, g, "p1", "Alice")
	p2 := loginPlayer(t, g, "p2", "Bob")
	g.Stop()

	train2 := g.trains[p2.TrainIDs[0]]
	train2.Events = append(train2.Events, entity.NewCollisionEvent(1, 999))

	_, err := g.Layer1(p1.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, train2.Events, "reading layer 1 as p1 must not clear p2's events")
}

func TestMapRejectsUnknownLayer(t *testing.T) {
	g := newTestInstance(t, 2)
	loginPlayer(t, g, "p1", "Alice")
	g.Stop()

	_, err := g.Map(2, "p1")
	assert.Error(t, err)
}
