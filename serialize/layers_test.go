package serialize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironrailgames/railserver/entity"
)

func TestBuildLayer0EmitsOnlyWhitelistedFields(t *testing.T) {
	postID := 1
	points := []*entity.Point{{ID: 1, PostID: &postID, X: 0, Y: 0}, {ID: 2, X: 1, Y: 0}}
	lines := []*entity.Line{{ID: 1, Length: 3, P0: 1, P1: 2}}

	layer := BuildLayer0("g1", "test-map", points, lines)
	raw, err := json.Marshal(layer)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.ElementsMatch(t, []string{"idx", "name", "points", "lines"}, keysOf(decoded))
}

func TestBuildPostViewTownOmitsMarketAndStorage(t *testing.T) {
	post := &entity.Post{
		ID: 1, PointID: 1, Name: "Alpha", Kind: entity.PostTown,
		Town: &entity.TownData{PlayerID: "p1", Population: 5, Product: 50, Armor: 50, Level: 1},
	}
	view := BuildPostView(post)
	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "town")
	assert.NotContains(t, decoded, "market")
	assert.NotContains(t, decoded, "storage")
}

func TestBuildLayer1EmitsTrainsAndPostsAsArrays(t *testing.T) {
	posts := []*entity.Post{{ID: 1, PointID: 1, Name: "Alpha", Kind: entity.PostTown, Town: &entity.TownData{Level: 1}}}
	trains := []*entity.Train{{ID: 1, PlayerID: "p1", LineID: 1}}
	ratings := []RatingView{{PlayerID: "p1", Rating: 42}}

	layer := BuildLayer1("g1", posts, trains, ratings)
	raw, err := json.Marshal(layer)
	require.NoError(t, err)

	var decoded struct {
		Posts   []json.RawMessage `json:"posts"`
		Trains  []json.RawMessage `json:"trains"`
		Ratings []json.RawMessage `json:"ratings"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded.Posts, 1)
	assert.Len(t, decoded.Trains, 1)
	assert.Len(t, decoded.Ratings, 1)
}

func TestBuildLayer10EmitsSizeAndCoordinates(t *testing.T) {
	points := []*entity.Point{{ID: 1, X: 2, Y: 3}, {ID: 2, X: 5, Y: 7}}
	layer := BuildLayer10("g1", [2]int{10, 10}, points)
	assert.Equal(t, [2]int{10, 10}, layer.Size)
	assert.Equal(t, [][2]int{{2, 3}, {5, 7}}, layer.Coordinates)
}

func keysOf(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
