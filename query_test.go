package astradoc

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/astradoc/api"
)

func TestFormatQuery(t *testing.T) {

	oid := primitive.NewObjectID()
	q, err := FormatQuery(Filter{
		"name":  "a",
		"age":   3,
		"ok":    true,
		"score": 1.5,
		"_id":   oid,
		"n":     map[string]interface{}{"$gt": 2},
		"tags":  []interface{}{"x"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"$eq": "a"}, q["name"])
	assert.Equal(t, map[string]interface{}{"$eq": 3}, q["age"])
	assert.Equal(t, map[string]interface{}{"$eq": true}, q["ok"])
	assert.Equal(t, map[string]interface{}{"$eq": 1.5}, q["score"])
	assert.Equal(t, map[string]interface{}{"$eq": oid.Hex()}, q["_id"])
	assert.Equal(t, map[string]interface{}{"$gt": 2}, q["n"])
	// unrecognized kinds are left unwrapped
	assert.Equal(t, []interface{}{"x"}, q["tags"])

	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name":{"$eq":"a"}`)
}

func TestFormatQuery_Collation(t *testing.T) {

	opts := &FindOptions{Collation: &Collation{Locale: "fr"}}

	_, err := FormatQuery(Filter{"name": "a"}, opts)
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
	assert.Equal(t, "Collations are not supported", err.Error())

	// checked per field
	q, err := FormatQuery(Filter{}, opts)
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestAddDefaultID(t *testing.T) {

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		doc := AddDefaultID(api.Document{"i": i})
		id := doc.ID()
		require.Len(t, id, 24)
		require.False(t, seen[id], "identifier %s reused", id)
		seen[id] = true
	}

	doc := api.Document{"_id": "mine"}
	assert.Equal(t, "mine", AddDefaultID(doc).ID())
	assert.Equal(t, "mine", AddDefaultID(doc).ID())

	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), AddDefaultID(api.Document{"_id": oid}).ID())
	assert.Equal(t, "42", AddDefaultID(api.Document{"_id": 42}).ID())
	assert.Len(t, AddDefaultID(api.Document{"_id": ""}).ID(), 24)
}

func TestFlattenUpdate(t *testing.T) {

	current := api.Document{"_id": "1", "count": float64(2), "name": "a"}

	patch, err := flattenUpdate(Update{
		"direct": "x",
		"$set":   map[string]interface{}{"name": "b"},
		"$inc":   bson.M{"count": 3, "missing": 1},
	}, current)
	require.NoError(t, err)

	assert.Equal(t, api.Document{
		"direct":  "x",
		"name":    "b",
		"count":   float64(5),
		"missing": 1,
	}, patch)

	patch, err = flattenUpdate(Update{"$inc": map[string]interface{}{"n": 1}}, api.Document{"n": 5})
	require.NoError(t, err)
	assert.Equal(t, int64(6), patch["n"])

	patch, err = flattenUpdate(Update{"$inc": map[string]interface{}{"n": 1}}, api.Document{"n": nil})
	require.NoError(t, err)
	assert.Equal(t, 1, patch["n"])
}

func TestFlattenUpdate_Errors(t *testing.T) {

	_, err := flattenUpdate(Update{"$unset": map[string]interface{}{"a": ""}}, api.Document{})
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))

	_, err = flattenUpdate(Update{"$set": 3}, api.Document{})
	assert.Error(t, err)

	_, err = flattenUpdate(Update{"$inc": map[string]interface{}{"a": 1}}, api.Document{"a": "text"})
	assert.Error(t, err)
}

func TestAddNumbers(t *testing.T) {

	sum, err := addNumbers(float64(2), uint(1))
	require.NoError(t, err)
	assert.Equal(t, float64(3), sum)

	sum, err = addNumbers(5, uint64(1))
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum)

	sum, err = addNumbers(int64(math.MaxInt64), 1)
	require.NoError(t, err)
	assert.IsType(t, float64(0), sum)

	sum, err = addNumbers(int64(math.MinInt64), -1)
	require.NoError(t, err)
	assert.IsType(t, float64(0), sum)

	sum, err = addNumbers(uint64(math.MaxUint64), 1)
	require.NoError(t, err)
	assert.IsType(t, float64(0), sum)

	_, err = addNumbers("a", 1)
	assert.Error(t, err)
}

func TestFlattenUpdate_UnsignedIncrement(t *testing.T) {

	patch, err := flattenUpdate(Update{"$inc": map[string]interface{}{"n": uint(1)}}, api.Document{"n": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, float64(5), patch["n"])
}
