package astradoc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdbsoft/astradoc/api"
)

func TestNewCollection(t *testing.T) {

	env := newTestEnv(t)

	_, err := env.Db.Collection("")
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	col, err := env.Db.Collection("users")
	require.NoError(t, err)
	assert.Equal(t, "users", col.Name())
	assert.Equal(t, env.Server.URL+"/api/rest/v2/namespaces/ks/collections/users", col.client.BaseURL())
}

func TestInsertOne_FindOne(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users")
	ctx := context.Background()

	res, err := col.InsertOne(ctx, api.Document{"_id": "u1", "name": "alice", "age": 30}, nil)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, "u1", res.InsertedID)
	assert.Equal(t, 1, env.Requests.Count("PUT"))

	doc, err := col.FindOne(ctx, Filter{"_id": "u1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, api.Document{"_id": "u1", "name": "alice", "age": float64(30)}, doc)

	doc, err = col.FindOne(ctx, Filter{"name": "bob"}, nil)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestInsertOne_DefaultID(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users")
	ctx := context.Background()

	first, err := col.InsertOne(ctx, api.Document{"name": "a"}, nil)
	require.NoError(t, err)
	second, err := col.InsertOne(ctx, api.Document{"name": "a"}, nil)
	require.NoError(t, err)

	assert.Len(t, first.InsertedID, 24)
	assert.NotEqual(t, first.InsertedID, second.InsertedID)

	stored, err := env.Repo.Get(api.ObjectRef{"ks", "users", first.InsertedID})
	require.NoError(t, err)
	assert.Equal(t, first.InsertedID, stored.ID())
}

func TestInsertOne_TTL(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users")

	_, err := col.InsertOne(context.Background(), api.Document{"_id": "x"}, &InsertOptions{TTL: 90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "90", env.Requests.LastQuery("PUT").Get("ttl"))

	_, err = col.InsertOne(context.Background(), api.Document{"_id": "y"}, nil)
	require.NoError(t, err)
	assert.Empty(t, env.Requests.LastQuery("PUT").Get("ttl"))
}

func TestInsertMany(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users")

	docs := []api.Document{{"_id": "b", "n": 1}, {"n": 2}}
	res, err := col.InsertMany(context.Background(), docs, nil)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	require.Len(t, res.InsertedIDs, 2)
	assert.Equal(t, "b", res.InsertedIDs[0])
	assert.Equal(t, docs[1].ID(), res.InsertedIDs[1])
	assert.Equal(t, 1, env.Requests.Count("POST"))

	all, err := env.Repo.GetAll(api.ObjectRef{"ks", "users"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateOne(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users", api.Document{"_id": "u1", "name": "alice", "count": 1})
	ctx := context.Background()

	res, err := col.UpdateOne(ctx, Filter{"name": "alice"}, Update{"$set": map[string]interface{}{"city": "Paris"}, "$inc": map[string]interface{}{"count": 1}}, nil)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, 1, res.MatchedCount)
	assert.Equal(t, 1, res.ModifiedCount)
	assert.Equal(t, float64(1), res.Value["count"])

	res, err = col.UpdateOne(ctx, Filter{"_id": "u1"}, Update{"$inc": map[string]interface{}{"count": 1}}, &UpdateOptions{ReturnDocument: After})
	require.NoError(t, err)
	assert.Equal(t, float64(3), res.Value["count"])
	assert.Equal(t, "Paris", res.Value["city"])

	stored, err := env.Repo.Get(api.ObjectRef{"ks", "users", "u1"})
	require.NoError(t, err)
	assert.Equal(t, float64(3), stored["count"])
	assert.Equal(t, "Paris", stored["city"])
	assert.Equal(t, "alice", stored["name"])
}

func TestUpdateOne_NoMatch(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users", api.Document{"_id": "u1", "name": "alice"})

	res, err := col.UpdateOne(context.Background(), Filter{"name": "bob"}, Update{"name": "carol"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.MatchedCount)
	assert.Equal(t, 0, res.ModifiedCount)
	assert.Equal(t, 0, env.Requests.Count("PATCH"))
}

func TestUpdateOne_Upsert(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users")

	res, err := col.UpdateOne(context.Background(), Filter{"name": "bob", "age": map[string]interface{}{"$gt": 3}}, Update{"$inc": map[string]interface{}{"visits": 1}}, &UpdateOptions{Upsert: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.UpsertedID)

	stored, err := env.Repo.Get(api.ObjectRef{"ks", "users", res.UpsertedID})
	require.NoError(t, err)
	assert.Equal(t, "bob", stored["name"])
	assert.Equal(t, float64(1), stored["visits"])
	assert.NotContains(t, stored, "age")
}

func TestUpdateOne_UnsupportedOperator(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users", api.Document{"_id": "u1"})

	_, err := col.UpdateOne(context.Background(), Filter{}, Update{"$push": map[string]interface{}{"tags": "a"}}, nil)
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
	assert.Equal(t, 0, env.Requests.Count("PATCH"))
}

func TestUpdateMany_Inc(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "items",
		api.Document{"_id": "a", "flag": true},
		api.Document{"_id": "b", "flag": true, "n": 5},
		api.Document{"_id": "c", "flag": false, "n": 10},
	)

	res, err := col.UpdateMany(context.Background(), Filter{"flag": true}, Update{"$inc": map[string]interface{}{"n": 1}}, nil)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, 2, res.MatchedCount)
	assert.Equal(t, 2, res.ModifiedCount)
	assert.Equal(t, 2, env.Requests.Count("PATCH"))

	a, err := env.Repo.Get(api.ObjectRef{"ks", "items", "a"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), a["n"])

	b, err := env.Repo.Get(api.ObjectRef{"ks", "items", "b"})
	require.NoError(t, err)
	assert.Equal(t, float64(6), b["n"])

	c, err := env.Repo.Get(api.ObjectRef{"ks", "items", "c"})
	require.NoError(t, err)
	assert.Equal(t, 10, c["n"])
}

func TestUpdateMany_NoMatch(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "items", api.Document{"_id": "a", "flag": false})

	res, err := col.UpdateMany(context.Background(), Filter{"flag": true}, Update{"x": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ModifiedCount)
}

func TestReplaceOne(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users", api.Document{"_id": "u1", "name": "alice", "age": 30})

	res, err := col.ReplaceOne(context.Background(), Filter{"name": "alice"}, api.Document{"name": "alicia"}, &UpdateOptions{ReturnDocument: After})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ModifiedCount)
	assert.Equal(t, api.Document{"_id": "u1", "name": "alicia"}, res.Value)

	stored, err := env.Repo.Get(api.ObjectRef{"ks", "users", "u1"})
	require.NoError(t, err)
	assert.Equal(t, "alicia", stored["name"])
	assert.NotContains(t, stored, "age")
}

func TestDeleteOne(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users", api.Document{"_id": "u1", "name": "alice"}, api.Document{"_id": "u2", "name": "bob"})
	ctx := context.Background()

	res, err := col.DeleteOne(ctx, Filter{"name": "nobody"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Acknowledged)
	assert.Equal(t, 0, res.DeletedCount)
	assert.Equal(t, 0, env.Requests.Count("DELETE"))

	res, err = col.DeleteOne(ctx, Filter{"name": "bob"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Equal(t, api.Document{"_id": "u2", "name": "bob"}, res.Value)
	assert.Equal(t, 1, env.Requests.Count("DELETE"))

	_, err = env.Repo.Get(api.ObjectRef{"ks", "users", "u2"})
	assert.Error(t, err)
}

func TestDeleteMany(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "items", numberedDocs(10)...)
	ctx := context.Background()

	res, err := col.DeleteMany(ctx, Filter{"even": true}, nil)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, 5, res.DeletedCount)
	assert.Equal(t, 5, env.Requests.Count("DELETE"))

	left, err := env.Repo.GetAll(api.ObjectRef{"ks", "items"})
	require.NoError(t, err)
	assert.Len(t, left, 5)

	res, err = col.DeleteMany(ctx, Filter{"even": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeletedCount)
}

func TestDistinct(t *testing.T) {

	env := newTestEnv(t)
	col, err := env.Db.Collection("names")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = col.InsertOne(ctx, api.Document{"name": "a"}, nil)
	require.NoError(t, err)
	_, err = col.InsertOne(ctx, api.Document{"name": "a"}, nil)
	require.NoError(t, err)

	values, err := col.Distinct(ctx, "name", Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a"}, values)
}

func TestDistinct_Arrays(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "posts",
		api.Document{"_id": "1", "tags": []interface{}{"go", "db"}},
		api.Document{"_id": "2", "tags": "go"},
		api.Document{"_id": "3"},
		api.Document{"_id": "4", "tags": []interface{}{"http", "db"}},
	)

	values, err := col.Distinct(context.Background(), "tags", Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"go", "db", "http"}, values)
}

func TestCountDocuments(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "items", numberedDocs(25)...)
	ctx := context.Background()

	n, err := col.CountDocuments(ctx, Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = col.Count(ctx, Filter{"even": false}, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestAliases(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "items")
	ctx := context.Background()

	ins, err := col.Insert(ctx, []api.Document{{"_id": "a", "k": 1}, {"_id": "b", "k": 1}, {"_id": "c", "k": 2}}, nil)
	require.NoError(t, err)
	assert.Len(t, ins.InsertedIDs, 3)

	upd, err := col.Update(ctx, Filter{"k": 1}, Update{"seen": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, upd.ModifiedCount)

	fu, err := col.FindOneAndUpdate(ctx, Filter{"_id": "c"}, Update{"$set": map[string]interface{}{"k": 3}}, &UpdateOptions{ReturnDocument: After})
	require.NoError(t, err)
	assert.Equal(t, 3, fu.Value["k"])

	fd, err := col.FindOneAndDelete(ctx, Filter{"_id": "c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", fd.Value.ID())

	fr, err := col.FindOneAndRemove(ctx, Filter{"_id": "c"}, nil)
	require.NoError(t, err)
	assert.False(t, fr.Acknowledged)

	rm, err := col.Remove(ctx, Filter{"seen": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rm.DeletedCount)
}

func TestUnsupportedOperations(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "items", api.Document{"_id": "a"})
	ctx := context.Background()

	_, err := col.Aggregate(ctx, []interface{}{map[string]interface{}{"$match": map[string]interface{}{}}})
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))

	_, err = col.Find(Filter{"a": 1}, &FindOptions{Collation: &Collation{Locale: "en"}})
	assert.True(t, IsUnsupported(err))

	_, err = col.DeleteOne(ctx, Filter{"a": 1}, &DeleteOptions{Collation: &Collation{Locale: "en"}})
	assert.True(t, IsUnsupported(err))

	idx, err := col.CreateIndex(ctx, map[string]interface{}{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1}, idx)

	ok, err := col.DropIndexes(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 0, env.Requests.Count("GET"))
}

// keyedCollection stores a document whose _id is not a string under the key k5
func keyedCollection(t *testing.T, env *testEnv) *Collection {
	col := env.collection(t, "items", api.Document{"_id": "a"})
	require.NoError(t, env.Repo.Put(api.ObjectRef{"ks", "items", "k5"}, api.Document{"_id": 5, "victim": true}))
	return col
}

func TestDeleteOne_NonStringID(t *testing.T) {

	env := newTestEnv(t)
	col := keyedCollection(t, env)

	res, err := col.DeleteOne(context.Background(), Filter{"victim": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedCount)

	_, err = env.Repo.Get(api.ObjectRef{"ks", "items", "k5"})
	assert.Error(t, err)
	left, err := env.Repo.GetAll(api.ObjectRef{"ks", "items"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "a", left[0].ID)
}

func TestDeleteMany_NonStringID(t *testing.T) {

	env := newTestEnv(t)
	col := keyedCollection(t, env)

	res, err := col.DeleteMany(context.Background(), Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)

	left, err := env.Repo.GetAll(api.ObjectRef{"ks", "items"})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestUpdateOne_NonStringID(t *testing.T) {

	env := newTestEnv(t)
	col := keyedCollection(t, env)
	ctx := context.Background()

	res, err := col.UpdateOne(ctx, Filter{"victim": true}, Update{"$set": map[string]interface{}{"seen": true}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ModifiedCount)

	stored, err := env.Repo.Get(api.ObjectRef{"ks", "items", "k5"})
	require.NoError(t, err)
	assert.Equal(t, true, stored["seen"])

	other, err := env.Repo.Get(api.ObjectRef{"ks", "items", "a"})
	require.NoError(t, err)
	assert.NotContains(t, other, "seen")

	res, err = col.ReplaceOne(ctx, Filter{"victim": true}, api.Document{"name": "replaced"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ModifiedCount)

	stored, err = env.Repo.Get(api.ObjectRef{"ks", "items", "k5"})
	require.NoError(t, err)
	assert.Equal(t, "replaced", stored["name"])
	assert.NotContains(t, stored, "victim")
}

func TestPatch_EmptyID(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "items")

	_, err := documentPath("")
	assert.Error(t, err)

	_, err = col.patch(context.Background(), api.StoredDocument{Content: api.Document{"a": 1}}, Update{"a": 2})
	assert.Error(t, err)
	assert.Equal(t, 0, env.Requests.Count("PATCH"))
}

func TestReplaceOne_UpsertIDFromFilter(t *testing.T) {

	env := newTestEnv(t)
	col := env.collection(t, "users")

	res, err := col.ReplaceOne(context.Background(), Filter{"_id": "fixed"}, api.Document{"name": "x"}, &UpdateOptions{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.UpsertedID)

	stored, err := env.Repo.Get(api.ObjectRef{"ks", "users", "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "x", stored["name"])

	res, err = col.ReplaceOne(context.Background(), Filter{"_id": map[string]interface{}{"$eq": "other"}}, api.Document{"name": "y"}, &UpdateOptions{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, "other", res.UpsertedID)
}
