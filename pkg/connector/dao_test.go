package connector

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/restconnector/internal/mockapi"
)

const crudConfig = `
connector:
  base_url: "{{URL}}/api"
  retry_backoff: 1ms
models:
  - name: User
`

func newTestDAO(t *testing.T) (*Connector, *mockapi.Server) {
	t.Helper()
	c, srv := newTestConnector(t, crudConfig)
	require.Equal(t, []string{"User"}, c.Models())
	return c, srv
}

func TestDAO_CreateFindExists(t *testing.T) {
	c, srv := newTestDAO(t)
	ctx := context.Background()

	id, err := c.Create(ctx, "User", map[string]any{"name": "Ray", "nickname": nil})
	require.NoError(t, err)
	require.NotNil(t, id)

	last, _ := srv.LastRequest()
	assert.Equal(t, "/api/users", last.Path)
	body, err := last.JSON()
	require.NoError(t, err)
	assert.NotContains(t, body, "nickname")

	record, err := c.Find(ctx, "User", id)
	require.NoError(t, err)
	assert.Equal(t, "Ray", record.(map[string]any)["name"])

	exists, err := c.Exists(ctx, "User", id)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.Exists(ctx, "User", 999)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = c.Find(ctx, "User", 999)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestDAO_SaveAndUpdate(t *testing.T) {
	c, srv := newTestDAO(t)
	ctx := context.Background()
	srv.Seed("users", map[string]any{"id": float64(1), "name": "Ray"})

	saved, err := c.Save(ctx, "User", map[string]any{"id": 1, "name": "Raymond"})
	require.NoError(t, err)
	assert.Equal(t, "Raymond", saved.(map[string]any)["name"])

	updated, err := c.UpdateAttributes(ctx, "User", 1, map[string]any{"name": "Rae"})
	require.NoError(t, err)
	assert.Equal(t, "Rae", updated.(map[string]any)["name"])
	last, _ := srv.LastRequest()
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "/api/users/1", last.Path)

	record, err := c.UpdateOrCreate(ctx, "User", map[string]any{"id": 1, "name": "Ray"})
	require.NoError(t, err)
	assert.Equal(t, "Ray", record["name"])
	assert.Len(t, srv.Records("users"), 1)

	record, err = c.UpdateOrCreate(ctx, "User", map[string]any{"id": 7, "name": "Joe"})
	require.NoError(t, err)
	assert.Equal(t, float64(7), record["id"])
	assert.Len(t, srv.Records("users"), 2)

	record, err = c.UpdateOrCreate(ctx, "User", map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.NotNil(t, record["id"])
	assert.Len(t, srv.Records("users"), 3)
}

func TestDAO_All(t *testing.T) {
	c, srv := newTestDAO(t)
	ctx := context.Background()
	for i, name := range []string{"Ray", "Joe", "Ann", "Joe"} {
		srv.Seed("users", map[string]any{"id": float64(i + 1), "name": name})
	}

	t.Run("find by id shortcut", func(t *testing.T) {
		records, err := c.All(ctx, "User", Filter{Where: map[string]any{"id": 2}, Limit: 1})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Joe", records[0].(map[string]any)["name"])

		last, _ := srv.LastRequest()
		assert.Equal(t, "/api/users/2", last.Path)
	})

	t.Run("where", func(t *testing.T) {
		records, err := c.All(ctx, "User", Filter{Where: map[string]any{"name": "Joe"}})
		require.NoError(t, err)
		assert.Len(t, records, 2)

		last, _ := srv.LastRequest()
		assert.Equal(t, "/api/users", last.Path)
		assert.Equal(t, "Joe", last.Query.Get("where[name]"))
	})

	t.Run("paging", func(t *testing.T) {
		records, err := c.All(ctx, "User", Filter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Joe", records[0].(map[string]any)["name"])
		assert.Equal(t, "Ann", records[1].(map[string]any)["name"])
	})

	t.Run("id with order is a query", func(t *testing.T) {
		_, err := c.All(ctx, "User", Filter{Where: map[string]any{"id": 2}, Limit: 1, Order: []string{"name"}})
		require.NoError(t, err)
		last, _ := srv.LastRequest()
		assert.Equal(t, "/api/users", last.Path)
		assert.Equal(t, "name", last.Query.Get("order"))
	})
}

func TestDAO_Destroy(t *testing.T) {
	c, srv := newTestDAO(t)
	ctx := context.Background()
	srv.Seed("users", map[string]any{"id": float64(1)})
	srv.Seed("users", map[string]any{"id": float64(2)})
	srv.Seed("users", map[string]any{"id": float64(3)})

	_, err := c.Destroy(ctx, "User", 1)
	require.NoError(t, err)
	assert.Len(t, srv.Records("users"), 2)

	_, err = c.DestroyAll(ctx, "User", map[string]any{"id": 2})
	require.NoError(t, err)
	assert.Len(t, srv.Records("users"), 1)

	res, err := c.DestroyAll(ctx, "User", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(1)}, res)
	assert.Empty(t, srv.Records("users"))
}

func TestDAO_Errors(t *testing.T) {
	c, srv := newTestDAO(t)
	ctx := context.Background()

	_, err := c.Count(ctx, "User", nil)
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = c.Find(ctx, "Order", 1)
	assert.ErrorIs(t, err, ErrUnknownModel)

	srv.SetResponse(http.MethodGet, "/api/users/5", mockapi.Response{StatusCode: http.StatusNoContent})
	_, err = c.Find(ctx, "User", 5)
	var unexpected *UnexpectedStatusError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, http.StatusNoContent, unexpected.StatusCode)
	assert.Equal(t, "find", unexpected.Op)

	srv.SetResponse(http.MethodGet, "/api/users/6", mockapi.ServerError())
	_, err = c.Exists(ctx, "User", 6)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestDefine_ResourceName(t *testing.T) {
	c, srv := newTestConnector(t, crudConfig)
	c.Define("Person", "people")
	srv.Seed("people", map[string]any{"id": float64(1), "name": "Ray"})

	record, err := c.Find(context.Background(), "Person", 1)
	require.NoError(t, err)
	assert.Equal(t, "Ray", record.(map[string]any)["name"])
}

func TestCRUDDisabledWithOperations(t *testing.T) {
	c, _ := newTestConnector(t, usersConfig+`
models:
  - name: User
`)
	assert.Empty(t, c.Models())
}

func TestPreProcess(t *testing.T) {
	in := map[string]any{"a": 1, "b": nil, "c": ""}
	assert.Equal(t, map[string]any{"a": 1, "c": ""}, PreProcess(in))
	assert.Len(t, in, 3)
}
