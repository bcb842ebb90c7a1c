package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cacheql/gqlcache/graphql"
	"github.com/cacheql/gqlcache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwarderPostsSerializedQuery(t *testing.T) {
	var gotBody wireRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{"field1":1}}`))
	}))
	defer server.Close()

	doc, err := graphql.Parse("query($id:Int!){field1(id:$id)}")
	require.NoError(t, err)

	client := New(server.URL, logger.NewNop())
	forward := client.Forwarder(nil, "Authorization", "Bearer tok")

	variables := map[string]interface{}{"id": float64(3)}
	body, op, vars, err := forward(context.Background(), doc.Operations[0], variables)
	require.NoError(t, err)

	assert.Equal(t, "query($id:Int!){field1(id:$id)}", gotBody.Query)
	assert.Equal(t, variables, gotBody.Variables)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.JSONEq(t, `{"data":{"field1":1}}`, string(body))
	assert.Same(t, doc.Operations[0], op)
	assert.Equal(t, variables, vars)
}

func TestForwarderAppendsFragments(t *testing.T) {
	var gotBody wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	doc, err := graphql.Parse("{a{...f}} fragment f on T{x}")
	require.NoError(t, err)

	client := New(server.URL, logger.NewNop())
	forward := client.Forwarder(doc.FragmentList(), "Authorization", "")

	_, _, _, err = forward(context.Background(), doc.Operations[0], nil)
	require.NoError(t, err)
	assert.Equal(t, "query{a{...f}} fragment f on T{x}", gotBody.Query)
}

func TestForwarderSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	doc, err := graphql.Parse("{a}")
	require.NoError(t, err)

	client := New(server.URL, logger.NewNop())
	forward := client.Forwarder(nil, "Authorization", "")

	_, _, _, err = forward(context.Background(), doc.Operations[0], nil)
	assert.Error(t, err)
}

func TestForwarderHonorsCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	doc, err := graphql.Parse("{a}")
	require.NoError(t, err)

	client := New(server.URL, logger.NewNop())
	forward := client.Forwarder(nil, "Authorization", "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, _, _, err = forward(ctx, doc.Operations[0], nil)
	assert.Error(t, err)
}
