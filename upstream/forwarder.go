// Package upstream posts serialized GraphQL operations to the origin
// server over a pooled HTTP client. The client's Authorization header
// travels with every forwarded request.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cacheql/gqlcache/cachehandler"
	"github.com/cacheql/gqlcache/graphql"
	"github.com/cacheql/gqlcache/logger"
	"github.com/pkg/errors"
)

// Client forwards operations to one upstream endpoint. The underlying
// http.Client pools connections and is safe for concurrent use.
type Client struct {
	url  string
	http *http.Client
	log  logger.Logger
}

// New creates a forwarder client for the given endpoint.
func New(url string, log logger.Logger) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

type wireRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Forwarder binds the client to one request's fragments and authorization
// header, producing the function the cache handler invokes for the
// residual query.
func (c *Client) Forwarder(fragments []*graphql.FragmentDefinition, authHeaderName, authHeaderValue string) cachehandler.Forwarder {
	return func(ctx context.Context, op *graphql.Operation, variables map[string]interface{}) ([]byte, *graphql.Operation, map[string]interface{}, error) {
		body, err := c.send(ctx, op, fragments, variables, authHeaderName, authHeaderValue)
		return body, op, variables, err
	}
}

func (c *Client) send(ctx context.Context, op *graphql.Operation, fragments []*graphql.FragmentDefinition, variables map[string]interface{}, authHeaderName, authHeaderValue string) ([]byte, error) {
	query := graphql.SerializeDocument(op, fragments)

	payload, err := json.Marshal(wireRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, errors.Wrap(err, "encoding upstream request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building upstream request")
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeaderValue != "" {
		req.Header.Set(authHeaderName, authHeaderValue)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "posting upstream query")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading upstream response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("upstream returned status %d", resp.StatusCode)
	}

	c.log.Debug("forwarded query upstream", "bytes", len(body), "elapsed", time.Since(start).String())
	return body, nil
}
