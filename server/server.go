// Package server is the HTTP face of the proxy: it decodes GraphQL POST
// bodies, resolves the caller identity, drives the cache handler, and
// writes the JSON response. Subscriptions arriving as websocket upgrades
// are proxied to the upstream opaquely.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cacheql/gqlcache/auth"
	"github.com/cacheql/gqlcache/cachehandler"
	"github.com/cacheql/gqlcache/config"
	"github.com/cacheql/gqlcache/graphql"
	"github.com/cacheql/gqlcache/graphqlerr"
	"github.com/cacheql/gqlcache/logger"
	"github.com/cacheql/gqlcache/upstream"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server wires the request pipeline together.
type Server struct {
	cfg           *config.Config
	handler       *cachehandler.Handler
	authenticator auth.Authenticator
	upstream      *upstream.Client
	log           logger.Logger

	// end is closed by GET /end to request a graceful stop.
	end     chan struct{}
	endOnce sync.Once
}

// New assembles a server from its collaborators.
func New(cfg *config.Config, handler *cachehandler.Handler, authenticator auth.Authenticator, upstreamClient *upstream.Client, log logger.Logger) *Server {
	return &Server{
		cfg:           cfg,
		handler:       handler,
		authenticator: authenticator,
		upstream:      upstreamClient,
		log:           log,
		end:           make(chan struct{}),
	}
}

// Routes returns the HTTP handler: POST /hello for queries and GET /end
// for shutdown.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", s.handleQuery)
	mux.HandleFunc("/end", s.handleEnd)
	return mux
}

// ListenAndServe serves until the context is cancelled or GET /end
// arrives, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.Routes()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.log.Info("listening", "addr", s.cfg.ListenAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.end:
		s.log.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

type postBody struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

type httpResponse struct {
	Data   interface{} `json:"data,omitempty"`
	Errors []string    `json:"errors,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.proxySubscription(w, r)
		return
	}

	requestID := uuid.NewString()
	start := time.Now()

	writeError := func(err error) {
		kind := graphqlerr.KindOf(err)
		switch kind {
		case graphqlerr.KindParse, graphqlerr.KindFragment:
			s.log.Warn("rejecting query", "request_id", requestID, "kind", kind.String(), "error", err)
		default:
			s.log.Error("query failed", "request_id", requestID, "kind", kind.String(), "error", err)
		}
		writeJSON(w, httpResponse{Errors: []string{err.Error()}})
	}

	if r.Method != http.MethodPost {
		http.Error(w, "request must be a POST", http.StatusMethodNotAllowed)
		return
	}

	var body postBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "request must include a JSON body with a query", http.StatusBadRequest)
		return
	}

	doc, err := graphql.Parse(body.Query)
	if err != nil {
		writeError(err)
		return
	}
	op, err := doc.SelectOperation(body.OperationName)
	if err != nil {
		writeError(err)
		return
	}

	authValue := r.Header.Get(s.cfg.OIDCTokenHeader)
	userID := ""
	if identity, ok := s.authenticator.Authenticate(authValue); ok {
		userID = identity.Subject
	}

	forward := s.upstream.Forwarder(doc.FragmentList(), s.cfg.OIDCTokenHeader, authValue)
	result, err := s.handler.Execute(r.Context(), op, doc.Fragments, body.Variables, userID, forward)
	if err != nil {
		writeError(err)
		return
	}

	s.log.Info("served query",
		"request_id", requestID,
		"operation", op.Type.String(),
		"forwarded", result.Forwarded,
		"authenticated", userID != "",
		"elapsed", time.Since(start).String(),
	)
	writeJSON(w, result.Response)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("bye"))
	s.endOnce.Do(func() { close(s.end) })
}

func writeJSON(w http.ResponseWriter, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}
