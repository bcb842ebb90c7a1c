package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Subscriptions are forwarded opaquely: the proxy upgrades the client
// connection, dials the upstream's websocket endpoint with the caller's
// authorization header, and pumps frames in both directions until either
// side closes. No parsing, caching, or rewriting happens on this path.

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	Subprotocols:    []string{"graphql-ws", "graphql-transport-ws"},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) proxySubscription(w http.ResponseWriter, r *http.Request) {
	target, err := websocketURL(s.cfg.UpstreamURL)
	if err != nil {
		s.log.Error("invalid upstream url for subscription", "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	header := http.Header{}
	if auth := r.Header.Get(s.cfg.OIDCTokenHeader); auth != "" {
		header.Set(s.cfg.OIDCTokenHeader, auth)
	}
	if protocol := r.Header.Get("Sec-WebSocket-Protocol"); protocol != "" {
		header.Set("Sec-WebSocket-Protocol", protocol)
	}

	origin, resp, err := websocket.DefaultDialer.DialContext(r.Context(), target, header)
	if err != nil {
		s.log.Error("dialing upstream subscription endpoint failed", "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	if resp != nil {
		defer resp.Body.Close()
	}

	client, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		origin.Close()
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.log.Info("proxying subscription", "upstream", target)
	go pumpFrames(client, origin)
	pumpFrames(origin, client)
}

// pumpFrames copies messages from src to dst until either side fails,
// then closes both so the sibling pump unblocks.
func pumpFrames(dst, src *websocket.Conn) {
	defer dst.Close()
	defer src.Close()
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			return
		}
		if err := dst.WriteMessage(messageType, message); err != nil {
			return
		}
	}
}

// websocketURL rewrites the upstream HTTP endpoint to its websocket
// scheme.
func websocketURL(upstreamURL string) (string, error) {
	u, err := url.Parse(upstreamURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}
