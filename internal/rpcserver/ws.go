package rpcserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zkdev/anvil-node/internal/event"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/node"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscriptionHub is the WebSocket transport for eth_subscribe /
// eth_unsubscribe ("newHeads", "logs"): one connection, any number of
// live subscriptions, each forwarding from blockproducer's event.Feed.
type subscriptionHub struct {
	n   *node.Node
	log *log.Logger
}

func newSubscriptionHub(n *node.Node) *subscriptionHub {
	return &subscriptionHub{n: n, log: log.New("component", "rpcserver-ws")}
}

type wsRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type wsSubscriptionParams struct {
	Subscription string `json:"subscription"`
	Result       any    `json:"result"`
}

type wsNotification struct {
	JSONRPC string               `json:"jsonrpc"`
	Method  string               `json:"method"`
	Params  wsSubscriptionParams `json:"params"`
}

type wsResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

// serveWS upgrades the connection and runs its subscribe/unsubscribe loop
// until the client disconnects, tearing down every live subscription.
func (h *subscriptionHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	subs := make(map[string]event.Subscription)
	done := make(chan struct{})
	defer func() {
		close(done)
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		switch req.Method {
		case "eth_subscribe":
			id := h.subscribe(conn, &writeMu, subs, req.Params, done)
			writeJSONWS(conn, &writeMu, wsResponse{JSONRPC: "2.0", ID: req.ID, Result: id})
		case "eth_unsubscribe":
			var id string
			if len(req.Params) > 0 {
				_ = json.Unmarshal(req.Params[0], &id)
			}
			sub, ok := subs[id]
			if ok {
				sub.Unsubscribe()
				delete(subs, id)
			}
			writeJSONWS(conn, &writeMu, wsResponse{JSONRPC: "2.0", ID: req.ID, Result: ok})
		default:
			writeJSONWS(conn, &writeMu, wsResponse{JSONRPC: "2.0", ID: req.ID, Result: nil})
		}
	}
}

func (h *subscriptionHub) subscribe(conn *websocket.Conn, writeMu *sync.Mutex, subs map[string]event.Subscription, params []json.RawMessage, done <-chan struct{}) string {
	var kind string
	if len(params) > 0 {
		_ = json.Unmarshal(params[0], &kind)
	}
	id := uuid.New().String()
	switch kind {
	case "newHeads":
		ch := make(chan event.ChainHeadEvent, 16)
		subs[id] = h.n.Producer.SubscribeChainHead(ch)
		go h.pumpHeads(conn, writeMu, id, ch, done)
	case "logs":
		ch := make(chan event.LogsEvent, 16)
		subs[id] = h.n.Producer.SubscribeLogs(ch)
		go h.pumpLogs(conn, writeMu, id, ch, done)
	default:
		return ""
	}
	return id
}

// pumpHeads forwards ChainHeadEvents until done is closed (connection
// teardown); it never exits on a closed-but-still-fed ch, since Feed
// removes the subscriber from its send set but never closes the channel.
func (h *subscriptionHub) pumpHeads(conn *websocket.Conn, writeMu *sync.Mutex, id string, ch chan event.ChainHeadEvent, done <-chan struct{}) {
	for {
		select {
		case ev := <-ch:
			writeJSONWS(conn, writeMu, wsNotification{
				JSONRPC: "2.0", Method: "eth_subscription",
				Params: wsSubscriptionParams{Subscription: id, Result: toBlockView(ev.Block)},
			})
		case <-done:
			return
		}
	}
}

func (h *subscriptionHub) pumpLogs(conn *websocket.Conn, writeMu *sync.Mutex, id string, ch chan event.LogsEvent, done <-chan struct{}) {
	for {
		select {
		case ev := <-ch:
			for _, l := range ev.Logs {
				writeJSONWS(conn, writeMu, wsNotification{
					JSONRPC: "2.0", Method: "eth_subscription",
					Params: wsSubscriptionParams{Subscription: id, Result: toLogView(l)},
				})
			}
		case <-done:
			return
		}
	}
}

func writeJSONWS(conn *websocket.Conn, mu *sync.Mutex, v any) {
	mu.Lock()
	defer mu.Unlock()
	_ = conn.WriteJSON(v)
}
