// Package rpcserver is a thin JSON-RPC 2.0 HTTP adapter over
// internal/node: it holds no business logic of its own beyond decoding
// params, calling a Node operation, and marshaling the result or mapping
// an error onto the rpcerr taxonomy.
package rpcserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/cors"

	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
)

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response object; exactly one of Result/Error
// is populated.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcerr.Error   `json:"error,omitempty"`
}

// HandlerFunc decodes raw params and returns a result or a structured
// rpcerr.Error.
type HandlerFunc func(n *node.Node, params json.RawMessage) (any, *rpcerr.Error)

// Server is the JSON-RPC HTTP adapter, built once at startup from a fixed
// method table (no reflection-based codec generation).
type Server struct {
	n        *node.Node
	methods  map[string]HandlerFunc
	log      *log.Logger
	handler  http.Handler
	filters  *filterManager
	hub      *subscriptionHub
}

// New builds a Server with every namespace's handlers registered and CORS
// configured from corsOrigins.
func New(n *node.Node, corsOrigins []string) *Server {
	s := &Server{
		n: n, methods: make(map[string]HandlerFunc), log: log.New("component", "rpcserver"),
		filters: newFilterManager(), hub: newSubscriptionHub(n),
	}
	s.registerEth()
	s.registerNet()
	s.registerWeb3()
	s.registerZks()
	s.registerAnvil()
	s.registerConfig()
	s.registerDebug()
	s.registerFilters()

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveJSONRPC)
	mux.HandleFunc("/health", s.serveHealth)
	mux.HandleFunc("/ws", s.hub.serveWS)

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(mux)
	return s
}

// ListenAndServe blocks serving HTTP on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("rpc server listening", "addr", addr)
	return http.ListenAndServe(addr, s.handler)
}

// Handler returns the assembled http.Handler, for tests and for embedding
// in a custom http.Server.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) register(method string, h HandlerFunc) {
	s.methods[method] = h
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	result, errObj := s.methods["web3_clientVersion"](s.n, nil)
	if errObj != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) serveJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, Response{JSONRPC: "2.0", Error: rpcerr.InvalidParams("malformed request body: %v", err)})
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		writeJSON(w, Response{JSONRPC: "2.0", ID: req.ID, Error: rpcerr.Unsupported(req.Method)})
		return
	}

	result, errObj := handler(s.n, req.Params)
	if errObj != nil {
		s.log.Debug("rpc call failed", "method", req.Method, "err", errObj)
		writeJSON(w, Response{JSONRPC: "2.0", ID: req.ID, Error: errObj})
		return
	}
	writeJSON(w, Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// decodeParams decodes a JSON-RPC params array/object into v, treating an
// empty params value as a no-op.
func decodeParams(params json.RawMessage, v any) *rpcerr.Error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return rpcerr.InvalidParams("invalid params: %v", err)
	}
	return nil
}
