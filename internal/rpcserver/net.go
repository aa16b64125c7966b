package rpcserver

import (
	"encoding/json"
	"strconv"

	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
)

func (s *Server) registerNet() {
	s.register("net_version", netVersion)
	s.register("net_listening", netListening)
}

func netVersion(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return strconv.FormatUint(n.ChainID(), 10), nil
}

func netListening(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return true, nil
}
