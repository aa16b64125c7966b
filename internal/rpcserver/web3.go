package rpcserver

import (
	"encoding/json"

	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
)

const clientVersion = "zkSync/v2.0"

func (s *Server) registerWeb3() {
	s.register("web3_clientVersion", web3ClientVersion)
}

func web3ClientVersion(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return clientVersion, nil
}
