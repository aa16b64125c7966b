package rpcserver

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
)

// registerConfig wires the config_* namespace: runtime trace verbosity
// plus the state dump/load pair.
func (s *Server) registerConfig() {
	s.register("config_setShowCalls", configSetShowCalls)
	s.register("config_getShowCalls", configGetShowCalls)
	s.register("config_dumpState", func(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
		raw, err := n.DumpState(s.filters.cursors())
		if err != nil {
			return nil, rpcerr.Internal(fmt.Sprintf("dumping state: %v", err))
		}
		return "0x" + hex.EncodeToString(raw), nil
	})
	s.register("config_loadState", func(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
		var args []string
		if errObj := decodeParams(params, &args); errObj != nil {
			return nil, errObj
		}
		if len(args) == 0 {
			return nil, rpcerr.InvalidParams("config_loadState requires a dumped state payload")
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		if err != nil {
			return nil, rpcerr.InvalidParams("invalid hex payload: %v", err)
		}
		cursors, err := n.LoadState(raw)
		if err != nil {
			return nil, rpcerr.InvalidParams("loading state: %v", err)
		}
		s.filters.restore(cursors)
		return true, nil
	})
}

var showCalls string = "none"

func configSetShowCalls(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []string
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("config_setShowCalls requires a verbosity level")
	}
	switch args[0] {
	case "none", "user", "system", "all":
		showCalls = args[0]
	default:
		return nil, rpcerr.InvalidParams("unknown show-calls level %q", args[0])
	}
	log.Root().Info("trace verbosity changed", "show_calls", showCalls)
	return true, nil
}

func configGetShowCalls(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return showCalls, nil
}
