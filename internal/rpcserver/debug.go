package rpcserver

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
	"github.com/zkdev/anvil-node/internal/trace"
	"github.com/zkdev/anvil-node/internal/vm"
)

func (s *Server) registerDebug() {
	s.register("debug_traceTransaction", debugTraceTransaction)
	s.register("debug_traceCall", debugTraceCall)
	s.register("debug_traceBlockByNumber", debugTraceBlockByNumber)
}

type traceNodeView struct {
	Depth   int             `json:"depth"`
	Kind    string          `json:"kind"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Input   string          `json:"input"`
	Output  string          `json:"output"`
	GasUsed string          `json:"gasUsed"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Calls   []traceNodeView `json:"calls"`
}

func debugTraceTransaction(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []common.Hash
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("debug_traceTransaction requires a transaction hash")
	}
	arena, ok := n.Trace(args[0])
	if !ok {
		return nil, rpcerr.InvalidParams("no trace recorded for transaction %s", args[0].Hex())
	}
	root, ok := arena.Root()
	if !ok {
		return nil, nil
	}
	return buildTraceView(arena, root.Idx), nil
}

func buildTraceView(arena *trace.Arena, idx int) traceNodeView {
	n := arena.Nodes()[idx]
	view := traceNodeView{
		Depth: n.Depth, Kind: n.Kind.String(), From: n.From.Hex(), To: n.To.Hex(),
		Input: "0x" + hex.EncodeToString(n.Input), Output: "0x" + hex.EncodeToString(n.Output),
		GasUsed: hexUint64(n.GasUsed), Success: n.Success, Error: n.Error,
	}
	for _, childIdx := range n.Children {
		view.Calls = append(view.Calls, buildTraceView(arena, childIdx))
	}
	return view
}

// buildCallView renders a raw vm.Call tree the same shape debug_traceTransaction
// returns, for the one-off calls debug_traceCall drives that never get
// indexed into a TraceArena (the call is dropped along with its throwaway
// StateView once the response is built).
func buildCallView(call *vm.Call, depth int) traceNodeView {
	view := traceNodeView{
		Depth: depth, Kind: call.Kind.String(), From: call.From.Hex(), To: call.To.Hex(),
		Input: "0x" + hex.EncodeToString(call.Input), Output: "0x" + hex.EncodeToString(call.Output),
		GasUsed: hexUint64(call.GasUsed), Success: call.Success, Error: call.Error,
	}
	for _, child := range call.Calls {
		view.Calls = append(view.Calls, buildCallView(child, depth+1))
	}
	return view
}

func debugTraceCall(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("debug_traceCall requires a call object")
	}
	from, to, data, gas, value, errObj := decodeCallObject(args[0])
	if errObj != nil {
		return nil, errObj
	}
	result := n.Call(from, to, data, gas, value)
	if result.Call == nil {
		return nil, rpcerr.InvalidParams("call produced no trace (target has no code)")
	}
	return buildCallView(result.Call, 0), nil
}

func debugTraceBlockByNumber(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("debug_traceBlockByNumber requires a block tag")
	}
	var tag string
	_ = json.Unmarshal(args[0], &tag)
	number, err := parseBlockTag(tag, n.HeadNumber())
	if err != nil {
		return nil, rpcerr.InvalidParams("%v", err)
	}
	traces, ok := n.TraceBlock(number)
	if !ok {
		return nil, rpcerr.InvalidParams("unknown block %q", tag)
	}
	type txTraceView struct {
		TxHash string        `json:"txHash"`
		Result traceNodeView `json:"result"`
	}
	out := make([]txTraceView, 0, len(traces))
	for _, t := range traces {
		root, ok := t.Arena.Root()
		if !ok {
			continue
		}
		out = append(out, txTraceView{TxHash: t.Hash.Hex(), Result: buildTraceView(t.Arena, root.Idx)})
	}
	return out, nil
}
