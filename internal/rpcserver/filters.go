package rpcserver

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
	"github.com/zkdev/anvil-node/internal/types"
)

// filterCacheSize bounds the number of live eth_newFilter registrations;
// an operator that never calls eth_uninstallFilter evicts the oldest
// filter instead of leaking memory without limit.
const filterCacheSize = 1024

// filterState is one eth_newFilter registration: the address criteria it
// was created with, plus the block number it has delivered logs through.
type filterState struct {
	criteria  logFilter
	lastBlock uint64
}

// filterManager tracks live log filters, keyed by a google/uuid id, the
// same id shape `eth_newFilter` returns over the wire.
type filterManager struct {
	mu      sync.Mutex
	filters *lru.Cache
}

func newFilterManager() *filterManager {
	c, _ := lru.New(filterCacheSize)
	return &filterManager{filters: c}
}

func (fm *filterManager) create(criteria logFilter, head uint64) string {
	id := uuid.New().String()
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.filters.Add(id, &filterState{criteria: criteria, lastBlock: head})
	return id
}

func (fm *filterManager) get(id string) (*filterState, bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	v, ok := fm.filters.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*filterState), true
}

func (fm *filterManager) advance(id string, head uint64) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if v, ok := fm.filters.Peek(id); ok {
		v.(*filterState).lastBlock = head
	}
}

func (fm *filterManager) uninstall(id string) bool {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if !fm.filters.Contains(id) {
		return false
	}
	fm.filters.Remove(id)
	return true
}

// cursors snapshots every live filter's resume point, for config_dumpState.
func (fm *filterManager) cursors() map[string]uint64 {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	out := make(map[string]uint64, fm.filters.Len())
	for _, k := range fm.filters.Keys() {
		if v, ok := fm.filters.Peek(k); ok {
			out[k.(string)] = v.(*filterState).lastBlock
		}
	}
	return out
}

// restore reinstates filter cursors from config_loadState. The address
// criteria a filter was created with is not part of the dump format (only
// `filter_cursors` is), so a restored filter resumes matching all
// addresses rather than its original criteria.
func (fm *filterManager) restore(cursors map[string]uint64) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	for id, last := range cursors {
		fm.filters.Add(id, &filterState{lastBlock: last})
	}
}

func (s *Server) registerFilters() {
	s.register("eth_newFilter", func(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
		var args []logFilter
		if errObj := decodeParams(params, &args); errObj != nil {
			return nil, errObj
		}
		if len(args) == 0 {
			return nil, rpcerr.InvalidParams("eth_newFilter requires a filter object")
		}
		id := s.filters.create(args[0], n.HeadNumber())
		return id, nil
	})

	s.register("eth_getFilterChanges", func(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
		var args []string
		if errObj := decodeParams(params, &args); errObj != nil {
			return nil, errObj
		}
		if len(args) == 0 {
			return nil, rpcerr.InvalidParams("eth_getFilterChanges requires a filter id")
		}
		st, ok := s.filters.get(args[0])
		if !ok {
			return nil, rpcerr.InvalidParams("unknown filter id %q", args[0])
		}
		head := n.HeadNumber()
		logs := scanFilter(n, st.criteria, st.lastBlock+1, head)
		s.filters.advance(args[0], head)
		return toLogViews(logs), nil
	})

	s.register("eth_getFilterLogs", func(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
		var args []string
		if errObj := decodeParams(params, &args); errObj != nil {
			return nil, errObj
		}
		if len(args) == 0 {
			return nil, rpcerr.InvalidParams("eth_getFilterLogs requires a filter id")
		}
		st, ok := s.filters.get(args[0])
		if !ok {
			return nil, rpcerr.InvalidParams("unknown filter id %q", args[0])
		}
		logs := scanFilter(n, st.criteria, 0, n.HeadNumber())
		return toLogViews(logs), nil
	})

	s.register("eth_uninstallFilter", func(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
		var args []string
		if errObj := decodeParams(params, &args); errObj != nil {
			return nil, errObj
		}
		if len(args) == 0 {
			return nil, rpcerr.InvalidParams("eth_uninstallFilter requires a filter id")
		}
		return s.filters.uninstall(args[0]), nil
	})
}

func scanFilter(n *node.Node, criteria logFilter, from, to uint64) []types.Log {
	if from > to {
		return nil
	}
	return n.Logs(from, to, addressSet(criteria.Address))
}

func toLogViews(logs []types.Log) []logView {
	out := make([]logView, len(logs))
	for i, l := range logs {
		out[i] = toLogView(l)
	}
	return out
}

// addressSet builds the address membership set eth_getLogs/filters match
// against; an empty criteria matches every address.
func addressSet(addrs []common.Address) map[common.Address]struct{} {
	if len(addrs) == 0 {
		return nil
	}
	out := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		out[a] = struct{}{}
	}
	return out
}
