package trace

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/vm"
)

// SkipSet names addresses (predeployed system/precompile contracts) whose
// calls should still execute but not surface as their own arena nodes.
// Config seeds this from internal/config.PredeployAddresses.
type SkipSet struct {
	addrs mapset.Set[common.Address]
}

// NewSkipSet builds a SkipSet from the given addresses.
func NewSkipSet(addrs ...common.Address) *SkipSet {
	return &SkipSet{addrs: mapset.NewSet(addrs...)}
}

// Skip reports whether addr's calls should be collapsed into their
// parent rather than appearing as their own node.
func (s *SkipSet) Skip(addr common.Address) bool {
	if s == nil || s.addrs == nil {
		return false
	}
	return s.addrs.Contains(addr)
}

// BuildFiltered is like Build but collapses any node whose To address is
// in skip into its parent: the node's own logs and children are spliced
// into the parent's ordering in place, preserving emission order.
func BuildFiltered(root *vm.Call, skip *SkipSet) *Arena {
	a := &Arena{}
	a.pushNodeFiltered(root, nil, 0, skip)
	return a
}
