package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/vm"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestBuildPreservesLogCallInterleaving(t *testing.T) {
	inner := &vm.Call{From: addr(1), To: addr(2), Success: true}
	root := &vm.Call{
		From: addr(0), To: addr(1), Success: true,
		Logs:  []vm.Log{{Address: addr(1)}, {Address: addr(1)}},
		Calls: []*vm.Call{inner},
		Ordering: []vm.OrderEntry{
			{Kind: vm.MemberLog, Index: 0},
			{Kind: vm.MemberCall, Index: 0},
			{Kind: vm.MemberLog, Index: 1},
		},
	}

	a := Build(root)
	nodes := a.Nodes()
	assert.Len(t, nodes, 2)

	rootNode := nodes[0]
	assert.Equal(t, []Ordering{
		{Kind: MemberLog, Index: 0},
		{Kind: MemberCall, Index: 0},
		{Kind: MemberLog, Index: 1},
	}, rootNode.Ordering)
	assert.Equal(t, []int{1}, rootNode.Children)
	assert.NotNil(t, nodes[1].Parent)
	assert.Equal(t, 0, *nodes[1].Parent)
}

func TestBuildFilteredSplicesSkippedCalls(t *testing.T) {
	system := addr(9)
	leaf := &vm.Call{From: system, To: addr(3), Success: true, Logs: []vm.Log{{Address: addr(3)}},
		Ordering: []vm.OrderEntry{{Kind: vm.MemberLog, Index: 0}}}
	skipped := &vm.Call{From: addr(1), To: system, Success: true, Calls: []*vm.Call{leaf},
		Ordering: []vm.OrderEntry{{Kind: vm.MemberCall, Index: 0}}}
	root := &vm.Call{From: addr(0), To: addr(1), Success: true, Calls: []*vm.Call{skipped},
		Ordering: []vm.OrderEntry{{Kind: vm.MemberCall, Index: 0}}}

	skip := NewSkipSet(system)
	a := BuildFiltered(root, skip)

	// the skipped call never gets its own node: root -> leaf directly
	assert.Len(t, a.Nodes(), 2)
	assert.Equal(t, addr(3), a.Nodes()[1].To)
	assert.Equal(t, []int{1}, a.Nodes()[0].Children)
}

func TestSkipSetNilIsSafe(t *testing.T) {
	var s *SkipSet
	assert.False(t, s.Skip(addr(1)))
}
