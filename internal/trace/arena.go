// Package trace flattens the VM's recursive Call tree into an
// index-linked arena: parent/children are slice indices, never pointers,
// so the arena can be serialized and walked without cycles by
// construction.
package trace

import (
	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/vm"
)

// MemberKind mirrors vm.MemberKind at the arena layer, distinguishing a
// sibling log emission from a sibling nested call.
type MemberKind = vm.MemberKind

const (
	MemberLog  = vm.MemberLog
	MemberCall = vm.MemberCall
)

// Ordering is one entry in a node's emission sequence.
type Ordering struct {
	Kind  MemberKind
	Index int // index into that node's Logs (MemberLog) or Children (MemberCall)
}

// Decoded is optional label/signature/args/return-value annotation a
// decoder (ABI-aware, out of scope here) may attach later.
type Decoded struct {
	Label     string
	Signature string
	Args      []string
	Return    string
}

// Node is a single arena entry: a call plus its position in the tree.
type Node struct {
	Parent   *int // nil for the root
	Children []int
	Idx      int
	Depth    int

	Kind    vm.CallKind
	From    common.Address
	To      common.Address
	Input   []byte
	Output  []byte
	GasUsed uint64
	Success bool
	Error   string

	Logs     []vm.Log
	Ordering []Ordering
	Decoded  *Decoded
}

// Arena is a flat, append-only store of Nodes built from one VM Call tree.
type Arena struct {
	nodes []Node
}

// Nodes returns the arena's nodes in index order (index 0 is the root).
func (a *Arena) Nodes() []Node { return a.nodes }

// Root returns the root node, or false if the arena is empty.
func (a *Arena) Root() (Node, bool) {
	if len(a.nodes) == 0 {
		return Node{}, false
	}
	return a.nodes[0], true
}

// Build flattens a VM call tree (as produced by EVM.Call/EVM.Create) into
// a fresh Arena, root first, depth-first in call order.
func Build(root *vm.Call) *Arena {
	a := &Arena{}
	a.push(root, nil, 0)
	return a
}

// spliceFiltered walks call's own ordering, attaching its logs and
// (recursively filtered) subcalls onto parentIdx instead of creating a
// node for call itself. Returns parentIdx so the caller's bookkeeping
// (which expects a child index) still has something valid to record,
// though callers splicing a skipped call discard it immediately.
func (a *Arena) spliceFiltered(call *vm.Call, parentIdx, depth int, skip *SkipSet) int {
	for _, entry := range call.Ordering {
		if entry.Kind == vm.MemberLog {
			logIdx := len(a.nodes[parentIdx].Logs)
			a.nodes[parentIdx].Logs = append(a.nodes[parentIdx].Logs, call.Logs[entry.Index])
			a.nodes[parentIdx].Ordering = append(a.nodes[parentIdx].Ordering, Ordering{Kind: MemberLog, Index: logIdx})
			continue
		}
		sub := call.Calls[entry.Index]
		if skip.Skip(sub.To) {
			a.spliceFiltered(sub, parentIdx, depth, skip)
			continue
		}
		childIdx := a.pushNodeFiltered(sub, &parentIdx, depth, skip)
		a.nodes[parentIdx].Children = append(a.nodes[parentIdx].Children, childIdx)
		a.nodes[parentIdx].Ordering = append(a.nodes[parentIdx].Ordering, Ordering{Kind: MemberCall, Index: len(a.nodes[parentIdx].Children) - 1})
	}
	return parentIdx
}

func (a *Arena) pushNodeFiltered(call *vm.Call, parent *int, depth int, skip *SkipSet) int {
	idx := len(a.nodes)
	a.nodes = append(a.nodes, Node{
		Parent: parent, Idx: idx, Depth: depth,
		Kind: call.Kind, From: call.From, To: call.To,
		Input: call.Input, Output: call.Output,
		GasUsed: call.GasUsed, Success: call.Success, Error: call.Error,
	})

	for _, entry := range call.Ordering {
		if entry.Kind == vm.MemberLog {
			a.nodes[idx].Ordering = append(a.nodes[idx].Ordering, Ordering{Kind: MemberLog, Index: len(a.nodes[idx].Logs)})
			a.nodes[idx].Logs = append(a.nodes[idx].Logs, call.Logs[entry.Index])
			continue
		}
		sub := call.Calls[entry.Index]
		if skip.Skip(sub.To) {
			a.spliceFiltered(sub, idx, depth, skip)
			continue
		}
		childIdx := a.pushNodeFiltered(sub, &idx, depth+1, skip)
		a.nodes[idx].Children = append(a.nodes[idx].Children, childIdx)
		a.nodes[idx].Ordering = append(a.nodes[idx].Ordering, Ordering{Kind: MemberCall, Index: len(a.nodes[idx].Children) - 1})
	}
	return idx
}

func (a *Arena) push(call *vm.Call, parent *int, depth int) int {
	idx := len(a.nodes)
	node := Node{
		Parent:  parent,
		Idx:     idx,
		Depth:   depth,
		Kind:    call.Kind,
		From:    call.From,
		To:      call.To,
		Input:   call.Input,
		Output:  call.Output,
		GasUsed: call.GasUsed,
		Success: call.Success,
		Error:   call.Error,
		Logs:    call.Logs,
	}
	a.nodes = append(a.nodes, node)

	ordering := make([]Ordering, 0, len(call.Ordering))
	for _, entry := range call.Ordering {
		if entry.Kind == vm.MemberLog {
			ordering = append(ordering, Ordering{Kind: MemberLog, Index: entry.Index})
			continue
		}
		childIdx := a.push(call.Calls[entry.Index], &idx, depth+1)
		a.nodes[idx].Children = append(a.nodes[idx].Children, childIdx)
		ordering = append(ordering, Ordering{Kind: MemberCall, Index: len(a.nodes[idx].Children) - 1})
	}
	a.nodes[idx].Ordering = ordering

	return idx
}
