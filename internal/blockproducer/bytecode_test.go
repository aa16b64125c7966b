package blockproducer

import "github.com/zkdev/anvil-node/internal/vm"

// asm is a minimal two-pass assembler for the embedded VM's bytecode
// format: it lets a test write a forward branch by label instead of
// hand-counting byte offsets, which the VM's PUSH1-sized jump dests don't
// forgive.
type asm struct {
	code    []byte
	labels  map[string]int
	pending []pendingRef
}

type pendingRef struct {
	pos   int
	label string
}

func newAsm() *asm { return &asm{labels: map[string]int{}} }

func (a *asm) op(code vm.OpCode) *asm {
	a.code = append(a.code, byte(code))
	return a
}

func (a *asm) push1(v byte) *asm {
	a.code = append(a.code, byte(vm.PUSH1), v)
	return a
}

func (a *asm) push32(v [32]byte) *asm {
	a.code = append(a.code, byte(vm.PUSH32))
	a.code = append(a.code, v[:]...)
	return a
}

// dup2 duplicates the second-from-top stack item; only DUP1 and DUP16 are
// named constants, the range between is still valid opcode space.
func (a *asm) dup2() *asm { return a.op(vm.OpCode(byte(vm.DUP1) + 1)) }

func (a *asm) label(name string) *asm {
	a.labels[name] = len(a.code)
	return a
}

// pushLabel emits a PUSH1 whose operand is patched to name's final byte
// offset once the whole program has been assembled.
func (a *asm) pushLabel(name string) *asm {
	a.code = append(a.code, byte(vm.PUSH1), 0)
	a.pending = append(a.pending, pendingRef{pos: len(a.code) - 1, label: name})
	return a
}

func (a *asm) bytes() []byte {
	out := append([]byte(nil), a.code...)
	for _, p := range a.pending {
		dest, ok := a.labels[p.label]
		if !ok {
			panic("asm: undefined label " + p.label)
		}
		if dest > 0xff {
			panic("asm: label offset too large for PUSH1")
		}
		out[p.pos] = byte(dest)
	}
	return out
}

// counterRuntime is the deployed bytecode for a single storage-slot
// counter: empty calldata reads slot 0 (get), non-empty calldata adds the
// first calldata word to slot 0 and returns the new value (increment).
func counterRuntime() []byte {
	a := newAsm()

	// if calldatasize == 0, jump to get(); falls through to increment().
	a.op(vm.CALLDATASIZE).
		op(vm.ISZERO).
		pushLabel("get").
		op(vm.SWAP1). // stack: [dest, cond], matching JUMPI's pop2 order
		op(vm.JUMPI)

	// increment(amount): slot0 += calldata[0:32]; return slot0
	a.push1(0).
		op(vm.CALLDATALOAD). // amount
		push1(0).
		op(vm.SLOAD). // current
		op(vm.ADD).   // new = amount + current
		push1(0).
		dup2().
		op(vm.SSTORE). // slot0 = new
		push1(0).
		op(vm.SWAP1).
		op(vm.MSTORE). // mem[0:32] = new
		push1(0).
		push1(0x20).
		op(vm.RETURN)

	a.label("get").
		op(vm.JUMPDEST).
		push1(0).
		op(vm.SLOAD).
		push1(0).
		op(vm.SWAP1).
		op(vm.MSTORE).
		push1(0).
		push1(0x20).
		op(vm.RETURN)

	return a.bytes()
}

// revertRuntime returns bytecode that unconditionally reverts with reason
// as its revert data. reason must fit in one 32-byte word.
func revertRuntime(reason string) []byte {
	var chunk [32]byte
	copy(chunk[:], reason)
	a := newAsm()
	a.push32(chunk).
		push1(0).
		op(vm.SWAP1).
		op(vm.MSTORE).
		push1(0).
		push1(byte(len(reason))).
		op(vm.REVERT)
	return a.bytes()
}

// deployInitCode wraps runtime in CREATE init code that copies it into
// memory via PUSH32 literals and returns it verbatim: this VM has no
// CODECOPY, so init code can't read its own code section directly.
func deployInitCode(runtime []byte) []byte {
	a := newAsm()
	for offset := 0; offset < len(runtime); offset += 32 {
		end := offset + 32
		var chunk [32]byte
		if end > len(runtime) {
			copy(chunk[:], runtime[offset:])
		} else {
			copy(chunk[:], runtime[offset:end])
		}
		if offset > 0xff {
			panic("deployInitCode: runtime too large for PUSH1 offsets")
		}
		a.push32(chunk).push1(byte(offset)).op(vm.SWAP1).op(vm.MSTORE)
	}
	if len(runtime) > 0xff {
		panic("deployInitCode: runtime too large for PUSH1 size")
	}
	a.push1(0).push1(byte(len(runtime))).op(vm.RETURN)
	return a.bytes()
}
