package vm

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/zkdev/anvil-node/internal/common"
)

var (
	ErrOutOfGas         = errors.New("vm: out of gas")
	ErrStackUnderflow   = errors.New("vm: stack underflow")
	ErrStackOverflow    = errors.New("vm: stack overflow")
	ErrInvalidJump      = errors.New("vm: invalid jump destination")
	ErrInvalidOpcode    = errors.New("vm: invalid opcode")
	ErrExecutionReverted = errors.New("vm: execution reverted")
	ErrDepthLimit       = errors.New("vm: max call depth exceeded")
)

const (
	maxStack = 1024
	maxDepth = 1024
)

// Config tunes the interpreter for a single EVM instance. It omits
// subsystems this embedded VM has no use for, like precompile overrides or
// tracer hooks beyond the Call tree.
type Config struct {
	NoBaseFee bool
}

// EVM is the embedded bytecode interpreter. One EVM value executes exactly
// one top-level transaction; nested calls recurse through run() rather than
// spinning up a fresh EVM, so depth and gas accounting stay in one place.
type EVM struct {
	BlockContext
	TxContext
	StateDB StateDB
	Config  Config

	depth int
}

// NewEVM constructs an EVM bound to the given block/tx environment and
// state view.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, cfg Config) *EVM {
	return &EVM{BlockContext: blockCtx, TxContext: txCtx, StateDB: statedb, Config: cfg}
}

// Result is what a top-level Call/Create returns to the batch executor.
type Result struct {
	ReturnData []byte
	GasUsed    uint64
	Success    bool
	RevertErr  error
	Call       *Call
}

// Call executes a message call against to with the given input and value.
// gas is the budget available to the call. This is the entry point the
// batch executor drives for every L2 transaction that targets an existing
// contract (or the zero address for a plain transfer).
func (e *EVM) Call(from, to common.Address, input []byte, gas uint64, value *big.Int) *Result {
	call := &Call{Kind: CallKindCall, From: from, To: to, Input: input, Value: value, Gas: gas}

	if to == CheatAddress {
		out, ok := dispatchCheatcode(e.StateDB, input)
		call.Output = out
		call.Success = ok
		if !ok {
			call.Error = ErrExecutionReverted.Error()
		}
		return &Result{ReturnData: out, Success: ok, Call: call}
	}

	if value != nil && value.Sign() > 0 {
		e.StateDB.SubBalance(from, value)
		e.StateDB.AddBalance(to, value)
	}

	code := e.StateDB.GetCode(to)
	if len(code) == 0 {
		call.Success = true
		return &Result{Success: true, Call: call}
	}

	ret, leftover, err := e.run(call, code, input, gas)
	call.GasUsed = gas - leftover
	call.Output = ret
	call.Success = err == nil
	if err != nil {
		call.Error = err.Error()
	}
	return &Result{ReturnData: ret, GasUsed: call.GasUsed, Success: err == nil, RevertErr: err, Call: call}
}

// Create deploys code at a deterministically derived address (the caller
// picks it; anvil-style local nodes use a simple nonce-based CREATE address
// rather than replicating mainnet's RLP(sender, nonce) scheme exactly, but
// callers may pass any pre-computed address here).
func (e *EVM) Create(from, contractAddr common.Address, initCode []byte, gas uint64, value *big.Int) *Result {
	call := &Call{Kind: CallKindCreate, From: from, To: contractAddr, Input: initCode, Value: value, Gas: gas}

	runtimeCode, leftover, err := e.run(call, initCode, nil, gas)
	call.GasUsed = gas - leftover
	call.Success = err == nil
	if err != nil {
		call.Error = err.Error()
		return &Result{GasUsed: call.GasUsed, Success: false, RevertErr: err, Call: call}
	}
	e.StateDB.SetCode(contractAddr, runtimeCode)
	call.Output = runtimeCode
	return &Result{ReturnData: runtimeCode, GasUsed: call.GasUsed, Success: true, Call: call}
}

// run executes code as a stack machine and returns (output, gasRemaining, err).
// err is non-nil exactly when the call reverted or trapped; ErrExecutionReverted
// carries a reason in the returned output per the REVERT(reason) convention.
func (e *EVM) run(call *Call, code, calldata []byte, gas uint64) ([]byte, uint64, error) {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return nil, gas, ErrDepthLimit
	}

	var (
		stack  = newStack()
		memory = newMemory()
		pc     uint64
	)

	for {
		if int(pc) >= len(code) {
			return nil, gas, nil
		}
		op := OpCode(code[pc])

		cost := constGasFor(op)
		if gas < cost {
			return nil, 0, ErrOutOfGas
		}
		gas -= cost

		switch {
		case op.isPush():
			n := op.pushSize()
			end := int(pc) + 1 + n
			var buf [32]byte
			if end > len(code) {
				copy(buf[32-n:], code[pc+1:])
			} else {
				copy(buf[32-n:], code[pc+1:end])
			}
			if err := stack.push(new(uint256.Int).SetBytes(buf[:])); err != nil {
				return nil, gas, err
			}
			pc += uint64(n) + 1
			continue

		case op.isDup():
			if err := stack.dup(op.dupN()); err != nil {
				return nil, gas, err
			}
			pc++
			continue

		case op.isSwap():
			if err := stack.swap(op.swapN()); err != nil {
				return nil, gas, err
			}
			pc++
			continue

		case op.isLog():
			n := op.logTopics()
			offset, size, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			topics := make([]common.Hash, n)
			for i := 0; i < n; i++ {
				t, err := stack.pop()
				if err != nil {
					return nil, gas, err
				}
				topics[i] = common.Hash(t.Bytes32())
			}
			data := memory.read(offset.Uint64(), size.Uint64())
			call.Ordering = append(call.Ordering, OrderEntry{Kind: MemberLog, Index: len(call.Logs)})
			call.Logs = append(call.Logs, Log{Address: call.To, Topics: topics, Data: data})
			pc++
			continue
		}

		switch op {
		case STOP:
			return nil, gas, nil

		case ADD, SUB, MUL, DIV, MOD, AND, OR, XOR, LT, GT, EQ:
			a, b, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			res := new(uint256.Int)
			switch op {
			case ADD:
				res.Add(a, b)
			case SUB:
				res.Sub(a, b)
			case MUL:
				res.Mul(a, b)
			case DIV:
				if b.IsZero() {
					res.Clear()
				} else {
					res.Div(a, b)
				}
			case MOD:
				if b.IsZero() {
					res.Clear()
				} else {
					res.Mod(a, b)
				}
			case AND:
				res.And(a, b)
			case OR:
				res.Or(a, b)
			case XOR:
				res.Xor(a, b)
			case LT:
				res.SetUint64(boolToUint64(a.Lt(b)))
			case GT:
				res.SetUint64(boolToUint64(a.Gt(b)))
			case EQ:
				res.SetUint64(boolToUint64(a.Eq(b)))
			}
			if err := stack.push(res); err != nil {
				return nil, gas, err
			}

		case ISZERO, NOT:
			a, err := stack.pop()
			if err != nil {
				return nil, gas, err
			}
			res := new(uint256.Int)
			if op == ISZERO {
				res.SetUint64(boolToUint64(a.IsZero()))
			} else {
				res.Not(a)
			}
			if err := stack.push(res); err != nil {
				return nil, gas, err
			}

		case SHA3:
			offset, size, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			data := memory.read(offset.Uint64(), size.Uint64())
			h := common.Keccak256(data)
			if err := stack.push(new(uint256.Int).SetBytes(h.Bytes())); err != nil {
				return nil, gas, err
			}

		case ADDRESS:
			if err := stack.push(addressToUint256(call.To)); err != nil {
				return nil, gas, err
			}
		case CALLER:
			if err := stack.push(addressToUint256(call.From)); err != nil {
				return nil, gas, err
			}
		case CALLVALUE:
			v := new(uint256.Int)
			if call.Value != nil {
				v.SetFromBig(call.Value)
			}
			if err := stack.push(v); err != nil {
				return nil, gas, err
			}
		case BALANCE:
			a, err := stack.pop()
			if err != nil {
				return nil, gas, err
			}
			bal := e.StateDB.GetBalance(uint256ToAddress(a))
			if err := stack.push(new(uint256.Int).SetFromBig(bal)); err != nil {
				return nil, gas, err
			}
		case TIMESTAMP:
			if err := stack.push(new(uint256.Int).SetUint64(e.Time)); err != nil {
				return nil, gas, err
			}
		case NUMBER:
			num := new(uint256.Int)
			if e.BlockNumber != nil {
				num.SetFromBig(e.BlockNumber)
			}
			if err := stack.push(num); err != nil {
				return nil, gas, err
			}

		case CALLDATASIZE:
			if err := stack.push(new(uint256.Int).SetUint64(uint64(len(calldata)))); err != nil {
				return nil, gas, err
			}
		case CALLDATALOAD:
			off, err := stack.pop()
			if err != nil {
				return nil, gas, err
			}
			var buf [32]byte
			o := off.Uint64()
			if o < uint64(len(calldata)) {
				copy(buf[:], padSlice(calldata, o, 32))
			}
			if err := stack.push(new(uint256.Int).SetBytes(buf[:])); err != nil {
				return nil, gas, err
			}
		case CALLDATACOPY:
			destOff, srcOff, length, err := stack.pop3()
			if err != nil {
				return nil, gas, err
			}
			data := padSlice(calldata, srcOff.Uint64(), int(length.Uint64()))
			memory.write(destOff.Uint64(), data)
		case CODESIZE:
			if err := stack.push(new(uint256.Int).SetUint64(uint64(len(code)))); err != nil {
				return nil, gas, err
			}
		case RETURNDATASIZE:
			if err := stack.push(new(uint256.Int)); err != nil {
				return nil, gas, err
			}
		case RETURNDATACOPY:
			if _, _, _, err := stack.pop3(); err != nil {
				return nil, gas, err
			}

		case POP:
			if _, err := stack.pop(); err != nil {
				return nil, gas, err
			}
		case MLOAD:
			off, err := stack.pop()
			if err != nil {
				return nil, gas, err
			}
			v := memory.read(off.Uint64(), 32)
			if err := stack.push(new(uint256.Int).SetBytes(v)); err != nil {
				return nil, gas, err
			}
		case MSTORE:
			off, val, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			memory.write(off.Uint64(), val.Bytes32())
		case MSTORE8:
			off, val, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			memory.write(off.Uint64(), []byte{byte(val.Uint64())})
		case MSIZE:
			if err := stack.push(new(uint256.Int).SetUint64(uint64(memory.len()))); err != nil {
				return nil, gas, err
			}

		case SLOAD:
			key, err := stack.pop()
			if err != nil {
				return nil, gas, err
			}
			v := e.StateDB.GetState(call.To, common.Hash(key.Bytes32()))
			if err := stack.push(new(uint256.Int).SetBytes(v.Bytes())); err != nil {
				return nil, gas, err
			}
		case SSTORE:
			key, val, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			e.StateDB.SetState(call.To, common.Hash(key.Bytes32()), common.Hash(val.Bytes32()))

		case JUMP:
			dest, err := stack.pop()
			if err != nil {
				return nil, gas, err
			}
			target := dest.Uint64()
			if target >= uint64(len(code)) || OpCode(code[target]) != JUMPDEST {
				return nil, gas, ErrInvalidJump
			}
			pc = target
			continue
		case JUMPI:
			dest, cond, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			if !cond.IsZero() {
				target := dest.Uint64()
				if target >= uint64(len(code)) || OpCode(code[target]) != JUMPDEST {
					return nil, gas, ErrInvalidJump
				}
				pc = target
				continue
			}
		case PC:
			if err := stack.push(new(uint256.Int).SetUint64(pc)); err != nil {
				return nil, gas, err
			}
		case GAS:
			if err := stack.push(new(uint256.Int).SetUint64(gas)); err != nil {
				return nil, gas, err
			}
		case JUMPDEST:
			// no-op marker

		case RETURN:
			offset, size, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			return memory.read(offset.Uint64(), size.Uint64()), gas, nil

		case REVERT:
			offset, size, err := stack.pop2()
			if err != nil {
				return nil, gas, err
			}
			reason := memory.read(offset.Uint64(), size.Uint64())
			return reason, gas, ErrExecutionReverted

		case CALL, STATICCALL:
			result, err := e.execSubCall(call, &stack, &memory, op, gas)
			if err != nil {
				return nil, gas, err
			}
			_ = result

		case INVALID:
			return nil, 0, ErrInvalidOpcode

		default:
			return nil, gas, ErrInvalidOpcode
		}

		pc++
	}
}

// execSubCall handles CALL/STATICCALL: pops the EVM-standard argument
// layout, recurses via run(), pushes a 0/1 success flag, and appends the
// nested Call to the parent's trace tree in program order.
func (e *EVM) execSubCall(parent *Call, stack *evmStack, memory *evmMemory, op OpCode, gasLeft uint64) (bool, error) {
	var (
		callGas, addr, value *uint256.Int
		argsOff, argsLen, retOff, retLen *uint256.Int
		err error
	)
	if op == CALL {
		callGas, err = stack.pop()
		if err == nil {
			addr, err = stack.pop()
		}
		if err == nil {
			value, err = stack.pop()
		}
	} else {
		callGas, err = stack.pop()
		if err == nil {
			addr, err = stack.pop()
		}
		value = new(uint256.Int)
	}
	if err == nil {
		argsOff, err = stack.pop()
	}
	if err == nil {
		argsLen, err = stack.pop()
	}
	if err == nil {
		retOff, err = stack.pop()
	}
	if err == nil {
		retLen, err = stack.pop()
	}
	if err != nil {
		return false, err
	}

	to := uint256ToAddress(addr)
	input := memory.read(argsOff.Uint64(), argsLen.Uint64())
	kind := CallKindCall
	if op == STATICCALL {
		kind = CallKindStaticCall
	}

	sub := &Call{Kind: kind, From: parent.To, To: to, Input: input, Gas: callGas.Uint64(), Value: value.ToBig()}

	var ret []byte
	var leftover uint64
	var runErr error
	switch {
	case to == CheatAddress:
		// Cheatcode calls are intercepted before dispatch reaches contract
		// code, matching the teacher's FarCall tracer hook: the cheat
		// address never carries deployed bytecode of its own.
		ok := false
		ret, ok = dispatchCheatcode(e.StateDB, input)
		leftover = callGas.Uint64()
		if !ok {
			runErr = ErrExecutionReverted
		}
	default:
		code := e.StateDB.GetCode(to)
		if len(code) > 0 {
			if value.Sign() > 0 {
				e.StateDB.SubBalance(parent.To, value.ToBig())
				e.StateDB.AddBalance(to, value.ToBig())
			}
			ret, leftover, runErr = e.run(sub, code, input, callGas.Uint64())
		} else {
			leftover = callGas.Uint64()
		}
	}
	sub.GasUsed = callGas.Uint64() - leftover
	sub.Output = ret
	sub.Success = runErr == nil
	if runErr != nil {
		sub.Error = runErr.Error()
	}
	parent.Ordering = append(parent.Ordering, OrderEntry{Kind: MemberCall, Index: len(parent.Calls)})
	parent.Calls = append(parent.Calls, sub)

	memory.write(retOff.Uint64(), padRight(ret, retLen.Uint64()))

	success := runErr == nil
	if err := stack.push(new(uint256.Int).SetUint64(boolToUint64(success))); err != nil {
		return false, err
	}
	return success, nil
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func addressToUint256(a common.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(a.Bytes())
}

func uint256ToAddress(v *uint256.Int) common.Address {
	b := v.Bytes20()
	return common.Address(b)
}

func padSlice(data []byte, offset uint64, length int) []byte {
	out := make([]byte, length)
	if offset >= uint64(len(data)) {
		return out
	}
	n := copy(out, data[offset:])
	_ = n
	return out
}

func padRight(data []byte, length uint64) []byte {
	out := make([]byte, length)
	copy(out, data)
	return out
}
