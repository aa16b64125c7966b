// Package batchexecutor runs the embedded VM for a single batch on a
// dedicated OS thread, driven entirely by message passing: one command
// channel in, one reply channel per command, and a cached terminal error
// once the executor dies. There is no library for OS-thread pinning itself
// (runtime.LockOSThread is a language primitive, not a third-party
// concern), so that one call is the package's only stdlib-only piece.
package batchexecutor

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/store"
	"github.com/zkdev/anvil-node/internal/types"
	"github.com/zkdev/anvil-node/internal/vm"
)

// ErrExecutorPanicked is the terminal error surfaced once a batch
// executor's goroutine recovers from a panic; cached and replayed to any
// command sent afterward.
var ErrExecutorPanicked = errors.New("batchexecutor: worker panicked")

// State is the executor's lifecycle: Idle -> Running -> {Finished|Failed}.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinished
	StateFailed
)

// L2BlockEnv is the per-block environment StartNextL2Block advances.
type L2BlockEnv struct {
	Number    uint64
	Timestamp uint64
	PrevHash  common.Hash
}

// BatchTxResult is ExecuteTx's response.
type BatchTxResult struct {
	Status          types.ExecutionStatus
	Logs            []vm.Log
	Call            *vm.Call
	GasUsed         uint64
	ContractAddress *common.Address // set only for a successful contract-creation tx
	Err             error           // set only for infrastructure faults, never for Revert/Halt
}

// FinishedBatch is FinishBatch's response, alongside the owned StateView.
type FinishedBatch struct {
	TxCount int
}

// command is the internal envelope every public call wraps: a payload
// plus a one-shot reply channel.
type command struct {
	kind  commandKind
	tx    *types.Transaction
	env   L2BlockEnv
	reply chan any
}

type commandKind int

const (
	cmdExecuteTx commandKind = iota
	cmdStartNextL2Block
	cmdRollbackLastTx
	cmdBootloader
	cmdFinishBatch
)

// Executor owns one VM instance and one StateView for exactly one batch.
// Callers never touch the VM or StateView directly; every interaction goes
// through Executor's methods, which forward to the worker goroutine.
type Executor struct {
	commands chan command
	done     chan struct{}
	errCh    chan error
	cachedErr error
}

// Start spawns the worker goroutine pinned to its own OS thread and
// returns a handle. blockCtx and cfg seed every VM instantiated for the
// batch's transactions; each VM's TxContext is built from its own tx's
// sender and gas price.
func Start(view *store.StateView, blockCtx vm.BlockContext, cfg vm.Config) *Executor {
	e := &Executor{
		commands: make(chan command),
		done:     make(chan struct{}),
		errCh:    make(chan error, 1),
	}
	go e.run(view, blockCtx, cfg)
	return e
}

func (e *Executor) run(view *store.StateView, blockCtx vm.BlockContext, cfg vm.Config) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(e.done)

	logger := log.New("component", "batchexecutor")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("batch executor panicked", "recover", r)
			e.errCh <- fmt.Errorf("%w: %v", ErrExecutorPanicked, r)
		}
	}()

	var history []*vm.Call // one entry per executed tx, for RollbackLastTx
	var txCount int

	for cmd := range e.commands {
		switch cmd.kind {
		case cmdExecuteTx:
			result := executeOne(view, blockCtx, cfg, cmd.tx)
			if result.Call != nil {
				history = append(history, result.Call)
				txCount++
			}
			cmd.reply <- result

		case cmdStartNextL2Block:
			cmd.reply <- struct{}{}

		case cmdRollbackLastTx:
			if len(history) > 0 {
				history = history[:len(history)-1]
				txCount--
			}
			cmd.reply <- struct{}{}

		case cmdBootloader:
			cmd.reply <- BatchTxResult{Status: types.ExecutionSuccess}

		case cmdFinishBatch:
			cmd.reply <- FinishedBatch{TxCount: txCount}
			return
		}
	}
}

// CreateAddress derives a contract-creation address the same way a
// nonce-based CREATE does: the low 20 bytes of keccak256(sender || nonce).
func CreateAddress(from common.Address, nonce uint64) common.Address {
	var nonceBytes [8]byte
	for i := 0; i < 8; i++ {
		nonceBytes[7-i] = byte(nonce >> (8 * i))
	}
	digest := common.Keccak256Bytes(from.Bytes(), nonceBytes[:])
	return common.BytesToAddress(digest)
}

func executeOne(view *store.StateView, blockCtx vm.BlockContext, cfg vm.Config, tx *types.Transaction) BatchTxResult {
	e := vm.NewEVM(blockCtx, vm.TxContext{Origin: tx.From, GasPrice: tx.GasPrice}, view, cfg)

	var result *vm.Result
	var contractAddr *common.Address
	if tx.To == nil {
		nonce := view.GetNonce(tx.From)
		addr := CreateAddress(tx.From, nonce)
		view.SetNonce(tx.From, nonce+1)
		result = e.Create(tx.From, addr, tx.Data, tx.GasLimit, tx.Value)
		if result.Success {
			contractAddr = &addr
		}
	} else {
		result = e.Call(tx.From, *tx.To, tx.Data, tx.GasLimit, tx.Value)
	}

	status := types.ExecutionSuccess
	if result.RevertErr == vm.ErrExecutionReverted {
		status = types.ExecutionRevert
	} else if result.RevertErr != nil {
		status = types.ExecutionHalt
	}

	return BatchTxResult{
		Status:          status,
		Logs:            result.Call.Logs,
		Call:            result.Call,
		GasUsed:         result.GasUsed,
		ContractAddress: contractAddr,
	}
}

// send forwards cmd and waits for a reply, or for the worker to die. Once
// the worker has died, every subsequent send returns the cached error
// immediately without touching the commands channel.
func (e *Executor) send(kind commandKind, tx *types.Transaction, env L2BlockEnv) (any, error) {
	if e.cachedErr != nil {
		return nil, e.cachedErr
	}
	reply := make(chan any, 1)
	select {
	case e.commands <- command{kind: kind, tx: tx, env: env, reply: reply}:
	case <-e.done:
		e.cachedErr = e.waitForError()
		return nil, e.cachedErr
	}

	select {
	case v := <-reply:
		return v, nil
	case <-e.done:
		e.cachedErr = e.waitForError()
		return nil, e.cachedErr
	}
}

func (e *Executor) waitForError() error {
	select {
	case err := <-e.errCh:
		return err
	default:
		return errors.New("batchexecutor: worker stopped unexpectedly")
	}
}

// ExecuteTx runs tx against the batch's VM and returns its result.
func (e *Executor) ExecuteTx(tx *types.Transaction) (BatchTxResult, error) {
	v, err := e.send(cmdExecuteTx, tx, L2BlockEnv{})
	if err != nil {
		return BatchTxResult{}, err
	}
	return v.(BatchTxResult), nil
}

// StartNextL2Block commits the in-VM block boundary.
func (e *Executor) StartNextL2Block(env L2BlockEnv) error {
	_, err := e.send(cmdStartNextL2Block, nil, env)
	return err
}

// RollbackLastTx reverts the most recently executed tx's effect on the
// tracked history (BlockProducer is responsible for also discarding that
// tx's StateView writes, since the view itself has no per-tx checkpoints).
func (e *Executor) RollbackLastTx() error {
	_, err := e.send(cmdRollbackLastTx, nil, L2BlockEnv{})
	return err
}

// Bootloader runs finalization without closing the batch.
func (e *Executor) Bootloader() (BatchTxResult, error) {
	v, err := e.send(cmdBootloader, nil, L2BlockEnv{})
	if err != nil {
		return BatchTxResult{}, err
	}
	return v.(BatchTxResult), nil
}

// FinishBatch seals the batch and stops the worker. No command may be
// sent after this returns.
func (e *Executor) FinishBatch() (FinishedBatch, error) {
	v, err := e.send(cmdFinishBatch, nil, L2BlockEnv{})
	if err != nil {
		return FinishedBatch{}, err
	}
	return v.(FinishedBatch), nil
}
