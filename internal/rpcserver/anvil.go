package rpcserver

import (
	"encoding/json"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
	"github.com/zkdev/anvil-node/internal/types"
)

func (s *Server) registerAnvil() {
	s.register("anvil_mine", anvilMine)
	s.register("evm_mine", anvilMine)
	s.register("anvil_setBalance", anvilSetBalance)
	s.register("anvil_setNonce", anvilSetNonce)
	s.register("anvil_setStorageAt", anvilSetStorageAt)
	s.register("anvil_increaseTime", anvilIncreaseTime)
	s.register("anvil_setNextBlockTimestamp", anvilSetNextBlockTimestamp)
	s.register("anvil_setIntervalMining", anvilSetIntervalMining)
	s.register("anvil_zks_commitBatch", anvilCommitBatch)
	s.register("anvil_zks_proveBatch", anvilProveBatch)
	s.register("anvil_zks_executeBatch", anvilExecuteBatch)
}

func anvilMine(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	block, err := n.MineNow()
	if err != nil {
		return nil, rpcerr.Internal(err.Error())
	}
	return block.Hash.Hex(), nil
}

func anvilSetBalance(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) < 2 {
		return nil, rpcerr.InvalidParams("anvil_setBalance requires [address, balance]")
	}
	var addr common.Address
	if err := json.Unmarshal(args[0], &addr); err != nil {
		return nil, rpcerr.InvalidParams("invalid address: %v", err)
	}
	var balance jsonBig
	if err := json.Unmarshal(args[1], &balance); err != nil {
		return nil, rpcerr.InvalidParams("invalid balance: %v", err)
	}
	n.SetBalance(addr, balance.Int)
	return true, nil
}

func anvilSetNonce(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) < 2 {
		return nil, rpcerr.InvalidParams("anvil_setNonce requires [address, nonce]")
	}
	var addr common.Address
	if err := json.Unmarshal(args[0], &addr); err != nil {
		return nil, rpcerr.InvalidParams("invalid address: %v", err)
	}
	var nonce uint64
	if err := json.Unmarshal(args[1], &nonce); err != nil {
		return nil, rpcerr.InvalidParams("invalid nonce: %v", err)
	}
	n.SetNonce(addr, nonce)
	return true, nil
}

func anvilSetStorageAt(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) < 3 {
		return nil, rpcerr.InvalidParams("anvil_setStorageAt requires [address, slot, value]")
	}
	var addr common.Address
	var slot, value common.Hash
	if err := json.Unmarshal(args[0], &addr); err != nil {
		return nil, rpcerr.InvalidParams("invalid address: %v", err)
	}
	if err := json.Unmarshal(args[1], &slot); err != nil {
		return nil, rpcerr.InvalidParams("invalid slot: %v", err)
	}
	if err := json.Unmarshal(args[2], &value); err != nil {
		return nil, rpcerr.InvalidParams("invalid value: %v", err)
	}
	n.SetStorageAt(addr, slot, value)
	return true, nil
}

func anvilIncreaseTime(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []uint64
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("anvil_increaseTime requires a seconds argument")
	}
	return hexUint64(n.IncreaseTime(args[0])), nil
}

func anvilSetNextBlockTimestamp(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []uint64
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("anvil_setNextBlockTimestamp requires a timestamp argument")
	}
	if err := n.SetNextBlockTimestamp(args[0]); err != nil {
		return nil, rpcerr.InvalidParams("%v", err)
	}
	return true, nil
}

func anvilSetIntervalMining(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []uint64
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("anvil_setIntervalMining requires a seconds argument")
	}
	n.SetIntervalMining(args[0])
	return true, nil
}

func anvilCommitBatch(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	return advanceBatch(n, params, types.BatchCommitted)
}

func anvilProveBatch(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	return advanceBatch(n, params, types.BatchProven)
}

func anvilExecuteBatch(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	return advanceBatch(n, params, types.BatchExecuted)
}

func advanceBatch(n *node.Node, params json.RawMessage, next types.BatchStatus) (any, *rpcerr.Error) {
	var args []uint64
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("batch number argument is required")
	}
	if err := n.AdvanceBatchStatus(args[0], next); err != nil {
		return nil, rpcerr.InvalidParams("%v", err)
	}
	return true, nil
}
