package rpcserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
	"github.com/zkdev/anvil-node/internal/types"
)

func (s *Server) registerZks() {
	s.register("zks_L1ChainId", zksL1ChainID)
	s.register("zks_getBytecodeByHash", zksGetBytecodeByHash)
	s.register("zks_getBridgeContracts", zksGetBridgeContracts)
	s.register("zks_getTestnetPaymaster", zksUnsupported)
	s.register("zks_getBlockDetails", zksGetBlockDetails)
	s.register("zks_getTransactionDetails", zksGetTransactionDetails)
	s.register("zks_gasPerPubdata", zksGasPerPubdata)
}

func zksL1ChainID(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return hexUint64(n.L1ChainID()), nil
}

func zksGetBytecodeByHash(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []common.Hash
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("zks_getBytecodeByHash requires a code hash")
	}
	code := n.BytecodeByHash(context.Background(), args[0])
	if code == nil {
		return nil, nil
	}
	return "0x" + hex.EncodeToString(code), nil
}

// zksGetBridgeContracts is deliberately stubbed: config tracks only a flat
// L1ContractAddresses list (the L1Watcher's watch-set) and a
// PredeployAddresses skip-set for tracing, neither of which records which
// address plays which bridge role. Returning them under invented
// "l1Erc20DefaultBridge"-style keys would assert a mapping this node never
// establishes, so the method stays unsupported until bridge deployment is
// modeled explicitly.
func zksGetBridgeContracts(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return nil, rpcerr.Unsupported("zks_getBridgeContracts")
}

func zksUnsupported(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return nil, rpcerr.Unsupported("zks_getTestnetPaymaster")
}

type blockDetailsView struct {
	Number        string `json:"number"`
	L1BatchNumber string `json:"l1BatchNumber"`
	Timestamp     string `json:"timestamp"`
	Status        string `json:"status"`
	RootHash      string `json:"rootHash"`
}

// zksGetBlockDetails reports a sealed block's batch lifecycle status
// alongside its header fields, mirroring eth_getBlockByNumber but scoped to
// the L1-batch metadata a zkSync-style client needs.
func zksGetBlockDetails(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []uint64
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("zks_getBlockDetails requires a block number")
	}
	block, ok := n.BlockByNumber(args[0])
	if !ok {
		return nil, nil
	}
	status := types.BatchSealed.String()
	if batch, ok := n.Batch(block.L1BatchNumber); ok {
		status = batch.Status.String()
	}
	return blockDetailsView{
		Number:        hexUint64(block.Number),
		L1BatchNumber: hexUint64(block.L1BatchNumber),
		Timestamp:     hexUint64(block.Timestamp),
		Status:        status,
		RootHash:      block.Hash.Hex(),
	}, nil
}

type txDetailsView struct {
	IsL1Originated   bool   `json:"isL1Originated"`
	Status           string `json:"status"`
	Fee              string `json:"fee"`
	InitiatorAddress string `json:"initiatorAddress"`
	GasPerPubdata    string `json:"gasPerPubdata"`
}

// zksGetTransactionDetails reports a transaction's origin (L1 priority or
// regular L2) and execution fee, derived from the sealed receipt's gas_used
// times the tx's effective gas price.
func zksGetTransactionDetails(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []common.Hash
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("zks_getTransactionDetails requires a transaction hash")
	}
	tx, ok := n.Transaction(args[0])
	if !ok {
		return nil, nil
	}

	status := "pending"
	fee := "0x0"
	if receipt, ok := n.Receipt(args[0]); ok {
		if receipt.Status == types.ReceiptSuccess {
			status = "verified"
		} else {
			status = "failed"
		}
		fee = hexBig(new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), tx.EffectiveGasPrice(nil)))
	}

	return txDetailsView{
		IsL1Originated:   tx.Kind == types.KindL1Priority,
		Status:           status,
		Fee:              fee,
		InitiatorAddress: tx.From.Hex(),
		GasPerPubdata:    hexUint64(tx.GasPerPubdataByteLimit),
	}, nil
}

// zksGasPerPubdata reports the fair pubdata price the fee model computed
// for the batch backing the current head block, the same value
// SubmitTransaction's fee checks are implicitly priced against.
func zksGasPerPubdata(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	block, ok := n.BlockByNumber(n.HeadNumber())
	if !ok {
		return "0x0", nil
	}
	batch, ok := n.Batch(block.L1BatchNumber)
	if !ok || batch.FeeInput.L1PubdataPrice == nil {
		return "0x0", nil
	}
	return hexBig(batch.FeeInput.L1PubdataPrice), nil
}
