package rpcserver

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcerr"
	"github.com/zkdev/anvil-node/internal/types"
)

func (s *Server) registerEth() {
	s.register("eth_chainId", ethChainID)
	s.register("eth_blockNumber", ethBlockNumber)
	s.register("eth_getBlockByNumber", ethGetBlockByNumber)
	s.register("eth_getBalance", ethGetBalance)
	s.register("eth_getTransactionCount", ethGetTransactionCount)
	s.register("eth_getTransactionReceipt", ethGetTransactionReceipt)
	s.register("eth_getTransactionByHash", ethGetTransactionByHash)
	s.register("eth_getLogs", ethGetLogs)
	s.register("eth_sendRawTransaction", ethSendRawTransaction)
	s.register("eth_estimateGas", ethEstimateGas)
	s.register("eth_gasPrice", ethGasPrice)
	s.register("eth_call", ethCall)
}

func hexUint64(v uint64) string { return "0x" + strconv.FormatUint(v, 16) }

func parseBlockTag(tag string, head uint64) (uint64, error) {
	switch tag {
	case "latest", "pending", "":
		return head, nil
	case "earliest":
		return 0, nil
	default:
		n, err := strconv.ParseUint(strings.TrimPrefix(tag, "0x"), 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid block tag %q", tag)
		}
		return n, nil
	}
}

func ethChainID(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return hexUint64(n.ChainID()), nil
}

func ethGasPrice(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return hexUint64(100_000_000), nil
}

func ethBlockNumber(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return hexUint64(n.HeadNumber()), nil
}

type blockView struct {
	Number        string   `json:"number"`
	Hash          string   `json:"hash"`
	ParentHash    string   `json:"parentHash"`
	Timestamp     string   `json:"timestamp"`
	GasUsed       string   `json:"gasUsed"`
	GasLimit      string   `json:"gasLimit"`
	BaseFeePerGas string   `json:"baseFeePerGas"`
	L1BatchNumber string   `json:"l1BatchNumber"`
	Transactions  []string `json:"transactions"`
}

func toBlockView(b *types.Block) blockView {
	hashes := make([]string, len(b.TxHashes))
	for i, h := range b.TxHashes {
		hashes[i] = h.Hex()
	}
	baseFee := "0x0"
	if b.BaseFeePerGas != nil {
		baseFee = "0x" + b.BaseFeePerGas.Text(16)
	}
	return blockView{
		Number: hexUint64(b.Number), Hash: b.Hash.Hex(), ParentHash: b.ParentHash.Hex(),
		Timestamp: hexUint64(b.Timestamp), GasUsed: hexUint64(b.GasUsed), GasLimit: hexUint64(b.GasLimit),
		BaseFeePerGas: baseFee, L1BatchNumber: hexUint64(b.L1BatchNumber), Transactions: hashes,
	}
}

func ethGetBlockByNumber(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_getBlockByNumber requires a block tag")
	}
	var tag string
	_ = json.Unmarshal(args[0], &tag)
	number, err := parseBlockTag(tag, n.HeadNumber())
	if err != nil {
		return nil, rpcerr.InvalidParams("%v", err)
	}
	block, ok := n.BlockByNumber(number)
	if !ok {
		return nil, nil
	}
	return toBlockView(block), nil
}

func ethGetBalance(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []common.Address
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_getBalance requires an address")
	}
	return "0x" + n.Balance(args[0]).Text(16), nil
}

func ethGetTransactionCount(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_getTransactionCount requires an address")
	}
	var addr common.Address
	if err := json.Unmarshal(args[0], &addr); err != nil {
		return nil, rpcerr.InvalidParams("invalid address: %v", err)
	}
	return hexUint64(n.Nonce(addr)), nil
}

type receiptView struct {
	TransactionHash string    `json:"transactionHash"`
	BlockNumber     string    `json:"blockNumber"`
	Status          string    `json:"status"`
	GasUsed         string    `json:"gasUsed"`
	ContractAddress *string   `json:"contractAddress"`
	Logs            []logView `json:"logs"`
}

type logView struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	LogIndex    string   `json:"logIndex"`
}

func toLogView(l types.Log) logView {
	topics := make([]string, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = t.Hex()
	}
	return logView{
		Address: l.Address.Hex(), Topics: topics, Data: "0x" + hex.EncodeToString(l.Data),
		BlockNumber: hexUint64(l.BlockNumber), LogIndex: hexUint64(uint64(l.LogIndex)),
	}
}

func ethGetTransactionReceipt(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []common.Hash
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_getTransactionReceipt requires a transaction hash")
	}
	r, ok := n.Receipt(args[0])
	if !ok {
		return nil, nil
	}
	status := "0x0"
	if r.Status == types.ReceiptSuccess {
		status = "0x1"
	}
	logs := make([]logView, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = toLogView(l)
	}
	var contractAddr *string
	if r.ContractAddress != nil {
		hex := r.ContractAddress.Hex()
		contractAddr = &hex
	}
	return receiptView{
		TransactionHash: r.TxHash.Hex(), BlockNumber: hexUint64(r.Block),
		Status: status, GasUsed: hexUint64(r.GasUsed), ContractAddress: contractAddr, Logs: logs,
	}, nil
}

// hexBig renders v as a "0x"-prefixed hex string, treating a nil v as 0 -
// the same nil-safety ethSendRawTransaction's param decoding relies on.
func hexBig(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return "0x" + v.Text(16)
}

type txView struct {
	Hash        string          `json:"hash"`
	BlockNumber string          `json:"blockNumber"`
	From        string          `json:"from"`
	To          *common.Address `json:"to"`
	Value       string          `json:"value"`
	Gas         string          `json:"gas"`
	GasPrice    string          `json:"gasPrice"`
	Nonce       string          `json:"nonce"`
	Input       string          `json:"input"`
}

func ethGetTransactionByHash(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []common.Hash
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_getTransactionByHash requires a transaction hash")
	}
	tx, ok := n.Transaction(args[0])
	if !ok {
		return nil, nil
	}
	blockNumber := hexUint64(0)
	if r, ok := n.Receipt(args[0]); ok {
		blockNumber = hexUint64(r.Block)
	}
	return txView{
		Hash: args[0].Hex(), BlockNumber: blockNumber, From: tx.From.Hex(), To: tx.To,
		Value: hexBig(tx.Value), Gas: hexUint64(tx.GasLimit), GasPrice: hexBig(tx.EffectiveGasPrice(nil)),
		Nonce: hexUint64(tx.Nonce), Input: "0x" + hex.EncodeToString(tx.Data),
	}, nil
}

type logFilter struct {
	FromBlock string           `json:"fromBlock"`
	ToBlock   string           `json:"toBlock"`
	Address   []common.Address `json:"address"`
}

func ethGetLogs(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []logFilter
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_getLogs requires a filter object")
	}
	filter := args[0]
	from, err := parseBlockTag(filter.FromBlock, n.HeadNumber())
	if err != nil {
		return nil, rpcerr.InvalidParams("%v", err)
	}
	to, err := parseBlockTag(filter.ToBlock, n.HeadNumber())
	if err != nil {
		return nil, rpcerr.InvalidParams("%v", err)
	}
	var addrSet map[common.Address]struct{}
	if len(filter.Address) > 0 {
		addrSet = make(map[common.Address]struct{}, len(filter.Address))
		for _, a := range filter.Address {
			addrSet[a] = struct{}{}
		}
	}
	logs := n.Logs(from, to, addrSet)
	out := make([]logView, len(logs))
	for i, l := range logs {
		out[i] = toLogView(l)
	}
	return out, nil
}

// rawTxRequest is the thin adapter's submission envelope: eth_sendRawTransaction's
// hex payload decodes to the JSON encoding of this struct rather than a
// full RLP-encoded, ECDSA-signed Ethereum transaction, since internal/vm
// has no signature-recovery step of its own (see DESIGN.md).
type rawTxRequest struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to"`
	Value                *big.Int        `json:"value"`
	Gas                  uint64          `json:"gas"`
	GasPrice             *big.Int        `json:"gasPrice"`
	MaxFeePerGas         *big.Int        `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int        `json:"maxPriorityFeePerGas"`
	Nonce                uint64          `json:"nonce"`
	Data                 string          `json:"data"`
}

func ethSendRawTransaction(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []string
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_sendRawTransaction requires a raw transaction")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
	if err != nil {
		return nil, rpcerr.InvalidParams("invalid hex payload: %v", err)
	}
	var req rawTxRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, rpcerr.InvalidParams("invalid transaction payload: %v", err)
	}

	data, err := hex.DecodeString(strings.TrimPrefix(req.Data, "0x"))
	if err != nil {
		return nil, rpcerr.InvalidParams("invalid data field: %v", err)
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	maxFee := req.MaxFeePerGas
	if maxFee == nil {
		maxFee = gasPrice
	}
	tip := req.MaxPriorityFeePerGas
	if tip == nil {
		tip = big.NewInt(0)
	}
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	tx := &types.Transaction{
		Kind: types.KindL2, From: req.From, To: req.To, Value: value, GasLimit: req.Gas, Data: data,
		Nonce: req.Nonce, GasPrice: gasPrice, MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip,
	}

	if err := n.SubmitTransaction(tx); err != nil {
		return nil, rpcerr.SubmitError(err.Error(), "")
	}
	return tx.Hash().Hex(), nil
}

func ethEstimateGas(n *node.Node, _ json.RawMessage) (any, *rpcerr.Error) {
	return hexUint64(100_000), nil
}

// callObject is the shared eth_call/debug_traceCall transaction-call
// argument shape.
type callObject struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Gas   uint64          `json:"gas"`
	Value *big.Int        `json:"value"`
	Data  string          `json:"data"`
}

func decodeCallObject(raw json.RawMessage) (common.Address, common.Address, []byte, uint64, *big.Int, *rpcerr.Error) {
	var call callObject
	if err := json.Unmarshal(raw, &call); err != nil {
		return common.Address{}, common.Address{}, nil, 0, nil, rpcerr.InvalidParams("invalid call object: %v", err)
	}
	if call.To == nil {
		return common.Address{}, common.Address{}, nil, 0, nil, rpcerr.InvalidParams("call object requires a to address")
	}
	data, err := hex.DecodeString(strings.TrimPrefix(call.Data, "0x"))
	if err != nil {
		return common.Address{}, common.Address{}, nil, 0, nil, rpcerr.InvalidParams("invalid data field: %v", err)
	}
	return call.From, *call.To, data, call.Gas, call.Value, nil
}

func ethCall(n *node.Node, params json.RawMessage) (any, *rpcerr.Error) {
	var args []json.RawMessage
	if errObj := decodeParams(params, &args); errObj != nil {
		return nil, errObj
	}
	if len(args) == 0 {
		return nil, rpcerr.InvalidParams("eth_call requires a call object")
	}
	from, to, data, gas, value, errObj := decodeCallObject(args[0])
	if errObj != nil {
		return nil, errObj
	}
	result := n.Call(from, to, data, gas, value)
	if result.RevertErr != nil {
		reason := rpcerr.ToRevertReason(result.RevertErr.Error(), result.ReturnData)
		return nil, reason.AsSubmitError()
	}
	return "0x" + hex.EncodeToString(result.ReturnData), nil
}
