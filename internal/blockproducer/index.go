package blockproducer

import (
	"sort"
	"sync"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/types"
)

// Index is the append-only receipt/log index: tx_hash -> (block, idx) and
// block_number -> [tx_hash], plus the actual Receipt/Log/Transaction
// payloads. Filter subscriptions scan the closed interval [from_block,
// head] under the read lock.
type Index struct {
	mu sync.RWMutex

	receipts     map[common.Hash]types.Receipt
	transactions map[common.Hash]types.Transaction
	blockTxs     map[uint64][]common.Hash
	blocksByNum  map[uint64]*types.Block
	logsByBlock  map[uint64][]types.Log
	head         uint64
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		receipts:     make(map[common.Hash]types.Receipt),
		transactions: make(map[common.Hash]types.Transaction),
		blockTxs:     make(map[uint64][]common.Hash),
		blocksByNum:  make(map[uint64]*types.Block),
		logsByBlock:  make(map[uint64][]types.Log),
	}
}

// Append records one sealed block: its receipts (with log_index already
// assigned per-block), the included transactions, and the block itself.
func (idx *Index) Append(block *types.Block, receipts []types.Receipt, txs []*types.Transaction) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.blocksByNum[block.Number] = block
	idx.blockTxs[block.Number] = append([]common.Hash(nil), block.TxHashes...)

	var logs []types.Log
	for _, r := range receipts {
		idx.receipts[r.TxHash] = r
		logs = append(logs, r.Logs...)
	}
	idx.logsByBlock[block.Number] = logs

	for _, tx := range txs {
		idx.transactions[tx.Hash()] = *tx
	}

	if block.Number > idx.head {
		idx.head = block.Number
	}
}

// Receipt looks up a transaction's receipt by hash.
func (idx *Index) Receipt(hash common.Hash) (types.Receipt, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	r, ok := idx.receipts[hash]
	return r, ok
}

// Transaction looks up a sealed transaction's full record by hash.
func (idx *Index) Transaction(hash common.Hash) (types.Transaction, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	tx, ok := idx.transactions[hash]
	return tx, ok
}

// BlockTxHashes returns the tx hashes included in the given block number.
func (idx *Index) BlockTxHashes(number uint64) []common.Hash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.blockTxs[number]
}

// Block returns the sealed block at number, if present.
func (idx *Index) Block(number uint64) (*types.Block, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	b, ok := idx.blocksByNum[number]
	return b, ok
}

// Head returns the highest sealed block number.
func (idx *Index) Head() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.head
}

// AllBlocks returns every sealed block ordered by number, for state dump's
// `blocks[]` field.
func (idx *Index) AllBlocks() []types.Block {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]types.Block, 0, len(idx.blocksByNum))
	for _, b := range idx.blocksByNum {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// LoadBlocks replaces the block index wholesale from a state dump. Receipts
// and logs are not part of the dump format and start empty; only
// block-by-number and head-tracking queries are restored.
func (idx *Index) LoadBlocks(blocks []types.Block) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.blocksByNum = make(map[uint64]*types.Block, len(blocks))
	idx.blockTxs = make(map[uint64][]common.Hash, len(blocks))
	idx.receipts = make(map[common.Hash]types.Receipt)
	idx.transactions = make(map[common.Hash]types.Transaction)
	idx.logsByBlock = make(map[uint64][]types.Log)
	idx.head = 0
	for i := range blocks {
		b := blocks[i]
		idx.blocksByNum[b.Number] = &b
		idx.blockTxs[b.Number] = append([]common.Hash(nil), b.TxHashes...)
		if b.Number > idx.head {
			idx.head = b.Number
		}
	}
}

// LogsInRange scans [fromBlock, toBlock] inclusive and returns every log
// whose address is in addrs (or all logs, if addrs is empty).
func (idx *Index) LogsInRange(fromBlock, toBlock uint64, addrs map[common.Address]struct{}) []types.Log {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []types.Log
	for n := fromBlock; n <= toBlock; n++ {
		for _, l := range idx.logsByBlock[n] {
			if len(addrs) > 0 {
				if _, ok := addrs[l.Address]; !ok {
					continue
				}
			}
			out = append(out, l)
		}
	}
	return out
}
