package event

import "github.com/zkdev/anvil-node/internal/types"

// ChainHeadEvent is posted once per sealed block, carrying the full block
// so subscribers don't need a round-trip back into BlockProducer to read
// it.
type ChainHeadEvent struct {
	Block *types.Block
}

// LogsEvent is posted alongside ChainHeadEvent when the sealed block
// produced any logs, as a separate feed so eth_subscribe "logs" filters
// don't have to unpack every ChainHeadEvent's block.
type LogsEvent struct {
	Logs []types.Log
}
