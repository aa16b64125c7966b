// Package feemodel computes the deterministic per-batch fee inputs
// (fair L2 gas price, fair pubdata price) from an observed L1 gas price.
// The function is pure: same inputs always produce the same outputs, so
// BlockProducer can call it at batch-open time without coordinating with
// anything else.
package feemodel

import "github.com/holiman/uint256"

// Config is the fixed model configuration. There is exactly one
// configuration in this node (no per-chain overrides), matching the single
// CONFIG constant the fee model is defined against upstream.
type Config struct {
	MinimalL2GasPrice  uint64
	BatchOverheadL1Gas uint64
	MaxGasPerBatch     uint64
	MaxPubdataPerBatch uint64
	L1GasPerPubdataByte uint64
}

// DefaultConfig matches the node's baseline fee model constants.
var DefaultConfig = Config{
	MinimalL2GasPrice:   100_000_000,
	BatchOverheadL1Gas:  800_000,
	MaxGasPerBatch:      200_000_000,
	MaxPubdataPerBatch:  100_000,
	L1GasPerPubdataByte: 17,
}

// Input is the deterministic batch-scoped fee snapshot computed from an
// observed L1 gas price.
type Input struct {
	L1GasPrice     uint64
	FairL2GasPrice uint64
	FairPubdataPrice uint64
}

// Model computes batch fee inputs from a given config. The zero value uses
// DefaultConfig.
type Model struct {
	cfg Config
}

// New returns a Model bound to cfg.
func New(cfg Config) *Model { return &Model{cfg: cfg} }

// Compute derives the batch's fair L2 gas price and fair pubdata price from
// an observed L1 gas price, applying the given scale factors. This node has
// no compute-overhead component (compute_overhead_part == 0), so the fair
// L2 gas price is always exactly MinimalL2GasPrice; the pubdata overhead is
// carried in full (pubdata_overhead_part == 1).
func (m *Model) Compute(l1GasPrice uint64, l1GasPriceScale, l1PubdataPriceScale float64) Input {
	cfg := m.cfg
	if cfg == (Config{}) {
		cfg = DefaultConfig
	}

	l1PubdataPrice := l1GasPrice * cfg.L1GasPerPubdataByte

	scaledGasPrice := uint64(float64(l1GasPrice) * l1GasPriceScale)
	scaledPubdataPrice := uint64(float64(l1PubdataPrice) * l1PubdataPriceScale)

	batchOverheadWei := new(uint256.Int).Mul(
		uint256.NewInt(scaledGasPrice),
		uint256.NewInt(cfg.BatchOverheadL1Gas),
	)

	// compute_overhead_part is 0 in this model: fair L2 gas price carries no
	// overhead beyond the minimal price.
	fairL2GasPrice := cfg.MinimalL2GasPrice

	// pubdata_overhead_part is 1: the full per-byte overhead share is added
	// on top of the raw scaled pubdata price.
	overheadPerPubdata := ceilDiv(batchOverheadWei, uint256.NewInt(cfg.MaxPubdataPerBatch))
	fairPubdataPrice := scaledPubdataPrice + overheadPerPubdata.Uint64()

	return Input{
		L1GasPrice:       scaledGasPrice,
		FairL2GasPrice:   fairL2GasPrice,
		FairPubdataPrice: fairPubdataPrice,
	}
}

// ceilDiv performs ceiling division on 256-bit unsigned integers: the
// intermediate batch overhead in wei can exceed 64 bits even though the
// final per-gas/per-pubdata shares never do.
func ceilDiv(a, b *uint256.Int) *uint256.Int {
	if b.IsZero() {
		return new(uint256.Int)
	}
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(a, b, rem)
	if !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return quo
}
