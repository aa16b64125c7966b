package feemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeNoScaling(t *testing.T) {
	m := New(DefaultConfig)
	in := m.Compute(1_000_000, 1.0, 1.0)

	assert.EqualValues(t, 1_000_000, in.L1GasPrice)
	assert.EqualValues(t, DefaultConfig.MinimalL2GasPrice, in.FairL2GasPrice)
	assert.Greater(t, in.FairPubdataPrice, uint64(0))
}

func TestComputeIsDeterministic(t *testing.T) {
	m := New(DefaultConfig)
	a := m.Compute(2_500_000, 1.1, 0.9)
	b := m.Compute(2_500_000, 1.1, 0.9)
	assert.Equal(t, a, b)
}

func TestComputeScalesGasPrice(t *testing.T) {
	m := New(DefaultConfig)
	in := m.Compute(1_000_000, 2.0, 1.0)
	assert.EqualValues(t, 2_000_000, in.L1GasPrice)
}

func TestZeroValueUsesDefaultConfig(t *testing.T) {
	var m Model
	in := m.Compute(1_000_000, 1.0, 1.0)
	assert.EqualValues(t, DefaultConfig.MinimalL2GasPrice, in.FairL2GasPrice)
}
