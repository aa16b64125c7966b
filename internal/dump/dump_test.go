package dump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/types"
)

func sampleDump() Dump {
	return Dump{
		Version: CurrentVersion,
		Blocks: []types.Block{
			{Number: 0, Hash: common.Hash{0x01}},
			{Number: 1, Hash: common.Hash{0x02}, ParentHash: common.Hash{0x01}},
		},
		StateEntries: []KV{
			{Key: types.StorageKey{Address: common.Address{0x01}, Slot: common.Hash{0x02}}, Value: common.Hash{0x03}},
		},
		FilterCursors: FilterCursors{Cursors: map[string]uint64{"f1": 1}},
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	d := sampleDump()
	raw, err := Write(d)
	require.NoError(t, err)

	loaded, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, d.Version, loaded.Version)
	assert.Len(t, loaded.Blocks, 2)
	assert.Equal(t, d.StateEntries, loaded.StateEntries)
	assert.Equal(t, d.FilterCursors, loaded.FilterCursors)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	d := sampleDump()
	d.Version = 99
	raw, err := Write(d)
	require.NoError(t, err)

	_, err = Load(raw)
	var unknownVer ErrUnknownVersion
	require.ErrorAs(t, err, &unknownVer)
	assert.Equal(t, uint8(99), unknownVer.Version)
}

func TestLoadRejectsEmptyState(t *testing.T) {
	d := Dump{Version: CurrentVersion}
	raw, err := Write(d)
	require.NoError(t, err)

	_, err = Load(raw)
	assert.ErrorIs(t, err, ErrEmptyState)
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load([]byte("not a gzip stream"))
	assert.Error(t, err)
}
