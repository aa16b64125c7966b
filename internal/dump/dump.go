// Package dump implements the node's state snapshot format: a versioned,
// gzip-compressed gob container holding every sealed block, the full
// storage key/value set, and each log filter's resume cursor.
package dump

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/types"
)

// CurrentVersion is the only dump format version this package writes.
// Load rejects anything else with ErrUnknownVersion.
const CurrentVersion uint8 = 1

// KV is one storage slot entry in a dump.
type KV struct {
	Key   types.StorageKey
	Value common.Hash
}

// FilterCursors records each named log filter's last-delivered block
// number, so a restored node resumes filter polling from where it left
// off rather than replaying already-seen logs.
type FilterCursors struct {
	Cursors map[string]uint64
}

// Dump is the full container written to / read from disk.
type Dump struct {
	Version       uint8
	Blocks        []types.Block
	StateEntries  []KV
	FilterCursors FilterCursors
}

// ErrUnknownVersion is returned by Load when the container's version
// field doesn't match CurrentVersion.
type ErrUnknownVersion struct{ Version uint8 }

func (e ErrUnknownVersion) Error() string {
	return fmt.Sprintf("dump: unknown state version `%d`", e.Version)
}

// ErrEmptyState is returned by Load when the decoded container has no
// blocks: loading empty state is never useful and likely indicates a
// truncated or mis-written dump.
var ErrEmptyState = fmt.Errorf("dump: loading empty state (no blocks) is not allowed")

// Write gob-encodes and gzip-compresses d.
func Write(d Dump) ([]byte, error) {
	if d.Version == 0 {
		d.Version = CurrentVersion
	}
	var gobBuf bytes.Buffer
	if err := gob.NewEncoder(&gobBuf).Encode(d); err != nil {
		return nil, fmt.Errorf("dump: encode: %w", err)
	}

	var out bytes.Buffer
	gz := gzip.NewWriter(&out)
	if _, err := gz.Write(gobBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("dump: compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("dump: compress: %w", err)
	}
	return out.Bytes(), nil
}

// Load decompresses and gob-decodes raw into a Dump, rejecting unknown
// versions and empty state.
func Load(raw []byte) (Dump, error) {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return Dump{}, fmt.Errorf("dump: failed to decompress: %w", err)
	}
	defer gz.Close()

	var d Dump
	if err := gob.NewDecoder(gz).Decode(&d); err != nil {
		return Dump{}, fmt.Errorf("dump: failed to deserialize: %w", err)
	}

	if d.Version != CurrentVersion {
		return Dump{}, ErrUnknownVersion{Version: d.Version}
	}
	if len(d.Blocks) == 0 {
		return Dump{}, ErrEmptyState
	}
	return d, nil
}
