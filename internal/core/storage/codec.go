package storage

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zeusync/simkernel/internal/core/element"
)

// Encode packs snap with sorted map keys so equal snapshots produce equal
// bytes, and returns the digest of the packed form.
func Encode(snap element.Map) ([]byte, uint64, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(snap); err != nil {
		return nil, 0, fmt.Errorf("encode snapshot: %w", err)
	}
	data := buf.Bytes()
	return data, xxhash.Sum64(data), nil
}

// Decode unpacks a snapshot into canonical element values.
func Decode(data []byte) (element.Map, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	norm, err := element.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap, _ := norm.(map[string]any)
	if snap == nil {
		snap = element.Map{}
	}
	return snap, nil
}
