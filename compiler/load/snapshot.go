package load

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is bumped whenever the snapshot layout changes.
const snapshotVersion = 1

// snapshot is the msgpack envelope of a declaration set.
type snapshot struct {
	Version int  `json:"version"`
	Set     *Set `json:"set"`
}

// MarshalSnapshot encodes the set into a msgpack snapshot. Keys follow the
// JSON field names so snapshots and JSON documents stay interchangeable.
func MarshalSnapshot(s *Set) ([]byte, error) {
	var b bytes.Buffer
	enc := msgpack.NewEncoder(&b)
	enc.SetCustomStructTag("json")
	enc.SetOmitEmpty(true)
	if err := enc.Encode(&snapshot{Version: snapshotVersion, Set: s}); err != nil {
		return nil, fmt.Errorf("load: encode snapshot: %w", err)
	}
	return b.Bytes(), nil
}

// UnmarshalSnapshot decodes a msgpack snapshot created by MarshalSnapshot.
func UnmarshalSnapshot(buf []byte) (*Set, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(buf))
	dec.SetCustomStructTag("json")
	var snap snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("load: decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("load: unsupported snapshot version %d", snap.Version)
	}
	if snap.Set == nil {
		return &Set{}, nil
	}
	return snap.Set, nil
}
