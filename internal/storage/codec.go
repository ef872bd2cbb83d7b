package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/dshills/wsindex/pkg/types"
)

// IndexVersion is the snapshot format version written by this build.
// Snapshots with a different major version are discarded on load.
const IndexVersion = "1.0.0"

var (
	// ErrCorruptSnapshot is returned when a snapshot cannot be decoded
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrIncompatibleVersion is returned for snapshots from another major version
	ErrIncompatibleVersion = errors.New("incompatible snapshot version")
)

// EncodeSnapshot serializes the full index
func EncodeSnapshot(index *types.ProjectIndex) ([]byte, error) {
	data, err := json.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot deserializes a snapshot and checks it against want.
// The aggregate size is recomputed from the decoded entries.
func DecodeSnapshot(data []byte, want string) (*types.ProjectIndex, error) {
	var index types.ProjectIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	if err := checkVersion(index.Version, want); err != nil {
		return nil, err
	}

	if index.Files == nil {
		index.Files = make(map[string]types.FileIndexEntry)
	}
	for path, entry := range index.Files {
		if entry.Path != path {
			entry.Path = path
			index.Files[path] = entry
		}
	}
	index.TotalSize = index.SumSizes()

	return &index, nil
}

func checkVersion(got, want string) error {
	gotVersion, err := semver.NewVersion(got)
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", ErrCorruptSnapshot, got)
	}
	wantVersion, err := semver.NewVersion(want)
	if err != nil {
		return fmt.Errorf("invalid index version %q: %w", want, err)
	}
	if gotVersion.Major() != wantVersion.Major() {
		return fmt.Errorf("%w: snapshot %s, engine %s", ErrIncompatibleVersion, got, want)
	}
	return nil
}
