package storage

import "errors"

var (
	// ErrSnapshotConflict means a conditional snapshot write found a newer row.
	ErrSnapshotConflict = errors.New("snapshot updated concurrently")
	ErrNotFound         = errors.New("not found")
)
