package volume

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotOpen           = errors.New("volume reader is not open")
	ErrNoData            = errors.New("volume has no voxel data")
	ErrShortBuffer       = errors.New("buffer shorter than voxel count")
	ErrPixelTypeMismatch = errors.New("pixel type does not match datatype")
)

// OpenError is returned when a volume file cannot be loaded
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to read NIfTI file %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// AllocationError is returned when the writer cannot stage a voxel buffer of
// the size the header asks for
type AllocationError struct {
	Voxels        int
	BytesPerVoxel int
	Err           error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate voxel buffer for %d voxels of %d bytes: %v",
		e.Voxels, e.BytesPerVoxel, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// CommitError is returned when writing a staged volume to disk fails
type CommitError struct {
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to write NIfTI file %s: %v", e.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
