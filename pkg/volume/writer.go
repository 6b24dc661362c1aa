package volume

import (
	"fmt"

	"niftivolume/internal/models"
	"niftivolume/pkg/nifti"
)

// writerState tracks whether a header is staged for the next write
type writerState int

const (
	stateEmpty writerState = iota
	stateHeaderBuilt
)

func (s writerState) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateHeaderBuilt:
		return "header-built"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Writer builds a NIfTI file from metadata and a typed voxel buffer. Each
// successful WriteVoxels commits one file and returns the writer to its empty
// state, so the same Writer can be reused with new metadata.
type Writer struct {
	path  string
	state writerState
	img   *nifti.Image

	// info is kept for the imgio surface, which writes without passing metadata
	info    models.ImageMetadata
	hasInfo bool
}

// NewWriter returns a writer for path. Nothing touches the filesystem until
// WriteVoxels.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the destination path
func (w *Writer) Path() string {
	return w.path
}

// SetPath changes the destination used by the next SetHeader
func (w *Writer) SetPath(path string) {
	w.path = path
}

// SetImageInfo stores metadata for writes that do not carry their own
func (w *Writer) SetImageInfo(meta models.ImageMetadata) {
	w.info = meta
	w.hasInfo = true
}

// ImageInfo returns the metadata stored by SetImageInfo
func (w *Writer) ImageInfo() (models.ImageMetadata, bool) {
	return w.info, w.hasInfo
}

// SetHeader stages a fresh 3D header built from meta, replacing any header
// that has not been committed yet. meta.BytesPerVoxel is trusted as given.
func (w *Writer) SetHeader(meta models.ImageMetadata) error {
	w.release()

	img := nifti.NewImage()
	if err := img.SetDims(meta.Width, meta.Height, meta.Depth); err != nil {
		return fmt.Errorf("invalid volume metadata: %w", err)
	}
	img.Datatype = meta.Datatype
	img.NBytePer = meta.BytesPerVoxel

	// Compression is always requested; an explicit .nii extension still wins
	if err := nifti.SetFilenames(img, w.path, true); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	w.img = img
	w.state = stateHeaderBuilt
	return nil
}

func (w *Writer) release() {
	if w.img != nil {
		w.img.Free()
		w.img = nil
	}
	w.state = stateEmpty
}

// WriteVoxels stages src and commits it to disk. When no header is staged it
// is built from meta first. Exactly NVox*BytesPerVoxel bytes are written, as
// given by the staged header; src must hold at least NVox elements, and if its
// elements are narrower than BytesPerVoxel the remainder of the buffer is zero.
//
// The staged header is released whether or not the write succeeds.
func WriteVoxels[T models.Pixel](w *Writer, src []T, meta models.ImageMetadata) error {
	if w.state == stateEmpty {
		if err := w.SetHeader(meta); err != nil {
			return err
		}
	}
	defer w.release()

	img := w.img
	if len(src) < img.NVox {
		return fmt.Errorf("%w: need %d voxels, have %d", ErrShortBuffer, img.NVox, len(src))
	}

	size, err := img.DataSize()
	if err != nil {
		return &AllocationError{Voxels: img.NVox, BytesPerVoxel: img.NBytePer, Err: err}
	}
	img.Data = make([]byte, size)
	copy(img.Data, bytesOf(src))

	if err := nifti.Write(img); err != nil {
		return &CommitError{Path: img.Fname, Err: err}
	}
	return nil
}

// WriteStored writes src using the metadata stored by SetImageInfo
func WriteStored[T models.Pixel](w *Writer, src []T) error {
	info, ok := w.ImageInfo()
	if !ok && w.state == stateEmpty {
		return fmt.Errorf("no image info set for %s", w.path)
	}
	return WriteVoxels(w, src, info)
}
