// Package imgio is the format-neutral image I/O surface: readers and writers
// that accept voxel buffers as untyped values and dispatch on the concrete
// slice type. The NIfTI adapters forward to the typed paths in package volume.
package imgio

import (
	"errors"
	"fmt"

	"niftivolume/internal/models"
	"niftivolume/pkg/volume"
)

// ErrUnsupportedPixelType is returned for buffers outside an adapter's pixel set
var ErrUnsupportedPixelType = errors.New("unsupported pixel type")

// ImageReader loads image metadata and voxels into caller-provided slices
type ImageReader interface {
	ImageInfo() (models.ImageMetadata, error)
	LoadImageData(dst any) error
	Close() error
}

// ImageWriter saves caller-provided slices using previously set metadata
type ImageWriter interface {
	SetImageInfo(info models.ImageMetadata)
	SaveImageData(src any) error
}

// NIfTIReader adapts a volume.Reader to ImageReader. It accepts every pixel
// type in models.Pixel.
type NIfTIReader struct {
	r *volume.Reader
}

// OpenNIfTI opens path for reading
func OpenNIfTI(path string) (*NIfTIReader, error) {
	r, err := volume.Open(path)
	if err != nil {
		return nil, err
	}
	return &NIfTIReader{r: r}, nil
}

// ImageInfo returns the volume metadata
func (n *NIfTIReader) ImageInfo() (models.ImageMetadata, error) {
	return n.r.Metadata()
}

// LoadImageData fills dst, which must be a slice of a models.Pixel type
func (n *NIfTIReader) LoadImageData(dst any) error {
	switch d := dst.(type) {
	case []bool:
		return volume.ReadVoxels(n.r, d)
	case []models.Gray8:
		return volume.ReadVoxels(n.r, d)
	case []uint8:
		return volume.ReadVoxels(n.r, d)
	case []models.Gray16:
		return volume.ReadVoxels(n.r, d)
	case []uint16:
		return volume.ReadVoxels(n.r, d)
	case []models.RGB:
		return volume.ReadVoxels(n.r, d)
	case []models.RGB16:
		return volume.ReadVoxels(n.r, d)
	case []int8:
		return volume.ReadVoxels(n.r, d)
	case []int16:
		return volume.ReadVoxels(n.r, d)
	case []int32:
		return volume.ReadVoxels(n.r, d)
	case []uint32:
		return volume.ReadVoxels(n.r, d)
	case []float32:
		return volume.ReadVoxels(n.r, d)
	case []float64:
		return volume.ReadVoxels(n.r, d)
	case []complex64:
		return volume.ReadVoxels(n.r, d)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedPixelType, dst)
	}
}

// Close releases the underlying reader
func (n *NIfTIReader) Close() error {
	return n.r.Close()
}

// NIfTIWriter adapts a volume.Writer to ImageWriter. Only bool, Gray8,
// Gray16, RGB and RGB16 buffers are accepted here; wider types go through
// volume.WriteVoxels directly.
type NIfTIWriter struct {
	w *volume.Writer
}

// NewNIfTIWriter returns a writer for path
func NewNIfTIWriter(path string) *NIfTIWriter {
	return &NIfTIWriter{w: volume.NewWriter(path)}
}

// SetImageInfo stores the metadata used by SaveImageData
func (n *NIfTIWriter) SetImageInfo(info models.ImageMetadata) {
	n.w.SetImageInfo(info)
}

// SaveImageData writes src with the stored metadata
func (n *NIfTIWriter) SaveImageData(src any) error {
	switch s := src.(type) {
	case []models.Gray8:
		return volume.WriteStored(n.w, s)
	case []bool:
		return volume.WriteStored(n.w, s)
	case []models.RGB:
		return volume.WriteStored(n.w, s)
	case []models.Gray16:
		return volume.WriteStored(n.w, s)
	case []models.RGB16:
		return volume.WriteStored(n.w, s)
	default:
		return fmt.Errorf("%w: %T (write it with volume.WriteVoxels)", ErrUnsupportedPixelType, src)
	}
}

var (
	_ ImageReader = (*NIfTIReader)(nil)
	_ ImageWriter = (*NIfTIWriter)(nil)
)
