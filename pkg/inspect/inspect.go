// Package inspect summarizes and compares NIfTI volumes opened with package
// volume: value ranges and moments for a quick sanity check of generated or
// copied files, and byte-level digests for exact comparisons.
package inspect

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/zeebo/blake3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"niftivolume/internal/models"
	"niftivolume/pkg/nifti"
	"niftivolume/pkg/volume"
)

// ErrUnsupportedDatatype is returned for datatypes with no numeric reading here
var ErrUnsupportedDatatype = errors.New("datatype has no numeric summary")

// Summary holds the value statistics of one volume
type Summary struct {
	volume.Description

	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

func (s Summary) String() string {
	return fmt.Sprintf("%s | min: %.2f | max: %.2f | mean: %.4f | std: %.4f",
		s.Description, s.Min, s.Max, s.Mean, s.StdDev)
}

// Comparison is the result of comparing two volumes
type Comparison struct {
	// SameMetadata reports equal dimensions, datatype and bytes per voxel
	SameMetadata bool

	// SameBytes reports identical raw voxel payloads
	SameBytes bool

	// SameValues reports element-wise equal numeric values. It is false when
	// either datatype has no numeric reading.
	SameValues bool

	DigestA, DigestB [32]byte
}

// Identical reports whether both volumes carry the same header and voxels
func (c Comparison) Identical() bool {
	return c.SameMetadata && c.SameBytes
}

// Summarize computes the value range, mean and standard deviation of the volume
func Summarize(r *volume.Reader) (Summary, error) {
	desc, err := r.Describe()
	if err != nil {
		return Summary{}, err
	}
	values, err := Values(r)
	if err != nil {
		return Summary{}, err
	}

	mean, std := stat.MeanStdDev(values, nil)
	return Summary{
		Description: desc,
		Min:         floats.Min(values),
		Max:         floats.Max(values),
		Mean:        mean,
		StdDev:      std,
	}, nil
}

// Values reads the volume as float64, one value per voxel. Complex voxels
// become their magnitude, RGB voxels the mean of their channels.
func Values(r *volume.Reader) ([]float64, error) {
	desc, err := r.Describe()
	if err != nil {
		return nil, err
	}
	n := desc.VoxelCount

	switch desc.Datatype {
	case nifti.DTUint8:
		return valuesOf(r, n, func(v uint8) float64 { return float64(v) })
	case nifti.DTInt8:
		return valuesOf(r, n, func(v int8) float64 { return float64(v) })
	case nifti.DTUint16:
		return valuesOf(r, n, func(v uint16) float64 { return float64(v) })
	case nifti.DTInt16:
		return valuesOf(r, n, func(v int16) float64 { return float64(v) })
	case nifti.DTInt32:
		return valuesOf(r, n, func(v int32) float64 { return float64(v) })
	case nifti.DTUint32:
		return valuesOf(r, n, func(v uint32) float64 { return float64(v) })
	case nifti.DTFloat32:
		return valuesOf(r, n, func(v float32) float64 { return float64(v) })
	case nifti.DTFloat64:
		return valuesOf(r, n, func(v float64) float64 { return v })
	case nifti.DTComplex64:
		return valuesOf(r, n, func(v complex64) float64 { return cmplx.Abs(complex128(v)) })
	case nifti.DTRGB24:
		return valuesOf(r, n, func(v models.RGB) float64 {
			return (float64(v.R) + float64(v.G) + float64(v.B)) / 3
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatatype, desc.DatatypeName)
	}
}

func valuesOf[T models.Pixel](r *volume.Reader, n int, conv func(T) float64) ([]float64, error) {
	voxels := make([]T, n)
	if err := volume.ReadVoxels(r, voxels); err != nil {
		return nil, err
	}
	values := make([]float64, n)
	for i, v := range voxels {
		values[i] = conv(v)
	}
	return values, nil
}

// Digest returns the BLAKE3 hash of the raw voxel payload
func Digest(r *volume.Reader) ([32]byte, error) {
	meta, err := r.Metadata()
	if err != nil {
		return [32]byte{}, err
	}
	raw := make([]byte, meta.ByteLength())
	if err := r.ReadRaw(raw); err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(raw), nil
}

// Compare checks two volumes for equal metadata, bytes and values
func Compare(a, b *volume.Reader) (Comparison, error) {
	var c Comparison

	metaA, err := a.Metadata()
	if err != nil {
		return c, fmt.Errorf("%s: %w", a.Path(), err)
	}
	metaB, err := b.Metadata()
	if err != nil {
		return c, fmt.Errorf("%s: %w", b.Path(), err)
	}
	c.SameMetadata = metaA == metaB

	if c.DigestA, err = Digest(a); err != nil {
		return c, fmt.Errorf("%s: %w", a.Path(), err)
	}
	if c.DigestB, err = Digest(b); err != nil {
		return c, fmt.Errorf("%s: %w", b.Path(), err)
	}
	c.SameBytes = c.DigestA == c.DigestB

	valuesA, errA := Values(a)
	valuesB, errB := Values(b)
	switch {
	case errA == nil && errB == nil:
		c.SameValues = len(valuesA) == len(valuesB) && floats.Equal(valuesA, valuesB)
	case errors.Is(errA, ErrUnsupportedDatatype) || errors.Is(errB, ErrUnsupportedDatatype):
		c.SameValues = false
	case errA != nil:
		return c, fmt.Errorf("%s: %w", a.Path(), errA)
	default:
		return c, fmt.Errorf("%s: %w", b.Path(), errB)
	}

	return c, nil
}
