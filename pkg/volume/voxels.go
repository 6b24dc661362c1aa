// Package volume moves voxel data between NIfTI files and caller-owned typed
// slices. A Reader exposes an existing file; a Writer builds a new one.
//
// The typed paths copy bytes verbatim: no numeric conversion happens, and the
// caller is responsible for choosing a pixel type that matches the file's
// datatype. CheckPixelType is available for callers that want that checked.
package volume

import (
	"fmt"
	"reflect"
	"unsafe"

	"niftivolume/internal/models"
	"niftivolume/pkg/nifti"
)

// bytesOf views s as its underlying bytes without copying
func bytesOf[T models.Pixel](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*pixelSize[T]())
}

// pixelSize returns the in-memory width of T in bytes
func pixelSize[T models.Pixel]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// PixelDatatype returns the NIfTI datatype code that stores T without
// conversion. ok is false for RGB16, which has no NIfTI datatype.
func PixelDatatype[T models.Pixel]() (code int16, ok bool) {
	var zero T
	typ := reflect.TypeOf(zero)
	switch typ {
	case reflect.TypeOf(models.RGB{}):
		return nifti.DTRGB24, true
	case reflect.TypeOf(models.RGB16{}):
		return nifti.DTUnknown, false
	}

	switch typ.Kind() {
	case reflect.Bool, reflect.Uint8:
		return nifti.DTUint8, true
	case reflect.Uint16:
		return nifti.DTUint16, true
	case reflect.Int8:
		return nifti.DTInt8, true
	case reflect.Int16:
		return nifti.DTInt16, true
	case reflect.Int32:
		return nifti.DTInt32, true
	case reflect.Uint32:
		return nifti.DTUint32, true
	case reflect.Float32:
		return nifti.DTFloat32, true
	case reflect.Float64:
		return nifti.DTFloat64, true
	case reflect.Complex64:
		return nifti.DTComplex64, true
	}
	return nifti.DTUnknown, false
}

// CheckPixelType reports ErrPixelTypeMismatch unless T is the Go type that
// stores datatype without conversion. ReadVoxels and WriteVoxels never call
// it; it exists for callers that want the check.
func CheckPixelType[T models.Pixel](datatype int16) error {
	code, ok := PixelDatatype[T]()
	if !ok || code != datatype {
		var zero T
		return fmt.Errorf("%w: %T cannot hold %s", ErrPixelTypeMismatch, zero, nifti.DatatypeName(datatype))
	}
	return nil
}

// MetadataFor builds metadata for a width x height x depth volume of T
func MetadataFor[T models.Pixel](width, height, depth int) (models.ImageMetadata, error) {
	code, ok := PixelDatatype[T]()
	if !ok {
		var zero T
		return models.ImageMetadata{}, fmt.Errorf("%w: %T has no NIfTI datatype", ErrPixelTypeMismatch, zero)
	}
	return models.ImageMetadata{
		Width:         width,
		Height:        height,
		Depth:         depth,
		Datatype:      code,
		BytesPerVoxel: pixelSize[T](),
	}, nil
}
