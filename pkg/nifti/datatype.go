// Package nifti reads and writes NIfTI-1 volumes (.nii, .nii.gz and .hdr/.img pairs).
// It owns the on-disk encoding: the 348-byte header, byte order, the optional
// gzip layer and the raw voxel buffer. It knows nothing about Go pixel types.
package nifti

import "fmt"

// Datatype codes from the NIfTI-1 standard
const (
	DTUnknown    int16 = 0
	DTBinary     int16 = 1
	DTUint8      int16 = 2
	DTInt16      int16 = 4
	DTInt32      int16 = 8
	DTFloat32    int16 = 16
	DTComplex64  int16 = 32
	DTFloat64    int16 = 64
	DTRGB24      int16 = 128
	DTInt8       int16 = 256
	DTUint16     int16 = 512
	DTUint32     int16 = 768
	DTInt64      int16 = 1024
	DTUint64     int16 = 1280
	DTFloat128   int16 = 1536
	DTComplex128 int16 = 1792
	DTComplex256 int16 = 2048
	DTRGBA32     int16 = 2304
)

type datatypeInfo struct {
	name     string
	nbyper   int
	swapsize int
}

// DT_BINARY is a legal code but has no byte width, so it is absent here and
// treated as unsupported for I/O.
var datatypes = map[int16]datatypeInfo{
	DTUint8:      {"UINT8", 1, 0},
	DTInt16:      {"INT16", 2, 2},
	DTInt32:      {"INT32", 4, 4},
	DTFloat32:    {"FLOAT32", 4, 4},
	DTComplex64:  {"COMPLEX64", 8, 4},
	DTFloat64:    {"FLOAT64", 8, 8},
	DTRGB24:      {"RGB24", 3, 0},
	DTInt8:       {"INT8", 1, 0},
	DTUint16:     {"UINT16", 2, 2},
	DTUint32:     {"UINT32", 4, 4},
	DTInt64:      {"INT64", 8, 8},
	DTUint64:     {"UINT64", 8, 8},
	DTFloat128:   {"FLOAT128", 16, 16},
	DTComplex128: {"COMPLEX128", 16, 8},
	DTComplex256: {"COMPLEX256", 32, 16},
	DTRGBA32:     {"RGBA32", 4, 0},
}

// DatatypeSizes returns the bytes per voxel and the byte-swap unit for a datatype
// code. ok is false for codes that cannot be stored.
func DatatypeSizes(code int16) (nbyper, swapsize int, ok bool) {
	info, ok := datatypes[code]
	if !ok {
		return 0, 0, false
	}
	return info.nbyper, info.swapsize, true
}

// DatatypeName returns the symbolic name of a datatype code
func DatatypeName(code int16) string {
	if code == DTBinary {
		return "BINARY"
	}
	if info, ok := datatypes[code]; ok {
		return info.name
	}
	return fmt.Sprintf("UNKNOWN(%d)", code)
}
