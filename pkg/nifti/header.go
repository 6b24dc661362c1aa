package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the size of a NIfTI-1 header in bytes
const HeaderSize = 348

// singleFileVoxOffset is where voxel data starts in a .nii file: the header
// plus the 4-byte extension flag.
const singleFileVoxOffset = 352

var (
	magicSingle = [4]byte{'n', '+', '1', 0}
	magicPair   = [4]byte{'n', 'i', '1', 0}
)

// Common errors
var (
	ErrNotNIfTI            = errors.New("not a NIfTI-1 file")
	ErrUnsupportedDatatype = errors.New("unsupported datatype")
	ErrNoData              = errors.New("image has no voxel data")
	ErrTooLarge            = errors.New("voxel buffer too large")
	ErrInvalidDims         = errors.New("invalid dimensions")
)

// header is the on-disk NIfTI-1 header. Field order and widths follow the
// standard exactly; encoding/binary packs it to 348 bytes.
type header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DbName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// detectByteOrder inspects sizeof_hdr to find the byte order the file was written in
func detectByteOrder(raw []byte) (binary.ByteOrder, error) {
	if len(raw) < 4 {
		return nil, ErrNotNIfTI
	}
	switch {
	case binary.LittleEndian.Uint32(raw) == HeaderSize:
		return binary.LittleEndian, nil
	case binary.BigEndian.Uint32(raw) == HeaderSize:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: sizeof_hdr is not %d", ErrNotNIfTI, HeaderSize)
	}
}

// readHeader reads and decodes exactly HeaderSize bytes from r
func readHeader(r io.Reader) (*header, binary.ByteOrder, error) {
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	order, err := detectByteOrder(raw)
	if err != nil {
		return nil, nil, err
	}

	var h header
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, nil, fmt.Errorf("decoding header: %w", err)
	}

	if h.Magic != magicSingle && h.Magic != magicPair {
		return nil, nil, fmt.Errorf("%w: bad magic %q", ErrNotNIfTI, h.Magic[:3])
	}

	return &h, order, nil
}

// writeHeader encodes h followed by the 4-byte extension flag (all zero: no extensions)
func writeHeader(w io.Writer, h *header, order binary.ByteOrder) error {
	if err := binary.Write(w, order, h); err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	var extender [4]byte
	if _, err := w.Write(extender[:]); err != nil {
		return fmt.Errorf("writing extension flag: %w", err)
	}
	return nil
}

// cString returns the bytes of a fixed-width field up to the first NUL
func cString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
