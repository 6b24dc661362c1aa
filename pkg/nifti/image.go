package nifti

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// FileKind distinguishes single-file volumes from header/image pairs
type FileKind int

const (
	// SingleFile is a .nii (or .nii.gz) file holding header and voxels
	SingleFile FileKind = iota
	// FilePair is a .hdr header with voxels in a sibling .img file
	FilePair
)

// MaxDataBytes caps the voxel buffer size this package will allocate
const MaxDataBytes int64 = 1 << 36

// Image is the in-memory form of one NIfTI volume: its header fields and,
// once loaded or staged, the raw voxel buffer in native byte order.
type Image struct {
	// Ndim is dim[0], the number of used dimensions
	Ndim int

	// Nx..Nw mirror dim[1..7]
	Nx, Ny, Nz, Nt, Nu, Nv, Nw int

	// Dim is the raw dim array, Dim[0] == Ndim
	Dim [8]int

	// NVox is the product of the used dimensions
	NVox int

	// NBytePer is the number of bytes per voxel
	NBytePer int

	// Datatype is the NIfTI datatype code
	Datatype int16

	// Pixdim holds qfac and the voxel spacing
	Pixdim [8]float32

	SclSlope, SclInter float32
	CalMin, CalMax     float32
	IntentCode         int16
	XYZTUnits          byte
	Descrip            string

	QformCode, SformCode int16
	Quatern              [3]float32
	Qoffset              [3]float32
	Srow                 [3][4]float32

	// Fname is the header file name, Iname the voxel file name. They are
	// equal for single-file volumes.
	Fname, Iname string

	// Kind is the file layout Fname and Iname describe
	Kind FileKind

	// Compressed reports whether the files are gzip streams
	Compressed bool

	// ByteOrder is the byte order of the file the image was read from
	ByteOrder binary.ByteOrder

	// VoxOffset is the byte offset of voxel data within Iname
	VoxOffset int

	// Data is the voxel buffer, nil for header-only images. When non-nil its
	// length is NVox*NBytePer.
	Data []byte
}

// NewImage returns a zero-initialized 1x1x1 FLOAT32 single-file image with
// unit spacing and no voxel buffer.
func NewImage() *Image {
	img := &Image{
		Ndim:      3,
		Nx:        1,
		Ny:        1,
		Nz:        1,
		Nt:        1,
		Nu:        1,
		Nv:        1,
		Nw:        1,
		NVox:      1,
		NBytePer:  4,
		Datatype:  DTFloat32,
		Kind:      SingleFile,
		ByteOrder: binary.NativeEndian,
		VoxOffset: singleFileVoxOffset,
	}
	img.Dim = [8]int{3, 1, 1, 1, 1, 1, 1, 1}
	for i := range img.Pixdim {
		img.Pixdim[i] = 1
	}
	return img
}

// SetDims sets the used dimensions (up to 7) and recomputes NVox. Unused
// trailing dimensions are set to 1.
func (img *Image) SetDims(dims ...int) error {
	if len(dims) == 0 || len(dims) > 7 {
		return fmt.Errorf("%w: rank %d", ErrInvalidDims, len(dims))
	}
	img.Dim = [8]int{len(dims), 1, 1, 1, 1, 1, 1, 1}
	for i, d := range dims {
		if d <= 0 {
			return fmt.Errorf("%w: dim[%d] = %d", ErrInvalidDims, i+1, d)
		}
		img.Dim[i+1] = d
	}
	img.Ndim = len(dims)
	return img.syncDims()
}

// syncDims copies Dim into the named fields and recomputes NVox. The voxel
// count may not exceed MaxDataBytes.
func (img *Image) syncDims() error {
	img.Nx, img.Ny, img.Nz = img.Dim[1], img.Dim[2], img.Dim[3]
	img.Nt, img.Nu, img.Nv, img.Nw = img.Dim[4], img.Dim[5], img.Dim[6], img.Dim[7]

	nvox := int64(1)
	for i := 1; i <= img.Ndim; i++ {
		d := int64(img.Dim[i])
		if nvox > MaxDataBytes/d {
			img.NVox = 0
			return fmt.Errorf("%w: dims %v", ErrTooLarge, img.Dim[1:img.Ndim+1])
		}
		nvox *= d
	}
	img.NVox = int(nvox)
	return nil
}

// DataSize returns NVox*NBytePer, or an error when it cannot be allocated
func (img *Image) DataSize() (int, error) {
	if img.NVox <= 0 || img.NBytePer <= 0 {
		return 0, fmt.Errorf("%w: %d voxels of %d bytes", ErrInvalidDims, img.NVox, img.NBytePer)
	}
	if int64(img.NVox) > MaxDataBytes/int64(img.NBytePer) {
		return 0, fmt.Errorf("%w: %d voxels of %d bytes", ErrTooLarge, img.NVox, img.NBytePer)
	}
	return img.NVox * img.NBytePer, nil
}

// Free drops the voxel buffer and header. It is safe to call more than once.
func (img *Image) Free() {
	if img == nil {
		return
	}
	*img = Image{}
}

// SetFilenames associates prefix with img. A prefix ending in a NIfTI extension
// (.nii, .hdr, .img, optionally followed by .gz, in any case) decides the
// layout and compression by itself and keeps its spelling; otherwise ".nii" is appended, plus ".gz" when
// compress is set.
func SetFilenames(img *Image, prefix string, compress bool) error {
	if prefix == "" {
		return fmt.Errorf("empty file name")
	}

	name := splitExt(prefix)
	if name.ext == "" {
		name = fileName{base: prefix, ext: ".nii", extText: ".nii"}
		if compress {
			name.gzText = ".gz"
		}
	}

	switch name.ext {
	case ".nii":
		img.Kind = SingleFile
		img.Fname = name.with(".nii")
		img.Iname = img.Fname
		img.VoxOffset = singleFileVoxOffset
	default:
		img.Kind = FilePair
		img.Fname = name.with(".hdr")
		img.Iname = name.with(".img")
		img.VoxOffset = 0
	}
	img.Compressed = name.gzText != ""
	return nil
}

// fileName is a volume file name split into base, NIfTI extension and gzip
// suffix. ext is lowercased for matching; extText and gzText keep the
// spelling found in the name.
type fileName struct {
	base    string
	ext     string
	extText string
	gzText  string
}

// splitExt splits name into its parts. ext is empty when the name carries no
// recognised extension.
func splitExt(name string) fileName {
	n := fileName{base: name}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".gz") {
		n.gzText = n.base[len(n.base)-3:]
		n.base = n.base[:len(n.base)-3]
		lower = lower[:len(lower)-3]
	}
	for _, e := range []string{".nii", ".hdr", ".img"} {
		if strings.HasSuffix(lower, e) {
			n.ext = e
			n.extText = n.base[len(n.base)-len(e):]
			n.base = n.base[:len(n.base)-len(e)]
			return n
		}
	}
	return fileName{base: name}
}

// with returns the name carrying ext instead of its own extension. The
// name's own extension keeps its spelling; a sibling extension is upper case
// when the name's extension is.
func (n fileName) with(ext string) string {
	switch {
	case ext == n.ext:
		ext = n.extText
	case n.extText != "" && n.extText == strings.ToUpper(n.extText):
		ext = strings.ToUpper(ext)
	}
	return n.base + ext + n.gzText
}

// newImageFromHeader builds an Image from a decoded header
func newImageFromHeader(h *header, order binary.ByteOrder) (*Image, error) {
	ndim := int(h.Dim[0])
	if ndim < 1 || ndim > 7 {
		return nil, fmt.Errorf("%w: dim[0] = %d", ErrInvalidDims, ndim)
	}

	img := &Image{Ndim: ndim, ByteOrder: order}
	img.Dim[0] = ndim
	for i := 1; i < 8; i++ {
		d := int(h.Dim[i])
		if i > ndim || d <= 0 {
			// Unused or non-positive trailing dims count as 1
			if i <= ndim {
				return nil, fmt.Errorf("%w: dim[%d] = %d", ErrInvalidDims, i, d)
			}
			d = 1
		}
		img.Dim[i] = d
	}
	if err := img.syncDims(); err != nil {
		return nil, err
	}

	nbyper, _, ok := DatatypeSizes(h.Datatype)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatatype, DatatypeName(h.Datatype))
	}
	img.Datatype = h.Datatype
	img.NBytePer = nbyper

	img.Pixdim = h.Pixdim
	img.SclSlope, img.SclInter = h.SclSlope, h.SclInter
	img.CalMin, img.CalMax = h.CalMin, h.CalMax
	img.IntentCode = h.IntentCode
	img.XYZTUnits = h.XYZTUnits
	img.Descrip = cString(h.Descrip[:])
	img.QformCode, img.SformCode = h.QformCode, h.SformCode
	img.Quatern = [3]float32{h.QuaternB, h.QuaternC, h.QuaternD}
	img.Qoffset = [3]float32{h.QoffsetX, h.QoffsetY, h.QoffsetZ}
	img.Srow = [3][4]float32{h.SrowX, h.SrowY, h.SrowZ}

	if h.Magic == magicSingle {
		img.Kind = SingleFile
	} else {
		img.Kind = FilePair
	}
	if math.IsNaN(float64(h.VoxOffset)) || h.VoxOffset < 0 {
		return nil, fmt.Errorf("%w: vox_offset %v", ErrNotNIfTI, h.VoxOffset)
	}
	img.VoxOffset = int(h.VoxOffset)
	if img.Kind == SingleFile && img.VoxOffset < singleFileVoxOffset {
		img.VoxOffset = singleFileVoxOffset
	}

	return img, nil
}

// header encodes img into the on-disk header layout
func (img *Image) header() *header {
	h := &header{
		SizeofHdr:  HeaderSize,
		Regular:    'r',
		IntentCode: img.IntentCode,
		Datatype:   img.Datatype,
		Bitpix:     int16(8 * img.NBytePer),
		Pixdim:     img.Pixdim,
		VoxOffset:  float32(img.VoxOffset),
		SclSlope:   img.SclSlope,
		SclInter:   img.SclInter,
		XYZTUnits:  img.XYZTUnits,
		CalMax:     img.CalMax,
		CalMin:     img.CalMin,
		QformCode:  img.QformCode,
		SformCode:  img.SformCode,
		QuaternB:   img.Quatern[0],
		QuaternC:   img.Quatern[1],
		QuaternD:   img.Quatern[2],
		QoffsetX:   img.Qoffset[0],
		QoffsetY:   img.Qoffset[1],
		QoffsetZ:   img.Qoffset[2],
		SrowX:      img.Srow[0],
		SrowY:      img.Srow[1],
		SrowZ:      img.Srow[2],
	}
	for i := range h.Dim {
		h.Dim[i] = int16(img.Dim[i])
	}
	copy(h.Descrip[:len(h.Descrip)-1], img.Descrip)
	if img.Kind == SingleFile {
		h.Magic = magicSingle
	} else {
		h.Magic = magicPair
	}
	return h
}
