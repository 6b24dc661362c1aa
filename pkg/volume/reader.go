package volume

import (
	"fmt"

	"niftivolume/internal/models"
	"niftivolume/pkg/nifti"
)

// OpenOption configures how a volume is opened
type OpenOption func(*openOptions)

type openOptions struct {
	headerOnly bool
}

// HeaderOnly opens the header without decoding voxel data. ReadVoxels on
// such a reader fails with ErrNoData.
func HeaderOnly() OpenOption {
	return func(o *openOptions) {
		o.headerOnly = true
	}
}

// Description is the summary a Reader gives of its open volume
type Description struct {
	Filename     string
	Width        int
	Height       int
	Depth        int
	Datatype     int16
	DatatypeName string
	VoxelCount   int
}

func (d Description) String() string {
	return fmt.Sprintf("%s: %dx%dx%d %s (%d voxels)",
		d.Filename, d.Width, d.Height, d.Depth, d.DatatypeName, d.VoxelCount)
}

// Reader exposes the header and voxels of one NIfTI file. The whole voxel
// buffer is decoded by Open.
type Reader struct {
	path string
	img  *nifti.Image
}

// Open loads the header and voxel data of the file at path. On failure it
// returns an *OpenError and holds nothing.
func Open(path string, opts ...OpenOption) (*Reader, error) {
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}

	img, err := nifti.Read(path, !o.headerOnly)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	return &Reader{path: path, img: img}, nil
}

// Path returns the path the reader was opened with
func (r *Reader) Path() string {
	return r.path
}

// Describe reports the dimensions, datatype and voxel count of the open volume
func (r *Reader) Describe() (Description, error) {
	if r.img == nil {
		return Description{}, ErrNotOpen
	}
	name := r.img.Fname
	if name == "" {
		name = r.path
	}
	return Description{
		Filename:     name,
		Width:        r.img.Nx,
		Height:       r.img.Ny,
		Depth:        r.img.Nz,
		Datatype:     r.img.Datatype,
		DatatypeName: nifti.DatatypeName(r.img.Datatype),
		VoxelCount:   r.img.NVox,
	}, nil
}

// Metadata returns the header as ImageMetadata, ready to hand to a Writer
func (r *Reader) Metadata() (models.ImageMetadata, error) {
	if r.img == nil {
		return models.ImageMetadata{}, ErrNotOpen
	}
	return models.ImageMetadata{
		Width:         r.img.Nx,
		Height:        r.img.Ny,
		Depth:         r.img.Nz,
		Datatype:      r.img.Datatype,
		BytesPerVoxel: r.img.NBytePer,
	}, nil
}

// ReadRaw copies the whole voxel buffer, NVox*bytesPerVoxel bytes, into dst
func (r *Reader) ReadRaw(dst []byte) error {
	data, err := r.data()
	if err != nil {
		return err
	}
	if len(dst) < len(data) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

// Close releases the decoded volume. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.img != nil {
		r.img.Free()
		r.img = nil
	}
	return nil
}

func (r *Reader) data() ([]byte, error) {
	if r.img == nil {
		return nil, ErrNotOpen
	}
	if r.img.Data == nil {
		return nil, ErrNoData
	}
	return r.img.Data, nil
}

// ReadVoxels copies VoxelCount*sizeof(T) bytes of the volume into dst, which
// must hold at least VoxelCount elements. Bytes are copied verbatim; T must
// match the file's datatype (see CheckPixelType). When T is wider than the
// stored voxels only the available bytes are copied.
//
// bool destinations must only be used with files holding 0/1 bytes.
func ReadVoxels[T models.Pixel](r *Reader, dst []T) error {
	data, err := r.data()
	if err != nil {
		return err
	}
	count := r.img.NVox
	if len(dst) < count {
		return fmt.Errorf("%w: need %d voxels, have %d", ErrShortBuffer, count, len(dst))
	}

	out := bytesOf(dst)
	copy(out[:count*pixelSize[T]()], data)
	return nil
}
