package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Read loads the volume at path. With readData set the voxel buffer is decoded
// into native byte order as well; otherwise only the header is parsed and
// Data stays nil.
//
// path may name a .nii, a .hdr or a .img file, each optionally gzipped. When
// path does not exist but path+".gz" does, the compressed file is used.
func Read(path string, readData bool) (*Image, error) {
	hdrName, imgName, err := resolveNames(path)
	if err != nil {
		return nil, err
	}

	hf, err := os.Open(hdrName)
	if err != nil {
		return nil, err
	}
	defer hf.Close()

	hr, compressed, err := openStream(hf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", hdrName, err)
	}
	defer hr.Close()

	h, order, err := readHeader(hr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", hdrName, err)
	}

	img, err := newImageFromHeader(h, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", hdrName, err)
	}
	img.Fname = hdrName
	img.Compressed = compressed
	if img.Kind == SingleFile {
		img.Iname = hdrName
	} else {
		img.Iname = imgName
	}

	if !readData {
		return img, nil
	}

	size, err := img.DataSize()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", hdrName, err)
	}

	if img.Kind == SingleFile {
		// The header has already been consumed from this stream
		if err := skip(hr, int64(img.VoxOffset-HeaderSize)); err != nil {
			return nil, fmt.Errorf("%s: seeking to voxel data: %w", hdrName, err)
		}
		img.Data, err = readVoxels(hr, size)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", hdrName, err)
		}
	} else {
		img.Data, err = readPairData(imgName, img.VoxOffset, size)
		if err != nil {
			return nil, err
		}
	}

	_, swapsize, _ := DatatypeSizes(img.Datatype)
	if !sameOrder(order, binary.NativeEndian) {
		swapBytes(img.Data, swapsize)
	}

	return img, nil
}

// Write commits img to img.Fname (and img.Iname for pairs) in native byte order.
// img.Data must hold NVox*NBytePer bytes. Partially written files are removed
// on failure.
func Write(img *Image) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	if img.Fname == "" {
		return fmt.Errorf("image has no file name")
	}
	if _, _, ok := DatatypeSizes(img.Datatype); !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDatatype, DatatypeName(img.Datatype))
	}
	for i := 1; i <= img.Ndim; i++ {
		if img.Dim[i] <= 0 || img.Dim[i] > math.MaxInt16 {
			return fmt.Errorf("%w: dim[%d] = %d", ErrInvalidDims, i, img.Dim[i])
		}
	}
	size, err := img.DataSize()
	if err != nil {
		return err
	}
	if img.Data == nil {
		return ErrNoData
	}
	if len(img.Data) < size {
		return fmt.Errorf("%w: have %d bytes, header needs %d", ErrNoData, len(img.Data), size)
	}

	img.ByteOrder = binary.NativeEndian
	if img.Kind == SingleFile {
		img.VoxOffset = singleFileVoxOffset
	}
	h := img.header()

	if img.Kind == SingleFile {
		return writeFile(img.Fname, img.Compressed, func(w io.Writer) error {
			if err := writeHeader(w, h, binary.NativeEndian); err != nil {
				return err
			}
			_, err := w.Write(img.Data[:size])
			return err
		})
	}

	if err := writeFile(img.Fname, img.Compressed, func(w io.Writer) error {
		return writeHeader(w, h, binary.NativeEndian)
	}); err != nil {
		return err
	}
	if err := writeFile(img.Iname, img.Compressed, func(w io.Writer) error {
		if err := pad(w, int64(img.VoxOffset)); err != nil {
			return err
		}
		_, err := w.Write(img.Data[:size])
		return err
	}); err != nil {
		os.Remove(img.Fname)
		return err
	}
	return nil
}

// resolveNames works out the header and voxel file names for path
func resolveNames(path string) (hdrName, imgName string, err error) {
	name := path
	if _, statErr := os.Stat(name); errors.Is(statErr, os.ErrNotExist) {
		if _, gzErr := os.Stat(name + ".gz"); gzErr == nil {
			name += ".gz"
		}
	}

	parts := splitExt(name)
	switch parts.ext {
	case ".hdr":
		return name, parts.with(".img"), nil
	case ".img":
		return parts.with(".hdr"), name, nil
	default:
		// .nii or anything else is read as a single file
		return name, name, nil
	}
}

// openStream wraps f in a gzip reader when it starts with the gzip magic
func openStream(f *os.File) (io.ReadCloser, bool, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, false, fmt.Errorf("opening gzip stream: %w", err)
		}
		return zr, true, nil
	}
	return io.NopCloser(br), false, nil
}

func readPairData(name string, offset, size int) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, _, err := openStream(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer r.Close()

	if err := skip(r, int64(offset)); err != nil {
		return nil, fmt.Errorf("%s: seeking to voxel data: %w", name, err)
	}
	data, err := readVoxels(r, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

func readVoxels(r io.Reader, size int) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("reading %d bytes of voxel data: %w", size, err)
	}
	return data, nil
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

func pad(w io.Writer, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(w, zeroReader{}, n)
	return err
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// writeFile creates name, runs fill against a (possibly gzipped) buffered
// writer and removes the file again if anything fails.
func writeFile(name string, compressed bool, fill func(io.Writer) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(name)
		}
	}()

	bw := bufio.NewWriter(f)
	if !compressed {
		if err := fill(bw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return bw.Flush()
	}

	zw, err := gzip.NewWriterLevel(bw, gzip.DefaultCompression)
	if err != nil {
		return err
	}
	if err := fill(zw); err != nil {
		zw.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%s: closing gzip stream: %w", name, err)
	}
	return bw.Flush()
}

// sameOrder reports whether a and b encode integers identically
func sameOrder(a, b binary.ByteOrder) bool {
	probe := []byte{1, 0}
	return a.Uint16(probe) == b.Uint16(probe)
}

// swapBytes reverses every swapsize-byte group of data in place
func swapBytes(data []byte, swapsize int) {
	if swapsize < 2 {
		return
	}
	for i := 0; i+swapsize <= len(data); i += swapsize {
		for lo, hi := i, i+swapsize-1; lo < hi; lo, hi = lo+1, hi-1 {
			data[lo], data[hi] = data[hi], data[lo]
		}
	}
}
