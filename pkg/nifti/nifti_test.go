package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// newTestImage builds a 3D image with a deterministic byte pattern
func newTestImage(t *testing.T, nx, ny, nz int, datatype int16) *Image {
	t.Helper()
	img := NewImage()
	if err := img.SetDims(nx, ny, nz); err != nil {
		t.Fatalf("SetDims failed: %v", err)
	}
	nbyper, _, ok := DatatypeSizes(datatype)
	if !ok {
		t.Fatalf("Unsupported datatype %d", datatype)
	}
	img.Datatype = datatype
	img.NBytePer = nbyper
	img.Data = make([]byte, img.NVox*nbyper)
	for i := range img.Data {
		img.Data[i] = byte(i * 7)
	}
	return img
}

// TestHeaderSize verifies the header struct packs to exactly 348 bytes
func TestHeaderSize(t *testing.T) {
	if size := binary.Size(header{}); size != HeaderSize {
		t.Errorf("Expected header size %d, got %d", HeaderSize, size)
	}
}

// TestDatatypeSizes checks the byte widths of the common datatypes
func TestDatatypeSizes(t *testing.T) {
	testCases := []struct {
		code     int16
		nbyper   int
		swapsize int
		ok       bool
	}{
		{DTUint8, 1, 0, true},
		{DTInt16, 2, 2, true},
		{DTInt32, 4, 4, true},
		{DTFloat32, 4, 4, true},
		{DTComplex64, 8, 4, true},
		{DTFloat64, 8, 8, true},
		{DTRGB24, 3, 0, true},
		{DTInt8, 1, 0, true},
		{DTUint16, 2, 2, true},
		{DTUint32, 4, 4, true},
		{DTBinary, 0, 0, false},
		{999, 0, 0, false},
	}

	for _, tc := range testCases {
		nbyper, swapsize, ok := DatatypeSizes(tc.code)
		if nbyper != tc.nbyper || swapsize != tc.swapsize || ok != tc.ok {
			t.Errorf("DatatypeSizes(%s): expected (%d, %d, %v), got (%d, %d, %v)",
				DatatypeName(tc.code), tc.nbyper, tc.swapsize, tc.ok, nbyper, swapsize, ok)
		}
	}
}

// TestSetFilenames checks layout and compression are derived from the name
func TestSetFilenames(t *testing.T) {
	testCases := []struct {
		prefix     string
		compress   bool
		fname      string
		iname      string
		kind       FileKind
		compressed bool
	}{
		{"out.nii", true, "out.nii", "out.nii", SingleFile, false},
		{"out.nii.gz", false, "out.nii.gz", "out.nii.gz", SingleFile, true},
		{"out", true, "out.nii.gz", "out.nii.gz", SingleFile, true},
		{"out", false, "out.nii", "out.nii", SingleFile, false},
		{"out.hdr", true, "out.hdr", "out.img", FilePair, false},
		{"out.img.gz", false, "out.hdr.gz", "out.img.gz", FilePair, true},
		{"scan.v2", true, "scan.v2.nii.gz", "scan.v2.nii.gz", SingleFile, true},
		{"SCAN.NII", true, "SCAN.NII", "SCAN.NII", SingleFile, false},
		{"Scan.Nii.GZ", false, "Scan.Nii.GZ", "Scan.Nii.GZ", SingleFile, true},
		{"PAIR.HDR", true, "PAIR.HDR", "PAIR.IMG", FilePair, false},
		{"PAIR.IMG.GZ", false, "PAIR.HDR.GZ", "PAIR.IMG.GZ", FilePair, true},
		{"pair.Hdr", false, "pair.Hdr", "pair.img", FilePair, false},
	}

	for _, tc := range testCases {
		img := NewImage()
		if err := SetFilenames(img, tc.prefix, tc.compress); err != nil {
			t.Fatalf("SetFilenames(%s) failed: %v", tc.prefix, err)
		}
		if img.Fname != tc.fname || img.Iname != tc.iname {
			t.Errorf("SetFilenames(%s): expected %s/%s, got %s/%s",
				tc.prefix, tc.fname, tc.iname, img.Fname, img.Iname)
		}
		if img.Kind != tc.kind {
			t.Errorf("SetFilenames(%s): expected kind %d, got %d", tc.prefix, tc.kind, img.Kind)
		}
		if img.Compressed != tc.compressed {
			t.Errorf("SetFilenames(%s): expected compressed %v, got %v", tc.prefix, tc.compressed, img.Compressed)
		}
	}

	if err := SetFilenames(NewImage(), "", true); err == nil {
		t.Error("Expected error for empty file name")
	}
}

// TestResolveNames checks the sibling of a pair is found in the same case
func TestResolveNames(t *testing.T) {
	testCases := []struct {
		path    string
		hdrName string
		imgName string
	}{
		{"vol.nii", "vol.nii", "vol.nii"},
		{"VOL.NII.GZ", "VOL.NII.GZ", "VOL.NII.GZ"},
		{"pair.hdr", "pair.hdr", "pair.img"},
		{"PAIR.HDR", "PAIR.HDR", "PAIR.IMG"},
		{"PAIR.IMG.gz", "PAIR.HDR.gz", "PAIR.IMG.gz"},
	}

	dir := t.TempDir()
	for _, tc := range testCases {
		hdrName, imgName, err := resolveNames(filepath.Join(dir, tc.path))
		if err != nil {
			t.Fatalf("resolveNames(%s) failed: %v", tc.path, err)
		}
		if hdrName != filepath.Join(dir, tc.hdrName) || imgName != filepath.Join(dir, tc.imgName) {
			t.Errorf("resolveNames(%s): expected %s/%s, got %s/%s",
				tc.path, tc.hdrName, tc.imgName, filepath.Base(hdrName), filepath.Base(imgName))
		}
	}
}

// TestWriteReadRoundTrip writes each file layout and reads it back
func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"single.nii", "single.nii.gz", "pair.hdr", "pair_gz.hdr.gz", "UPPER.NII", "UPPER_PAIR.HDR"} {
		t.Run(name, func(t *testing.T) {
			img := newTestImage(t, 4, 3, 2, DTInt16)
			img.Descrip = "round trip"
			want := append([]byte(nil), img.Data...)

			if err := SetFilenames(img, filepath.Join(dir, name), true); err != nil {
				t.Fatalf("SetFilenames failed: %v", err)
			}
			if err := Write(img); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			got, err := Read(filepath.Join(dir, name), true)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if got.Nx != 4 || got.Ny != 3 || got.Nz != 2 {
				t.Errorf("Expected dims 4x3x2, got %dx%dx%d", got.Nx, got.Ny, got.Nz)
			}
			if got.NVox != 24 {
				t.Errorf("Expected 24 voxels, got %d", got.NVox)
			}
			if got.Datatype != DTInt16 || got.NBytePer != 2 {
				t.Errorf("Expected INT16/2, got %s/%d", DatatypeName(got.Datatype), got.NBytePer)
			}
			if got.Descrip != "round trip" {
				t.Errorf("Expected description %q, got %q", "round trip", got.Descrip)
			}
			if !bytes.Equal(got.Data, want) {
				t.Errorf("Voxel data differs after round trip")
			}
		})
	}
}

// TestReadHeaderOnly verifies that no voxel buffer is loaded without readData
func TestReadHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header_only.nii")
	img := newTestImage(t, 2, 2, 2, DTUint8)
	if err := SetFilenames(img, path, false); err != nil {
		t.Fatalf("SetFilenames failed: %v", err)
	}
	if err := Write(img); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(path, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Data != nil {
		t.Errorf("Expected nil data, got %d bytes", len(got.Data))
	}
	if got.NVox != 8 {
		t.Errorf("Expected 8 voxels, got %d", got.NVox)
	}
}

// TestReadImplicitGzip checks that a missing .nii falls back to .nii.gz
func TestReadImplicitGzip(t *testing.T) {
	dir := t.TempDir()
	img := newTestImage(t, 2, 2, 1, DTUint8)
	if err := SetFilenames(img, filepath.Join(dir, "vol"), true); err != nil {
		t.Fatalf("SetFilenames failed: %v", err)
	}
	if err := Write(img); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(filepath.Join(dir, "vol.nii"), true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !got.Compressed {
		t.Error("Expected image to be marked compressed")
	}
}

// TestReadBigEndian hand-builds a big-endian file and checks voxels come back native
func TestReadBigEndian(t *testing.T) {
	h := header{
		SizeofHdr: HeaderSize,
		Dim:       [8]int16{3, 2, 1, 1, 1, 1, 1, 1},
		Datatype:  DTFloat32,
		Bitpix:    32,
		VoxOffset: singleFileVoxOffset,
		Magic:     magicSingle,
	}

	var buf bytes.Buffer
	if err := writeHeader(&buf, &h, binary.BigEndian); err != nil {
		t.Fatalf("writeHeader failed: %v", err)
	}
	values := []float32{1.5, -2.25}
	if err := binary.Write(&buf, binary.BigEndian, values); err != nil {
		t.Fatalf("Writing voxels failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "big.nii")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	img, err := Read(path, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !sameOrder(img.ByteOrder, binary.BigEndian) {
		t.Error("Expected big-endian source order to be recorded")
	}
	for i, want := range values {
		got := math.Float32frombits(binary.NativeEndian.Uint32(img.Data[i*4:]))
		if got != want {
			t.Errorf("Voxel %d: expected %v, got %v", i, want, got)
		}
	}
}

// TestReadErrors covers missing and malformed files
func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Read(filepath.Join(dir, "missing.nii"), true); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.nii")
	if err := os.WriteFile(garbage, bytes.Repeat([]byte{0xAB}, 400), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Read(garbage, true); !errors.Is(err, ErrNotNIfTI) {
		t.Errorf("Expected ErrNotNIfTI, got %v", err)
	}

	short := filepath.Join(dir, "short.nii")
	if err := os.WriteFile(short, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Read(short, true); err == nil {
		t.Error("Expected error for truncated header")
	}

	// Header promises more voxels than the file holds
	img := newTestImage(t, 4, 4, 4, DTUint8)
	truncated := filepath.Join(dir, "truncated.nii")
	if err := SetFilenames(img, truncated, false); err != nil {
		t.Fatalf("SetFilenames failed: %v", err)
	}
	if err := Write(img); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.Truncate(truncated, singleFileVoxOffset+10); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if _, err := Read(truncated, true); err == nil {
		t.Error("Expected error for truncated voxel data")
	}
}

// TestWriteErrors checks Write refuses images it cannot encode
func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()

	img := newTestImage(t, 2, 2, 1, DTUint8)
	img.Data = nil
	if err := SetFilenames(img, filepath.Join(dir, "nodata.nii"), false); err != nil {
		t.Fatalf("SetFilenames failed: %v", err)
	}
	if err := Write(img); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}

	img = newTestImage(t, 2, 2, 1, DTUint8)
	img.Datatype = DTBinary
	if err := SetFilenames(img, filepath.Join(dir, "binary.nii"), false); err != nil {
		t.Fatalf("SetFilenames failed: %v", err)
	}
	if err := Write(img); !errors.Is(err, ErrUnsupportedDatatype) {
		t.Errorf("Expected ErrUnsupportedDatatype, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "binary.nii")); !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected no file to be left behind")
	}

	img = newTestImage(t, 2, 2, 1, DTUint8)
	if err := SetFilenames(img, filepath.Join(dir, "missing_dir", "x.nii"), false); err != nil {
		t.Fatalf("SetFilenames failed: %v", err)
	}
	if err := Write(img); err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}

// TestSetDims checks rank and voxel count bookkeeping
func TestSetDims(t *testing.T) {
	img := NewImage()
	if err := img.SetDims(5, 6, 7); err != nil {
		t.Fatalf("SetDims failed: %v", err)
	}
	if img.NVox != 210 {
		t.Errorf("Expected 210 voxels, got %d", img.NVox)
	}
	if img.Dim[0] != 3 || img.Nt != 1 || img.Nu != 1 {
		t.Errorf("Expected rank 3 with unit trailing dims, got %v", img.Dim)
	}

	if err := img.SetDims(5, 0, 7); !errors.Is(err, ErrInvalidDims) {
		t.Errorf("Expected ErrInvalidDims, got %v", err)
	}
	if err := img.SetDims(); !errors.Is(err, ErrInvalidDims) {
		t.Errorf("Expected ErrInvalidDims for empty dims, got %v", err)
	}
	if err := img.SetDims(32767, 32767, 32767, 32767, 32767, 32767, 32767); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge for oversized dims, got %v", err)
	}
}

// TestReadOversizedDims checks a header whose voxel count overflows is rejected
// before any size arithmetic uses it
func TestReadOversizedDims(t *testing.T) {
	h := header{
		SizeofHdr: HeaderSize,
		Dim:       [8]int16{7, 32767, 32767, 32767, 32767, 32767, 32767, 32767},
		Datatype:  DTUint8,
		Bitpix:    8,
		VoxOffset: singleFileVoxOffset,
		Magic:     magicSingle,
	}

	var buf bytes.Buffer
	if err := writeHeader(&buf, &h, binary.LittleEndian); err != nil {
		t.Fatalf("writeHeader failed: %v", err)
	}
	buf.Write(make([]byte, 64))

	path := filepath.Join(t.TempDir(), "huge.nii")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	for _, readData := range []bool{false, true} {
		if _, err := Read(path, readData); !errors.Is(err, ErrTooLarge) {
			t.Errorf("Read(readData=%v): expected ErrTooLarge, got %v", readData, err)
		}
	}
}

// TestFreeIdempotent verifies Free can be called repeatedly
func TestFreeIdempotent(t *testing.T) {
	img := newTestImage(t, 2, 2, 2, DTUint8)
	img.Free()
	img.Free()
	if img.Data != nil {
		t.Error("Expected data to be released")
	}

	var nilImg *Image
	nilImg.Free()
}

// TestSwapBytes checks in-place group reversal
func TestSwapBytes(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	swapBytes(data, 4)
	want := []byte{4, 3, 2, 1, 8, 7, 6, 5}
	if !bytes.Equal(data, want) {
		t.Errorf("Expected %v, got %v", want, data)
	}

	swapBytes(data, 0)
	if !bytes.Equal(data, want) {
		t.Error("swapsize 0 should leave data untouched")
	}
}
