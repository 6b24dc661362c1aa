package models

// ImageMetadata holds the basic description of a 3D volume as it is handed
// between a volume reader and a volume writer
type ImageMetadata struct {
	// Width is the number of voxels along X
	Width int

	// Height is the number of voxels along Y
	Height int

	// Depth is the number of voxels along Z
	Depth int

	// Datatype is the NIfTI datatype code of a voxel (e.g. 2 for unsigned char)
	Datatype int16

	// BytesPerVoxel is the storage width of one voxel. It must agree with Datatype;
	// the writer trusts the caller on this
	BytesPerVoxel int
}

// VoxelCount returns Width*Height*Depth
func (m ImageMetadata) VoxelCount() int {
	return m.Width * m.Height * m.Depth
}

// ByteLength returns the size in bytes of the voxel buffer described by m
func (m ImageMetadata) ByteLength() int {
	return m.VoxelCount() * m.BytesPerVoxel
}

// Gray8 is an 8-bit grayscale voxel
type Gray8 uint8

// Gray16 is a 16-bit grayscale voxel
type Gray16 uint16

// RGB is a packed 3-channel 8-bit color voxel (NIfTI RGB24)
type RGB struct {
	R, G, B uint8
}

// RGB16 is a packed 3-channel 16-bit color voxel
type RGB16 struct {
	R, G, B uint16
}

// Pixel is the closed set of voxel encodings the typed read and write paths
// accept. Values are copied byte-for-byte, so each member must be a plain
// fixed-size value without padding or pointers.
type Pixel interface {
	~bool | ~uint8 | ~uint16 | RGB | RGB16 |
		~int8 | ~int16 | ~int32 | ~uint32 |
		~float32 | ~float64 | ~complex64
}
