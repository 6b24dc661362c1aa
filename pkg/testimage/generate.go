// Package testimage writes cubes of random voxels, one NIfTI file per
// supported datatype, for exercising readers and round-trip tools.
package testimage

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"niftivolume/internal/models"
	"niftivolume/pkg/volume"
)

// generator writes one kind of test volume
type generator func(path string, size int, rng *rand.Rand) error

var generators = map[string]generator{
	"bool_as_uint8": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() uint8 { return uint8(rng.IntN(2)) })
	},
	"gray8": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() models.Gray8 { return models.Gray8(rng.IntN(256)) })
	},
	"gray16": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() models.Gray16 { return models.Gray16(rng.IntN(65536)) })
	},
	"int8": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() int8 { return int8(rng.IntN(256) - 128) })
	},
	"int16": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() int16 { return int16(rng.IntN(65536) - 32768) })
	},
	"int32": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() int32 { return int32(rng.Uint32()) })
	},
	"uint32": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() uint32 { return uint32(rng.IntN(math.MaxInt32)) })
	},
	"float32": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() float32 { return rng.Float32() })
	},
	"float64": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() float64 { return rng.Float64() })
	},
	"complex64": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() complex64 { return complex(rng.Float32(), rng.Float32()) })
	},
	"rgb": func(path string, size int, rng *rand.Rand) error {
		return writeCube(path, size, func() models.RGB {
			return models.RGB{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256))}
		})
	},
}

// Kinds returns the names of all test volume kinds, sorted
func Kinds() []string {
	kinds := make([]string, 0, len(generators))
	for k := range generators {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Generate writes a size^3 volume for each kind into dir as <kind>.nii and
// returns the written paths. An empty kinds list means all kinds. The same
// seed produces the same files.
func Generate(dir string, size int, kinds []string, seed uint64) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %d", size)
	}
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	for _, kind := range kinds {
		if _, ok := generators[kind]; !ok {
			return nil, fmt.Errorf("unknown test volume kind %q", kind)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Each kind draws from its own stream so subsets reproduce the full set
	all := Kinds()
	paths := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		stream := uint64(sort.SearchStrings(all, kind))
		rng := rand.New(rand.NewPCG(seed, stream))
		path := filepath.Join(dir, kind+".nii")
		if err := generators[kind](path, size, rng); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", kind, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCube[T models.Pixel](path string, size int, next func() T) error {
	meta, err := volume.MetadataFor[T](size, size, size)
	if err != nil {
		return err
	}
	data := make([]T, meta.VoxelCount())
	for i := range data {
		data[i] = next()
	}
	return volume.WriteVoxels(volume.NewWriter(path), data, meta)
}
