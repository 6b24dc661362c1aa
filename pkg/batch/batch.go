// Package batch re-writes every volume in a directory through the typed
// reader and writer, optionally verifying each copy against its source.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"niftivolume/pkg/inspect"
	"niftivolume/pkg/volume"
)

// Options holds the batch run parameters
type Options struct {
	InputDir   string
	OutputDir  string
	Extensions []string
	Verify     bool
}

// Report lists what a run did per input file
type Report struct {
	Copied []string
	Failed map[string]error
}

// Run copies every matching file in opts.InputDir to opts.OutputDir. A failing
// file is recorded in the report and does not stop the run; the returned error
// is only for problems with the directories themselves.
func Run(opts Options, log *logrus.Logger) (*Report, error) {
	entries, err := os.ReadDir(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && hasExtension(entry.Name(), opts.Extensions) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	// One writer serves the whole run; it returns to empty after every file
	w := volume.NewWriter("")
	report := &Report{Failed: make(map[string]error)}
	for _, name := range names {
		input := filepath.Join(opts.InputDir, name)
		output := filepath.Join(opts.OutputDir, name)
		entry := log.WithFields(logrus.Fields{"input": input, "output": output})

		w.SetPath(output)
		if err := copyWith(w, input, opts.Verify); err != nil {
			entry.WithError(err).Error("Volume copy failed")
			report.Failed[input] = err
			continue
		}
		entry.Info("Volume copied")
		report.Copied = append(report.Copied, input)
	}

	log.WithFields(logrus.Fields{
		"copied": len(report.Copied),
		"failed": len(report.Failed),
	}).Info("Batch finished")

	return report, nil
}

// Copy re-writes input to output with identical metadata and voxel bytes. With
// verify set the written file is opened again and compared with the source.
func Copy(input, output string, verify bool) error {
	return copyWith(volume.NewWriter(output), input, verify)
}

// copyWith copies input to the path w is set to
func copyWith(w *volume.Writer, input string, verify bool) error {
	r, err := volume.Open(input)
	if err != nil {
		return err
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	raw := make([]byte, meta.ByteLength())
	if err := r.ReadRaw(raw); err != nil {
		return err
	}

	if err := volume.WriteVoxels(w, raw, meta); err != nil {
		return err
	}

	if !verify {
		return nil
	}

	copied, err := volume.Open(w.Path())
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	defer copied.Close()

	cmp, err := inspect.Compare(r, copied)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !cmp.Identical() {
		return fmt.Errorf("verify: copy differs from source (metadata equal: %v, voxels equal: %v)",
			cmp.SameMetadata, cmp.SameBytes)
	}
	return nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
