package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"niftivolume/pkg/batch"
	"niftivolume/pkg/config"
	"niftivolume/pkg/inspect"
	"niftivolume/pkg/testimage"
	"niftivolume/pkg/volume"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

// app carries state shared by all subcommands once the config is loaded
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	log        *logrus.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "niftivol",
		Short: "Read, write and check NIfTI volumes",
		Long: `niftivol copies NIfTI-1 volumes (.nii, .nii.gz, .hdr/.img) through a typed
reader and writer, generates random test volumes for every supported datatype
and compares volumes voxel by voxel.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "niftivol.yaml", "Configuration file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(newInfoCommand(a))
	cmd.AddCommand(newCopyCommand(a))
	cmd.AddCommand(newBatchCommand(a))
	cmd.AddCommand(newGenerateCommand(a))
	cmd.AddCommand(newCompareCommand(a))
	cmd.AddCommand(newConfigCommand(a))

	return cmd
}

// setup loads the configuration and builds the logger
func (a *app) setup() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	log.SetLevel(level)

	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

func newInfoCommand(a *app) *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "info <file>...",
		Short: "Print header information of volumes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := printInfo(cmd, path, stats); err != nil {
					a.log.WithField("file", path).WithError(err).Error("Failed to read volume")
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d volumes could not be read", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", true, "Also print min/max/mean/std of the voxel values")

	return cmd
}

func printInfo(cmd *cobra.Command, path string, stats bool) error {
	var opts []volume.OpenOption
	if !stats {
		opts = append(opts, volume.HeaderOnly())
	}
	r, err := volume.Open(path, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	desc, err := r.Describe()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reading NIfTI file: %s\n", desc.Filename)
	fmt.Fprintf(out, "Datatype: %d (%s)\n", desc.Datatype, desc.DatatypeName)
	fmt.Fprintf(out, "Dimensions: %d x %d x %d\n", desc.Width, desc.Height, desc.Depth)
	fmt.Fprintf(out, "Voxel Count: %d\n", desc.VoxelCount)

	if !stats {
		return nil
	}
	summary, err := inspect.Summarize(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Min: %.4f  Max: %.4f  Mean: %.4f  Std: %.4f\n",
		summary.Min, summary.Max, summary.Mean, summary.StdDev)
	return nil
}

func newCopyCommand(a *app) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "copy <input> <output>",
		Short: "Read a volume and write it back out unchanged",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := batch.Copy(args[0], args[1], verify); err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"input":    args[0],
				"output":   args[1],
				"duration": time.Since(start),
			}).Info("NIfTI file successfully read and re-written")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", true, "Re-open the output and compare it with the input")

	return cmd
}

func newBatchCommand(a *app) *cobra.Command {
	var (
		inputDir  string
		outputDir string
		noVerify  bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Copy every volume in a directory",
		Long: `Copy every volume in the input directory to the output directory through the
typed reader and writer. Files that fail are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := batch.Options{
				InputDir:   a.cfg.Batch.InputDir,
				OutputDir:  a.cfg.Batch.OutputDir,
				Extensions: a.cfg.Batch.Extensions,
				Verify:     a.cfg.Batch.Verify && !noVerify,
			}
			if inputDir != "" {
				opts.InputDir = inputDir
			}
			if outputDir != "" {
				opts.OutputDir = outputDir
			}

			report, err := batch.Run(opts, a.log)
			if err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d of %d volumes failed", len(report.Failed), len(report.Failed)+len(report.Copied))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "Input directory (default from config)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default from config)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip re-reading each written volume")

	return cmd
}

func newGenerateCommand(a *app) *cobra.Command {
	var (
		outputDir string
		size      int
		seed      uint64
		kinds     []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write random test volumes for every supported datatype",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("output") {
				outputDir = a.cfg.Generate.OutputDir
			}
			if !cmd.Flags().Changed("size") {
				size = a.cfg.Generate.Size
			}
			if !cmd.Flags().Changed("seed") {
				seed = a.cfg.Generate.Seed
			}
			if !cmd.Flags().Changed("kind") {
				kinds = a.cfg.Generate.Kinds
			}

			paths, err := testimage.Generate(outputDir, size, kinds, seed)
			for _, path := range paths {
				a.log.WithFields(logrus.Fields{"file": path, "size": size}).Info("Saved test volume")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default from config)")
	cmd.Flags().IntVar(&size, "size", 0, "Edge length of the generated cubes (default from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default from config)")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, fmt.Sprintf("Kinds to generate %v (default all)", testimage.Kinds()))

	return cmd
}

func newCompareCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <first> <second>",
		Short: "Compare the headers and voxels of two volumes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := volume.Open(args[0])
			if err != nil {
				return err
			}
			defer first.Close()
			second, err := volume.Open(args[1])
			if err != nil {
				return err
			}
			defer second.Close()

			cmp, err := inspect.Compare(first, second)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range []*volume.Reader{first, second} {
				desc, err := r.Describe()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Data type: %s\n", desc.DatatypeName)
			}
			a.log.WithFields(logrus.Fields{
				"metadata": cmp.SameMetadata,
				"bytes":    cmp.SameBytes,
				"values":   cmp.SameValues,
			}).Debug("Comparison details")

			if cmp.Identical() || cmp.SameValues {
				fmt.Fprintln(out, "The voxel data are identical.")
				return nil
			}
			fmt.Fprintln(out, "The voxel data differ.")
			return fmt.Errorf("%s and %s differ", args[0], args[1])
		},
	}

	return cmd
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			a.log.WithField("file", path).Info("Wrote default configuration")
			return nil
		},
	})

	return cmd
}
