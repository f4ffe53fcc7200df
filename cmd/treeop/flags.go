package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/configuration"
	"github.com/desertwitch/treeop/internal/format"
	"github.com/desertwitch/treeop/internal/mutate"
	"github.com/desertwitch/treeop/internal/progress"
	"github.com/desertwitch/treeop/internal/walk"
	"github.com/spf13/pflag"
)

// ErrUsage is an error that occurs when the command line is invalid:
// unknown or conflicting flags, missing arguments, or paths that are
// not directories.
var ErrUsage = errors.New("usage error")

// Options is the parsed and validated command line.
type Options struct {
	Stats            bool
	ListFiles        bool
	SizeHistogram    string
	MaxSize          string
	Intersect        bool
	ListA            bool
	ListB            bool
	ListBoth         bool
	ExtractA         string
	ExtractB         string
	RemoveCopies     bool
	SameFilename     bool
	HardlinkCopies   bool
	MinSize          string
	MaxHardlinks     uint64
	ReadBench        bool
	NewDirDB         bool
	UpdateDirDB      bool
	RemoveDirDB      bool
	GetUniqueHashLen bool

	DryRun   bool
	Progress int
	Width    int
	BufSize  string
	UI       bool
	Verbose  int

	Roots []string

	// Parsed forms of the size strings above.
	HistogramBatch uint64
	MaxSizeBytes   uint64
	HasMaxSize     bool
	MinSizeBytes   uint64
	BufSizeBytes   int
}

// newFlagSet binds all options onto a fresh FlagSet.
func (o *Options) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.BoolVarP(&o.Intersect, "intersect", "i", false, "determine the intersection of the given dirs by file content")
	fs.BoolVarP(&o.Stats, "stats", "s", false, "print statistics about each dir (default mode)")
	fs.BoolVarP(&o.ListFiles, "list-files", "l", false, "list all files with stored meta-data")
	fs.BoolVar(&o.ListA, "list-a", false, "list files only in A when used with --intersect")
	fs.BoolVar(&o.ListB, "list-b", false, "list files only in B when used with --intersect")
	fs.BoolVar(&o.ListBoth, "list-both", false, "list files in both A and B when used with --intersect")
	fs.StringVar(&o.ExtractA, "extract-a", "", "extract files only in A into `DIR` when used with --intersect")
	fs.StringVar(&o.ExtractB, "extract-b", "", "extract files only in B into `DIR` when used with --intersect")
	fs.BoolVar(&o.RemoveCopies, "remove-copies", false, "remove files from later dirs whose content exists in an earlier dir (requires --intersect)")
	fs.BoolVar(&o.SameFilename, "same-filename", false, "only match files that also share their basename")
	fs.BoolVar(&o.HardlinkCopies, "hardlink-copies", false, "replace duplicate files with hardlinks to the oldest copy")
	fs.StringVar(&o.MinSize, "min-size", "1", "minimum file size `N` for --hardlink-copies")
	fs.Uint64Var(&o.MaxHardlinks, "max-hardlinks", mutate.DefaultMaxHardlinks, "skip groups whose anchor already has `N` hardlinks")
	fs.BoolVar(&o.ReadBench, "readbench", false, "benchmark sequential read throughput of all files")
	fs.BoolVar(&o.NewDirDB, "new-dirdb", false, "force creation of new .dirdb files (overwrite existing)")
	fs.BoolVarP(&o.UpdateDirDB, "update-dirdb", "u", false, "update .dirdb files, reusing hashes when inode/size/mtime match")
	fs.BoolVar(&o.RemoveDirDB, "remove-dirdb", false, "recursively remove all .dirdb files under the specified dirs")
	fs.BoolVar(&o.GetUniqueHashLen, "get-unique-hash-len", false, "calculate the minimum hash length in bits that makes all file contents unique")
	fs.StringVar(&o.SizeHistogram, "size-histogram", "", "print a size histogram with batch size `N` bytes")
	fs.StringVar(&o.MaxSize, "max-size", "", "maximum file size `N` to include in the size histogram")
	fs.BoolVar(&o.DryRun, "dry-run", false, "only log what a mutating mode would do")
	fs.CountVarP(&o.Progress, "progress", "p", "print progress once per second (twice: one line per update)")
	fs.IntVarP(&o.Width, "width", "W", 0, "max width `N` for the progress line")
	fs.StringVar(&o.BufSize, "bufsize", "", "read buffer size `N` for hashing and benchmarking")
	fs.BoolVar(&o.UI, "ui", false, "show a live dashboard instead of the progress line")
	fs.CountVarP(&o.Verbose, "verbose", "v", "increase verbosity, may be given multiple times")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Operations on huge directory trees.\n\n"+
			"Usage: %s [OPTIONS] DIR...\n\n"+
			"All sizes may be specified with kMGTPE suffixes indicating powers of 1024.\n\n"+
			"Options:\n%s", name, fs.FlagUsages())
	}

	return fs
}

// parseOptions parses arguments and applies configuration-file
// defaults for the values no flag overrode.
func parseOptions(name string, args []string, config *configuration.Handler) (*Options, error) {
	opts := &Options{}
	fs := opts.newFlagSet(name)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	opts.Roots = fs.Args()

	if !fs.Changed("width") {
		opts.Width = config.Int(configuration.KeyWidth, progress.DefaultMaxWidth)
	}
	if !fs.Changed("bufsize") && config.Int(configuration.KeyBufSize, 0) > 0 {
		opts.BufSize = config.String(configuration.KeyBufSize, "")
	}
	if !fs.Changed("max-hardlinks") {
		opts.MaxHardlinks = config.Uint64(configuration.KeyMaxHardlinks, mutate.DefaultMaxHardlinks)
	}

	if err := opts.finalize(); err != nil {
		return nil, err
	}

	return opts, nil
}

// finalize validates flag combinations, parses size strings and
// normalizes the root paths.
//
//nolint:gocognit
func (o *Options) finalize() error {
	if len(o.Roots) == 0 {
		return fmt.Errorf("%w: at least one directory must be specified", ErrUsage)
	}
	for i, root := range o.Roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("%w: path %q does not exist", ErrUsage, root)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: path %q is not a directory", ErrUsage, root)
		}
		normalized, err := walk.NormalizePath(root)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
		o.Roots[i] = normalized
	}

	if o.NewDirDB && o.UpdateDirDB {
		return fmt.Errorf("%w: cannot combine --new-dirdb with --update-dirdb", ErrUsage)
	}
	if (o.ListA || o.ListB || o.ListBoth) && !o.Intersect {
		return fmt.Errorf("%w: --list-a/--list-b/--list-both require --intersect", ErrUsage)
	}
	if (o.ExtractA != "" || o.ExtractB != "") && !o.Intersect {
		return fmt.Errorf("%w: --extract-a/--extract-b require --intersect", ErrUsage)
	}
	if o.RemoveCopies && !o.Intersect {
		return fmt.Errorf("%w: --remove-copies requires --intersect", ErrUsage)
	}
	if o.Intersect && len(o.Roots) < 2 {
		return fmt.Errorf("%w: --intersect requires at least two directories", ErrUsage)
	}
	pairwise := o.ListA || o.ListB || o.ListBoth || o.ExtractA != "" || o.ExtractB != ""
	if o.Intersect && pairwise && len(o.Roots) != 2 {
		return fmt.Errorf("%w: pairwise listing and extraction require exactly two directories", ErrUsage)
	}
	if o.SameFilename && !o.Intersect && !o.HardlinkCopies {
		return fmt.Errorf("%w: --same-filename requires --intersect or --hardlink-copies", ErrUsage)
	}
	if o.DryRun && !o.RemoveCopies && !o.HardlinkCopies {
		return fmt.Errorf("%w: --dry-run is only valid with mutating modes", ErrUsage)
	}
	if o.ReadBench && (o.Stats || o.ListFiles || o.SizeHistogram != "" || o.Intersect ||
		o.HardlinkCopies || o.NewDirDB || o.UpdateDirDB || o.RemoveDirDB || o.GetUniqueHashLen) {
		return fmt.Errorf("%w: --readbench cannot be combined with any other mode", ErrUsage)
	}

	if o.SizeHistogram != "" {
		batch, err := format.ParseSize(o.SizeHistogram)
		if err != nil {
			return fmt.Errorf("%w: --size-histogram: %w", ErrUsage, err)
		}
		o.HistogramBatch = batch
	}
	if o.MaxSize != "" {
		maxSize, err := format.ParseSize(o.MaxSize)
		if err != nil {
			return fmt.Errorf("%w: --max-size: %w", ErrUsage, err)
		}
		o.MaxSizeBytes = maxSize
		o.HasMaxSize = true
	}
	if o.MinSize != "" {
		minSize, err := format.ParseSize(o.MinSize)
		if err != nil {
			return fmt.Errorf("%w: --min-size: %w", ErrUsage, err)
		}
		o.MinSizeBytes = minSize
	}
	o.BufSizeBytes = catalog.DefaultBufSize
	if o.BufSize != "" {
		bufSize, err := format.ParseSize(o.BufSize)
		if err != nil {
			return fmt.Errorf("%w: --bufsize: %w", ErrUsage, err)
		}
		if bufSize == 0 {
			return fmt.Errorf("%w: --bufsize must be greater than 0", ErrUsage)
		}
		o.BufSizeBytes = int(bufSize) //nolint:gosec
	}

	// Default mode when nothing else was selected.
	if !o.Stats && !o.ListFiles && o.SizeHistogram == "" && !o.RemoveDirDB && !o.Intersect &&
		!o.UpdateDirDB && !o.HardlinkCopies && !o.ReadBench && !o.GetUniqueHashLen {
		o.Stats = true
	}

	return nil
}
