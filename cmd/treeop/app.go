package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/desertwitch/treeop/internal/aggregate"
	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/extract"
	"github.com/desertwitch/treeop/internal/format"
	"github.com/desertwitch/treeop/internal/mutate"
	"github.com/desertwitch/treeop/internal/progress"
	"github.com/desertwitch/treeop/internal/readbench"
	"github.com/desertwitch/treeop/internal/walk"
)

// App wires the handlers of one invocation together and runs the
// selected modes in order.
type App struct {
	opts *Options
	out  io.Writer

	catalogs  *catalog.Handler
	walker    *walk.Handler
	mutator   *mutate.Handler
	extractor *extract.Handler
	bench     *readbench.Handler
	tracker   *progress.Tracker
}

// NewApp returns an App over the fully constructed handlers.
func NewApp(opts *Options, out io.Writer, catalogs *catalog.Handler, walker *walk.Handler,
	mutator *mutate.Handler, extractor *extract.Handler, bench *readbench.Handler,
	tracker *progress.Tracker,
) *App {
	return &App{
		opts:      opts,
		out:       out,
		catalogs:  catalogs,
		walker:    walker,
		mutator:   mutator,
		extractor: extractor,
		bench:     bench,
		tracker:   tracker,
	}
}

// Launch runs the selected modes and returns the first error.
func (app *App) Launch() error {
	opts := app.opts

	if opts.RemoveDirDB {
		return app.removeSidecars()
	}
	if opts.ReadBench {
		err := app.bench.Run(opts.Roots, app.out)
		app.finishProgress()

		return err
	}

	db, err := app.loadRoots()
	app.finishProgress()
	if err != nil {
		return err
	}

	if opts.Intersect {
		return app.runIntersect(db)
	}

	if opts.Stats {
		db.RenderStats(app.out)
	}
	if opts.SizeHistogram != "" {
		err := db.RenderSizeHistogram(app.out, opts.HistogramBatch,
			opts.MaxSizeBytes, opts.HasMaxSize, opts.Verbose > 0, opts.Verbose > 1)
		if err != nil {
			return err
		}
	}
	if opts.ListFiles {
		db.ListFiles(app.out, opts.Verbose > 1)
	}
	if opts.GetUniqueHashLen {
		fmt.Fprintf(app.out, "unique-hash-len: %d\n", db.MinUniqueHashBits())
	}
	if opts.HardlinkCopies {
		result, err := app.mutator.HardlinkCopies(db, opts.MinSizeBytes, opts.MaxHardlinks)
		app.printMutationResult(result)
		if err != nil {
			return err
		}
	}

	return nil
}

// loadRoots walks every root with the configured sidecar policy and
// aggregates the catalogs.
func (app *App) loadRoots() (*aggregate.DB, error) {
	opts := app.opts

	policy := walk.PolicyReadOnly
	switch {
	case opts.NewDirDB:
		policy = walk.PolicyForceNew
	case opts.UpdateDirDB:
		policy = walk.PolicyUpdate
	}

	db := aggregate.NewDB(opts.Roots, opts.SameFilename)
	for _, root := range opts.Roots {
		start := time.Now()
		dirs, err := app.walker.LoadTree(root, policy)
		if err != nil {
			return nil, err
		}
		db.AddDirs(dirs)
		db.SetRootElapsed(root, time.Since(start).Seconds())
	}

	return db, nil
}

func (app *App) runIntersect(db *aggregate.DB) error {
	opts := app.opts

	if opts.ExtractA != "" || opts.ExtractB != "" {
		index := db.RootIndex()
		if opts.ExtractA != "" {
			dest, err := walk.NormalizePath(opts.ExtractA)
			if err != nil {
				return err
			}
			copied, err := app.extractor.ExtractUnique(db.Roots[0].Path, dest, index[0], index[1])
			if err != nil {
				return err
			}
			slog.Info("Extracted files unique to A.", "count", copied, "dest", dest)
		}
		if opts.ExtractB != "" {
			dest, err := walk.NormalizePath(opts.ExtractB)
			if err != nil {
				return err
			}
			copied, err := app.extractor.ExtractUnique(db.Roots[1].Path, dest, index[1], index[0])
			if err != nil {
				return err
			}
			slog.Info("Extracted files unique to B.", "count", copied, "dest", dest)
		}
	}

	db.RenderIntersect(app.out, aggregate.IntersectListOptions{
		ListA:    opts.ListA,
		ListB:    opts.ListB,
		ListBoth: opts.ListBoth,
		Verbose:  opts.Verbose,
	})

	if opts.RemoveCopies {
		result, err := app.mutator.RemoveCopies(db)
		app.printMutationResult(result)
		if err != nil {
			return err
		}
	}

	return nil
}

func (app *App) removeSidecars() error {
	for _, root := range app.opts.Roots {
		removed, err := app.walker.RemoveSidecars(root)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s: removed %d %s files\n", root, removed, catalog.SidecarName)
	}

	return nil
}

// printMutationResult reports mutation counters even when the
// operation aborted part-way, so partial work stays visible.
func (app *App) printMutationResult(result mutate.Result) {
	prefix := ""
	if app.opts.DryRun {
		prefix = "would-have-"
	}
	fmt.Fprintf(app.out, "%sremoved-files: %s\n%sremoved-size: %s\n",
		prefix, format.FormatCount(result.RemovedFiles),
		prefix, format.FormatSize(result.RemovedBytes))
}

func (app *App) finishProgress() {
	if app.tracker != nil {
		app.tracker.Finish()
	}
}
