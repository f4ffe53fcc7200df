package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/configuration"
	"github.com/desertwitch/treeop/internal/extract"
	"github.com/desertwitch/treeop/internal/mutate"
	"github.com/desertwitch/treeop/internal/progress"
	"github.com/desertwitch/treeop/internal/readbench"
	"github.com/desertwitch/treeop/internal/schema"
	"github.com/desertwitch/treeop/internal/ui"
	"github.com/desertwitch/treeop/internal/walk"
	"github.com/lmittmann/tint"
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string
)

func setupLogging(verbose int) {
	level := slog.LevelInfo
	if verbose > 0 {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()
}

func startApp(wg *sync.WaitGroup, app *App, uiHandler *ui.Handler) {
	defer wg.Done()

	if uiHandler != nil {
		defer uiHandler.Quit()

		slog.Info("Waiting for UI...")
		for !uiHandler.Ready.Load() && !uiHandler.Failed.Load() {
			time.Sleep(10 * time.Millisecond) //nolint:mnd
		}
	}

	if err := app.Launch(); err != nil {
		slog.Error("Failure during operation.", "err", err)
		ExitCode = 1
	}
}

func startUI(wg *sync.WaitGroup, uiHandler *ui.Handler) {
	defer wg.Done()

	if uiHandler != nil {
		defer setupLogging(0)

		if err := uiHandler.Launch(); err != nil {
			slog.Error("UI failure: falling back to terminal.", "err", err)
		}
	}
}

//nolint:funlen
func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupLogging(0)

	configHandler := configuration.NewHandler(&configuration.GodotenvProvider{})
	if err := configHandler.Load(configuration.DefaultPaths()...); err != nil {
		slog.Warn("Ignoring unreadable configuration file.", "err", err)
	}

	opts, err := parseOptions("treeop", os.Args[1:], configHandler)
	if err != nil {
		slog.Error("Invalid command line.", "err", err)
		ExitCode = 1

		return
	}
	setupLogging(opts.Verbose)

	osProvider := &schema.OS{}
	unixProvider := &schema.Unix{}

	var reporter catalog.Reporter
	var tracker *progress.Tracker
	var uiHandler *ui.Handler

	switch {
	case opts.UI:
		// The dashboard owns the terminal; route interrupts through it.
		setupSignalHandlers(cancel)
		state := ui.NewScanState()
		uiHandler = ui.NewHandler(ctx, cancel, state)
		reporter = state
	case opts.Progress > 0:
		tracker = progress.NewTracker(os.Stdout, opts.Width, opts.Progress > 1)
		reporter = tracker
	}

	catalogHandler := catalog.NewHandler(osProvider, unixProvider, opts.BufSizeBytes, reporter)
	walkHandler := walk.NewHandler(osProvider, catalogHandler)
	mutateHandler := mutate.NewHandler(osProvider, unixProvider, walkHandler, opts.DryRun)
	extractHandler := extract.NewHandler(osProvider)
	benchHandler := readbench.NewHandler(osProvider, opts.BufSizeBytes, reporter)

	app := NewApp(opts, os.Stdout, catalogHandler, walkHandler,
		mutateHandler, extractHandler, benchHandler, tracker)

	var wg sync.WaitGroup

	wg.Add(1)
	go startUI(&wg, uiHandler)

	wg.Add(1)
	go startApp(&wg, app, uiHandler)

	wg.Wait()

	if opts.Verbose > 0 {
		slog.Debug("Done.")
	}
}
