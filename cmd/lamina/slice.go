package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/chazu/lamina/pkg/gcode"
	"github.com/chazu/lamina/pkg/logging"
	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/progress"
)

// settle is how long the watcher waits for writes to stop before slicing.
const settle = 300 * time.Millisecond

type sliceOptions struct {
	output string
	watch  bool
}

func newSliceCmd(root *rootOptions) *cobra.Command {
	o := &sliceOptions{}
	cmd := &cobra.Command{
		Use:   "slice FILE",
		Short: "Slice a model, job or plate script into G-code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(root)
			if o.watch {
				return a.watch(cmd.Context(), args[0], o, cmd.ErrOrStderr())
			}
			stats, err := a.slice(cmd.Context(), args[0], o.output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), stats)
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "G-code file (default: input name with .gcode)")
	cmd.Flags().BoolVarP(&o.watch, "watch", "w", false, "slice again whenever the input or settings change")
	return cmd
}

func outputPath(in, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".gcode"
}

// slice runs the whole pipeline for in. Output "-" writes to stdout.
func (a *app) slice(ctx context.Context, in, out string, stdout io.Writer) (gcode.Stats, error) {
	j, err := a.load(in)
	if err != nil {
		return gcode.Stats{}, err
	}
	pl := pipeline.New(j.snap, progress.NewLogProgress())
	pl.Pinned = j.pinned

	out = outputPath(in, out)
	if out == "-" {
		return pl.Run(ctx, stdout, j.instances)
	}
	f, err := os.Create(out)
	if err != nil {
		return gcode.Stats{}, err
	}
	stats, err := pl.Run(ctx, f, j.instances)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return gcode.Stats{}, err
	}
	logging.Logger().Info("sliced", "input", in, "output", out)
	return stats, nil
}

// watch slices in, then again after every change to the input or its
// settings file, until ctx is done. A change during a run cancels it.
func (a *app) watch(ctx context.Context, in string, o *sliceOptions, log io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := map[string]bool{}
	add := func(files []string) {
		for _, f := range files {
			dir := filepath.Dir(f)
			if watched[dir] {
				continue
			}
			if err := w.Add(dir); err != nil {
				logging.Logger().Warn("cannot watch", "dir", dir, "err", err)
				continue
			}
			watched[dir] = true
		}
	}
	relevant := map[string]bool{}
	files := []string{in}
	if a.opts.config != "" {
		files = append(files, a.opts.config)
	}

	cancel := context.CancelFunc(func() {})
	running := make(chan struct{})
	close(running)
	// run cancels the current run and waits for it, so two runs never
	// write the output at once.
	run := func() {
		cancel()
		<-running
		runCtx, c := context.WithCancel(ctx)
		cancel = c
		finished := make(chan struct{})
		running = finished
		go func() {
			defer close(finished)
			stats, err := a.slice(runCtx, in, o.output, io.Discard)
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, progress.ErrCanceled):
			case err != nil:
				fmt.Fprintln(log, "lamina:", err)
			default:
				fmt.Fprintln(log, stats)
			}
		}()
	}
	stop := func() {
		cancel()
		<-running
	}

	for _, f := range files {
		relevant[filepath.Clean(f)] = true
	}
	add(files)
	if j, err := a.load(in); err == nil {
		for _, f := range j.files {
			relevant[filepath.Clean(f)] = true
		}
		add(j.files)
	}
	run()

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				stop()
				return nil
			}
			if relevant[filepath.Clean(ev.Name)] && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				stop()
				return nil
			}
			logging.Logger().Warn("watch error", "err", err)
		case <-timer.C:
			logging.Logger().Info("input changed, slicing again", "input", in)
			run()
		}
	}
}
