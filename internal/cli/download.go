package cli

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cloudtree/cloudtree/internal/config"
	"github.com/cloudtree/cloudtree/internal/constants"
	"github.com/cloudtree/cloudtree/internal/events"
	"github.com/cloudtree/cloudtree/internal/progressui"
	"github.com/cloudtree/cloudtree/internal/rclone"
	"github.com/cloudtree/cloudtree/internal/worker"
)

func newDownloadCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "download <remote:path>... [dest]",
		Short: "Download one or more remote folders",
		Long: `Download remote folders to a local directory. Each source is
copied into <dest>/<folder-name>. With several sources the
transfers run concurrently, one progress bar each.

Examples:
  cloudtree download gdrive:photos/2024 ~/Downloads
  cloudtree download gdrive:docs s3:backup/docs /data`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			sources := args
			// A trailing argument without a remote prefix is the
			// destination directory.
			if last := args[len(args)-1]; !strings.Contains(last, ":") {
				dest = last
				sources = args[:len(args)-1]
			}
			if dest == "" {
				dest = settings.Downloads.DestDir
			}
			if len(sources) == 0 {
				return fmt.Errorf("no sources given")
			}
			for _, s := range sources {
				if !strings.Contains(s, ":") {
					return fmt.Errorf("source %q must include a remote, e.g. gdrive:photos", s)
				}
			}

			if len(sources) == 1 {
				return downloadOne(GetContext(), settings, sources[0], dest)
			}
			return downloadMany(GetContext(), settings, sources, dest)
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination directory (default from settings)")
	return cmd
}

// destFor places a source folder under the destination directory.
func destFor(source, dest string) string {
	base := path.Base(strings.SplitN(source, ":", 2)[1])
	if base == "." || base == "/" || base == "" {
		return dest
	}
	return filepath.Join(dest, base)
}

// downloadOne runs a single transfer behind one progress bar.
func downloadOne(ctx context.Context, settings *config.Settings, source, dest string) error {
	client := newClient(settings)
	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	defer bus.Close()

	target := destFor(source, dest)
	bar := progressui.NewSingleBar(source + " → " + target)

	sub := bus.Subscribe(events.EventProgress)
	go func() {
		for ev := range sub {
			if p, ok := ev.(*events.ProgressEvent); ok {
				bar.Update(rclone.Progress{
					BytesDone:  p.BytesDone,
					BytesTotal: p.BytesTotal,
					Percent:    p.Percent,
					Rate:       p.Rate,
					ETA:        p.ETA,
					HasETA:     p.HasETA,
					RawLine:    p.RawLine,
				})
			}
		}
	}()

	w := worker.New("download", client.Runner(), bus, GetLogger())
	if err := w.Start(ctx, rclone.CopyArgs(source, target, constants.ProgressStatsInterval)...); err != nil {
		bar.Finish(err)
		return &rclone.DownloadError{Source: source, Dest: target, Err: err}
	}

	state := w.Wait()
	switch state {
	case worker.StateCompleted:
		bar.Finish(nil)
		return nil
	case worker.StateCancelled:
		bar.Finish(fmt.Errorf("cancelled"))
		return fmt.Errorf("download of %s cancelled", source)
	default:
		bar.Finish(w.Err())
		return &rclone.DownloadError{Source: source, Dest: target, Err: w.Err()}
	}
}

// downloadMany runs the sources concurrently with one bar per source.
func downloadMany(ctx context.Context, settings *config.Settings, sources []string, dest string) error {
	client := newClient(settings)
	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	defer bus.Close()

	ui := progressui.NewMultiUI(len(sources))
	bars := make(map[string]*progressui.SourceBar, len(sources))

	sub := bus.Subscribe(events.EventProgress)
	go func() {
		for ev := range sub {
			if p, ok := ev.(*events.ProgressEvent); ok {
				if bar := bars[p.JobID]; bar != nil {
					bar.Update(rclone.Progress{
						BytesDone:  p.BytesDone,
						BytesTotal: p.BytesTotal,
						Percent:    p.Percent,
						Rate:       p.Rate,
						ETA:        p.ETA,
						HasETA:     p.HasETA,
						RawLine:    p.RawLine,
					})
				}
			}
		}
	}()

	// Register every bar before any worker can publish, the routing
	// goroutine reads the map unlocked.
	type job struct {
		w      *worker.Worker
		bar    *progressui.SourceBar
		source string
		target string
	}
	jobs := make([]job, len(sources))
	for i, source := range sources {
		jobID := fmt.Sprintf("download-%d", i+1)
		bar := ui.AddBar(i+1, source)
		bars[jobID] = bar
		jobs[i] = job{
			w:      worker.New(jobID, client.Runner(), bus, GetLogger()),
			bar:    bar,
			source: source,
			target: destFor(source, dest),
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		w, bar, src, target := j.w, j.bar, j.source, j.target
		eg.Go(func() error {
			if err := w.Start(egCtx, rclone.CopyArgs(src, target, constants.ProgressStatsInterval)...); err != nil {
				bar.Complete(err)
				return &rclone.DownloadError{Source: src, Dest: target, Err: err}
			}
			switch w.Wait() {
			case worker.StateCompleted:
				bar.Complete(nil)
				return nil
			case worker.StateCancelled:
				bar.Complete(fmt.Errorf("cancelled"))
				return fmt.Errorf("download of %s cancelled", src)
			default:
				bar.Complete(w.Err())
				return &rclone.DownloadError{Source: src, Dest: target, Err: w.Err()}
			}
		})
	}

	err := eg.Wait()
	ui.Wait()
	return err
}
