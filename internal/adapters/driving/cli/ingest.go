package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/logger"
	"github.com/migratio-labs/ragserve/internal/normalisers"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest documents into the vector store",
	Long: `Chunks, embeds, and stores the file or directory at the given path.
Already-ingested content is detected by hash and skipped, so re-running
over the same corpus is cheap and safe.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the path and re-ingest on changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	ctx := cmd.Context()

	report, err := ingestService.IngestPath(ctx, path)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printReport(cmd, report)

	if !ingestWatch {
		return nil
	}
	return watchPath(cmd, path)
}

// printReport summarises one ingestion run.
func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Files processed: %d\n", report.FilesProcessed)
	cmd.Printf("Chunks stored:   %d\n", report.ChunksStored)
	cmd.Printf("Chunks skipped:  %d (already present)\n", report.ChunksSkipped)
	if report.ChunksFailed > 0 {
		cmd.Printf("Chunks failed:   %d\n", report.ChunksFailed)
		for _, f := range report.Failures {
			if f.ChunkIndex < 0 {
				cmd.Printf("  %s: %v\n", f.File, f.Err)
				continue
			}
			cmd.Printf("  %s (chunk %d): %v\n", f.File, f.ChunkIndex, f.Err)
		}
	}
}

// watchPath re-ingests files as they change until interrupted.
func watchPath(cmd *cobra.Command, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory itself plus any subdirectories.
	if err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	cmd.Printf("Watching %s for changes (Ctrl-C to stop)\n", path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopping watch.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue // Deleted or renamed mid-event.
			}
			if info.IsDir() {
				if event.Has(fsnotify.Create) {
					_ = watcher.Add(event.Name)
				}
				continue
			}
			if normalisers.ForPath(event.Name) == nil {
				continue
			}

			logger.Debug("change detected: %s", event.Name)
			report, err := ingestService.IngestFile(ctx, event.Name)
			if err != nil {
				logger.Warn("re-ingest %s: %v", event.Name, err)
				continue
			}
			if report.ChunksStored > 0 {
				cmd.Printf("Re-ingested %s: %d chunks stored, %d skipped\n",
					event.Name, report.ChunksStored, report.ChunksSkipped)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}
