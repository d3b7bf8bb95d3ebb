package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
)

type folderRun struct {
	folder string
	dir    string
	result *imagesweep.BatchResult
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		dir         string
		linksFile   string
		root        string
		startIndex  int
		concurrency int
		retries     int
	)

	cmd := &cobra.Command{
		Use:   "download [url...]",
		Short: "Download images into a directory",
		Long: `Download images into a directory.

Pass URLs as arguments together with --dir, or a links file with --file.
In a links file a line that is not a URL names a folder under --root and
the URLs that follow it are saved there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var batches []imagesweep.FolderBatch
			switch {
			case linksFile != "" && len(args) > 0:
				return errors.New("pass URLs or --file, not both")
			case linksFile != "":
				f, err := os.Open(linksFile)
				if err != nil {
					return fmt.Errorf("open links file: %w", err)
				}
				batches, err = imagesweep.ParseLinkFile(f)
				_ = f.Close()
				if err != nil {
					return err
				}
				if len(batches) == 0 {
					return fmt.Errorf("%s contains no folders with URLs", linksFile)
				}
			case len(args) > 0:
				if strings.TrimSpace(dir) == "" {
					return errors.New("--dir is required when URLs are passed as arguments")
				}
				batches = []imagesweep.FolderBatch{{URLs: args}}
				root = dir
			default:
				return errors.New("nothing to download: pass URLs or --file")
			}

			cfg, release := ctx.library()
			defer release()

			pause := &imagesweep.PauseController{}
			cfg.Session = pause
			stop := watchPauseSignal(cmd.Context(), pause, ctx.logger)
			defer stop()

			opts := ctx.settings.DownloadOpts()
			if cmd.Flags().Changed("start-index") {
				opts.StartIndex = startIndex
			}
			if cmd.Flags().Changed("concurrency") {
				opts.Concurrency = concurrency
			}
			if cmd.Flags().Changed("retries") {
				opts.Retries = retries
				if retries == 0 {
					opts.Retries = -1
				}
			}

			start := time.Now()
			var runs []folderRun
			for _, b := range batches {
				if cmd.Context().Err() != nil {
					break
				}
				target := filepath.Join(root, b.Folder)
				ctx.logger.Info("imagesweep: downloading", "folder", b.Folder, "dir", target, "urls", len(b.URLs))
				res, err := cfg.DownloadAll(cmd.Context(), b.URLs, target, opts)
				if res != nil {
					runs = append(runs, folderRun{folder: b.Folder, dir: target, result: res})
				}
				if err != nil {
					printDownloadSummary(cmd, runs, time.Since(start))
					return err
				}
			}

			printDownloadSummary(cmd, runs, time.Since(start))
			return cmd.Context().Err()
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Target directory for URLs passed as arguments")
	cmd.Flags().StringVarP(&linksFile, "file", "f", "", "Links file grouping URLs by folder")
	cmd.Flags().StringVar(&root, "root", ".", "Parent directory for links file folders")
	cmd.Flags().IntVar(&startIndex, "start-index", imagesweep.DefaultStartIndex, "Number used for the first file name")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Simultaneous fetches (default from config)")
	cmd.Flags().IntVar(&retries, "retries", 0, "Extra attempts per URL, 0 disables (default from config)")
	return cmd
}

func printDownloadSummary(cmd *cobra.Command, runs []folderRun, elapsed time.Duration) {
	if len(runs) == 0 {
		return
	}
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(runs))
	var failures [][]string
	total, saved := 0, 0
	for _, r := range runs {
		name := r.folder
		if name == "" {
			name = r.dir
		}
		n := len(r.result.Results)
		stock := 0
		for _, res := range r.result.Results {
			if res.Outcome == imagesweep.OutcomeSaved && res.License == imagesweep.LicenseStock {
				stock++
			}
		}
		total += n
		saved += r.result.Succeeded
		rows = append(rows, []string{
			name,
			strconv.Itoa(n),
			strconv.Itoa(r.result.Succeeded),
			strconv.Itoa(n - r.result.Succeeded),
			strconv.Itoa(stock),
			formatDuration(r.result.Elapsed),
		})
		for _, f := range r.result.Failures() {
			failures = append(failures, []string{f.URL, f.Outcome.String(), strconv.Itoa(f.Attempts), errString(f.Err)})
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Folder", "URLs", "Saved", "Failed", "Stock", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if len(failures) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"URL", "Outcome", "Attempts", "Error"},
			failures,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "Saved %d of %d images in %s\n", saved, total, formatDuration(elapsed))
}
