package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
)

func newFindDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var skipFlagged bool

	cmd := &cobra.Command{
		Use:   "find-duplicates <dir>",
		Short: "List perceptual duplicates without changing files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := requireDir(args[0])
			if err != nil {
				return err
			}
			cfg, release := ctx.library()
			defer release()

			cls, err := cfg.Classify(cmd.Context(), dir, imagesweep.ScanOpts{SkipFlagged: skipFlagged})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(cls.Duplicates) > 0 {
				rows := make([][]string, 0, len(cls.Duplicates))
				for _, d := range cls.Duplicates {
					rows = append(rows, []string{filepath.Base(d.Path), filepath.Base(d.Original), d.Fingerprint.String()})
				}
				fmt.Fprintln(out, renderTable([]string{"Duplicate", "Original", "Fingerprint"}, rows, nil))
			}
			printFileErrors(cmd, cls.Failed)
			fmt.Fprintf(out, "%d files, %d unique, %d duplicates, %d unreadable\n",
				len(cls.Records)+len(cls.Failed), len(cls.Unique), len(cls.Duplicates), len(cls.Failed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipFlagged, "skip-flagged", false, "Ignore files already renamed as duplicates")
	return cmd
}

func newUniquifyCommand(ctx *commandContext) *cobra.Command {
	var (
		mode string
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "uniquify <dir>",
		Short: "Rename or mutate duplicates so every image is unique",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := imagesweep.ParseMode(mode)
			if err != nil {
				return err
			}
			dir, err := requireDir(args[0])
			if err != nil {
				return err
			}
			if err := confirm(cmd, fmt.Sprintf("Resolve duplicates in %s by %s?", dir, m), yes); err != nil {
				return err
			}
			lock, err := lockDir(dir)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			cfg, release := ctx.library()
			defer release()

			report, err := cfg.ResolveDuplicates(cmd.Context(), dir, m)
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", imagesweep.ModeRename.String(), "Resolution mode: rename or uniquify")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newUniquifyAllCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "uniquify-all <dir>",
		Short: "Mutate every image once so none matches its source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := requireDir(args[0])
			if err != nil {
				return err
			}
			if err := confirm(cmd, fmt.Sprintf("Rewrite every image in %s?", dir), yes); err != nil {
				return err
			}
			lock, err := lockDir(dir)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			cfg, release := ctx.library()
			defer release()

			report, err := cfg.UniquifyAll(cmd.Context(), dir)
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func printReport(cmd *cobra.Command, report *imagesweep.Report) {
	out := cmd.OutOrStdout()

	var rows [][]string
	for _, r := range report.Resolutions {
		if r.Status == imagesweep.StatusUnique {
			continue
		}
		rows = append(rows, []string{filepath.Base(r.Path), r.Status.String(), resolutionDetail(r)})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"File", "Status", "Detail"}, rows, nil))
	}

	counts := report.Counts()
	parts := make([]string, 0, len(counts))
	for _, s := range imagesweep.Statuses() {
		if n := counts[s]; n > 0 {
			parts = append(parts, s.String()+"="+strconv.Itoa(n))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no images")
	}
	fmt.Fprintf(out, "%s: %s in %s\n", report.Dir, strings.Join(parts, " "), formatDuration(report.Elapsed))
}

func resolutionDetail(r imagesweep.Resolution) string {
	switch r.Status {
	case imagesweep.StatusRenamed:
		return "-> " + filepath.Base(r.NewPath)
	case imagesweep.StatusMutated, imagesweep.StatusGaveUp:
		kinds := make([]string, 0, len(r.Mutations))
		for _, m := range r.Mutations {
			kinds = append(kinds, m.String())
		}
		return fmt.Sprintf("%d attempts (%s)", r.Attempts, strings.Join(kinds, ","))
	default:
		return errString(r.Err)
	}
}

func printFileErrors(cmd *cobra.Command, failed []imagesweep.FileError) {
	if len(failed) == 0 {
		return
	}
	rows := make([][]string, 0, len(failed))
	for _, f := range failed {
		rows = append(rows, []string{filepath.Base(f.Path), errString(f.Err)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Unreadable", "Error"}, rows, nil))
}
