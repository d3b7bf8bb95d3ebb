package imagesweep

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Mode selects how ResolveDuplicates handles a duplicate.
type Mode int

const (
	ModeRename   Mode = iota // rename to <stem>_duplicate_<n><ext>
	ModeUniquify             // mutate until the fingerprint no longer matches
)

func (m Mode) String() string {
	switch m {
	case ModeRename:
		return "rename"
	case ModeUniquify:
		return "uniquify"
	default:
		return "unknown"
	}
}

// ParseMode accepts "rename" or "uniquify".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rename":
		return ModeRename, nil
	case "uniquify":
		return ModeUniquify, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want rename or uniquify)", s)
	}
}

// Status is the final state of one file after resolution.
type Status int

const (
	StatusUnique  Status = iota // no earlier file matches
	StatusRenamed               // duplicate renamed, see Resolution.NewPath
	StatusMutated               // rewritten with a fingerprint that no longer matches
	StatusGaveUp                // still a duplicate after MaxUniquifyAttempts, left untouched
	StatusFailed                // I/O, decode or encode error
)

var statusNames = [...]string{
	StatusUnique:  "unique",
	StatusRenamed: "renamed",
	StatusMutated: "mutated",
	StatusGaveUp:  "gave_up",
	StatusFailed:  "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Statuses lists every Status in declaration order.
func Statuses() []Status {
	out := make([]Status, len(statusNames))
	for i := range out {
		out[i] = Status(i)
	}
	return out
}

// Resolution records what happened to one file.
type Resolution struct {
	Path        string
	Original    string // file it duplicated, empty for StatusUnique
	Status      Status
	NewPath     string // set for StatusRenamed
	Attempts    int    // mutation rounds performed
	Mutations   []Mutation  // kinds applied by the last attempt
	Fingerprint Fingerprint // final fingerprint of the file
	Err         error
}

// Report is the outcome of a ResolveDuplicates or UniquifyAll run.
type Report struct {
	Dir         string
	Mode        Mode
	Resolutions []Resolution // scan order
	Elapsed     time.Duration
}

// Counts returns the number of resolutions per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int, len(statusNames))
	for _, res := range r.Resolutions {
		counts[res.Status]++
	}
	return counts
}

// ResolveDuplicates scans dir and handles every duplicate according to mode.
// Per-file failures are reported as StatusFailed; only an unreadable dir or
// cancellation is returned as an error. On cancellation the partial report
// is returned alongside ctx.Err().
func (cfg *Config) ResolveDuplicates(ctx context.Context, dir string, mode Mode) (*Report, error) {
	cfg.defaults()
	start := time.Now()

	scan, err := cfg.Classify(ctx, dir, ScanOpts{SkipFlagged: mode == ModeRename})
	if err != nil {
		return nil, err
	}

	dups := make(map[string]Duplicate, len(scan.Duplicates))
	for _, d := range scan.Duplicates {
		dups[d.Path] = d
	}

	report := &Report{Dir: dir, Mode: mode}
	names := newNamer()

	for _, rec := range scan.Records {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}

		d, isDup := dups[rec.Path]
		var res Resolution
		switch {
		case !isDup:
			res = Resolution{Path: rec.Path, Status: StatusUnique, Fingerprint: rec.Fingerprint}
		case mode == ModeRename:
			res = cfg.rename(d, names)
		default:
			res = cfg.Uniquify(ctx, d, scan.Index)
		}
		cfg.emitResolution(report, res)
	}
	for _, f := range scan.Failed {
		cfg.emitResolution(report, Resolution{Path: f.Path, Status: StatusFailed, Err: f.Err})
	}

	report.Elapsed = time.Since(start)
	cfg.Logger.Info("imagesweep: duplicates resolved",
		"dir", dir, "mode", mode.String(), "files", len(report.Resolutions),
		"elapsed", report.Elapsed)
	return report, nil
}

func (cfg *Config) rename(d Duplicate, names *namer) Resolution {
	res := Resolution{Path: d.Path, Original: d.Original, Fingerprint: d.Fingerprint}

	target, err := names.next(d.Path)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if err := os.Rename(d.Path, target); err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("rename %s: %w", d.Path, err)
		return res
	}

	cfg.Logger.Debug("imagesweep: duplicate renamed", "path", d.Path, "new_path", target, "original", d.Original)
	res.Status, res.NewPath = StatusRenamed, target
	return res
}

func (cfg *Config) emitResolution(report *Report, res Resolution) {
	report.Resolutions = append(report.Resolutions, res)
	if cfg.OnResolve != nil {
		cfg.OnResolve(res)
	}
}
