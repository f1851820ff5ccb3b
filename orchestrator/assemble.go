package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Media is the trim/concat collaborator. Both operations must fail loudly.
type Media interface {
	Trim(ctx context.Context, src string, start, end float64, dst string) error
	Concat(ctx context.Context, parts []string, dst string) error
	Duration(ctx context.Context, path string) (float64, error)
}

type AssembleOptions struct {
	WorkDir string
	Workers int
	// SourceDurations clamps clip ends to the probed length of their file when known.
	SourceDurations map[string]float64
}

type AssembleReport struct {
	// Parts is zero when no clip had a positive duration; outPath is then not written.
	Parts    int
	Skipped  int
	Duration float64 // sec, probed from the output
}

// Assemble trims every usable clip into its own part, then concatenates the
// parts in order into outPath.
func Assemble(ctx context.Context, media Media, clips []SelectedClip, outPath string, opts AssembleOptions, log logrus.FieldLogger) (AssembleReport, error) {
	var report AssembleReport

	type job struct {
		clip SelectedClip
		part string
	}
	var jobs []job
	for _, c := range clips {
		start, end := clampClip(c, opts.SourceDurations[c.SourceFile])
		if start >= end {
			report.Skipped++
			log.WithFields(logrus.Fields{"file": c.SourceFile, "start": c.Start, "end": c.End}).Debug("skipping degenerate clip")
			continue
		}
		c.Start, c.End = start, end
		part := filepath.Join(opts.WorkDir, fmt.Sprintf("part_%04d%s", len(jobs), filepath.Ext(outPath)))
		jobs = append(jobs, job{clip: c, part: part})
	}
	if len(jobs) == 0 {
		log.WithField("skipped", report.Skipped).Info("no clip to assemble, reel left empty")
		return report, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := newSemaphore(workers)
	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		if err := sem.acquire(ctx); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			defer sem.release()
			if err := media.Trim(ctx, j.clip.SourceFile, j.clip.Start, j.clip.End, j.part); err != nil {
				errs[i] = fmt.Errorf("trim %s [%.2f, %.2f]: %w", filepath.Base(j.clip.SourceFile), j.clip.Start, j.clip.End, err)
			}
		}(i, j)
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return report, err
	}

	parts := make([]string, 0, len(jobs))
	for _, j := range jobs {
		parts = append(parts, j.part)
	}
	if err := media.Concat(ctx, parts, outPath); err != nil {
		return report, fmt.Errorf("concat %d parts: %w", len(parts), err)
	}
	report.Parts = len(parts)

	dur, err := media.Duration(ctx, outPath)
	if err != nil {
		log.WithError(err).Warn("could not probe assembled reel duration")
	}
	report.Duration = dur
	return report, nil
}

func clampClip(c SelectedClip, sourceDur float64) (float64, float64) {
	start := max(c.Start, 0)
	end := max(c.End, start)
	if sourceDur > 0 {
		end = min(end, sourceDur)
	}
	return start, end
}
