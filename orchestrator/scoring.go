package orchestrator

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/bestof/clients"
)

const (
	DefaultBatchSize    = 150
	DefaultMaxTextChars = 3000
)

// ScoreFunc is the single boundary to the relevance oracle.
type ScoreFunc func(ctx context.Context, batch []clients.ScoreItem) ([]clients.ScoreEntry, error)

type ScoringOptions struct {
	BatchSize    int
	MaxTextChars int
}

type ScoreReport struct {
	Batches       int
	FailedBatches int
	Scored        int // segments that received an oracle result
}

// ScoreSegments enriches segs in place with score and label. Oracle failures
// only downgrade the affected batch to score 0.
func ScoreSegments(ctx context.Context, segs []Segment, opts ScoringOptions, score ScoreFunc, log logrus.FieldLogger) ScoreReport {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxTextChars <= 0 {
		opts.MaxTextChars = DefaultMaxTextChars
	}

	var report ScoreReport
	results := map[int]ScoreResult{}
	for _, batch := range batches(segs, opts.BatchSize) {
		report.Batches++
		entries, err := score(ctx, project(batch, opts.MaxTextChars))
		if err != nil {
			report.FailedBatches++
			log.WithFields(logrus.Fields{
				"batch":    report.Batches,
				"segments": len(batch),
			}).WithError(err).Warn("scoring batch failed, defaulting to 0")
			continue
		}
		for _, e := range entries {
			results[e.Index] = ScoreResult{Index: e.Index, Score: e.Score, Label: e.Label}
		}
	}

	for i := range segs {
		r, ok := results[segs[i].Index]
		if !ok {
			segs[i].Score, segs[i].Label = 0, ""
			continue
		}
		segs[i].Score, segs[i].Label = r.Score, r.Label
		report.Scored++
	}
	return report
}

// batches splits segs into consecutive non-empty chunks of at most size.
func batches(segs []Segment, size int) [][]Segment {
	var out [][]Segment
	for start := 0; start < len(segs); start += size {
		end := min(start+size, len(segs))
		out = append(out, segs[start:end])
	}
	return out
}

func project(batch []Segment, maxChars int) []clients.ScoreItem {
	items := make([]clients.ScoreItem, 0, len(batch))
	for _, s := range batch {
		items = append(items, clients.ScoreItem{
			Index: s.Index,
			Start: round2(s.Start),
			End:   round2(s.End),
			Text:  truncateRunes(s.Text, maxChars),
		})
	}
	return items
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
