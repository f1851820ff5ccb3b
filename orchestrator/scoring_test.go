package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/maastricht-university/bestof/clients"
)

func makeSegments(n int) []Segment {
	segs := make([]Segment, n)
	for i := range segs {
		segs[i] = Segment{
			Index:      i,
			Start:      float64(i),
			End:        float64(i) + 0.5,
			Text:       "segment",
			SourceFile: "a.mp3",
		}
	}
	return segs
}

func TestScoreSegmentsCoverage(t *testing.T) {
	segs := makeSegments(320)
	log, hook := logtest.NewNullLogger()

	var sizes []int
	call := 0
	score := func(ctx context.Context, batch []clients.ScoreItem) ([]clients.ScoreEntry, error) {
		call++
		sizes = append(sizes, len(batch))
		switch call {
		case 1:
			// partial answer plus an index that does not exist
			return []clients.ScoreEntry{
				{Index: 0, Score: 4, Label: "insight"},
				{Index: 3, Score: 2.5},
				{Index: 9999, Score: 5},
			}, nil
		case 2:
			return nil, errors.New("oracle unavailable")
		default:
			out := make([]clients.ScoreEntry, 0, len(batch))
			for _, it := range batch {
				out = append(out, clients.ScoreEntry{Index: it.Index, Score: 1, Label: "tail"})
			}
			return out, nil
		}
	}

	report := ScoreSegments(context.Background(), segs, ScoringOptions{}, score, log)

	if len(segs) != 320 {
		t.Fatalf("segment count changed to %d", len(segs))
	}
	if want := []int{150, 150, 20}; !equalInts(sizes, want) {
		t.Fatalf("batch sizes = %v, want %v", sizes, want)
	}
	if report.Batches != 3 || report.FailedBatches != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Scored != 2+20 {
		t.Fatalf("scored = %d, want 22", report.Scored)
	}
	if segs[0].Score != 4 || segs[0].Label != "insight" {
		t.Fatalf("segment 0 = %+v", segs[0])
	}
	if segs[3].Score != 2.5 || segs[3].Label != "" {
		t.Fatalf("segment 3 = %+v", segs[3])
	}
	if segs[1].Score != 0 || segs[1].Label != "" {
		t.Fatalf("unscored segment should default to 0, got %+v", segs[1])
	}
	for _, s := range segs[150:300] {
		if s.Score != 0 || s.Label != "" {
			t.Fatalf("failed batch segment %d = %+v", s.Index, s)
		}
	}
	if segs[319].Score != 1 || segs[319].Label != "tail" {
		t.Fatalf("segment 319 = %+v", segs[319])
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a warning for the failed batch")
	}
}

func TestScoreSegmentsResetsStaleScores(t *testing.T) {
	segs := makeSegments(2)
	segs[1].Score, segs[1].Label = 9, "stale"
	log, _ := logtest.NewNullLogger()
	score := func(ctx context.Context, batch []clients.ScoreItem) ([]clients.ScoreEntry, error) {
		return []clients.ScoreEntry{{Index: 0, Score: 3}}, nil
	}
	ScoreSegments(context.Background(), segs, ScoringOptions{}, score, log)
	if segs[1].Score != 0 || segs[1].Label != "" {
		t.Fatalf("segment 1 = %+v", segs[1])
	}
}

func TestProjectRoundsAndTruncates(t *testing.T) {
	batch := []Segment{{
		Index: 7,
		Start: 1.23456,
		End:   9.87654,
		Text:  strings.Repeat("é", 10),
	}}
	items := project(batch, 4)
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	got := items[0]
	if got.Index != 7 || got.Start != 1.23 || got.End != 9.88 {
		t.Fatalf("projection = %+v", got)
	}
	if got.Text != "éééé" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestBatchesEmpty(t *testing.T) {
	if got := batches(nil, 150); len(got) != 0 {
		t.Fatalf("expected no batches, got %d", len(got))
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
