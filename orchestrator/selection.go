package orchestrator

import (
	"sort"
	"strings"
)

const (
	// OvershootAllowance lets the last accepted pick exceed the target by 3%.
	OvershootAllowance = 1.03
	// MergeGap is the largest gap (sec) between two clips of one file that are coalesced.
	MergeGap = 0.2

	labelSeparator = " | "
)

// SelectClips greedily picks the highest scoring segments until the
// accumulated duration reaches targetSeconds, then coalesces neighbours.
func SelectClips(segs []Segment, targetSeconds float64) []SelectedClip {
	if targetSeconds < 0 {
		targetSeconds = 0
	}
	ranked := append([]Segment(nil), segs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if da, db := a.Duration(), b.Duration(); da != db {
			return da > db
		}
		return a.Index < b.Index
	})

	limit := targetSeconds * OvershootAllowance
	var (
		picked []Segment
		total  float64
	)
	for i := 0; i < len(ranked) && !budgetReached(total, targetSeconds); i++ {
		d := ranked[i].Duration()
		if total+d <= limit {
			picked = append(picked, ranked[i])
			total += d
		}
	}

	return coalesce(chronological(picked, fileRanks(segs)))
}

func budgetReached(total, target float64) bool { return total >= target }

// fileRanks orders source files by their first segment index.
func fileRanks(segs []Segment) map[string]int {
	ranks := map[string]int{}
	byIndex := append([]Segment(nil), segs...)
	sort.Slice(byIndex, func(i, j int) bool { return byIndex[i].Index < byIndex[j].Index })
	for _, s := range byIndex {
		if _, ok := ranks[s.SourceFile]; !ok {
			ranks[s.SourceFile] = len(ranks)
		}
	}
	return ranks
}

func chronological(picked []Segment, ranks map[string]int) []Segment {
	sort.SliceStable(picked, func(i, j int) bool {
		a, b := picked[i], picked[j]
		if ra, rb := ranks[a.SourceFile], ranks[b.SourceFile]; ra != rb {
			return ra < rb
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Index < b.Index
	})
	return picked
}

// coalesce merges clips of the same file separated by less than MergeGap.
// Clips of different files are never merged, whatever their timestamps.
func coalesce(picked []Segment) []SelectedClip {
	var (
		out    []SelectedClip
		labels [][]string
	)
	for _, s := range picked {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.SourceFile == s.SourceFile && s.Start-prev.End < MergeGap {
				prev.End = max(prev.End, s.End)
				prev.Score = max(prev.Score, s.Score)
				labels[n-1] = appendLabel(labels[n-1], s.Label)
				prev.Label = strings.Join(labels[n-1], labelSeparator)
				continue
			}
		}
		out = append(out, SelectedClip{
			Start:      s.Start,
			End:        s.End,
			SourceFile: s.SourceFile,
			Label:      strings.TrimSpace(s.Label),
			Score:      s.Score,
		})
		labels = append(labels, appendLabel(nil, s.Label))
	}
	return out
}

func appendLabel(labels []string, label string) []string {
	label = strings.TrimSpace(label)
	if label == "" {
		return labels
	}
	for _, l := range labels {
		if l == label {
			return labels
		}
	}
	return append(labels, label)
}
