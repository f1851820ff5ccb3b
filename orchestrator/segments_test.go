package orchestrator

import (
	"reflect"
	"strings"
	"testing"
)

func words(ws ...Word) []Word { return ws }

func TestBuildSegmentsSplitsOnGap(t *testing.T) {
	src := []SourceWords{{File: "a.mp3", Words: words(
		Word{"a", 0, 1},
		Word{"b", 1.2, 2},
		Word{"c", 5, 6},
	)}}
	got := BuildSegments(src, SegmentOptions{MaxGap: 0.6, MaxChars: 300})
	want := []Segment{
		{Index: 0, Start: 0, End: 2, Text: "a b", SourceFile: "a.mp3"},
		{Index: 1, Start: 5, End: 6, Text: "c", SourceFile: "a.mp3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("segments = %+v, want %+v", got, want)
	}
}

func TestBuildSegmentsMaxChars(t *testing.T) {
	src := []SourceWords{{File: "a.mp3", Words: words(
		Word{"aaaa", 0, 1},
		Word{"bbbb", 1, 2},
		Word{"cccc", 2, 3},
	)}}
	got := BuildSegments(src, SegmentOptions{MaxGap: 0.6, MaxChars: 9})
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %+v", got)
	}
	if got[0].Text != "aaaa bbbb" || got[1].Text != "cccc" {
		t.Fatalf("unexpected texts %q / %q", got[0].Text, got[1].Text)
	}
	if got[1].Start != 2 || got[1].End != 3 {
		t.Fatalf("second segment bounds = [%v, %v]", got[1].Start, got[1].End)
	}
}

func TestBuildSegmentsCountsRunes(t *testing.T) {
	// 4 runes each, 8 bytes each
	src := []SourceWords{{File: "a.mp3", Words: words(
		Word{"éééé", 0, 1},
		Word{"àààà", 1, 2},
	)}}
	got := BuildSegments(src, SegmentOptions{MaxGap: 0.6, MaxChars: 9})
	if len(got) != 1 || got[0].Text != "éééé àààà" {
		t.Fatalf("expected one segment, got %+v", got)
	}
}

func TestBuildSegmentsNeverSpansFiles(t *testing.T) {
	src := []SourceWords{
		{File: "a.mp3", Words: words(Word{"one", 0, 1}, Word{"two", 1, 2})},
		{File: "b.mp3", Words: words(Word{"three", 2, 3})},
	}
	got := BuildSegments(src, SegmentOptions{})
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %+v", got)
	}
	if got[0].SourceFile != "a.mp3" || got[1].SourceFile != "b.mp3" {
		t.Fatalf("unexpected files %q %q", got[0].SourceFile, got[1].SourceFile)
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("indices not global: %d %d", got[0].Index, got[1].Index)
	}
}

func TestBuildSegmentsDropsZeroLength(t *testing.T) {
	src := []SourceWords{{File: "a.mp3", Words: words(
		Word{"blip", 3, 3},
		Word{"real", 10, 11},
	)}}
	got := BuildSegments(src, SegmentOptions{MaxGap: 0.6})
	if len(got) != 1 || got[0].Text != "real" || got[0].Index != 0 {
		t.Fatalf("unexpected segments %+v", got)
	}
}

func TestBuildSegmentsInvariants(t *testing.T) {
	var ws []Word
	for i := 0; i < 200; i++ {
		// a 2s pause every 17 words
		start := float64(i)*0.5 + float64(i/17)*2
		ws = append(ws, Word{Text: strings.Repeat("x", 1+i%9), Start: start, End: start + 0.4})
	}
	src := []SourceWords{{File: "a.mp3", Words: ws}}
	opts := SegmentOptions{MaxGap: 0.6, MaxChars: 40}

	first := BuildSegments(src, opts)
	second := BuildSegments(src, opts)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("segmentation is not deterministic")
	}
	for i, s := range first {
		if s.Index != i {
			t.Fatalf("segment %d has index %d", i, s.Index)
		}
		if !(s.Start < s.End) {
			t.Fatalf("segment %d has start %v >= end %v", i, s.Start, s.End)
		}
		if s.Text != strings.TrimSpace(s.Text) {
			t.Fatalf("segment %d text not trimmed: %q", i, s.Text)
		}
		if n := len([]rune(s.Text)); n > opts.MaxChars {
			t.Fatalf("segment %d has %d chars", i, n)
		}
	}
}

func TestBuildSegmentsEmpty(t *testing.T) {
	if got := BuildSegments(nil, SegmentOptions{}); len(got) != 0 {
		t.Fatalf("expected no segments, got %+v", got)
	}
	if got := BuildSegments([]SourceWords{{File: "a.mp3"}}, SegmentOptions{}); len(got) != 0 {
		t.Fatalf("expected no segments, got %+v", got)
	}
}
