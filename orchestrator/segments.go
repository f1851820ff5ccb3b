package orchestrator

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxGap   = 0.6
	DefaultMaxChars = 300
)

type SegmentOptions struct {
	MaxGap   float64 // sec of silence that closes a segment
	MaxChars int
}

func (o SegmentOptions) withDefaults() SegmentOptions {
	if o.MaxGap <= 0 {
		o.MaxGap = DefaultMaxGap
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	return o
}

// BuildSegments segments every source independently and assigns global
// indices in emission order. Segments never span two sources.
func BuildSegments(sources []SourceWords, opts SegmentOptions) []Segment {
	opts = opts.withDefaults()
	var out []Segment
	for _, src := range sources {
		out = append(out, segmentWords(src.File, src.Words, opts)...)
	}
	for i := range out {
		out[i].Index = i
	}
	return out
}

type accumulator struct {
	start, lastEnd float64
	texts          []string
	length         int // runes of strings.Join(texts, " ")
}

func (a *accumulator) open(w Word) {
	a.start = w.Start
	a.lastEnd = w.End
	a.texts = append(a.texts[:0], w.Text)
	a.length = utf8.RuneCountInString(w.Text)
}

func (a *accumulator) projected(w Word) int {
	return a.length + 1 + utf8.RuneCountInString(w.Text)
}

func (a *accumulator) add(w Word) {
	a.length = a.projected(w)
	a.texts = append(a.texts, w.Text)
	a.lastEnd = w.End
}

func segmentWords(file string, words []Word, opts SegmentOptions) []Segment {
	var (
		out []Segment
		acc accumulator
	)
	flush := func() {
		if len(acc.texts) == 0 {
			return
		}
		// zero-length spans cannot be trimmed or scored meaningfully
		if acc.lastEnd > acc.start {
			out = append(out, Segment{
				Start:      acc.start,
				End:        acc.lastEnd,
				Text:       strings.TrimSpace(strings.Join(acc.texts, " ")),
				SourceFile: file,
			})
		}
		acc.texts = acc.texts[:0]
	}

	for _, w := range words {
		if len(acc.texts) == 0 {
			acc.open(w)
			continue
		}
		gap := w.Start - acc.lastEnd
		if gap > opts.MaxGap || acc.projected(w) > opts.MaxChars {
			flush()
			acc.open(w)
			continue
		}
		acc.add(w)
	}
	flush()
	return out
}
