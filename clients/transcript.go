package clients

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

type TimedWord struct {
	Text       string
	Start, End float64
}

type Transcript struct {
	Language string
	Words    []TimedWord
}

// Transcriber turns one audio file into chronological timed words.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// alignedPayload is the whisperx JSON shape, also served by the ASR service.
type alignedPayload struct {
	Language     string `json:"language"`
	WordSegments []Word `json:"word_segments"`
	Segments     []struct {
		Words []Word `json:"words"`
	} `json:"segments"`
}

func (p alignedPayload) transcript() Transcript {
	words := p.WordSegments
	if len(words) == 0 {
		for _, s := range p.Segments {
			words = append(words, s.Words...)
		}
	}
	return Transcript{Language: NormalizeLanguage(p.Language), Words: timedWords(words)}
}

// timedWords keeps words that carry both timestamps. Aligners leave numbers
// and symbols they could not place without timing.
func timedWords(words []Word) []TimedWord {
	out := make([]TimedWord, 0, len(words))
	for _, w := range words {
		if w.Start == nil || w.End == nil {
			continue
		}
		start, end := *w.Start, *w.End
		if end < start {
			end = start
		}
		out = append(out, TimedWord{Text: strings.TrimSpace(w.Word), Start: start, End: end})
	}
	return out
}

// NormalizeLanguage returns the BCP 47 form of a detected language tag, or
// the trimmed input when it does not parse.
func NormalizeLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return parsed.String()
}
