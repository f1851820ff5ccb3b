package orchestrator

type Word struct {
	Text  string
	Start float64 // sec
	End   float64 // sec
}

// SourceWords is the word stream of one transcribed file.
type SourceWords struct {
	File  string
	Words []Word
}

type Segment struct {
	Index      int
	Start, End float64
	Text       string
	SourceFile string
	// Set by the scoring stage only.
	Score float64
	Label string
}

func (s Segment) Duration() float64 { return s.End - s.Start }

type ScoreResult struct {
	Index int
	Score float64
	Label string
}

type SelectedClip struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SourceFile string  `json:"file"`
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
}

func (c SelectedClip) Duration() float64 { return c.End - c.Start }
