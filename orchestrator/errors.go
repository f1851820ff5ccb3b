package orchestrator

import (
	"errors"
	"fmt"
)

const (
	StagePrompt     = "prompt"
	StageExtract    = "extract"
	StageProbe      = "probe"
	StageTranscribe = "transcribe"
	StageSegment    = "segment"
	StageScore      = "score"
	StageSelect     = "select"
	StagePersist    = "persist"
	StageAssemble   = "assemble"
	StageUpload     = "upload"
)

var (
	ErrNoAudio    = errors.New("archive contains no audio file")
	ErrNoWords    = errors.New("no words recognized in any audio file")
	ErrNoSegments = errors.New("no segment could be built from the transcripts")
)

// StageError names the pipeline stage a fatal error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %q: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
