package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/bestof/clients"
	cfg "github.com/maastricht-university/bestof/config"
)

const (
	lockName      = ".bestof.lock"
	stagingPrefix = ".staging_"
)

var ErrOutputBusy = errors.New("another run holds the output directory")

type PromptFetcher interface {
	Fetch(ctx context.Context, docID string) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Deps are the per-run collaborators. Prompts and Upload may be nil.
type Deps struct {
	Transcriber clients.Transcriber
	Scorer      clients.Scorer
	Media       Media
	Prompts     PromptFetcher
	Upload      Uploader
	// Extract defaults to clients.ExtractAudio.
	Extract func(zipPath, dir string) ([]string, error)
}

type Options struct {
	OutDir            string
	TempDir           string
	KeepPct           float64
	PromptDocID       string
	Upload            bool
	MaxConcurrent     int
	TranscribeTimeout time.Duration
	Segment           SegmentOptions
	Scoring           ScoringOptions
}

type Result struct {
	RunID         string
	ManifestPath  string
	OutputPath    string
	Language      string
	Model         string
	InputSeconds  float64
	TargetSeconds float64
	OutputSeconds float64
	Files         int
	Segments      int
	Clips         int
	Skipped       int
	FailedBatches int
	UploadURL     string
	UploadError   string
}

type Pipeline struct {
	opts Options
	deps Deps
	log  logrus.FieldLogger
}

func New(opts Options, deps Deps, log logrus.FieldLogger) *Pipeline {
	if deps.Extract == nil {
		deps.Extract = clients.ExtractAudio
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	opts.KeepPct = cfg.ClampPct(opts.KeepPct)
	return &Pipeline{opts: opts, deps: deps, log: log}
}

// WithUpload returns a copy of p that uploads finished reels when enabled.
func (p *Pipeline) WithUpload(enabled bool) *Pipeline {
	cp := *p
	cp.opts.Upload = enabled
	return &cp
}

// Run processes archivePath into the configured output directory.
func (p *Pipeline) Run(ctx context.Context, archivePath string) (*Result, error) {
	return p.RunInto(ctx, archivePath, p.opts.OutDir)
}

// RunInto processes archivePath into outDir, which is locked for the run.
func (p *Pipeline) RunInto(ctx context.Context, archivePath, outDir string) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "archive": filepath.Base(archivePath)})

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, stageErr(StagePersist, fmt.Errorf("create output dir: %w", err))
	}
	lock := flock.New(filepath.Join(outDir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, stageErr(StagePersist, fmt.Errorf("acquire lock: %w", err))
	}
	if !ok {
		return nil, stageErr(StagePersist, fmt.Errorf("%w: %s", ErrOutputBusy, outDir))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.WithError(err).Warn("failed to release output lock")
		}
	}()

	workDir := filepath.Join(p.opts.TempDir, "bestof_"+runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, stageErr(StageExtract, fmt.Errorf("create work dir: %w", err))
	}
	defer os.RemoveAll(workDir)

	res := &Result{RunID: runID, Model: p.deps.Scorer.Model()}

	systemPrompt, err := p.systemPrompt(ctx, log)
	if err != nil {
		return nil, stageErr(StagePrompt, err)
	}

	extractDir := filepath.Join(workDir, "audio")
	files, err := p.deps.Extract(archivePath, extractDir)
	if err != nil {
		return nil, stageErr(StageExtract, err)
	}
	if len(files) == 0 {
		return nil, stageErr(StageExtract, ErrNoAudio)
	}
	res.Files = len(files)
	log.WithField("files", len(files)).Info("extracted audio")

	durations, err := p.probe(ctx, files)
	if err != nil {
		return nil, stageErr(StageProbe, err)
	}
	for _, f := range files {
		res.InputSeconds += durations[f]
	}

	sources, lang, err := p.transcribe(ctx, files, log)
	if err != nil {
		return nil, stageErr(StageTranscribe, err)
	}
	res.Language = lang

	segs := BuildSegments(sources, p.opts.Segment)
	if len(segs) == 0 {
		return nil, stageErr(StageSegment, ErrNoSegments)
	}
	res.Segments = len(segs)
	log.WithField("segments", len(segs)).Info("built segments")

	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageScore, err)
	}
	scoreFn := func(ctx context.Context, batch []clients.ScoreItem) ([]clients.ScoreEntry, error) {
		return p.deps.Scorer.Score(ctx, systemPrompt, batch)
	}
	report := ScoreSegments(ctx, segs, p.opts.Scoring, scoreFn, log.WithField("stage", StageScore))
	res.FailedBatches = report.FailedBatches
	log.WithFields(logrus.Fields{
		"batches": report.Batches,
		"failed":  report.FailedBatches,
		"scored":  report.Scored,
	}).Info("scored segments")

	if err := ctx.Err(); err != nil {
		return nil, stageErr(StageSelect, err)
	}
	res.TargetSeconds = res.InputSeconds * p.opts.KeepPct / 100
	clips := SelectClips(segs, res.TargetSeconds)
	res.Clips = len(clips)
	log.WithFields(logrus.Fields{
		"clips":  len(clips),
		"input":  HumanTime(res.InputSeconds),
		"target": HumanTime(res.TargetSeconds),
	}).Info("selected clips")

	// artifacts are staged next to their destination and renamed in once the reel is complete
	stageDir := filepath.Join(outDir, stagingPrefix+runID)
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return nil, stageErr(StagePersist, fmt.Errorf("create staging dir: %w", err))
	}
	defer os.RemoveAll(stageDir)

	manifest := Manifest{
		RunID:         runID,
		Archive:       filepath.Base(archivePath),
		GeneratedAt:   time.Now().UTC(),
		Language:      res.Language,
		Model:         res.Model,
		KeepPct:       p.opts.KeepPct,
		InputSeconds:  res.InputSeconds,
		TargetSeconds: res.TargetSeconds,
		Clips:         manifestClips(clips, extractDir),
	}
	if err := writeJSON(filepath.Join(stageDir, ManifestName), manifest); err != nil {
		return nil, stageErr(StagePersist, fmt.Errorf("write manifest: %w", err))
	}

	asm, err := Assemble(ctx, p.deps.Media, clips, filepath.Join(stageDir, ReelName), AssembleOptions{
		WorkDir:         filepath.Join(workDir, "parts"),
		Workers:         p.opts.MaxConcurrent,
		SourceDurations: durations,
	}, log.WithField("stage", StageAssemble))
	res.Skipped = asm.Skipped
	if err != nil {
		return nil, stageErr(StageAssemble, err)
	}
	res.OutputSeconds = asm.Duration

	res.ManifestPath, res.OutputPath, err = publish(stageDir, outDir, asm.Parts > 0)
	if err != nil {
		return nil, stageErr(StagePersist, err)
	}
	log.WithFields(logrus.Fields{
		"parts":    asm.Parts,
		"duration": HumanTime(asm.Duration),
		"output":   res.OutputPath,
	}).Info("assembled reel")

	upLog := log.WithField("stage", StageUpload)
	switch {
	case !p.opts.Upload:
	case p.deps.Upload == nil:
		res.UploadError = "no upload endpoint configured"
		upLog.Warn("upload requested but services.upload.url is empty")
	case res.OutputPath == "":
		res.UploadError = "empty reel, nothing uploaded"
		upLog.Warn("upload requested but no clip was selected")
	default:
		url, err := p.deps.Upload.Upload(ctx, res.OutputPath)
		if err != nil {
			res.UploadError = err.Error()
			upLog.WithError(err).Warn("upload failed, reel kept on disk")
		} else {
			res.UploadURL = url
			upLog.WithField("url", url).Info("uploaded reel")
		}
	}
	return res, nil
}

func (p *Pipeline) systemPrompt(ctx context.Context, log logrus.FieldLogger) (string, error) {
	if p.opts.PromptDocID == "" || p.deps.Prompts == nil {
		return clients.DefaultSystemPrompt, nil
	}
	text, err := p.deps.Prompts.Fetch(ctx, p.opts.PromptDocID)
	if err != nil {
		return "", err
	}
	log.WithField("doc_id", p.opts.PromptDocID).Debug("fetched system prompt")
	return text, nil
}

func (p *Pipeline) probe(ctx context.Context, files []string) (map[string]float64, error) {
	durations := make(map[string]float64, len(files))
	for _, f := range files {
		d, err := p.deps.Media.Duration(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		durations[f] = d
	}
	return durations, nil
}

// transcribe runs the transcriber over files with bounded concurrency and
// returns their word streams in file order. A failing file contributes no words.
func (p *Pipeline) transcribe(ctx context.Context, files []string, log logrus.FieldLogger) ([]SourceWords, string, error) {
	results := make([]clients.Transcript, len(files))
	sem := newSemaphore(p.opts.MaxConcurrent)
	var wg sync.WaitGroup
	for i, f := range files {
		if err := sem.acquire(ctx); err != nil {
			wg.Wait()
			return nil, "", err
		}
		wg.Add(1)
		go func(i int, f string) {
			defer wg.Done()
			defer sem.release()
			tctx := ctx
			if p.opts.TranscribeTimeout > 0 {
				var cancel context.CancelFunc
				tctx, cancel = context.WithTimeout(ctx, p.opts.TranscribeTimeout)
				defer cancel()
			}
			tr, err := p.deps.Transcriber.Transcribe(tctx, f)
			if err != nil {
				log.WithFields(logrus.Fields{"stage": StageTranscribe, "file": filepath.Base(f)}).
					WithError(err).Warn("transcription failed, file skipped")
				return
			}
			results[i] = tr
		}(i, f)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	var (
		sources []SourceWords
		lang    string
		total   int
	)
	for i, tr := range results {
		if lang == "" {
			lang = tr.Language
		}
		words := make([]Word, 0, len(tr.Words))
		for _, w := range tr.Words {
			words = append(words, Word{Text: w.Text, Start: w.Start, End: w.End})
		}
		total += len(words)
		log.WithFields(logrus.Fields{"file": filepath.Base(files[i]), "words": len(words)}).Debug("transcribed")
		sources = append(sources, SourceWords{File: files[i], Words: words})
	}
	if total == 0 {
		return nil, "", ErrNoWords
	}
	return sources, lang, nil
}
