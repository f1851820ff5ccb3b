package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	ManifestName = "clips_selected.json"
	ReelName     = "bestof.mp3"
)

type ManifestClip struct {
	File  string  `json:"file"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Manifest struct {
	RunID         string         `json:"run_id"`
	Archive       string         `json:"archive"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Language      string         `json:"language,omitempty"`
	Model         string         `json:"model,omitempty"`
	KeepPct       float64        `json:"keep_pct"`
	InputSeconds  float64        `json:"input_seconds"`
	TargetSeconds float64        `json:"target_seconds"`
	Clips         []ManifestClip `json:"clips"`
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// manifestClips records clip files relative to the extraction root, which
// does not outlive the run.
func manifestClips(clips []SelectedClip, root string) []ManifestClip {
	out := make([]ManifestClip, 0, len(clips))
	for _, c := range clips {
		file := c.SourceFile
		if rel, err := filepath.Rel(root, c.SourceFile); err == nil && !strings.HasPrefix(rel, "..") {
			file = filepath.ToSlash(rel)
		}
		out = append(out, ManifestClip{File: file, Start: c.Start, End: c.End, Label: c.Label, Score: c.Score})
	}
	return out
}

// publish moves the staged reel and manifest from stageDir into outDir and
// returns their final paths. Without a reel, any reel left by an earlier run
// is removed so the manifest never sits next to audio it does not describe.
func publish(stageDir, outDir string, withReel bool) (manifest, reel string, err error) {
	reelPath := filepath.Join(outDir, ReelName)
	if withReel {
		if err := os.Rename(filepath.Join(stageDir, ReelName), reelPath); err != nil {
			return "", "", fmt.Errorf("publish reel: %w", err)
		}
		reel = reelPath
	} else if err := os.Remove(reelPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("remove stale reel: %w", err)
	}
	manifest = filepath.Join(outDir, ManifestName)
	if err := os.Rename(filepath.Join(stageDir, ManifestName), manifest); err != nil {
		return "", "", fmt.Errorf("publish manifest: %w", err)
	}
	return manifest, reel, nil
}
