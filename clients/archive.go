package clients

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
}

func IsAudio(path string) bool { return audioExts[strings.ToLower(filepath.Ext(path))] }

// ExtractAudio unpacks the audio members of a zip archive into dir and
// returns their paths sorted case-insensitively.
func ExtractAudio(zipPath, dir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !IsAudio(f.Name) || isMetadataEntry(f.Name) {
			continue
		}
		dest := filepath.Join(root, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive member %q escapes extraction dir", f.Name)
		}
		if err := extractFile(f, dest); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		out = append(out, dest)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, nil
}

// isMetadataEntry skips macOS resource forks that carry audio extensions.
func isMetadataEntry(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(filepath.Base(name), "._")
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
