package clients

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractAudio(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"Seance2.MP3":       "b",
		"notes.txt":         "skip",
		"sub/seance1.wav":   "a",
		"__MACOSX/._x.mp3":  "fork",
		"sub/._seance1.wav": "fork",
		"sub/seance3.m4a":   "c",
	})
	dir := t.TempDir()
	files, err := ExtractAudio(zipPath, dir)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	want := []string{
		filepath.Join(dir, "Seance2.MP3"),
		filepath.Join(dir, "sub", "seance1.wav"),
		filepath.Join(dir, "sub", "seance3.m4a"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
	data, err := os.ReadFile(want[1])
	if err != nil || string(data) != "a" {
		t.Fatalf("content = %q (%v)", data, err)
	}
}

func TestExtractAudioRejectsTraversal(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"../evil.mp3": "x"})
	if _, err := ExtractAudio(zipPath, t.TempDir()); err == nil {
		t.Fatal("expected traversal error")
	}
}

func TestExtractAudioNoAudio(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"readme.md": "x"})
	files, err := ExtractAudio(zipPath, t.TempDir())
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("files = %v", files)
	}
}

func TestExtractAudioBadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractAudio(path, t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
}
