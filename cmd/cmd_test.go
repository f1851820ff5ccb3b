package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigShowAppliesFlagsAndMasksSecrets(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-very-secret")
	path := filepath.Join(t.TempDir(), "bestof.yaml")
	if err := os.WriteFile(path, []byte("selection:\n  keep_pct: 35\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"config", "show", "--config", path, "--log-level", "debug"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	got := out.String()
	for _, want := range []string{"keep_pct: 35", "level: debug", "********"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output misses %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "sk-very-secret") {
		t.Fatal("secret leaked")
	}
}

func TestRunRequiresArchive(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Field", "Value"}, [][]string{{"Clips", "3"}, {"Short"}})
	for _, want := range []string{"Field", "Clips", "3", "Short"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table misses %q:\n%s", want, out)
		}
	}
}

func TestIsTerminalBuffer(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Fatal("a buffer is not a terminal")
	}
}
