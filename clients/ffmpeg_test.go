package clients

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordedCall struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []recordedCall
	output []byte
	err    error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{name: name, args: append([]string(nil), args...)})
	return f.output, f.err
}

func TestFFmpegTrimArgs(t *testing.T) {
	r := &fakeRunner{}
	ff := NewFFmpeg(FFmpegConfig{FFmpegBinary: "/opt/ffmpeg"}, r.run)
	if err := ff.Trim(context.Background(), "in.wav", 1.5, 4.25, "part.mp3"); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if len(r.calls) != 1 {
		t.Fatalf("calls = %d", len(r.calls))
	}
	got := strings.Join(r.calls[0].args, " ")
	want := "-y -hide_banner -loglevel error -ss 1.500 -to 4.250 -i in.wav -vn -ac 1 -ar 44100 -c:a libmp3lame -q:a 2 part.mp3"
	if r.calls[0].name != "/opt/ffmpeg" || got != want {
		t.Fatalf("command = %s %s", r.calls[0].name, got)
	}
}

func TestFFmpegTrimRejectsEmptyInterval(t *testing.T) {
	r := &fakeRunner{}
	ff := NewFFmpeg(FFmpegConfig{}, r.run)
	if err := ff.Trim(context.Background(), "in.wav", 3, 3, "part.mp3"); err == nil {
		t.Fatal("expected error")
	}
	if len(r.calls) != 0 {
		t.Fatal("ffmpeg must not run")
	}
}

func TestFFmpegConcat(t *testing.T) {
	dir := t.TempDir()
	parts := []string{filepath.Join(dir, "part_0000.mp3"), filepath.Join(dir, "it's.mp3")}
	dst := filepath.Join(dir, "out", "bestof.mp3")
	r := &fakeRunner{}
	ff := NewFFmpeg(FFmpegConfig{}, r.run)
	if err := ff.Concat(context.Background(), parts, dst); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	list, err := os.ReadFile(filepath.Join(dir, "concat.txt"))
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	wantList := "file '" + parts[0] + "'\nfile '" + filepath.Join(dir, `it'\''s.mp3`) + "'\n"
	if string(list) != wantList {
		t.Fatalf("list = %q, want %q", list, wantList)
	}
	args := strings.Join(r.calls[0].args, " ")
	if !strings.Contains(args, "-f concat -safe 0 -i "+filepath.Join(dir, "concat.txt")+" -c copy "+dst) {
		t.Fatalf("args = %s", args)
	}
	if _, err := os.Stat(filepath.Dir(dst)); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestFFmpegConcatFailureCarriesDiagnostics(t *testing.T) {
	cmdErr := &CommandError{Name: "ffmpeg", Args: []string{"-f", "concat"}, Output: "Invalid data found", Err: errors.New("exit status 1")}
	r := &fakeRunner{err: cmdErr}
	ff := NewFFmpeg(FFmpegConfig{}, r.run)
	err := ff.Concat(context.Background(), []string{filepath.Join(t.TempDir(), "p.mp3")}, filepath.Join(t.TempDir(), "o.mp3"))
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") || !strings.Contains(err.Error(), "ffmpeg -f concat") {
		t.Fatalf("error lacks diagnostics: %v", err)
	}
}

func TestFFmpegDuration(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    float64
		wantErr bool
	}{
		{name: "ok", output: `{"format":{"duration":"125.480000"}}`, want: 125.48},
		{name: "missing", output: `{"format":{}}`, wantErr: true},
		{name: "garbage", output: `nope`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{output: []byte(tt.output)}
			got, err := NewFFmpeg(FFmpegConfig{}, r.run).Duration(context.Background(), "a.mp3")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Duration: %v", err)
			}
			if got != tt.want {
				t.Fatalf("duration = %v", got)
			}
			if r.calls[0].name != "ffprobe" {
				t.Fatalf("binary = %s", r.calls[0].name)
			}
		})
	}
}

func TestExecuteReportsStderr(t *testing.T) {
	_, err := Execute(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if ce.Output != "broken" {
		t.Fatalf("stderr = %q", ce.Output)
	}
}
