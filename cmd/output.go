package cmd

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/bestof/orchestrator"
)

type resultJSON struct {
	RunID         string  `json:"run_id"`
	Output        string  `json:"output,omitempty"`
	Manifest      string  `json:"manifest"`
	Language      string  `json:"language,omitempty"`
	Model         string  `json:"model"`
	InputSeconds  float64 `json:"input_seconds"`
	TargetSeconds float64 `json:"target_seconds"`
	OutputSeconds float64 `json:"output_seconds"`
	OutputBytes   int64   `json:"output_bytes"`
	Files         int     `json:"files"`
	Segments      int     `json:"segments"`
	Clips         int     `json:"clips"`
	Skipped       int     `json:"skipped,omitempty"`
	FailedBatches int     `json:"failed_batches,omitempty"`
	UploadURL     string  `json:"upload_url,omitempty"`
	UploadError   string  `json:"upload_error,omitempty"`
}

// printResult renders a table on a terminal and JSON otherwise.
func printResult(cmd *cobra.Command, res *orchestrator.Result) error {
	var size int64
	reel := "(empty selection)"
	if res.OutputPath != "" {
		reel = filepath.Clean(res.OutputPath)
		if fi, err := os.Stat(res.OutputPath); err == nil {
			size = fi.Size()
		}
	}
	out := cmd.OutOrStdout()
	if !isTerminal(out) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resultJSON{
			RunID:         res.RunID,
			Output:        res.OutputPath,
			Manifest:      res.ManifestPath,
			Language:      res.Language,
			Model:         res.Model,
			InputSeconds:  res.InputSeconds,
			TargetSeconds: res.TargetSeconds,
			OutputSeconds: res.OutputSeconds,
			OutputBytes:   size,
			Files:         res.Files,
			Segments:      res.Segments,
			Clips:         res.Clips,
			Skipped:       res.Skipped,
			FailedBatches: res.FailedBatches,
			UploadURL:     res.UploadURL,
			UploadError:   res.UploadError,
		})
	}

	rows := [][]string{
		{"Run", res.RunID},
		{"Reel", reel},
		{"Size", humanize.Bytes(uint64(size))},
		{"Manifest", filepath.Clean(res.ManifestPath)},
		{"Model", res.Model},
		{"Language", res.Language},
		{"Input", orchestrator.HumanTime(res.InputSeconds)},
		{"Target", orchestrator.HumanTime(res.TargetSeconds)},
		{"Reel length", orchestrator.HumanTime(res.OutputSeconds)},
		{"Files / segments / clips", humanize.Comma(int64(res.Files)) + " / " +
			humanize.Comma(int64(res.Segments)) + " / " + humanize.Comma(int64(res.Clips))},
	}
	if res.FailedBatches > 0 {
		rows = append(rows, []string{"Failed score batches", humanize.Comma(int64(res.FailedBatches))})
	}
	if res.UploadURL != "" {
		rows = append(rows, []string{"Upload", res.UploadURL})
	}
	if res.UploadError != "" {
		rows = append(rows, []string{"Upload error", res.UploadError})
	}
	_, err := io.WriteString(out, renderTable([]string{"Field", "Value"}, rows)+"\n")
	return err
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AlignHeader: text.AlignLeft}})
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
