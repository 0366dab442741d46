// Package output formats CLI results: status lines, search result tables,
// index statistics and their JSON forms.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Aman-CERP/fsindex/internal/search"
	"github.com/Aman-CERP/fsindex/internal/store"
)

// Writer writes human-oriented output.
type Writer struct {
	out io.Writer
	now func() time.Time
}

// New returns a Writer on out.
func New(out io.Writer) *Writer {
	return &Writer{out: out, now: time.Now}
}

// Status prints msg behind icon, or indented when icon is empty.
// Write errors are ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

func (w *Writer) Success(msg string) { w.Status("✅", msg) }

func (w *Writer) Successf(format string, args ...any) { w.Success(fmt.Sprintf(format, args...)) }

func (w *Writer) Warning(msg string) { w.Status("⚠️ ", msg) }

func (w *Writer) Warningf(format string, args ...any) { w.Warning(fmt.Sprintf(format, args...)) }

func (w *Writer) Error(msg string) { w.Status("❌", msg) }

func (w *Writer) Errorf(format string, args ...any) { w.Error(fmt.Sprintf(format, args...)) }

func (w *Writer) Newline() { _, _ = fmt.Fprintln(w.out) }

// Results prints a table of search results. The score column is omitted in
// exact mode, where every match scores 0.
func (w *Writer) Results(results []search.Result, mode search.Mode) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w.out, "No matching files.")
		return
	}

	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	scored := mode != search.ModeExact
	if scored {
		_, _ = fmt.Fprintln(tw, "SCORE\tSIZE\tMODIFIED\tCATEGORY\tPATH")
	} else {
		_, _ = fmt.Fprintln(tw, "SIZE\tMODIFIED\tCATEGORY\tPATH")
	}
	for _, r := range results {
		f := r.File
		row := fmt.Sprintf("%s\t%s\t%s\t%s",
			humanize.IBytes(uint64(max(f.Size, 0))),
			formatTime(f.ModifiedAt),
			f.Category,
			f.Path)
		if scored {
			row = formatScore(r.Score, mode) + "\t" + row
		}
		_, _ = fmt.Fprintln(tw, row)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w.out, "\n%d result(s)\n", len(results))
}

// Stats prints index statistics.
func (w *Writer) Stats(s *store.Stats) {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Files:\t%s\n", humanize.Comma(int64(s.TotalFiles)))
	_, _ = fmt.Fprintf(tw, "Total size:\t%s\n", humanize.IBytes(uint64(max(s.TotalSize, 0))))

	embedded := humanize.Comma(int64(s.EmbeddedFiles))
	if s.Dimensions > 0 {
		embedded += fmt.Sprintf(" (%s, %d dims)", orDash(s.Model), s.Dimensions)
	}
	_, _ = fmt.Fprintf(tw, "Embedded:\t%s\n", embedded)

	if !s.LastIndexedAt.IsZero() {
		_, _ = fmt.Fprintf(tw, "Last indexed:\t%s (%s)\n",
			formatTime(s.LastIndexedAt), humanize.RelTime(s.LastIndexedAt, w.now(), "ago", "from now"))
	}
	if s.LastRoot != "" {
		_, _ = fmt.Fprintf(tw, "Root:\t%s\n", s.LastRoot)
	}
	_ = tw.Flush()

	if s.TotalFiles == 0 {
		return
	}
	_, _ = fmt.Fprintln(w.out, "\nBy category:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, c := range store.Categories {
		if n := s.CategoryCounts[c]; n > 0 {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t\n", c, humanize.Comma(int64(n)))
		}
	}
	_ = tw.Flush()
}

// ResultJSON is the JSON shape of one search result.
type ResultJSON struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Extension  string    `json:"extension,omitempty"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	CreatedAt  time.Time `json:"created_at"`
	Score      float64   `json:"score"`
}

// StatsJSON is the JSON shape of index statistics.
type StatsJSON struct {
	TotalFiles     int            `json:"total_files"`
	TotalSize      int64          `json:"total_size"`
	CategoryCounts map[string]int `json:"category_counts"`
	EmbeddedFiles  int            `json:"embedded_files"`
	Dimensions     int            `json:"dimensions,omitempty"`
	Model          string         `json:"model,omitempty"`
	LastIndexedAt  *time.Time     `json:"last_indexed_at,omitempty"`
	LastRoot       string         `json:"last_root,omitempty"`
}

// ResultsToJSON converts results for JSON output. An empty input gives an
// empty, non-nil slice.
func ResultsToJSON(results []search.Result) []ResultJSON {
	out := make([]ResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, ResultJSON{
			Path:       r.File.Path,
			Name:       r.File.Name,
			Category:   string(r.File.Category),
			Extension:  r.File.Extension,
			Size:       r.File.Size,
			ModifiedAt: r.File.ModifiedAt,
			CreatedAt:  r.File.CreatedAt,
			Score:      r.Score,
		})
	}
	return out
}

// StatsToJSON converts stats for JSON output.
func StatsToJSON(s *store.Stats) StatsJSON {
	out := StatsJSON{
		TotalFiles:     s.TotalFiles,
		TotalSize:      s.TotalSize,
		CategoryCounts: make(map[string]int, len(s.CategoryCounts)),
		EmbeddedFiles:  s.EmbeddedFiles,
		Dimensions:     s.Dimensions,
		Model:          s.Model,
		LastRoot:       s.LastRoot,
	}
	for c, n := range s.CategoryCounts {
		out.CategoryCounts[string(c)] = n
	}
	if !s.LastIndexedAt.IsZero() {
		t := s.LastIndexedAt
		out.LastIndexedAt = &t
	}
	return out
}

// JSON writes v as indented JSON.
func JSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatScore(score float64, mode search.Mode) string {
	if mode == search.ModeFuzzy {
		return fmt.Sprintf("%.0f", score)
	}
	return fmt.Sprintf("%.3f", score)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
