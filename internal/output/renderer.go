// Package output renders execution reports for the console.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/wesleyorama2/breakwater/internal/loadtest"
	"github.com/wesleyorama2/breakwater/internal/report"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs the report as indented JSON
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a format name supplied on the command line.
func ParseFormat(name string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(name)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (valid: text, json)", name)
	}
}

// Renderer writes execution reports to a writer in the configured
// format. Colors are applied only for the text format.
type Renderer struct {
	writer  io.Writer
	format  OutputFormat
	noColor bool
	scheme  *ColorScheme
}

// NewRenderer creates a renderer. When noColor is false, colors are
// still disabled if the writer is not a terminal.
func NewRenderer(w io.Writer, format OutputFormat, noColor bool) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	if !noColor && !isTerminalWriter(w) {
		noColor = true
	}

	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}

	return &Renderer{
		writer:  w,
		format:  format,
		noColor: noColor,
		scheme:  scheme,
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes the report in the renderer's format.
func (r *Renderer) Render(rep *report.ExecutionReport) error {
	if r.format == FormatJSON {
		enc := json.NewEncoder(r.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return r.renderText(rep)
}

func (r *Renderer) renderText(rep *report.ExecutionReport) error {
	var buf strings.Builder

	buf.WriteString(r.scheme.Title.Sprintf("=== %s load test ===", rep.Kind))
	buf.WriteString("\n\n")

	buf.WriteString(fmt.Sprintf("  %s %s\n",
		r.scheme.Label.Sprint("Capacity:"), describeCapacity(rep.Capacity)))
	buf.WriteString(fmt.Sprintf("  %s %d requested, %d completed\n",
		r.scheme.Label.Sprint("Requests:"), rep.Requested, rep.TotalRequests))

	succeeded := fmt.Sprintf("%d succeeded", rep.Succeeded)
	failed := fmt.Sprintf("%d failed", rep.Failed)
	if rep.Succeeded > 0 {
		succeeded = r.scheme.Success.Sprint(succeeded)
	}
	if rep.Failed > 0 {
		failed = r.scheme.Failure.Sprint(failed)
	}
	buf.WriteString(fmt.Sprintf("  %s %s, %s\n",
		r.scheme.Label.Sprint("Outcome: "), succeeded, failed))
	buf.WriteString(fmt.Sprintf("  %s %dms total\n",
		r.scheme.Label.Sprint("Duration:"), rep.TotalDurationMs))

	if rep.TotalRequests > 0 {
		buf.WriteString(fmt.Sprintf("  %s mean %.1fms, p50 %dms, p95 %dms, p99 %dms, max %dms\n",
			r.scheme.Label.Sprint("Latency: "),
			rep.Latency.MeanMs, rep.Latency.P50Ms, rep.Latency.P95Ms,
			rep.Latency.P99Ms, rep.Latency.MaxMs))
	}

	buf.WriteString("\n")
	buf.WriteString(r.scheme.Title.Sprint("Executions"))
	buf.WriteString("\n")
	for _, rec := range rep.Executions {
		buf.WriteString(r.formatExecution(rec))
	}

	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("%s %s\n",
		r.scheme.Highlight.Sprint("Diagnosis:"), rep.Diagnosis))

	if rep.TotalRequests < rep.Requested {
		buf.WriteString(fmt.Sprintf("%s %d of %d requests did not complete within the wait budget\n",
			WarningIcon(r.noColor), rep.Requested-rep.TotalRequests, rep.Requested))
	}

	_, err := io.WriteString(r.writer, buf.String())
	return err
}

func (r *Renderer) formatExecution(rec loadtest.ExecutionRecord) string {
	if rec.Status == loadtest.StatusSuccess {
		return fmt.Sprintf("  %s request %d succeeded in %dms (executor %s)\n",
			SuccessIcon(r.noColor), rec.Ordinal, rec.DurationMs, rec.Executor)
	}

	line := fmt.Sprintf("  %s request %d failed in %dms: %s",
		ErrorIcon(r.noColor), rec.Ordinal, rec.DurationMs, rec.FailureReason)
	if rec.FailureCategory != "" {
		line += " " + r.scheme.Category.Sprintf("[%s]", rec.FailureCategory)
	}
	return line + "\n"
}

func describeCapacity(c loadtest.CapacityConfig) string {
	if c.Kind == loadtest.CapacityElastic {
		return fmt.Sprintf("%s core=%d max=%d queue=%d (total %d)",
			c.Kind, c.CoreSize, c.MaxSize, c.QueueCapacity, c.TotalCapacity())
	}
	return fmt.Sprintf("%s limit=%d", c.Kind, c.Limit)
}
