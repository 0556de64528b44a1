// Package output provides formatters for displaying conversion results.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/xraytools/xray2cg/pkg/convert"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatTSV   Format = "tsv"
)

// Formatter handles result rendering.
type Formatter struct {
	format     Format
	writer     io.Writer
	showCounts bool
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// SetShowCallCounts enables the per-function invocation count section.
func (f *Formatter) SetShowCallCounts(show bool) {
	f.showCounts = show
}

// Render outputs the result in the configured format.
func (f *Formatter) Render(result *convert.Result) error {
	switch f.format {
	case FormatTSV:
		return f.renderTSV(result)
	default:
		return f.renderTable(result)
	}
}

// renderTable outputs the result as a styled table.
func (f *Formatter) renderTable(result *convert.Result) error {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Fprintln(f.writer, titleStyle.Render("XRay Report Conversion"))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintln(f.writer)

	rows := make([][]string, len(result.Frames))
	for i, fr := range result.Frames {
		rows[i] = []string{
			fr.Label,
			fmt.Sprintf("%d", fr.TotalTicks),
			fmt.Sprintf("%d", fr.Samples),
			filepath.Base(fr.OutputFile),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("FRAME", "TOTAL TICKS", "SAMPLES", "OUTPUT").
		Rows(rows...)

	fmt.Fprintln(f.writer, t)
	fmt.Fprintln(f.writer)

	parts := []string{}
	if result.DroppedBlocks > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d dropped blocks", result.DroppedBlocks)))
	}
	if result.DepthClamps > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d depth clamps", result.DepthClamps)))
	}
	if result.ClampedNodes > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d clamped self costs", result.ClampedNodes)))
	}

	if len(parts) == 0 {
		fmt.Fprintln(f.writer, okStyle.Render(fmt.Sprintf("Converted %d frames, %d samples", len(result.Frames), result.Samples)))
	} else {
		fmt.Fprintf(f.writer, "Converted %d frames, %d samples. Anomalies: %s\n",
			len(result.Frames), result.Samples, strings.Join(parts, ", "))
	}

	if f.showCounts && len(result.CallCounts) > 0 {
		fmt.Fprintln(f.writer)
		fmt.Fprintln(f.writer, titleStyle.Render("Function Invocations"))
		for _, cc := range result.CallCounts {
			fmt.Fprintf(f.writer, "%8d  %s %s\n", cc.Count, cc.Address, cc.Name)
		}
	}

	return nil
}

// renderTSV outputs the per-frame results as tab-separated values.
func (f *Formatter) renderTSV(result *convert.Result) error {
	fmt.Fprintln(f.writer, "FRAME\tTOTAL_TICKS\tSAMPLES\tOUTPUT")

	for _, fr := range result.Frames {
		fmt.Fprintf(f.writer, "%s\t%d\t%d\t%s\n",
			fr.Label, fr.TotalTicks, fr.Samples, fr.OutputFile)
	}

	return nil
}
