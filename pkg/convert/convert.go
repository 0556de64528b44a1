// Package convert runs a whole XRay-to-callgrind conversion: parse the
// report, then write one callgrind file per declared frame beside it.
package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xraytools/xray2cg/pkg/callgrind"
	"github.com/xraytools/xray2cg/pkg/xray"
)

// Options configures one conversion run.
type Options struct {
	// ReportPath is the XRay report to convert.
	ReportPath string
	// Logger receives run diagnostics. Nil gets a warn-level default.
	Logger *logrus.Logger
}

// FrameResult summarizes one converted frame.
type FrameResult struct {
	Label      string `json:"label"`
	TotalTicks int64  `json:"total_ticks"`
	Samples    int    `json:"samples"`
	OutputFile string `json:"output_file"`
}

// Result summarizes a completed conversion run.
type Result struct {
	Report        string        `json:"report"`
	Frames        []FrameResult `json:"frames"`
	Samples       int           `json:"samples"`
	DroppedBlocks int           `json:"dropped_blocks"`
	DepthClamps   int           `json:"depth_clamps"`
	ClampedNodes  int           `json:"clamped_nodes"`
	CallCounts    []CallCount   `json:"call_counts,omitempty"`
}

// CallCount is one per-address sample tally, ordered by address.
type CallCount struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
}

// Run converts one report. Every frame declared in the header produces an
// output file, including frames with no sample block: those serialize as
// a lone root entity carrying the whole frame cost.
func Run(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	in, err := os.Open(opts.ReportPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open report: %w", err)
	}
	defer in.Close()

	outDir := filepath.Dir(opts.ReportPath)
	if err := preflightOutputDir(outDir); err != nil {
		return nil, err
	}

	parser := xray.NewParser(logger)
	if err := parser.Parse(in); err != nil {
		return nil, err
	}

	base := filepath.Base(opts.ReportPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	writer := callgrind.NewWriter(logger)
	result := &Result{
		Report:        opts.ReportPath,
		Samples:       parser.Samples(),
		DroppedBlocks: parser.DroppedBlocks(),
		DepthClamps:   parser.DepthClamps(),
	}

	for _, frame := range parser.Registry().Frames() {
		name := fmt.Sprintf("%s_%s%s", base, frame.Label, callgrind.Ext)
		path := filepath.Join(outDir, name)

		logger.WithFields(logrus.Fields{
			"frame": frame.Label,
			"file":  path,
		}).Info("Writing callgrind file")

		if err := writeFrameFile(writer, path, frame); err != nil {
			return nil, err
		}

		result.Frames = append(result.Frames, FrameResult{
			Label:      frame.Label,
			TotalTicks: frame.TotalTicks,
			Samples:    countNodes(frame.Root) - 1,
			OutputFile: path,
		})
	}
	result.ClampedNodes = writer.ClampedNodes()
	result.CallCounts = sortedCallCounts(parser.CallCounts())

	return result, nil
}

func writeFrameFile(w *callgrind.Writer, path string, frame *xray.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	if err := w.WriteFrame(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", path, err)
	}
	return nil
}

func countNodes(n *xray.Node) int {
	total := 1
	for _, callee := range n.Calls {
		total += countNodes(callee)
	}
	return total
}
