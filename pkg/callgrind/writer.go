// Package callgrind serializes XRay call trees into the callgrind format
// understood by KCachegrind and compatible viewers.
package callgrind

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/xraytools/xray2cg/pkg/xray"
)

// Ext is the file extension used for generated callgrind reports.
const Ext = ".callgrind"

// Writer emits callgrind output for parsed frames.
type Writer struct {
	log *logrus.Logger

	clampedNodes int
}

// NewWriter creates a writer logging diagnostics to logger. A nil logger
// gets a default that only reports warnings.
func NewWriter(logger *logrus.Logger) *Writer {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Writer{log: logger}
}

// ClampedNodes returns how many nodes had a negative raw self cost
// clamped to zero across all frames written so far.
func (w *Writer) ClampedNodes() int {
	return w.clampedNodes
}

// WriteFrame serializes one frame's call tree to out.
func (w *Writer) WriteFrame(out io.Writer, frame *xray.Frame) error {
	if err := w.writeHeader(out, frame.TotalTicks); err != nil {
		return err
	}
	return w.writeTree(out, frame.Label, frame.Root)
}

// writeHeader emits the fixed preamble: costs are tick counts positioned
// by synthetic source line.
func (w *Writer) writeHeader(out io.Writer, totalTicks int64) error {
	_, err := fmt.Fprintf(out, "positions: line\nevents: ticks\nsummary: %d\n\n", totalTicks)
	return err
}

// writeTree emits the node's own cost block followed by its callees,
// depth first. Entities are keyed by name and address together: the
// address disambiguates recursive calls and distinct call sites that
// share a name.
func (w *Writer) writeTree(out io.Writer, label string, node *xray.Node) error {
	if _, err := fmt.Fprintf(out, "fl=%s_%s.c\n", node.Name, node.Addr); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "fn=%s_%s\n", node.Name, node.Addr); err != nil {
		return err
	}

	selfCost, clamped := node.SelfCost()
	if clamped {
		w.clampedNodes++
		w.log.WithFields(logrus.Fields{
			"frame":    label,
			"function": node.Name,
			"address":  node.Addr,
		}).Warn("Callee ticks exceed inclusive ticks, clamping self cost to zero")
	}
	// Self cost always sits on the first synthetic line.
	if _, err := fmt.Fprintf(out, "1 %d\n", selfCost); err != nil {
		return err
	}

	line := 2
	for _, callee := range node.Calls {
		if _, err := fmt.Fprintf(out, "cfl=%s_%s.c\n", callee.Name, callee.Addr); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "cfn=%s_%s\n", callee.Name, callee.Addr); err != nil {
			return err
		}
		// One invocation per sample; the format has no real source lines
		// so every call targets line zero.
		if _, err := fmt.Fprintf(out, "calls=1 0\n"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%d %d\n", line, callee.Ticks); err != nil {
			return err
		}
		line++
	}

	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}

	for _, callee := range node.Calls {
		if err := w.writeTree(out, label, callee); err != nil {
			return err
		}
	}
	return nil
}
