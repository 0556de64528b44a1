package xray

import (
	"regexp"
	"strconv"
	"strings"
)

// LineKind identifies the structural role of one report line.
type LineKind int

const (
	// LineUnrecognized is any line that matches no structural pattern.
	// It is skippable content, not an error.
	LineUnrecognized LineKind = iota
	// LineHeaderStart marks the beginning of the frame table.
	LineHeaderStart
	// LineHeaderFrame declares one frame with its aggregate costs.
	LineHeaderFrame
	// LineHeaderEnd is the report-origin marker that closes the header.
	LineHeaderEnd
	// LineFrameStart opens a per-frame sample block.
	LineFrameStart
	// LineFrameSample is one call sample inside a frame block.
	LineFrameSample
	// LineFrameEnd closes a per-frame sample block.
	LineFrameEnd
)

// Sample holds the parsed fields of a call-sample line. Depth is the count
// of indentation spaces beyond the fixed column gap, one per nesting level.
type Sample struct {
	Addr       string
	Ticks      int64
	Percentage string
	Depth      int
	Name       string
	Annotation string
}

// HeaderFrame holds the parsed fields of one header frame-descriptor line.
type HeaderFrame struct {
	ID          int
	TotalTicks  int64
	CaptureSize int64
	Annotations int
	Label       string
}

// Report line shapes, fixed by the XRay text format:
//
//	0x008D3240	  156321813		100.0	   benchmark
//	label PARALLEL
//	Frame#		Total Ticks		 Capture size	 Annotations   Label
//	       0		  156322740			   916352			  25   PARALLEL
//
// The six literal spaces after the percentage column are the zero-depth
// baseline; every further space is one nesting level.
var (
	sampleRe      = regexp.MustCompile(`^(0x[0-9A-Fa-f]+)\s+(\d+)\s+(\d+\.\d+)      ( *)([\w()]+)\s*(.*)$`)
	frameStartRe  = regexp.MustCompile(`^label (\w+)`)
	headerStartRe = regexp.MustCompile(`^Frame#`)
	headerFrameRe = regexp.MustCompile(`^\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\w+)`)
)

// Line is the classification result for one input line. Exactly one of
// Sample, Header, or Label is meaningful, selected by Kind.
type Line struct {
	Kind   LineKind
	Sample Sample
	Header HeaderFrame
	Label  string
}

// Classify pattern-matches one raw report line. Matching is purely
// syntactic; no cross-line validation happens here.
func Classify(line string) Line {
	if strings.HasPrefix(line, "===") {
		return Line{Kind: LineFrameEnd}
	}
	if strings.HasPrefix(line, "XRay:") {
		return Line{Kind: LineHeaderEnd}
	}
	if headerStartRe.MatchString(line) {
		return Line{Kind: LineHeaderStart}
	}
	if m := frameStartRe.FindStringSubmatch(line); m != nil {
		return Line{Kind: LineFrameStart, Label: m[1]}
	}
	if m := sampleRe.FindStringSubmatch(line); m != nil {
		ticks, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Line{Kind: LineUnrecognized}
		}
		return Line{
			Kind: LineFrameSample,
			Sample: Sample{
				Addr:       m[1],
				Ticks:      ticks,
				Percentage: m[3],
				Depth:      len(m[4]),
				Name:       m[5],
				Annotation: strings.TrimRight(m[6], "\r\n \t"),
			},
		}
	}
	if m := headerFrameRe.FindStringSubmatch(line); m != nil {
		id, _ := strconv.Atoi(m[1])
		ticks, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Line{Kind: LineUnrecognized}
		}
		size, _ := strconv.ParseInt(m[3], 10, 64)
		annotations, _ := strconv.Atoi(m[4])
		return Line{
			Kind: LineHeaderFrame,
			Header: HeaderFrame{
				ID:          id,
				TotalTicks:  ticks,
				CaptureSize: size,
				Annotations: annotations,
				Label:       m[5],
			},
		}
	}
	return Line{Kind: LineUnrecognized}
}
