package xray

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

const gap = "      " // fixed column gap before the depth indentation

func report(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestParser_SingleFrame(t *testing.T) {
	in := report(
		"Frame#\t\tTotal Ticks\t\t Capture size\t Annotations   Label",
		"       0   20   64   0   MAIN",
		"XRay: 1 frame captured",
		"label MAIN",
		"0x10 10 50.0"+gap+"A",
		"0x20 5 25.0"+gap+"B",
		"=== end",
	)

	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader(in)))

	require.Equal(t, 1, p.Registry().Len())
	frame := p.Registry().Get("MAIN")
	require.NotNil(t, frame)
	assert.Equal(t, int64(20), frame.TotalTicks)
	assert.Equal(t, int64(64), frame.CaptureSize)

	require.Len(t, frame.Root.Calls, 2)
	assert.Equal(t, "A", frame.Root.Calls[0].Name)
	assert.Equal(t, int64(10), frame.Root.Calls[0].Ticks)
	assert.Equal(t, "B", frame.Root.Calls[1].Name)
	assert.Equal(t, int64(5), frame.Root.Calls[1].Ticks)
	assert.Equal(t, 2, p.Samples())
}

func TestParser_NestedCalls(t *testing.T) {
	in := report(
		"Frame#   Total Ticks   Capture size   Annotations   Label",
		"       0   100   64   0   MAIN",
		"XRay: 1 frame captured",
		"label MAIN",
		"0x10 90 90.0"+gap+"outer",
		"0x20 40 40.0"+gap+" inner",
		"0x30 10 10.0"+gap+"  leaf",
		"0x40 30 30.0"+gap+" inner",
		"=== end",
	)

	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader(in)))

	root := p.Registry().Get("MAIN").Root
	require.Len(t, root.Calls, 1)
	outer := root.Calls[0]
	assert.Equal(t, "outer", outer.Name)
	require.Len(t, outer.Calls, 2)
	assert.Equal(t, "inner", outer.Calls[0].Name)
	require.Len(t, outer.Calls[0].Calls, 1)
	assert.Equal(t, "leaf", outer.Calls[0].Calls[0].Name)
	assert.Equal(t, "inner", outer.Calls[1].Name)
	assert.Empty(t, outer.Calls[1].Calls)
}

func TestParser_DepthJumpClamped(t *testing.T) {
	// Depth jumps from 0 straight to 2; the sample must still attach
	// under the previous node instead of crashing.
	in := report(
		"Frame#   Total Ticks   Capture size   Annotations   Label",
		"       0   100   64   0   MAIN",
		"XRay: 1 frame captured",
		"label MAIN",
		"0x10 90 90.0"+gap+"outer",
		"0x20 40 40.0"+gap+"  skipped",
		"=== end",
	)

	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader(in)))

	root := p.Registry().Get("MAIN").Root
	require.Len(t, root.Calls, 1)
	require.Len(t, root.Calls[0].Calls, 1)
	assert.Equal(t, "skipped", root.Calls[0].Calls[0].Name)
	assert.Equal(t, 1, p.DepthClamps())
}

func TestParser_UndeclaredFrameDropped(t *testing.T) {
	in := report(
		"Frame#   Total Ticks   Capture size   Annotations   Label",
		"       0   20   64   0   MAIN",
		"XRay: 1 frame captured",
		"label ROGUE",
		"0x10 10 50.0"+gap+"A",
		"=== end",
		"label MAIN",
		"0x20 5 25.0"+gap+"B",
		"=== end",
	)

	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader(in)))

	assert.Equal(t, 1, p.Registry().Len())
	assert.Nil(t, p.Registry().Get("ROGUE"))
	assert.Equal(t, 1, p.DroppedBlocks())

	// Samples of the declared frame still land in its tree.
	root := p.Registry().Get("MAIN").Root
	require.Len(t, root.Calls, 1)
	assert.Equal(t, "B", root.Calls[0].Name)
}

func TestParser_DepthMapResetBetweenFrames(t *testing.T) {
	// A depth-1 sample at the start of the second frame must not attach
	// under a node left over from the first frame.
	in := report(
		"Frame#   Total Ticks   Capture size   Annotations   Label",
		"       0   100   64   0   ONE",
		"       1   100   64   0   TWO",
		"XRay: 2 frames captured",
		"label ONE",
		"0x10 90 90.0"+gap+"outer",
		"0x20 40 40.0"+gap+" inner",
		"=== end",
		"label TWO",
		"0x30 40 40.0"+gap+" orphan",
		"=== end",
	)

	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader(in)))

	one := p.Registry().Get("ONE").Root
	require.Len(t, one.Calls, 1)
	require.Len(t, one.Calls[0].Calls, 1)

	// With no depth-0 predecessor in TWO, the orphan hangs off the root.
	two := p.Registry().Get("TWO").Root
	require.Len(t, two.Calls, 1)
	assert.Equal(t, "orphan", two.Calls[0].Name)
}

func TestParser_UnrecognizedLinesSkipped(t *testing.T) {
	in := report(
		"Report generated by the profiler",
		"Frame#   Total Ticks   Capture size   Annotations   Label",
		"--- separator the header never promised ---",
		"       0   20   64   0   MAIN",
		"XRay: 1 frame captured",
		"free text between blocks",
		"label MAIN",
		"not a sample line",
		"0x10 10 50.0"+gap+"A",
		"=== end",
	)

	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader(in)))

	root := p.Registry().Get("MAIN").Root
	require.Len(t, root.Calls, 1)
	assert.Equal(t, "A", root.Calls[0].Name)
}

func TestParser_CallCounts(t *testing.T) {
	in := report(
		"Frame#   Total Ticks   Capture size   Annotations   Label",
		"       0   100   64   0   MAIN",
		"XRay: 1 frame captured",
		"label MAIN",
		"0x10 50 50.0"+gap+"work",
		"0x10 40 40.0"+gap+"work",
		"0x20 5 5.0"+gap+"misc",
		"=== end",
	)

	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader(in)))

	counts := p.CallCounts()
	require.Contains(t, counts, "0x10")
	assert.Equal(t, 2, counts["0x10"].Count)
	assert.Equal(t, "work", counts["0x10"].Name)
	assert.Equal(t, 1, counts["0x20"].Count)
}

func TestParser_NoHeader(t *testing.T) {
	p := NewParser(testLogger())
	require.NoError(t, p.Parse(strings.NewReader("just noise\nnothing structural\n")))
	assert.Zero(t, p.Registry().Len())
	assert.Zero(t, p.Samples())
}
