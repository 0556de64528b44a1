// Package xray parses XRay profiling reports into per-frame call trees.
package xray

import (
	"fmt"
	"strings"
)

// RootName is the synthetic function name given to each frame's root node.
// It cannot collide with a sampled function because '_root_' is not a valid
// symbol in the report's call-sample grammar applied to real functions.
const RootName = "_root_"

// RootAddr is the synthetic address of a frame's root node.
const RootAddr = "0x0"

// Node is one sampled call occurrence. Ticks is the inclusive cost of the
// call; Calls holds the direct callees in the order they appeared in the
// report, which reflects call sequence at that depth.
type Node struct {
	Name  string
	Addr  string
	Ticks int64
	Calls []*Node
}

// Call appends a new callee under n and returns it.
func (n *Node) Call(name, addr string, ticks int64) *Node {
	callee := &Node{Name: name, Addr: addr, Ticks: ticks}
	n.Calls = append(n.Calls, callee)
	return callee
}

// SelfCost returns the node's inclusive ticks minus the sum of its direct
// callees' inclusive ticks. Sampling truncation can make the raw value
// negative; the cost is clamped to zero and clamped reports true so the
// caller can surface the anomaly.
func (n *Node) SelfCost() (cost int64, clamped bool) {
	cost = n.Ticks
	for _, callee := range n.Calls {
		cost -= callee.Ticks
	}
	if cost < 0 {
		return 0, true
	}
	return cost, false
}

// String renders the subtree as an indented listing, one node per line.
func (n *Node) String() string {
	var b strings.Builder
	n.dump(&b, 0)
	return b.String()
}

func (n *Node) dump(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%s [%d]\n", strings.Repeat("  ", depth), n.Name, n.Ticks)
	for _, callee := range n.Calls {
		callee.dump(b, depth+1)
	}
}

// Frame is one top-level sampled execution unit declared in the report
// header. It owns the root of its call tree; the root's ticks equal the
// frame's total so the root's self cost is the time not attributed to any
// sampled call.
type Frame struct {
	Label       string
	TotalTicks  int64
	CaptureSize int64
	Root        *Node
}

// NewFrame creates a frame with an empty root call tree.
func NewFrame(label string, totalTicks, captureSize int64) *Frame {
	return &Frame{
		Label:       label,
		TotalTicks:  totalTicks,
		CaptureSize: captureSize,
		Root:        &Node{Name: RootName, Addr: RootAddr, Ticks: totalTicks},
	}
}

// Registry holds all frames declared in a report header, keyed by label.
// Order preserves header declaration order so output iteration is
// deterministic.
type Registry struct {
	frames map[string]*Frame
	order  []string
}

// NewRegistry creates an empty frame registry.
func NewRegistry() *Registry {
	return &Registry{frames: make(map[string]*Frame)}
}

// Add registers a frame under its label. A duplicate label replaces the
// earlier frame but keeps its position in declaration order.
func (r *Registry) Add(f *Frame) {
	if _, exists := r.frames[f.Label]; !exists {
		r.order = append(r.order, f.Label)
	}
	r.frames[f.Label] = f
}

// Get returns the frame registered under label, or nil.
func (r *Registry) Get(label string) *Frame {
	return r.frames[label]
}

// Len returns the number of registered frames.
func (r *Registry) Len() int {
	return len(r.order)
}

// Frames returns all frames in header declaration order.
func (r *Registry) Frames() []*Frame {
	out := make([]*Frame, 0, len(r.order))
	for _, label := range r.order {
		out = append(out, r.frames[label])
	}
	return out
}
