package xray

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// ErrInvalidState reports a parser defect: the state machine reached a
// state outside its enumerated set. It is never produced by malformed
// input.
var ErrInvalidState = errors.New("parser entered invalid state")

// parseState is the closed state set of the report parser.
type parseState int

const (
	findHeader parseState = iota
	parseHeader
	findFrame
	parseFrame
)

// CallCount aggregates how often one address was sampled across the run.
type CallCount struct {
	Name  string
	Count int
}

// Parser consumes an XRay report line by line and populates a frame
// registry with call trees. A Parser covers exactly one conversion run;
// it holds no state shared between runs.
type Parser struct {
	log *logrus.Logger

	registry *Registry
	counts   map[string]*CallCount

	// lastAtDepth maps nesting depth to the most recently created node at
	// that depth. It resolves the parent of the next sample and is valid
	// only within one frame block.
	lastAtDepth map[int]*Node
	lastDepth   int

	samples       int
	droppedBlocks int
	depthClamps   int
}

// NewParser creates a parser writing diagnostics to logger. A nil logger
// gets a default that only reports warnings.
func NewParser(logger *logrus.Logger) *Parser {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Parser{
		log:      logger,
		registry: NewRegistry(),
		counts:   make(map[string]*CallCount),
	}
}

// Registry returns the frames populated by Parse.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// CallCounts returns per-address sample counts accumulated over the run.
func (p *Parser) CallCounts() map[string]*CallCount {
	return p.counts
}

// Samples returns the number of call-sample lines accepted.
func (p *Parser) Samples() int {
	return p.samples
}

// DroppedBlocks returns the number of frame blocks discarded because
// their label was never declared in the header.
func (p *Parser) DroppedBlocks() int {
	return p.droppedBlocks
}

// DepthClamps returns how many samples arrived with a depth jump greater
// than one level and were reattached at the previous depth plus one.
func (p *Parser) DepthClamps() int {
	return p.depthClamps
}

// Parse reads the whole report from r. Non-structural lines are skipped;
// only a read failure or a state-machine defect aborts.
func (p *Parser) Parse(r io.Reader) error {
	state := findHeader
	var frame *Frame // nil while dropping an undeclared block
	currentLabel := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch state {
		case findHeader:
			if Classify(line).Kind == LineHeaderStart {
				state = parseHeader
			}

		case parseHeader:
			switch c := Classify(line); c.Kind {
			case LineHeaderFrame:
				f := NewFrame(c.Header.Label, c.Header.TotalTicks, c.Header.CaptureSize)
				p.registry.Add(f)
				p.log.WithFields(logrus.Fields{
					"frame": f.Label,
					"ticks": f.TotalTicks,
				}).Debug("Registered frame")
			case LineHeaderEnd:
				p.log.WithField("frames", p.registry.Len()).Info("Header parsed")
				state = findFrame
			default:
				p.log.WithField("line", line).Debug("Ignoring header line")
			}

		case findFrame:
			if c := Classify(line); c.Kind == LineFrameStart {
				currentLabel = c.Label
				frame = p.registry.Get(currentLabel)
				if frame == nil {
					// Undeclared label: consume the block but drop its
					// samples.
					p.droppedBlocks++
					p.log.WithField("frame", currentLabel).Warn("Frame not declared in header, dropping samples")
				} else {
					p.log.WithField("frame", currentLabel).Info("Found frame data")
				}
				p.lastAtDepth = make(map[int]*Node)
				p.lastDepth = 0
				state = parseFrame
			}

		case parseFrame:
			switch c := Classify(line); c.Kind {
			case LineFrameEnd:
				if frame != nil {
					p.log.WithField("frame", currentLabel).Info("Frame complete")
					p.log.Debug(frame.Root.String())
				}
				frame = nil
				state = findFrame
			case LineFrameSample:
				p.addSample(frame, c.Sample)
			default:
				p.log.WithField("line", line).Debug("Line did not match")
			}

		default:
			return fmt.Errorf("%w: %d", ErrInvalidState, state)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("cannot read report: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"frames":  p.registry.Len(),
		"samples": p.samples,
	}).Info("Report parsed completely")
	return nil
}

// addSample attaches one call sample to the current frame's tree. The
// parent is the frame root at depth zero, otherwise the last node seen
// one level up. A depth that skips levels is pulled back to the previous
// depth plus one so the sample still lands under the deepest known node.
func (p *Parser) addSample(frame *Frame, s Sample) {
	cc := p.counts[s.Addr]
	if cc == nil {
		cc = &CallCount{Name: s.Name}
		p.counts[s.Addr] = cc
	}
	cc.Count++

	if frame == nil {
		return
	}
	p.samples++

	depth := s.Depth
	if depth > p.lastDepth+1 {
		p.depthClamps++
		p.log.WithFields(logrus.Fields{
			"function": s.Name,
			"depth":    s.Depth,
			"previous": p.lastDepth,
		}).Warn("Call depth skips levels, clamping")
		depth = p.lastDepth + 1
	}

	parent := frame.Root
	if depth > 0 {
		if up := p.lastAtDepth[depth-1]; up != nil {
			parent = up
		}
	}

	p.log.WithFields(logrus.Fields{
		"function": s.Name,
		"address":  s.Addr,
		"ticks":    s.Ticks,
	}).Debug("Call sample")

	p.lastAtDepth[depth] = parent.Call(s.Name, s.Addr, s.Ticks)
	p.lastDepth = depth
}
