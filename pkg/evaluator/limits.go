package evaluator

// DefaultMaxCallDepth bounds nested calls when no limit is configured.
const DefaultMaxCallDepth = 10000

// Limits holds the resource limits for a program execution.
type Limits struct {
	MaxCallDepth int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxCallDepth: DefaultMaxCallDepth}
}

// depthTracker counts active calls.
type depthTracker struct {
	depth int
	max   int
}

func (d *depthTracker) enter() bool {
	d.depth++
	return d.max <= 0 || d.depth <= d.max
}

func (d *depthTracker) leave() {
	d.depth--
}
