package roadplan

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	// DefaultStepSize is maximum spacing between poses (millimetres) used by the vehicle controller
	DefaultStepSize = 50.0
	// DefaultAttachNeighbours is number of nearest nodes used when endpoint can't be projected
	DefaultAttachNeighbours = 2
	// DefaultConcurrency is maximum number of requests processed simultaneously by PlanAll
	DefaultConcurrency = 4
)

// Planner builds routes over the base road graph. The base graph is never mutated, so single Planner
// may be shared between goroutines
type Planner struct {
	graph               *Graph
	stepSize            float64
	attachNeighbours    int
	bidirectionalAttach bool
	splitTwins          bool
	concurrency         int
	logger              *zap.Logger
}

func (planner *Planner) String() string {
	return fmt.Sprintf(`
Planner parameters:
	nodes: %d
	arcs: %d
	step_size: %f
	attach_neighbours: %d
	bidirectional attach?: %t
	split two-way roads?: %t
	concurrency: %d
	`,
		planner.graph.NumNodes(),
		planner.graph.NumArcs(),
		planner.stepSize,
		planner.attachNeighbours,
		planner.bidirectionalAttach,
		planner.splitTwins,
		planner.concurrency,
	)
}

// NewPlanner returns planner over given base graph
func NewPlanner(graph *Graph, options ...func(*Planner)) *Planner {
	planner := &Planner{
		graph:               graph,
		stepSize:            DefaultStepSize,
		attachNeighbours:    DefaultAttachNeighbours,
		bidirectionalAttach: true,
		splitTwins:          true,
		concurrency:         DefaultConcurrency,
		logger:              zap.NewNop(),
	}
	for _, option := range options {
		option(planner)
	}
	return planner
}

// WithStepSize sets maximum spacing between poses of dense trajectory
func WithStepSize(stepSize float64) func(*Planner) {
	return func(planner *Planner) {
		planner.stepSize = stepSize
	}
}

// WithAttachNeighbours sets number of nearest nodes to join with endpoint which can't be projected onto any arc
func WithAttachNeighbours(attachNeighbours int) func(*Planner) {
	return func(planner *Planner) {
		planner.attachNeighbours = attachNeighbours
	}
}

// WithBidirectionalAttach tells if attached endpoints are joined with neighbours in both directions
func WithBidirectionalAttach(bidirectionalAttach bool) func(*Planner) {
	return func(planner *Planner) {
		planner.bidirectionalAttach = bidirectionalAttach
	}
}

// WithTwinSplit tells if reverse arc of two-way road should be split at the same nodes as projected arc
func WithTwinSplit(splitTwins bool) func(*Planner) {
	return func(planner *Planner) {
		planner.splitTwins = splitTwins
	}
}

// WithConcurrency sets maximum number of requests processed simultaneously by PlanAll
func WithConcurrency(concurrency int) func(*Planner) {
	return func(planner *Planner) {
		planner.concurrency = concurrency
	}
}

// WithLogger sets logger. Nil is ignored
func WithLogger(logger *zap.Logger) func(*Planner) {
	return func(planner *Planner) {
		if logger != nil {
			planner.logger = logger
		}
	}
}
