package roadplan

import "github.com/pkg/errors"

var (
	// ErrInfeasibleArc chord between arc endpoints is longer than the arc diameter
	ErrInfeasibleArc = errors.New("infeasible arc: chord exceeds 2*|radius|")
	// ErrNoProjection no arc of the graph accepts a projection of given point
	ErrNoProjection = errors.New("no projection onto graph")
	// ErrNoPathFound target is unreachable from source
	ErrNoPathFound = errors.New("no path found")
	// ErrMalformedGraph arc references missing node or path references missing arc
	ErrMalformedGraph = errors.New("malformed graph")
	// ErrDegenerateSegment zero-length arc
	ErrDegenerateSegment = errors.New("degenerate segment")
	// ErrStraightArc circle fitting has been requested for an infinite radius
	ErrStraightArc = errors.New("straight arc has no center")
	// ErrInvalidRadius radius is zero or not a number
	ErrInvalidRadius = errors.New("invalid radius")
	// ErrInvalidStep densification step must be positive
	ErrInvalidStep = errors.New("invalid step size")
	// ErrDuplicateNode node with the same ID already exists
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrDuplicateArc arc with the same source and target already exists
	ErrDuplicateArc = errors.New("duplicate arc")
)
