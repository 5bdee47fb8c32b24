package roadplan

import (
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OsmConfiguration Allows to filter ways by certain tags from OSM data
type OsmConfiguration struct {
	EntityName string // e.g. 'highway'
	Tags       []string
}

// CheckTag Checks if incoming tag is represented in configuration
func (cfg *OsmConfiguration) CheckTag(tag string) bool {
	for i := range cfg.Tags {
		if cfg.Tags[i] == tag {
			return true
		}
	}
	return false
}

// Accept checks if way with given tags passes the filter. Empty list of tags accepts any value of EntityName
func (cfg *OsmConfiguration) Accept(tags osm.Tags) bool {
	if cfg == nil || cfg.EntityName == "" {
		return true
	}
	value := tags.Find(cfg.EntityName)
	if value == "" {
		return false
	}
	if len(cfg.Tags) == 0 {
		return true
	}
	return cfg.CheckTag(value)
}

// LoaderOptions are shared by every graph loader
type LoaderOptions struct {
	comma  rune
	logger *zap.Logger
	osmCfg *OsmConfiguration
	// skipInvalidArcs drops infeasible and degenerate arcs instead of failing the whole load
	skipInvalidArcs bool
}

func newLoaderOptions(options ...func(*LoaderOptions)) LoaderOptions {
	opts := LoaderOptions{
		comma:  ',',
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// WithComma sets field separator of graph tables
func WithComma(comma rune) func(*LoaderOptions) {
	return func(opts *LoaderOptions) {
		opts.comma = comma
	}
}

// WithLoaderLogger sets logger used to report progress and stale cached geometry. Nil is ignored
func WithLoaderLogger(logger *zap.Logger) func(*LoaderOptions) {
	return func(opts *LoaderOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithOsmConfiguration sets filter of OSM ways
func WithOsmConfiguration(cfg *OsmConfiguration) func(*LoaderOptions) {
	return func(opts *LoaderOptions) {
		opts.osmCfg = cfg
	}
}

// WithSkipInvalidArcs makes loaders drop arcs rejected by geometry (ErrInfeasibleArc, ErrDegenerateSegment) with a warning.
// Such arcs fail the load by default
func WithSkipInvalidArcs(skip bool) func(*LoaderOptions) {
	return func(opts *LoaderOptions) {
		opts.skipInvalidArcs = skip
	}
}

// skipArc reports whether loading may go on after graph rejected arc with given error
func (opts LoaderOptions) skipArc(err error, key ArcKey, fields ...zap.Field) bool {
	if !opts.skipInvalidArcs {
		return false
	}
	if !errors.Is(err, ErrInfeasibleArc) && !errors.Is(err, ErrDegenerateSegment) {
		return false
	}
	fields = append(fields, zap.String("arc", key.String()), zap.Error(err))
	opts.logger.Warn("invalid arc skipped", fields...)
	return true
}
