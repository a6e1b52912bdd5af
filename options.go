package hybridsearch

import (
	"github.com/hupe1980/hybridsearch/embed"
	"github.com/hupe1980/hybridsearch/lexical"
)

// TwoTierConfig is the immutable configuration of a two-tier search:
// fusion weights, candidate widths, and the quality-phase deadline.
type TwoTierConfig struct {
	QualityWeight       float64
	RRFK                float64
	CandidateMultiplier int
	FastOnly            bool
	QualityTimeoutMS    int
}

// DefaultTwoTierConfig returns the spec defaults.
func DefaultTwoTierConfig() TwoTierConfig {
	return TwoTierConfig{
		QualityWeight:       0.7,
		RRFK:                60.0,
		CandidateMultiplier: 3,
		FastOnly:            false,
		QualityTimeoutMS:    500,
	}
}

// options configures Orchestrator construction behavior.
type options struct {
	config         TwoTierConfig
	quality        embed.Embedder
	lexicalBackend lexical.Backend

	metricsCollector MetricsCollector
	logger           *Logger
	textResolver     TextResolver
	reranker         Reranker
}

// Option configures Orchestrator construction behavior.
//
// Today options primarily exist to avoid exploding New's parameter list.
type Option func(*options)

// WithConfig sets the two-tier configuration. If not supplied,
// DefaultTwoTierConfig is used.
func WithConfig(cfg TwoTierConfig) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// search operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for search operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithTextResolver registers the callback the REFINED phase uses to obtain
// a candidate's canonical text when it needs to re-embed that candidate
// with the quality embedder (step 6 of the orchestrator stage sequence).
// The orchestrator itself stores only vectors, not text.
func WithTextResolver(fn TextResolver) Option {
	return func(o *options) {
		o.textResolver = fn
	}
}

// WithReranker registers a caller-supplied reranker. The orchestrator
// never invokes it today — no third phase is added unless a caller
// explicitly supplies one (see Reranker).
func WithReranker(r Reranker) Option {
	return func(o *options) {
		o.reranker = r
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		config:           DefaultTwoTierConfig(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
