// Package ranking selects the top-N products by a weighted score of rating and price.
package ranking

// Default scoring configuration constants.
const (
	DefaultRatingWeight          = 0.7
	DefaultPriceWeight           = 0.3
	DefaultLimit                 = 10
	DefaultLargeDatasetThreshold = 10_000
)

// Options controls how products are scored and how many are returned.
type Options struct {
	RatingWeight      float64
	PriceWeight       float64
	PreferHigherPrice bool
	Limit             int
}

// DefaultOptions returns the scoring defaults: 0.7 rating, 0.3 price,
// cheaper preferred, 10 results.
func DefaultOptions() Options {
	return Options{
		RatingWeight: DefaultRatingWeight,
		PriceWeight:  DefaultPriceWeight,
		Limit:        DefaultLimit,
	}
}

// Option applies a configuration option to a single ranking call.
type Option func(*Options)

// WithRatingWeight sets the relative importance of the normalized rating.
func WithRatingWeight(w float64) Option {
	return func(o *Options) {
		o.RatingWeight = w
	}
}

// WithPriceWeight sets the relative importance of the normalized price.
func WithPriceWeight(w float64) Option {
	return func(o *Options) {
		o.PriceWeight = w
	}
}

// WithPreferHigherPrice inverts the price normalization so expensive items score higher.
func WithPreferHigherPrice(prefer bool) Option {
	return func(o *Options) {
		o.PreferHigherPrice = prefer
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

// WithOptions replaces every field at once, e.g. with values loaded from config.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
	}
}

// EngineOption applies a configuration option to the Engine.
type EngineOption func(*Engine)

// WithLargeDatasetThreshold sets the item count above which the bounded
// top-K strategy replaces the full sort.
func WithLargeDatasetThreshold(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithDefaults sets the options every call starts from before its own options apply.
func WithDefaults(opts Options) EngineOption {
	return func(e *Engine) {
		e.defaults = opts
	}
}
