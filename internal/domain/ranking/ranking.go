package ranking

import (
	"fmt"
	"math"

	"github.com/okian/storefront/internal/domain/product"
)

// maxRating is the upper bound of the rating scale used for normalization.
const maxRating = 5.0

// Strategy names the selection algorithm used for a call.
type Strategy string

// Selection strategies.
const (
	StrategyFullSort    Strategy = "full_sort"
	StrategyBoundedTopK Strategy = "bounded_topk"
)

// Engine ranks products by a composite score of normalized rating and price.
//
// Ordering: score DESC, then input position ASC. Both strategies share that
// comparator, so their outputs are identical for any input, ties included.
// The Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	threshold int
	defaults  Options
}

// NewEngine creates a ranking engine with configuration options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		threshold: DefaultLargeDatasetThreshold,
		defaults:  DefaultOptions(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

var defaultEngine = NewEngine() //nolint:gochecknoglobals // stateless default used by TopProducts

// TopProducts ranks items with the default engine.
func TopProducts(items []product.Product, opts ...Option) ([]product.Product, error) {
	return defaultEngine.SelectTop(items, opts...)
}

// Threshold returns the item count above which the bounded strategy is used.
func (e *Engine) Threshold() int {
	return e.threshold
}

// Defaults returns the options every call starts from.
func (e *Engine) Defaults() Options {
	return e.defaults
}

// StrategyFor reports which strategy SelectTop uses for n items.
func (e *Engine) StrategyFor(n int) Strategy {
	if n > e.threshold {
		return StrategyBoundedTopK
	}
	return StrategyFullSort
}

// SelectTop returns up to limit items ordered by descending score.
// The returned products are copies of the input items; the input is not modified.
//
// Options are validated before anything else: weights that are negative,
// non-finite or both zero yield ErrInvalidWeights, a negative limit yields
// ErrInvalidLimit. Ratings are not clamped.
func (e *Engine) SelectTop(items []product.Product, opts ...Option) ([]product.Product, error) {
	o := e.defaults
	for _, opt := range opts {
		opt(&o)
	}

	if o.Limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, o.Limit)
	}
	s, err := newScorer(items, o)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 || o.Limit == 0 {
		return []product.Product{}, nil
	}

	var top []scored
	switch e.StrategyFor(len(items)) {
	case StrategyBoundedTopK:
		top = boundedTopK(items, s, o.Limit)
	default:
		top = fullSort(items, s, o.Limit)
	}

	out := make([]product.Product, len(top))
	for i, c := range top {
		out[i] = items[c.index]
	}
	return out, nil
}

// NormalizeWeights divides both weights by their sum so they add up to 1.
func NormalizeWeights(ratingWeight, priceWeight float64) (float64, float64, error) {
	for _, w := range []float64{ratingWeight, priceWeight} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, 0, fmt.Errorf("%w: rating=%v price=%v", ErrInvalidWeights, ratingWeight, priceWeight)
		}
	}
	total := ratingWeight + priceWeight
	if total == 0 {
		return 0, 0, fmt.Errorf("%w: both weights are zero", ErrInvalidWeights)
	}
	return ratingWeight / total, priceWeight / total, nil
}

// scorer holds everything needed to score one item against its dataset.
type scorer struct {
	ratingWeight      float64
	priceWeight       float64
	preferHigherPrice bool
	minPrice          float64
	priceRange        float64
}

func newScorer(items []product.Product, o Options) (scorer, error) {
	rw, pw, err := NormalizeWeights(o.RatingWeight, o.PriceWeight)
	if err != nil {
		return scorer{}, err
	}
	minPrice, maxPrice := priceBounds(items)
	priceRange := maxPrice - minPrice
	if priceRange == 0 {
		priceRange = 1
	}
	return scorer{
		ratingWeight:      rw,
		priceWeight:       pw,
		preferHigherPrice: o.PreferHigherPrice,
		minPrice:          minPrice,
		priceRange:        priceRange,
	}, nil
}

// score computes the weighted score of p in [0,1] for in-range inputs.
func (s scorer) score(p *product.Product) float64 {
	normalizedRating := p.Rating.Rate / maxRating

	position := (p.Price - s.minPrice) / s.priceRange
	normalizedPrice := 1 - position // cheaper ranks higher
	if s.preferHigherPrice {
		normalizedPrice = position
	}

	return normalizedRating*s.ratingWeight + normalizedPrice*s.priceWeight
}

// priceBounds returns the minimum and maximum price; zeros for empty input.
func priceBounds(items []product.Product) (float64, float64) {
	if len(items) == 0 {
		return 0, 0
	}
	minPrice, maxPrice := items[0].Price, items[0].Price
	for i := 1; i < len(items); i++ {
		if items[i].Price < minPrice {
			minPrice = items[i].Price
		}
		if items[i].Price > maxPrice {
			maxPrice = items[i].Price
		}
	}
	return minPrice, maxPrice
}
