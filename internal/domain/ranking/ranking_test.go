package ranking_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func item(id int, price, rate float64) product.Product {
	return product.Product{
		ID:       id,
		Title:    "item",
		Price:    price,
		Category: "misc",
		Rating:   product.Rating{Rate: rate, Count: 10},
	}
}

func TestTopProducts_Scenario(t *testing.T) {
	Convey("Given three products A(10, 4), B(50, 5) and C(10, 3)", t, func() {
		items := []product.Product{
			item(1, 10, 4), // A
			item(2, 50, 5), // B
			item(3, 10, 3), // C
		}

		Convey("When ranking with default weights", func() {
			top, err := ranking.TopProducts(items, ranking.WithLimit(3))

			Convey("Then the order should be A, C, B", func() {
				So(err, ShouldBeNil)
				So(product.IDs(top), ShouldResemble, []int{1, 3, 2})
			})

			Convey("And the payload should be carried through unchanged", func() {
				So(top[0], ShouldResemble, items[0])
				So(top[2], ShouldResemble, items[1])
			})
		})

		Convey("When ranking with higher prices preferred", func() {
			top, err := ranking.TopProducts(items, ranking.WithPreferHigherPrice(true))

			Convey("Then B should lead", func() {
				So(err, ShouldBeNil)
				So(product.IDs(top), ShouldResemble, []int{2, 1, 3})
			})
		})

		Convey("When the input is ranked", func() {
			before := product.Clone(items)
			_, err := ranking.TopProducts(items)

			Convey("Then the caller's slice should be untouched", func() {
				So(err, ShouldBeNil)
				So(items, ShouldResemble, before)
			})
		})
	})
}

func TestTopProducts_LimitSemantics(t *testing.T) {
	Convey("Given a small catalog", t, func() {
		items := []product.Product{
			item(1, 5, 1), item(2, 6, 2), item(3, 7, 3), item(4, 8, 4), item(5, 9, 5),
		}

		Convey("When limit is smaller than the catalog", func() {
			top, err := ranking.TopProducts(items, ranking.WithLimit(2))
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 2)
		})

		Convey("When limit exceeds the catalog", func() {
			top, err := ranking.TopProducts(items, ranking.WithLimit(50))
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, len(items))
		})

		Convey("When limit is zero", func() {
			top, err := ranking.TopProducts(items, ranking.WithLimit(0))
			So(err, ShouldBeNil)
			So(top, ShouldBeEmpty)
		})

		Convey("When limit is negative", func() {
			top, err := ranking.TopProducts(items, ranking.WithLimit(-1))
			So(errors.Is(err, ranking.ErrInvalidLimit), ShouldBeTrue)
			So(top, ShouldBeNil)
		})

		Convey("When no limit is given", func() {
			many := make([]product.Product, 25)
			for i := range many {
				many[i] = item(i, float64(i+1), 3)
			}
			top, err := ranking.TopProducts(many)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, ranking.DefaultLimit)
		})
	})

	Convey("Given an empty catalog", t, func() {
		Convey("Then any limit should yield an empty, non-nil result", func() {
			for _, limit := range []int{0, 1, 10, 1000} {
				top, err := ranking.TopProducts(nil, ranking.WithLimit(limit))
				So(err, ShouldBeNil)
				So(top, ShouldNotBeNil)
				So(top, ShouldBeEmpty)
			}
		})
	})
}

func TestTopProducts_Weights(t *testing.T) {
	Convey("Given a catalog", t, func() {
		items := []product.Product{item(1, 10, 4), item(2, 20, 2)}

		Convey("When both weights are zero", func() {
			_, err := ranking.TopProducts(items, ranking.WithRatingWeight(0), ranking.WithPriceWeight(0))

			Convey("Then it should fail with ErrInvalidWeights", func() {
				So(errors.Is(err, ranking.ErrInvalidWeights), ShouldBeTrue)
			})
		})

		Convey("When both weights are zero and the catalog is empty", func() {
			_, err := ranking.TopProducts(nil, ranking.WithRatingWeight(0), ranking.WithPriceWeight(0))
			So(errors.Is(err, ranking.ErrInvalidWeights), ShouldBeTrue)
		})

		Convey("When a weight is negative or not finite", func() {
			for _, w := range []float64{-0.1, math.NaN(), math.Inf(1)} {
				_, err := ranking.TopProducts(items, ranking.WithPriceWeight(w))
				So(errors.Is(err, ranking.ErrInvalidWeights), ShouldBeTrue)
			}
		})

		Convey("When weights are scaled by a constant", func() {
			a, errA := ranking.TopProducts(items, ranking.WithRatingWeight(7), ranking.WithPriceWeight(3))
			b, errB := ranking.TopProducts(items)

			Convey("Then the ranking should not change", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(product.IDs(a), ShouldResemble, product.IDs(b))
			})
		})

		Convey("When only one weight is non-zero", func() {
			byRating, err := ranking.TopProducts(items, ranking.WithPriceWeight(0))
			So(err, ShouldBeNil)
			So(product.IDs(byRating), ShouldResemble, []int{1, 2})
		})
	})
}

func TestTopProducts_PreferenceFlip(t *testing.T) {
	Convey("Given distinct prices and price-only weighting", t, func() {
		items := []product.Product{
			item(1, 30, 5), item(2, 10, 1), item(3, 50, 3), item(4, 20, 2), item(5, 40, 4),
		}
		opts := []ranking.Option{ranking.WithRatingWeight(0), ranking.WithPriceWeight(1), ranking.WithLimit(len(items))}

		cheap, err := ranking.TopProducts(items, opts...)
		So(err, ShouldBeNil)
		expensive, err := ranking.TopProducts(items, append(opts, ranking.WithPreferHigherPrice(true))...)
		So(err, ShouldBeNil)

		Convey("Then flipping the preference should reverse the order", func() {
			So(product.IDs(cheap), ShouldResemble, []int{2, 4, 1, 5, 3})
			reversed := product.IDs(expensive)
			for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
				reversed[i], reversed[j] = reversed[j], reversed[i]
			}
			So(reversed, ShouldResemble, product.IDs(cheap))
		})
	})
}

func TestTopProducts_DegeneratePriceRange(t *testing.T) {
	Convey("Given products that all share one price", t, func() {
		items := []product.Product{
			item(1, 15, 2.5), item(2, 15, 4.9), item(3, 15, 0.5), item(4, 15, 3.7),
		}

		Convey("Then the ranking should reduce to rating order", func() {
			for _, prefer := range []bool{false, true} {
				top, err := ranking.TopProducts(items, ranking.WithPreferHigherPrice(prefer))
				So(err, ShouldBeNil)
				So(product.IDs(top), ShouldResemble, []int{2, 4, 1, 3})
			}
		})
	})
}

func TestTopProducts_TiesKeepInputOrder(t *testing.T) {
	Convey("Given identical products", t, func() {
		items := []product.Product{item(7, 10, 3), item(3, 10, 3), item(9, 10, 3)}

		Convey("Then they should come back in input order", func() {
			top, err := ranking.TopProducts(items)
			So(err, ShouldBeNil)
			So(product.IDs(top), ShouldResemble, []int{7, 3, 9})
		})
	})
}

func TestEngine_Options(t *testing.T) {
	Convey("Given an engine with custom defaults and threshold", t, func() {
		engine := ranking.NewEngine(
			ranking.WithLargeDatasetThreshold(2),
			ranking.WithDefaults(ranking.Options{RatingWeight: 1, PriceWeight: 0, Limit: 1}),
		)

		Convey("Then it should report the configured values", func() {
			So(engine.Threshold(), ShouldEqual, 2)
			So(engine.Defaults().Limit, ShouldEqual, 1)
			So(engine.StrategyFor(2), ShouldEqual, ranking.StrategyFullSort)
			So(engine.StrategyFor(3), ShouldEqual, ranking.StrategyBoundedTopK)
		})

		Convey("Then calls should start from its defaults", func() {
			items := []product.Product{item(1, 1, 1), item(2, 100, 5), item(3, 50, 3)}
			top, err := engine.SelectTop(items)
			So(err, ShouldBeNil)
			So(product.IDs(top), ShouldResemble, []int{2})
		})

		Convey("Then a non-positive threshold option should be ignored", func() {
			e := ranking.NewEngine(ranking.WithLargeDatasetThreshold(0))
			So(e.Threshold(), ShouldEqual, ranking.DefaultLargeDatasetThreshold)
		})
	})
}
