package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/storefront/internal/adapters/cache"
	"github.com/okian/storefront/internal/config"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithLevel("error"))
}

const upstreamCatalog = `[
  {"id":1,"title":"A","price":10,"category":"x","rating":{"rate":4,"count":1}},
  {"id":2,"title":"B","price":50,"category":"y","rating":{"rate":5,"count":1}},
  {"id":3,"title":"C","price":10,"category":"x","rating":{"rate":3,"count":1}}
]`

func fakeCatalog() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products" {
			fmt.Fprint(w, upstreamCatalog)
			return
		}
		http.NotFound(w, r)
	}))
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running server over a fake catalog", t, func() {
		upstreamSrv := fakeCatalog()
		defer upstreamSrv.Close()

		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.CatalogBaseURL = upstreamSrv.URL

		ctx, cancel := context.WithCancel(context.Background())
		ready := make(chan string, 1)
		done := make(chan error, 1)
		stopped := make(chan struct{})
		go func() {
			done <- run(ctx, cfg, ready)
			close(stopped)
		}()

		var addr string
		select {
		case addr = <-ready:
		case err := <-done:
			t.Fatalf("server exited early: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not start")
		}
		base := "http://" + addr

		convey.Convey("When requesting the top products", func() {
			resp, err := http.Get(base + "/products/top?limit=2")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			var items []product.Product
			convey.So(json.NewDecoder(resp.Body).Decode(&items), convey.ShouldBeNil)

			convey.Convey("Then the ranking should be served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(product.IDs(items), convey.ShouldResemble, []int{1, 3})
			})
		})

		convey.Convey("When requesting the site, docs and metrics", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/healthz", "/stats"} {
				resp, err := http.Get(base + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("When the context is canceled", func() {
			cancel()

			convey.Convey("Then run should return cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					t.Fatal("server did not stop")
				}
			})
		})

		cancel()
		<-stopped
	})
}

func TestBuildCatalog(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()
		ctx := context.Background()

		convey.Convey("When no redis address is set", func() {
			_, store := buildCatalog(ctx, cfg, logger.Get())

			convey.Convey("Then caching should be disabled", func() {
				_, ok := store.(cache.NoopStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When redis is unreachable", func() {
			cfg.RedisAddr = "127.0.0.1:1"
			_, store := buildCatalog(ctx, cfg, logger.Get())

			convey.Convey("Then it should fall back to no caching", func() {
				_, ok := store.(cache.NoopStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})
	})
}
