package probe

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/okian/storefront/internal/domain/ranking"
)

// Default probe settings.
const (
	defaultBaseURL  = "http://localhost:9080"
	defaultRequests = 200
	defaultCarts    = 20
	defaultMaxLimit = 100
	defaultTimeout  = 30 * time.Second
)

// ParseFlags builds a Config from command-line arguments. Usage goes to out.
func ParseFlags(args []string, out io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.BaseURL, "url", defaultBaseURL, "base URL of the service; empty skips server checks")
	fs.IntVar(&cfg.Requests, "requests", defaultRequests, "number of /products/top requests")
	fs.IntVar(&cfg.Carts, "carts", defaultCarts, "number of cart round trips")
	fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "number of concurrent workers")
	fs.IntVar(&cfg.MaxLimit, "max-limit", defaultMaxLimit, "largest limit to request")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	fs.IntVar(&cfg.Synthetic, "synthetic", 0, "catalog size for the local strategy check; 0 disables it")
	fs.IntVar(&cfg.Threshold, "threshold", ranking.DefaultLargeDatasetThreshold, "strategy switch point for the synthetic check")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "random seed; 0 uses the clock")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log every request")
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "" && c.Synthetic == 0:
		return errors.New("nothing to do: set -url or -synthetic")
	case c.Requests < 0 || c.Carts < 0 || c.Synthetic < 0:
		return errors.New("counts must not be negative")
	case c.Workers <= 0:
		return errors.New("workers must be positive")
	case c.MaxLimit < 0:
		return errors.New("max-limit must not be negative")
	case c.Threshold <= 0:
		return errors.New("threshold must be positive")
	}
	return nil
}

const usage = `Storefront probe
================

Checks ranking consistency and cart behavior.

Usage:
  go run ./cmd/probe [options]

Examples:
  # Check a local server
  go run ./cmd/probe -url http://localhost:9080 -requests 500

  # Compare strategies on a 50k synthetic catalog, no server needed
  go run ./cmd/probe -url "" -synthetic 50000

Options:
`
