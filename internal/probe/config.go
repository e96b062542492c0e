// Package probe checks a storefront: locally, that both ranking strategies
// agree, and against a running server, that /products/top matches a local
// recomputation and that cart endpoints behave.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL   string        // Base URL of the service; empty runs only the synthetic check
	Requests  int           // Number of /products/top requests
	Carts     int           // Number of cart round trips
	Workers   int           // Number of concurrent workers
	MaxLimit  int           // Largest limit to request; must not exceed the server's max_top_limit
	Timeout   time.Duration // HTTP request timeout
	Synthetic int           // Catalog size for the synthetic check; 0 disables it
	Threshold int           // Strategy switch point used by the synthetic check
	Seed      uint64        // Random seed; 0 picks one from the clock
	Verbose   bool          // Log every request
}

// Stats holds probe results.
type Stats struct {
	SyntheticChecks     int
	SyntheticMismatches int
	TopRequests         int
	TopMismatches       int
	TopFailures         int
	CartRoundTrips      int
	CartFailures        int
	StartTime           time.Time
	Duration            time.Duration
}

// Failed reports whether any check failed.
func (s *Stats) Failed() bool {
	return s.SyntheticMismatches > 0 || s.TopMismatches > 0 || s.TopFailures > 0 || s.CartFailures > 0
}
