// Package site serves the embedded storefront landing page.
package site

import (
	"net/http"
)

// Register attaches the landing page and its assets to mux.
func Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	// "/{$}" matches only the root, so API routes never fall through to files.
	mux.Handle("GET /{$}", files)
	mux.Handle("GET /assets/", files)
}
