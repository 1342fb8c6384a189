// Package browser maintains a pool of warm headless-browser instances and
// lends out short-lived page handles to rendering callers.
package browser

import "context"

// WaitStrategy selects how long SetContent blocks after the document is set.
type WaitStrategy int

const (
	// WaitDOMReady returns once the document has loaded.
	WaitDOMReady WaitStrategy = iota
	// WaitNetworkIdle additionally waits for in-flight requests (web fonts,
	// images) to settle before returning.
	WaitNetworkIdle
)

// FontCheck names a font family and a representative sample string whose
// glyphs must be renderable before printing.
type FontCheck struct {
	Family string
	Sample string
}

// PrintOptions are the resolved, unit-normalized rasterization parameters.
// All dimensions are in inches, the unit the DevTools protocol expects.
type PrintOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginBottom    float64
	MarginLeft      float64
	MarginRight     float64
	PrintBackground bool
}

// Page is a single browser tab scoped to one rendering task.
type Page interface {
	// SetContent replaces the document with html and blocks per the wait
	// strategy.
	SetContent(ctx context.Context, html string, wait WaitStrategy) error

	// WaitFonts polls the page's font readiness for the given checks until
	// they pass or ctx expires. A ctx expiry is returned as the context
	// error; callers decide whether it is fatal.
	WaitFonts(ctx context.Context, checks []FontCheck) error

	// EmulateScreenMedia forces CSS media "screen" so stylesheets written
	// for screens keep applying during print rasterization.
	EmulateScreenMedia() error

	// PrintPDF rasterizes the current document.
	PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error)

	Close() error
}

// Browser is one headless-browser process capable of hosting many pages.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Launcher starts browser processes. The pool owns retries and bookkeeping;
// a Launcher only knows how to start one instance.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}
