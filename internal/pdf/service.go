// Package pdf is the single choke point for HTML to PDF conversion. It
// bounds concurrent renders independently of the browser pool's own caps:
// pages are cheap to host but each active render is expensive.
package pdf

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"promptpdf/internal/browser"
)

// Options tunes the render service.
type Options struct {
	MaxConcurrency  int
	RenderTimeout   time.Duration
	FontWaitTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 8
	}
	if o.RenderTimeout <= 0 {
		o.RenderTimeout = 30 * time.Second
	}
	if o.FontWaitTimeout <= 0 {
		o.FontWaitTimeout = 10 * time.Second
	}
	return o
}

// Result carries the rendered bytes and timing metadata.
type Result struct {
	PDF            []byte
	PageCount      int
	GenerationTime time.Duration
	InstanceID     string
}

// Service owns render admission control on top of a browser pool. Callers
// beyond MaxConcurrency suspend on a FIFO wait queue until a slot frees.
type Service struct {
	pool   *browser.Pool
	sem    *semaphore.Weighted
	opts   Options
	logger zerolog.Logger

	active  atomic.Int64
	waiting atomic.Int64
}

// NewService constructs a render service over the given pool. Each Service
// has isolated admission state, so tests can run several with different
// limits.
func NewService(pool *browser.Pool, opts Options, logger zerolog.Logger) *Service {
	opts = opts.withDefaults()
	return &Service{
		pool:   pool,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		opts:   opts,
		logger: logger,
	}
}

// ActiveRenders reports how many renders currently hold a slot.
func (s *Service) ActiveRenders() int { return int(s.active.Load()) }

// WaitingRenders reports how many callers are suspended for a slot.
func (s *Service) WaitingRenders() int { return int(s.waiting.Load()) }

// Render converts html to PDF bytes. It acquires a concurrency slot, borrows
// a page, loads content with a script-aware wait strategy and rasterizes.
// The page and slot are released on every path; retry policy belongs to the
// caller.
func (s *Service) Render(ctx context.Context, html string, opts RenderOptions) (*Result, error) {
	printOpts, timeout, err := resolve(opts, s.opts.RenderTimeout)
	if err != nil {
		return nil, err
	}

	s.waiting.Add(1)
	err = s.sem.Acquire(ctx, 1)
	s.waiting.Add(-1)
	if err != nil {
		return nil, fmt.Errorf("acquire render slot: %w", err)
	}
	defer s.sem.Release(1)

	s.active.Add(1)
	defer s.active.Add(-1)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		s.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("pdf: page acquisition failed")
		return nil, err
	}
	defer lease.Close()

	result, err := s.renderOnPage(ctx, lease, html, printOpts, opts.WaitForImages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("instance_id", lease.InstanceID).
			Int64("took_ms", time.Since(start).Milliseconds()).
			Msg("pdf: render failed")
		return nil, err
	}

	result.GenerationTime = time.Since(start)
	result.InstanceID = lease.InstanceID
	s.logger.Info().
		Str("instance_id", lease.InstanceID).
		Int("pdf_bytes", len(result.PDF)).
		Int64("took_ms", result.GenerationTime.Milliseconds()).
		Int("active_renders", s.ActiveRenders()).
		Msg("pdf: render complete")
	return result, nil
}

func (s *Service) renderOnPage(ctx context.Context, lease *browser.Lease, html string, printOpts browser.PrintOptions, waitForImages bool) (*Result, error) {
	// Screen media keeps stylesheets behind @media screen applying in the
	// printed output.
	if err := lease.Page.EmulateScreenMedia(); err != nil {
		return nil, fmt.Errorf("emulate screen media: %w", err)
	}

	script := DetectScript(html)
	wait := browser.WaitDOMReady
	if script == ScriptComplex || waitForImages {
		wait = browser.WaitNetworkIdle
	}
	if err := lease.Page.SetContent(ctx, html, wait); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	if script == ScriptComplex {
		// Best effort: a fallback font beats a hung request, so a
		// font-wait timeout is absorbed.
		fontCtx, fontCancel := context.WithTimeout(ctx, s.opts.FontWaitTimeout)
		if err := lease.Page.WaitFonts(fontCtx, FontChecks(html)); err != nil {
			s.logger.Debug().Err(err).Msg("pdf: font wait incomplete, proceeding")
		}
		fontCancel()
	}

	data, err := lease.Page.PrintPDF(ctx, printOpts)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	// Multi-page output is still reported as a single page; the protocol
	// result does not carry a count and nothing downstream relies on it
	// yet.
	return &Result{PDF: data, PageCount: 1}, nil
}
