package pdf

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"promptpdf/internal/browser"
)

// stubPage implements browser.Page with observable render behavior shared
// across the whole fake browser tree.
type stubPage struct {
	state *stubState
}

type stubState struct {
	renderDelay   time.Duration
	printErr      error
	setContentErr error

	mu            sync.Mutex
	inFlight      int
	maxInFlight   int
	lastWait      browser.WaitStrategy
	fontWaits     int32
	screenMedia   int32
	pagesReleased int32
}

func (p *stubPage) SetContent(ctx context.Context, html string, wait browser.WaitStrategy) error {
	p.state.mu.Lock()
	p.state.lastWait = wait
	p.state.mu.Unlock()
	return p.state.setContentErr
}

func (p *stubPage) WaitFonts(ctx context.Context, checks []browser.FontCheck) error {
	atomic.AddInt32(&p.state.fontWaits, 1)
	return nil
}

func (p *stubPage) EmulateScreenMedia() error {
	atomic.AddInt32(&p.state.screenMedia, 1)
	return nil
}

func (p *stubPage) PrintPDF(ctx context.Context, opts browser.PrintOptions) ([]byte, error) {
	p.state.mu.Lock()
	p.state.inFlight++
	if p.state.inFlight > p.state.maxInFlight {
		p.state.maxInFlight = p.state.inFlight
	}
	p.state.mu.Unlock()

	if p.state.renderDelay > 0 {
		time.Sleep(p.state.renderDelay)
	}

	p.state.mu.Lock()
	p.state.inFlight--
	p.state.mu.Unlock()

	if p.state.printErr != nil {
		return nil, p.state.printErr
	}
	return []byte("%PDF-1.7 stub"), nil
}

func (p *stubPage) Close() error {
	atomic.AddInt32(&p.state.pagesReleased, 1)
	return nil
}

type stubBrowser struct{ state *stubState }

func (b *stubBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	return &stubPage{state: b.state}, nil
}

func (b *stubBrowser) Close() error { return nil }

type stubLauncher struct{ state *stubState }

func (l *stubLauncher) Launch(ctx context.Context) (browser.Browser, error) {
	return &stubBrowser{state: l.state}, nil
}

func newTestService(t *testing.T, state *stubState, opts Options) *Service {
	t.Helper()
	pool := browser.New(&stubLauncher{state: state}, browser.Options{MaxInstances: 2, MaxPagesPerInstance: 16}, zerolog.Nop())
	t.Cleanup(pool.Shutdown)
	return NewService(pool, opts, zerolog.Nop())
}

func TestRenderReturnsBytesAndMetadata(t *testing.T) {
	state := &stubState{}
	svc := newTestService(t, state, Options{})

	res, err := svc.Render(context.Background(), "<p>Hello</p>", RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(res.PDF) == 0 {
		t.Fatal("empty pdf bytes")
	}
	if res.PageCount != 1 {
		t.Fatalf("page count = %d, want 1", res.PageCount)
	}
	if res.InstanceID == "" {
		t.Fatal("missing instance id")
	}
	if atomic.LoadInt32(&state.screenMedia) != 1 {
		t.Fatal("screen media emulation not applied")
	}
}

func TestRenderWaitStrategySelection(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		opts      RenderOptions
		wantWait  browser.WaitStrategy
		wantFonts bool
	}{
		{"latin uses dom ready", "<p>Hello</p>", RenderOptions{}, browser.WaitDOMReady, false},
		{"complex script waits for network", "<p>مرحبا</p>", RenderOptions{}, browser.WaitNetworkIdle, true},
		{"wait for images forces network idle", "<p>Hello</p>", RenderOptions{WaitForImages: true}, browser.WaitNetworkIdle, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state := &stubState{}
			svc := newTestService(t, state, Options{})

			if _, err := svc.Render(context.Background(), tc.html, tc.opts); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if state.lastWait != tc.wantWait {
				t.Fatalf("wait strategy = %v, want %v", state.lastWait, tc.wantWait)
			}
			gotFonts := atomic.LoadInt32(&state.fontWaits) > 0
			if gotFonts != tc.wantFonts {
				t.Fatalf("font wait = %v, want %v", gotFonts, tc.wantFonts)
			}
		})
	}
}

func TestRenderConcurrencyCeiling(t *testing.T) {
	state := &stubState{renderDelay: 100 * time.Millisecond}
	svc := newTestService(t, state, Options{MaxConcurrency: 2})

	var wg sync.WaitGroup
	errCh := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Render(context.Background(), "<p>ok</p>", RenderOptions{}); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}

	if state.maxInFlight > 2 {
		t.Fatalf("max concurrent renders = %d, want <= 2", state.maxInFlight)
	}
	if svc.ActiveRenders() != 0 || svc.WaitingRenders() != 0 {
		t.Fatalf("counters not drained: active=%d waiting=%d", svc.ActiveRenders(), svc.WaitingRenders())
	}
}

func TestRenderReleasesPageOnFailure(t *testing.T) {
	state := &stubState{printErr: errors.New("target crashed")}
	svc := newTestService(t, state, Options{})

	if _, err := svc.Render(context.Background(), "<p>boom</p>", RenderOptions{}); err == nil {
		t.Fatal("expected render error")
	}
	if atomic.LoadInt32(&state.pagesReleased) != 1 {
		t.Fatalf("pages released = %d, want 1", state.pagesReleased)
	}
	if svc.ActiveRenders() != 0 {
		t.Fatalf("active renders = %d, want 0", svc.ActiveRenders())
	}
}

func TestRenderPropagatesContentError(t *testing.T) {
	state := &stubState{setContentErr: errors.New("navigation timeout")}
	svc := newTestService(t, state, Options{})

	_, err := svc.Render(context.Background(), "<p>late</p>", RenderOptions{})
	if err == nil {
		t.Fatal("expected content-load error")
	}
	if atomic.LoadInt32(&state.pagesReleased) != 1 {
		t.Fatalf("pages released = %d, want 1", state.pagesReleased)
	}
}

func TestRenderRejectsBadOptionsBeforeTakingSlot(t *testing.T) {
	state := &stubState{}
	svc := newTestService(t, state, Options{})

	if _, err := svc.Render(context.Background(), "<p>x</p>", RenderOptions{Format: "B7"}); err == nil {
		t.Fatal("expected option validation error")
	}
	if atomic.LoadInt32(&state.pagesReleased) != 0 {
		t.Fatal("no page should have been acquired")
	}
}

func TestRenderHonorsCanceledContext(t *testing.T) {
	state := &stubState{}
	svc := newTestService(t, state, Options{MaxConcurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Render(ctx, "<p>x</p>", RenderOptions{}); err == nil {
		t.Fatal("expected context error")
	}
}
