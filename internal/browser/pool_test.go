package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePage struct {
	browser *fakeBrowser
}

func (p *fakePage) SetContent(ctx context.Context, html string, wait WaitStrategy) error {
	return nil
}

func (p *fakePage) WaitFonts(ctx context.Context, checks []FontCheck) error { return nil }

func (p *fakePage) EmulateScreenMedia() error { return nil }

func (p *fakePage) PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

func (p *fakePage) Close() error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	p.browser.openPages--
	return nil
}

type fakeBrowser struct {
	mu          sync.Mutex
	openPages   int
	failNewPage bool
	closed      bool
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNewPage {
		return nil, errors.New("target crashed")
	}
	b.openPages++
	return &fakePage{browser: b}, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakeLauncher struct {
	mu       sync.Mutex
	browsers []*fakeBrowser
	failures int
}

func (l *fakeLauncher) Launch(ctx context.Context) (Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures > 0 {
		l.failures--
		return nil, errors.New("chromium exited early")
	}
	b := &fakeBrowser{}
	l.browsers = append(l.browsers, b)
	return b, nil
}

func newTestPool(t *testing.T, launcher Launcher, opts Options) *Pool {
	t.Helper()
	p := New(launcher, opts, zerolog.Nop())
	t.Cleanup(p.Shutdown)
	return p
}

func TestAcquireLaunchesLazily(t *testing.T) {
	launcher := &fakeLauncher{}
	pool := newTestPool(t, launcher, Options{MaxInstances: 2, MaxPagesPerInstance: 2})

	if got := len(pool.Stats().Instances); got != 0 {
		t.Fatalf("instances before first acquire = %d, want 0", got)
	}

	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lease.Close()

	if got := len(launcher.browsers); got != 1 {
		t.Fatalf("launched browsers = %d, want 1", got)
	}
}

func TestPageAccounting(t *testing.T) {
	pool := newTestPool(t, &fakeLauncher{}, Options{MaxInstances: 1, MaxPagesPerInstance: 4})

	var leases []*Lease
	for i := 0; i < 3; i++ {
		lease, err := pool.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
		leases = append(leases, lease)

		stats := pool.Stats()
		if got := stats.Instances[0].PageCount; got != i+1 {
			t.Fatalf("page count after %d acquires = %d, want %d", i+1, got, i+1)
		}
	}

	for i, lease := range leases {
		if err := lease.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i, err)
		}
		stats := pool.Stats()
		if got := stats.Instances[0].PageCount; got != len(leases)-i-1 {
			t.Fatalf("page count after %d closes = %d, want %d", i+1, got, len(leases)-i-1)
		}
	}
}

func TestLeaseCloseIsIdempotent(t *testing.T) {
	pool := newTestPool(t, &fakeLauncher{}, Options{MaxInstances: 1, MaxPagesPerInstance: 4})

	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lease.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := lease.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := pool.Stats().Instances[0].PageCount; got != 0 {
		t.Fatalf("page count after double close = %d, want 0", got)
	}
}

func TestAcquirePrefersLeastLoadedInstance(t *testing.T) {
	launcher := &fakeLauncher{}
	pool := newTestPool(t, launcher, Options{MaxInstances: 2, MaxPagesPerInstance: 2})

	// Saturate the first instance so a second one is launched.
	for i := 0; i < 3; i++ {
		if _, err := pool.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
	}
	stats := pool.Stats()
	if len(stats.Instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(stats.Instances))
	}

	counts := map[int]int{}
	for _, inst := range stats.Instances {
		counts[inst.PageCount]++
	}
	if counts[2] != 1 || counts[1] != 1 {
		t.Fatalf("expected page counts {2,1}, got %+v", stats.Instances)
	}
}

func TestAcquireExhausted(t *testing.T) {
	pool := newTestPool(t, &fakeLauncher{}, Options{MaxInstances: 1, MaxPagesPerInstance: 1})

	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}

	// Capacity frees up once the lease is returned.
	if err := lease.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestLaunchRetriesThenFails(t *testing.T) {
	launcher := &fakeLauncher{failures: 10}
	pool := newTestPool(t, launcher, Options{MaxInstances: 1, MaxPagesPerInstance: 1, LaunchRetries: 1})

	_, err := pool.Acquire(context.Background())
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("err = %v, want *LaunchError", err)
	}
	if launchErr.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", launchErr.Attempts)
	}
}

func TestLaunchRecoversWithinRetryBudget(t *testing.T) {
	launcher := &fakeLauncher{failures: 1}
	pool := newTestPool(t, launcher, Options{MaxInstances: 1, MaxPagesPerInstance: 1, LaunchRetries: 2})

	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}

func TestDeadInstanceLeavesRotation(t *testing.T) {
	launcher := &fakeLauncher{}
	pool := newTestPool(t, launcher, Options{MaxInstances: 1, MaxPagesPerInstance: 4})

	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lease.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate a crashed browser process.
	launcher.browsers[0].failNewPage = true

	if _, err := pool.Acquire(context.Background()); err == nil {
		t.Fatal("expected error from dead instance")
	}
	if got := len(pool.Stats().Instances); got != 0 {
		t.Fatalf("instances after retire = %d, want 0", got)
	}
	if !launcher.browsers[0].closed {
		t.Fatal("dead browser should be closed")
	}

	// Next demand recreates lazily.
	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after retire: %v", err)
	}
	if got := len(launcher.browsers); got != 2 {
		t.Fatalf("launched browsers = %d, want 2", got)
	}
}

func TestIdleSweepRecyclesOnlyIdleInstances(t *testing.T) {
	launcher := &fakeLauncher{}
	pool := newTestPool(t, launcher, Options{MaxInstances: 2, MaxPagesPerInstance: 1, IdleTimeout: 10 * time.Millisecond})

	busy, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire busy: %v", err)
	}
	idle, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire idle: %v", err)
	}
	if err := idle.Close(); err != nil {
		t.Fatalf("Close idle: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	pool.sweepIdle()

	stats := pool.Stats()
	if len(stats.Instances) != 1 {
		t.Fatalf("instances after sweep = %d, want 1", len(stats.Instances))
	}
	if stats.Instances[0].PageCount != 1 {
		t.Fatalf("surviving instance page count = %d, want 1", stats.Instances[0].PageCount)
	}
	_ = busy.Close()
}

func TestShutdownClosesEverything(t *testing.T) {
	launcher := &fakeLauncher{}
	pool := New(launcher, Options{MaxInstances: 2, MaxPagesPerInstance: 2}, zerolog.Nop())

	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Shutdown()

	for i, b := range launcher.browsers {
		if !b.closed {
			t.Fatalf("browser %d not closed after shutdown", i)
		}
	}
	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("err = %v, want ErrPoolClosed", err)
	}
	// Shutdown twice is a no-op.
	pool.Shutdown()
}

func TestConcurrentAcquireReleaseKeepsCountsConsistent(t *testing.T) {
	pool := newTestPool(t, &fakeLauncher{}, Options{MaxInstances: 3, MaxPagesPerInstance: 4})

	var wg sync.WaitGroup
	errCh := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				lease, err := pool.Acquire(context.Background())
				if err != nil {
					if errors.Is(err, ErrPoolExhausted) {
						continue
					}
					errCh <- fmt.Errorf("acquire: %w", err)
					return
				}
				time.Sleep(time.Millisecond)
				if err := lease.Close(); err != nil {
					errCh <- fmt.Errorf("close: %w", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}

	for _, inst := range pool.Stats().Instances {
		if inst.PageCount != 0 {
			t.Fatalf("instance %s page count = %d, want 0", inst.ID, inst.PageCount)
		}
	}
}
