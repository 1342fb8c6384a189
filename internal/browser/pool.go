package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options tunes pool capacity and recycling.
type Options struct {
	MaxInstances        int
	MaxPagesPerInstance int
	IdleTimeout         time.Duration
	LaunchRetries       int
}

func (o Options) withDefaults() Options {
	if o.MaxInstances <= 0 {
		o.MaxInstances = 2
	}
	if o.MaxPagesPerInstance <= 0 {
		o.MaxPagesPerInstance = 8
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	if o.LaunchRetries < 0 {
		o.LaunchRetries = 0
	}
	return o
}

type instance struct {
	id        string
	browser   Browser
	pageCount int
	lastUsed  time.Time
	healthy   bool
}

// Pool multiplexes short-lived rendering tasks across a small set of warm
// browser instances. Instances are created lazily up to MaxInstances and
// recycled after sitting idle with no pages for IdleTimeout.
type Pool struct {
	launcher Launcher
	opts     Options
	logger   zerolog.Logger

	mu        sync.Mutex
	instances []*instance
	launching int
	seq       int
	closed    bool

	reaperStop chan struct{}
}

// New constructs a pool and starts its idle reaper.
func New(launcher Launcher, opts Options, logger zerolog.Logger) *Pool {
	p := &Pool{
		launcher:   launcher,
		opts:       opts.withDefaults(),
		logger:     logger,
		reaperStop: make(chan struct{}),
	}
	go p.reap()
	return p
}

// Lease is a checked-out page. Close returns it to the pool and must be
// called on every code path; it is safe to call more than once.
type Lease struct {
	Page       Page
	InstanceID string

	pool *Pool
	inst *instance
	once sync.Once
}

// Close releases the page and updates the owning instance's bookkeeping.
func (l *Lease) Close() error {
	var err error
	l.once.Do(func() {
		err = l.Page.Close()
		l.pool.release(l.inst)
	})
	return err
}

// Acquire returns a fresh page from the least-loaded instance, creating an
// instance when all existing ones are saturated and the cap allows it.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}

		if inst := p.pickLocked(); inst != nil {
			inst.pageCount++
			inst.lastUsed = time.Now()
			p.mu.Unlock()

			page, err := inst.browser.NewPage(ctx)
			if err != nil {
				p.retire(inst)
				p.logger.Warn().Err(err).Str("instance_id", inst.id).Msg("browser: page creation failed, instance retired")
				return nil, fmt.Errorf("new page on %s: %w", inst.id, err)
			}
			return &Lease{Page: page, InstanceID: inst.id, pool: p, inst: inst}, nil
		}

		if len(p.instances)+p.launching < p.opts.MaxInstances {
			p.launching++
			p.mu.Unlock()

			inst, err := p.launch(ctx)

			p.mu.Lock()
			p.launching--
			if err != nil {
				p.mu.Unlock()
				return nil, err
			}
			if p.closed {
				p.mu.Unlock()
				_ = inst.browser.Close()
				return nil, ErrPoolClosed
			}
			p.instances = append(p.instances, inst)
			p.mu.Unlock()
			p.logger.Info().Str("instance_id", inst.id).Int("instances", p.instanceCount()).Msg("browser: instance launched")
			continue
		}

		p.mu.Unlock()
		return nil, ErrPoolExhausted
	}
}

// pickLocked selects the healthy instance with the fewest active pages that
// still has page headroom. Caller holds p.mu.
func (p *Pool) pickLocked() *instance {
	var best *instance
	for _, inst := range p.instances {
		if !inst.healthy || inst.pageCount >= p.opts.MaxPagesPerInstance {
			continue
		}
		if best == nil || inst.pageCount < best.pageCount {
			best = inst
		}
	}
	return best
}

func (p *Pool) launch(ctx context.Context) (*instance, error) {
	attempts := p.opts.LaunchRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := p.launcher.Launch(ctx)
		if err == nil {
			p.mu.Lock()
			p.seq++
			id := fmt.Sprintf("browser-%d", p.seq)
			p.mu.Unlock()
			return &instance{id: id, browser: b, lastUsed: time.Now(), healthy: true}, nil
		}
		lastErr = err
		p.logger.Warn().Err(err).Int("attempt", i+1).Msg("browser: launch failed")
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	return nil, &LaunchError{Attempts: attempts, Err: lastErr}
}

// release returns one page slot. An unhealthy instance whose last page has
// been returned is removed and closed here, never while pages are out.
func (p *Pool) release(inst *instance) {
	p.mu.Lock()
	inst.pageCount--
	inst.lastUsed = time.Now()
	remove := !inst.healthy && inst.pageCount == 0
	if remove {
		p.removeLocked(inst)
	}
	p.mu.Unlock()

	if remove {
		_ = inst.browser.Close()
	}
}

// retire marks an instance dead after a failed page creation. The slot taken
// for the failed page is handed back and the instance leaves rotation; it is
// closed once the last outstanding page comes home.
func (p *Pool) retire(inst *instance) {
	p.mu.Lock()
	inst.pageCount--
	inst.healthy = false
	remove := inst.pageCount == 0
	if remove {
		p.removeLocked(inst)
	}
	p.mu.Unlock()

	if remove {
		_ = inst.browser.Close()
	}
}

// removeLocked drops inst from the rotation slice. Caller holds p.mu.
func (p *Pool) removeLocked(inst *instance) {
	for i, candidate := range p.instances {
		if candidate == inst {
			p.instances = append(p.instances[:i], p.instances[i+1:]...)
			return
		}
	}
}

func (p *Pool) instanceCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.instances)
}

// InstanceStats is a point-in-time snapshot of one pooled browser.
type InstanceStats struct {
	ID        string    `json:"id"`
	PageCount int       `json:"page_count"`
	LastUsed  time.Time `json:"last_used"`
}

// Stats is a snapshot of the whole pool.
type Stats struct {
	Instances []InstanceStats `json:"instances"`
}

// Stats reports per-instance ids and page counts for monitoring.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{Instances: make([]InstanceStats, 0, len(p.instances))}
	for _, inst := range p.instances {
		s.Instances = append(s.Instances, InstanceStats{
			ID:        inst.id,
			PageCount: inst.pageCount,
			LastUsed:  inst.lastUsed,
		})
	}
	return s
}

// Shutdown tears down every instance. Acquire fails with ErrPoolClosed
// afterwards.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	instances := p.instances
	p.instances = nil
	p.mu.Unlock()

	close(p.reaperStop)
	for _, inst := range instances {
		if err := inst.browser.Close(); err != nil {
			p.logger.Warn().Err(err).Str("instance_id", inst.id).Msg("browser: close failed during shutdown")
		}
	}
}

func (p *Pool) reap() {
	sweep := p.opts.IdleTimeout / 2
	if sweep < time.Second {
		sweep = time.Second
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()
	for {
		select {
		case <-p.reaperStop:
			return
		case <-ticker.C:
			p.sweepIdle()
		}
	}
}

// sweepIdle closes instances that held zero pages for longer than
// IdleTimeout. The zero-page check happens under the same lock as Acquire's
// selection, so an instance can never be reaped while a page is being lent
// from it.
func (p *Pool) sweepIdle() {
	now := time.Now()

	p.mu.Lock()
	var idle []*instance
	kept := p.instances[:0]
	for _, inst := range p.instances {
		if inst.pageCount == 0 && now.Sub(inst.lastUsed) > p.opts.IdleTimeout {
			idle = append(idle, inst)
			continue
		}
		kept = append(kept, inst)
	}
	p.instances = kept
	p.mu.Unlock()

	for _, inst := range idle {
		if err := inst.browser.Close(); err != nil {
			p.logger.Warn().Err(err).Str("instance_id", inst.id).Msg("browser: close failed during idle sweep")
		} else {
			p.logger.Debug().Str("instance_id", inst.id).Msg("browser: idle instance recycled")
		}
	}
}
