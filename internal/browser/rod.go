package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher starts headless Chromium processes via go-rod.
type RodLauncher struct {
	// BinPath overrides the browser binary; empty means rod's managed
	// download.
	BinPath string
}

// Launch starts one browser process and connects to it.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	opts := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox")
	if l.BinPath != "" {
		opts = opts.Bin(l.BinPath)
	}

	url, err := opts.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect chromium: %w", err)
	}
	return &rodBrowser{browser: b}, nil
}

type rodBrowser struct {
	browser *rod.Browser
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	return &rodPage{page: page}, nil
}

func (b *rodBrowser) Close() error {
	return b.browser.Close()
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) SetContent(ctx context.Context, html string, wait WaitStrategy) error {
	page := p.page.Context(ctx)
	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	switch wait {
	case WaitNetworkIdle:
		// Settle in-flight font and image downloads before printing.
		waitIdle := page.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
		waitIdle()
	default:
		if err := page.WaitLoad(); err != nil {
			return fmt.Errorf("wait load: %w", err)
		}
	}
	return nil
}

func (p *rodPage) WaitFonts(ctx context.Context, checks []FontCheck) error {
	page := p.page.Context(ctx)
	for {
		ready, err := p.fontsReady(page, checks)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (p *rodPage) fontsReady(page *rod.Page, checks []FontCheck) (bool, error) {
	loaded, err := page.Eval(`() => document.fonts.status === "loaded"`)
	if err != nil {
		return false, fmt.Errorf("font status: %w", err)
	}
	if !loaded.Value.Bool() {
		return false, nil
	}
	for _, check := range checks {
		ok, err := page.Eval(
			`(family, sample) => document.fonts.check("16px " + family, sample)`,
			check.Family, check.Sample,
		)
		if err != nil {
			return false, fmt.Errorf("font check %s: %w", check.Family, err)
		}
		if !ok.Value.Bool() {
			return false, nil
		}
	}
	return true, nil
}

func (p *rodPage) EmulateScreenMedia() error {
	return proto.EmulationSetEmulatedMedia{Media: "screen"}.Call(p.page)
}

func (p *rodPage) PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error) {
	req := &proto.PagePrintToPDF{
		PrintBackground: opts.PrintBackground,
		PaperWidth:      ref(opts.PaperWidth),
		PaperHeight:     ref(opts.PaperHeight),
		MarginTop:       ref(opts.MarginTop),
		MarginBottom:    ref(opts.MarginBottom),
		MarginLeft:      ref(opts.MarginLeft),
		MarginRight:     ref(opts.MarginRight),
	}
	stream, err := p.page.Context(ctx).PDF(req)
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

func ref(v float64) *float64 { return &v }
