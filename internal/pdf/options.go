package pdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"promptpdf/internal/browser"
)

// Margin holds per-edge CSS lengths ("20mm", "0.5in", ...).
type Margin struct {
	Top    string
	Bottom string
	Left   string
	Right  string
}

// RenderOptions are the caller-facing knobs for one conversion. The zero
// value means A4, 20mm/15mm margins, backgrounds on, service-default timeout.
type RenderOptions struct {
	Format          string
	Margin          Margin
	PrintBackground *bool
	WaitForImages   bool
	Timeout         time.Duration
}

// paperSizes maps page size tokens to width/height in inches.
var paperSizes = map[string][2]float64{
	"A3":      {11.69, 16.54},
	"A4":      {8.27, 11.69},
	"A5":      {5.83, 8.27},
	"LETTER":  {8.5, 11},
	"LEGAL":   {8.5, 14},
	"TABLOID": {11, 17},
}

const (
	defaultVerticalMargin   = "20mm"
	defaultHorizontalMargin = "15mm"
)

// resolve normalizes caller options into protocol units and the effective
// timeout.
func resolve(opts RenderOptions, defaultTimeout time.Duration) (browser.PrintOptions, time.Duration, error) {
	format := strings.ToUpper(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "A4"
	}
	size, ok := paperSizes[format]
	if !ok {
		return browser.PrintOptions{}, 0, fmt.Errorf("unknown page format %q", opts.Format)
	}

	printOpts := browser.PrintOptions{
		PaperWidth:      size[0],
		PaperHeight:     size[1],
		PrintBackground: opts.PrintBackground == nil || *opts.PrintBackground,
	}

	var err error
	if printOpts.MarginTop, err = marginInches(opts.Margin.Top, defaultVerticalMargin); err != nil {
		return browser.PrintOptions{}, 0, err
	}
	if printOpts.MarginBottom, err = marginInches(opts.Margin.Bottom, defaultVerticalMargin); err != nil {
		return browser.PrintOptions{}, 0, err
	}
	if printOpts.MarginLeft, err = marginInches(opts.Margin.Left, defaultHorizontalMargin); err != nil {
		return browser.PrintOptions{}, 0, err
	}
	if printOpts.MarginRight, err = marginInches(opts.Margin.Right, defaultHorizontalMargin); err != nil {
		return browser.PrintOptions{}, 0, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return printOpts, timeout, nil
}

func marginInches(value, fallback string) (float64, error) {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	inches, err := lengthToInches(value)
	if err != nil {
		return 0, fmt.Errorf("margin %q: %w", value, err)
	}
	return inches, nil
}

// lengthToInches parses a CSS absolute length into inches.
func lengthToInches(value string) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	unit := ""
	for _, candidate := range []string{"mm", "cm", "in", "px"} {
		if strings.HasSuffix(v, candidate) {
			unit = candidate
			break
		}
	}
	if unit == "" {
		return 0, fmt.Errorf("unsupported unit (want mm, cm, in or px)")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, unit)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative length")
	}
	switch unit {
	case "mm":
		return n / 25.4, nil
	case "cm":
		return n / 2.54, nil
	case "px":
		return n / 96, nil
	default:
		return n, nil
	}
}
