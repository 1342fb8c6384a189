package pdf

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestResolveDefaults(t *testing.T) {
	printOpts, timeout, err := resolve(RenderOptions{}, 30*time.Second)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !almostEqual(printOpts.PaperWidth, 8.27) || !almostEqual(printOpts.PaperHeight, 11.69) {
		t.Fatalf("paper = %vx%v, want A4", printOpts.PaperWidth, printOpts.PaperHeight)
	}
	if !almostEqual(printOpts.MarginTop, 20.0/25.4) || !almostEqual(printOpts.MarginLeft, 15.0/25.4) {
		t.Fatalf("margins = %v/%v, want 20mm/15mm", printOpts.MarginTop, printOpts.MarginLeft)
	}
	if !printOpts.PrintBackground {
		t.Fatal("backgrounds should default to on")
	}
	if timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want service default", timeout)
	}
}

func TestResolveOverrides(t *testing.T) {
	off := false
	printOpts, timeout, err := resolve(RenderOptions{
		Format:          "letter",
		Margin:          Margin{Top: "1in", Bottom: "0.5in", Left: "10mm", Right: "2cm"},
		PrintBackground: &off,
		Timeout:         5 * time.Second,
	}, 30*time.Second)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !almostEqual(printOpts.PaperWidth, 8.5) || !almostEqual(printOpts.PaperHeight, 11) {
		t.Fatalf("paper = %vx%v, want letter", printOpts.PaperWidth, printOpts.PaperHeight)
	}
	if !almostEqual(printOpts.MarginTop, 1) || !almostEqual(printOpts.MarginBottom, 0.5) {
		t.Fatalf("vertical margins = %v/%v", printOpts.MarginTop, printOpts.MarginBottom)
	}
	if !almostEqual(printOpts.MarginLeft, 10.0/25.4) || !almostEqual(printOpts.MarginRight, 2.0/2.54) {
		t.Fatalf("horizontal margins = %v/%v", printOpts.MarginLeft, printOpts.MarginRight)
	}
	if printOpts.PrintBackground {
		t.Fatal("backgrounds should be off")
	}
	if timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", timeout)
	}
}

func TestResolveRejectsUnknownFormat(t *testing.T) {
	if _, _, err := resolve(RenderOptions{Format: "B7"}, time.Second); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLengthToInches(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"25.4mm", 1, false},
		{"2.54cm", 1, false},
		{"96px", 1, false},
		{"1.5in", 1.5, false},
		{"0mm", 0, false},
		{"-5mm", 0, true},
		{"20", 0, true},
		{"20pt", 0, true},
		{"abcmm", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := lengthToInches(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("lengthToInches(%q) succeeded, want error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("lengthToInches(%q): %v", tc.in, err)
			}
			if !almostEqual(got, tc.want) {
				t.Fatalf("lengthToInches(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
