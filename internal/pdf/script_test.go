package pdf

import "testing"

func TestDetectScript(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Script
	}{
		{"plain english", "<html><body><p>Hello world</p></body></html>", ScriptLatin},
		{"latin with accents", "<p>Café naïve résumé</p>", ScriptLatin},
		{"empty document", "", ScriptLatin},
		{"arabic", "<p>مرحبا بالعالم</p>", ScriptComplex},
		{"hebrew", "<p>שלום עולם</p>", ScriptComplex},
		{"simplified chinese", "<p>你好，世界</p>", ScriptComplex},
		{"japanese hiragana", "<p>こんにちは</p>", ScriptComplex},
		{"korean", "<p>안녕하세요</p>", ScriptComplex},
		{"devanagari", "<p>नमस्ते दुनिया</p>", ScriptComplex},
		{"tamil", "<p>வணக்கம்</p>", ScriptComplex},
		{"single cjk char in latin text", "<p>see 中 for details</p>", ScriptComplex},
		{"arabic presentation form", "<p>ﺍ</p>", ScriptComplex},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectScript(tc.html); got != tc.want {
				t.Fatalf("DetectScript() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFontChecksPerScript(t *testing.T) {
	checks := FontChecks("<p>مرحبا 中文 नमस्ते</p>")

	families := map[string]bool{}
	for _, c := range checks {
		families[c.Family] = true
		if c.Sample == "" {
			t.Fatalf("check for %s has empty sample", c.Family)
		}
	}
	for _, want := range []string{"Noto Naskh Arabic", "Noto Sans SC", "Noto Sans Devanagari"} {
		if !families[want] {
			t.Fatalf("missing font check for %s; got %v", want, families)
		}
	}
}

func TestFontChecksLatinOnly(t *testing.T) {
	if checks := FontChecks("<p>Hello</p>"); len(checks) != 0 {
		t.Fatalf("expected no checks for latin text, got %v", checks)
	}
}

func TestFontChecksDeduplicatesFamilies(t *testing.T) {
	checks := FontChecks("<p>中文 漢字 中国</p>")
	if len(checks) != 1 {
		t.Fatalf("expected a single check for repeated han text, got %v", checks)
	}
}
