package pdf

import (
	"unicode"

	"golang.org/x/text/unicode/bidi"

	"promptpdf/internal/browser"
)

// Script classifies a document's writing systems for wait-strategy selection.
type Script int

const (
	// ScriptLatin covers documents whose glyphs render correctly with
	// DOM-ready waiting and fallback fonts.
	ScriptLatin Script = iota
	// ScriptComplex marks right-to-left, CJK or Indic content that needs
	// web fonts fully loaded before rasterization.
	ScriptComplex
)

// complexScripts lists the writing systems that trigger the stricter wait
// strategy, with the font family and a representative glyph checked during
// the font-readiness poll.
var complexScripts = []struct {
	table  *unicode.RangeTable
	family string
	sample string
}{
	{unicode.Arabic, "Noto Naskh Arabic", "ع"},
	{unicode.Hebrew, "Noto Sans Hebrew", "א"},
	{unicode.Han, "Noto Sans SC", "中"},
	{unicode.Hiragana, "Noto Sans JP", "あ"},
	{unicode.Katakana, "Noto Sans JP", "ア"},
	{unicode.Hangul, "Noto Sans KR", "가"},
	{unicode.Devanagari, "Noto Sans Devanagari", "अ"},
	{unicode.Bengali, "Noto Sans Bengali", "অ"},
	{unicode.Tamil, "Noto Sans Tamil", "அ"},
	{unicode.Telugu, "Noto Sans Telugu", "అ"},
	{unicode.Kannada, "Noto Sans Kannada", "ಅ"},
	{unicode.Malayalam, "Noto Sans Malayalam", "അ"},
	{unicode.Gujarati, "Noto Sans Gujarati", "અ"},
	{unicode.Gurmukhi, "Noto Sans Gurmukhi", "ਅ"},
}

// DetectScript scans the raw HTML and reports whether it contains scripts
// that require the network-idle wait strategy.
func DetectScript(html string) Script {
	for _, r := range html {
		if isComplexRune(r) {
			return ScriptComplex
		}
	}
	return ScriptLatin
}

// FontChecks returns one check per complex writing system present in the
// document. Latin-only documents yield nil.
func FontChecks(html string) []browser.FontCheck {
	seen := map[string]bool{}
	var checks []browser.FontCheck
	for _, r := range html {
		for _, cs := range complexScripts {
			if !unicode.Is(cs.table, r) || seen[cs.family] {
				continue
			}
			seen[cs.family] = true
			checks = append(checks, browser.FontCheck{Family: cs.family, Sample: cs.sample})
		}
	}
	return checks
}

func isComplexRune(r rune) bool {
	for _, cs := range complexScripts {
		if unicode.Is(cs.table, r) {
			return true
		}
	}
	// Catch RTL codepoints outside the named blocks (presentation forms,
	// Syriac, Thaana, ...).
	switch class(r) {
	case bidi.R, bidi.AL:
		return true
	}
	return false
}

func class(r rune) bidi.Class {
	props, _ := bidi.LookupRune(r)
	return props.Class()
}
