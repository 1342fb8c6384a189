package htmlgen

import (
	"fmt"
	"html"
	"strings"
)

const documentShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Georgia, "Noto Sans", serif; margin: 0; color: #1a1a1a; line-height: 1.6; }
  h1 { font-size: 22pt; border-bottom: 2px solid #1a1a1a; padding-bottom: 8px; }
  p { font-size: 11pt; }
</style>
</head>
<body>
%s
</body>
</html>`

// FallbackDocument builds a deterministic styled document straight from the
// prompt text, used when no generation backend is configured.
func FallbackDocument(prompt string) string {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	var body strings.Builder
	body.WriteString("<h1>" + html.EscapeString(lines[0]) + "</h1>\n")
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		body.WriteString("<p>" + html.EscapeString(line) + "</p>\n")
	}
	return fmt.Sprintf(documentShell, strings.TrimRight(body.String(), "\n"))
}

// EnsureDocument wraps a fragment into a full document; content that already
// is one passes through untouched.
func EnsureDocument(htmlContent string) string {
	trimmed := strings.TrimSpace(htmlContent)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return trimmed
	}
	return fmt.Sprintf(documentShell, trimmed)
}
