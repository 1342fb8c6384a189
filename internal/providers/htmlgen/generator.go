// Package htmlgen turns a user prompt into the HTML document handed to the
// PDF renderer.
package htmlgen

import "context"

// Generator produces a full UTF-8 HTML document for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
